package client

import (
	"encoding/json"
	"errors"
	"net/http"
)

var errEmptyBody = errors.New("empty response body")

type Response struct {
	StatusCode int
	Status     string
	Header     http.Header
	Body       []byte
	// RequestID is the X-Request-ID sent with the request, stable across a replay.
	RequestID string
}

// Decode unmarshals a JSON body into v.
func (r *Response) Decode(v any) error {
	if len(r.Body) == 0 {
		return errEmptyBody
	}
	return json.Unmarshal(r.Body, v)
}
