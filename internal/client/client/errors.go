package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrUnavailable    = errors.New("server unavailable")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrSessionExpired = errors.New("session expired")
	ErrNoAccessToken  = errors.New("no access token")
	ErrTokenExpired   = errors.New("access token expired")
	ErrNoRefreshToken = errors.New("no refresh token")
	ErrRefreshFailed  = errors.New("token refresh failed")
)

// HTTPError is returned for any non-2xx response that is not recovered by a
// token refresh. errors.Is maps it onto ErrUnauthorized (401, 403) and
// ErrUnavailable (502, 503, 504).
type HTTPError struct {
	Method     string
	Path       string
	StatusCode int
	Status     string
	Body       []byte
}

func (e *HTTPError) Error() string {
	status := e.Status
	if status == "" {
		status = fmt.Sprintf("%d %s", e.StatusCode, http.StatusText(e.StatusCode))
	}
	if msg := e.Message(); msg != "" {
		return fmt.Sprintf("%s %s: %s: %s", e.Method, e.Path, status, msg)
	}
	return fmt.Sprintf("%s %s: %s", e.Method, e.Path, status)
}

func (e *HTTPError) Is(target error) bool {
	switch target {
	case ErrUnauthorized:
		return e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden
	case ErrUnavailable:
		return e.StatusCode == http.StatusBadGateway ||
			e.StatusCode == http.StatusServiceUnavailable ||
			e.StatusCode == http.StatusGatewayTimeout
	}
	return false
}

// Message extracts a human readable message from a JSON error body of the
// form {"message": "..."} or {"error": "..."}.
func (e *HTTPError) Message() string {
	var body struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(e.Body, &body); err != nil {
		return ""
	}
	if body.Message != "" {
		return body.Message
	}
	return body.Error
}

// RefreshError is the single error every request parked behind a failed
// refresh receives. It matches ErrSessionExpired and the underlying cause.
type RefreshError struct {
	Err error
}

func (e *RefreshError) Error() string {
	return "session expired: " + e.Err.Error()
}

func (e *RefreshError) Unwrap() []error {
	return []error{ErrSessionExpired, e.Err}
}
