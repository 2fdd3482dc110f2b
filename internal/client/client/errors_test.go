package client

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTTPError_Is(t *testing.T) {
	tests := []struct {
		code        int
		unauthorize bool
		unavailable bool
	}{
		{http.StatusUnauthorized, true, false},
		{http.StatusForbidden, true, false},
		{http.StatusBadGateway, false, true},
		{http.StatusServiceUnavailable, false, true},
		{http.StatusGatewayTimeout, false, true},
		{http.StatusInternalServerError, false, false},
		{http.StatusNotFound, false, false},
	}
	for _, tt := range tests {
		err := error(&HTTPError{StatusCode: tt.code})
		assert.Equal(t, tt.unauthorize, errors.Is(err, ErrUnauthorized), tt.code)
		assert.Equal(t, tt.unavailable, errors.Is(err, ErrUnavailable), tt.code)
	}
}

func TestHTTPError_Message(t *testing.T) {
	e := &HTTPError{Method: "GET", Path: "/x", StatusCode: 422, Body: []byte(`{"message":"name is required"}`)}
	assert.Equal(t, "name is required", e.Message())
	assert.Equal(t, "GET /x: 422 Unprocessable Entity: name is required", e.Error())

	e = &HTTPError{Method: "GET", Path: "/x", StatusCode: 500, Status: "500 Internal Server Error", Body: []byte(`{"error":"db down"}`)}
	assert.Equal(t, "db down", e.Message())

	e = &HTTPError{Method: "GET", Path: "/x", StatusCode: 500, Status: "500 Internal Server Error", Body: []byte("<html>")}
	assert.Empty(t, e.Message())
	assert.Equal(t, "GET /x: 500 Internal Server Error", e.Error())
}

func TestRefreshError_Unwrap(t *testing.T) {
	cause := &HTTPError{StatusCode: http.StatusUnauthorized}
	err := error(&RefreshError{Err: cause})

	assert.ErrorIs(t, err, ErrSessionExpired)
	assert.ErrorIs(t, err, ErrUnauthorized)

	var httpErr *HTTPError
	assert.ErrorAs(t, err, &httpErr)
	assert.Same(t, cause, httpErr)
}
