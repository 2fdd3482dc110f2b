// Package client is the authenticated HTTP client of the business portal.
//
// # Overview
//
// Every request issued through HTTPClient goes through one pipeline:
//  1. The payload is encoded once (JSON, form values, raw bytes or
//     multipart) so it can be replayed byte for byte.
//  2. The stored access token is attached as a Bearer header.
//  3. A 401 response hands the request to the refresh coordinator. At most
//     one token refresh is in flight; requests that fail while it runs are
//     parked in a FIFO queue and replayed in arrival order once a new token
//     is stored. A replayed request that fails with 401 again is returned to
//     the caller and never triggers another refresh.
//  4. If the refresh fails, every parked request receives the same
//     *RefreshError, the session is cleared exactly once and the user is
//     sent to the login page.
//
// DownloadFile fetches binary content with the current token, spools it
// into a temporary file and hands it to a platform.Saver. Downloads do not
// take part in refresh; they wait for an active refresh to settle first.
//
// # Error Handling
//
// Conditions are exposed as sentinel errors matched with errors.Is:
// ErrUnavailable, ErrUnauthorized, ErrSessionExpired, ErrNoAccessToken,
// ErrTokenExpired.
// Non-2xx responses are returned as *HTTPError.
//
// # Concurrency
//
// HTTPClient is safe for concurrent use. All operations accept a
// context.Context; cancelling a caller's context never aborts a refresh
// that other requests are waiting for.
package client
