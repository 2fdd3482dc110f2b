package client

import (
	"net/http"
	"net/url"
	"time"

	"github.com/dmitrijs2005/bizportal/internal/client/metrics"
	"github.com/dmitrijs2005/bizportal/internal/client/platform"
	"github.com/dmitrijs2005/bizportal/internal/logging"
)

const (
	DefaultTimeout        = 10 * time.Minute
	DefaultRefreshTimeout = 30 * time.Second
	DefaultRefreshPath    = "/auth/refresh-token"

	requestIDHeader = "X-Request-ID"
)

type Option func(*HTTPClient)

// WithTimeout sets the fixed per-request timeout of the underlying
// http.Client.
func WithTimeout(d time.Duration) Option {
	return func(c *HTTPClient) { c.timeout = d }
}

func WithRefreshTimeout(d time.Duration) Option {
	return func(c *HTTPClient) { c.refreshTimeout = d }
}

func WithRefreshPath(p string) Option {
	return func(c *HTTPClient) { c.refreshPath = p }
}

func WithTransport(rt http.RoundTripper) Option {
	return func(c *HTTPClient) { c.transport = rt }
}

func WithCookieJar(jar http.CookieJar) Option {
	return func(c *HTTPClient) { c.jar = jar }
}

func WithSaver(s platform.Saver) Option {
	return func(c *HTTPClient) { c.saver = s }
}

// WithTempDir sets where downloads are spooled; empty means os.TempDir.
func WithTempDir(dir string) Option {
	return func(c *HTTPClient) { c.tempDir = dir }
}

func WithLogger(log logging.Logger) Option {
	return func(c *HTTPClient) { c.log = log }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *HTTPClient) { c.metrics = m }
}

// RequestOption customizes a single request.
type RequestOption func(*apiRequest)

func WithHeader(key, value string) RequestOption {
	return func(r *apiRequest) { r.header.Set(key, value) }
}

func WithQuery(q url.Values) RequestOption {
	return func(r *apiRequest) {
		for k, vs := range q {
			for _, v := range vs {
				r.query.Add(k, v)
			}
		}
	}
}

// WithoutAuth sends the request without a Bearer token and returns a 401 to
// the caller instead of refreshing. Used for the login call itself.
func WithoutAuth() RequestOption {
	return func(r *apiRequest) { r.anonymous = true }
}
