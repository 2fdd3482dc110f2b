package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/bizportal/internal/client/metrics"
	"github.com/dmitrijs2005/bizportal/internal/client/platform"
	"github.com/dmitrijs2005/bizportal/internal/client/session"
	"github.com/dmitrijs2005/bizportal/internal/logging"
	"github.com/google/uuid"
)

type HTTPClient struct {
	baseURL string
	origin  *url.URL
	store   CredentialStore
	http    *http.Client
	coord   *coordinator

	timeout        time.Duration
	refreshTimeout time.Duration
	refreshPath    string
	transport      http.RoundTripper
	jar            http.CookieJar
	saver          platform.Saver
	tempDir        string
	log            logging.Logger
	metrics        *metrics.Metrics
}

func New(baseURL string, store CredentialStore, opts ...Option) (*HTTPClient, error) {
	origin, err := url.ParseRequestURI(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL %q: %w", baseURL, err)
	}
	if store == nil {
		return nil, errors.New("credential store is required")
	}

	c := &HTTPClient{
		baseURL:        strings.TrimRight(baseURL, "/"),
		origin:         origin,
		store:          store,
		timeout:        DefaultTimeout,
		refreshTimeout: DefaultRefreshTimeout,
		refreshPath:    DefaultRefreshPath,
		log:            logging.Nop(),
	}
	for _, o := range opts {
		o(c)
	}
	c.log = logging.OrNop(c.log)

	c.http = &http.Client{
		Timeout:   c.timeout,
		Transport: c.transport,
		Jar:       c.jar,
	}
	c.coord = newCoordinator(store, c.refreshTokens, c.refreshTimeout, c.log, c.metrics)
	return c, nil
}

// State reports the refresh coordinator state.
func (c *HTTPClient) State() State {
	return c.coord.State()
}

func (c *HTTPClient) Get(ctx context.Context, path string, opts ...RequestOption) (*Response, error) {
	return c.do(ctx, http.MethodGet, path, nil, opts)
}

func (c *HTTPClient) Post(ctx context.Context, path string, data any, opts ...RequestOption) (*Response, error) {
	return c.do(ctx, http.MethodPost, path, data, opts)
}

func (c *HTTPClient) Put(ctx context.Context, path string, data any, opts ...RequestOption) (*Response, error) {
	return c.do(ctx, http.MethodPut, path, data, opts)
}

func (c *HTTPClient) Delete(ctx context.Context, path string, data any, opts ...RequestOption) (*Response, error) {
	return c.do(ctx, http.MethodDelete, path, data, opts)
}

// SetAuth stores a new session and clears a previous session-expired state.
func (c *HTTPClient) SetAuth(ctx context.Context, token, refreshToken string, user *session.UserProfile) error {
	return c.coord.sessionStarted(func() error {
		return c.store.Save(ctx, token, refreshToken, user)
	})
}

func (c *HTTPClient) Logout(ctx context.Context) error {
	return c.store.Logout(ctx)
}

func (c *HTTPClient) IsAuthenticated(ctx context.Context) bool {
	return c.store.IsAuthenticated(ctx)
}

func (c *HTTPClient) GetUser(ctx context.Context) *session.UserProfile {
	return c.store.User(ctx)
}

type apiRequest struct {
	id        string
	method    string
	path      string
	url       string
	header    http.Header
	query     url.Values
	payload   *payload
	retried   bool
	anonymous bool
}

func (c *HTTPClient) resolve(path string) string {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	return c.baseURL + "/" + strings.TrimLeft(path, "/")
}

// sameOrigin reports whether target has the scheme and host of the base URL.
// Only such requests carry the access token.
func (c *HTTPClient) sameOrigin(target string) bool {
	u, err := url.Parse(target)
	if err != nil {
		return false
	}
	return strings.EqualFold(u.Scheme, c.origin.Scheme) && strings.EqualFold(u.Host, c.origin.Host)
}

func (c *HTTPClient) newRequest(method, path string, data any, opts []RequestOption) (*apiRequest, error) {
	p, err := encodePayload(data)
	if err != nil {
		return nil, err
	}

	r := &apiRequest{
		id:      uuid.NewString(),
		method:  method,
		path:    path,
		header:  http.Header{},
		query:   url.Values{},
		payload: p,
	}
	for _, o := range opts {
		o(r)
	}

	r.url = c.resolve(path)
	if !c.sameOrigin(r.url) {
		r.anonymous = true
	}
	if len(r.query) > 0 {
		sep := "?"
		if strings.Contains(r.url, "?") {
			sep = "&"
		}
		r.url += sep + r.query.Encode()
	}
	return r, nil
}

func (c *HTTPClient) do(ctx context.Context, method, path string, data any, opts []RequestOption) (*Response, error) {
	r, err := c.newRequest(method, path, data, opts)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}

	var token string
	if !r.anonymous {
		token, err = c.store.AccessToken(ctx)
		if err != nil {
			c.log.Warn(ctx, "access token unavailable, sending unauthenticated", "error", err)
			token = ""
		}
	}

	var release func()
	defer func() {
		if release != nil {
			release()
		}
	}()

	for {
		resp, err := c.send(ctx, r, token, release)
		if err != nil {
			if r.retried {
				c.metrics.IncrementReplay("error")
			}
			return nil, err
		}

		if resp.StatusCode == http.StatusUnauthorized && !r.retried && !r.anonymous {
			r.retried = true
			c.log.Debug(ctx, "request unauthorized, recovering session", "method", method, "path", path, "request_id", r.id)

			token, release, err = c.coord.recover(ctx, token)
			if err != nil {
				return nil, err
			}
			continue
		}

		if r.retried {
			c.metrics.IncrementReplay(replayOutcome(resp.StatusCode))
		}
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return nil, &HTTPError{
				Method:     method,
				Path:       path,
				StatusCode: resp.StatusCode,
				Status:     resp.Status,
				Body:       resp.Body,
			}
		}
		return resp, nil
	}
}

func replayOutcome(code int) string {
	if code >= 200 && code <= 299 {
		return "ok"
	}
	return "failed"
}

// send performs one attempt. dispatched, when set, is invoked right before
// the request goes on the wire.
func (c *HTTPClient) send(ctx context.Context, r *apiRequest, token string, dispatched func()) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, r.method, r.url, r.payload.reader())
	if err != nil {
		return nil, fmt.Errorf("build request %s %s: %w", r.method, r.path, err)
	}

	for k, vs := range r.header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if ct := r.payload.contentType; ct != "" && (r.payload.forced || req.Header.Get("Content-Type") == "") {
		req.Header.Set("Content-Type", ct)
	}
	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", contentTypeJSON)
	}
	req.Header.Set(requestIDHeader, r.id)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	if r.retried {
		c.log.Debug(ctx, "replaying request", "method", r.method, "path", r.path, "request_id", r.id)
	}
	if dispatched != nil {
		dispatched()
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.metrics.ObserveRequest(r.method, "error", time.Since(start))
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%s %s: %w", r.method, r.path, ctx.Err())
		}
		return nil, fmt.Errorf("%w: %s %s: %w", ErrUnavailable, r.method, r.path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	c.metrics.ObserveRequest(r.method, strconv.Itoa(resp.StatusCode), time.Since(start))
	if err != nil {
		return nil, fmt.Errorf("%w: read %s %s: %w", ErrUnavailable, r.method, r.path, err)
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
		Header:     resp.Header,
		Body:       body,
		RequestID:  r.id,
	}, nil
}
