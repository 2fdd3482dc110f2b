package client

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dmitrijs2005/bizportal/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/bizportal/internal/client/session"
	"github.com/dmitrijs2005/bizportal/internal/logging"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
)

// backend is a fake portal API. Resource routes accept only the current
// valid token; the refresh route swaps it for the next one.
type backend struct {
	srv *httptest.Server

	mu           sync.Mutex
	valid        string
	refreshToken string
	nextToken    string
	rotated      string
	refreshFail  bool
	seen         []seenRequest

	refreshCalls   atomic.Int32
	refreshStarted chan struct{}
	refreshGate    chan struct{}

	// onItem, when set, runs before an item request is answered.
	onItem func(r *http.Request)
}

type seenRequest struct {
	Path      string
	Token     string
	RequestID string
}

func newBackend(t *testing.T) *backend {
	t.Helper()
	b := &backend{
		valid:          "T0",
		refreshToken:   "R0",
		nextToken:      "T1",
		refreshStarted: make(chan struct{}, 16),
	}

	r := chi.NewRouter()
	r.Post(DefaultRefreshPath, b.handleRefresh)
	r.Get("/items/{id}", b.handleItem)
	r.Post("/echo", b.handleEcho)
	r.Put("/echo", b.handleEcho)
	r.Delete("/echo", b.handleEcho)
	r.Get("/status/{code}", b.handleStatus)
	r.Get("/files/{name}", b.handleFile)
	r.Get("/always401", func(w http.ResponseWriter, r *http.Request) {
		b.record(r)
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "nope"})
	})

	b.srv = httptest.NewServer(r)
	t.Cleanup(b.srv.Close)
	return b
}

func (b *backend) URL() string { return b.srv.URL }

// configure mutates the backend under its lock.
func (b *backend) configure(fn func(b *backend)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	fn(b)
}

func (b *backend) setValid(tok string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.valid = tok
}

// authorized accepts the current token, or anything when valid is empty.
func (b *backend) authorized(r *http.Request) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.valid == "" || r.Header.Get("Authorization") == "Bearer "+b.valid
}

func (b *backend) record(r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.seen = append(b.seen, seenRequest{
		Path:      r.URL.Path,
		Token:     bearer(r),
		RequestID: r.Header.Get(requestIDHeader),
	})
}

func (b *backend) requests() []seenRequest {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]seenRequest(nil), b.seen...)
}

func bearer(r *http.Request) string {
	const prefix = "Bearer "
	h := r.Header.Get("Authorization")
	if len(h) > len(prefix) {
		return h[len(prefix):]
	}
	return ""
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (b *backend) handleRefresh(w http.ResponseWriter, r *http.Request) {
	b.refreshCalls.Add(1)
	select {
	case b.refreshStarted <- struct{}{}:
	default:
	}
	b.mu.Lock()
	gate := b.refreshGate
	b.mu.Unlock()
	if gate != nil {
		<-gate
	}

	var req refreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": err.Error()})
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.refreshFail || req.RefreshToken != b.refreshToken {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "refresh token expired"})
		return
	}
	b.valid = b.nextToken
	if b.rotated != "" {
		b.refreshToken = b.rotated
	}
	writeJSON(w, http.StatusOK, refreshResponse{Token: b.nextToken, RefreshToken: b.rotated})
}

func (b *backend) handleItem(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	hook := b.onItem
	b.mu.Unlock()
	if hook != nil {
		hook(r)
	}
	b.record(r)
	if !b.authorized(r) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "token expired"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"id": chi.URLParam(r, "id"), "token": bearer(r)})
}

type echoReply struct {
	Method      string            `json:"method"`
	ContentType string            `json:"contentType"`
	Body        string            `json:"body"`
	Query       map[string]string `json:"query"`
	Header      map[string]string `json:"header"`
	Token       string            `json:"token"`
	RequestID   string            `json:"requestId"`
}

func (b *backend) handleEcho(w http.ResponseWriter, r *http.Request) {
	b.record(r)
	if !b.authorized(r) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "token expired"})
		return
	}
	body, _ := io.ReadAll(r.Body)
	q := map[string]string{}
	for k := range r.URL.Query() {
		q[k] = r.URL.Query().Get(k)
	}
	writeJSON(w, http.StatusOK, echoReply{
		Method:      r.Method,
		ContentType: r.Header.Get("Content-Type"),
		Body:        string(body),
		Query:       q,
		Header:      map[string]string{"X-Tenant": r.Header.Get("X-Tenant")},
		Token:       bearer(r),
		RequestID:   r.Header.Get(requestIDHeader),
	})
}

func (b *backend) handleStatus(w http.ResponseWriter, r *http.Request) {
	b.record(r)
	code, _ := strconv.Atoi(chi.URLParam(r, "code"))
	writeJSON(w, code, map[string]string{"message": "status " + chi.URLParam(r, "code")})
}

func (b *backend) handleFile(w http.ResponseWriter, r *http.Request) {
	b.record(r)
	if !b.authorized(r) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "token expired"})
		return
	}
	if cd := r.URL.Query().Get("disposition"); cd != "" {
		w.Header().Set("Content-Disposition", cd)
	}
	w.Header().Set("Content-Type", "application/pdf")
	_, _ = io.WriteString(w, "%PDF-"+chi.URLParam(r, "name"))
}

type countingPlatform struct {
	mu        sync.Mutex
	cookie    string
	navigated []string
}

func (p *countingPlatform) SetAuthCookie(token string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cookie = token
	return nil
}

func (p *countingPlatform) ClearAuthCookie() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cookie = ""
	return nil
}

func (p *countingPlatform) Navigate(_ context.Context, target string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.navigated = append(p.navigated, target)
	return nil
}

func (p *countingPlatform) logouts() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.navigated)
}

var testUser = &session.UserProfile{ID: "u-1", Name: "Alice", Email: "alice@example.com", Role: "manager"}

type fixture struct {
	backend  *backend
	client   *HTTPClient
	store    *session.Store
	platform *countingPlatform
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	b := newBackend(t)
	p := &countingPlatform{}
	store := session.NewStore(metadata.NewMemoryRepository(), p)

	c, err := New(b.URL(), store, opts...)
	require.NoError(t, err)
	require.NoError(t, c.SetAuth(context.Background(), "T0", "R0", testUser))

	return &fixture{backend: b, client: c, store: store, platform: p}
}

func (f *fixture) queueLen() int {
	f.client.coord.mu.Lock()
	defer f.client.coord.mu.Unlock()
	return len(f.client.coord.queue)
}

func waitSignal(t *testing.T, ch <-chan struct{}) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for signal")
	}
}

func (f *fixture) accessToken(t *testing.T) string {
	t.Helper()
	tok, err := f.store.AccessToken(context.Background())
	require.NoError(t, err)
	return tok
}

type logEntry struct {
	Msg  string
	Args []any
}

type logSink struct {
	mu      sync.Mutex
	entries []logEntry
}

// recordingLogger keeps every entry so tests can assert on ordering.
type recordingLogger struct {
	sink *logSink
	with []any
}

func newRecordingLogger() *recordingLogger {
	return &recordingLogger{sink: &logSink{}}
}

func (l *recordingLogger) add(msg string, args []any) {
	l.sink.mu.Lock()
	defer l.sink.mu.Unlock()
	l.sink.entries = append(l.sink.entries, logEntry{Msg: msg, Args: append(append([]any{}, l.with...), args...)})
}

func (l *recordingLogger) Debug(_ context.Context, msg string, args ...any) { l.add(msg, args) }
func (l *recordingLogger) Info(_ context.Context, msg string, args ...any)  { l.add(msg, args) }
func (l *recordingLogger) Warn(_ context.Context, msg string, args ...any)  { l.add(msg, args) }
func (l *recordingLogger) Error(_ context.Context, msg string, args ...any) { l.add(msg, args) }

func (l *recordingLogger) With(args ...any) logging.Logger {
	return &recordingLogger{sink: l.sink, with: append(append([]any{}, l.with...), args...)}
}

// replayedPaths lists the paths of replayed requests in dispatch order.
func (l *recordingLogger) replayedPaths() []string {
	l.sink.mu.Lock()
	defer l.sink.mu.Unlock()
	var out []string
	for _, e := range l.sink.entries {
		if e.Msg != "replaying request" {
			continue
		}
		for i := 0; i+1 < len(e.Args); i += 2 {
			if e.Args[i] == "path" {
				out = append(out, e.Args[i+1].(string))
			}
		}
	}
	return out
}
