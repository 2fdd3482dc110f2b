package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/bizportal/internal/client/client"
	"github.com/dmitrijs2005/bizportal/internal/client/platform"
	"github.com/dmitrijs2005/bizportal/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/bizportal/internal/client/services"
	"github.com/dmitrijs2005/bizportal/internal/client/session"
)

func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()
	claims := jwt.RegisteredClaims{Subject: "u-1", ExpiresAt: jwt.NewNumericDate(exp)}
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return s
}

var alice = session.UserProfile{ID: "u-1", Name: "Alice", Email: "alice@example.com", Role: "manager", Company: "Acme"}

// portal is a small backend with the endpoints the REPL commands use.
type portal struct {
	token    string
	password string
	gets     atomic.Int32
}

func (p *portal) routes() http.Handler {
	r := chi.NewRouter()

	r.Post("/auth/login", func(w http.ResponseWriter, r *http.Request) {
		var in struct {
			Email    string `json:"email"`
			Password string `json:"password"`
		}
		_ = json.NewDecoder(r.Body).Decode(&in)
		if in.Password != p.password {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = io.WriteString(w, `{"message":"invalid credentials"}`)
			return
		}
		writeJSON(w, map[string]any{"token": p.token, "refreshToken": "r-1", "user": alice})
	})

	r.Get("/users/profile", func(w http.ResponseWriter, r *http.Request) {
		u := alice
		u.Phone = "+371 2000000"
		writeJSON(w, u)
	})

	r.Get("/items", func(w http.ResponseWriter, r *http.Request) {
		p.gets.Add(1)
		writeJSON(w, map[string]any{"query": r.URL.Query()})
	})

	r.Get("/items/{id}", func(w http.ResponseWriter, r *http.Request) {
		p.gets.Add(1)
		writeJSON(w, map[string]any{"id": chi.URLParam(r, "id")})
	})

	echo := func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		writeJSON(w, map[string]any{
			"method":      r.Method,
			"contentType": r.Header.Get("Content-Type"),
			"body":        string(body),
		})
	}
	r.Post("/echo", echo)
	r.Put("/echo", echo)
	r.Delete("/echo", echo)

	r.Post("/upload", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		for field, files := range r.MultipartForm.File {
			writeJSON(w, map[string]any{"field": field, "filename": files[0].Filename, "size": files[0].Size})
			return
		}
		http.Error(w, "no file", http.StatusBadRequest)
	})

	r.Get("/files/report", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Disposition", `attachment; filename="report.pdf"`)
		_, _ = io.WriteString(w, "%PDF-1.7")
	})

	r.Get("/status/{code}", func(w http.ResponseWriter, r *http.Request) {
		code, _ := strconv.Atoi(chi.URLParam(r, "code"))
		w.WriteHeader(code)
		_, _ = fmt.Fprintf(w, `{"message":"status %d"}`, code)
	})

	return r
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

type testApp struct {
	*App
	out       *bytes.Buffer
	store     *session.Store
	portal    *portal
	downloads string
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()

	p := &portal{token: signedToken(t, time.Now().Add(time.Hour)), password: "s3cret"}
	srv := httptest.NewServer(p.routes())
	t.Cleanup(srv.Close)

	out := &bytes.Buffer{}
	a := &App{out: out, reader: rdr("")}

	local, err := platform.NewLocal(srv.URL, "token", platform.WithNavigateFunc(a.onNavigate))
	require.NoError(t, err)
	store := session.NewStore(metadata.NewMemoryRepository(), local)

	dir := t.TempDir()
	saver, err := platform.NewLocalSaver(dir)
	require.NoError(t, err)

	api, err := client.New(srv.URL, store, client.WithSaver(saver), client.WithCookieJar(local.Jar()))
	require.NoError(t, err)

	a.api = api
	a.auth = services.NewAuthService(api, store, services.DefaultPaths, nil)
	return &testApp{App: a, out: out, store: store, portal: p, downloads: dir}
}

func (ta *testApp) login(t *testing.T) {
	t.Helper()
	u := alice
	require.NoError(t, ta.api.SetAuth(t.Context(), ta.portal.token, "r-1", &u))
	ta.out.Reset()
}
