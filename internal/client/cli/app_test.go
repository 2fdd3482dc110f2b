package cli

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/bizportal/internal/client/config"
	"github.com/dmitrijs2005/bizportal/internal/client/metrics"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	c := &config.Config{}
	c.LoadDefaults()
	c.DataDir = filepath.Join(t.TempDir(), "data")
	c.DownloadDir = filepath.Join(t.TempDir(), "downloads")
	c.LogLevel = "error"
	return c
}

func TestNewApp_Wiring(t *testing.T) {
	for _, backend := range []string{config.StorageMemory, config.StorageSQLite} {
		t.Run(backend, func(t *testing.T) {
			c := testConfig(t)
			c.StorageBackend = backend
			c.MetricsAddr = "127.0.0.1:0"

			a, err := NewApp(t.Context(), c)
			require.NoError(t, err)
			t.Cleanup(func() { _ = a.Close() })

			assert.NotNil(t, a.api)
			assert.NotNil(t, a.auth)
			assert.NotNil(t, a.metrics)
			assert.False(t, a.isLoggedIn())
			assert.Equal(t, "guest", a.status())
		})
	}
}

func TestNewApp_UnknownBackend(t *testing.T) {
	c := testConfig(t)
	c.StorageBackend = "etcd"

	_, err := NewApp(t.Context(), c)

	assert.ErrorContains(t, err, `unknown storage backend "etcd"`)
}

func TestOpenRepository_SealedSQLite(t *testing.T) {
	c := testConfig(t)
	c.StorageKey = "passphrase"

	repo, closer, err := openRepository(t.Context(), c)
	require.NoError(t, err)
	t.Cleanup(func() { _ = closer() })

	require.NoError(t, repo.Set(t.Context(), "token", []byte("abc")))
	got, err := repo.Get(t.Context(), "token")
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), got)
	assert.FileExists(t, filepath.Join(c.DataDir, databaseFile))
}

func TestMetricsServer_ExposesClientMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	m.IncrementRefresh("success")

	srv := newMetricsServer("127.0.0.1:0", reg)
	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "token_refreshes_total")
}

func TestClose_RunsClosersInReverse(t *testing.T) {
	var order []int
	a := &App{closers: []func() error{
		func() error { order = append(order, 1); return nil },
		func() error { order = append(order, 2); return nil },
	}}

	require.NoError(t, a.Close())
	assert.Equal(t, []int{2, 1}, order)
	assert.Nil(t, a.closers)
}
