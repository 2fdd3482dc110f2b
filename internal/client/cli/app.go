package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/dmitrijs2005/bizportal/internal/client/client"
	"github.com/dmitrijs2005/bizportal/internal/client/config"
	"github.com/dmitrijs2005/bizportal/internal/client/metrics"
	"github.com/dmitrijs2005/bizportal/internal/client/platform"
	"github.com/dmitrijs2005/bizportal/internal/client/services"
	"github.com/dmitrijs2005/bizportal/internal/client/session"
	"github.com/dmitrijs2005/bizportal/internal/logging"
)

type App struct {
	config  *config.Config
	api     client.Client
	auth    services.AuthService
	log     logging.Logger
	reader  *bufio.Reader
	out     io.Writer
	metrics *http.Server
	closers []func() error
}

// NewApp wires storage, the session store, the API client and the auth
// service from c.
func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	a := &App{
		config: c,
		log:    logging.New(c.LogLevel, os.Stderr),
		reader: bufio.NewReader(os.Stdin),
		out:    os.Stdout,
	}

	repo, closeRepo, err := openRepository(ctx, c)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, closeRepo)

	local, err := platform.NewLocal(c.BaseURL, c.AuthCookieName,
		platform.WithNavigateFunc(a.onNavigate),
		platform.WithLogger(a.log))
	if err != nil {
		a.Close()
		return nil, err
	}

	ns := ""
	if u, err := url.Parse(c.BaseURL); err == nil {
		ns = u.Host
	}
	store := session.NewStore(repo, local,
		session.WithLogger(a.log),
		session.WithLoginPath(c.LoginRedirect),
		session.WithNamespace(ns))

	saver, err := newSaver(ctx, c)
	if err != nil {
		a.Close()
		return nil, err
	}

	reg := prometheus.NewRegistry()
	if c.MetricsAddr != "" {
		a.metrics = newMetricsServer(c.MetricsAddr, reg)
	}

	api, err := client.New(c.BaseURL, store,
		client.WithTimeout(c.RequestTimeout),
		client.WithRefreshTimeout(c.RefreshTimeout),
		client.WithRefreshPath(c.RefreshPath),
		client.WithCookieJar(local.Jar()),
		client.WithSaver(saver),
		client.WithLogger(a.log),
		client.WithMetrics(metrics.New(reg)))
	if err != nil {
		a.Close()
		return nil, err
	}
	a.api = api

	paths := services.Paths{Login: c.LoginPath, Profile: c.ProfilePath}
	a.auth = services.NewAuthService(api, store, paths, a.log)

	return a, nil
}

func newSaver(ctx context.Context, c *config.Config) (platform.Saver, error) {
	if c.DownloadSink == config.SinkS3 {
		return platform.NewS3SaverFromOptions(ctx, platform.S3Options{
			Bucket:       c.S3Bucket,
			Prefix:       c.S3Prefix,
			Region:       c.S3Region,
			BaseEndpoint: c.S3BaseEndpoint,
			AccessKey:    c.S3AccessKey,
			SecretKey:    c.S3SecretKey,
		})
	}
	return platform.NewLocalSaver(c.DownloadDir)
}

// Run starts the metrics endpoint, if configured, and blocks in the REPL
// until the user exits.
func (a *App) Run(ctx context.Context) error {
	defer a.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if a.metrics != nil {
		go func() {
			if err := serveMetrics(ctx, a.metrics, a.log); err != nil {
				a.log.Error(ctx, "metrics endpoint failed", "error", err)
			}
		}()
	}

	runREPL(ctx, a, a.status, a.reader)
	return nil
}

// Close releases storage connections in reverse order of opening.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

func (a *App) isLoggedIn() bool {
	return a.api.IsAuthenticated(context.Background())
}

func (a *App) status() string {
	u := a.api.GetUser(context.Background())
	if u == nil {
		return "guest"
	}
	return fmt.Sprintf("%s (%s)", u.Email, u.Role)
}

// onNavigate is called by the session store whenever the session ends.
func (a *App) onNavigate(target string) {
	fmt.Fprintf(a.out, "Signed out. Log in again to continue (%s).\n", target)
}
