package platform

import (
	"context"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"

	"github.com/dmitrijs2005/bizportal/internal/logging"
)

// Local is the platform of a desktop shell: cookies live in a jar shared with
// the HTTP client and navigation is delegated to a callback.
type Local struct {
	jar        http.CookieJar
	baseURL    *url.URL
	cookieName string
	onNavigate func(target string)
	log        logging.Logger
}

type LocalOption func(*Local)

func WithNavigateFunc(fn func(target string)) LocalOption {
	return func(l *Local) { l.onNavigate = fn }
}

func WithLogger(log logging.Logger) LocalOption {
	return func(l *Local) { l.log = log }
}

func NewLocal(baseURL, cookieName string, opts ...LocalOption) (*Local, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base URL: %w", err)
	}
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}

	l := &Local{jar: jar, baseURL: u, cookieName: cookieName, log: logging.Nop()}
	for _, o := range opts {
		o(l)
	}
	return l, nil
}

// Jar is the cookie jar the HTTP client should use so the auth cookie
// travels with every request.
func (l *Local) Jar() http.CookieJar {
	return l.jar
}

func (l *Local) SetAuthCookie(token string) error {
	l.jar.SetCookies(l.baseURL, []*http.Cookie{{
		Name:     l.cookieName,
		Value:    token,
		Path:     "/",
		SameSite: http.SameSiteStrictMode,
	}})
	return nil
}

func (l *Local) ClearAuthCookie() error {
	l.jar.SetCookies(l.baseURL, []*http.Cookie{{
		Name:   l.cookieName,
		Value:  "",
		Path:   "/",
		MaxAge: -1,
	}})
	return nil
}

func (l *Local) Navigate(ctx context.Context, target string) error {
	l.log.Info(ctx, "navigating", "target", target)
	if l.onNavigate != nil {
		l.onNavigate(target)
	}
	return nil
}
