// Package platform isolates the side effects a browser client would perform
// through globals: hard navigation to the login page, the auth cookie read
// by server-side route guards, and saving downloaded files.
package platform

import (
	"context"
	"os"
)

// Navigator performs a hard navigation to target, e.g. the login entry point.
type Navigator interface {
	Navigate(ctx context.Context, target string) error
}

// CookieSetter mirrors the access token into the auth cookie.
type CookieSetter interface {
	SetAuthCookie(token string) error
	ClearAuthCookie() error
}

// Blob is a downloaded body materialized into a temporary file. The file
// belongs to the caller of Saver.Save and is removed after Save returns.
type Blob struct {
	Path        string
	Size        int64
	ContentType string
}

func (b Blob) Open() (*os.File, error) {
	return os.Open(b.Path)
}

// Saver persists a downloaded blob under filename and reports where it went.
type Saver interface {
	Save(ctx context.Context, blob Blob, filename string) (string, error)
}
