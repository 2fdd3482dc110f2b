package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path"
	"time"

	"github.com/dmitrijs2005/bizportal/internal/client/platform"
	"github.com/dmitrijs2005/bizportal/internal/client/session"
	"github.com/dmitrijs2005/bizportal/internal/filex"
	"github.com/google/uuid"
)

var ErrNoSaver = errors.New("no download saver configured")

// DownloadFile fetches target with the current access token and hands the body
// to the configured Saver under filename. An empty filename falls back to
// the Content-Disposition name, then to the last path segment.
//
// Downloads never trigger a token refresh. If one is in flight, DownloadFile
// waits for it to settle so it uses the freshest token.
func (c *HTTPClient) DownloadFile(ctx context.Context, target, filename string) (string, error) {
	if c.saver == nil {
		return "", ErrNoSaver
	}
	if err := c.coord.wait(ctx); err != nil {
		return "", err
	}

	u := c.resolve(target)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return "", fmt.Errorf("build download request: %w", err)
	}
	req.Header.Set(requestIDHeader, uuid.NewString())

	if c.sameOrigin(u) {
		token, err := c.downloadToken(ctx)
		if err != nil {
			c.metrics.IncrementDownload("no_token")
			return "", err
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.metrics.IncrementDownload("error")
		if ctx.Err() != nil {
			return "", fmt.Errorf("download %s: %w", target, ctx.Err())
		}
		return "", fmt.Errorf("%w: download %s: %w", ErrUnavailable, target, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.metrics.IncrementDownload("http_error")
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", &HTTPError{
			Method:     http.MethodGet,
			Path:       target,
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       body,
		}
	}

	if filename == "" {
		filename = downloadName(resp)
	}

	blob, cleanup, err := c.spool(resp)
	defer cleanup()
	if err != nil {
		c.metrics.IncrementDownload("error")
		return "", err
	}

	saved, err := c.saver.Save(ctx, blob, filename)
	if err != nil {
		c.metrics.IncrementDownload("save_error")
		return "", fmt.Errorf("save %s: %w", filename, err)
	}

	c.metrics.IncrementDownload("saved")
	c.log.Info(ctx, "file downloaded", "target", target, "saved_to", saved, "bytes", blob.Size)
	return saved, nil
}

// downloadToken returns the stored access token. A JWT whose exp has passed
// is rejected before any network call; opaque tokens are left to the server.
func (c *HTTPClient) downloadToken(ctx context.Context) (string, error) {
	token, err := c.store.AccessToken(ctx)
	if err != nil {
		return "", fmt.Errorf("read access token: %w", err)
	}
	if token == "" {
		return "", ErrNoAccessToken
	}
	if exp, err := session.TokenExpiry(token); err == nil && !time.Now().Before(exp) {
		return "", ErrTokenExpired
	}
	return token, nil
}

// spool copies the response body into a temporary file. cleanup closes and
// removes the file and must always be called.
func (c *HTTPClient) spool(resp *http.Response) (platform.Blob, func(), error) {
	f, err := os.CreateTemp(c.tempDir, "portal-download-*")
	if err != nil {
		return platform.Blob{}, func() {}, fmt.Errorf("create temp file: %w", err)
	}
	cleanup := func() {
		_ = f.Close()
		_ = os.Remove(f.Name())
	}

	n, err := io.Copy(f, resp.Body)
	if err != nil {
		return platform.Blob{}, cleanup, fmt.Errorf("%w: read download body: %w", ErrUnavailable, err)
	}
	if err := f.Sync(); err != nil {
		return platform.Blob{}, cleanup, fmt.Errorf("flush temp file: %w", err)
	}

	return platform.Blob{
		Path:        f.Name(),
		Size:        n,
		ContentType: resp.Header.Get("Content-Type"),
	}, cleanup, nil
}

func downloadName(resp *http.Response) string {
	if cd := resp.Header.Get("Content-Disposition"); cd != "" {
		if _, params, err := mime.ParseMediaType(cd); err == nil && params["filename"] != "" {
			return filex.SanitizeFilename(params["filename"])
		}
	}
	return filex.SanitizeFilename(path.Base(resp.Request.URL.Path))
}
