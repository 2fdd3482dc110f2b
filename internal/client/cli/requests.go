package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/dmitrijs2005/bizportal/internal/client/client"
)

const (
	defaultUploadField = "file"
	fetchConcurrency   = 4
)

var (
	ErrUsage       = errors.New("usage")
	ErrInvalidJSON = errors.New("body is not valid JSON")
)

// Request sends method to args[0]. For GET the remaining args are k=v query
// parameters; for the other methods they form a JSON body. POST and PUT
// prompt for the body when none is given.
func (a *App) Request(ctx context.Context, method string, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("%w: %s <path>", ErrUsage, strings.ToLower(method))
	}
	target, rest := args[0], args[1:]

	var (
		resp *client.Response
		err  error
	)
	switch method {
	case http.MethodGet:
		q, qerr := parseQuery(rest)
		if qerr != nil {
			return qerr
		}
		resp, err = a.api.Get(ctx, target, client.WithQuery(q))

	default:
		raw := strings.Join(rest, " ")
		if raw == "" && method != http.MethodDelete {
			if raw, err = GetMultiline(a.reader, "Enter JSON body", a.out); err != nil {
				return err
			}
		}
		var data any
		if raw != "" {
			if !json.Valid([]byte(raw)) {
				return ErrInvalidJSON
			}
			data = json.RawMessage(raw)
		}

		switch method {
		case http.MethodPost:
			resp, err = a.api.Post(ctx, target, data)
		case http.MethodPut:
			resp, err = a.api.Put(ctx, target, data)
		case http.MethodDelete:
			resp, err = a.api.Delete(ctx, target, data)
		default:
			return fmt.Errorf("unsupported method %s", method)
		}
	}
	if err != nil {
		return err
	}

	printResponse(a.out, resp)
	return nil
}

// Upload posts a local file as multipart form data: upload <path> <file> [field].
func (a *App) Upload(ctx context.Context, args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("%w: upload <path> <file> [field]", ErrUsage)
	}
	field := defaultUploadField
	if len(args) > 2 {
		field = args[2]
	}

	f, err := os.Open(args[1])
	if err != nil {
		return err
	}
	defer f.Close()

	form := client.NewMultipart().File(field, filepath.Base(args[1]), f)
	resp, err := a.api.Post(ctx, args[0], form)
	if err != nil {
		return err
	}

	printResponse(a.out, resp)
	return nil
}

// Download saves a document through the configured saver: download <path> [filename].
func (a *App) Download(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("%w: download <path> [filename]", ErrUsage)
	}
	filename := ""
	if len(args) > 1 {
		filename = args[1]
	}

	location, err := a.api.DownloadFile(ctx, args[0], filename)
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "Saved to %s\n", location)
	return nil
}

// Fetch issues several GETs concurrently and prints the answers in the
// order the paths were given. Every path is attempted; the first failure
// is returned.
func (a *App) Fetch(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("%w: fetch <path> [path ...]", ErrUsage)
	}

	resps := make([]*client.Response, len(args))
	errs := make([]error, len(args))

	var g errgroup.Group
	g.SetLimit(fetchConcurrency)
	for i, target := range args {
		g.Go(func() error {
			resps[i], errs[i] = a.api.Get(ctx, target)
			return nil
		})
	}
	_ = g.Wait()

	for i, target := range args {
		fmt.Fprintf(a.out, "== %s ==\n", target)
		if errs[i] != nil {
			fmt.Fprintf(a.out, "error: %v\n", errs[i])
			continue
		}
		printResponse(a.out, resps[i])
	}
	return errors.Join(errs...)
}

func parseQuery(pairs []string) (url.Values, error) {
	q := url.Values{}
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("%w: query parameter %q is not key=value", ErrUsage, p)
		}
		q.Add(k, v)
	}
	return q, nil
}

func printResponse(w io.Writer, resp *client.Response) {
	fmt.Fprintln(w, resp.Status)
	if len(resp.Body) == 0 {
		return
	}

	var buf bytes.Buffer
	if err := json.Indent(&buf, resp.Body, "", "  "); err == nil {
		fmt.Fprintln(w, buf.String())
		return
	}
	fmt.Fprintln(w, string(resp.Body))
}
