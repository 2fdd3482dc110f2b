package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/dmitrijs2005/bizportal/internal/client/client"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface defines the minimal command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	isLoggedIn() bool
	Login(ctx context.Context) error
	Logout(ctx context.Context) error
	WhoAmI(ctx context.Context) error
	Profile(ctx context.Context) error
	Request(ctx context.Context, method string, args []string) error
	Upload(ctx context.Context, args []string) error
	Download(ctx context.Context, args []string) error
	Fetch(ctx context.Context, args []string) error
}

// runREPL reads commands line by line from reader and dispatches them to a.
// The loop exits on EOF or when the user types "exit" or "quit".
//
//	Not logged in:
//	  help, login, exit | quit
//
//	Logged in:
//	  whoami                          show the cached profile
//	  profile                         reload the profile from the server
//	  get <path> [k=v ...]            GET with query parameters
//	  post|put|delete <path> [json]   send a JSON body, prompted when omitted
//	  upload <path> <file> [field]    multipart upload
//	  download <path> [filename]      save a document
//	  fetch <path> [path ...]         several GETs at once
//	  logout, exit | quit
//
// Handler errors are reported and the loop continues.
func runREPL(ctx context.Context, a execIface, statusFn func() string, reader *bufio.Reader) {
	for {
		printlnFn(fmt.Sprintf("portal> %s > ", statusFn()))
		line, err := reader.ReadString('\n')
		if err != nil && (!errors.Is(err, io.EOF) || line == "") {
			return
		}
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		switch cmd {
		case "help":
			if a.isLoggedIn() {
				printlnFn("Available commands: whoami, profile, get, post, put, delete, upload, download, fetch, logout, exit")
			} else {
				printlnFn("Available commands: login, exit")
			}

		case "login":
			report(a.Login(ctx))

		case "logout":
			report(a.Logout(ctx))

		case "whoami":
			report(a.WhoAmI(ctx))

		case "profile":
			report(a.Profile(ctx))

		case "get":
			report(a.Request(ctx, http.MethodGet, args))

		case "post":
			report(a.Request(ctx, http.MethodPost, args))

		case "put":
			report(a.Request(ctx, http.MethodPut, args))

		case "delete":
			report(a.Request(ctx, http.MethodDelete, args))

		case "upload":
			report(a.Upload(ctx, args))

		case "download":
			report(a.Download(ctx, args))

		case "fetch":
			report(a.Fetch(ctx, args))

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			printlnFn("Unknown command:", cmd)
		}
	}
}

func report(err error) {
	switch {
	case err == nil:
	case errors.Is(err, client.ErrSessionExpired), errors.Is(err, client.ErrTokenExpired):
		printlnFn("Your session has expired, please log in again.")
	case errors.Is(err, client.ErrNoAccessToken):
		printlnFn("You are not logged in.")
	case errors.Is(err, client.ErrUnavailable):
		printlnFn("The portal is unavailable, try again later.")
	default:
		printlnFn("Error:", err)
	}
}
