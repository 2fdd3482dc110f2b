package client

import (
	"context"

	"github.com/dmitrijs2005/bizportal/internal/client/session"
)

type Client interface {
	Get(ctx context.Context, path string, opts ...RequestOption) (*Response, error)
	Post(ctx context.Context, path string, data any, opts ...RequestOption) (*Response, error)
	Put(ctx context.Context, path string, data any, opts ...RequestOption) (*Response, error)
	Delete(ctx context.Context, path string, data any, opts ...RequestOption) (*Response, error)

	DownloadFile(ctx context.Context, path, filename string) (string, error)

	SetAuth(ctx context.Context, token, refreshToken string, user *session.UserProfile) error
	Logout(ctx context.Context) error
	IsAuthenticated(ctx context.Context) bool
	GetUser(ctx context.Context) *session.UserProfile
}

// CredentialStore is the persistence the client needs; *session.Store
// implements it.
type CredentialStore interface {
	AccessToken(ctx context.Context) (string, error)
	RefreshToken(ctx context.Context) (string, error)
	Save(ctx context.Context, access, refresh string, user *session.UserProfile) error
	UpdateTokens(ctx context.Context, access, refresh string) error
	User(ctx context.Context) *session.UserProfile
	IsAuthenticated(ctx context.Context) bool
	Logout(ctx context.Context) error
}

var (
	_ Client          = (*HTTPClient)(nil)
	_ CredentialStore = (*session.Store)(nil)
)
