// Package services contains application services for the portal client.
// This file defines the authentication service: login against the portal,
// logout, and reading or updating the cached user profile.
package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/bizportal/internal/client/client"
	"github.com/dmitrijs2005/bizportal/internal/client/session"
	"github.com/dmitrijs2005/bizportal/internal/logging"
)

var ErrInvalidLoginResponse = errors.New("login response has no token")

// AuthService defines authentication operations for the CLI.
//
// Contract:
//   - Login: exchange credentials for a session and store it.
//   - Logout: end the session locally and return to the login page.
//   - CurrentUser: the cached profile, or session.ErrNoSession.
//   - RefreshProfile: fetch the profile from the server and cache it.
//   - UpdateProfile: send profile changes and cache the server's answer.
//
// All methods must honor context cancellation/timeouts.
type AuthService interface {
	Login(ctx context.Context, email string, password []byte) (*session.UserProfile, error)
	Logout(ctx context.Context) error
	CurrentUser(ctx context.Context) (*session.UserProfile, error)
	RefreshProfile(ctx context.Context) (*session.UserProfile, error)
	UpdateProfile(ctx context.Context, fields map[string]any) (*session.UserProfile, error)
}

// ProfileStore caches the user profile; *session.Store implements it.
type ProfileStore interface {
	UpdateUser(ctx context.Context, user *session.UserProfile) error
}

// Paths are the backend endpoints the service calls.
type Paths struct {
	Login   string
	Profile string
}

var DefaultPaths = Paths{Login: "/auth/login", Profile: "/users/profile"}

type authService struct {
	client   client.Client
	profiles ProfileStore
	paths    Paths
	log      logging.Logger
}

// NewAuthService constructs an AuthService bound to the given API client.
func NewAuthService(c client.Client, profiles ProfileStore, paths Paths, log logging.Logger) AuthService {
	return &authService{client: c, profiles: profiles, paths: paths, log: logging.OrNop(log)}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token        string               `json:"token"`
	RefreshToken string               `json:"refreshToken"`
	User         *session.UserProfile `json:"user"`
}

// Login posts the credentials without a Bearer token, so a wrong password
// comes back as a 401 HTTPError instead of starting a refresh.
func (a *authService) Login(ctx context.Context, email string, password []byte) (*session.UserProfile, error) {
	resp, err := a.client.Post(ctx, a.paths.Login,
		loginRequest{Email: email, Password: string(password)},
		client.WithoutAuth())
	if err != nil {
		return nil, fmt.Errorf("login error: %w", err)
	}

	var out loginResponse
	if err := resp.Decode(&out); err != nil {
		return nil, fmt.Errorf("decode login response: %w", err)
	}
	if out.Token == "" {
		return nil, ErrInvalidLoginResponse
	}

	if err := a.client.SetAuth(ctx, out.Token, out.RefreshToken, out.User); err != nil {
		return nil, fmt.Errorf("store session: %w", err)
	}

	a.log.Info(ctx, "logged in", "user_id", out.User.ID, "role", out.User.Role)
	return out.User, nil
}

func (a *authService) Logout(ctx context.Context) error {
	return a.client.Logout(ctx)
}

func (a *authService) CurrentUser(ctx context.Context) (*session.UserProfile, error) {
	u := a.client.GetUser(ctx)
	if u == nil {
		return nil, session.ErrNoSession
	}
	return u, nil
}

func (a *authService) RefreshProfile(ctx context.Context) (*session.UserProfile, error) {
	resp, err := a.client.Get(ctx, a.paths.Profile)
	if err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}
	return a.cacheProfile(ctx, resp)
}

// UpdateProfile replaces the cached profile only when the server's answer
// carries a role; otherwise the cached profile is kept.
func (a *authService) UpdateProfile(ctx context.Context, fields map[string]any) (*session.UserProfile, error) {
	resp, err := a.client.Put(ctx, a.paths.Profile, fields)
	if err != nil {
		return nil, fmt.Errorf("update profile: %w", err)
	}
	return a.cacheProfile(ctx, resp)
}

func (a *authService) cacheProfile(ctx context.Context, resp *client.Response) (*session.UserProfile, error) {
	var u session.UserProfile
	if err := resp.Decode(&u); err != nil {
		return nil, fmt.Errorf("decode profile: %w", err)
	}
	if !u.Valid() {
		a.log.Warn(ctx, "server returned a profile without role, keeping cached one", "user_id", u.ID)
		return nil, session.ErrInvalidProfile
	}
	if err := a.profiles.UpdateUser(ctx, &u); err != nil {
		return nil, err
	}
	return &u, nil
}
