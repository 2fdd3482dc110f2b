// Package session persists the portal credentials: the access token, the
// refresh token and the cached user profile.
//
// The access token is mirrored into the auth cookie whenever it changes so
// that server-side route guards see the same session as the client.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/bizportal/internal/client/platform"
	"github.com/dmitrijs2005/bizportal/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/bizportal/internal/logging"
	"github.com/golang-jwt/jwt/v5"
)

const (
	KeyAccessToken  = "token"
	KeyRefreshToken = "refreshToken"
	KeyUser         = "user"

	DefaultLoginPath = "/login"
)

var (
	ErrInvalidProfile = errors.New("user profile has no role")
	ErrNoExpiry       = errors.New("access token has no exp claim")
	ErrNoSession      = errors.New("no active session")
)

// Platform is what the store needs from its host environment.
type Platform interface {
	platform.Navigator
	platform.CookieSetter
}

type Store struct {
	repo      metadata.Repository
	platform  Platform
	log       logging.Logger
	loginPath string
	namespace string
	now       func() time.Time
}

type Option func(*Store)

func WithLogger(log logging.Logger) Option {
	return func(s *Store) { s.log = log }
}

func WithLoginPath(p string) Option {
	return func(s *Store) { s.loginPath = p }
}

// WithNamespace prefixes every key, so several portals can share one
// metadata repository.
func WithNamespace(ns string) Option {
	return func(s *Store) { s.namespace = ns }
}

func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func NewStore(repo metadata.Repository, p Platform, opts ...Option) *Store {
	s := &Store{
		repo:      repo,
		platform:  p,
		log:       logging.Nop(),
		loginPath: DefaultLoginPath,
		now:       time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Store) key(name string) string {
	if s.namespace == "" {
		return name
	}
	return s.namespace + ":" + name
}

func (s *Store) getString(ctx context.Context, name string) (string, error) {
	v, err := s.repo.Get(ctx, s.key(name))
	if err != nil {
		return "", fmt.Errorf("read %s: %w", name, err)
	}
	return string(v), nil
}

// Load returns the stored session, or nil when there is no access token or
// no usable profile.
func (s *Store) Load(ctx context.Context) (*Session, error) {
	access, err := s.AccessToken(ctx)
	if err != nil {
		return nil, err
	}
	if access == "" {
		return nil, nil
	}

	user := s.User(ctx)
	if user == nil {
		return nil, nil
	}

	refresh, err := s.RefreshToken(ctx)
	if err != nil {
		return nil, err
	}

	sess := &Session{AccessToken: access, RefreshToken: refresh, User: user}
	if exp, err := TokenExpiry(access); err == nil {
		sess.ExpiresAt = exp
	}
	return sess, nil
}

func (s *Store) AccessToken(ctx context.Context) (string, error) {
	return s.getString(ctx, KeyAccessToken)
}

func (s *Store) RefreshToken(ctx context.Context) (string, error) {
	return s.getString(ctx, KeyRefreshToken)
}

// User returns the cached profile. A profile that cannot be decoded or has
// no role is deleted and nil is returned; tokens are left untouched.
func (s *Store) User(ctx context.Context) *UserProfile {
	raw, err := s.repo.Get(ctx, s.key(KeyUser))
	if err != nil {
		s.log.Error(ctx, "failed to read user profile", "error", err)
		return nil
	}
	if len(raw) == 0 {
		return nil
	}

	var u UserProfile
	if err := json.Unmarshal(raw, &u); err != nil {
		s.log.Warn(ctx, "discarding corrupted user profile", "error", err)
		s.purgeUser(ctx)
		return nil
	}
	if !u.Valid() {
		s.log.Warn(ctx, "discarding user profile without role", "user_id", u.ID)
		s.purgeUser(ctx)
		return nil
	}
	return &u
}

func (s *Store) purgeUser(ctx context.Context) {
	if err := s.repo.Delete(ctx, s.key(KeyUser)); err != nil {
		s.log.Error(ctx, "failed to delete user profile", "error", err)
	}
}

// TokenExpiry reads the exp claim of a JWT without verifying its signature.
func TokenExpiry(token string) (time.Time, error) {
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return time.Time{}, fmt.Errorf("decode access token: %w", err)
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, ErrNoExpiry
	}
	return claims.ExpiresAt.Time, nil
}

// IsAccessTokenValid reports whether the stored access token is present and
// not expired. A token that cannot be decoded ends the session.
func (s *Store) IsAccessTokenValid(ctx context.Context) bool {
	token, err := s.AccessToken(ctx)
	if err != nil || token == "" {
		return false
	}

	exp, err := TokenExpiry(token)
	switch {
	case errors.Is(err, ErrNoExpiry):
		return false
	case err != nil:
		s.log.Warn(ctx, "access token is malformed, logging out", "error", err)
		if lerr := s.Logout(ctx); lerr != nil {
			s.log.Error(ctx, "logout failed", "error", lerr)
		}
		return false
	}
	return s.now().Before(exp)
}

func (s *Store) IsAuthenticated(ctx context.Context) bool {
	return s.IsAccessTokenValid(ctx)
}

// Save stores a freshly issued session. A profile without a role is
// rejected and nothing is written.
func (s *Store) Save(ctx context.Context, access, refresh string, user *UserProfile) error {
	if !user.Valid() {
		s.log.Error(ctx, "refusing to save session", "error", ErrInvalidProfile)
		return ErrInvalidProfile
	}

	raw, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("encode user profile: %w", err)
	}

	values := map[string][]byte{
		s.key(KeyAccessToken): []byte(access),
		s.key(KeyUser):        raw,
	}
	if refresh != "" {
		values[s.key(KeyRefreshToken)] = []byte(refresh)
	}
	if err := s.repo.SetAll(ctx, values); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	if refresh == "" {
		if err := s.repo.Delete(ctx, s.key(KeyRefreshToken)); err != nil {
			return fmt.Errorf("save session: %w", err)
		}
	}

	s.mirrorCookie(ctx, access)
	return nil
}

// UpdateTokens replaces the access token and, when refresh is not empty,
// the refresh token. The profile is left as is.
func (s *Store) UpdateTokens(ctx context.Context, access, refresh string) error {
	values := map[string][]byte{s.key(KeyAccessToken): []byte(access)}
	if refresh != "" {
		values[s.key(KeyRefreshToken)] = []byte(refresh)
	}
	if err := s.repo.SetAll(ctx, values); err != nil {
		return fmt.Errorf("update tokens: %w", err)
	}

	s.mirrorCookie(ctx, access)
	return nil
}

func (s *Store) UpdateUser(ctx context.Context, user *UserProfile) error {
	if !user.Valid() {
		s.log.Error(ctx, "refusing to update user profile", "error", ErrInvalidProfile)
		return ErrInvalidProfile
	}

	raw, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("encode user profile: %w", err)
	}
	if err := s.repo.Set(ctx, s.key(KeyUser), raw); err != nil {
		return fmt.Errorf("update user profile: %w", err)
	}
	return nil
}

// Logout removes every credential, clears the auth cookie and sends the
// user to the login page. Navigation happens even if storage fails.
func (s *Store) Logout(ctx context.Context) error {
	var errs []error

	if err := s.repo.Delete(ctx, s.key(KeyAccessToken), s.key(KeyRefreshToken), s.key(KeyUser)); err != nil {
		errs = append(errs, fmt.Errorf("delete credentials: %w", err))
	}
	if err := s.platform.ClearAuthCookie(); err != nil {
		errs = append(errs, fmt.Errorf("clear auth cookie: %w", err))
	}
	if err := s.platform.Navigate(ctx, s.loginPath); err != nil {
		errs = append(errs, fmt.Errorf("navigate to login: %w", err))
	}

	s.log.Info(ctx, "session ended")
	return errors.Join(errs...)
}

func (s *Store) mirrorCookie(ctx context.Context, access string) {
	if err := s.platform.SetAuthCookie(access); err != nil {
		s.log.Warn(ctx, "failed to set auth cookie", "error", err)
	}
}
