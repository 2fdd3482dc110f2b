package metadata

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/bizportal/internal/cryptox"
)

// saltKey holds the Argon2 salt in clear next to the sealed values.
const saltKey = "__sealing_salt"

// SealedRepository encrypts every value before handing it to the wrapped
// repository. Keys stay readable; values are bound to their key.
type SealedRepository struct {
	inner Repository
	salt  []byte
	key   []byte
}

// NewSealedRepository derives the sealing key from passphrase, creating and
// persisting a salt in inner on first use.
func NewSealedRepository(ctx context.Context, inner Repository, passphrase []byte) (*SealedRepository, error) {
	salt, err := inner.Get(ctx, saltKey)
	if err != nil {
		return nil, err
	}
	if salt == nil {
		if salt, err = cryptox.NewSalt(); err != nil {
			return nil, err
		}
		if err := inner.Set(ctx, saltKey, salt); err != nil {
			return nil, err
		}
	}

	return &SealedRepository{inner: inner, salt: salt, key: cryptox.DeriveKey(passphrase, salt)}, nil
}

func (r *SealedRepository) Get(ctx context.Context, key string) ([]byte, error) {
	raw, err := r.inner.Get(ctx, key)
	if err != nil || raw == nil {
		return nil, err
	}

	plain, err := cryptox.Open(r.key, raw, []byte(key))
	if err != nil {
		return nil, fmt.Errorf("failed to open metadata[%s]: %w", key, err)
	}
	return plain, nil
}

func (r *SealedRepository) Set(ctx context.Context, key string, value []byte) error {
	sealed, err := cryptox.Seal(r.key, value, []byte(key))
	if err != nil {
		return fmt.Errorf("failed to seal metadata[%s]: %w", key, err)
	}
	return r.inner.Set(ctx, key, sealed)
}

func (r *SealedRepository) SetAll(ctx context.Context, values map[string][]byte) error {
	sealed := make(map[string][]byte, len(values))
	for k, v := range values {
		s, err := cryptox.Seal(r.key, v, []byte(k))
		if err != nil {
			return fmt.Errorf("failed to seal metadata[%s]: %w", k, err)
		}
		sealed[k] = s
	}
	return r.inner.SetAll(ctx, sealed)
}

func (r *SealedRepository) Delete(ctx context.Context, keys ...string) error {
	return r.inner.Delete(ctx, keys...)
}

func (r *SealedRepository) List(ctx context.Context) (map[string][]byte, error) {
	all, err := r.inner.List(ctx)
	if err != nil {
		return nil, err
	}

	out := make(map[string][]byte, len(all))
	for k, raw := range all {
		if k == saltKey {
			continue
		}
		plain, err := cryptox.Open(r.key, raw, []byte(k))
		if err != nil {
			return nil, fmt.Errorf("failed to open metadata[%s]: %w", k, err)
		}
		out[k] = plain
	}
	return out, nil
}

// Clear drops every value but keeps the salt so the derived key stays valid.
func (r *SealedRepository) Clear(ctx context.Context) error {
	if err := r.inner.Clear(ctx); err != nil {
		return err
	}
	return r.inner.Set(ctx, saltKey, r.salt)
}
