// Package metadata stores small key/value records on the client: the
// session tokens and the cached user profile live here.
//
// All implementations return (nil, nil) from Get for a missing key.
package metadata

import (
	"context"
)

type Repository interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	// SetAll writes every pair or none of them.
	SetAll(ctx context.Context, values map[string][]byte) error
	// Delete removes the given keys; missing keys are not an error.
	Delete(ctx context.Context, keys ...string) error
	List(ctx context.Context) (map[string][]byte, error)
	Clear(ctx context.Context) error
}
