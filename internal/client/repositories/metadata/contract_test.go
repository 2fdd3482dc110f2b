package metadata

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runRepositoryContract checks the behaviour every Repository must share.
func runRepositoryContract(t *testing.T, newRepo func(t *testing.T) Repository) {
	t.Helper()
	ctx := context.Background()

	t.Run("set then get", func(t *testing.T) {
		r := newRepo(t)
		require.NoError(t, r.Set(ctx, "token", []byte("A1")))

		v, err := r.Get(ctx, "token")
		require.NoError(t, err)
		assert.Equal(t, []byte("A1"), v)
	})

	t.Run("missing key returns nil nil", func(t *testing.T) {
		r := newRepo(t)
		v, err := r.Get(ctx, "absent")
		require.NoError(t, err)
		assert.Nil(t, v)
	})

	t.Run("set overwrites", func(t *testing.T) {
		r := newRepo(t)
		require.NoError(t, r.Set(ctx, "k", []byte("old")))
		require.NoError(t, r.Set(ctx, "k", []byte("new")))

		v, err := r.Get(ctx, "k")
		require.NoError(t, err)
		assert.Equal(t, []byte("new"), v)
	})

	t.Run("set all writes every pair", func(t *testing.T) {
		r := newRepo(t)
		require.NoError(t, r.SetAll(ctx, map[string][]byte{
			"token":        []byte("A"),
			"refreshToken": []byte("R"),
			"user":         []byte(`{"role":"client"}`),
		}))

		m, err := r.List(ctx)
		require.NoError(t, err)
		assert.Equal(t, []byte("A"), m["token"])
		assert.Equal(t, []byte("R"), m["refreshToken"])
		assert.Equal(t, []byte(`{"role":"client"}`), m["user"])
	})

	t.Run("delete removes only named keys and is idempotent", func(t *testing.T) {
		r := newRepo(t)
		require.NoError(t, r.Set(ctx, "a", []byte{1}))
		require.NoError(t, r.Set(ctx, "b", []byte{2}))
		require.NoError(t, r.Set(ctx, "c", []byte{3}))

		require.NoError(t, r.Delete(ctx, "a", "b"))
		require.NoError(t, r.Delete(ctx, "a"))
		require.NoError(t, r.Delete(ctx))

		v, err := r.Get(ctx, "a")
		require.NoError(t, err)
		assert.Nil(t, v)

		v, err = r.Get(ctx, "c")
		require.NoError(t, err)
		assert.Equal(t, []byte{3}, v)
	})

	t.Run("clear removes everything", func(t *testing.T) {
		r := newRepo(t)
		require.NoError(t, r.Set(ctx, "a", []byte{1}))
		require.NoError(t, r.Set(ctx, "b", []byte{2}))
		require.NoError(t, r.Clear(ctx))

		m, err := r.List(ctx)
		require.NoError(t, err)
		assert.Empty(t, m)
	})
}
