package store_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vytor/quizflash/internal/store"
)

func TestMemory_GetSetRemove(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemory()

	_, err := s.Get(ctx, "missing")
	assert.ErrorIs(t, err, store.ErrNotFound)

	require.NoError(t, s.Set(ctx, "k", "v1"))
	require.NoError(t, s.Set(ctx, "k", "v2"))
	v, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v2", v)

	require.NoError(t, s.Remove(ctx, "k"))
	require.NoError(t, s.Remove(ctx, "k"), "removing an absent key is not an error")
	_, err = s.Get(ctx, "k")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestSetMany(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemory()

	require.NoError(t, store.SetMany(ctx, s, map[string]string{"a": "1", "b": "2"}))
	assert.Equal(t, 2, s.Len())
}

func TestSetMany_FallsBackToSet(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	var s store.Store = struct{ store.Store }{mem}

	require.NoError(t, store.SetMany(ctx, s, map[string]string{"a": "1", "b": "2"}))
	v, err := mem.Get(ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, "2", v)
}
