package kv

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_SetGetRemove(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	_, err := store.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, store.Set(ctx, "k", []byte(`[1]`)))
	v, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, `[1]`, string(v))

	require.NoError(t, store.Remove(ctx, "k"))
	_, err = store.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrNotFound)

	// removing twice is fine
	assert.NoError(t, store.Remove(ctx, "k"))
}

func TestMemoryStore_CopiesValues(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	buf := []byte("abc")
	require.NoError(t, store.Set(ctx, "k", buf))
	buf[0] = 'x'

	v, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "abc", string(v))

	v[1] = 'y'
	again, _ := store.Get(ctx, "k")
	assert.Equal(t, "abc", string(again))
	assert.Equal(t, 1, store.Len())
}
