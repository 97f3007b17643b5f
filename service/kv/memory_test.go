package kv

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemory_GetMissingKey(t *testing.T) {
	m := NewMemory()

	value, err := m.Get(context.Background(), "absent")
	require.NoError(t, err)
	assert.Nil(t, value)
}

func TestMemory_SetGetDelete(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	require.NoError(t, m.Set(ctx, "k", []byte("v1")))

	value, err := m.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v1"), value)

	require.NoError(t, m.Set(ctx, "k", []byte("v2")))
	value, err = m.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v2"), value)

	require.NoError(t, m.Delete(ctx, "k"))
	value, err = m.Get(ctx, "k")
	require.NoError(t, err)
	assert.Nil(t, value)

	// Deleting an absent key is not an error.
	require.NoError(t, m.Delete(ctx, "k"))
}

func TestMemory_GetReturnsCopy(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	require.NoError(t, m.Set(ctx, "k", []byte("abc")))

	value, _ := m.Get(ctx, "k")
	value[0] = 'x'

	again, _ := m.Get(ctx, "k")
	assert.Equal(t, []byte("abc"), again)
}
