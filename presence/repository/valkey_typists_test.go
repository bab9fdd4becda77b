package repository

import (
	"context"
	"testing"
	"time"

	"github.com/AzielCF/az-typing/infrastructure/valkey"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newValkeyStore(t *testing.T) *ValkeyTypistStore {
	t.Helper()
	// unique prefix per run so parallel runs don't see each other
	vk, err := valkey.NewClient(valkey.Config{
		Address:        "localhost:6379",
		KeyPrefix:      "aztyping-test-" + uuid.NewString(),
		ConnectTimeout: 300 * time.Millisecond,
	})
	if err != nil {
		t.Skip("No valkey")
	}
	t.Cleanup(vk.Close)
	return NewValkeyTypistStore(vk, 30*time.Second)
}

func TestValkeyTypistStore_AddIsIdempotentAndSorted(t *testing.T) {
	s := newValkeyStore(t)
	ctx := context.Background()
	key := streamKey(t, 5, "bug")

	for _, id := range []int64{9, 7, 7, 12} {
		require.NoError(t, s.AddTypist(ctx, key, id))
	}

	got, err := s.GetGroupTypists(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, []int64{7, 9, 12}, got)
}

func TestValkeyTypistStore_Remove(t *testing.T) {
	s := newValkeyStore(t)
	ctx := context.Background()
	key := pmKey(t, 1, 2)

	removed, err := s.RemoveTypist(ctx, key, 9)
	require.NoError(t, err)
	assert.False(t, removed)

	require.NoError(t, s.AddTypist(ctx, key, 9))
	removed, err = s.RemoveTypist(ctx, key, 9)
	require.NoError(t, err)
	assert.True(t, removed)

	got, err := s.GetGroupTypists(ctx, key)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestValkeyTypistStore_GetAllAndConversations(t *testing.T) {
	s := newValkeyStore(t)
	ctx := context.Background()
	a := pmKey(t, 1, 2)
	b := streamKey(t, 5, "bug")

	require.NoError(t, s.AddTypist(ctx, a, 4))
	require.NoError(t, s.AddTypist(ctx, b, 4))
	require.NoError(t, s.AddTypist(ctx, b, 2))

	all, err := s.GetAllTypists(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int64{2, 4}, all)

	convs, err := s.Conversations(ctx)
	require.NoError(t, err)
	require.Len(t, convs, 2)
	assert.Equal(t, a, convs[0])
	assert.Equal(t, b, convs[1])
}
