package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStorePutGet(t *testing.T) {
	s := NewMemoryStore()
	defer s.Close()
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "/pixveil/identities/alice", `{"username":"alice"}`))

	got, err := s.Get(ctx, "/pixveil/identities/alice")
	require.NoError(t, err)
	assert.Equal(t, `{"username":"alice"}`, got)
}

func TestMemoryStoreGetMissing(t *testing.T) {
	s := NewMemoryStore()
	defer s.Close()

	got, err := s.Get(context.Background(), "/pixveil/identities/nobody")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestMemoryStoreDelete(t *testing.T) {
	s := NewMemoryStore()
	defer s.Close()
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "/pixveil/requests/r1", "v"))
	require.NoError(t, s.Delete(ctx, "/pixveil/requests/r1"))

	got, err := s.Get(ctx, "/pixveil/requests/r1")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestMemoryStoreGetPrefix(t *testing.T) {
	s := NewMemoryStore()
	defer s.Close()
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, GrantPrefix+"g1", "a"))
	require.NoError(t, s.Put(ctx, GrantPrefix+"g2", "b"))
	require.NoError(t, s.Put(ctx, RequestPrefix+"r1", "c"))

	grants, err := s.GetPrefix(ctx, GrantPrefix)
	require.NoError(t, err)
	assert.Len(t, grants, 2)
	assert.Equal(t, "a", grants[GrantPrefix+"g1"])
	assert.Equal(t, "b", grants[GrantPrefix+"g2"])
}

func TestKVCacheExpiry(t *testing.T) {
	cache := NewKVCache(20 * time.Millisecond)
	defer cache.Stop()

	cache.Set("k", "v")

	got, ok := cache.Get("k")
	require.True(t, ok)
	assert.Equal(t, "v", got)

	time.Sleep(30 * time.Millisecond)

	_, ok = cache.Get("k")
	assert.False(t, ok)
}

func TestKVCacheDeletePrefix(t *testing.T) {
	cache := NewKVCache(time.Minute)
	defer cache.Stop()

	cache.Set("/pixveil/grants/g1", "a")
	cache.Set("/pixveil/grants/g2", "b")
	cache.Set("/pixveil/requests/r1", "c")

	cache.DeletePrefix("/pixveil/grants/")

	_, ok := cache.Get("/pixveil/grants/g1")
	assert.False(t, ok)
	_, ok = cache.Get("/pixveil/requests/r1")
	assert.True(t, ok)
}
