package presence

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pixveil/pixveil/internal/logging"
	"github.com/pixveil/pixveil/internal/store"
)

func newTestRegistry(t *testing.T, ttl time.Duration) *Registry {
	t.Helper()
	return NewRegistry(store.NewMemoryStore(), ttl, logging.Global())
}

func TestRegisterAndLookup(t *testing.T) {
	r := newTestRegistry(t, 10*time.Second)

	recordID, err := r.Register(context.Background(), "alice", "10.0.0.1:8000", nil)
	require.NoError(t, err)
	assert.NotEmpty(t, recordID)

	id, ok := r.Lookup("alice")
	require.True(t, ok)
	assert.Equal(t, "alice", id.Username)
	assert.Equal(t, "10.0.0.1:8000", id.Addr)
	assert.Equal(t, recordID, id.RecordID)
}

func TestRegisterDuplicateUsername(t *testing.T) {
	r := newTestRegistry(t, 10*time.Second)
	ctx := context.Background()

	_, err := r.Register(ctx, "alice", "10.0.0.1:8000", nil)
	require.NoError(t, err)

	_, err = r.Register(ctx, "alice", "10.0.0.2:8000", nil)
	assert.ErrorIs(t, err, ErrAlreadyExists)
}

func TestRegisterPersistsAcrossReload(t *testing.T) {
	s := store.NewMemoryStore()
	ctx := context.Background()

	r1 := NewRegistry(s, 10*time.Second, logging.Global())
	_, err := r1.Register(ctx, "alice", "10.0.0.1:8000", []string{"cGhvdG8="})
	require.NoError(t, err)

	// Fresh registry over the same store, as after a restart
	r2 := NewRegistry(s, 10*time.Second, logging.Global())
	require.NoError(t, r2.Load(ctx))

	id, ok := r2.Lookup("alice")
	require.True(t, ok)
	assert.Equal(t, []string{"cGhvdG8="}, id.SampleImages)

	// Presence does not survive the restart
	assert.Empty(t, r2.Online())
}

func TestHeartbeatUnregisteredUser(t *testing.T) {
	r := newTestRegistry(t, 10*time.Second)

	lastSeen := r.Heartbeat("ghost", "10.0.0.9:8000")
	assert.False(t, lastSeen.IsZero())

	online := r.Online()
	require.Len(t, online, 1)
	assert.Equal(t, "ghost", online[0].Username)
	assert.False(t, online[0].Registered)
}

func TestOnlineTTLBoundary(t *testing.T) {
	const ttl = 10 * time.Second

	base := time.Now()
	r := newTestRegistry(t, ttl)
	r.now = func() time.Time { return base }

	r.Heartbeat("alice", "10.0.0.1:8000")

	// Just inside the window
	r.now = func() time.Time { return base.Add(ttl - time.Millisecond) }
	assert.Len(t, r.Online(), 1)

	// Just past the window
	r.now = func() time.Time { return base.Add(ttl + time.Millisecond) }
	assert.Empty(t, r.Online())
}

func TestOnlineDropsStaleEntries(t *testing.T) {
	base := time.Now()
	r := newTestRegistry(t, 10*time.Second)
	r.now = func() time.Time { return base }

	r.Heartbeat("alice", "10.0.0.1:8000")
	r.Heartbeat("bob", "10.0.0.2:8000")

	r.now = func() time.Time { return base.Add(5 * time.Second) }
	r.Heartbeat("bob", "10.0.0.2:8000")

	r.now = func() time.Time { return base.Add(12 * time.Second) }
	online := r.Online()
	require.Len(t, online, 1)
	assert.Equal(t, "bob", online[0].Username)

	// alice was purged from the raw table too
	assert.Len(t, r.Snapshot(), 1)
}

func TestOnlineMarksRegisteredUsers(t *testing.T) {
	r := newTestRegistry(t, 10*time.Second)

	_, err := r.Register(context.Background(), "alice", "10.0.0.1:8000", []string{"aW1n"})
	require.NoError(t, err)
	r.Heartbeat("ghost", "10.0.0.9:8000")

	online := r.Online()
	require.Len(t, online, 2)

	// Sorted by username
	assert.Equal(t, "alice", online[0].Username)
	assert.True(t, online[0].Registered)
	assert.Equal(t, []string{"aW1n"}, online[0].SampleImages)
	assert.False(t, online[1].Registered)
}

func TestRegisteredSorted(t *testing.T) {
	r := newTestRegistry(t, 10*time.Second)
	ctx := context.Background()

	for _, name := range []string{"charlie", "alice", "bob"} {
		_, err := r.Register(ctx, name, "10.0.0.1:8000", nil)
		require.NoError(t, err)
	}

	ids := r.Registered()
	require.Len(t, ids, 3)
	assert.Equal(t, "alice", ids[0].Username)
	assert.Equal(t, "bob", ids[1].Username)
	assert.Equal(t, "charlie", ids[2].Username)
}
