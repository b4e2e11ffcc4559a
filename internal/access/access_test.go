package access

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pixveil/pixveil/internal/logging"
	"github.com/pixveil/pixveil/internal/store"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	return NewManager(store.NewMemoryStore(), logging.Global())
}

func TestRequestApproveView(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	requestID, err := m.CreateRequest(ctx, "bob", "alice", "sunset.png", "please")
	require.NoError(t, err)

	pending := m.Pending("alice")
	require.Len(t, pending, 1)
	assert.Equal(t, "bob", pending[0].Requester)
	assert.Equal(t, "sunset.png", pending[0].PhotoID)

	grant, err := m.Approve(ctx, "alice", requestID, 3, 0)
	require.NoError(t, err)
	assert.Equal(t, 3, grant.MaxViews)
	assert.Equal(t, 0, grant.ViewsUsed)
	assert.Nil(t, grant.ExpiresAt)

	// Approval consumed the request
	assert.Empty(t, m.Pending("alice"))

	// Three views count down 2, 1, 0; the fourth is refused
	for want := 2; want >= 0; want-- {
		result, err := m.Consume(ctx, "bob", requestID)
		require.NoError(t, err)
		assert.True(t, result.Granted)
		assert.Equal(t, want, result.ViewsRemaining)
	}

	result, err := m.Consume(ctx, "bob", requestID)
	require.NoError(t, err)
	assert.False(t, result.Granted)
	assert.Equal(t, ReasonLimitExceeded, result.Reason)
}

func TestDenyRemovesRequest(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	requestID, err := m.CreateRequest(ctx, "charlie", "alice", "beach.png", "")
	require.NoError(t, err)

	require.NoError(t, m.Deny(ctx, "alice", requestID))
	assert.Empty(t, m.Pending("alice"))

	// A denied request never becomes viewable
	_, err = m.Consume(ctx, "charlie", requestID)
	assert.ErrorIs(t, err, ErrNotFound)

	// And cannot be approved after the fact
	_, err = m.Approve(ctx, "alice", requestID, 3, 0)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestApproveWrongOwner(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	requestID, err := m.CreateRequest(ctx, "bob", "alice", "sunset.png", "")
	require.NoError(t, err)

	_, err = m.Approve(ctx, "mallory", requestID, 3, 0)
	assert.ErrorIs(t, err, ErrNotFound)

	assert.ErrorIs(t, m.Deny(ctx, "mallory", requestID), ErrNotFound)

	// The request is still pending for the real owner
	assert.Len(t, m.Pending("alice"), 1)
}

func TestApproveInvalidMaxViews(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	requestID, err := m.CreateRequest(ctx, "bob", "alice", "sunset.png", "")
	require.NoError(t, err)

	_, err = m.Approve(ctx, "alice", requestID, 0, 0)
	assert.ErrorIs(t, err, ErrInvalidMaxViews)
}

func TestConsumeWrongRequester(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	requestID, err := m.CreateRequest(ctx, "bob", "alice", "sunset.png", "")
	require.NoError(t, err)
	_, err = m.Approve(ctx, "alice", requestID, 3, 0)
	require.NoError(t, err)

	_, err = m.Consume(ctx, "mallory", requestID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestConsumeExpiredGrant(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	base := time.Now()
	m.now = func() time.Time { return base }

	requestID, err := m.CreateRequest(ctx, "bob", "alice", "sunset.png", "")
	require.NoError(t, err)
	_, err = m.Approve(ctx, "alice", requestID, 3, 1)
	require.NoError(t, err)

	m.now = func() time.Time { return base.Add(2 * time.Hour) }

	result, err := m.Consume(ctx, "bob", requestID)
	require.NoError(t, err)
	assert.False(t, result.Granted)
	assert.Equal(t, ReasonExpired, result.Reason)

	// Expired grants are removed, later attempts are NotFound
	_, err = m.Consume(ctx, "bob", requestID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestConcurrentConsumeNeverExceedsMaxViews(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	const maxViews = 5
	const viewers = 50

	requestID, err := m.CreateRequest(ctx, "bob", "alice", "sunset.png", "")
	require.NoError(t, err)
	_, err = m.Approve(ctx, "alice", requestID, maxViews, 0)
	require.NoError(t, err)

	var wg sync.WaitGroup
	granted := make(chan int, viewers)

	for i := 0; i < viewers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			result, err := m.Consume(ctx, "bob", requestID)
			if err == nil && result.Granted {
				granted <- result.ViewsRemaining
			}
		}()
	}

	wg.Wait()
	close(granted)

	remaining := make(map[int]bool)
	count := 0
	for r := range granted {
		remaining[r] = true
		count++
	}

	// Exactly maxViews succeed, each with a distinct remaining count
	assert.Equal(t, maxViews, count)
	assert.Len(t, remaining, maxViews)
}

func TestApproveDenyRace(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	for i := 0; i < 20; i++ {
		requestID, err := m.CreateRequest(ctx, "bob", "alice", "sunset.png", "")
		require.NoError(t, err)

		var wg sync.WaitGroup
		outcomes := make(chan string, 2)

		wg.Add(2)
		go func() {
			defer wg.Done()
			if _, err := m.Approve(ctx, "alice", requestID, 3, 0); err == nil {
				outcomes <- "approved"
			}
		}()
		go func() {
			defer wg.Done()
			if err := m.Deny(ctx, "alice", requestID); err == nil {
				outcomes <- "denied"
			}
		}()

		wg.Wait()
		close(outcomes)

		// Exactly one side wins
		assert.Len(t, outcomes, 1)
	}
}

func TestLoadRestoresDurableState(t *testing.T) {
	s := store.NewMemoryStore()
	ctx := context.Background()

	m1 := NewManager(s, logging.Global())
	approvedID, err := m1.CreateRequest(ctx, "bob", "alice", "sunset.png", "")
	require.NoError(t, err)
	pendingID, err := m1.CreateRequest(ctx, "charlie", "alice", "beach.png", "")
	require.NoError(t, err)

	_, err = m1.Approve(ctx, "alice", approvedID, 3, 0)
	require.NoError(t, err)

	// Use one view before the failover
	result, err := m1.Consume(ctx, "bob", approvedID)
	require.NoError(t, err)
	require.True(t, result.Granted)

	// New manager over the same store, as on the next leader
	m2 := NewManager(s, logging.Global())
	require.NoError(t, m2.Load(ctx))

	pending := m2.Pending("alice")
	require.Len(t, pending, 1)
	assert.Equal(t, pendingID, pending[0].RequestID)

	// The used view survived
	result, err = m2.Consume(ctx, "bob", approvedID)
	require.NoError(t, err)
	assert.True(t, result.Granted)
	assert.Equal(t, 1, result.ViewsRemaining)
}

func TestGrantsProjection(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	base := time.Now()
	m.now = func() time.Time { return base }

	activeID, err := m.CreateRequest(ctx, "bob", "alice", "sunset.png", "")
	require.NoError(t, err)
	expiredID, err := m.CreateRequest(ctx, "bob", "alice", "beach.png", "")
	require.NoError(t, err)

	_, err = m.Approve(ctx, "alice", activeID, 2, 0)
	require.NoError(t, err)
	_, err = m.Approve(ctx, "alice", expiredID, 2, 1)
	require.NoError(t, err)

	m.now = func() time.Time { return base.Add(2 * time.Hour) }

	grants := m.Grants("bob")
	require.Len(t, grants, 2)

	byID := make(map[string]GrantView)
	for _, g := range grants {
		byID[g.RequestID] = g
	}

	assert.True(t, byID[activeID].CanView)
	assert.Equal(t, 2, byID[activeID].ViewsRemaining)
	assert.True(t, byID[expiredID].IsExpired)
	assert.False(t, byID[expiredID].CanView)

	assert.Empty(t, m.Grants("mallory"))
}
