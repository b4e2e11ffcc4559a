package access

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pixveil/pixveil/internal/logging"
	"github.com/pixveil/pixveil/internal/store"
)

var (
	// ErrNotFound is returned when a request or grant does not exist for
	// the acting user. Owner mismatches report the same error.
	ErrNotFound = errors.New("request not found")

	// ErrInvalidMaxViews is returned when approving with max_views < 1
	ErrInvalidMaxViews = errors.New("max_views must be at least 1")
)

// Reason classifies a refused view. Refusals are outcomes, not errors.
type Reason string

const (
	ReasonLimitExceeded Reason = "limit_exceeded"
	ReasonExpired       Reason = "expired"
)

// Request is a pending photo-access request
type Request struct {
	RequestID string    `json:"request_id"`
	Requester string    `json:"requester"`
	Owner     string    `json:"owner"`
	PhotoID   string    `json:"photo_id"`
	Message   string    `json:"message,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Grant is an approved request with a metered view budget
type Grant struct {
	RequestID string     `json:"request_id"`
	Requester string     `json:"requester"`
	Owner     string     `json:"owner"`
	PhotoID   string     `json:"photo_id"`
	MaxViews  int        `json:"max_views"`
	ViewsUsed int        `json:"views_used"`
	GrantedAt time.Time  `json:"granted_at"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"` // nil means no expiry
}

// ViewResult is the outcome of a Consume call
type ViewResult struct {
	Granted        bool
	Reason         Reason // set when Granted is false
	ViewsRemaining int
	Grant          Grant // snapshot after the decrement, valid when Granted
}

// GrantView is a read projection of a grant with derived fields
type GrantView struct {
	Grant
	ViewsRemaining int
	IsExpired      bool
	CanView        bool
}

// Manager owns the photo-access state machine. All transitions run under
// one mutex; the in-memory state is authoritative within a leader term and
// mutations write through to the store so grants survive failover.
type Manager struct {
	store  store.Store
	logger *logging.Logger
	now    func() time.Time

	mu       sync.Mutex
	requests map[string]*Request
	grants   map[string]*Grant
}

// NewManager creates an access manager backed by the given store
func NewManager(s store.Store, logger *logging.Logger) *Manager {
	return &Manager{
		store:    s,
		logger:   logger,
		now:      time.Now,
		requests: make(map[string]*Request),
		grants:   make(map[string]*Grant),
	}
}

// Load reloads durable requests and grants from the store. Called once at
// startup; a newly elected leader picks up where the old one left off.
func (m *Manager) Load(ctx context.Context) error {
	reqKVs, err := m.store.GetPrefix(ctx, store.RequestPrefix)
	if err != nil {
		return fmt.Errorf("failed to load requests: %w", err)
	}
	grantKVs, err := m.store.GetPrefix(ctx, store.GrantPrefix)
	if err != nil {
		return fmt.Errorf("failed to load grants: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for key, value := range reqKVs {
		var req Request
		if err := json.Unmarshal([]byte(value), &req); err != nil {
			m.logger.Warn("Skipping malformed request record", "key", key, "error", err)
			continue
		}
		m.requests[req.RequestID] = &req
	}

	for key, value := range grantKVs {
		var grant Grant
		if err := json.Unmarshal([]byte(value), &grant); err != nil {
			m.logger.Warn("Skipping malformed grant record", "key", key, "error", err)
			continue
		}
		m.grants[grant.RequestID] = &grant
	}

	m.logger.Info("Access state loaded",
		"requests", len(m.requests),
		"grants", len(m.grants),
	)
	return nil
}

// CreateRequest records a new access request from requester to owner
func (m *Manager) CreateRequest(ctx context.Context, requester, owner, photoID, message string) (string, error) {
	req := &Request{
		RequestID: uuid.New().String(),
		Requester: requester,
		Owner:     owner,
		PhotoID:   photoID,
		Message:   message,
		CreatedAt: m.now().UTC(),
	}

	m.mu.Lock()
	m.requests[req.RequestID] = req
	m.mu.Unlock()

	m.persistRequest(ctx, req)

	return req.RequestID, nil
}

// Pending returns the owner's pending request queue, oldest first
func (m *Manager) Pending(owner string) []Request {
	m.mu.Lock()
	defer m.mu.Unlock()

	pending := make([]Request, 0)
	for _, req := range m.requests {
		if req.Owner == owner {
			pending = append(pending, *req)
		}
	}

	sort.Slice(pending, func(i, j int) bool {
		return pending[i].CreatedAt.Before(pending[j].CreatedAt)
	})

	return pending
}

// Approve consumes a pending request and creates a grant with the given
// view budget. expiryHours of zero means the grant never expires. Returns
// ErrNotFound if the request is gone or belongs to another owner.
func (m *Manager) Approve(ctx context.Context, owner, requestID string, maxViews, expiryHours int) (Grant, error) {
	if maxViews < 1 {
		return Grant{}, ErrInvalidMaxViews
	}

	m.mu.Lock()

	req, ok := m.requests[requestID]
	if !ok || req.Owner != owner {
		m.mu.Unlock()
		return Grant{}, ErrNotFound
	}

	delete(m.requests, requestID)

	grant := &Grant{
		RequestID: req.RequestID,
		Requester: req.Requester,
		Owner:     req.Owner,
		PhotoID:   req.PhotoID,
		MaxViews:  maxViews,
		GrantedAt: m.now().UTC(),
	}
	if expiryHours > 0 {
		expiresAt := m.now().UTC().Add(time.Duration(expiryHours) * time.Hour)
		grant.ExpiresAt = &expiresAt
	}
	m.grants[requestID] = grant

	snapshot := *grant
	m.mu.Unlock()

	m.deleteRequestRecord(ctx, requestID)
	m.persistGrant(ctx, &snapshot)

	return snapshot, nil
}

// Deny consumes a pending request without granting. Returns ErrNotFound if
// the request is gone or belongs to another owner.
func (m *Manager) Deny(ctx context.Context, owner, requestID string) error {
	m.mu.Lock()

	req, ok := m.requests[requestID]
	if !ok || req.Owner != owner {
		m.mu.Unlock()
		return ErrNotFound
	}

	delete(m.requests, requestID)
	m.mu.Unlock()

	m.deleteRequestRecord(ctx, requestID)

	return nil
}

// Consume performs the metered view transition: check expiry, then
// compare-and-decrement the view budget. The check and the increment share
// one critical section, so views_used can never exceed max_views no matter
// how many viewers race.
func (m *Manager) Consume(ctx context.Context, requester, requestID string) (ViewResult, error) {
	m.mu.Lock()

	grant, ok := m.grants[requestID]
	if !ok || grant.Requester != requester {
		m.mu.Unlock()
		return ViewResult{}, ErrNotFound
	}

	if grant.ExpiresAt != nil && m.now().After(*grant.ExpiresAt) {
		delete(m.grants, requestID)
		m.mu.Unlock()
		m.deleteGrantRecord(ctx, requestID)
		return ViewResult{Granted: false, Reason: ReasonExpired}, nil
	}

	if grant.ViewsUsed >= grant.MaxViews {
		m.mu.Unlock()
		return ViewResult{Granted: false, Reason: ReasonLimitExceeded}, nil
	}

	grant.ViewsUsed++
	snapshot := *grant
	m.mu.Unlock()

	m.persistGrant(ctx, &snapshot)

	return ViewResult{
		Granted:        true,
		ViewsRemaining: snapshot.MaxViews - snapshot.ViewsUsed,
		Grant:          snapshot,
	}, nil
}

// Grants returns the requester's grant projections, newest first
func (m *Manager) Grants(requester string) []GrantView {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	views := make([]GrantView, 0)

	for _, grant := range m.grants {
		if grant.Requester != requester {
			continue
		}

		view := GrantView{
			Grant:          *grant,
			ViewsRemaining: grant.MaxViews - grant.ViewsUsed,
			IsExpired:      grant.ExpiresAt != nil && now.After(*grant.ExpiresAt),
		}
		view.CanView = !view.IsExpired && view.ViewsRemaining > 0
		views = append(views, view)
	}

	sort.Slice(views, func(i, j int) bool {
		return views[i].GrantedAt.After(views[j].GrantedAt)
	})

	return views
}

// Write-through persistence. Failures are logged and the in-memory
// transition stands; the leader's memory is authoritative within a term.

func (m *Manager) persistRequest(ctx context.Context, req *Request) {
	data, err := json.Marshal(req)
	if err != nil {
		m.logger.Error("Failed to marshal request record", "request_id", req.RequestID, "error", err)
		return
	}
	if err := m.store.Put(ctx, store.RequestPrefix+req.RequestID, string(data)); err != nil {
		m.logger.Error("Failed to persist request record", "request_id", req.RequestID, "error", err)
	}
}

func (m *Manager) deleteRequestRecord(ctx context.Context, requestID string) {
	if err := m.store.Delete(ctx, store.RequestPrefix+requestID); err != nil {
		m.logger.Error("Failed to delete request record", "request_id", requestID, "error", err)
	}
}

func (m *Manager) persistGrant(ctx context.Context, grant *Grant) {
	data, err := json.Marshal(grant)
	if err != nil {
		m.logger.Error("Failed to marshal grant record", "request_id", grant.RequestID, "error", err)
		return
	}
	if err := m.store.Put(ctx, store.GrantPrefix+grant.RequestID, string(data)); err != nil {
		m.logger.Error("Failed to persist grant record", "request_id", grant.RequestID, "error", err)
	}
}

func (m *Manager) deleteGrantRecord(ctx context.Context, requestID string) {
	if err := m.store.Delete(ctx, store.GrantPrefix+requestID); err != nil {
		m.logger.Error("Failed to delete grant record", "request_id", requestID, "error", err)
	}
}
