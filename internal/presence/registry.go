package presence

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

// ErrAlreadyExists is returned when registering a username that is taken
var ErrAlreadyExists = errors.New("username already registered")

// Identity is a durable user record
type Identity struct {
	RecordID     string    `json:"record_id"`
	Username     string    `json:"username"`
	Addr         string    `json:"addr"`
	RegisteredAt time.Time `json:"registered_at"`
	SampleImages []string  `json:"sample_images,omitempty"`
}

// OnlineUser is one entry of the TTL-filtered online set
type OnlineUser struct {
	Username     string
	Addr         string
	LastSeen     time.Time
	Registered   bool
	SampleImages []string
}

// PresenceEntry is one raw presence table row, for diagnostics
type PresenceEntry struct {
	Username string
	Addr     string
	LastSeen time.Time
}

// Registry tracks durable identities and ephemeral presence. Identities
// persist in the store and survive leader changes; presence lives only in
// this process and a new leader starts with an empty table.
type Registry struct {
	store  *storeView
	ttl    time.Duration
	now    func() time.Time
	logger *logging.Logger

	mu         sync.RWMutex
	identities map[string]Identity // username -> durable record (write-through mirror)
	presence   map[string]PresenceEntry
}

// storeView narrows the durable store to the identity prefix
type storeView struct {
	s store.Store
}

// NewRegistry creates a registry backed by the given store
func NewRegistry(s store.Store, ttl time.Duration, logger *logging.Logger) *Registry {
	return &Registry{
		store:      &storeView{s: s},
		ttl:        ttl,
		now:        time.Now,
		logger:     logger,
		identities: make(map[string]Identity),
		presence:   make(map[string]PresenceEntry),
	}
}

// Load reloads the durable identity set from the store. Called once at
// startup so a restarted (or newly elected) node serves /users without a
// store round-trip per request.
func (r *Registry) Load(ctx context.Context) error {
	kvs, err := r.store.s.GetPrefix(ctx, store.IdentityPrefix)
	if err != nil {
		return fmt.Errorf("failed to load identities: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for key, value := range kvs {
		var id Identity
		if err := json.Unmarshal([]byte(value), &id); err != nil {
			r.logger.Warn("Skipping malformed identity record", "key", key, "error", err)
			continue
		}
		r.identities[id.Username] = id
	}

	r.logger.Info("Identity set loaded", "count", len(r.identities))
	return nil
}

// Register creates a durable identity record. Returns ErrAlreadyExists if
// the username is taken.
func (r *Registry) Register(ctx context.Context, username, addr string, sampleImages []string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, taken := r.identities[username]; taken {
		return "", ErrAlreadyExists
	}

	id := Identity{
		RecordID:     uuid.New().String(),
		Username:     username,
		Addr:         addr,
		RegisteredAt: r.now().UTC(),
		SampleImages: sampleImages,
	}

	data, err := json.Marshal(id)
	if err != nil {
		return "", fmt.Errorf("failed to marshal identity: %w", err)
	}

	if err := r.store.s.Put(ctx, store.IdentityPrefix+username, string(data)); err != nil {
		return "", fmt.Errorf("failed to persist identity: %w", err)
	}

	r.identities[username] = id

	// Registration implies presence
	r.presence[username] = PresenceEntry{
		Username: username,
		Addr:     addr,
		LastSeen: r.now(),
	}

	return id.RecordID, nil
}

// Heartbeat refreshes the presence entry for a username. Unregistered
// usernames are accepted and tracked as ephemeral presence.
func (r *Registry) Heartbeat(username, addr string) time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry := PresenceEntry{
		Username: username,
		Addr:     addr,
		LastSeen: r.now(),
	}
	r.presence[username] = entry

	return entry.LastSeen
}

// Online returns the TTL-filtered online set, computed at call time.
// Entries whose last heartbeat is older than the TTL are dropped from the
// table as a side effect.
func (r *Registry) Online() []OnlineUser {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	online := make([]OnlineUser, 0, len(r.presence))

	for username, entry := range r.presence {
		if now.Sub(entry.LastSeen) >= r.ttl {
			delete(r.presence, username)
			continue
		}

		user := OnlineUser{
			Username: entry.Username,
			Addr:     entry.Addr,
			LastSeen: entry.LastSeen,
		}
		if id, ok := r.identities[username]; ok {
			user.Registered = true
			user.SampleImages = id.SampleImages
		}
		online = append(online, user)
	}

	sort.Slice(online, func(i, j int) bool {
		return online[i].Username < online[j].Username
	})

	return online
}

// OnlineCount returns the size of the current online set
func (r *Registry) OnlineCount() int {
	return len(r.Online())
}

// Registered returns the durable identity set
func (r *Registry) Registered() []Identity {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]Identity, 0, len(r.identities))
	for _, id := range r.identities {
		ids = append(ids, id)
	}

	sort.Slice(ids, func(i, j int) bool {
		return ids[i].Username < ids[j].Username
	})

	return ids
}

// Lookup returns the durable identity for a username, if any
func (r *Registry) Lookup(username string) (Identity, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.identities[username]
	return id, ok
}

// Snapshot returns raw presence entries for diagnostics, including ones
// past their TTL
func (r *Registry) Snapshot() []PresenceEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entries := make([]PresenceEntry, 0, len(r.presence))
	for _, entry := range r.presence {
		entries = append(entries, entry)
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Username < entries[j].Username
	})

	return entries
}

// TTL returns the presence freshness window
func (r *Registry) TTL() time.Duration {
	return r.ttl
}
