package store

import (
	"context"
	"fmt"

	"github.com/pixveil/pixveil/internal/config"
	"github.com/pixveil/pixveil/internal/utils"
)

// Store is the durable key-value record store behind the registry and
// the access state machine. Values are JSON documents; keys live under
// /pixveil/... prefixes.
type Store interface {
	// Put stores a key-value pair
	Put(ctx context.Context, key, value string) error

	// Get retrieves a value by key; empty string if the key is absent
	Get(ctx context.Context, key string) (string, error)

	// Delete removes a key
	Delete(ctx context.Context, key string) error

	// GetPrefix retrieves all key-value pairs under a prefix
	GetPrefix(ctx context.Context, prefix string) (map[string]string, error)

	// Close releases backend resources
	Close() error
}

// Key prefixes for the durable record sets
const (
	IdentityPrefix = "/pixveil/identities/"
	RequestPrefix  = "/pixveil/requests/"
	GrantPrefix    = "/pixveil/grants/"
)

// New creates a store from configuration
func New(storeCfg config.StoreConfig, etcdCfg config.EtcdConfig) (Store, error) {
	switch utils.StoreType(storeCfg.Type) {
	case utils.StoreTypeEtcd, "":
		return NewEtcdStore(etcdCfg)
	case utils.StoreTypeMemory:
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unsupported store type: %s", storeCfg.Type)
	}
}
