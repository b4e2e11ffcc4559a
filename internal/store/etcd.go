package store

import (
	"context"
	"fmt"
	"time"

	clientv3 "go.etcd.io/etcd/client/v3"

	"github.com/pixveil/pixveil/internal/config"
)

// cacheTTL bounds staleness of prefix-free point reads. Mutations go
// write-through, so cached values only lag behind writes from other nodes.
const cacheTTL = 30 * time.Second

// EtcdStore implements Store using etcd
type EtcdStore struct {
	client *clientv3.Client
	cache  *KVCache
}

// NewEtcdStore creates a new etcd-backed store
func NewEtcdStore(cfg config.EtcdConfig) (*EtcdStore, error) {
	client, err := clientv3.New(clientv3.Config{
		Endpoints:   cfg.Endpoints,
		DialTimeout: cfg.DialTimeout,
		Username:    cfg.Username,
		Password:    cfg.Password,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to etcd: %w", err)
	}

	return &EtcdStore{
		client: client,
		cache:  NewKVCache(cacheTTL),
	}, nil
}

// Put stores a key-value pair
func (s *EtcdStore) Put(ctx context.Context, key, value string) error {
	_, err := s.client.Put(ctx, key, value)
	if err != nil {
		return fmt.Errorf("failed to put key: %w", err)
	}
	s.cache.Set(key, value)
	return nil
}

// Get retrieves a value by key
func (s *EtcdStore) Get(ctx context.Context, key string) (string, error) {
	if cached, ok := s.cache.Get(key); ok {
		return cached, nil
	}

	resp, err := s.client.Get(ctx, key)
	if err != nil {
		return "", fmt.Errorf("failed to get key: %w", err)
	}

	if len(resp.Kvs) == 0 {
		return "", nil
	}

	value := string(resp.Kvs[0].Value)
	s.cache.Set(key, value)
	return value, nil
}

// Delete removes a key
func (s *EtcdStore) Delete(ctx context.Context, key string) error {
	_, err := s.client.Delete(ctx, key)
	if err != nil {
		return fmt.Errorf("failed to delete key: %w", err)
	}
	s.cache.Delete(key)
	return nil
}

// GetPrefix retrieves all keys under a prefix. Always reads through to
// etcd: prefix scans back listings, which must not serve stale deletes.
func (s *EtcdStore) GetPrefix(ctx context.Context, prefix string) (map[string]string, error) {
	resp, err := s.client.Get(ctx, prefix, clientv3.WithPrefix())
	if err != nil {
		return nil, fmt.Errorf("failed to get prefix: %w", err)
	}

	result := make(map[string]string)
	for _, kv := range resp.Kvs {
		result[string(kv.Key)] = string(kv.Value)
	}

	return result, nil
}

// Close releases the etcd client and stops the cache
func (s *EtcdStore) Close() error {
	if s.cache != nil {
		s.cache.Stop()
	}
	return s.client.Close()
}
