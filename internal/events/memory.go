package events

import (
	"context"
	"fmt"
	"sync"
)

// MemoryBus implements Bus using in-memory channels, for testing and
// development without external dependencies
type MemoryBus struct {
	channels      map[string]chan []byte
	subscriptions map[string]context.CancelFunc
	mu            sync.RWMutex
}

// NewMemoryBus creates an in-memory bus
func NewMemoryBus() *MemoryBus {
	return &MemoryBus{
		channels:      make(map[string]chan []byte),
		subscriptions: make(map[string]context.CancelFunc),
	}
}

// getOrCreateChannel returns existing channel or creates a new one
func (b *MemoryBus) getOrCreateChannel(subject string) chan []byte {
	b.mu.Lock()
	defer b.mu.Unlock()

	if ch, exists := b.channels[subject]; exists {
		return ch
	}

	ch := make(chan []byte, 1000)
	b.channels[subject] = ch
	return ch
}

// Publish publishes an event to an in-memory channel
func (b *MemoryBus) Publish(ctx context.Context, subject string, data []byte) error {
	ch := b.getOrCreateChannel(subject)

	dataCopy := make([]byte, len(data))
	copy(dataCopy, data)

	select {
	case ch <- dataCopy:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return fmt.Errorf("channel full for subject: %s", subject)
	}
}

// Subscribe subscribes to an in-memory channel
func (b *MemoryBus) Subscribe(subject string, handler Handler) error {
	b.mu.Lock()
	if _, exists := b.subscriptions[subject]; exists {
		b.mu.Unlock()
		return fmt.Errorf("already subscribed to subject: %s", subject)
	}
	b.mu.Unlock()

	ch := b.getOrCreateChannel(subject)
	ctx, cancel := context.WithCancel(context.Background())

	b.mu.Lock()
	b.subscriptions[subject] = cancel
	b.mu.Unlock()

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case data := <-ch:
				if err := handler(data); err != nil {
					continue
				}
			}
		}
	}()

	return nil
}

// Unsubscribe unsubscribes from a subject
func (b *MemoryBus) Unsubscribe(subject string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	cancel, exists := b.subscriptions[subject]
	if !exists {
		return fmt.Errorf("not subscribed to subject: %s", subject)
	}

	cancel()
	delete(b.subscriptions, subject)
	return nil
}

// Close closes all channels and subscriptions
func (b *MemoryBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	for subject, cancel := range b.subscriptions {
		cancel()
		delete(b.subscriptions, subject)
	}

	for subject, ch := range b.channels {
		close(ch)
		delete(b.channels, subject)
	}

	return nil
}

// PendingCount returns the number of buffered events for a subject
// (testing helper)
func (b *MemoryBus) PendingCount(subject string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if ch, exists := b.channels[subject]; exists {
		return len(ch)
	}
	return 0
}
