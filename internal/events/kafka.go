package events

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
)

// KafkaConfig represents Apache Kafka configuration
type KafkaConfig struct {
	Brokers      []string      // Kafka broker addresses
	GroupID      string        // Consumer group ID (default: "pixveil-group")
	RequiredAcks int           // Required acks: 0=none, 1=leader, -1=all (default: 1)
	MaxRetries   int           // Max retries on failure (default: 3)
	RetryBackoff time.Duration // Backoff between retries (default: 100ms)
}

// KafkaBus implements Bus using Apache Kafka
type KafkaBus struct {
	config        KafkaConfig
	writers       map[string]*kafka.Writer
	readers       map[string]*kafka.Reader
	subscriptions map[string]context.CancelFunc
	mu            sync.RWMutex
}

// newKafkaBus creates a Kafka bus
func newKafkaBus(cfg KafkaConfig) (*KafkaBus, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("kafka brokers not configured")
	}

	if cfg.GroupID == "" {
		cfg.GroupID = "pixveil-group"
	}
	if cfg.RequiredAcks == 0 {
		cfg.RequiredAcks = int(kafka.RequireOne)
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryBackoff == 0 {
		cfg.RetryBackoff = 100 * time.Millisecond
	}

	return &KafkaBus{
		config:        cfg,
		writers:       make(map[string]*kafka.Writer),
		readers:       make(map[string]*kafka.Reader),
		subscriptions: make(map[string]context.CancelFunc),
	}, nil
}

// getOrCreateWriter returns existing writer or creates one for the topic
func (b *KafkaBus) getOrCreateWriter(topic string) *kafka.Writer {
	b.mu.Lock()
	defer b.mu.Unlock()

	if writer, exists := b.writers[topic]; exists {
		return writer
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(b.config.Brokers...),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequiredAcks(b.config.RequiredAcks),
		MaxAttempts:  b.config.MaxRetries,
	}

	b.writers[topic] = writer
	return writer
}

// Publish publishes an event to a Kafka topic
func (b *KafkaBus) Publish(ctx context.Context, subject string, data []byte) error {
	writer := b.getOrCreateWriter(subject)

	msg := kafka.Message{
		Value: data,
		Time:  time.Now(),
	}

	if err := writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to publish to kafka topic %s: %w", subject, err)
	}

	return nil
}

// Subscribe subscribes to a Kafka topic with a consumer group
func (b *KafkaBus) Subscribe(subject string, handler Handler) error {
	b.mu.Lock()
	if _, exists := b.subscriptions[subject]; exists {
		b.mu.Unlock()
		return fmt.Errorf("already subscribed to topic: %s", subject)
	}
	b.mu.Unlock()

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        b.config.Brokers,
		GroupID:        b.config.GroupID,
		Topic:          subject,
		MinBytes:       1,
		MaxBytes:       10e6,
		MaxWait:        1 * time.Second,
		CommitInterval: time.Second,
	})

	ctx, cancel := context.WithCancel(context.Background())

	b.mu.Lock()
	b.readers[subject] = reader
	b.subscriptions[subject] = cancel
	b.mu.Unlock()

	go b.consume(ctx, reader, handler)

	return nil
}

// consume reads events from Kafka in a loop
func (b *KafkaBus) consume(ctx context.Context, reader *kafka.Reader, handler Handler) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		msg, err := reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			continue
		}

		if err := handler(msg.Value); err != nil {
			// No commit, the event will be redelivered
			continue
		}

		for i := 0; i < b.config.MaxRetries; i++ {
			if err := reader.CommitMessages(ctx, msg); err == nil {
				break
			}
			if ctx.Err() != nil {
				return
			}
			time.Sleep(b.config.RetryBackoff)
		}
	}
}

// Unsubscribe unsubscribes from a Kafka topic
func (b *KafkaBus) Unsubscribe(subject string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	cancel, exists := b.subscriptions[subject]
	if !exists {
		return fmt.Errorf("not subscribed to topic: %s", subject)
	}

	cancel()

	if reader, ok := b.readers[subject]; ok {
		_ = reader.Close()
		delete(b.readers, subject)
	}

	delete(b.subscriptions, subject)
	return nil
}

// Close closes all Kafka connections
func (b *KafkaBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	var lastErr error

	for subject, cancel := range b.subscriptions {
		cancel()
		if reader, ok := b.readers[subject]; ok {
			if err := reader.Close(); err != nil {
				lastErr = err
			}
		}
		delete(b.subscriptions, subject)
		delete(b.readers, subject)
	}

	for topic, writer := range b.writers {
		if err := writer.Close(); err != nil {
			lastErr = err
		}
		delete(b.writers, topic)
	}

	return lastErr
}
