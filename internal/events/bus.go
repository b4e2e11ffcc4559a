package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pixveil/pixveil/internal/logging"
)

// Subjects for lifecycle events
const (
	SubjectRegistered = "pixveil.user.registered"
	SubjectRequested  = "pixveil.photo.requested"
	SubjectApproved   = "pixveil.photo.approved"
	SubjectDenied     = "pixveil.photo.denied"
	SubjectViewed     = "pixveil.photo.viewed"
)

// Event is one lifecycle event on the bus
type Event struct {
	Subject   string    `json:"subject"`
	Actor     string    `json:"actor"`
	Target    string    `json:"target,omitempty"` // counterpart user, when there is one
	RequestID string    `json:"request_id,omitempty"`
	PhotoID   string    `json:"photo_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Handler handles incoming events
type Handler func(data []byte) error

// Bus publishes and consumes lifecycle events. Backends are selected by
// config; delivery is best effort and never blocks an API transition.
type Bus interface {
	// Publish publishes raw event data to a subject
	Publish(ctx context.Context, subject string, data []byte) error

	// Subscribe subscribes to a subject with a handler
	Subscribe(subject string, handler Handler) error

	// Unsubscribe removes a subject subscription
	Unsubscribe(subject string) error

	// Close closes the bus connection
	Close() error
}

// Emit publishes a typed event, stamping it first. Failures are logged
// and swallowed: the bus is observability, not correctness.
func Emit(ctx context.Context, bus Bus, logger *logging.Logger, ev Event) {
	ev.Timestamp = time.Now().UTC()

	data, err := json.Marshal(ev)
	if err != nil {
		logger.Error("Failed to marshal event", "subject", ev.Subject, "error", err)
		return
	}

	if err := bus.Publish(ctx, ev.Subject, data); err != nil {
		logger.Warn("Failed to publish event", "subject", ev.Subject, "error", err)
	}
}
