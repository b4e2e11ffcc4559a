package stego

import (
	"errors"
	"fmt"
	"os"
)

var (
	// ErrNotRecipient means the artifact is addressed to someone else
	ErrNotRecipient = errors.New("artifact is not addressed to this viewer")

	// ErrViewsExhausted means the embedded counter reached zero
	ErrViewsExhausted = errors.New("no views remaining")
)

// ViewOutcome is the result of a successful View
type ViewOutcome struct {
	Image          []byte
	Metadata       Metadata // snapshot after the decrement
	ViewsRemaining int
	Deleted        bool // artifact was removed because the counter hit zero
}

// View performs the client-side metered view on a stego artifact: decrypt,
// verify the viewer is the recipient, decrement the embedded counter, then
// re-embed in place — or delete the file when the counter reaches zero.
// This counter is independent of the server-side grant; either side
// refusing is final.
func View(path string, sender, viewer, resource string) (*ViewOutcome, error) {
	stegoPNG, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read artifact: %w", err)
	}

	key := DeriveKey(sender, viewer, resource)

	imageData, meta, err := Decode(stegoPNG, key)
	if err != nil {
		return nil, err
	}

	if meta.Recipient != viewer {
		return nil, ErrNotRecipient
	}

	if meta.ViewsRemaining <= 0 {
		// Stale artifact that should already be gone
		_ = os.Remove(path)
		return nil, ErrViewsExhausted
	}

	meta.ViewsRemaining--

	if meta.ViewsRemaining == 0 {
		if err := os.Remove(path); err != nil {
			return nil, fmt.Errorf("remove exhausted artifact: %w", err)
		}
		return &ViewOutcome{
			Image:    imageData,
			Metadata: meta,
			Deleted:  true,
		}, nil
	}

	// Re-embed with the decremented counter, using the original artifact
	// as its own cover
	updated, err := Encode(stegoPNG, imageData, meta, key)
	if err != nil {
		return nil, fmt.Errorf("re-embed artifact: %w", err)
	}

	if err := os.WriteFile(path, updated, 0600); err != nil {
		return nil, fmt.Errorf("write artifact: %w", err)
	}

	return &ViewOutcome{
		Image:          imageData,
		Metadata:       meta,
		ViewsRemaining: meta.ViewsRemaining,
	}, nil
}

// Inspect decrypts an artifact and returns its metadata without touching
// the counter
func Inspect(path string, sender, viewer, resource string) (Metadata, error) {
	stegoPNG, err := os.ReadFile(path)
	if err != nil {
		return Metadata{}, fmt.Errorf("read artifact: %w", err)
	}

	key := DeriveKey(sender, viewer, resource)

	_, meta, err := Decode(stegoPNG, key)
	if err != nil {
		return Metadata{}, err
	}

	return meta, nil
}
