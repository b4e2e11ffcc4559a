package stego

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/golang/snappy"
)

var (
	// ErrDecryptionFailed means the key is wrong or the ciphertext was
	// tampered with; the GCM tag did not verify.
	ErrDecryptionFailed = errors.New("payload decryption failed")

	// ErrMalformedPayload means the ciphertext opened but its contents do
	// not parse. Distinct from ErrDecryptionFailed so corruption inside an
	// authentic envelope is reported as such.
	ErrMalformedPayload = errors.New("malformed payload")
)

// Metadata travels encrypted alongside the image and carries the
// client-held view counter.
type Metadata struct {
	Sender         string `json:"sender"`
	Recipient      string `json:"recipient"`
	ResourceID     string `json:"resource_id"`
	ViewsRemaining int    `json:"views_remaining"`
}

// payload is the cleartext envelope: image plus metadata as one JSON
// document, compressed before encryption.
type payload struct {
	Image    string   `json:"image"` // base64
	Metadata Metadata `json:"metadata"`
}

// Seal encrypts an image and its metadata under the derived key.
// Output is nonce ‖ ciphertext; the payload JSON is snappy-compressed
// first so it fits LSB capacity.
func Seal(imageData []byte, meta Metadata, key [32]byte) ([]byte, error) {
	p := payload{
		Image:    base64.StdEncoding.EncodeToString(imageData),
		Metadata: meta,
	}

	plaintext, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}

	compressed := snappy.Encode(nil, plaintext)

	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("create GCM: %w", err)
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}

	return gcm.Seal(nonce, nonce, compressed, nil), nil
}

// Open decrypts a sealed payload and returns the image and its metadata.
func Open(sealed []byte, key [32]byte) ([]byte, Metadata, error) {
	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, Metadata{}, fmt.Errorf("create cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, Metadata{}, fmt.Errorf("create GCM: %w", err)
	}

	if len(sealed) < gcm.NonceSize() {
		return nil, Metadata{}, ErrDecryptionFailed
	}

	nonce, ciphertext := sealed[:gcm.NonceSize()], sealed[gcm.NonceSize():]

	compressed, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, Metadata{}, ErrDecryptionFailed
	}

	plaintext, err := snappy.Decode(nil, compressed)
	if err != nil {
		return nil, Metadata{}, ErrMalformedPayload
	}

	var p payload
	if err := json.Unmarshal(plaintext, &p); err != nil {
		return nil, Metadata{}, ErrMalformedPayload
	}

	imageData, err := base64.StdEncoding.DecodeString(p.Image)
	if err != nil {
		return nil, Metadata{}, ErrMalformedPayload
	}

	return imageData, p.Metadata, nil
}
