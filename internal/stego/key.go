package stego

import (
	"golang.org/x/crypto/sha3"
)

// keyDomain separates this key derivation from any other SHA3 use
const keyDomain = "pixveil-stego-v1"

// DeriveKey derives the AES-256 key for a (sender, recipient, resource)
// triple. Both sides compute the same key independently; no key material
// ever travels with the artifact.
func DeriveKey(sender, recipient, resource string) [32]byte {
	h := sha3.New256()
	h.Write([]byte(keyDomain))
	h.Write([]byte{0})
	h.Write([]byte(sender))
	h.Write([]byte{0})
	h.Write([]byte(recipient))
	h.Write([]byte{0})
	h.Write([]byte(resource))

	var key [32]byte
	h.Sum(key[:0])
	return key
}
