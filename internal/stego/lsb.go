package stego

import (
	"encoding/binary"
	"errors"
	"fmt"
)

var (
	// ErrCapacity means the cover image has too few bytes to carry the
	// payload at one bit per byte.
	ErrCapacity = errors.New("cover image too small for payload")

	// ErrNoPayload means the extracted header does not describe a payload
	// that fits in the carrier.
	ErrNoPayload = errors.New("no embedded payload found")
)

// headerBits is the 32-bit big-endian bit-length prefix
const headerBits = 32

// Embed hides data in the low bits of cover, one payload bit per cover
// byte. Layout: a 32-bit big-endian header holding the payload length in
// bits, then the payload bits, most significant bit of each byte first.
// The cover slice is modified in place and returned.
func Embed(cover []byte, data []byte) ([]byte, error) {
	bitLen := len(data) * 8
	if headerBits+bitLen > len(cover) {
		return nil, fmt.Errorf("%w: need %d carrier bytes, have %d",
			ErrCapacity, headerBits+bitLen, len(cover))
	}

	var header [4]byte
	binary.BigEndian.PutUint32(header[:], uint32(bitLen))

	writeBits(cover[:headerBits], header[:])
	writeBits(cover[headerBits:headerBits+bitLen], data)

	return cover, nil
}

// Extract recovers an embedded payload. Exact inverse of Embed.
func Extract(carrier []byte) ([]byte, error) {
	if len(carrier) < headerBits {
		return nil, ErrNoPayload
	}

	var header [4]byte
	readBits(carrier[:headerBits], header[:])
	bitLen := int(binary.BigEndian.Uint32(header[:]))

	if bitLen == 0 || bitLen%8 != 0 || headerBits+bitLen > len(carrier) {
		return nil, ErrNoPayload
	}

	data := make([]byte, bitLen/8)
	readBits(carrier[headerBits:headerBits+bitLen], data)

	return data, nil
}

// writeBits spreads the bits of data over the LSBs of dst, one bit per
// byte, MSB first. len(dst) must equal len(data)*8.
func writeBits(dst []byte, data []byte) {
	for i := range dst {
		bit := (data[i/8] >> (7 - uint(i%8))) & 1
		dst[i] = (dst[i] &^ 1) | bit
	}
}

// readBits collects the LSBs of src into data, MSB first.
func readBits(src []byte, data []byte) {
	for i := range data {
		data[i] = 0
	}
	for i := range src {
		data[i/8] |= (src[i] & 1) << (7 - uint(i%8))
	}
}
