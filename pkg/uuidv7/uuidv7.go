package uuidv7

import (
	"crypto/rand"
	"io"
	"time"

	"github.com/google/uuid"
)

// New returns a UUIDv7 per RFC 9562: 48 bits of Unix milliseconds followed
// by random bits, so IDs sort by creation time.
func New() (uuid.UUID, error) {
	var b [16]byte
	if _, err := io.ReadFull(rand.Reader, b[6:]); err != nil {
		return uuid.Nil, err
	}

	ms := uint64(time.Now().UnixMilli())
	b[0] = byte(ms >> 40)
	b[1] = byte(ms >> 32)
	b[2] = byte(ms >> 24)
	b[3] = byte(ms >> 16)
	b[4] = byte(ms >> 8)
	b[5] = byte(ms)

	// Version 7, RFC 4122 variant.
	b[6] = (b[6] & 0x0f) | 0x70
	b[8] = (b[8] & 0x3f) | 0x80

	return uuid.FromBytes(b[:])
}

// NewString returns a UUIDv7 in canonical string form.
func NewString() (string, error) {
	u, err := New()
	if err != nil {
		return "", err
	}
	return u.String(), nil
}
