package entgen

import (
	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

// NewUUIDv7 returns a time-ordered UUID (RFC 9562 version 7).
// It panics if the random source fails, mirroring uuid.New.
func NewUUIDv7() uuid.UUID {
	return uuid.Must(uuid.NewV7())
}

// NewUUIDv4 returns a random UUID (version 4).
func NewUUIDv4() uuid.UUID {
	return uuid.New()
}

// NewULID returns a ULID stored in a UUID. Both are 128-bit values, so the
// result round-trips through UUID columns and keeps ULID sort order.
func NewULID() uuid.UUID {
	return uuid.UUID(ulid.Make())
}
