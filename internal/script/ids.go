package script

import "github.com/google/uuid"

// IDGenerator allocates script ids.
// Implemented by UUIDv7Generator (production) and testutil.SequenceIDs (tests).
type IDGenerator interface {
	NewID() string
}

// UUIDv7Generator derives ids from the creation time.
//
// UUIDv7 embeds a millisecond timestamp in the most significant bits followed
// by random bits, so two scripts created in the same millisecond still get
// distinct ids and ids sort by creation time.
//
// Thread-safety: UUIDv7Generator is stateless and safe for concurrent use.
type UUIDv7Generator struct{}

// NewID returns a hyphenated UUIDv7 string.
//
// Panics if UUID generation fails (should never happen in practice).
func (UUIDv7Generator) NewID() string {
	return uuid.Must(uuid.NewV7()).String()
}
