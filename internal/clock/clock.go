// Package clock supplies wall-clock time and identifier generation to the
// engine components so tests can substitute deterministic sources.
package clock

import (
	"time"

	"github.com/google/uuid"
)

// Clock reports the current time.
type Clock interface {
	Now() time.Time
}

// System is the production Clock backed by time.Now, always in UTC.
type System struct{}

// Now returns the current UTC time.
func (System) Now() time.Time {
	return time.Now().UTC()
}

// IDGenerator generates unique identifiers for users, edges and transmissions.
// Implemented by UUIDv7Generator and RandomGenerator.
type IDGenerator interface {
	Generate() string
}

// UUIDv7Generator generates time-sortable UUIDv7 identifiers.
//
// UUIDv7 embeds a timestamp in the most significant bits, so successor user
// ids sort after their predecessors.
//
// Thread-safety: UUIDv7Generator is stateless and safe for concurrent use.
type UUIDv7Generator struct{}

// Generate creates a new UUIDv7 and returns it as a hyphenated string.
//
// Panics if UUID generation fails (should never happen in practice).
func (UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

// RandomGenerator generates random UUIDv4 identifiers. Used for nonces,
// where time ordering would leak information and is not needed.
type RandomGenerator struct{}

// Generate creates a new random UUID.
func (RandomGenerator) Generate() string {
	return uuid.NewString()
}
