package keygen

import (
	google_uuid "github.com/google/uuid"
)

var _ Generator[google_uuid.UUID] = UUID{}

// UUID is a Generator producing random version 4 UUID keys.
// Unlike Counter it needs no persisted seed, so Initialize is
// a no-op. Keys carry no meaningful order; use it with trees
// whose consumers never rely on key ordering.
type UUID struct{}

// Initialize implements Generator.Initialize
func (UUID) Initialize(source Source[google_uuid.UUID]) error {
	return nil
}

// NextKey implements Generator.NextKey
func (UUID) NextKey() google_uuid.UUID {
	return google_uuid.New()
}
