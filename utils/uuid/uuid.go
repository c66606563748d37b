// Package uuid generates unique identifiers for
// temporary resources such as test store paths.
package uuid

import (
	google_uuid "github.com/google/uuid"
)

// MustUUID returns a random UUID string
func MustUUID() string {
	return google_uuid.New().String()
}
