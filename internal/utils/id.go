package utils

import "github.com/google/uuid"

// NewID returns a fresh opaque identifier.
// Connection IDs, entity primary keys and bus instance IDs all use this.
func NewID() string {
	return uuid.NewString()
}
