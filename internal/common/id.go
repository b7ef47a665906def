package common

import (
	"github.com/google/uuid"
)

// NewID generates a unique opaque identifier with the given prefix.
// Format: <prefix>_<uuid>
func NewID(prefix string) string {
	return prefix + "_" + uuid.New().String()
}
