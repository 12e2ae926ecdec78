package workflow

import (
	"regexp"

	"github.com/google/uuid"
)

// Run identifiers have exactly one canonical form: 8 lowercase hex characters.
// The generator and every extraction pattern agree on it.
var idPattern = regexp.MustCompile(`^[a-f0-9]{8}$`)

// MakeID returns a fresh run identifier, the first 8 characters of a random UUID.
func MakeID() string {
	return uuid.NewString()[:8]
}

// IsValidID reports whether s is a canonical run identifier.
func IsValidID(s string) bool {
	return idPattern.MatchString(s)
}
