package security

import (
	"crypto/sha256"
	"crypto/subtle"
)

// TokenEqual compares a presented token with the configured one. Both sides
// are hashed first so the comparison time does not depend on either length.
func TokenEqual(presented, expected string) bool {
	a := sha256.Sum256([]byte(presented))
	b := sha256.Sum256([]byte(expected))
	return subtle.ConstantTimeCompare(a[:], b[:]) == 1
}
