package main

import (
	"crypto/sha256"
	"encoding/hex"
)

// generateHash returns the SHA-256 hex digest of s, matching the reference
// password-storage format.
func generateHash(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}
