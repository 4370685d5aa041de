// Package id provides random identifier generation for tokens and session keys.
package id

import (
	"crypto/rand"
	"encoding/hex"
)

// Hex generates a random hex string of n bytes (2n characters).
// Used for opaque bearer tokens and session keys.
func Hex(n int) string {
	b := make([]byte, n)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

// Short generates a short random hex ID (16 characters).
// Suitable for user-facing IDs where brevity matters.
func Short() string {
	return Hex(8)
}
