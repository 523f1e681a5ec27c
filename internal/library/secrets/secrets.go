package secrets

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
)

// Mint creates a cryptographically secure shared secret for a library.
// Returns a base64-encoded opaque string; the registry treats it as a bearer
// credential and never logs or echoes it after the minting response.
func Mint() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("could not generate secret: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// Verify checks a provided secret against the stored one in constant time.
// An empty stored secret never verifies; first-time binds are decided by the
// caller before verification.
func Verify(stored, provided string) bool {
	if stored == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(stored), []byte(provided)) == 1
}
