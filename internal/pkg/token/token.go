package token

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// NewVerifyToken generates the opaque token a verified-phone marker is bound
// to: 32 random hex characters, unguessable within the marker's lifetime.
func NewVerifyToken() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate verify token: %w", err)
	}
	return hex.EncodeToString(b), nil
}
