// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package token generates opaque bearer tokens. Verification tokens and
// check-in tokens are both minted here; anyone holding one can act on it,
// so tokens must be unguessable, never sequential or derived from input.
package token

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// Length is the number of random bytes per token. 32 bytes of entropy
// make accidental collisions astronomically unlikely; the database still
// carries UNIQUE constraints as the hard backstop.
const Length = 32

// New returns a fresh random token as a lowercase hex string.
func New() (string, error) {
	buf := make([]byte, Length)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("reading random bytes: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
