// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

// Request headers carrying credentials and the acting coordinator.
const (
	HeaderAdminKey    = "X-Admin-Key"
	HeaderElectionKey = "X-Election-Key"
	HeaderActorID     = "X-Actor-ID"
)

var (
	ErrInvalidKey = errors.New("invalid api key")
	ErrMissingKey = errors.New("api key not configured")
)

// GenerateID creates a random UUID string for a new record
func GenerateID() string {
	return uuid.NewString()
}

// ValidID reports whether id parses as a UUID
func ValidID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// ValidateKey compares a presented key with the configured one in constant time.
// Both sides are hashed first so the comparison does not leak length.
func ValidateKey(provided, expected string) error {
	if expected == "" {
		return ErrMissingKey
	}
	a := sha256.Sum256([]byte(provided))
	b := sha256.Sum256([]byte(expected))
	if !hmac.Equal(a[:], b[:]) {
		return ErrInvalidKey
	}
	return nil
}

// ActorID returns the acting user from the request, or "system" when absent
func ActorID(r *http.Request) string {
	actor := strings.TrimSpace(r.Header.Get(HeaderActorID))
	if actor == "" {
		return "system"
	}
	return actor
}
