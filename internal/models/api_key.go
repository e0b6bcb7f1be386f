package models

import (
	"crypto/sha256"
	"encoding/hex"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/adscopehq/adscope/internal/database"
	"github.com/adscopehq/adscope/internal/logging"
)

// APIKey is an organization-scoped credential. Keys are stored hashed;
// the plaintext is shown once at creation time.
type APIKey struct {
	KeyID          uuid.UUID
	OrganizationID uuid.UUID
	Name           *string
	Scopes         []string
	RevokedAt      *time.Time
	ExpiresAt      *time.Time
	LastUsedAt     *time.Time
	CreatedAt      time.Time
}

// HashAPIKey returns the hex SHA-256 digest stored in place of the key.
func HashAPIKey(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}

// IsValid reports whether the key is neither revoked nor expired.
func (k *APIKey) IsValid() bool {
	if k.RevokedAt != nil {
		return false
	}
	if k.ExpiresAt != nil && time.Now().After(*k.ExpiresAt) {
		return false
	}
	return true
}

// HasScope reports whether the key carries the given scope.
func (k *APIKey) HasScope(scope string) bool {
	return slices.Contains(k.Scopes, scope)
}

// UpdateAPIKeyLastUsed records key usage; failures are logged, not surfaced.
func UpdateAPIKeyLastUsed(keyID uuid.UUID) {
	_, err := database.DB.Exec(
		`UPDATE api_keys SET last_used_at = now() WHERE key_id = $1`, keyID)
	if err != nil {
		logging.L().Warn("failed to update api key last_used_at", "key_id", keyID, "error", err)
	}
}
