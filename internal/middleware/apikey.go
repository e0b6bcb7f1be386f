package middleware

import (
	"database/sql"
	"strings"

	"github.com/gofiber/fiber/v3"
	"github.com/lib/pq"

	"github.com/adscopehq/adscope/internal/database"
	"github.com/adscopehq/adscope/internal/models"
)

const keyPrefix = "adscope_live_"

// apiKeyValidator is the function used to validate API keys (swapped in tests)
var apiKeyValidator = validateAPIKeyFromDB

// APIKeyAuth validates API keys and requires the given scope. The
// authenticated key is stored in fiber locals under "api_key".
func APIKeyAuth(requiredScope string) fiber.Handler {
	return func(c fiber.Ctx) error {
		key := extractAPIKey(c)
		if key == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Missing API key"})
		}

		if !strings.HasPrefix(key, keyPrefix) {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid API key format"})
		}

		apiKey, err := apiKeyValidator(models.HashAPIKey(key))

		if err == sql.ErrNoRows {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid API key"})
		}

		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Authentication error"})
		}

		if !apiKey.IsValid() {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "API key revoked or expired"})
		}

		if requiredScope != "" && !apiKey.HasScope(requiredScope) {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "API key does not have " + requiredScope + " permission"})
		}

		go models.UpdateAPIKeyLastUsed(apiKey.KeyID)

		c.Locals("api_key", apiKey)
		return c.Next()
	}
}

// GetAPIKey retrieves the authenticated key from request locals.
func GetAPIKey(c fiber.Ctx) *models.APIKey {
	if key, ok := c.Locals("api_key").(*models.APIKey); ok {
		return key
	}
	return nil
}

// extractAPIKey supports Authorization: Bearer <key>, X-API-Key: <key> and
// an api_key query parameter. The query form exists for WebSocket clients,
// which cannot set request headers from a browser.
func extractAPIKey(c fiber.Ctx) string {
	authHeader := c.Get("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimPrefix(authHeader, "Bearer ")
	}
	if key := c.Get("X-API-Key"); key != "" {
		return key
	}
	return c.Query("api_key")
}

func validateAPIKeyFromDB(keyHash string) (*models.APIKey, error) {
	var key models.APIKey
	err := database.DB.QueryRow(`
		SELECT key_id, organization_id, name, scopes, revoked_at, expires_at, created_at
		FROM api_keys
		WHERE key_hash = $1`, keyHash).Scan(
		&key.KeyID,
		&key.OrganizationID,
		&key.Name,
		pq.Array(&key.Scopes),
		&key.RevokedAt,
		&key.ExpiresAt,
		&key.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &key, nil
}
