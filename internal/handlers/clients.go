package handlers

import (
	"database/sql"
	"errors"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	"github.com/adscopehq/adscope/internal/database"
	"github.com/adscopehq/adscope/internal/logging"
	"github.com/adscopehq/adscope/internal/middleware"
	"github.com/adscopehq/adscope/internal/models"
)

// HandleListClients returns all clients of the authenticated organization
// GET /api/clients
func HandleListClients(c fiber.Ctx) error {
	apiKey := middleware.GetAPIKey(c)
	if apiKey == nil {
		return c.Status(401).JSON(fiber.Map{"error": "Not authenticated"})
	}

	rows, err := database.DB.QueryContext(c.Context(), `
		SELECT id, organization_id, name, status, created_at
		FROM clients
		WHERE organization_id = $1
		ORDER BY name`, apiKey.OrganizationID)
	if err != nil {
		logging.L().Error("failed to list clients", "error", err)
		return c.Status(500).JSON(fiber.Map{"error": "Failed to list clients"})
	}
	defer rows.Close()

	clients := []models.Client{}
	for rows.Next() {
		var cl models.Client
		if err := rows.Scan(&cl.ID, &cl.OrganizationID, &cl.Name, &cl.Status, &cl.CreatedAt); err != nil {
			continue
		}
		clients = append(clients, cl)
	}

	return c.JSON(fiber.Map{"data": clients})
}

// clientForRequest resolves the client_id path param against the
// authenticated organization. A client from another organization is
// indistinguishable from a missing one.
func clientForRequest(c fiber.Ctx, orgID uuid.UUID) (*models.Client, error) {
	clientID, err := uuid.Parse(c.Params("client_id"))
	if err != nil {
		return nil, errInvalidClientID
	}

	var cl models.Client
	err = database.DB.QueryRowContext(c.Context(), `
		SELECT id, organization_id, name, status, created_at
		FROM clients
		WHERE id = $1 AND organization_id = $2`, clientID, orgID).Scan(
		&cl.ID, &cl.OrganizationID, &cl.Name, &cl.Status, &cl.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, errClientNotFound
	}
	if err != nil {
		return nil, err
	}
	return &cl, nil
}

var (
	errInvalidClientID = errors.New("invalid client id")
	errClientNotFound  = errors.New("client not found")
)

// RequireClientAccess guards routes that carry a client_id path param but
// never reach a handler doing its own lookup, like the websocket feed. It
// rejects clients outside the key's organization before the connection is
// upgraded.
func RequireClientAccess() fiber.Handler {
	return func(c fiber.Ctx) error {
		apiKey := middleware.GetAPIKey(c)
		if apiKey == nil {
			return c.Status(401).JSON(fiber.Map{"error": "Not authenticated"})
		}
		if _, err := clientForRequest(c, apiKey.OrganizationID); err != nil {
			return respondClientError(c, err)
		}
		return c.Next()
	}
}

// respondClientError maps clientForRequest failures onto HTTP statuses.
func respondClientError(c fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, errInvalidClientID):
		return c.Status(400).JSON(fiber.Map{"error": "Invalid client ID"})
	case errors.Is(err, errClientNotFound):
		return c.Status(404).JSON(fiber.Map{"error": "Client not found"})
	default:
		logging.L().Error("client lookup failed", "error", err)
		return c.Status(500).JSON(fiber.Map{"error": "Client lookup failed"})
	}
}
