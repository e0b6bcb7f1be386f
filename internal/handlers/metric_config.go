package handlers

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v3"

	"github.com/adscopehq/adscope/internal/logging"
	"github.com/adscopehq/adscope/internal/metricconfig"
	"github.com/adscopehq/adscope/internal/middleware"
)

// HandleGetMetricConfig returns all persisted metric selections for one
// client and entity type, the resolved client default, and the catalog the
// UI can offer.
// GET /api/metric-config/:client_id?entity_type=campaign
func HandleGetMetricConfig(c fiber.Ctx) error {
	apiKey := middleware.GetAPIKey(c)
	if apiKey == nil {
		return c.Status(401).JSON(fiber.Map{"error": "Not authenticated"})
	}

	client, err := clientForRequest(c, apiKey.OrganizationID)
	if err != nil {
		return respondClientError(c, err)
	}

	entityType := strings.ToLower(c.Query("entity_type", "campaign"))
	if !validEntityType(entityType) {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid entity_type"})
	}

	ctx, cancel := context.WithTimeout(c.Context(), queryTimeout)
	defer cancel()

	configs, err := metricconfig.Load(ctx, apiKey.OrganizationID, client.ID, entityType)
	if err != nil {
		logging.L().Error("metric config load failed",
			"client_id", client.ID, "entity_type", entityType, "error", err)
		return c.Status(500).JSON(fiber.Map{"error": "Failed to load metric configuration"})
	}

	resolver := metricconfig.NewResolver(registry, configs)

	return c.JSON(MetricConfigResponse{
		ClientID:   client.ID.String(),
		EntityType: entityType,
		Configs:    configs,
		Default:    resolver.Keys(metricconfig.DefaultEntityID),
		Catalog:    registry.Resolve(registry.Keys()),
	})
}

// HandleSaveMetricConfig upserts one metric selection. The same key
// identifies the row on repeat saves; order is persisted as given.
// PUT /api/metric-config/:client_id
func HandleSaveMetricConfig(c fiber.Ctx) error {
	apiKey := middleware.GetAPIKey(c)
	if apiKey == nil {
		return c.Status(401).JSON(fiber.Map{"error": "Not authenticated"})
	}

	client, err := clientForRequest(c, apiKey.OrganizationID)
	if err != nil {
		return respondClientError(c, err)
	}

	var req SaveMetricConfigRequest
	if err := c.Bind().Body(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid JSON payload"})
	}

	if err := validate.Struct(req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid metric configuration: " + err.Error()})
	}

	// Unknown keys are persisted as-is and dropped at resolve time, so a
	// selection saved against a newer catalog round-trips unchanged.
	ctx, cancel := context.WithTimeout(c.Context(), queryTimeout)
	defer cancel()

	err = metricconfig.Save(ctx, apiKey.OrganizationID, client.ID, req.EntityType, req.EntityID, req.Metrics)
	if err != nil {
		logging.L().Error("metric config save failed",
			"client_id", client.ID, "entity_type", req.EntityType, "error", err)
		return c.Status(500).JSON(fiber.Map{"error": "Failed to save metric configuration"})
	}

	return c.JSON(fiber.Map{"status": "saved"})
}

func validEntityType(entityType string) bool {
	switch entityType {
	case "campaign", "adset", "ad":
		return true
	}
	return false
}
