package handlers

import (
	"context"

	"github.com/gofiber/fiber/v3"

	"github.com/adscopehq/adscope/internal/insights"
	"github.com/adscopehq/adscope/internal/logging"
	"github.com/adscopehq/adscope/internal/metricconfig"
	"github.com/adscopehq/adscope/internal/middleware"
)

// HandleInsights returns the aggregated entity table for one client at one
// drill level: one row per entity over the date range, counters summed,
// derived metrics computed from the sums, sorted and paginated.
// GET /api/insights/:client_id
func HandleInsights(c fiber.Ctx) error {
	apiKey := middleware.GetAPIKey(c)
	if apiKey == nil {
		return c.Status(401).JSON(fiber.Map{"error": "Not authenticated"})
	}

	client, err := clientForRequest(c, apiKey.OrganizationID)
	if err != nil {
		return respondClientError(c, err)
	}

	level := insights.ParseLevel(c.Query("level"))

	start, end, err := dateRangeFromQuery(c)
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": err.Error()})
	}

	filterColumn, filterIDs := parentFilterFromQuery(c, level)

	ctx, cancel := context.WithTimeout(c.Context(), queryTimeout)
	defer cancel()

	rows, err := insights.FetchRows(ctx, apiKey.OrganizationID, client.ID, level, start, end, filterColumn, filterIDs)
	if err != nil {
		logging.L().Error("insight query failed",
			"client_id", client.ID, "level", string(level), "error", err)
		return c.Status(500).JSON(fiber.Map{"error": "Failed to load insights"})
	}

	entities := insights.Aggregate(rows, level)
	entities = filterEntities(entities, c.Query("status"), c.Query("search"))

	params := ParsePaginationParamsWithValidation(c, "entities")
	sortEntities(entities, params)
	total := int64(len(entities))
	page := pageSlice(entities, params)

	// A failed config load degrades to the built-in defaults rather than
	// failing the whole table.
	configs, err := metricconfig.Load(ctx, apiKey.OrganizationID, client.ID, level.EntityType())
	if err != nil {
		logging.L().Warn("metric config load failed, using defaults",
			"client_id", client.ID, "entity_type", level.EntityType(), "error", err)
		configs = nil
	}
	resolver := metricconfig.NewResolver(registry, configs)

	data := make([]EntityRow, 0, len(page))
	for _, e := range page {
		data = append(data, EntityRow{
			ID:        e.ID,
			Name:      e.Name,
			Status:    e.Status,
			Objective: e.Objective,
			RowCount:  e.RowCount,
			Metrics:   metricValues(resolver.Resolve(e.ID), e.Base),
		})
	}

	return c.JSON(InsightsResponse{
		ClientID:   client.ID.String(),
		Level:      string(level),
		StartDate:  start.Format(isoDate),
		EndDate:    end.Format(isoDate),
		Data:       data,
		Pagination: BuildPaginationMeta(params, total),
	})
}
