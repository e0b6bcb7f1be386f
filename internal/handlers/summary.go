package handlers

import (
	"context"

	"github.com/gofiber/fiber/v3"

	"github.com/adscopehq/adscope/internal/database"
	"github.com/adscopehq/adscope/internal/insights"
	"github.com/adscopehq/adscope/internal/logging"
	"github.com/adscopehq/adscope/internal/metricconfig"
	"github.com/adscopehq/adscope/internal/metrics"
	"github.com/adscopehq/adscope/internal/middleware"
	"github.com/adscopehq/adscope/internal/models"
)

// HandleInsightSummary returns range totals for the summary cards: the
// client-level default metric selection evaluated against counters summed
// over the whole range. Served from the daily rollup, falling back to the
// fact table when the view has not been refreshed yet.
// GET /api/insights/:client_id/summary
func HandleInsightSummary(c fiber.Ctx) error {
	apiKey := middleware.GetAPIKey(c)
	if apiKey == nil {
		return c.Status(401).JSON(fiber.Map{"error": "Not authenticated"})
	}

	client, err := clientForRequest(c, apiKey.OrganizationID)
	if err != nil {
		return respondClientError(c, err)
	}

	start, end, err := dateRangeFromQuery(c)
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": err.Error()})
	}

	ctx, cancel := context.WithTimeout(c.Context(), queryTimeout)
	defer cancel()

	base, err := summaryTotals(ctx, client, start.Format(isoDate), end.Format(isoDate), true)
	if err != nil {
		logging.L().Warn("rollup summary query failed, falling back to fact table",
			"client_id", client.ID, "error", err)
		base, err = summaryTotals(ctx, client, start.Format(isoDate), end.Format(isoDate), false)
		if err != nil {
			logging.L().Error("summary query failed", "client_id", client.ID, "error", err)
			return c.Status(500).JSON(fiber.Map{"error": "Failed to load summary"})
		}
	}

	configs, err := metricconfig.Load(ctx, apiKey.OrganizationID, client.ID, insights.LevelCampaigns.EntityType())
	if err != nil {
		configs = nil
	}
	resolver := metricconfig.NewResolver(registry, configs)
	defs := resolver.Resolve(metricconfig.DefaultEntityID)

	return c.JSON(SummaryResponse{
		ClientID:  client.ID.String(),
		StartDate: start.Format(isoDate),
		EndDate:   end.Format(isoDate),
		Days:      int(end.Sub(start).Hours()/24) + 1,
		Cards:     metricValues(defs, base),
	})
}

// summaryTotals sums campaign-level counters over the range, from either
// the materialized rollup or the partitioned fact table.
func summaryTotals(ctx context.Context, client *models.Client, start, end string, fromRollup bool) (metrics.Base, error) {
	table := "campaign_insights"
	shape := " AND adset_id = '' AND ad_id = ''"
	if fromRollup {
		table = "daily_insight_rollup"
		shape = ""
	}

	query := `
		SELECT COALESCE(SUM(impressions), 0),
		       COALESCE(SUM(clicks), 0),
		       COALESCE(SUM(spend), 0)::text,
		       COALESCE(SUM(leads), 0),
		       COALESCE(SUM(conversions), 0),
		       COALESCE(SUM(revenue), 0)::text
		FROM ` + table + `
		WHERE organization_id = $1
		  AND client_id = $2
		  AND date BETWEEN $3 AND $4` + shape

	var base metrics.Base
	var spend, revenue string
	err := database.DB.QueryRowContext(ctx, query,
		client.OrganizationID, client.ID, start, end).Scan(
		&base.Impressions, &base.Clicks, &spend,
		&base.Leads, &base.Conversions, &revenue)
	if err != nil {
		return metrics.Base{}, err
	}

	base.Spend = insights.ParseAmount(spend)
	base.Revenue = insights.ParseAmount(revenue)
	return base, nil
}
