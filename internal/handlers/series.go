package handlers

import (
	"context"

	"github.com/gofiber/fiber/v3"

	"github.com/adscopehq/adscope/internal/insights"
	"github.com/adscopehq/adscope/internal/logging"
	"github.com/adscopehq/adscope/internal/metrics"
	"github.com/adscopehq/adscope/internal/middleware"
)

// HandleInsightSeries returns the period pivot: one selected metric per
// entity across day, week or month columns. Derived metrics are recomputed
// per period from that period's summed counters, never summed themselves.
// GET /api/insights/:client_id/series
func HandleInsightSeries(c fiber.Ctx) error {
	apiKey := middleware.GetAPIKey(c)
	if apiKey == nil {
		return c.Status(401).JSON(fiber.Map{"error": "Not authenticated"})
	}

	client, err := clientForRequest(c, apiKey.OrganizationID)
	if err != nil {
		return respondClientError(c, err)
	}

	level := insights.ParseLevel(c.Query("level"))
	granularity := insights.ParseGranularity(c.Query("granularity"))

	metricKey := c.Query("metric", "spend")
	def, ok := registry.Get(metricKey)
	if !ok {
		return c.Status(400).JSON(fiber.Map{"error": "Unknown metric: " + metricKey})
	}

	start, end, err := dateRangeFromQuery(c)
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": err.Error()})
	}

	filterColumn, filterIDs := parentFilterFromQuery(c, level)

	ctx, cancel := context.WithTimeout(c.Context(), queryTimeout)
	defer cancel()

	rows, err := insights.FetchRows(ctx, apiKey.OrganizationID, client.ID, level, start, end, filterColumn, filterIDs)
	if err != nil {
		logging.L().Error("insight series query failed",
			"client_id", client.ID, "level", string(level), "error", err)
		return c.Status(500).JSON(fiber.Map{"error": "Failed to load insights"})
	}

	periods, truncated := insights.BuildPeriods(start, end, granularity, periodCap)
	buckets := insights.BucketByPeriod(rows, level, periods, granularity)

	// Entity ordering follows the plain aggregation: spend descending.
	aggregated := insights.Aggregate(rows, level)
	aggregated = filterEntities(aggregated, c.Query("status"), c.Query("search"))

	var grand metrics.Base
	entities := make([]SeriesEntity, 0, len(aggregated))
	for _, e := range aggregated {
		grand.Impressions += e.Base.Impressions
		grand.Reach += e.Base.Reach
		grand.Clicks += e.Base.Clicks
		grand.LinkClicks += e.Base.LinkClicks
		grand.Spend += e.Base.Spend
		grand.Leads += e.Base.Leads
		grand.Conversions += e.Base.Conversions
		grand.Revenue += e.Base.Revenue
		values := make([]float64, len(periods))
		for i, b := range buckets[e.ID] {
			values[i] = def.Value(metrics.Base{
				Impressions: b.Impressions,
				Clicks:      b.Clicks,
				Spend:       b.Spend,
				Leads:       b.Leads,
				Conversions: b.Conversions,
				Revenue:     b.Revenue,
			})
		}
		entities = append(entities, SeriesEntity{
			ID:     e.ID,
			Name:   e.Name,
			Total:  def.Value(e.Base),
			Values: values,
		})
	}

	// Grand total is recomputed from the combined counters; summing the
	// per-entity values would be wrong for ratio metrics.
	total := def.Value(grand)
	return c.JSON(SeriesResponse{
		ClientID:    client.ID.String(),
		Level:       string(level),
		Granularity: string(granularity),
		Metric: MetricValue{
			Key:       def.Key,
			Label:     def.Label,
			Type:      string(def.Type),
			Computed:  def.Computed,
			Value:     total,
			Formatted: def.Format(total),
		},
		Periods:   periods,
		Truncated: truncated,
		Entities:  entities,
	})
}
