package handlers

import (
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v3"

	"github.com/adscopehq/adscope/internal/config"
	"github.com/adscopehq/adscope/internal/insights"
	"github.com/adscopehq/adscope/internal/metrics"
)

const (
	isoDate          = "2006-01-02"
	defaultRangeDays = 30
	queryTimeout     = 10 * time.Second
)

// registry is the metric catalog handlers resolve against (swapped in tests).
var registry = metrics.DefaultRegistry()

// periodCap bounds the number of period buckets; SetPeriodCap overrides it
// from configuration at startup.
var periodCap = config.DefaultPeriodCap

// SetPeriodCap applies the configured bucket cap for the series endpoint.
func SetPeriodCap(n int) {
	if n > 0 {
		periodCap = n
	}
}

// nowFunc is swapped in tests that pin default date ranges.
var nowFunc = time.Now

// dateRangeFromQuery reads start_date/end_date (ISO dates, inclusive).
// Missing params default to the last 30 days ending today.
func dateRangeFromQuery(c fiber.Ctx) (time.Time, time.Time, error) {
	now := nowFunc().UTC().Truncate(24 * time.Hour)
	start := now.AddDate(0, 0, -(defaultRangeDays - 1))
	end := now

	if raw := c.Query("start_date"); raw != "" {
		t, err := time.Parse(isoDate, raw)
		if err != nil {
			return time.Time{}, time.Time{}, errors.New("invalid start_date, expected YYYY-MM-DD")
		}
		start = t
	}

	if raw := c.Query("end_date"); raw != "" {
		t, err := time.Parse(isoDate, raw)
		if err != nil {
			return time.Time{}, time.Time{}, errors.New("invalid end_date, expected YYYY-MM-DD")
		}
		end = t
	}

	if end.Before(start) {
		return time.Time{}, time.Time{}, errors.New("end_date is before start_date")
	}

	return start, end, nil
}

// splitIDList parses a comma-separated id list query param.
func splitIDList(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// parentFilterFromQuery picks the narrowest applicable parent filter for the
// level, mirroring drill-down navigation: ads prefer an ad set filter and
// fall back to campaigns, ad sets filter by campaigns, campaigns by nothing.
func parentFilterFromQuery(c fiber.Ctx, level insights.DrillLevel) (string, []string) {
	campaignIDs := splitIDList(c.Query("campaign_ids"))
	adsetIDs := splitIDList(c.Query("adset_ids"))

	switch level {
	case insights.LevelAdsets:
		if len(campaignIDs) > 0 {
			return "campaign_id", campaignIDs
		}
	case insights.LevelAds:
		if len(adsetIDs) > 0 {
			return "adset_id", adsetIDs
		}
		if len(campaignIDs) > 0 {
			return "campaign_id", campaignIDs
		}
	}
	return "", nil
}
