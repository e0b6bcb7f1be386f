// Package insights implements the campaign analytics core: hierarchical
// aggregation of daily insight rows across drill levels, period bucketing
// for time-series views, and the drill-down navigation state machine.
package insights

import (
	"strconv"
	"strings"
)

// DrillLevel is the granularity tier a view is displaying.
type DrillLevel string

const (
	LevelCampaigns DrillLevel = "campaigns"
	LevelAdsets    DrillLevel = "adsets"
	LevelAds       DrillLevel = "ads"
)

// ParseLevel maps a query-string value to a drill level, defaulting to campaigns.
func ParseLevel(value string) DrillLevel {
	switch DrillLevel(strings.ToLower(strings.TrimSpace(value))) {
	case LevelAdsets:
		return LevelAdsets
	case LevelAds:
		return LevelAds
	default:
		return LevelCampaigns
	}
}

// EntityType is the singular entity name persisted in metric display configs.
func (l DrillLevel) EntityType() string {
	switch l {
	case LevelAdsets:
		return "adset"
	case LevelAds:
		return "ad"
	default:
		return "campaign"
	}
}

// IDColumn is the insight table column rows are grouped by at this level.
func (l DrillLevel) IDColumn() string {
	switch l {
	case LevelAdsets:
		return "adset_id"
	case LevelAds:
		return "ad_id"
	default:
		return "campaign_id"
	}
}

// NameColumn is the insight table column carrying the entity display name.
func (l DrillLevel) NameColumn() string {
	switch l {
	case LevelAdsets:
		return "adset_name"
	case LevelAds:
		return "ad_name"
	default:
		return "campaign_name"
	}
}

// Child returns the next level down, or the same level when already at ads.
func (l DrillLevel) Child() DrillLevel {
	switch l {
	case LevelCampaigns:
		return LevelAdsets
	case LevelAdsets:
		return LevelAds
	default:
		return LevelAds
	}
}

// Row is one raw daily performance record for one entity. Spend and revenue
// arrive as text from the source and are parsed once at the scan boundary;
// aggregation logic only ever sees typed numerics.
type Row struct {
	CampaignID   string  `json:"campaign_id"`
	CampaignName string  `json:"campaign_name"`
	AdsetID      string  `json:"adset_id"`
	AdsetName    string  `json:"adset_name"`
	AdID         string  `json:"ad_id"`
	AdName       string  `json:"ad_name"`
	Date         string  `json:"date"` // ISO yyyy-mm-dd
	Impressions  int64   `json:"impressions"`
	Reach        int64   `json:"reach"`
	Clicks       int64   `json:"clicks"`
	LinkClicks   int64   `json:"link_clicks"`
	Spend        float64 `json:"spend"`
	Leads        int64   `json:"leads"`
	Conversions  int64   `json:"conversions"`
	Revenue      float64 `json:"revenue"`
	Frequency    float64 `json:"frequency"`
	Status       string  `json:"status"`
	Objective    string  `json:"objective"`
}

// EntityID returns the grouping id for the given level.
func (r Row) EntityID(level DrillLevel) string {
	switch level {
	case LevelAdsets:
		return r.AdsetID
	case LevelAds:
		return r.AdID
	default:
		return r.CampaignID
	}
}

// EntityName returns the display name for the given level.
func (r Row) EntityName(level DrillLevel) string {
	switch level {
	case LevelAdsets:
		return r.AdsetName
	case LevelAds:
		return r.AdName
	default:
		return r.CampaignName
	}
}

// ParseAmount converts a text-typed monetary value to float64, coercing
// anything unparsable to zero. Availability beats strict validation here:
// a single bad row must not take down a dashboard query.
func ParseAmount(raw string) float64 {
	cleaned := strings.TrimSpace(raw)
	if cleaned == "" {
		return 0
	}
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0
	}
	return v
}
