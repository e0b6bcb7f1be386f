package handlers

import (
	"github.com/adscopehq/adscope/internal/insights"
	"github.com/adscopehq/adscope/internal/metrics"
)

// MetricValue is one resolved metric cell: the definition metadata plus the
// value computed from an entity's summed counters.
type MetricValue struct {
	Key       string  `json:"key"`
	Label     string  `json:"label"`
	Type      string  `json:"type"`
	Computed  bool    `json:"computed"`
	Value     float64 `json:"value"`
	Formatted string  `json:"formatted"`
}

// EntityRow is one aggregated table row with its visible metrics resolved.
type EntityRow struct {
	ID        string        `json:"id"`
	Name      string        `json:"name"`
	Status    string        `json:"status,omitempty"`
	Objective string        `json:"objective,omitempty"`
	RowCount  int           `json:"row_count"`
	Metrics   []MetricValue `json:"metrics"`
}

// InsightsResponse is the payload for the aggregated entity table.
type InsightsResponse struct {
	ClientID   string         `json:"client_id"`
	Level      string         `json:"level"`
	StartDate  string         `json:"start_date"`
	EndDate    string         `json:"end_date"`
	Data       []EntityRow    `json:"data"`
	Pagination PaginationMeta `json:"pagination"`
}

// SeriesEntity is one entity's values across the period columns, parallel
// to the response's periods slice.
type SeriesEntity struct {
	ID     string    `json:"id"`
	Name   string    `json:"name"`
	Total  float64   `json:"total"`
	Values []float64 `json:"values"`
}

// SeriesResponse is the payload for the period pivot view.
type SeriesResponse struct {
	ClientID    string            `json:"client_id"`
	Level       string            `json:"level"`
	Granularity string            `json:"granularity"`
	Metric      MetricValue       `json:"metric"`
	Periods     []insights.Period `json:"periods"`
	Truncated   bool              `json:"truncated"`
	Entities    []SeriesEntity    `json:"entities"`
}

// SummaryResponse holds range totals for the summary cards.
type SummaryResponse struct {
	ClientID  string        `json:"client_id"`
	StartDate string        `json:"start_date"`
	EndDate   string        `json:"end_date"`
	Days      int           `json:"days"`
	Cards     []MetricValue `json:"cards"`
}

// MetricConfigResponse returns the persisted per-entity selections for one
// entity type alongside the full catalog.
type MetricConfigResponse struct {
	ClientID   string               `json:"client_id"`
	EntityType string               `json:"entity_type"`
	Configs    map[string][]string  `json:"configs"`
	Default    []string             `json:"default"`
	Catalog    []metrics.Definition `json:"catalog"`
}

// SaveMetricConfigRequest is the payload for persisting a metric selection.
// An empty entity_id targets the client-wide default.
type SaveMetricConfigRequest struct {
	EntityType string   `json:"entity_type" validate:"required,oneof=campaign adset ad"`
	EntityID   string   `json:"entity_id" validate:"omitempty,max=100"`
	Metrics    []string `json:"metrics" validate:"required,min=1,max=30,dive,required,max=50"`
}

// metricValues evaluates the given definitions against summed counters.
func metricValues(defs []metrics.Definition, base metrics.Base) []MetricValue {
	out := make([]MetricValue, 0, len(defs))
	for _, d := range defs {
		v := d.Value(base)
		out = append(out, MetricValue{
			Key:       d.Key,
			Label:     d.Label,
			Type:      string(d.Type),
			Computed:  d.Computed,
			Value:     v,
			Formatted: d.Format(v),
		})
	}
	return out
}
