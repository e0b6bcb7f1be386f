// Package metrics defines the catalog of displayable campaign metrics and
// their computation rules. The catalog is an immutable registry injected
// wherever metric values are resolved, so tests can run against synthetic
// catalogs without shared global state.
package metrics

import (
	"fmt"
	"strconv"
)

// ValueType tells the UI how to format a metric value.
type ValueType string

const (
	TypeNumber   ValueType = "number"
	TypeCurrency ValueType = "currency"
	TypePercent  ValueType = "percent"
)

// Base holds the summed counters a metric is evaluated against. Derived
// metrics are always recomputed from these fields; their per-row values are
// never summed across rows or periods.
type Base struct {
	Impressions int64
	Reach       int64
	Clicks      int64
	LinkClicks  int64
	Spend       float64
	Leads       int64
	Conversions int64
	Revenue     float64
	Frequency   float64
}

// Definition describes one displayable metric.
type Definition struct {
	Key        string    `json:"key"`
	Label      string    `json:"label"`
	ShortLabel string    `json:"short_label"`
	Type       ValueType `json:"type"`
	Computed   bool      `json:"computed"`
	Color      string    `json:"color"`

	compute func(Base) float64
}

// Value evaluates the metric against the summed base counters.
func (d Definition) Value(b Base) float64 {
	if d.compute == nil {
		return 0
	}
	return d.compute(b)
}

// Format renders a value according to the metric's type.
func (d Definition) Format(v float64) string {
	switch d.Type {
	case TypeCurrency:
		return fmt.Sprintf("$%.2f", v)
	case TypePercent:
		return fmt.Sprintf("%.2f%%", v)
	default:
		if v == float64(int64(v)) {
			return strconv.FormatInt(int64(v), 10)
		}
		return fmt.Sprintf("%.2f", v)
	}
}

// Registry is an immutable metric catalog.
type Registry struct {
	defs  map[string]Definition
	order []string
}

// NewRegistry builds a registry from definitions. Later duplicates of a key
// replace earlier ones but keep the original position.
func NewRegistry(defs []Definition) *Registry {
	r := &Registry{defs: make(map[string]Definition, len(defs))}
	for _, d := range defs {
		if _, exists := r.defs[d.Key]; !exists {
			r.order = append(r.order, d.Key)
		}
		r.defs[d.Key] = d
	}
	return r
}

// Get returns the definition for key.
func (r *Registry) Get(key string) (Definition, bool) {
	d, ok := r.defs[key]
	return d, ok
}

// Keys returns all metric keys in catalog order.
func (r *Registry) Keys() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Resolve maps metric keys to definitions, preserving the given order.
// Keys with no catalog entry are dropped silently so a stale persisted
// configuration cannot break rendering.
func (r *Registry) Resolve(keys []string) []Definition {
	out := make([]Definition, 0, len(keys))
	for _, key := range keys {
		if d, ok := r.defs[key]; ok {
			out = append(out, d)
		}
	}
	return out
}

// DefaultVisible is the hardcoded fallback metric selection used when
// neither an entity-specific nor a client-default configuration exists.
var DefaultVisible = []string{"impressions", "clicks", "ctr", "spend", "leads", "cpl"}

func ratio(num, den float64) float64 {
	if den == 0 {
		return 0
	}
	return num / den
}

// DefaultRegistry returns the built-in metric catalog.
func DefaultRegistry() *Registry {
	return NewRegistry([]Definition{
		{Key: "impressions", Label: "Impressions", ShortLabel: "Impr.", Type: TypeNumber, Color: "#3b82f6",
			compute: func(b Base) float64 { return float64(b.Impressions) }},
		{Key: "reach", Label: "Reach", ShortLabel: "Reach", Type: TypeNumber, Color: "#06b6d4",
			compute: func(b Base) float64 { return float64(b.Reach) }},
		{Key: "clicks", Label: "Clicks", ShortLabel: "Clicks", Type: TypeNumber, Color: "#8b5cf6",
			compute: func(b Base) float64 { return float64(b.Clicks) }},
		{Key: "link_clicks", Label: "Link Clicks", ShortLabel: "L.Clicks", Type: TypeNumber, Color: "#a855f7",
			compute: func(b Base) float64 { return float64(b.LinkClicks) }},
		{Key: "spend", Label: "Amount Spent", ShortLabel: "Spend", Type: TypeCurrency, Color: "#ef4444",
			compute: func(b Base) float64 { return b.Spend }},
		{Key: "leads", Label: "Leads", ShortLabel: "Leads", Type: TypeNumber, Color: "#22c55e",
			compute: func(b Base) float64 { return float64(b.Leads) }},
		{Key: "conversions", Label: "Conversions", ShortLabel: "Conv.", Type: TypeNumber, Color: "#10b981",
			compute: func(b Base) float64 { return float64(b.Conversions) }},
		{Key: "revenue", Label: "Revenue", ShortLabel: "Rev.", Type: TypeCurrency, Color: "#f59e0b",
			compute: func(b Base) float64 { return b.Revenue }},
		{Key: "frequency", Label: "Frequency", ShortLabel: "Freq.", Type: TypeNumber, Color: "#64748b",
			compute: func(b Base) float64 { return b.Frequency }},
		{Key: "ctr", Label: "Click-Through Rate", ShortLabel: "CTR", Type: TypePercent, Computed: true, Color: "#6366f1",
			compute: func(b Base) float64 { return ratio(float64(b.Clicks), float64(b.Impressions)) * 100 }},
		{Key: "cpc", Label: "Cost per Click", ShortLabel: "CPC", Type: TypeCurrency, Computed: true, Color: "#ec4899",
			compute: func(b Base) float64 { return ratio(b.Spend, float64(b.Clicks)) }},
		{Key: "cpm", Label: "Cost per 1k Impressions", ShortLabel: "CPM", Type: TypeCurrency, Computed: true, Color: "#f43f5e",
			compute: func(b Base) float64 { return ratio(b.Spend, float64(b.Impressions)) * 1000 }},
		{Key: "cpl", Label: "Cost per Lead", ShortLabel: "CPL", Type: TypeCurrency, Computed: true, Color: "#d946ef",
			compute: func(b Base) float64 { return ratio(b.Spend, float64(b.Leads)) }},
		{Key: "cvr", Label: "Conversion Rate", ShortLabel: "CVR", Type: TypePercent, Computed: true, Color: "#14b8a6",
			compute: func(b Base) float64 { return ratio(float64(b.Conversions), float64(b.Clicks)) * 100 }},
		{Key: "roas", Label: "Return on Ad Spend", ShortLabel: "ROAS", Type: TypeNumber, Computed: true, Color: "#eab308",
			compute: func(b Base) float64 { return ratio(b.Revenue, b.Spend) }},
	})
}
