package insights

import (
	"sort"

	"github.com/adscopehq/adscope/internal/metrics"
)

// Entity is one aggregated summary row: all additive counters summed over
// the contributing daily rows, frequency averaged.
type Entity struct {
	ID        string       `json:"id"`
	Name      string       `json:"name"`
	Status    string       `json:"status"`
	Objective string       `json:"objective"`
	RowCount  int          `json:"row_count"`
	Base      metrics.Base `json:"totals"`
}

// Aggregate groups rows by the entity id for the given level, summing the
// additive counters and averaging frequency over the group's row count.
// Frequency uses a simple arithmetic mean, not an impression-weighted one.
// The result is sorted by spend descending.
func Aggregate(rows []Row, level DrillLevel) []Entity {
	groups := make(map[string]*Entity)
	order := make([]string, 0)

	for _, row := range rows {
		id := row.EntityID(level)
		if id == "" {
			continue
		}

		e, ok := groups[id]
		if !ok {
			e = &Entity{ID: id, Name: row.EntityName(level)}
			groups[id] = e
			order = append(order, id)
		}

		e.Base.Impressions += row.Impressions
		e.Base.Reach += row.Reach
		e.Base.Clicks += row.Clicks
		e.Base.LinkClicks += row.LinkClicks
		e.Base.Spend += row.Spend
		e.Base.Leads += row.Leads
		e.Base.Conversions += row.Conversions
		e.Base.Revenue += row.Revenue
		e.Base.Frequency += row.Frequency
		e.RowCount++

		// Latest row wins for point-in-time attributes
		if row.Status != "" {
			e.Status = row.Status
		}
		if row.Objective != "" {
			e.Objective = row.Objective
		}
		if e.Name == "" {
			e.Name = row.EntityName(level)
		}
	}

	out := make([]Entity, 0, len(groups))
	for _, id := range order {
		e := groups[id]
		if e.RowCount > 0 {
			e.Base.Frequency /= float64(e.RowCount)
		}
		out = append(out, *e)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Base.Spend != out[j].Base.Spend {
			return out[i].Base.Spend > out[j].Base.Spend
		}
		return out[i].ID < out[j].ID
	})

	return out
}
