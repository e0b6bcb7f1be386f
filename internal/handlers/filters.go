package handlers

import (
	"strings"

	"github.com/adscopehq/adscope/internal/insights"
)

// filterEntities applies post-aggregation display filters: an exact
// case-insensitive status match and a case-insensitive name substring
// search. Empty filters pass everything through.
func filterEntities(entities []insights.Entity, status, search string) []insights.Entity {
	if status == "" && search == "" {
		return entities
	}

	status = strings.ToLower(strings.TrimSpace(status))
	search = strings.ToLower(strings.TrimSpace(search))

	out := make([]insights.Entity, 0, len(entities))
	for _, e := range entities {
		if status != "" && strings.ToLower(e.Status) != status {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(e.Name), search) {
			continue
		}
		out = append(out, e)
	}
	return out
}
