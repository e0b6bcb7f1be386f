package handlers

import (
	"slices"
	"sort"
	"strings"

	"github.com/gofiber/fiber/v3"

	"github.com/adscopehq/adscope/internal/insights"
)

// SortDirection represents sort order
type SortDirection string

const (
	SortAsc  SortDirection = "asc"
	SortDesc SortDirection = "desc"
)

// PaginationParams holds pagination and sorting query parameters
type PaginationParams struct {
	Page      int           `json:"page"`       // 1-indexed page number (default: 1)
	Per       int           `json:"per"`        // Items per page (default: 25, max: 200)
	Offset    int           `json:"-"`          // Calculated offset (not exposed in JSON)
	SortBy    string        `json:"sort_by"`    // Column to sort by (default: "spend")
	SortOrder SortDirection `json:"sort_order"` // Sort direction: "asc" or "desc" (default: "desc")
}

// PaginationMeta contains pagination metadata
type PaginationMeta struct {
	Page       int   `json:"page"`
	Per        int   `json:"per"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasMore    bool  `json:"has_more"`
}

// ValidSortColumns defines allowed sort columns per endpoint type
var ValidSortColumns = map[string][]string{
	"entities": {"spend", "name", "impressions", "clicks", "leads", "conversions", "revenue"},
}

// ParsePaginationParams extracts and validates pagination from the request
func ParsePaginationParams(c fiber.Ctx) PaginationParams {
	page := max(fiber.Query[int](c, "page", 1), 1)
	per := min(max(fiber.Query[int](c, "per", 25), 1), 200)
	offset := (page - 1) * per

	sortBy := strings.ToLower(c.Query("sort_by", "spend"))
	sortOrder := SortDirection(strings.ToLower(c.Query("sort_order", "desc")))

	if sortOrder != SortAsc && sortOrder != SortDesc {
		sortOrder = SortDesc
	}

	return PaginationParams{
		Page:      page,
		Per:       per,
		Offset:    offset,
		SortBy:    sortBy,
		SortOrder: sortOrder,
	}
}

// ParsePaginationParamsWithValidation extracts pagination with column validation
func ParsePaginationParamsWithValidation(c fiber.Ctx, endpointType string) PaginationParams {
	params := ParsePaginationParams(c)

	validColumns, ok := ValidSortColumns[endpointType]
	if ok && !slices.Contains(validColumns, params.SortBy) {
		params.SortBy = validColumns[0]
	}

	return params
}

// BuildPaginationMeta creates pagination metadata from list totals
func BuildPaginationMeta(params PaginationParams, total int64) PaginationMeta {
	var totalPages int
	if total > 0 && params.Per > 0 {
		totalPages = int((total + int64(params.Per) - 1) / int64(params.Per))
	}
	hasMore := params.Page < totalPages

	return PaginationMeta{
		Page:       params.Page,
		Per:        params.Per,
		Total:      total,
		TotalPages: totalPages,
		HasMore:    hasMore,
	}
}

// sortEntities orders aggregated entities in place by the requested column.
// Ties fall back to id ascending so pages are stable across requests.
func sortEntities(entities []insights.Entity, params PaginationParams) {
	asc := params.SortOrder == SortAsc

	value := func(e insights.Entity) float64 {
		switch params.SortBy {
		case "impressions":
			return float64(e.Base.Impressions)
		case "clicks":
			return float64(e.Base.Clicks)
		case "leads":
			return float64(e.Base.Leads)
		case "conversions":
			return float64(e.Base.Conversions)
		case "revenue":
			return e.Base.Revenue
		default:
			return e.Base.Spend
		}
	}

	sort.SliceStable(entities, func(i, j int) bool {
		if params.SortBy == "name" {
			a, b := strings.ToLower(entities[i].Name), strings.ToLower(entities[j].Name)
			if a != b {
				if asc {
					return a < b
				}
				return a > b
			}
			return entities[i].ID < entities[j].ID
		}

		a, b := value(entities[i]), value(entities[j])
		if a != b {
			if asc {
				return a < b
			}
			return a > b
		}
		return entities[i].ID < entities[j].ID
	})
}

// pageSlice returns the requested page of entities.
func pageSlice(entities []insights.Entity, params PaginationParams) []insights.Entity {
	if params.Offset >= len(entities) {
		return nil
	}
	end := min(params.Offset+params.Per, len(entities))
	return entities[params.Offset:end]
}
