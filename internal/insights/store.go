package insights

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/adscopehq/adscope/internal/database"
)

// levelShapeClause restricts the fact table to rows ingested at the given
// granularity: campaign rows carry empty adset/ad ids, ad set rows carry
// an adset id but no ad id, ad rows carry an ad id.
func levelShapeClause(level DrillLevel) string {
	switch level {
	case LevelAdsets:
		return " AND adset_id <> '' AND ad_id = ''"
	case LevelAds:
		return " AND ad_id <> ''"
	default:
		return " AND adset_id = '' AND ad_id = ''"
	}
}

// FetchRows runs the range query backing the aggregation views: all daily
// rows for one tenant scope and level between start and end inclusive,
// optionally filtered by a parent entity id column, ordered by date.
// Spend and revenue are selected as text and parsed here, at the scan
// boundary, so aggregation logic never sees string numerics.
func FetchRows(ctx context.Context, orgID, clientID uuid.UUID, level DrillLevel, start, end time.Time, filterColumn string, filterIDs []string) ([]Row, error) {
	query := `
		SELECT campaign_id, campaign_name, adset_id, adset_name, ad_id, ad_name,
		       to_char(date, 'YYYY-MM-DD'),
		       impressions, reach, clicks, link_clicks, spend::text,
		       leads, conversions, revenue::text, frequency, status, objective
		FROM campaign_insights
		WHERE organization_id = $1
		  AND client_id = $2
		  AND date BETWEEN $3 AND $4` + levelShapeClause(level)

	args := []interface{}{orgID, clientID, start.Format(isoDate), end.Format(isoDate)}

	if filterColumn != "" && len(filterIDs) > 0 {
		switch filterColumn {
		case "campaign_id", "adset_id":
			query += fmt.Sprintf(" AND %s = ANY($%d)", filterColumn, len(args)+1)
			args = append(args, pq.Array(filterIDs))
		default:
			return nil, fmt.Errorf("unsupported filter column %q", filterColumn)
		}
	}

	query += " ORDER BY date"

	rows, err := database.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("insight range query failed: %w", err)
	}
	defer func() { _ = rows.Close() }()

	out := make([]Row, 0)
	for rows.Next() {
		var r Row
		var spend, revenue string
		if err := rows.Scan(
			&r.CampaignID, &r.CampaignName, &r.AdsetID, &r.AdsetName, &r.AdID, &r.AdName,
			&r.Date,
			&r.Impressions, &r.Reach, &r.Clicks, &r.LinkClicks, &spend,
			&r.Leads, &r.Conversions, &revenue, &r.Frequency, &r.Status, &r.Objective,
		); err != nil {
			continue
		}
		r.Spend = ParseAmount(spend)
		r.Revenue = ParseAmount(revenue)
		out = append(out, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("insight range scan failed: %w", err)
	}

	return out, nil
}
