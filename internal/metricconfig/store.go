// Package metricconfig persists per-entity metric display configurations:
// which metrics a user wants shown for a campaign, ad set, or ad, in what
// order. Configs are keyed by (organization, client, entity type, entity id)
// with a __default__ sentinel entity for client-wide defaults.
package metricconfig

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/adscopehq/adscope/internal/database"
)

// DefaultEntityID is the sentinel entity id for the fallback configuration
// applying to every entity without its own row.
const DefaultEntityID = "__default__"

// Load batch-fetches all configs for one tenant scope and entity type in a
// single round trip, so rendering a list of entities never fans out into
// per-entity queries. The result maps entity id (including the sentinel)
// to the ordered metric key list.
func Load(ctx context.Context, orgID, clientID uuid.UUID, entityType string) (map[string][]string, error) {
	rows, err := database.DB.QueryContext(ctx, `
		SELECT entity_id, visible_metrics
		FROM metric_display_configs
		WHERE organization_id = $1
		  AND client_id = $2
		  AND entity_type = $3`,
		orgID, clientID, entityType)
	if err != nil {
		return nil, fmt.Errorf("metric config query failed: %w", err)
	}
	defer func() { _ = rows.Close() }()

	configs := make(map[string][]string)
	for rows.Next() {
		var entityID string
		var keys []string
		if err := rows.Scan(&entityID, pq.Array(&keys)); err != nil {
			continue
		}
		configs[entityID] = keys
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("metric config scan failed: %w", err)
	}

	return configs, nil
}

// Save upserts one configuration. An empty entity id targets the sentinel
// default row. The key order is persisted as given; it is the display
// order, not insertion or catalog order. Last writer wins on the 4-column
// conflict key; there is no versioning.
func Save(ctx context.Context, orgID, clientID uuid.UUID, entityType, entityID string, orderedKeys []string) error {
	if entityID == "" {
		entityID = DefaultEntityID
	}

	_, err := database.DB.ExecContext(ctx, `
		INSERT INTO metric_display_configs (organization_id, client_id, entity_type, entity_id, visible_metrics, updated_at)
		VALUES ($1, $2, $3, $4, $5, now())
		ON CONFLICT (organization_id, client_id, entity_type, entity_id)
		DO UPDATE SET visible_metrics = EXCLUDED.visible_metrics, updated_at = now()`,
		orgID, clientID, entityType, entityID, pq.Array(orderedKeys))
	if err != nil {
		return fmt.Errorf("metric config upsert failed: %w", err)
	}

	return nil
}
