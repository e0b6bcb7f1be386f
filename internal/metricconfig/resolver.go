package metricconfig

import (
	"github.com/adscopehq/adscope/internal/metrics"
)

// Resolver answers "which metrics should this entity display" against a
// batch-loaded config map and an injected catalog.
type Resolver struct {
	registry *metrics.Registry
	configs  map[string][]string
}

// NewResolver wraps a config map (as returned by Load) and a catalog.
func NewResolver(registry *metrics.Registry, configs map[string][]string) *Resolver {
	if configs == nil {
		configs = map[string][]string{}
	}
	return &Resolver{registry: registry, configs: configs}
}

// Keys returns the ordered metric keys for an entity: its own config if
// present, else the __default__ config, else the hardcoded default list.
func (r *Resolver) Keys(entityID string) []string {
	if keys, ok := r.configs[entityID]; ok {
		return keys
	}
	if keys, ok := r.configs[DefaultEntityID]; ok {
		return keys
	}
	return metrics.DefaultVisible
}

// Resolve maps the entity's metric keys through the catalog, preserving
// order and silently dropping keys the catalog no longer defines.
func (r *Resolver) Resolve(entityID string) []metrics.Definition {
	return r.registry.Resolve(r.Keys(entityID))
}
