package insights

import "sort"

// Navigator tracks the current drill level and the per-level selection
// sets that scope child-level queries. Drilling into an entity narrows
// scope and clears the child selection; switching tabs directly preserves
// every selection, so accumulated filters survive non-drill navigation.
type Navigator struct {
	level     DrillLevel
	campaigns map[string]struct{}
	adsets    map[string]struct{}
	ads       map[string]struct{}
}

// NewNavigator starts at the campaigns level with no selections.
func NewNavigator() *Navigator {
	return &Navigator{
		level:     LevelCampaigns,
		campaigns: make(map[string]struct{}),
		adsets:    make(map[string]struct{}),
		ads:       make(map[string]struct{}),
	}
}

// Level returns the current drill level.
func (n *Navigator) Level() DrillLevel {
	return n.level
}

// DrillDown selects one entity at the current level and descends to its
// children. From campaigns this pins the campaign filter and clears any
// ad set selection; from ad sets it pins the ad set filter and clears the
// ad selection. At the ads level drill-down is terminal and reports false.
func (n *Navigator) DrillDown(entityID string) bool {
	switch n.level {
	case LevelCampaigns:
		n.campaigns = map[string]struct{}{entityID: {}}
		n.adsets = make(map[string]struct{})
		n.level = LevelAdsets
		return true
	case LevelAdsets:
		n.adsets = map[string]struct{}{entityID: {}}
		n.ads = make(map[string]struct{})
		n.level = LevelAds
		return true
	default:
		return false
	}
}

// SwitchTab navigates directly to a level without touching selections.
func (n *Navigator) SwitchTab(level DrillLevel) {
	n.level = level
}

// SetSelection replaces the selection set for a level, supporting
// multi-entity filters built outside the drill path.
func (n *Navigator) SetSelection(level DrillLevel, ids []string) {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if id != "" {
			set[id] = struct{}{}
		}
	}
	switch level {
	case LevelAdsets:
		n.adsets = set
	case LevelAds:
		n.ads = set
	default:
		n.campaigns = set
	}
}

// Selection returns the sorted selection ids for a level.
func (n *Navigator) Selection(level DrillLevel) []string {
	var set map[string]struct{}
	switch level {
	case LevelAdsets:
		set = n.adsets
	case LevelAds:
		set = n.ads
	default:
		set = n.campaigns
	}
	ids := make([]string, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// ClearFilters resets every selection set and returns to the campaigns level.
func (n *Navigator) ClearFilters() {
	n.campaigns = make(map[string]struct{})
	n.adsets = make(map[string]struct{})
	n.ads = make(map[string]struct{})
	n.level = LevelCampaigns
}

// ParentFilter yields the parent-scope filter for the current level's
// backing query: ad sets are filtered by selected campaigns; ads prefer
// selected ad sets and fall back to selected campaigns. An empty column
// means unfiltered.
func (n *Navigator) ParentFilter() (column string, ids []string) {
	switch n.level {
	case LevelAdsets:
		if len(n.campaigns) > 0 {
			return "campaign_id", n.Selection(LevelCampaigns)
		}
	case LevelAds:
		if len(n.adsets) > 0 {
			return "adset_id", n.Selection(LevelAdsets)
		}
		if len(n.campaigns) > 0 {
			return "campaign_id", n.Selection(LevelCampaigns)
		}
	}
	return "", nil
}

// FilterCounts reports how many campaigns and ad sets are selected, for
// the "filtering by N campaigns" banner.
func (n *Navigator) FilterCounts() (campaigns, adsets int) {
	return len(n.campaigns), len(n.adsets)
}
