package insights

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNavigatorStartsAtCampaignsUnfiltered(t *testing.T) {
	n := NewNavigator()
	assert.Equal(t, LevelCampaigns, n.Level())

	column, ids := n.ParentFilter()
	assert.Empty(t, column)
	assert.Empty(t, ids)
}

func TestDrillDownFromCampaignSetsParentFilter(t *testing.T) {
	n := NewNavigator()

	require.True(t, n.DrillDown("A"))

	assert.Equal(t, LevelAdsets, n.Level())
	column, ids := n.ParentFilter()
	assert.Equal(t, "campaign_id", column)
	assert.Equal(t, []string{"A"}, ids)
}

func TestDrillDownClearsChildSelection(t *testing.T) {
	n := NewNavigator()
	n.SetSelection(LevelAdsets, []string{"as1", "as2"})

	require.True(t, n.DrillDown("A"))

	assert.Empty(t, n.Selection(LevelAdsets))
}

func TestDrillDownAtAdsLevelIsTerminal(t *testing.T) {
	n := NewNavigator()
	n.DrillDown("A")
	n.DrillDown("as1")
	assert.Equal(t, LevelAds, n.Level())

	assert.False(t, n.DrillDown("ad9"))
	assert.Equal(t, LevelAds, n.Level())
}

func TestAdsLevelPrefersAdsetFilterFallsBackToCampaigns(t *testing.T) {
	n := NewNavigator()
	n.DrillDown("A")
	n.DrillDown("as1")

	column, ids := n.ParentFilter()
	assert.Equal(t, "adset_id", column)
	assert.Equal(t, []string{"as1"}, ids)

	// Without an ad set selection the campaign selection scopes the query.
	n.SetSelection(LevelAdsets, nil)
	column, ids = n.ParentFilter()
	assert.Equal(t, "campaign_id", column)
	assert.Equal(t, []string{"A"}, ids)
}

func TestSwitchTabPreservesSelections(t *testing.T) {
	n := NewNavigator()
	n.DrillDown("A")
	n.SetSelection(LevelAdsets, []string{"as1", "as2"})

	n.SwitchTab(LevelCampaigns)
	n.SwitchTab(LevelAds)

	assert.Equal(t, []string{"A"}, n.Selection(LevelCampaigns))
	assert.Equal(t, []string{"as1", "as2"}, n.Selection(LevelAdsets))

	campaigns, adsets := n.FilterCounts()
	assert.Equal(t, 1, campaigns)
	assert.Equal(t, 2, adsets)
}

func TestClearFiltersResetsEverything(t *testing.T) {
	n := NewNavigator()
	n.DrillDown("A")
	n.DrillDown("as1")
	n.SetSelection(LevelAds, []string{"ad1"})

	n.ClearFilters()

	assert.Equal(t, LevelCampaigns, n.Level())
	assert.Empty(t, n.Selection(LevelCampaigns))
	assert.Empty(t, n.Selection(LevelAdsets))
	assert.Empty(t, n.Selection(LevelAds))

	column, ids := n.ParentFilter()
	assert.Empty(t, column)
	assert.Empty(t, ids)
}

func TestParseLevelDefaultsToCampaigns(t *testing.T) {
	assert.Equal(t, LevelCampaigns, ParseLevel(""))
	assert.Equal(t, LevelCampaigns, ParseLevel("bogus"))
	assert.Equal(t, LevelAdsets, ParseLevel("adsets"))
	assert.Equal(t, LevelAds, ParseLevel(" ADS "))
}
