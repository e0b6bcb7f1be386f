package cli

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"io"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adscopehq/adscope/internal/insights"
	"github.com/adscopehq/adscope/internal/metrics"
)

func captureStdout(t *testing.T, fn func()) string {
	t.Helper()
	original := os.Stdout
	r, w, err := os.Pipe()
	require.NoError(t, err)

	os.Stdout = w
	fn()
	_ = w.Close()
	os.Stdout = original

	var buf bytes.Buffer
	_, _ = io.Copy(&buf, r)
	return buf.String()
}

func reportFixture() ([]insights.Entity, []metrics.Definition) {
	entities := []insights.Entity{
		{
			ID:       "camp-1",
			Name:     "Spring Sale",
			Status:   "ACTIVE",
			RowCount: 3,
			Base: metrics.Base{
				Impressions: 1000,
				Clicks:      50,
				Spend:       125.50,
				Leads:       10,
			},
		},
		{
			ID:       "camp-2",
			Name:     "Brand Awareness",
			Status:   "PAUSED",
			RowCount: 1,
			Base: metrics.Base{
				Impressions: 400,
				Clicks:      4,
				Spend:       20,
			},
		},
	}
	defs := metrics.DefaultRegistry().Resolve(metrics.DefaultVisible)
	return entities, defs
}

func TestRenderReportTable(t *testing.T) {
	entities, defs := reportFixture()

	output := captureStdout(t, func() {
		require.NoError(t, renderReportTable(entities, defs))
	})

	assert.Contains(t, output, "Spring Sale")
	assert.Contains(t, output, "ACTIVE")
	assert.Contains(t, output, "$125.50")
	// ctr = 50/1000
	assert.Contains(t, output, "5.00%")
	assert.Contains(t, output, "Brand Awareness")
}

func TestRenderReportTableEmpty(t *testing.T) {
	output := captureStdout(t, func() {
		require.NoError(t, renderReportTable(nil, nil))
	})
	assert.Contains(t, output, "No insight rows in range")
}

func TestRenderReportCSV(t *testing.T) {
	entities, defs := reportFixture()

	output := captureStdout(t, func() {
		require.NoError(t, renderReportCSV(entities, defs))
	})

	records, err := csv.NewReader(strings.NewReader(output)).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)

	assert.Equal(t, []string{"id", "name", "status", "objective", "rows", "impressions", "clicks", "ctr", "spend", "leads", "cpl"}, records[0])
	assert.Equal(t, "camp-1", records[1][0])
	assert.Equal(t, "125.5", records[1][8])
	// cpl = 125.50 / 10
	assert.Equal(t, "12.55", records[1][10])
}

func TestRenderReportJSON(t *testing.T) {
	entities, defs := reportFixture()

	output := captureStdout(t, func() {
		require.NoError(t, renderReportJSON(entities, defs))
	})

	var payload []map[string]any
	require.NoError(t, json.Unmarshal([]byte(output), &payload))
	require.Len(t, payload, 2)

	assert.Equal(t, "Spring Sale", payload[0]["name"])
	values := payload[0]["metrics"].(map[string]any)
	assert.InDelta(t, 5.0, values["ctr"], 0.0001)
	assert.InDelta(t, 125.5, values["spend"], 0.0001)
}

func TestReportRangeDefaults(t *testing.T) {
	start, end, err := reportRange("", "")
	require.NoError(t, err)
	assert.Equal(t, 30*24*time.Hour, end.Sub(start))
}

func TestReportRangeExplicit(t *testing.T) {
	start, end, err := reportRange("2026-03-01", "2026-03-15")
	require.NoError(t, err)
	assert.Equal(t, "2026-03-01", start.Format("2006-01-02"))
	assert.Equal(t, "2026-03-15", end.Format("2006-01-02"))
}

func TestReportRangeRejectsReversed(t *testing.T) {
	_, _, err := reportRange("2026-03-15", "2026-03-01")
	assert.Error(t, err)
}

func TestReportRangeRejectsGarbage(t *testing.T) {
	_, _, err := reportRange("yesterday", "")
	assert.Error(t, err)
}

func TestReportParentFilter(t *testing.T) {
	t.Cleanup(func() {
		reportCampaignIDs = nil
		reportAdsetIDs = nil
	})

	reportCampaignIDs = []string{"camp-1"}
	reportAdsetIDs = []string{"as-1"}

	column, ids := reportParentFilter(insights.LevelCampaigns)
	assert.Empty(t, column)
	assert.Empty(t, ids)

	column, ids = reportParentFilter(insights.LevelAdsets)
	assert.Equal(t, "campaign_id", column)
	assert.Equal(t, []string{"camp-1"}, ids)

	column, ids = reportParentFilter(insights.LevelAds)
	assert.Equal(t, "adset_id", column)
	assert.Equal(t, []string{"as-1"}, ids)

	reportAdsetIDs = nil
	column, ids = reportParentFilter(insights.LevelAds)
	assert.Equal(t, "campaign_id", column)
	assert.Equal(t, []string{"camp-1"}, ids)
}
