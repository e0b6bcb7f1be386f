package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandleInsightSummary_FromRollup(t *testing.T) {
	orgID := uuid.New()
	clientID := uuid.New()

	responses := []mockResponse{
		clientLookupResponse(orgID, clientID, "Acme"),
		{
			match:   "FROM daily_insight_rollup",
			columns: []string{"impressions", "clicks", "spend", "leads", "conversions", "revenue"},
			rows: [][]interface{}{
				{int64(1000), int64(50), "125.00", int64(10), int64(4), "400.00"},
			},
		},
		{
			match:   "FROM metric_display_configs",
			columns: []string{"entity_id", "visible_metrics"},
			rows:    [][]interface{}{},
		},
	}

	app, queue := setupFiberTest(t, http.MethodGet, "/api/insights/:client_id/summary", HandleInsightSummary, orgID, responses)

	req := httptest.NewRequest(http.MethodGet,
		"/api/insights/"+clientID.String()+"/summary?start_date=2026-03-01&end_date=2026-03-07", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body SummaryResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))

	assert.Equal(t, 7, body.Days)

	byKey := make(map[string]MetricValue)
	for _, card := range body.Cards {
		byKey[card.Key] = card
	}

	assert.Equal(t, float64(1000), byKey["impressions"].Value)
	assert.InDelta(t, 125.00, byKey["spend"].Value, 0.001)
	assert.InDelta(t, 5.0, byKey["ctr"].Value, 0.001)
	assert.InDelta(t, 12.5, byKey["cpl"].Value, 0.001)

	require.NoError(t, queue.expectationsMet())
}

func TestHandleInsightSummary_FallsBackToFactTable(t *testing.T) {
	orgID := uuid.New()
	clientID := uuid.New()

	responses := []mockResponse{
		clientLookupResponse(orgID, clientID, "Acme"),
		{
			match: "FROM daily_insight_rollup",
			err:   assert.AnError,
		},
		{
			match:   "FROM campaign_insights",
			columns: []string{"impressions", "clicks", "spend", "leads", "conversions", "revenue"},
			rows: [][]interface{}{
				{int64(200), int64(10), "20.00", int64(2), int64(1), "55.00"},
			},
		},
		{
			match:   "FROM metric_display_configs",
			columns: []string{"entity_id", "visible_metrics"},
			rows:    [][]interface{}{},
		},
	}

	app, queue := setupFiberTest(t, http.MethodGet, "/api/insights/:client_id/summary", HandleInsightSummary, orgID, responses)

	req := httptest.NewRequest(http.MethodGet,
		"/api/insights/"+clientID.String()+"/summary?start_date=2026-03-01&end_date=2026-03-01", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body SummaryResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))

	byKey := make(map[string]MetricValue)
	for _, card := range body.Cards {
		byKey[card.Key] = card
	}
	assert.Equal(t, float64(200), byKey["impressions"].Value)
	assert.InDelta(t, 20.00, byKey["spend"].Value, 0.001)

	require.NoError(t, queue.expectationsMet())
}
