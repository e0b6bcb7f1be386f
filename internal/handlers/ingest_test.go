package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ownershipResponse(owned bool) mockResponse {
	return mockResponse{
		match:   "SELECT EXISTS (SELECT 1 FROM clients",
		columns: []string{"exists"},
		rows:    [][]interface{}{{owned}},
	}
}

func TestHandleIngest_UpsertsAndNotifies(t *testing.T) {
	orgID := uuid.New()
	clientID := uuid.New()

	responses := []mockResponse{
		ownershipResponse(true),
		{match: "INSERT INTO campaign_insights"},
		{match: "INSERT INTO campaign_insights"},
		{match: "SELECT pg_notify($1, $2)"},
	}

	app, queue := setupFiberTest(t, http.MethodPost, "/api/ingest", HandleIngest, orgID, responses)

	payload := fmt.Sprintf(`{
		"client_id": %q,
		"rows": [
			{"date": "2026-03-01", "campaign_id": "camp-1", "campaign_name": "Spring Sale",
			 "impressions": 100, "clicks": 5, "spend": 10.5, "leads": 2},
			{"date": "2026-03-01", "campaign_id": "camp-1", "adset_id": "as-1", "adset_name": "Lookalikes",
			 "impressions": 60, "clicks": 3, "spend": 6.0, "leads": 1}
		]
	}`, clientID)

	req := httptest.NewRequest(http.MethodPost, "/api/ingest", strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusAccepted, resp.StatusCode)

	var body IngestResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, 2, body.Accepted)
	assert.Equal(t, 0, body.Failed)

	require.NoError(t, queue.expectationsMet())
}

func TestHandleIngest_BadRowFailsAlone(t *testing.T) {
	orgID := uuid.New()
	clientID := uuid.New()

	responses := []mockResponse{
		ownershipResponse(true),
		{match: "INSERT INTO campaign_insights"},
		{match: "SELECT pg_notify"},
	}

	app, queue := setupFiberTest(t, http.MethodPost, "/api/ingest", HandleIngest, orgID, responses)

	// Second row violates the shape invariant: ad without ad set.
	payload := fmt.Sprintf(`{
		"client_id": %q,
		"rows": [
			{"date": "2026-03-01", "campaign_id": "camp-1", "impressions": 100},
			{"date": "2026-03-01", "campaign_id": "camp-1", "ad_id": "ad-1", "impressions": 50}
		]
	}`, clientID)

	req := httptest.NewRequest(http.MethodPost, "/api/ingest", strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusAccepted, resp.StatusCode)

	var body IngestResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, 1, body.Accepted)
	assert.Equal(t, 1, body.Failed)
	require.Len(t, body.Errors, 1)
	assert.Equal(t, 1, body.Errors[0].Index)

	require.NoError(t, queue.expectationsMet())
}

func TestHandleIngest_RejectsNegativeCounters(t *testing.T) {
	orgID := uuid.New()
	clientID := uuid.New()

	responses := []mockResponse{
		ownershipResponse(true),
	}

	app, queue := setupFiberTest(t, http.MethodPost, "/api/ingest", HandleIngest, orgID, responses)

	payload := fmt.Sprintf(`{
		"client_id": %q,
		"rows": [
			{"date": "2026-03-01", "campaign_id": "camp-1", "impressions": -5}
		]
	}`, clientID)

	req := httptest.NewRequest(http.MethodPost, "/api/ingest", strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	var body IngestResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, 0, body.Accepted)
	assert.Equal(t, 1, body.Failed)
	assert.Contains(t, body.Errors[0].Error, "impressions")

	require.NoError(t, queue.expectationsMet())
}

func TestHandleIngest_ClientNotOwned(t *testing.T) {
	orgID := uuid.New()
	clientID := uuid.New()

	responses := []mockResponse{
		ownershipResponse(false),
	}

	app, queue := setupFiberTest(t, http.MethodPost, "/api/ingest", HandleIngest, orgID, responses)

	payload := fmt.Sprintf(`{
		"client_id": %q,
		"rows": [{"date": "2026-03-01", "campaign_id": "camp-1"}]
	}`, clientID)

	req := httptest.NewRequest(http.MethodPost, "/api/ingest", strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	require.NoError(t, queue.expectationsMet())
}

func TestHandleIngest_EmptyBatchRejected(t *testing.T) {
	orgID := uuid.New()
	clientID := uuid.New()

	app, _ := setupFiberTest(t, http.MethodPost, "/api/ingest", HandleIngest, orgID, nil)

	payload := fmt.Sprintf(`{"client_id": %q, "rows": []}`, clientID)
	req := httptest.NewRequest(http.MethodPost, "/api/ingest", strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
