package handlers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	"github.com/adscopehq/adscope/internal/database"
	"github.com/adscopehq/adscope/internal/logging"
	"github.com/adscopehq/adscope/internal/middleware"
	"github.com/adscopehq/adscope/internal/realtime"
)

// Global validator instance
var validate *validator.Validate

func init() {
	validate = validator.New(validator.WithRequiredStructEnabled())

	// Shape invariant: an ad row must also carry its ad set id.
	validate.RegisterStructValidation(func(sl validator.StructLevel) {
		row := sl.Current().Interface().(IngestRow)
		if row.AdID != "" && row.AdsetID == "" {
			sl.ReportError(row.AdsetID, "adset_id", "AdsetID", "required_with_ad", "")
		}
	}, IngestRow{})
}

// IngestRow is one daily performance record for one entity. Which ids are
// set decides the granularity: campaign rows leave adset_id and ad_id
// empty, ad rows carry all three.
type IngestRow struct {
	Date         string  `json:"date" validate:"required,datetime=2006-01-02"`
	CampaignID   string  `json:"campaign_id" validate:"required,max=100"`
	CampaignName string  `json:"campaign_name" validate:"omitempty,max=500"`
	AdsetID      string  `json:"adset_id" validate:"omitempty,max=100"`
	AdsetName    string  `json:"adset_name" validate:"omitempty,max=500"`
	AdID         string  `json:"ad_id" validate:"omitempty,max=100"`
	AdName       string  `json:"ad_name" validate:"omitempty,max=500"`
	Impressions  int64   `json:"impressions" validate:"gte=0"`
	Reach        int64   `json:"reach" validate:"gte=0"`
	Clicks       int64   `json:"clicks" validate:"gte=0"`
	LinkClicks   int64   `json:"link_clicks" validate:"gte=0"`
	Spend        float64 `json:"spend" validate:"gte=0"`
	Leads        int64   `json:"leads" validate:"gte=0"`
	Conversions  int64   `json:"conversions" validate:"gte=0"`
	Revenue      float64 `json:"revenue" validate:"gte=0"`
	Frequency    float64 `json:"frequency" validate:"gte=0"`
	Status       string  `json:"status" validate:"omitempty,max=50"`
	Objective    string  `json:"objective" validate:"omitempty,max=100"`
}

// IngestRequest is a batch of daily rows for one client.
type IngestRequest struct {
	ClientID string      `json:"client_id" validate:"required,uuid"`
	// Rows are validated one by one so a bad row fails alone, not the batch.
	Rows []IngestRow `json:"rows" validate:"required,min=1,max=1000"`
}

// IngestResponse reports per-batch results.
type IngestResponse struct {
	Accepted int           `json:"accepted"`
	Failed   int           `json:"failed"`
	Errors   []IngestError `json:"errors,omitempty"`
}

// IngestError describes a single failed row in a batch.
type IngestError struct {
	Index int    `json:"index"`
	Error string `json:"error"`
}

// HandleIngest upserts daily insight rows from server-side clients. A row
// with the same tenant, date and id triple replaces the previous values,
// so re-syncing a day is idempotent.
// POST /api/ingest
func HandleIngest(c fiber.Ctx) error {
	apiKey := middleware.GetAPIKey(c)
	if apiKey == nil {
		return c.Status(401).JSON(fiber.Map{"error": "Not authenticated"})
	}

	var req IngestRequest
	if err := c.Bind().Body(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid JSON payload"})
	}

	if err := validate.Struct(req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid ingest payload"})
	}

	clientID, err := uuid.Parse(req.ClientID)
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid client ID"})
	}

	var owned bool
	err = database.DB.QueryRowContext(c.Context(),
		`SELECT EXISTS (SELECT 1 FROM clients WHERE id = $1 AND organization_id = $2)`,
		clientID, apiKey.OrganizationID).Scan(&owned)
	if err != nil || !owned {
		return c.Status(404).JSON(fiber.Map{"error": "Client not found"})
	}

	ctx, cancel := context.WithTimeout(c.Context(), 30*time.Second)
	defer cancel()

	response := IngestResponse{Errors: []IngestError{}}

	for i, row := range req.Rows {
		select {
		case <-ctx.Done():
			return c.Status(202).JSON(response)
		default:
		}

		if err := validateIngestRow(&row); err != nil {
			response.Failed++
			response.Errors = append(response.Errors, IngestError{Index: i, Error: err.Error()})
			continue
		}

		if err := upsertInsightRow(ctx, apiKey.OrganizationID, clientID, &row); err != nil {
			logging.L().Error("failed to upsert insight row",
				"client_id", clientID, "date", row.Date, "error", err)
			response.Failed++
			response.Errors = append(response.Errors, IngestError{Index: i, Error: "processing failed"})
			continue
		}

		response.Accepted++
	}

	if response.Accepted > 0 {
		realtime.NotifyChange(ctx, apiKey.OrganizationID, clientID)
	}

	return c.Status(202).JSON(response)
}

// validateIngestRow validates one row using go-playground/validator.
func validateIngestRow(row *IngestRow) error {
	if err := validate.Struct(row); err != nil {
		if validationErrors, ok := err.(validator.ValidationErrors); ok {
			return formatIngestValidationError(validationErrors[0])
		}
		return err
	}
	return nil
}

// formatIngestValidationError converts validator errors to user-facing messages
func formatIngestValidationError(fe validator.FieldError) error {
	field := strings.ToLower(fe.Field())
	switch fe.Tag() {
	case "required":
		return fmt.Errorf("%s is required", field)
	case "max":
		return fmt.Errorf("%s exceeds maximum length of %s", field, fe.Param())
	case "gte":
		return fmt.Errorf("%s must not be negative", field)
	case "datetime":
		return fmt.Errorf("%s must be a YYYY-MM-DD date", field)
	case "required_with_ad":
		return fmt.Errorf("adset_id is required when ad_id is set")
	default:
		return fmt.Errorf("%s is invalid", field)
	}
}

// upsertInsightRow writes one daily fact row, replacing any previous values
// for the same key.
func upsertInsightRow(ctx context.Context, orgID, clientID uuid.UUID, row *IngestRow) error {
	query := `
		INSERT INTO campaign_insights (
			organization_id, client_id, date,
			campaign_id, campaign_name, adset_id, adset_name, ad_id, ad_name,
			impressions, reach, clicks, link_clicks, spend,
			leads, conversions, revenue, frequency, status, objective
		) VALUES (
			$1, $2, $3,
			$4, $5, $6, $7, $8, $9,
			$10, $11, $12, $13, $14,
			$15, $16, $17, $18, $19, $20
		)
		ON CONFLICT (organization_id, client_id, date, campaign_id, adset_id, ad_id)
		DO UPDATE SET
			campaign_name = EXCLUDED.campaign_name,
			adset_name    = EXCLUDED.adset_name,
			ad_name       = EXCLUDED.ad_name,
			impressions   = EXCLUDED.impressions,
			reach         = EXCLUDED.reach,
			clicks        = EXCLUDED.clicks,
			link_clicks   = EXCLUDED.link_clicks,
			spend         = EXCLUDED.spend,
			leads         = EXCLUDED.leads,
			conversions   = EXCLUDED.conversions,
			revenue       = EXCLUDED.revenue,
			frequency     = EXCLUDED.frequency,
			status        = EXCLUDED.status,
			objective     = EXCLUDED.objective
	`

	_, err := database.DB.ExecContext(ctx, query,
		orgID, clientID, row.Date,
		row.CampaignID, row.CampaignName, row.AdsetID, row.AdsetName, row.AdID, row.AdName,
		row.Impressions, row.Reach, row.Clicks, row.LinkClicks, row.Spend,
		row.Leads, row.Conversions, row.Revenue, row.Frequency, row.Status, row.Objective,
	)
	return err
}

