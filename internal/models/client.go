package models

import (
	"time"

	"github.com/google/uuid"
)

// Client is one managed advertiser account inside an organization. All
// insight rows and metric configs are scoped to a client.
type Client struct {
	ID             uuid.UUID `json:"id"`
	OrganizationID uuid.UUID `json:"organization_id"`
	Name           string    `json:"name"`
	Status         string    `json:"status"`
	CreatedAt      time.Time `json:"created_at"`
}
