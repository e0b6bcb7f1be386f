package realtime

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/adscopehq/adscope/internal/database"
	"github.com/adscopehq/adscope/internal/logging"
)

const ChannelName = "adscope_insight_events"

// ChangeEvent signals that insight rows changed for one client. Dashboards
// re-fetch on receipt; the event carries no row data.
type ChangeEvent struct {
	Type           string    `json:"type"`
	OrganizationID string    `json:"organization_id"`
	ClientID       string    `json:"client_id"`
	OccurredAt     time.Time `json:"occurred_at"`
}

func (e ChangeEvent) marshal() ([]byte, error) {
	return json.Marshal(e)
}

// NewChangeEvent builds an insight change event for one tenant scope.
func NewChangeEvent(orgID, clientID uuid.UUID) ChangeEvent {
	return ChangeEvent{
		Type:           "insights_changed",
		OrganizationID: orgID.String(),
		ClientID:       clientID.String(),
		OccurredAt:     time.Now().UTC(),
	}
}

// NotifyChange publishes a change event through Postgres NOTIFY. Failures
// are logged and swallowed; a lost refresh hint is not worth failing a
// write for.
func NotifyChange(ctx context.Context, orgID, clientID uuid.UUID) {
	data, err := NewChangeEvent(orgID, clientID).marshal()
	if err != nil {
		logging.L().Warn("failed to marshal realtime payload", "error", err)
		return
	}

	if _, err := database.DB.ExecContext(ctx, "SELECT pg_notify($1, $2)", ChannelName, string(data)); err != nil {
		logging.L().Warn("failed to send realtime notification", "error", err)
	}
}

// StartListener subscribes to the NOTIFY channel and forwards events into
// the hub until ctx is cancelled.
func StartListener(ctx context.Context, databaseURL string, hub *Hub) error {
	listener := pq.NewListener(databaseURL, 5*time.Second, time.Minute, func(event pq.ListenerEventType, err error) {
		if err != nil {
			logging.L().Warn("realtime listener event", "event", event, "error", err)
		}
	})

	if err := listener.Listen(ChannelName); err != nil {
		return err
	}

	go func() {
		defer func() {
			_ = listener.Close()
		}()

		for {
			select {
			case <-ctx.Done():
				return
			case n := <-listener.Notify:
				if n == nil {
					continue
				}
				var event ChangeEvent
				if err := json.Unmarshal([]byte(n.Extra), &event); err != nil {
					logging.L().Warn("malformed realtime payload", "error", err)
					continue
				}
				hub.Broadcast(event)
			case <-time.After(time.Minute):
				if err := listener.Ping(); err != nil {
					logging.L().Warn("realtime listener ping failed", "error", err)
				}
			}
		}
	}()

	return nil
}
