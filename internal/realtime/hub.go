// Package realtime pushes insight change notifications to connected
// dashboards. Writers publish through Postgres NOTIFY so every process
// behind a load balancer sees the event; each process fans it out to its
// own websocket subscribers.
package realtime

import (
	"time"

	"github.com/gofiber/contrib/v3/websocket"
	"github.com/gofiber/fiber/v3"

	"github.com/adscopehq/adscope/internal/logging"
	"github.com/adscopehq/adscope/internal/models"
)

// Hub routes change events to subscribers. A subscriber watches a single
// client id within its own organization; events for any other scope are
// never delivered to it.
type Hub struct {
	register    chan *subscriber
	unregister  chan *subscriber
	broadcast   chan ChangeEvent
	clientCount chan chan int // For thread-safe subscriber count queries
	subscribers map[*subscriber]struct{}
}

type wsConn interface {
	ReadMessage() (int, []byte, error)
	WriteMessage(int, []byte) error
	Close() error
}

type subscriber struct {
	hub      *Hub
	conn     wsConn
	orgID    string
	clientID string
	send     chan []byte
}

type pingTicker interface {
	C() <-chan time.Time
	Stop()
}

type realPingTicker struct {
	*time.Ticker
}

func (t *realPingTicker) C() <-chan time.Time {
	return t.Ticker.C
}

var pingTickerFactory = func() pingTicker {
	return &realPingTicker{time.NewTicker(30 * time.Second)}
}

func NewHub() *Hub {
	h := &Hub{
		register:    make(chan *subscriber),
		unregister:  make(chan *subscriber),
		broadcast:   make(chan ChangeEvent, 512),
		clientCount: make(chan chan int),
		subscribers: make(map[*subscriber]struct{}),
	}

	go h.run()
	return h
}

func (h *Hub) run() {
	for {
		select {
		case sub := <-h.register:
			h.subscribers[sub] = struct{}{}
		case sub := <-h.unregister:
			if _, ok := h.subscribers[sub]; ok {
				delete(h.subscribers, sub)
				close(sub.send)
				_ = sub.conn.Close()
			}
		case event := <-h.broadcast:
			data, err := event.marshal()
			if err != nil {
				continue
			}
			for sub := range h.subscribers {
				// Both scope fields must match. An empty org on the
				// subscriber matches nothing.
				if sub.orgID != event.OrganizationID || sub.clientID != event.ClientID {
					continue
				}
				select {
				case sub.send <- data:
				default:
					close(sub.send)
					delete(h.subscribers, sub)
				}
			}
		case response := <-h.clientCount:
			response <- len(h.subscribers)
		}
	}
}

// Broadcast queues a change event for delivery. Events are dropped rather
// than blocking the publisher when the hub is saturated.
func (h *Hub) Broadcast(event ChangeEvent) {
	select {
	case h.broadcast <- event:
	default:
		logging.L().Warn("dropping realtime payload", "reason", "slow consumers")
	}
}

// SubscriberCount returns the number of connected subscribers.
func (h *Hub) SubscriberCount() int {
	response := make(chan int)
	h.clientCount <- response
	return <-response
}

// Handler upgrades the request to a websocket subscribed to the client id
// path param, scoped to the authenticated key's organization. The
// connection receives one JSON message per change event until either side
// closes.
func (h *Hub) Handler() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		sub := &subscriber{
			hub:      h,
			conn:     conn,
			orgID:    subscriberOrgID(conn.Locals("api_key")),
			clientID: conn.Params("client_id"),
			send:     make(chan []byte, 512),
		}

		h.register <- sub

		go sub.writePump()
		sub.readPump()
	})
}

// subscriberOrgID pulls the organization out of the api_key local set by
// the auth middleware. Without it the subscriber is scoped to nothing.
func subscriberOrgID(local any) string {
	key, ok := local.(*models.APIKey)
	if !ok || key == nil {
		return ""
	}
	return key.OrganizationID.String()
}

func (s *subscriber) readPump() {
	defer func() {
		s.hub.unregister <- s
	}()

	for {
		if _, _, err := s.conn.ReadMessage(); err != nil {
			break
		}
	}
}

func (s *subscriber) writePump() {
	ticker := pingTickerFactory()
	defer func() {
		ticker.Stop()
		_ = s.conn.Close()
	}()

	for {
		select {
		case message, ok := <-s.send:
			if !ok {
				_ = s.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := s.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C():
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
