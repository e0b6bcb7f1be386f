package realtime

import (
	"encoding/json"
	"io"
	"testing"
	"time"

	"github.com/gofiber/contrib/v3/websocket"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func waitForCondition(t *testing.T, timeout time.Duration, fn func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met within %s", timeout)
}

func TestHubDeliversToMatchingSubscriber(t *testing.T) {
	hub := NewHub()
	orgID := uuid.New()
	clientID := uuid.New()

	sub := &subscriber{
		hub:      hub,
		conn:     &fakeConn{},
		orgID:    orgID.String(),
		clientID: clientID.String(),
		send:     make(chan []byte, 1),
	}

	hub.register <- sub
	waitForCondition(t, time.Second, func() bool { return hub.SubscriberCount() == 1 })

	hub.Broadcast(NewChangeEvent(orgID, clientID))

	select {
	case got := <-sub.send:
		var event ChangeEvent
		require.NoError(t, json.Unmarshal(got, &event))
		assert.Equal(t, "insights_changed", event.Type)
		assert.Equal(t, clientID.String(), event.ClientID)
	case <-time.After(time.Second):
		t.Fatal("did not receive broadcast message")
	}

	hub.unregister <- sub
	waitForCondition(t, time.Second, func() bool { return hub.SubscriberCount() == 0 })
}

func TestHubSkipsOtherClients(t *testing.T) {
	hub := NewHub()
	orgID := uuid.New()

	watched := uuid.New()
	other := uuid.New()

	sub := &subscriber{
		hub:      hub,
		conn:     &fakeConn{},
		orgID:    orgID.String(),
		clientID: watched.String(),
		send:     make(chan []byte, 1),
	}

	hub.register <- sub
	waitForCondition(t, time.Second, func() bool { return hub.SubscriberCount() == 1 })

	hub.Broadcast(NewChangeEvent(orgID, other))
	hub.Broadcast(NewChangeEvent(orgID, watched))

	select {
	case got := <-sub.send:
		var event ChangeEvent
		require.NoError(t, json.Unmarshal(got, &event))
		assert.Equal(t, watched.String(), event.ClientID)
	case <-time.After(time.Second):
		t.Fatal("did not receive broadcast message")
	}

	select {
	case extra := <-sub.send:
		t.Fatalf("received event for another client: %s", extra)
	default:
	}
}

func TestHubSkipsOtherOrganizations(t *testing.T) {
	hub := NewHub()
	orgID := uuid.New()
	otherOrg := uuid.New()
	clientID := uuid.New()

	sub := &subscriber{
		hub:      hub,
		conn:     &fakeConn{},
		orgID:    orgID.String(),
		clientID: clientID.String(),
		send:     make(chan []byte, 1),
	}

	hub.register <- sub
	waitForCondition(t, time.Second, func() bool { return hub.SubscriberCount() == 1 })

	// Same client ID but a different organization must not be delivered.
	hub.Broadcast(NewChangeEvent(otherOrg, clientID))
	hub.Broadcast(NewChangeEvent(orgID, clientID))

	select {
	case got := <-sub.send:
		var event ChangeEvent
		require.NoError(t, json.Unmarshal(got, &event))
		assert.Equal(t, orgID.String(), event.OrganizationID)
	case <-time.After(time.Second):
		t.Fatal("did not receive broadcast message")
	}

	select {
	case extra := <-sub.send:
		t.Fatalf("received event for another organization: %s", extra)
	default:
	}
}

func TestHubBroadcastDropsSlowSubscriber(t *testing.T) {
	hub := NewHub()
	orgID := uuid.New()
	clientID := uuid.New()

	sub := &subscriber{
		hub:      hub,
		conn:     &fakeConn{},
		orgID:    orgID.String(),
		clientID: clientID.String(),
		send:     make(chan []byte), // unbuffered -> backpressure
	}

	hub.register <- sub
	waitForCondition(t, time.Second, func() bool { return hub.SubscriberCount() == 1 })

	hub.Broadcast(NewChangeEvent(orgID, clientID))

	waitForCondition(t, time.Second, func() bool { return hub.SubscriberCount() == 0 })

	select {
	case _, ok := <-sub.send:
		assert.False(t, ok)
	default:
		t.Fatal("subscriber channel not closed for slow consumer")
	}
}

func TestReadPumpSignalsUnregister(t *testing.T) {
	unregister := make(chan *subscriber, 1)
	sub := &subscriber{
		hub: &Hub{
			unregister: unregister,
		},
		conn: &fakeConn{
			scripts: []wsFrame{{err: io.EOF}},
		},
		send: make(chan []byte, 1),
	}

	sub.readPump()

	select {
	case got := <-unregister:
		assert.Equal(t, sub, got)
	default:
		t.Fatal("subscriber was not unregistered")
	}
}

type manualTicker struct {
	ch         chan time.Time
	stopCalled bool
}

func newManualTicker() *manualTicker {
	return &manualTicker{ch: make(chan time.Time, 1)}
}

func (t *manualTicker) C() <-chan time.Time {
	return t.ch
}

func (t *manualTicker) Stop() {
	t.stopCalled = true
}

func TestWritePumpSendsMessagesAndPings(t *testing.T) {
	manual := newManualTicker()
	originalFactory := pingTickerFactory
	pingTickerFactory = func() pingTicker { return manual }
	t.Cleanup(func() {
		pingTickerFactory = originalFactory
	})

	conn := &fakeConn{}
	sub := &subscriber{
		hub:  &Hub{},
		conn: conn,
		send: make(chan []byte, 1),
	}

	done := make(chan struct{})
	go func() {
		sub.writePump()
		close(done)
	}()

	// Deliver normal message
	sub.send <- []byte("payload")

	waitForCondition(t, time.Second, func() bool { return conn.writtenCount() >= 1 })
	assert.Equal(t, websocket.TextMessage, conn.writtenFrame(0).messageType)
	assert.Equal(t, []byte("payload"), conn.writtenFrame(0).payload)

	// Trigger ping via manual ticker
	manual.ch <- time.Now()
	waitForCondition(t, time.Second, func() bool { return conn.writtenCount() >= 2 })
	assert.Equal(t, websocket.PingMessage, conn.writtenFrame(1).messageType)

	// Close send channel to exit
	close(sub.send)
	waitForCondition(t, time.Second, func() bool { return conn.closeCount() >= 1 })

	<-done
	assert.True(t, manual.stopCalled)
}
