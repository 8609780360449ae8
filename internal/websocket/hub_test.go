package websocket

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/unclebandit/pushleopard-backend/internal/model"
)

func setupTestHub(t *testing.T) *Hub {
	t.Helper()
	hub := NewHub(slog.New(slog.NewTextHandler(io.Discard, nil)))
	go hub.Run()
	t.Cleanup(hub.Stop)
	return hub
}

func connectWS(t *testing.T, hub *Hub) (*websocket.Conn, func()) {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(hub.HandleWebSocket))
	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")

	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("failed to connect WebSocket: %v", err)
	}

	return conn, func() {
		conn.Close()
		server.Close()
	}
}

func waitForClients(t *testing.T, hub *Hub, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if hub.ClientCount() == want {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("expected %d clients, got %d", want, hub.ClientCount())
}

func TestHub_ClientConnectsAndLeaves(t *testing.T) {
	hub := setupTestHub(t)

	conn, cleanup := connectWS(t, hub)
	defer cleanup()
	waitForClients(t, hub, 1)

	conn.Close()
	waitForClients(t, hub, 0)
}

func TestHub_PublishReachesClient(t *testing.T) {
	hub := setupTestHub(t)

	conn, cleanup := connectWS(t, hub)
	defer cleanup()
	waitForClients(t, hub, 1)

	hub.Publish(model.CampaignEvent{
		Type:         model.EventCampaignBatch,
		CampaignID:   "camp-1",
		Status:       model.StatusSending,
		Batch:        1,
		BatchCount:   3,
		SuccessCount: 499,
		FailureCount: 1,
	})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("failed to read message: %v", err)
	}

	var got model.CampaignEvent
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("failed to decode event: %v", err)
	}
	if got.CampaignID != "camp-1" || got.Batch != 1 || got.SuccessCount != 499 {
		t.Errorf("event = %+v", got)
	}
}

func TestHub_PublishWithoutClientsDoesNotBlock(t *testing.T) {
	hub := NewHub(slog.New(slog.NewTextHandler(io.Discard, nil)))
	// Run is not started: the buffer fills and further events are dropped.
	done := make(chan struct{})
	go func() {
		for i := 0; i < 300; i++ {
			hub.Publish(model.CampaignEvent{Type: model.EventCampaignBatch})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Publish blocked")
	}
}
