package notify

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/jengzang/tripguide-backend-go/internal/arrival"
	"github.com/jengzang/tripguide-backend-go/internal/models"
)

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func waitForClients(t *testing.T, h *Hub, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for h.Clients() != n {
		if time.Now().After(deadline) {
			t.Fatalf("expected %d clients, have %d", n, h.Clients())
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestHubBroadcast(t *testing.T) {
	hub := NewHub()
	srv := httptest.NewServer(hub)
	defer srv.Close()

	a, b := dial(t, srv), dial(t, srv)
	waitForClients(t, hub, 2)

	stop := models.StopKey{Day: 1, ActivityID: "cloud-gate"}
	hub.Publish(arrival.Event{Type: arrival.EventPromptShown, State: arrival.StatePromptShown, Stop: &stop, PromptID: "p-1"})

	for _, conn := range []*websocket.Conn{a, b} {
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		var msg struct {
			ID      string        `json:"id"`
			Type    string        `json:"type"`
			Payload arrival.Event `json:"payload"`
		}
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("read failed: %v", err)
		}
		if msg.Type != "arrival.prompt_shown" || msg.ID == "" || msg.Payload.PromptID != "p-1" {
			t.Errorf("unexpected message: %+v", msg)
		}
	}

	a.Close()
	waitForClients(t, hub, 1)
	hub.Close()
	waitForClients(t, hub, 0)
}

func TestLogSink(t *testing.T) {
	var buf bytes.Buffer
	sink := NewLogSink(slog.New(slog.NewJSONHandler(&buf, nil)))
	stop := models.StopKey{Day: 2, ActivityID: "field-museum"}

	var pub Publisher = sink
	pub.Publish(arrival.Event{Type: arrival.EventArrivalConfirmed, Stop: &stop})
	pub.PublishItinerary(&models.Itinerary{Key: models.PlanKey{Start: "2026-07-01", End: "2026-07-01"}})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 log lines, got %d", len(lines))
	}
	var entry map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatal(err)
	}
	if entry["activity"] != "field-museum" || entry["component"] != "notify" {
		t.Errorf("unexpected entry: %v", entry)
	}
}
