package progress

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func TestHubBroadcastsToSubscriber(t *testing.T) {
	hub := NewHub()
	defer hub.Close()

	srv := httptest.NewServer(hub)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	// Dial can return before the handler goroutine registers the
	// connection; wait until the hub sees the subscriber.
	deadline := time.Now().Add(2 * time.Second)
	for {
		hub.mu.Lock()
		n := len(hub.conns)
		hub.mu.Unlock()
		if n > 0 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("subscriber never registered")
		}
		time.Sleep(5 * time.Millisecond)
	}

	hub.Emit(Event{ProjectID: "p1", Status: "cloning", Progress: 10})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var got Event
	if err := conn.ReadJSON(&got); err != nil {
		t.Fatalf("read event: %v", err)
	}
	if got.ProjectID != "p1" || got.Status != "cloning" || got.Progress != 10 {
		t.Errorf("event = %+v, want {p1 cloning 10}", got)
	}
}

func TestHubSurvivesClosedSubscriber(t *testing.T) {
	hub := NewHub()
	defer hub.Close()

	srv := httptest.NewServer(hub)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	conn.Close()

	// The dead connection is either already dropped by the read loop or
	// dropped on write failure; Emit must not panic either way.
	hub.Emit(Event{ProjectID: "p1", Status: "complete", Progress: 100})
}

func TestNopNotifier(t *testing.T) {
	var n Notifier = Nop{}
	n.Emit(Event{ProjectID: "p", Status: "scanning", Progress: 45})
}
