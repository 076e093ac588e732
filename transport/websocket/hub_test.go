package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/goleak"

	"github.com/wricardo/rulegrid/game/engine"
)

func newTestClient(hub *Hub, sessionID string) *Client {
	return &Client{
		hub:       hub,
		sessionID: sessionID,
		send:      make(chan []byte, sendBuffer),
	}
}

func startHub(t *testing.T) (*Hub, context.CancelFunc) {
	t.Helper()
	hub := NewHub(nil)
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)
	return hub, func() {
		cancel()
		<-hub.Done()
	}
}

func newWSServer(hub *Hub) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sessionID := r.URL.Query().Get("sessionId")
		if sessionID == "" {
			sessionID = "default"
		}
		hub.ServeWS(w, r, sessionID)
	}))
}

func dial(t *testing.T, server *httptest.Server, sessionID string) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "?sessionId=" + sessionID
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("Failed to connect to WebSocket: %v", err)
	}
	return conn
}

// waitForClients polls until the hub reports want clients for sessionID
func waitForClients(t *testing.T, hub *Hub, sessionID string, want int) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if hub.ClientCount(sessionID) == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("Expected %d clients in %s, got %d", want, sessionID, hub.ClientCount(sessionID))
}

func TestNewHub(t *testing.T) {
	hub := NewHub(nil)

	if hub.sessions == nil {
		t.Error("Hub sessions map is nil")
	}
	if hub.broadcast == nil || hub.register == nil || hub.unregister == nil {
		t.Error("Hub channels not initialized")
	}
	if hub.logger == nil {
		t.Error("Hub should default to a no-op logger")
	}
}

func TestHubRegisterClient(t *testing.T) {
	hub := NewHub(nil)
	client := newTestClient(hub, "test-session")

	hub.registerClient(client)

	if !hub.sessions["test-session"][client] {
		t.Error("Client was not registered in session")
	}
	if len(hub.sessions["test-session"]) != 1 {
		t.Errorf("Expected 1 client in session, got %d", len(hub.sessions["test-session"]))
	}
}

func TestHubUnregisterClient(t *testing.T) {
	hub := NewHub(nil)
	client := newTestClient(hub, "test-session")

	hub.registerClient(client)
	hub.unregisterClient(client)

	if _, exists := hub.sessions["test-session"]; exists {
		t.Error("Session should have been cleaned up after last client unregistered")
	}
	if _, ok := <-client.send; ok {
		t.Error("Send channel should be closed")
	}

	// A second unregister is a no-op
	hub.unregisterClient(client)
}

func TestHubMultipleClientsInSession(t *testing.T) {
	hub := NewHub(nil)
	sessionID := "multi-client-session"

	client1 := newTestClient(hub, sessionID)
	client2 := newTestClient(hub, sessionID)
	hub.registerClient(client1)
	hub.registerClient(client2)

	if len(hub.sessions[sessionID]) != 2 {
		t.Errorf("Expected 2 clients in session, got %d", len(hub.sessions[sessionID]))
	}

	hub.unregisterClient(client1)

	if len(hub.sessions[sessionID]) != 1 {
		t.Errorf("Expected 1 client remaining in session, got %d", len(hub.sessions[sessionID]))
	}
	if !hub.sessions[sessionID][client2] {
		t.Error("client2 should still be registered")
	}
}

func TestHubBroadcastMessage(t *testing.T) {
	hub := NewHub(nil)
	sessionID := "broadcast-test"
	client := newTestClient(hub, sessionID)
	other := newTestClient(hub, "other")
	hub.registerClient(client)
	hub.registerClient(other)

	state := &engine.GameState{Level: "intro", Cols: 5, Rows: 3, Rules: []string{"BABA IS YOU"}}
	hub.broadcastMessage(&Message{SessionID: sessionID, GameState: state, Event: "state_update"})

	select {
	case data := <-client.send:
		var message Message
		if err := json.Unmarshal(data, &message); err != nil {
			t.Fatalf("Failed to unmarshal message: %v", err)
		}
		if message.SessionID != sessionID || message.Event != "state_update" {
			t.Errorf("Unexpected message: %+v", message)
		}
		if message.GameState.Level != "intro" || len(message.GameState.Rules) != 1 {
			t.Error("GameState not correctly transmitted")
		}
	default:
		t.Error("No message queued for the session's client")
	}

	if len(other.send) != 0 {
		t.Error("Clients of other sessions should not receive the message")
	}
}

func TestHubDropsSlowClient(t *testing.T) {
	hub := NewHub(nil)
	slow := &Client{hub: hub, sessionID: "slow", send: make(chan []byte)}
	hub.registerClient(slow)

	hub.broadcastMessage(&Message{SessionID: "slow", Event: "ping"})

	if _, exists := hub.sessions["slow"]; exists {
		t.Error("Client with a full buffer should be unregistered")
	}
}

func TestWebSocketUpgrade(t *testing.T) {
	hub, stop := startHub(t)
	defer stop()

	server := newWSServer(hub)
	defer server.Close()

	conn := dial(t, server, "ws-test")
	waitForClients(t, hub, "ws-test", 1)

	conn.Close()
	waitForClients(t, hub, "ws-test", 0)
}

func TestWebSocketMessageReceive(t *testing.T) {
	hub, stop := startHub(t)
	defer stop()

	server := newWSServer(hub)
	defer server.Close()

	conn := dial(t, server, "msg-test")
	defer conn.Close()
	waitForClients(t, hub, "msg-test", 1)

	state := &engine.GameState{Level: "intro", Tick: 42, Win: true}
	hub.BroadcastToSession("msg-test", state)
	hub.BroadcastEvent("msg-test", "win", map[string]int{"turns": 3})

	conn.SetReadDeadline(time.Now().Add(time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("Failed to read WebSocket message: %v", err)
	}
	var message Message
	if err := json.Unmarshal(data, &message); err != nil {
		t.Fatalf("Failed to unmarshal message: %v", err)
	}
	if message.GameState == nil || message.GameState.Tick != 42 || !message.GameState.Win {
		t.Errorf("GameState not correctly received: %+v", message.GameState)
	}

	_, data, err = conn.ReadMessage()
	if err != nil {
		t.Fatalf("Failed to read event: %v", err)
	}
	if err := json.Unmarshal(data, &message); err != nil {
		t.Fatalf("Failed to unmarshal event: %v", err)
	}
	if message.Event != "win" {
		t.Errorf("Expected win event, got %s", message.Event)
	}
}

func TestHubStopClosesClients(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	hub, stop := startHub(t)
	server := newWSServer(hub)
	defer server.Close()

	conn := dial(t, server, "stop-test")
	defer conn.Close()
	waitForClients(t, hub, "stop-test", 1)

	stop()

	// The hub sends a close frame on shutdown
	conn.SetReadDeadline(time.Now().Add(time.Second))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Error("Expected the connection to close after stop")
	}

	// Calls after stop return instead of blocking
	hub.BroadcastToSession("stop-test", &engine.GameState{})
	if n := hub.ClientCount("stop-test"); n != 0 {
		t.Errorf("Expected 0 clients after stop, got %d", n)
	}
}

func TestHubSessionIDsAreCaseInsensitive(t *testing.T) {
	hub := NewHub(nil)
	client := newTestClient(hub, "AbCd")
	hub.registerClient(client)

	hub.broadcastMessage(&Message{SessionID: "abcd", Event: "ping"})

	if len(client.send) != 1 {
		t.Errorf("Expected message routed regardless of case, got %d queued", len(client.send))
	}
	if len(hub.sessions["abcd"]) != 1 {
		t.Error("Expected client registered under the folded ID")
	}
}
