package websocket

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

// echoServer registers every connection with hub and echoes frames back as JSON.
func echoServer(t *testing.T, hub *Hub) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		client := hub.RegisterClient(conn, "order-1", r.URL.Query().Get("email"))
		if client == nil {
			conn.Close()
			return
		}
		client.MessageHandler = func(c *Client, msg []byte) {
			c.SendJSON(map[string]string{"echo": string(msg), "email": c.Email})
		}
		go client.WritePump()
		client.ReadPump()
	}))
	t.Cleanup(ts.Close)
	return ts
}

func dial(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"?email=jane@example.com", nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met before deadline")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestHubEchoAndCount(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	hub := NewHub()
	go hub.Run(ctx)
	ts := echoServer(t, hub)

	conn := dial(t, ts)
	waitFor(t, func() bool { return hub.Count() == 1 })

	if err := conn.WriteMessage(websocket.TextMessage, []byte("hello")); err != nil {
		t.Fatalf("WriteMessage() error = %v", err)
	}
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var reply map[string]string
	if err := conn.ReadJSON(&reply); err != nil {
		t.Fatalf("ReadJSON() error = %v", err)
	}
	if reply["echo"] != "hello" || reply["email"] != "jane@example.com" {
		t.Errorf("reply = %v", reply)
	}

	conn.Close()
	waitFor(t, func() bool { return hub.Count() == 0 })
}

func TestHubStopDisconnectsClients(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	hub := NewHub()
	go hub.Run(ctx)
	ts := echoServer(t, hub)

	conn := dial(t, ts)
	waitFor(t, func() bool { return hub.Count() == 1 })

	cancel()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Fatal("ReadMessage() succeeded after hub stopped, want close")
	}
	if hub.Count() != 0 {
		t.Errorf("Count() = %d after stop, want 0", hub.Count())
	}
	if client := hub.RegisterClient(nil, "order-1", ""); client != nil {
		t.Error("RegisterClient() after stop returned a client")
	}
}
