package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 54 * time.Second
	maxMessageSize = 64 * 1024
)

// Hub tracks the live session connections.
type Hub struct {
	clients    map[*Client]bool
	unregister chan *Client
	done       chan struct{}
	stopped    bool
	mu         sync.RWMutex
}

// Client is one applicant connection to one agent session.
type Client struct {
	Hub            *Hub
	Conn           *websocket.Conn
	Send           chan []byte
	ID             string
	OrderID        string
	Email          string                // Explicit email from the connect request, if any
	MessageHandler func(*Client, []byte) // Called for every inbound frame, in order
}

// Message is an inbound frame.
type Message struct {
	Type  string `json:"type"` // "start" or "text"
	Text  string `json:"text,omitempty"`
	Email string `json:"email,omitempty"`
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
	}
}

// Run serves unregistrations until ctx is cancelled, then closes every client.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.Send)
			}
			h.mu.Unlock()
			slog.Info("Client unregistered", "client_id", client.ID, "order_id", client.OrderID)

		case <-ctx.Done():
			h.mu.Lock()
			h.stopped = true
			for client := range h.clients {
				delete(h.clients, client)
				close(client.Send)
			}
			h.mu.Unlock()
			return
		}
	}
}

// Count returns the number of connected clients.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// RegisterClient wraps conn in a Client and registers it, so it can be sent
// to immediately. It returns nil once the hub has stopped.
func (h *Hub) RegisterClient(conn *websocket.Conn, orderID, email string) *Client {
	client := &Client{
		Hub:     h,
		Conn:    conn,
		Send:    make(chan []byte, 256),
		ID:      uuid.New().String(),
		OrderID: orderID,
		Email:   email,
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.stopped {
		return nil
	}
	h.clients[client] = true
	slog.Info("Client registered", "client_id", client.ID, "order_id", client.OrderID)
	return client
}

func (h *Hub) remove(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// SendJSON queues v for the client. Frames are dropped when the client is
// gone or its buffer is full.
func (c *Client) SendJSON(v any) {
	payload, err := json.Marshal(v)
	if err != nil {
		slog.Error("Failed to marshal outbound message", "error", err)
		return
	}

	c.Hub.mu.RLock()
	defer c.Hub.mu.RUnlock()
	if !c.Hub.clients[c] {
		return
	}
	select {
	case c.Send <- payload:
	default:
		slog.Warn("Dropping outbound message, client buffer full", "client_id", c.ID)
	}
}

// ReadPump reads frames until the connection fails and hands each one to
// MessageHandler on the reading goroutine, so turns are processed in order.
func (c *Client) ReadPump() {
	defer func() {
		c.Hub.remove(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, messageBytes, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				slog.Error("WebSocket error", "error", err)
			}
			break
		}

		if c.MessageHandler != nil {
			c.MessageHandler(c, messageBytes)
		}
		// Pongs are not read while a turn runs.
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	}
}

func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
