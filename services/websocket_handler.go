package services

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/krshsl/hireagent/backend/interview"
	ws "github.com/krshsl/hireagent/backend/websocket"
)

// turnTimeout bounds one websocket turn, which may make two model calls.
const turnTimeout = 3 * time.Minute

// TurnMessage is the reply frame for a start or advance.
type TurnMessage struct {
	Type string `json:"type"` // "turn"
	*interview.Response
}

// ErrorMessage is the reply frame for a failed turn.
type ErrorMessage struct {
	Type   string `json:"type"` // "error"
	Status int    `json:"status"`
	Error  string `json:"error"`
}

// WebSocketHandler carries a whole interview over one connection: the session
// is started on connect and every "text" frame advances it.
type WebSocketHandler struct {
	flow     *interview.Service
	hub      *ws.Hub
	upgrader websocket.Upgrader
	secrets  []string
}

func NewWebSocketHandler(flow *interview.Service, hub *ws.Hub, allowedOrigins string, secrets ...string) *WebSocketHandler {
	return &WebSocketHandler{
		flow: flow,
		hub:  hub,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return CheckOrigin(r, allowedOrigins)
			},
		},
		secrets: secrets,
	}
}

func (h *WebSocketHandler) RegisterRoutes(r chi.Router) {
	r.Get("/{agent_id}/session/ws", h.ServeHTTP)
}

func (h *WebSocketHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "agent_id")
	who := identityFor(r.Context(), r.URL.Query().Get("email"))

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("WebSocket upgrade failed", "error", err)
		return
	}

	client := h.hub.RegisterClient(conn, orderID, who.Email)
	if client == nil {
		conn.Close()
		return
	}
	slog.Info("WebSocket connection established", "client_id", client.ID, "order_id", orderID)

	client.MessageHandler = func(c *ws.Client, messageBytes []byte) {
		h.HandleMessage(c, who, messageBytes)
	}

	go client.WritePump()

	// Auto-start the interview when the connection already identifies the applicant.
	if who.UserEmail != "" || who.Email != "" {
		h.start(client, who)
	}

	client.ReadPump()
}

// HandleMessage processes one inbound frame. A frame email only fills in an
// identity the connection did not establish.
func (h *WebSocketHandler) HandleMessage(client *ws.Client, who interview.Identity, messageBytes []byte) {
	var msg ws.Message
	if err := json.Unmarshal(messageBytes, &msg); err != nil {
		slog.Error("Failed to unmarshal WebSocket message", "error", err)
		client.SendJSON(ErrorMessage{Type: "error", Status: http.StatusBadRequest, Error: "Invalid message"})
		return
	}
	if who.Email == "" {
		who.Email = msg.Email
	}

	slog.Debug("WebSocket message received", "type", msg.Type, "client_id", client.ID, "order_id", client.OrderID)

	switch msg.Type {
	case "start":
		h.start(client, who)
	case "text":
		ctx, cancel := context.WithTimeout(context.Background(), turnTimeout)
		defer cancel()
		resp, err := h.flow.AdvanceSession(ctx, client.OrderID, who, msg.Text)
		h.reply(client, resp, err)
	default:
		slog.Warn("Unknown WebSocket message type", "type", msg.Type)
		client.SendJSON(ErrorMessage{Type: "error", Status: http.StatusBadRequest, Error: "Unknown message type"})
	}
}

func (h *WebSocketHandler) start(client *ws.Client, who interview.Identity) {
	ctx, cancel := context.WithTimeout(context.Background(), turnTimeout)
	defer cancel()
	resp, err := h.flow.StartSession(ctx, client.OrderID, who)
	h.reply(client, resp, err)
}

func (h *WebSocketHandler) reply(client *ws.Client, resp *interview.Response, err error) {
	if err != nil {
		status, body := sessionErrorBody(err, h.secrets...)
		msg := body["error"]
		if msg == "" {
			msg = body["detail"]
		}
		if status == http.StatusInternalServerError {
			slog.Error("WebSocket turn failed", "error", msg, "order_id", client.OrderID)
		}
		client.SendJSON(ErrorMessage{Type: "error", Status: status, Error: msg})
		return
	}
	client.SendJSON(TurnMessage{Type: "turn", Response: resp})
}
