package services

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/krshsl/hireagent/backend/models"
	"github.com/krshsl/hireagent/backend/repository"
)

const maxQuestionCount = 50

// AgentEndpoints lets a customer manage the interview agents (orders) they own.
type AgentEndpoints struct {
	repo *repository.GORMRepository
}

// AgentRequest carries create and partial update fields. Nil means unchanged.
type AgentRequest struct {
	Title          *string `json:"title"`
	JobDescription *string `json:"job_description"`
	AgentName      *string `json:"agent_name"`
	AgentGreeting  *string `json:"agent_greeting"`
	Behaviour      *string `json:"behaviour"`
	Knowledge      *string `json:"knowledge"`
	QuestionCount  *int    `json:"question_count"`
}

type GetAgentsResponse struct {
	Agents []models.Order `json:"agents"`
	Count  int            `json:"count"`
}

type GetAgentSessionsResponse struct {
	Sessions []models.Session `json:"sessions"`
	Count    int              `json:"count"`
}

func NewAgentEndpoints(repo *repository.GORMRepository) *AgentEndpoints {
	return &AgentEndpoints{
		repo: repo,
	}
}

func (e *AgentEndpoints) RegisterRoutes(r chi.Router) {
	r.Post("/", e.CreateAgentHandler)
	r.Get("/", e.GetAgentsHandler)
	r.Get("/{agent_id}", e.GetAgentHandler)
	r.Patch("/{agent_id}", e.UpdateAgentHandler)
	r.Delete("/{agent_id}", e.DeleteAgentHandler)
	r.Get("/{agent_id}/sessions", e.GetAgentSessionsHandler)
}

func (req *AgentRequest) apply(order *models.Order) {
	set := func(dst *string, src *string) {
		if src != nil {
			*dst = strings.TrimSpace(*src)
		}
	}
	set(&order.Title, req.Title)
	set(&order.JobDescription, req.JobDescription)
	set(&order.AgentName, req.AgentName)
	set(&order.AgentGreeting, req.AgentGreeting)
	set(&order.Behaviour, req.Behaviour)
	set(&order.Knowledge, req.Knowledge)
	if req.QuestionCount != nil {
		order.QuestionCount = *req.QuestionCount
	}
}

func validateOrder(order *models.Order) error {
	if order.Title == "" {
		return fmt.Errorf("title is required")
	}
	if order.AgentName == "" {
		return fmt.Errorf("agent_name is required")
	}
	if order.QuestionCount < 0 || order.QuestionCount > maxQuestionCount {
		return fmt.Errorf("question_count must be between 0 and %d", maxQuestionCount)
	}
	return nil
}

func (e *AgentEndpoints) CreateAgentHandler(w http.ResponseWriter, r *http.Request) {
	user, _ := UserFromContext(r.Context())

	var req AgentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
		return
	}

	order := models.Order{CustomerID: user.ID}
	req.apply(&order)
	if err := validateOrder(&order); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	if err := e.repo.CreateOrder(r.Context(), &order); err != nil {
		slog.Error("Failed to create agent", "error", err, "user_id", user.ID)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Failed to create agent"})
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"agent":   order,
		"message": "Agent created successfully",
	})

	slog.Info("Agent created", "agent_id", order.ID, "user_id", user.ID, "title", order.Title)
}

func (e *AgentEndpoints) GetAgentsHandler(w http.ResponseWriter, r *http.Request) {
	user, _ := UserFromContext(r.Context())

	orders, err := e.repo.ListOrders(r.Context(), user.ID)
	if err != nil {
		slog.Error("Failed to get agents", "error", err, "user_id", user.ID)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Failed to get agents"})
		return
	}

	writeJSON(w, http.StatusOK, GetAgentsResponse{
		Agents: orders,
		Count:  len(orders),
	})
}

// ownedOrder loads the path's order for the authenticated customer and writes
// a 404 when it is missing or belongs to someone else.
func (e *AgentEndpoints) ownedOrder(w http.ResponseWriter, r *http.Request) (*models.Order, bool) {
	user, _ := UserFromContext(r.Context())
	agentID := chi.URLParam(r, "agent_id")

	order, err := e.repo.GetCustomerOrder(r.Context(), agentID, user.ID)
	if err != nil {
		slog.Error("Failed to get agent", "error", err, "agent_id", agentID, "user_id", user.ID)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Failed to get agent"})
		return nil, false
	}
	if order == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "Order not found"})
		return nil, false
	}
	return order, true
}

func (e *AgentEndpoints) GetAgentHandler(w http.ResponseWriter, r *http.Request) {
	order, ok := e.ownedOrder(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"agent": order})
}

func (e *AgentEndpoints) UpdateAgentHandler(w http.ResponseWriter, r *http.Request) {
	order, ok := e.ownedOrder(w, r)
	if !ok {
		return
	}

	var req AgentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
		return
	}
	req.apply(order)
	if err := validateOrder(order); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	if err := e.repo.UpdateOrder(r.Context(), order); err != nil {
		slog.Error("Failed to update agent", "error", err, "agent_id", order.ID)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Failed to update agent"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"agent":   order,
		"message": "Agent updated successfully",
	})

	slog.Info("Agent updated", "agent_id", order.ID)
}

func (e *AgentEndpoints) DeleteAgentHandler(w http.ResponseWriter, r *http.Request) {
	user, _ := UserFromContext(r.Context())
	agentID := chi.URLParam(r, "agent_id")

	deleted, err := e.repo.DeleteOrder(r.Context(), agentID, user.ID)
	if err != nil {
		slog.Error("Failed to delete agent", "error", err, "agent_id", agentID, "user_id", user.ID)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Failed to delete agent"})
		return
	}
	if !deleted {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "Order not found"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Agent deleted successfully"})

	slog.Info("Agent deleted", "agent_id", agentID, "user_id", user.ID)
}

// GetAgentSessionsHandler lists every applicant session of an owned agent with
// its transcript.
func (e *AgentEndpoints) GetAgentSessionsHandler(w http.ResponseWriter, r *http.Request) {
	order, ok := e.ownedOrder(w, r)
	if !ok {
		return
	}

	sessions, err := e.repo.ListOrderSessions(r.Context(), order.ID)
	if err != nil {
		slog.Error("Failed to get agent sessions", "error", err, "agent_id", order.ID)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Failed to get sessions"})
		return
	}

	writeJSON(w, http.StatusOK, GetAgentSessionsResponse{
		Sessions: sessions,
		Count:    len(sessions),
	})
}
