package services

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/krshsl/hireagent/backend/interview"
	"github.com/krshsl/hireagent/backend/repository"
)

// sessionStore runs interview turns inside a GORM transaction.
type sessionStore struct {
	repo *repository.GORMRepository
}

func NewSessionStore(repo *repository.GORMRepository) interview.Store {
	return &sessionStore{repo: repo}
}

func (s *sessionStore) Transact(ctx context.Context, fn func(tx interview.Tx) error) error {
	return s.repo.Transaction(ctx, func(repo *repository.GORMRepository) error {
		return fn(repo)
	})
}

type SessionEndpoints struct {
	flow    *interview.Service
	secrets []string
}

type SessionRequest struct {
	Text  string `json:"text"`
	Email string `json:"email"`
}

// NewSessionEndpoints serves the applicant-facing turns of flow. secrets are
// scrubbed from any error text returned to the caller.
func NewSessionEndpoints(flow *interview.Service, secrets ...string) *SessionEndpoints {
	return &SessionEndpoints{
		flow:    flow,
		secrets: secrets,
	}
}

func (e *SessionEndpoints) RegisterRoutes(r chi.Router) {
	r.Get("/{agent_id}/session/start", e.StartHandler)
	r.Post("/{agent_id}/session/start", e.StartHandler)
	r.Post("/{agent_id}/session/advance", e.AdvanceHandler)
}

func (e *SessionEndpoints) StartHandler(w http.ResponseWriter, r *http.Request) {
	req, err := decodeSessionRequest(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
		return
	}
	if req.Email == "" {
		req.Email = r.URL.Query().Get("email")
	}

	resp, err := e.flow.StartSession(r.Context(), chi.URLParam(r, "agent_id"), identityFor(r.Context(), req.Email))
	if err != nil {
		writeSessionError(w, err, e.secrets...)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (e *SessionEndpoints) AdvanceHandler(w http.ResponseWriter, r *http.Request) {
	req, err := decodeSessionRequest(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
		return
	}

	resp, err := e.flow.AdvanceSession(r.Context(), chi.URLParam(r, "agent_id"), identityFor(r.Context(), req.Email), req.Text)
	if err != nil {
		writeSessionError(w, err, e.secrets...)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// decodeSessionRequest reads an optional JSON body. An empty body is not an error.
func decodeSessionRequest(r *http.Request) (SessionRequest, error) {
	var req SessionRequest
	if r.Body == nil {
		return req, nil
	}
	err := json.NewDecoder(r.Body).Decode(&req)
	if errors.Is(err, io.EOF) {
		return req, nil
	}
	return req, err
}

func identityFor(ctx context.Context, email string) interview.Identity {
	who := interview.Identity{Email: strings.TrimSpace(email)}
	if user, ok := UserFromContext(ctx); ok {
		who.UserEmail = user.Email
	}
	return who
}
