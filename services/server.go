package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/krshsl/hireagent/backend/interview"
	"github.com/krshsl/hireagent/backend/repository"
	ws "github.com/krshsl/hireagent/backend/websocket"
)

// Server holds all server dependencies
type Server struct {
	config           *Config
	db               *repository.Database
	repo             *repository.GORMRepository
	completer        interview.Completer
	flow             *interview.Service
	authService      *AuthService
	authEndpoints    *AuthEndpoints
	sessionEndpoints *SessionEndpoints
	agentEndpoints   *AgentEndpoints
	websocketHandler *WebSocketHandler
	wsHub            *ws.Hub
	stopHub          context.CancelFunc
}

// NewServer creates a new server instance
func NewServer(config *Config) *Server {
	return &Server{config: config}
}

// SetDatabase sets the database connection
func (s *Server) SetDatabase(db *repository.Database) {
	s.db = db
	s.repo = repository.NewGORMRepository(db.Gorm)
}

// SetCompleter replaces the Gemini client with another text completion backend.
func (s *Server) SetCompleter(c interview.Completer) {
	s.completer = c
}

// InitializeServices wires the interview flow and the HTTP endpoints. The
// database must be set first.
func (s *Server) InitializeServices(ctx context.Context) error {
	if s.repo == nil {
		return errors.New("database is not configured")
	}

	if s.completer == nil {
		gemini, err := NewGeminiService(ctx, s.config.AI)
		if err != nil {
			return fmt.Errorf("failed to initialize gemini: %w", err)
		}
		s.completer = gemini
		slog.Info("Gemini service initialized", "model", gemini.model)
	}

	prompts, err := s.loadPrompts()
	if err != nil {
		return err
	}

	maxLog := s.config.AI.MaxLogLength
	s.flow = interview.NewService(
		NewSessionStore(s.repo),
		interview.NewClassifier(s.completer, prompts, maxLog),
		interview.NewGenerator(s.completer, prompts, maxLog),
		interview.NewLLMEngine(s.completer, prompts, s.config.Interview.DefaultQuestions, maxLog),
		prompts,
		interview.Options{ResumeClassification: s.config.Interview.ResumeClassification},
	)
	slog.Info("Interview flow initialized", "default_questions", s.config.Interview.DefaultQuestions)

	secrets := []string{s.config.AI.GeminiAPIKey, s.config.JWT.Secret}
	s.sessionEndpoints = NewSessionEndpoints(s.flow, secrets...)

	// Authentication services
	if s.config.JWT.Secret != "" {
		s.authService = NewAuthService(s.repo, s.config.JWT)
		s.authEndpoints = NewAuthEndpoints(s.authService)
		s.agentEndpoints = NewAgentEndpoints(s.repo)
		slog.Info("Authentication service initialized")
	} else {
		slog.Warn("JWT secret not configured, customer routes are disabled")
	}

	// WebSocket hub
	var hubCtx context.Context
	hubCtx, s.stopHub = context.WithCancel(context.Background())
	s.wsHub = ws.NewHub()
	go s.wsHub.Run(hubCtx)
	s.websocketHandler = NewWebSocketHandler(s.flow, s.wsHub, s.config.WebSocket.AllowedOrigins, secrets...)

	return nil
}

func (s *Server) loadPrompts() (*interview.Prompts, error) {
	if path := s.config.Interview.PromptsFile; path != "" {
		prompts, err := interview.LoadPrompts(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load prompts from %s: %w", path, err)
		}
		slog.Info("Loaded prompt overrides", "path", path)
		return prompts, nil
	}
	return interview.DefaultPrompts()
}

// SetupRoutes configures all HTTP routes
func (s *Server) SetupRoutes() *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health endpoint
	r.Get("/health", s.healthHandler)

	// API v1 route group
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/", s.apiV1Handler)

		if s.authEndpoints != nil {
			s.authEndpoints.RegisterRoutes(r)
		}

		r.Route("/agents", func(r chi.Router) {
			// Customer routes
			if s.agentEndpoints != nil {
				r.Group(func(r chi.Router) {
					r.Use(s.authService.RequireAuth)
					s.agentEndpoints.RegisterRoutes(r)
				})
			}

			// Applicant routes; a customer token is honoured but not required
			r.Group(func(r chi.Router) {
				if s.authService != nil {
					r.Use(s.authService.OptionalAuth)
				}
				if s.sessionEndpoints != nil {
					s.sessionEndpoints.RegisterRoutes(r)
				}
				if s.websocketHandler != nil {
					s.websocketHandler.RegisterRoutes(r)
				}
			})
		})
	})

	return r
}

// Start serves HTTP until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	port := s.config.Server.Port
	if port == "" {
		port = "8080"
	}

	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           s.SetupRoutes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Starting server", "port", port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	case <-ctx.Done():
	}

	slog.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	s.Close()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
		return err
	}

	slog.Info("Server exited")
	return nil
}

// Close stops the WebSocket hub, disconnecting every client.
func (s *Server) Close() {
	if s.stopHub != nil {
		s.stopHub()
	}
}

// CheckOrigin validates the origin of WebSocket connections to prevent CSRF attacks
func CheckOrigin(r *http.Request, allowedOriginsStr string) bool {
	origin := r.Header.Get("Origin")

	// If no allowed origins are configured, deny all requests for security
	if allowedOriginsStr == "" {
		slog.Warn("WebSocket connection rejected: no allowed origins configured", "origin", origin)
		return false
	}

	for _, allowed := range strings.Split(allowedOriginsStr, ",") {
		if strings.TrimSpace(allowed) == origin {
			slog.Info("WebSocket connection accepted", "origin", origin)
			return true
		}
	}

	slog.Warn("WebSocket connection rejected: origin not allowed", "origin", origin, "allowed_origins", allowedOriginsStr)
	return false
}

type healthResponse struct {
	Status           string `json:"status"`
	Database         string `json:"database"`
	WebSocketClients int    `json:"websocket_clients"`
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{Status: "ok", Database: "not configured"}

	if s.db != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.db.Ping(ctx); err != nil {
			slog.Warn("Database ping failed", "error", err)
			resp.Database = "down"
			resp.Status = "degraded"
		} else {
			resp.Database = "up"
		}
	}
	if s.wsHub != nil {
		resp.WebSocketClients = s.wsHub.Count()
	}

	writeJSON(w, http.StatusOK, resp)

	slog.Debug("Health check", "status", resp.Status, "database", resp.Database)
}

func (s *Server) apiV1Handler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": "API v1", "version": Version})
}
