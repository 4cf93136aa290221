// Package api exposes the HTTP surface: goal and task management, profile
// management, and the coach chat endpoint. Handlers depend on narrow
// interfaces so tests can substitute the store and the pipeline.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/fitagent/backend/agent"
	"github.com/fitagent/backend/auth"
	"github.com/fitagent/backend/events"
	"github.com/fitagent/backend/observability"
	"github.com/fitagent/backend/supabase"
)

// Store is the persistence surface the handlers need. *supabase.Client
// satisfies it.
type Store interface {
	ListGoals(ctx context.Context, token, userID string) ([]agent.Goal, error)
	GetGoal(ctx context.Context, token, userID, goalID string) (agent.Goal, error)
	CreateGoal(ctx context.Context, token string, goal agent.Goal) (agent.Goal, error)

	ListTasks(ctx context.Context, token, goalID string) ([]supabase.TaskRow, error)
	InsertTasks(ctx context.Context, token, userID, goalID string, tasks []agent.Task) error
	UpdateTaskStatus(ctx context.Context, token, userID, taskID, status string) (supabase.TaskRow, error)
	ExistingTasksSummary(ctx context.Context, token, goalID string) (*agent.ExistingTasksSummary, error)

	GetProfile(ctx context.Context, token, userID string) (agent.UserProfile, error)
	UpsertProfile(ctx context.Context, token, userID string, profile agent.UserProfile) (agent.UserProfile, error)

	GetOrCreateConversation(ctx context.Context, token, userID string, goalID *string) (string, error)
	RecentMessages(ctx context.Context, token, conversationID string, limit int) ([]agent.StoredMessage, error)
}

// Pipeline runs task generation. *agent.Orchestrator satisfies it.
type Pipeline interface {
	Generate(ctx context.Context, profile agent.UserProfile, goal agent.Goal, summary *agent.ExistingTasksSummary) agent.Result
}

// Chatter runs one coach turn. *agent.Coach satisfies it.
type Chatter interface {
	Chat(ctx context.Context, token, userID string, goalID *string, message string) (string, error)
}

// Server holds the wired HTTP surface.
type Server struct {
	router       chi.Router
	store        Store
	pipeline     Pipeline
	coach        Chatter
	publisher    *events.Publisher
	verifier     *auth.Verifier
	origins      []string
	historyLimit int
	logger       *slog.Logger
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithAllowedOrigins sets the CORS allowlist. Empty means same-origin only.
func WithAllowedOrigins(origins []string) ServerOption {
	return func(s *Server) { s.origins = origins }
}

// WithPublisher attaches the event publisher. Nil is a no-op publisher.
func WithPublisher(p *events.Publisher) ServerOption {
	return func(s *Server) { s.publisher = p }
}

// WithHistoryLimit bounds the chat history endpoint's page size.
func WithHistoryLimit(n int) ServerOption {
	return func(s *Server) {
		if n > 0 {
			s.historyLimit = n
		}
	}
}

// WithServerLogger sets the request logger.
func WithServerLogger(logger *slog.Logger) ServerOption {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewServer wires routes and middleware. The verifier guards everything
// except health and metrics.
func NewServer(store Store, pipeline Pipeline, coach Chatter, verifier *auth.Verifier, opts ...ServerOption) *Server {
	s := &Server{
		store:        store,
		pipeline:     pipeline,
		coach:        coach,
		verifier:     verifier,
		historyLimit: 30,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}

	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(requestID)
	r.Use(s.corsMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(metricsMiddleware)
	r.Use(middleware.Timeout(120 * time.Second))

	r.Get("/healthz", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", observability.Handler())

	r.Group(func(r chi.Router) {
		r.Use(auth.Middleware(s.verifier))

		r.Get("/goals", s.handleListGoals)
		r.Post("/goals", s.handleCreateGoal)
		r.Get("/goals/{goalID}/tasks", s.handleListGoalTasks)
		r.Patch("/tasks/{taskID}", s.handleUpdateTask)

		r.Get("/profile/me", s.handleGetProfile)
		r.Post("/profile", s.handleUpsertProfile)

		r.Post("/chat", s.handleChat)
		r.Get("/chat/history", s.handleChatHistory)
	})

	s.router = r
	return s
}

// Handler returns the root handler for the HTTP server.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
