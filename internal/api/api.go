// Package api provides HTTP handlers and the main API server logic for SMTG.
//
// It exposes RESTful endpoints for recording usage sessions, driving the
// nudge and focus lifecycle, and reading behavior analysis, dashboard, and
// insights aggregates. The API integrates with the store, flow, analyzer,
// and insights modules.
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/smtguard/smtg/internal/analyzer"
	"github.com/smtguard/smtg/internal/flow"
	"github.com/smtguard/smtg/internal/models"
	"github.com/smtguard/smtg/internal/store"
)

// DefaultAddr is the default listen address for the API server.
const DefaultAddr = ":8080"

// DefaultUserID keys the flow state for the single local user.
const DefaultUserID = "local"

// Timeouts for the HTTP server and graceful shutdown.
const (
	DefaultReadTimeout     = 15 * time.Second
	DefaultWriteTimeout    = 15 * time.Second
	DefaultShutdownTimeout = 10 * time.Second
)

// Opts holds configuration options for the API server.
type Opts struct {
	Addr    string
	UserID  string
	Weights analyzer.Weights
	Clock   func() time.Time
}

// Option defines a configuration option for the API server.
type Option func(*Opts)

// WithAddr sets the listen address.
func WithAddr(addr string) Option {
	return func(o *Opts) { o.Addr = addr }
}

// WithUserID sets the flow user key for all requests.
func WithUserID(userID string) Option {
	return func(o *Opts) { o.UserID = userID }
}

// WithWeights overrides the risk scoring weights.
func WithWeights(w analyzer.Weights) Option {
	return func(o *Opts) { o.Weights = w }
}

// WithClock overrides the request-time source. Tests use this to pin the
// instant that handlers stamp on records and feed into aggregations.
func WithClock(clock func() time.Time) Option {
	return func(o *Opts) { o.Clock = clock }
}

// Server handles HTTP requests for SMTG operations.
type Server struct {
	store   store.Store
	flow    *flow.NudgeFlow
	weights analyzer.Weights
	addr    string
	userID  string
	now     func() time.Time
	httpSrv *http.Server
}

// NewServer creates a new API server wired to the given store and flow.
func NewServer(st store.Store, nf *flow.NudgeFlow, opts ...Option) *Server {
	cfg := Opts{
		Addr:    DefaultAddr,
		UserID:  DefaultUserID,
		Weights: analyzer.DefaultWeights(),
		Clock:   time.Now,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("Creating API server", "addr", cfg.Addr, "user", cfg.UserID)
	return &Server{
		store:   st,
		flow:    nf,
		weights: cfg.Weights,
		addr:    cfg.Addr,
		userID:  cfg.UserID,
		now:     cfg.Clock,
	}
}

// Handler builds the route table. Exposed separately from Run so tests can
// drive the mux through httptest without a listener.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/health", s.healthHandler)
	mux.HandleFunc("/api/integrations", s.integrationsHandler)
	mux.HandleFunc("/api/behavior/analyze", s.behaviorHandler)
	mux.HandleFunc("/api/dashboard", s.dashboardHandler)
	mux.HandleFunc("/api/insights", s.insightsHandler)
	mux.HandleFunc("/api/profile", s.profileHandler)
	mux.HandleFunc("/api/settings", s.settingsHandler)
	mux.HandleFunc("/api/subscription", s.subscriptionHandler)
	mux.HandleFunc("/api/sessions", s.sessionsHandler)
	mux.HandleFunc("/api/focus-sessions", s.focusSessionsHandler)
	mux.HandleFunc("/api/nudges/trigger", s.nudgeTriggerHandler)
	mux.HandleFunc("/api/nudges/respond", s.nudgeRespondHandler)
	mux.HandleFunc("/api/nudges/pending", s.nudgePendingHandler)
	mux.HandleFunc("/api/focus/start", s.focusStartHandler)
	mux.HandleFunc("/api/focus/end", s.focusEndHandler)
	mux.HandleFunc("/api/export", s.exportHandler)
	mux.HandleFunc("/api/data", s.dataHandler)
	return mux
}

// Run starts the API server and blocks until the context is canceled, then
// shuts the listener down gracefully.
func (s *Server) Run(ctx context.Context) error {
	s.httpSrv = &http.Server{
		Addr:         s.addr,
		Handler:      s.Handler(),
		ReadTimeout:  DefaultReadTimeout,
		WriteTimeout: DefaultWriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("API server listening", "addr", s.addr)
		if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("API server failed: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), DefaultShutdownTimeout)
	defer cancel()
	slog.Info("API server shutting down", "addr", s.addr)
	if err := s.httpSrv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("API server shutdown failed: %w", err)
	}
	return nil
}

// goalContext loads the stored profile and settings and derives the engine
// inputs from them.
func (s *Server) goalContext(ctx context.Context) (models.GoalContext, error) {
	profile, err := s.store.GetProfile(ctx)
	if err != nil {
		return models.GoalContext{}, fmt.Errorf("failed to load profile: %w", err)
	}
	settings, err := s.store.GetSettings(ctx)
	if err != nil {
		return models.GoalContext{}, fmt.Errorf("failed to load settings: %w", err)
	}
	return models.GoalContextFrom(profile, settings), nil
}

// writeDomainError maps engine errors onto HTTP status codes: validation
// failures are bad requests, lifecycle conflicts are conflicts, anything
// else is an internal error behind a generic message.
func writeDomainError(w http.ResponseWriter, op string, err error) {
	switch {
	case models.IsValidationError(err):
		slog.Warn(op+": validation failed", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error(err.Error()))
	case errors.Is(err, models.ErrInvalidState):
		slog.Warn(op+": state conflict", "error", err)
		writeJSONResponse(w, http.StatusConflict, models.Error(err.Error()))
	default:
		slog.Error(op+": operation failed", "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Internal server error"))
	}
}

// requireMethod enforces the single allowed method for a route.
func requireMethod(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method == method {
		return true
	}
	w.Header().Set("Allow", method)
	slog.Warn("Server: method not allowed", "method", r.Method, "path", r.URL.Path)
	w.WriteHeader(http.StatusMethodNotAllowed)
	return false
}
