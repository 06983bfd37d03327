// Package http exposes the orchestrator over a JSON HTTP API. It is an
// adapter at the boundary: request/response mapping and status codes only,
// no orchestration logic.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/aretw0/conductor/internal/logging"
	"github.com/aretw0/conductor/pkg/domain"
)

// Orchestrator is the slice of the core this adapter drives.
type Orchestrator interface {
	RegisterDefinition(ctx context.Context, def *domain.WorkflowDefinition) (*domain.WorkflowDefinition, error)
	GetDefinition(ctx context.Context, name, version, tenant string) (*domain.WorkflowDefinition, error)
	CreateInstance(ctx context.Context, def *domain.WorkflowDefinition, initCtx map[string]any) (*domain.WorkflowInstance, error)
	GetInstance(ctx context.Context, id string) (*domain.WorkflowInstance, error)
	TriggerTransition(ctx context.Context, instanceID, transitionName string, payload map[string]any) (*domain.WorkflowInstance, error)
	Simulate(ctx context.Context, def *domain.WorkflowDefinition, initCtx map[string]any, transitionNames []string) (*domain.SimulationResult, error)
	RouteEvent(ctx context.Context, event domain.EventPayload) (*domain.RouteResult, error)
}

// Server maps HTTP requests onto the orchestrator.
type Server struct {
	core   Orchestrator
	logger *slog.Logger
}

// Option configures the Server.
type Option func(*Server)

// WithLogger sets the request logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewHandler creates the HTTP handler for the orchestrator API.
func NewHandler(core Orchestrator, opts ...Option) http.Handler {
	s := &Server{
		core:   core,
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}

	r := chi.NewRouter()
	r.Get("/healthz", s.health)
	r.Post("/definitions", s.registerDefinition)
	r.Get("/definitions/{name}", s.getDefinition)
	r.Post("/instances", s.createInstance)
	r.Get("/instances/{id}", s.getInstance)
	r.Post("/instances/{id}/transitions/{transition}", s.triggerTransition)
	r.Post("/events", s.ingestEvent)
	r.Post("/simulate", s.simulate)
	return r
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) registerDefinition(w http.ResponseWriter, r *http.Request) {
	var def domain.WorkflowDefinition
	if !s.decode(w, r, &def) {
		return
	}

	stored, err := s.core.RegisterDefinition(r.Context(), &def)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, stored)
}

func (s *Server) getDefinition(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	version := r.URL.Query().Get("version")
	tenant := r.URL.Query().Get("tenant")

	def, err := s.core.GetDefinition(r.Context(), name, version, tenant)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, def)
}

type createInstanceRequest struct {
	Workflow string         `json:"workflow"`
	Version  string         `json:"version,omitempty"`
	Tenant   string         `json:"tenant,omitempty"`
	Context  map[string]any `json:"context,omitempty"`
}

func (s *Server) createInstance(w http.ResponseWriter, r *http.Request) {
	var req createInstanceRequest
	if !s.decode(w, r, &req) {
		return
	}

	def, err := s.core.GetDefinition(r.Context(), req.Workflow, req.Version, req.Tenant)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	inst, err := s.core.CreateInstance(r.Context(), def, req.Context)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, inst)
}

func (s *Server) getInstance(w http.ResponseWriter, r *http.Request) {
	inst, err := s.core.GetInstance(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, inst)
}

func (s *Server) triggerTransition(w http.ResponseWriter, r *http.Request) {
	payload := map[string]any{}
	// An empty body is a valid trigger with no payload.
	if r.Body != nil && r.ContentLength != 0 {
		if !s.decode(w, r, &payload) {
			return
		}
	}

	inst, err := s.core.TriggerTransition(r.Context(),
		chi.URLParam(r, "id"), chi.URLParam(r, "transition"), payload)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, inst)
}

func (s *Server) ingestEvent(w http.ResponseWriter, r *http.Request) {
	var event domain.EventPayload
	if !s.decode(w, r, &event) {
		return
	}
	if event.EventType == "" {
		http.Error(w, "event_type is required", http.StatusBadRequest)
		return
	}

	res, err := s.core.RouteEvent(r.Context(), event)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, res)
}

type simulateRequest struct {
	Definition  *domain.WorkflowDefinition `json:"definition"`
	Context     map[string]any             `json:"context,omitempty"`
	Transitions []string                   `json:"transitions"`
}

func (s *Server) simulate(w http.ResponseWriter, r *http.Request) {
	var req simulateRequest
	if !s.decode(w, r, &req) {
		return
	}
	if req.Definition == nil {
		http.Error(w, "definition is required", http.StatusBadRequest)
		return
	}

	res, err := s.core.Simulate(r.Context(), req.Definition, req.Context, req.Transitions)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, res)
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		s.logger.Warn("invalid request body", "path", r.URL.Path, "err", err)
		return false
	}
	return true
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("encoding response", "err", err)
	}
}

// writeError maps the core error taxonomy onto HTTP status categories.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrValidation), errors.Is(err, domain.ErrInvalidTransition):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrIllegalState):
		status = http.StatusConflict
	case errors.Is(err, domain.ErrPolicyDenied):
		status = http.StatusForbidden
	}

	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", "path", r.URL.Path, "err", err)
	}

	s.writeJSON(w, status, map[string]string{"error": err.Error()})
}
