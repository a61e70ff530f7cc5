package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/aretw0/roboflow/internal/presentation/graph"
	"github.com/aretw0/roboflow/internal/validator"
	"github.com/aretw0/roboflow/pkg/domain"
	"github.com/aretw0/roboflow/pkg/ports"
	"github.com/aretw0/roboflow/pkg/scenario"
)

// maxBodyBytes bounds uploaded scenario documents.
const maxBodyBytes = 4 << 20

// Engine defines the subset of roboflow.Engine the server drives.
type Engine interface {
	LoadProject(ctx context.Context) (*scenario.Project, error)
	Validate(sc *scenario.Scenario) error
	Run(ctx context.Context, sc *scenario.Scenario) (*domain.Report, error)
}

// Server exposes scenarios, runs and run events over HTTP.
type Server struct {
	Engine  Engine
	Runs    ports.RunStore
	Streams *StreamManager
	Metrics http.Handler
	Version string
	logger  *slog.Logger
}

// Option configures the Server.
type Option func(*Server)

// WithRunStore enables the /runs endpoints.
func WithRunStore(store ports.RunStore) Option {
	return func(s *Server) {
		s.Runs = store
	}
}

// WithStreams serves run events from sm on /events. The engine must publish to sm.Hooks().
func WithStreams(sm *StreamManager) Option {
	return func(s *Server) {
		s.Streams = sm
	}
}

// WithMetrics mounts h on /metrics.
func WithMetrics(h http.Handler) Option {
	return func(s *Server) {
		s.Metrics = h
	}
}

// WithVersion sets the version reported by /info.
func WithVersion(v string) Option {
	return func(s *Server) {
		s.Version = v
	}
}

// WithLogger sets the request logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewHandler creates a new HTTP handler for the engine.
func NewHandler(engine Engine, opts ...Option) http.Handler {
	s := &Server{
		Engine:  engine,
		Version: "unknown",
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s.Routes()
}

// Routes builds the chi router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(enableCORS)

	r.Get("/health", s.GetHealth)
	r.Get("/info", s.GetInfo)
	r.Post("/validate", s.ValidateDocument)

	r.Route("/scenarios", func(r chi.Router) {
		r.Get("/", s.ListScenarios)
		r.Route("/{name}", func(r chi.Router) {
			r.Get("/", s.GetScenario)
			r.Get("/graph", s.GetScenarioGraph)
			r.Post("/validate", s.ValidateScenario)
			r.Post("/runs", s.RunScenario)
		})
	})

	if s.Runs != nil {
		r.Route("/runs", func(r chi.Router) {
			r.Get("/", s.ListRuns)
			r.Get("/{id}", s.GetRun)
			r.Get("/{id}/graph", s.GetRunGraph)
			r.Delete("/{id}", s.DeleteRun)
		})
	}
	if s.Streams != nil {
		r.Get("/events", s.SubscribeEvents)
	}
	if s.Metrics != nil {
		r.Handle("/metrics", s.Metrics)
	}
	return r
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ValidationResult is returned by the validate endpoints.
type ValidationResult struct {
	Valid    bool     `json:"valid"`
	Error    string   `json:"error,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}

// GetHealth handles the GET /health request.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetInfo handles the GET /info request.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{
		"app":     "roboflow-http",
		"version": strings.TrimSpace(s.Version),
	})
}

// ListScenarios handles the GET /scenarios request.
func (s *Server) ListScenarios(w http.ResponseWriter, r *http.Request) {
	p, err := s.Engine.LoadProject(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	names := make([]string, 0, len(p.Scenarios))
	for _, sc := range p.Scenarios {
		names = append(names, sc.Name)
	}
	s.writeJSON(w, http.StatusOK, names)
}

// GetScenario handles the GET /scenarios/{name} request, answering with the XML document.
func (s *Server) GetScenario(w http.ResponseWriter, r *http.Request) {
	sc, ok := s.scenario(w, r)
	if !ok {
		return
	}
	data, err := scenario.Marshal(sc)
	if err != nil {
		s.writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/xml")
	w.Write(data)
}

// GetScenarioGraph handles the GET /scenarios/{name}/graph request.
func (s *Server) GetScenarioGraph(w http.ResponseWriter, r *http.Request) {
	sc, ok := s.scenario(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	io.WriteString(w, graph.GenerateMermaid(sc, nil))
}

// ValidateScenario handles the POST /scenarios/{name}/validate request.
func (s *Server) ValidateScenario(w http.ResponseWriter, r *http.Request) {
	sc, ok := s.scenario(w, r)
	if !ok {
		return
	}
	s.writeJSON(w, http.StatusOK, s.validate(sc))
}

// ValidateDocument handles the POST /validate request, whose body is a Scenario XML document.
func (s *Server) ValidateDocument(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "failed to read body"})
		return
	}
	var sc scenario.Scenario
	if err := scenario.Unmarshal(data, &sc); err != nil {
		s.writeJSON(w, http.StatusOK, ValidationResult{Error: err.Error()})
		return
	}
	s.writeJSON(w, http.StatusOK, s.validate(&sc))
}

func (s *Server) validate(sc *scenario.Scenario) ValidationResult {
	if err := s.Engine.Validate(sc); err != nil {
		return ValidationResult{Error: err.Error()}
	}
	res := ValidationResult{Valid: true}
	for _, warn := range validator.Lint(sc) {
		res.Warnings = append(res.Warnings, warn.String())
	}
	return res
}

// RunScenario handles the POST /scenarios/{name}/runs request.
// The request blocks until the run ends. Aborted runs still answer 200 with their report.
func (s *Server) RunScenario(w http.ResponseWriter, r *http.Request) {
	sc, ok := s.scenario(w, r)
	if !ok {
		return
	}
	report, err := s.Engine.Run(r.Context(), sc)
	if report == nil {
		s.writeError(w, err)
		return
	}
	if err != nil {
		s.logger.Warn("run aborted", "run_id", report.RunID, "err", err)
	}
	s.writeJSON(w, http.StatusOK, report)
}

// ListRuns handles the GET /runs request.
func (s *Server) ListRuns(w http.ResponseWriter, r *http.Request) {
	ids, err := s.Runs.List(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	if ids == nil {
		ids = []string{}
	}
	s.writeJSON(w, http.StatusOK, ids)
}

// GetRun handles the GET /runs/{id} request.
func (s *Server) GetRun(w http.ResponseWriter, r *http.Request) {
	report, err := s.Runs.Load(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, report)
}

// GetRunGraph handles the GET /runs/{id}/graph request: the scenario graph with the run's trace highlighted.
func (s *Server) GetRunGraph(w http.ResponseWriter, r *http.Request) {
	report, err := s.Runs.Load(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	sc, err := s.lookup(r.Context(), report.Scenario)
	if err != nil {
		s.writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	io.WriteString(w, graph.GenerateMermaid(sc, graph.OverlayFromReport(report)))
}

// DeleteRun handles the DELETE /runs/{id} request.
func (s *Server) DeleteRun(w http.ResponseWriter, r *http.Request) {
	if err := s.Runs.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SubscribeEvents handles the GET /events request (SSE). The optional run_id query narrows the stream.
func (s *Server) SubscribeEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	runID := r.URL.Query().Get("run_id")
	ch, cancel := s.Streams.Subscribe(runID)
	defer cancel()

	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			s.logger.Debug("SSE client disconnected", "run_id", runID)
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			fmt.Fprintf(w, "data: %s\n\n", msg)
			flusher.Flush()
		}
	}
}

// -- Helpers --

func (s *Server) lookup(ctx context.Context, name string) (*scenario.Scenario, error) {
	p, err := s.Engine.LoadProject(ctx)
	if err != nil {
		return nil, err
	}
	sc, ok := p.Scenario(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", scenario.ErrScenarioNotFound, name)
	}
	return sc, nil
}

func (s *Server) scenario(w http.ResponseWriter, r *http.Request) (*scenario.Scenario, bool) {
	sc, err := s.lookup(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		s.writeError(w, err)
		return nil, false
	}
	return sc, true
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, scenario.ErrScenarioNotFound), errors.Is(err, domain.ErrRunNotFound):
		return http.StatusNotFound
	case errors.Is(err, scenario.ErrInvalidScenario):
		return http.StatusUnprocessableEntity
	case errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "err", err)
	}
	s.writeJSON(w, status, map[string]string{"error": err.Error()})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("response encode failed", "err", err)
	}
}
