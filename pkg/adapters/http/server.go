package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/aretw0/certwizard/internal/logging"
	"github.com/aretw0/certwizard/internal/runtime"
	"github.com/aretw0/certwizard/pkg/domain"
	"github.com/go-chi/chi/v5"
)

// maxFormBytes bounds a posted roster.
const maxFormBytes = 1 << 20

// Wizard defines what the control server needs from the orchestrator.
type Wizard interface {
	Start(ctx context.Context, name domain.StepName, input string) (*runtime.Call, error)
	Snapshot() domain.Snapshot
	Steps() []domain.Step
}

// Server exposes the wizard as an HTML form and a small JSON API.
type Server struct {
	Wizard  Wizard
	Streams *StreamManager
	Page    *Page
	Logger  *slog.Logger
	Metrics http.Handler
	Version string
}

// ServerOption configures the Server.
type ServerOption func(*Server)

// WithStreams shares a stream manager (usually the one fed by a StreamView).
func WithStreams(sm *StreamManager) ServerOption {
	return func(s *Server) {
		s.Streams = sm
	}
}

// WithMetricsHandler mounts h on /metrics.
func WithMetricsHandler(h http.Handler) ServerOption {
	return func(s *Server) {
		s.Metrics = h
	}
}

// WithServerLogger sets the logger.
func WithServerLogger(l *slog.Logger) ServerOption {
	return func(s *Server) {
		s.Logger = l
	}
}

// WithVersion is reported by /health.
func WithVersion(v string) ServerOption {
	return func(s *Server) {
		s.Version = v
	}
}

// NewHandler creates a new HTTP handler for the wizard.
func NewHandler(w Wizard, opts ...ServerOption) http.Handler {
	s := &Server{
		Wizard:  w,
		Page:    NewPage("Certificate Wizard"),
		Logger:  logging.NewNop(),
		Version: "dev",
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.Streams == nil {
		s.Streams = NewStreamManager()
	}

	r := chi.NewRouter()
	r.Get("/", s.GetPage)
	r.Post("/steps/{step}", s.PostStepForm)
	r.Get("/health", s.GetHealth)
	r.Get("/events", s.SubscribeEvents)
	r.Route("/api", func(r chi.Router) {
		r.Get("/state", s.GetState)
		r.Get("/steps", s.GetSteps)
		r.Post("/steps/{step}", s.PostStep)
	})
	if s.Metrics != nil {
		r.Handle("/metrics", s.Metrics)
	}
	return r
}

// GetPage handles GET /.
func (s *Server) GetPage(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.Page.Render(w, s.Wizard.Steps(), s.Wizard.Snapshot()); err != nil {
		s.Logger.Error("Page render failed", "error", err)
	}
}

// PostStepForm handles the HTML form submit and redirects back to the page.
func (s *Server) PostStepForm(w http.ResponseWriter, r *http.Request) {
	if _, err := s.start(w, r); err != nil {
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// PostStep handles POST /api/steps/{step}.
// The step runs detached from the request; ?wait=true blocks for its outcome.
func (s *Server) PostStep(w http.ResponseWriter, r *http.Request) {
	call, err := s.start(w, r)
	if err != nil {
		return
	}

	if r.URL.Query().Get("wait") != "true" {
		writeJSON(w, http.StatusAccepted, outcomeResponse(call.Outcome()))
		return
	}

	out, err := call.Wait(r.Context())
	if err != nil && out.Phase == domain.PhasePending {
		// Client went away; the step keeps running.
		return
	}
	code := http.StatusOK
	if out.Phase == domain.PhaseFailed {
		code = http.StatusBadGateway
	}
	writeJSON(w, code, outcomeResponse(out))
}

func (s *Server) start(w http.ResponseWriter, r *http.Request) (*runtime.Call, error) {
	name := domain.StepName(chi.URLParam(r, "step"))

	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form body", http.StatusBadRequest)
		s.Logger.Warn("Step: invalid form body", "step", name, "error", err)
		return nil, err
	}
	input := r.PostForm.Get(domain.FieldCSV)

	// Detach from the request so a closed tab does not abort the step.
	call, err := s.Wizard.Start(context.WithoutCancel(r.Context()), name, input)
	switch {
	case err == nil:
		return call, nil
	case errors.Is(err, domain.ErrUnknownStep):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, domain.ErrTriggerDisabled):
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		http.Error(w, fmt.Sprintf("Step error: %v", err), http.StatusInternalServerError)
		s.Logger.Error("Step start failed", "step", name, "error", err)
	}
	return nil, err
}

type outcomeJSON struct {
	Step       domain.StepName `json:"step"`
	Phase      domain.Phase    `json:"phase"`
	Status     int             `json:"status,omitempty"`
	Text       string          `json:"text,omitempty"`
	Link       string          `json:"link,omitempty"`
	DurationMS int64           `json:"duration_ms"`
	Error      string          `json:"error,omitempty"`
}

func outcomeResponse(o domain.Outcome) outcomeJSON {
	resp := outcomeJSON{
		Step:       o.Step,
		Phase:      o.Phase,
		Status:     o.Status,
		Text:       o.Text,
		Link:       o.Link,
		DurationMS: o.Duration.Milliseconds(),
	}
	if o.Err != nil {
		resp.Error = o.Err.Error()
	}
	return resp
}

// GetState handles GET /api/state.
func (s *Server) GetState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Wizard.Snapshot())
}

// GetSteps handles GET /api/steps.
func (s *Server) GetSteps(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Wizard.Steps())
}

// GetHealth handles GET /health.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "version": s.Version})
}

// SubscribeEvents handles GET /events (SSE of view mutations).
func (s *Server) SubscribeEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		s.Logger.Error("SubscribeEvents: Streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch, cancel := s.Streams.Subscribe()
	defer cancel()

	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			s.Logger.Debug("SSE Client Disconnected")
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

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Response encode failed", "error", err)
	}
}
