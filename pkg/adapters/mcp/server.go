package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/aretw0/certwizard/internal/logging"
	"github.com/aretw0/certwizard/pkg/domain"
	"github.com/go-chi/chi/v5"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// StateURI is the resource exposing the wizard snapshot.
const StateURI = "certwizard://state"

// Wizard defines what the MCP server needs from the orchestrator.
type Wizard interface {
	Steps() []domain.Step
	Snapshot() domain.Snapshot
	Run(ctx context.Context, name domain.StepName, input string) (domain.Outcome, error)
}

// StepResult is the structured payload returned by every step tool.
type StepResult struct {
	Step     domain.StepName `json:"step"`
	Phase    domain.Phase    `json:"phase"`
	Status   int             `json:"status,omitempty"`
	Text     string          `json:"text,omitempty"`
	Link     string          `json:"link,omitempty"`
	Duration string          `json:"duration"`
	Error    string          `json:"error,omitempty"`
}

// Server wraps the wizard and exposes it as an MCP Server.
// Each step becomes a tool named after it; wizard_state reports progress.
type Server struct {
	wizard    Wizard
	logger    *slog.Logger
	mcpServer *server.MCPServer
}

// Option configures the Server.
type Option func(*Server)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		s.logger = l
	}
}

// NewServer creates a new MCP Server instance.
func NewServer(w Wizard, version string, opts ...Option) *Server {
	s := &Server{
		wizard:    w,
		logger:    logging.NewNop(),
		mcpServer: server.NewMCPServer("certwizard-mcp", version),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registerTools()
	s.registerResources()
	return s
}

// MCPServer returns the underlying server (used by tests and custom transports).
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE starts the server on the given port using SSE and stops when ctx is done.
func (s *Server) ServeSSE(ctx context.Context, port int) error {
	addr := fmt.Sprintf(":%d", port)
	baseURL := fmt.Sprintf("http://localhost:%d", port)

	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	r := chi.NewRouter()
	r.Use(corsMiddleware)
	r.Handle("/sse", sseServer.SSEHandler())
	r.Handle("/message", sseServer.MessageHandler())

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("MCP Server listening (SSE)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) registerTools() {
	for _, step := range s.wizard.Steps() {
		opts := []mcp.ToolOption{
			mcp.WithDescription(describe(step)),
		}
		if step.Field != "" {
			opts = append(opts, mcp.WithString(step.Field,
				mcp.Required(),
				mcp.Description("Form value posted with the step (the recipient roster as CSV)"),
			))
		}
		s.mcpServer.AddTool(mcp.NewTool(string(step.Name), opts...), s.stepHandler(step))
	}

	s.mcpServer.AddTool(mcp.NewTool("wizard_state",
		mcp.WithDescription("Get the phase, enabled trigger and last output of every wizard step."),
	), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		jsonBytes, _ := json.Marshal(s.wizard.Snapshot())
		return mcp.NewToolResultText(string(jsonBytes)), nil
	})
}

func describe(step domain.Step) string {
	desc := fmt.Sprintf("Run the %s step (%s ?%s).", step.Name, step.Method, step.Selector)
	if step.Next != "" {
		desc += fmt.Sprintf(" Unlocks %s on success.", step.Next)
	}
	if step.Terminal {
		desc += " Final step: it cannot be repeated once it succeeds."
	}
	return desc
}

func (s *Server) stepHandler(step domain.Step) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var input string
		if step.Field != "" {
			v, ok := request.GetArguments()[step.Field].(string)
			if !ok || v == "" {
				return mcp.NewToolResultError(fmt.Sprintf("missing required argument %q", step.Field)), nil
			}
			input = v
		}

		out, err := s.wizard.Run(ctx, step.Name, input)
		res := StepResult{
			Step:     step.Name,
			Phase:    out.Phase,
			Status:   out.Status,
			Text:     out.Text,
			Link:     out.Link,
			Duration: out.Duration.String(),
		}
		if err != nil {
			s.logger.Warn("MCP step failed", "step", step.Name, "err", err)
			res.Error = err.Error()
			if errors.Is(err, domain.ErrTriggerDisabled) {
				return mcp.NewToolResultError(fmt.Sprintf("step %s is not available yet: run the previous steps first", step.Name)), nil
			}
		}

		jsonBytes, _ := json.Marshal(res)
		result := mcp.NewToolResultText(string(jsonBytes))
		result.IsError = err != nil
		return result, nil
	}
}

func (s *Server) registerResources() {
	s.mcpServer.AddResource(mcp.NewResource(StateURI, "Wizard State",
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		jsonBytes, err := json.Marshal(s.wizard.Snapshot())
		if err != nil {
			return nil, fmt.Errorf("failed to encode state: %w", err)
		}

		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      StateURI,
				MIMEType: "application/json",
				Text:     string(jsonBytes),
			},
		}, nil
	})
}
