package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/aretw0/roboflow/internal/presentation/graph"
	"github.com/aretw0/roboflow/internal/validator"
	"github.com/aretw0/roboflow/pkg/domain"
	"github.com/aretw0/roboflow/pkg/ports"
	"github.com/aretw0/roboflow/pkg/scenario"
)

const projectURI = "roboflow://project"

// Engine defines the interface required by the MCP server to drive scenarios.
type Engine interface {
	LoadProject(ctx context.Context) (*scenario.Project, error)
	Validate(sc *scenario.Scenario) error
	Run(ctx context.Context, sc *scenario.Scenario) (*domain.Report, error)
}

// ValidationResponse is the structured result of validate_scenario.
type ValidationResponse struct {
	Scenario string   `json:"scenario" jsonschema_description:"The validated scenario"`
	Valid    bool     `json:"valid" jsonschema_description:"Whether the scenario can be run"`
	Error    string   `json:"error,omitempty" jsonschema_description:"Why the scenario is invalid"`
	Warnings []string `json:"warnings,omitempty" jsonschema_description:"Likely mistakes that do not prevent a run"`
}

// Server wraps the Roboflow Engine and exposes it as an MCP Server.
type Server struct {
	engine    Engine
	runs      ports.RunStore
	mcpServer *server.MCPServer
}

// NewServer creates a new MCP Server instance. runs may be nil, which disables get_run.
func NewServer(engine Engine, runs ports.RunStore, version string) *Server {
	s := &Server{
		engine:    engine,
		runs:      runs,
		mcpServer: server.NewMCPServer("roboflow-mcp", version),
	}
	s.registerTools()
	s.registerResources()
	return s
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

	mux := http.NewServeMux()
	mux.Handle("/sse", corsMiddleware(sseServer.SSEHandler()))
	mux.Handle("/message", corsMiddleware(sseServer.MessageHandler()))

	httpServer := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	serverErrors := make(chan error, 1)
	go func() {
		slog.Info("MCP Server listening (SSE)", "address", addr)
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
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool("list_scenarios",
		mcp.WithDescription("List the names of the scenarios in the loaded project."),
	), s.handleListScenarios)

	s.mcpServer.AddTool(mcp.NewTool("validate_scenario",
		mcp.WithDescription("Check a scenario's structure and XPath guards without touching the device."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Scenario name")),
		mcp.WithOutputSchema[ValidationResponse](),
	), mcp.NewStructuredToolHandler(s.handleValidate))

	s.mcpServer.AddTool(mcp.NewTool("run_scenario",
		mcp.WithDescription("Run a scenario on the device and return its report. Blocks until the run ends."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Scenario name")),
		mcp.WithOutputSchema[domain.Report](),
	), mcp.NewStructuredToolHandler(s.handleRun))

	s.mcpServer.AddTool(mcp.NewTool("get_graph",
		mcp.WithDescription("Get a scenario's state graph as a Mermaid flowchart."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Scenario name")),
		mcp.WithString("run_id", mcp.Description("Highlight the trace of this run (optional)")),
	), s.handleGraph)

	if s.runs != nil {
		s.mcpServer.AddTool(mcp.NewTool("get_run",
			mcp.WithDescription("Load the saved report of a previous run."),
			mcp.WithString("run_id", mcp.Required(), mcp.Description("Run ID")),
		), s.handleGetRun)
	}
}

func (s *Server) lookup(ctx context.Context, name string) (*scenario.Scenario, error) {
	if name == "" {
		return nil, errors.New("name is required")
	}
	p, err := s.engine.LoadProject(ctx)
	if err != nil {
		return nil, err
	}
	sc, ok := p.Scenario(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", scenario.ErrScenarioNotFound, name)
	}
	return sc, nil
}

func (s *Server) handleListScenarios(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	p, err := s.engine.LoadProject(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("load failed: %v", err)), nil
	}
	names := make([]string, 0, len(p.Scenarios))
	for _, sc := range p.Scenarios {
		names = append(names, sc.Name)
	}
	jsonBytes, _ := json.Marshal(names)
	return mcp.NewToolResultText(string(jsonBytes)), nil
}

func (s *Server) handleValidate(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (ValidationResponse, error) {
	name, _ := args["name"].(string)
	sc, err := s.lookup(ctx, name)
	if err != nil {
		return ValidationResponse{}, err
	}
	resp := ValidationResponse{Scenario: name}
	if err := s.engine.Validate(sc); err != nil {
		resp.Error = err.Error()
		return resp, nil
	}
	resp.Valid = true
	for _, w := range validator.Lint(sc) {
		resp.Warnings = append(resp.Warnings, w.String())
	}
	return resp, nil
}

func (s *Server) handleRun(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (domain.Report, error) {
	name, _ := args["name"].(string)
	sc, err := s.lookup(ctx, name)
	if err != nil {
		return domain.Report{}, err
	}
	report, err := s.engine.Run(ctx, sc)
	if report == nil {
		return domain.Report{}, fmt.Errorf("run failed: %w", err)
	}
	if err != nil {
		slog.Warn("MCP Run: aborted", "run_id", report.RunID, "err", err)
	}
	return *report, nil
}

func (s *Server) handleGraph(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := request.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	sc, err := s.lookup(ctx, name)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var overlay *graph.GraphOverlay
	if runID := request.GetString("run_id", ""); runID != "" && s.runs != nil {
		report, err := s.runs.Load(ctx, runID)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("load run: %v", err)), nil
		}
		overlay = graph.OverlayFromReport(report)
	}
	return mcp.NewToolResultText(graph.GenerateMermaid(sc, overlay)), nil
}

func (s *Server) handleGetRun(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	runID, err := request.RequireString("run_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	report, err := s.runs.Load(ctx, runID)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	jsonBytes, _ := json.Marshal(report)
	return mcp.NewToolResultText(string(jsonBytes)), nil
}

func (s *Server) registerResources() {
	s.mcpServer.AddResource(mcp.NewResource(projectURI, "Current Project",
		mcp.WithMIMEType("application/xml"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		p, err := s.engine.LoadProject(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to load project: %w", err)
		}
		data, err := scenario.Marshal(p)
		if err != nil {
			return nil, err
		}
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      projectURI,
				MIMEType: "application/xml",
				Text:     string(data),
			},
		}, nil
	})
}
