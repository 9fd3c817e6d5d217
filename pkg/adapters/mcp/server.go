// Package mcp exposes stored graphs to MCP clients as tools and resources.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/hgl-pong/baklavajs-sub000"
	"github.com/hgl-pong/baklavajs-sub000/internal/logging"
	"github.com/hgl-pong/baklavajs-sub000/internal/presentation/graph"
	"github.com/hgl-pong/baklavajs-sub000/pkg/document"
	"github.com/hgl-pong/baklavajs-sub000/pkg/domain"
	"github.com/hgl-pong/baklavajs-sub000/pkg/registry"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"golang.org/x/sync/errgroup"
)

const graphURIPrefix = "nodeflow://graphs/"

// Host is the part of nodeflow.Host the MCP server needs.
type Host interface {
	Engines() []registry.Info
	Graphs(ctx context.Context) ([]string, error)
	Load(ctx context.Context, graphID string) (*document.Document, error)
	Run(ctx context.Context, graphID string, opts nodeflow.RunOptions) (domain.CalculationResult, error)
}

// RunResponse is the structured result of run_graph.
type RunResponse struct {
	GraphID string                   `json:"graph_id" jsonschema_description:"The graph that was run"`
	Result  domain.CalculationResult `json:"result" jsonschema_description:"Outputs per calculated node"`
	Error   string                   `json:"error,omitempty" jsonschema_description:"Set when the run stopped early; result then holds the nodes calculated before"`
}

// DescribeResponse is the structured result of describe_graph.
type DescribeResponse struct {
	GraphID     string `json:"graph_id"`
	Nodes       int    `json:"nodes"`
	Connections int    `json:"connections"`
	Mermaid     string `json:"mermaid" jsonschema_description:"Mermaid flowchart of the graph"`
}

// Server wraps a Host and exposes it as an MCP Server.
type Server struct {
	host      Host
	mcpServer *server.MCPServer
	logger    *slog.Logger
}

// NewServer creates a new MCP Server instance.
func NewServer(host Host, logger *slog.Logger) *Server {
	if logger == nil {
		logger = logging.NewNop()
	}
	s := &Server{
		host:      host,
		mcpServer: server.NewMCPServer("nodeflow-mcp", nodeflow.Version),
		logger:    logger,
	}
	s.registerTools()
	s.registerResources()
	return s
}

// MCPServer returns the underlying server.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE serves MCP over SSE on addr until ctx is done.
func (s *Server) ServeSSE(ctx context.Context, addr, baseURL string) error {
	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", corsMiddleware(sseServer.SSEHandler()))
	mux.Handle("/message", corsMiddleware(sseServer.MessageHandler()))

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.Info("MCP Server listening (SSE)", "address", addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	})
	return g.Wait()
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool("list_engines",
		mcp.WithDescription("List the engine types that can run a graph."),
	), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		data, err := json.Marshal(s.host.Engines())
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(string(data)), nil
	})

	s.mcpServer.AddTool(mcp.NewTool("list_graphs",
		mcp.WithDescription("List the IDs of stored graphs."),
	), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		ids, err := s.host.Graphs(ctx)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("list failed: %v", err)), nil
		}
		data, _ := json.Marshal(ids)
		return mcp.NewToolResultText(string(data)), nil
	})

	runTool := mcp.NewTool("run_graph",
		mcp.WithDescription("Run a stored graph once and return the outputs of every calculated node."),
		mcp.WithString("graph_id", mcp.Required(), mcp.Description("ID of the stored graph")),
		mcp.WithString("engine", mcp.Description("Engine type (optional, defaults to the registry default)")),
		mcp.WithString("overrides", mcp.Description(`JSON object of input values keyed by "node:interface" (optional)`)),
		mcp.WithString("globals", mcp.Description("JSON value passed to every calculation (optional)")),
		mcp.WithOutputSchema[RunResponse](),
	)
	s.mcpServer.AddTool(runTool, mcp.NewStructuredToolHandler(s.handleRunGraph))

	describeTool := mcp.NewTool("describe_graph",
		mcp.WithDescription("Describe a stored graph as a Mermaid flowchart."),
		mcp.WithString("graph_id", mcp.Required(), mcp.Description("ID of the stored graph")),
		mcp.WithOutputSchema[DescribeResponse](),
	)
	s.mcpServer.AddTool(describeTool, mcp.NewStructuredToolHandler(s.handleDescribeGraph))
}

func (s *Server) handleRunGraph(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (RunResponse, error) {
	graphID, _ := args["graph_id"].(string)
	if graphID == "" {
		return RunResponse{}, errors.New("graph_id is required")
	}

	opts := nodeflow.RunOptions{}
	opts.Engine, _ = args["engine"].(string)
	if raw, ok := args["overrides"].(string); ok && raw != "" {
		if err := json.Unmarshal([]byte(raw), &opts.Overrides); err != nil {
			return RunResponse{}, fmt.Errorf("overrides must be a JSON object: %w", err)
		}
	}
	if raw, ok := args["globals"].(string); ok && raw != "" {
		if err := json.Unmarshal([]byte(raw), &opts.Globals); err != nil {
			return RunResponse{}, fmt.Errorf("globals must be JSON: %w", err)
		}
	}

	result, err := s.host.Run(ctx, graphID, opts)
	if err != nil && result == nil {
		return RunResponse{}, fmt.Errorf("run failed: %w", err)
	}
	resp := RunResponse{GraphID: graphID, Result: result}
	if err != nil {
		s.logger.Warn("MCP run_graph: Run stopped early", "graph", graphID, "err", err)
		resp.Error = err.Error()
	}
	return resp, nil
}

func (s *Server) handleDescribeGraph(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (DescribeResponse, error) {
	graphID, _ := args["graph_id"].(string)
	doc, err := s.host.Load(ctx, graphID)
	if err != nil {
		return DescribeResponse{}, fmt.Errorf("load failed: %w", err)
	}
	return DescribeResponse{
		GraphID:     doc.ID,
		Nodes:       len(doc.Nodes),
		Connections: len(doc.Connections),
		Mermaid:     graph.GenerateMermaid(doc, nil),
	}, nil
}

func (s *Server) registerResources() {
	// EXPOSE: nodeflow://graphs/{id}
	s.mcpServer.AddResourceTemplate(mcp.NewResourceTemplate(graphURIPrefix+"{id}", "Graph Document",
		mcp.WithTemplateDescription("A stored graph document"),
		mcp.WithTemplateMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		graphID := strings.TrimPrefix(request.Params.URI, graphURIPrefix)
		doc, err := s.host.Load(ctx, graphID)
		if err != nil {
			return nil, fmt.Errorf("failed to load graph: %w", err)
		}
		data, err := json.Marshal(doc)
		if err != nil {
			return nil, err
		}
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      request.Params.URI,
				MIMEType: "application/json",
				Text:     string(data),
			},
		}, nil
	})
}
