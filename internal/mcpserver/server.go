// Package mcpserver exposes the Pasabayan tool catalog over the Model
// Context Protocol, so external MCP clients (editors, agent runtimes) can
// call the same tools the chat assistant uses.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/pasabayan/chatd/internal/gateway"
	"github.com/pasabayan/chatd/internal/identity"
	"github.com/pasabayan/chatd/internal/log"
	"github.com/pasabayan/chatd/internal/tools"
)

// Server bridges the tool registry to an MCP server.
type Server struct {
	mcpServer *mcp.Server
	registry  *tools.Registry
	gateway   *gateway.Client
	logger    log.Logger
}

// Config holds MCP server configuration.
type Config struct {
	Name     string
	Version  string
	Registry *tools.Registry
	Gateway  *gateway.Client

	// Caller is the identity every MCP tool call runs as. The transport
	// carries no per-request credentials, so the identity is fixed at
	// startup (typically admin for an operator-facing deployment).
	Caller identity.Context

	Logger log.Logger
}

// NewServer creates an MCP server advertising the full catalog.
func NewServer(cfg Config) (*Server, error) {
	if cfg.Name == "" {
		return nil, errors.New("server name is required")
	}
	if cfg.Version == "" {
		return nil, errors.New("server version is required")
	}
	if cfg.Registry == nil {
		return nil, errors.New("tool registry is required")
	}
	if cfg.Gateway == nil {
		return nil, errors.New("gateway client is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = log.NewNop()
	}

	mcpServer := mcp.NewServer(&mcp.Implementation{
		Name:    cfg.Name,
		Version: cfg.Version,
	}, nil)

	s := &Server{
		mcpServer: mcpServer,
		registry:  cfg.Registry,
		gateway:   cfg.Gateway.ForCaller(cfg.Caller),
		logger:    logger,
	}
	s.registerTools()

	return s, nil
}

// Run starts the MCP server on the given transport. Blocks until the
// transport closes or ctx is canceled.
func (s *Server) Run(ctx context.Context, transport mcp.Transport) error {
	if err := s.mcpServer.Run(ctx, transport); err != nil {
		return fmt.Errorf("running MCP server: %w", err)
	}
	return nil
}

// registerTools mirrors every registry declaration as an MCP tool. The
// catalog schemas are already jsonschema values, so they pass through
// without conversion.
func (s *Server) registerTools() {
	for _, decl := range s.registry.Declarations() {
		tool := &mcp.Tool{
			Name:        decl.Name,
			Description: decl.Description,
			InputSchema: decl.InputSchema,
		}
		s.mcpServer.AddTool(tool, s.callTool)
	}
}

// callTool dispatches one MCP tool call through the registry. Unknown-tool
// and parameter errors come back as explanatory text the same way they do
// for the chat assistant.
func (s *Server) callTool(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	params := map[string]any{}
	if len(req.Params.Arguments) > 0 {
		if err := json.Unmarshal(req.Params.Arguments, &params); err != nil {
			return nil, fmt.Errorf("decoding arguments: %w", err)
		}
	}

	res := s.registry.Execute(ctx, tools.Call{Name: req.Params.Name, Params: params}, s.gateway)
	s.logger.Debug("mcp tool call", "tool", req.Params.Name, "is_error", res.IsError)

	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: res.Text}},
		IsError: res.IsError,
	}, nil
}
