package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	mcpSdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/pasabayan/chatd/internal/config"
	"github.com/pasabayan/chatd/internal/gateway"
	"github.com/pasabayan/chatd/internal/identity"
	"github.com/pasabayan/chatd/internal/mcpserver"
	"github.com/pasabayan/chatd/internal/tools"
)

// runMCP initializes and starts the MCP server on stdio transport.
// Tool calls run with the service credential, so this command is meant for
// operator-side deployments, not end users.
func runMCP() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger := slog.Default()
	logger.Info("starting MCP server", "version", Version)

	gw, err := gateway.New(gateway.Config{
		BaseURL: cfg.GatewayURL,
		Timeout: time.Duration(cfg.GatewayTimeout) * time.Second,
		Logger:  logger,
	})
	if err != nil {
		return fmt.Errorf("creating gateway client: %w", err)
	}

	registry, err := tools.Catalog(logger)
	if err != nil {
		return fmt.Errorf("building tool catalog: %w", err)
	}

	server, err := mcpserver.NewServer(mcpserver.Config{
		Name:     "pasabayan-tools",
		Version:  Version,
		Registry: registry,
		Gateway:  gw,
		Caller: identity.Context{
			Mode:       identity.ModeAdmin,
			Credential: cfg.ServiceToken,
			Privileged: true,
		},
		Logger: logger,
	})
	if err != nil {
		return fmt.Errorf("creating MCP server: %w", err)
	}

	logger.Info("MCP server ready", "name", "pasabayan-tools", "version", Version, "transport", "stdio")

	if err := server.Run(ctx, &mcpSdk.StdioTransport{}); err != nil {
		return fmt.Errorf("MCP server error: %w", err)
	}

	logger.Info("MCP server shut down gracefully")
	return nil
}
