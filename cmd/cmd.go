// Package cmd provides CLI commands for the Pasabayan chat service.
//
// Commands:
//   - serve: HTTP API server with NDJSON streaming chat
//   - mcp: Model Context Protocol server exposing the tool catalog
//
// Signal handling and graceful shutdown are implemented for all commands
// via context cancellation.
package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/pasabayan/chatd/internal/log"
)

// Execute is the main entry point for the chatd application.
func Execute() error {
	// Initialize logger once at entry point. Logs go to stderr so the MCP
	// command keeps stdout free for JSON-RPC.
	level := slog.LevelInfo
	if os.Getenv("DEBUG") != "" {
		level = slog.LevelDebug
	}
	slog.SetDefault(log.New(log.Config{
		Level: level,
		JSON:  os.Getenv("LOG_FORMAT") == "json",
	}))

	if len(os.Args) < 2 {
		runHelp()
		return nil
	}

	switch os.Args[1] {
	case "serve":
		return runServe()
	case "mcp":
		return runMCP()
	case "version", "--version", "-v":
		runVersion()
		return nil
	case "help", "--help", "-h":
		runHelp()
		return nil
	default:
		return fmt.Errorf("unknown command: %s", os.Args[1])
	}
}

// runHelp displays the help message.
func runHelp() {
	fmt.Println("chatd - Pasabayan assistant service")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  chatd serve [addr] Start HTTP API server (default: 127.0.0.1:8080)")
	fmt.Println("  chatd mcp          Start MCP server on stdio")
	fmt.Println("  chatd --version    Show version information")
	fmt.Println("  chatd --help       Show this help")
	fmt.Println()
	fmt.Println("Environment Variables:")
	fmt.Println("  ANTHROPIC_API_KEY       Required for serve: completion provider key")
	fmt.Println("  PASABAYAN_GATEWAY_URL   Marketplace API base URL")
	fmt.Println("  PASABAYAN_SERVICE_TOKEN Downstream credential for privileged modes")
	fmt.Println("  ADMIN_API_TOKEN         Secret activating admin chat mode")
	fmt.Println("  DEVELOPER_API_TOKEN     Secret activating developer chat mode")
	fmt.Println("  CHATD_STORE_BACKEND     Conversation store: memory (default) or postgres")
	fmt.Println("  DATABASE_URL            Required when store backend is postgres")
	fmt.Println("  DEBUG                   Optional: enable debug logging")
	fmt.Println("  LOG_FORMAT              Optional: set to json for JSON logs")
}
