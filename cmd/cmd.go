// Package cmd provides the clonebrain CLI commands.
//
// Commands:
//   - serve: HTTP API server for the dashboard
//   - migrate: apply database migrations and exit
//   - mcp: Model Context Protocol server over stdio
//
// Signal handling and graceful shutdown are implemented for the long-running
// commands via context cancellation.
package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/clonebrain/clonebrain/internal/log"
)

// Execute is the main entry point for the clonebrain CLI.
func Execute() error {
	// Initialize logger once at entry point.
	// Logs go to stderr for MCP compatibility (stdout carries JSON-RPC).
	level := slog.LevelInfo
	if os.Getenv("DEBUG") != "" {
		level = slog.LevelDebug
	}
	slog.SetDefault(log.New(log.Config{Level: level, JSON: os.Getenv("LOG_JSON") != ""}))

	if len(os.Args) < 2 {
		runHelp()
		return nil
	}

	switch os.Args[1] {
	case "serve":
		return runServe()
	case "migrate":
		return runMigrate()
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
	fmt.Println("clonebrain - AI clone backend")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  clonebrain serve      Start the HTTP API server")
	fmt.Println("  clonebrain migrate    Apply database migrations and exit")
	fmt.Println("  clonebrain mcp        Start the MCP server (stdio, for MCP clients)")
	fmt.Println("  clonebrain --version  Show version information")
	fmt.Println("  clonebrain --help     Show this help")
	fmt.Println()
	fmt.Println("Environment Variables:")
	fmt.Println("  OPENAI_API_KEY        Required with the openai provider (default)")
	fmt.Println("  GEMINI_API_KEY        Required with the googleai provider")
	fmt.Println("  CLONEBRAIN_*          Override any config file setting")
	fmt.Println("  DEBUG                 Optional: enable debug logging")
}
