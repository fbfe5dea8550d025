package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/mvp-joe/rendercheck/internal/config"
	"github.com/mvp-joe/rendercheck/internal/mcp"
	"github.com/spf13/cobra"
)

// mcpCmd represents the mcp command
var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the MCP server exposing the render annotation check",
	Long: `Start the Model Context Protocol (MCP) server so coding assistants can check
render annotations while they edit.

The MCP server:
- Exposes the rendercheck_check tool for project paths or inline source
- Caches results by file content across calls
- Communicates via stdio (standard MCP transport)

Example:
  rendercheck mcp`,
	RunE: runMCP,
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

func runMCP(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	rootDir, err := projectRoot()
	if err != nil {
		return err
	}

	cfg, err := config.LoadConfigFromDir(rootDir)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// stdout carries the protocol; everything else goes to stderr.
	logger := newLogger(os.Stderr, verbose)
	fmt.Fprintf(os.Stderr, "rendercheck MCP server\n")
	fmt.Fprintf(os.Stderr, "Project: %s\n\n", rootDir)

	server, err := mcp.NewMCPServer(rootDir, Version, cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to create MCP server: %w", err)
	}
	defer server.Close()

	if err := server.Serve(ctx); err != nil {
		return fmt.Errorf("MCP server error: %w", err)
	}
	return nil
}
