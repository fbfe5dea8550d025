// Package mcp exposes the render annotation check as an MCP tool over stdio.
package mcp

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/mark3labs/mcp-go/server"
	"github.com/mvp-joe/rendercheck/internal/config"
)

// MCPServer manages the MCP server lifecycle.
type MCPServer struct {
	svc    *Service
	mcp    *server.MCPServer
	logger *slog.Logger
}

// NewMCPServer creates an MCP server checking the project at rootDir.
func NewMCPServer(rootDir, version string, cfg *config.Config, logger *slog.Logger) (*MCPServer, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	svc, err := NewService(rootDir, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create check service: %w", err)
	}

	mcpServer := server.NewMCPServer(
		"rendercheck",
		version,
		server.WithToolCapabilities(true),
	)
	AddCheckTool(mcpServer, svc)

	return &MCPServer{svc: svc, mcp: mcpServer, logger: logger}, nil
}

// Serve starts the MCP server on stdio and blocks until shutdown.
func (s *MCPServer) Serve(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting MCP server on stdio")
		if err := server.ServeStdio(s.mcp); err != nil {
			errCh <- fmt.Errorf("MCP server error: %w", err)
		}
	}()

	select {
	case <-sigCh:
		s.logger.Info("received shutdown signal, stopping")
		return nil
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close releases all resources.
func (s *MCPServer) Close() error {
	s.svc.Close()
	return nil
}
