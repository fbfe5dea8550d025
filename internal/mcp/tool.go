package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/mvp-joe/rendercheck/internal/checker"
	"github.com/mvp-joe/rendercheck/internal/config"
	"github.com/mvp-joe/rendercheck/internal/discovery"
	"github.com/mvp-joe/rendercheck/internal/report"
)

// CheckToolName is the name the check tool is registered under.
const CheckToolName = "rendercheck_check"

// defaultFilename names inline source when the request does not.
const defaultFilename = "inline.tsx"

// Service runs checks on behalf of MCP tool calls. Checkers are kept per
// forwarding setting so their result caches survive across calls.
type Service struct {
	rootDir   string
	cfg       *config.Config
	discovery *discovery.FileDiscovery
	logger    *slog.Logger

	mu       sync.Mutex
	checkers map[checkerKey]*checker.Checker
}

type checkerKey struct {
	policy     string
	depthBound int
}

// NewService creates a check service for the project at rootDir.
func NewService(rootDir string, cfg *config.Config, logger *slog.Logger) (*Service, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	fd, err := discovery.NewFileDiscovery(rootDir, cfg.Paths.Include, cfg.Paths.Ignore)
	if err != nil {
		return nil, fmt.Errorf("failed to create file discovery: %w", err)
	}

	return &Service{
		rootDir:   rootDir,
		cfg:       cfg,
		discovery: fd,
		logger:    logger,
		checkers:  make(map[checkerKey]*checker.Checker),
	}, nil
}

// Check runs the request. Relative paths are resolved against the project
// root. Inline source takes precedence over paths.
func (s *Service) Check(ctx context.Context, req CheckRequest) (*checker.Report, error) {
	c, err := s.checkerFor(req)
	if err != nil {
		return nil, err
	}

	if req.Source != "" {
		name := req.Filename
		if name == "" {
			name = defaultFilename
		}
		rep := &checker.Report{
			RunID:      uuid.NewString(),
			StartedAt:  time.Now(),
			Policy:     string(c.Engine().Policy()),
			DepthBound: c.Engine().DepthBound(),
		}
		res, err := c.CheckSource(ctx, name, []byte(req.Source))
		if err != nil {
			return nil, err
		}
		rep.Files = []checker.FileResult{res}
		rep.Duration = time.Since(rep.StartedAt)
		return rep, nil
	}

	paths := req.Paths
	if len(paths) == 0 {
		paths = []string{"."}
	}
	abs := make([]string, len(paths))
	for i, p := range paths {
		if filepath.IsAbs(p) {
			abs[i] = p
		} else {
			abs[i] = filepath.Join(s.rootDir, p)
		}
	}

	files, err := s.discovery.Resolve(abs)
	if err != nil {
		return nil, err
	}
	return c.Check(ctx, files)
}

// checkerFor returns the checker for the request's forwarding settings,
// creating it on first use.
func (s *Service) checkerFor(req CheckRequest) (*checker.Checker, error) {
	cfg := *s.cfg
	if req.Policy != "" {
		cfg.Analysis.ForwardingPolicy = req.Policy
	}
	if req.DepthBound != 0 {
		cfg.Analysis.ForwardingDepthBound = req.DepthBound
	}
	if err := config.Validate(&cfg); err != nil {
		return nil, err
	}

	key := checkerKey{policy: cfg.Analysis.ForwardingPolicy, depthBound: cfg.Analysis.ForwardingDepthBound}

	s.mu.Lock()
	defer s.mu.Unlock()

	if c, ok := s.checkers[key]; ok {
		return c, nil
	}
	c, err := checker.New(cfg.ToCheckerOptions(s.logger)...)
	if err != nil {
		return nil, err
	}
	s.checkers[key] = c
	return c, nil
}

// Close releases all checkers.
func (s *Service) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for k, c := range s.checkers {
		c.Close()
		delete(s.checkers, k)
	}
}

// AddCheckTool registers the rendercheck_check tool with an MCP server.
func AddCheckTool(s *server.MCPServer, svc *Service) {
	tool := mcp.NewTool(
		CheckToolName,
		mcp.WithDescription(`Check React components for render annotation discrepancies. Cross-validates @component and @renders JSDoc tags against the JSX each component actually renders and reports undeclared usages, missing or mismatched declarations, unresolved targets and forwarding chains that exceed the depth bound.

Pass either "paths" (files or directories relative to the project root) or "source" with inline TSX.`),
		mcp.WithArray("paths",
			mcp.WithStringItems(),
			mcp.Description("Files or directories to check, relative to the project root (default: the whole project)")),
		mcp.WithString("source",
			mcp.Description("Inline TSX source to check instead of files")),
		mcp.WithString("filename",
			mcp.Description("File name reported for inline source (default: inline.tsx)")),
		mcp.WithString("policy",
			mcp.Description("Property forwarding policy: 'transitive' (default) or 'single-hop'")),
		mcp.WithNumber("depth_bound",
			mcp.Description("Maximum property forwarding depth before a chain is reported (default: 8)")),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
	)

	s.AddTool(tool, createCheckHandler(svc))
}

func createCheckHandler(svc *Service) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var req CheckRequest
		if err := bindArguments(request, &req); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("invalid arguments: %v", err)), nil
		}

		rep, err := svc.Check(ctx, req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, err
			}
			return mcp.NewToolResultError(err.Error()), nil
		}

		data, err := json.Marshal(report.NewJSONOutput(rep))
		if err != nil {
			return nil, fmt.Errorf("failed to marshal response: %w", err)
		}
		return mcp.NewToolResultText(string(data)), nil
	}
}
