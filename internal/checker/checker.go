// Package checker runs the render annotation analysis over many source files.
//
// Files are parsed and analyzed concurrently and independently: a file that
// cannot be read or parsed is recorded as a per-file error and never stops
// the run. Results can be cached by file content so that long-lived hosts
// (watch mode, the MCP server) only re-analyze files that changed.
package checker

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"time"

	"github.com/google/uuid"
	"github.com/maypok86/otter"
	"github.com/mvp-joe/rendercheck/internal/analysis"
	"github.com/mvp-joe/rendercheck/internal/tsx"
	"golang.org/x/sync/errgroup"
)

// Checker checks source files for render annotation discrepancies.
// It is safe for concurrent use.
type Checker struct {
	parser      *tsx.Parser
	engine      *analysis.Engine
	concurrency int
	cache       *otter.Cache[string, FileResult]
	store       ResultStore
	progress    ProgressReporter
	logger      *slog.Logger
}

// Option configures a Checker.
type Option func(*options)

type options struct {
	concurrency   int
	cacheSize     int
	store         ResultStore
	progress      ProgressReporter
	logger        *slog.Logger
	engineOptions []analysis.Option
	parserOptions []tsx.Option
}

// WithConcurrency sets how many files are checked in parallel. Zero or a
// negative value uses GOMAXPROCS.
func WithConcurrency(n int) Option {
	return func(o *options) {
		o.concurrency = n
	}
}

// WithCacheSize enables the content-addressed result cache holding up to n
// file results. Zero disables it.
func WithCacheSize(n int) Option {
	return func(o *options) {
		o.cacheSize = n
	}
}

// ResultStore persists file results across runs. Keys address a file's path
// and content; the store is responsible for discarding results produced
// under different analysis settings.
type ResultStore interface {
	Get(key string) (FileResult, bool, error)
	Put(key string, res FileResult) error
}

// WithStore sets a persistent result store consulted after the in-memory
// cache.
func WithStore(s ResultStore) Option {
	return func(o *options) {
		o.store = s
	}
}

// WithProgress sets the progress reporter.
func WithProgress(p ProgressReporter) Option {
	return func(o *options) {
		if p != nil {
			o.progress = p
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithEngineOptions configures the analysis engine.
func WithEngineOptions(opts ...analysis.Option) Option {
	return func(o *options) {
		o.engineOptions = append(o.engineOptions, opts...)
	}
}

// WithParserOptions configures the source parser.
func WithParserOptions(opts ...tsx.Option) Option {
	return func(o *options) {
		o.parserOptions = append(o.parserOptions, opts...)
	}
}

// New creates a checker.
func New(opts ...Option) (*Checker, error) {
	o := options{
		progress: &NoOpProgressReporter{},
		logger:   slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(&o)
	}

	parser, err := tsx.NewParser(o.parserOptions...)
	if err != nil {
		return nil, fmt.Errorf("failed to create parser: %w", err)
	}

	concurrency := o.concurrency
	if concurrency <= 0 {
		concurrency = runtime.GOMAXPROCS(0)
	}

	c := &Checker{
		parser:      parser,
		engine:      analysis.New(o.engineOptions...),
		concurrency: concurrency,
		store:       o.store,
		progress:    o.progress,
		logger:      o.logger,
	}

	if o.cacheSize > 0 {
		cache, err := otter.MustBuilder[string, FileResult](o.cacheSize).Build()
		if err != nil {
			return nil, fmt.Errorf("failed to create result cache: %w", err)
		}
		c.cache = &cache
	}

	return c, nil
}

// Engine returns the analysis engine used by the checker.
func (c *Checker) Engine() *analysis.Engine {
	return c.engine
}

// Close releases the result cache.
func (c *Checker) Close() {
	if c.cache != nil {
		c.cache.Close()
	}
}

// Check checks the given files. Per-file failures are recorded in the report;
// the only error returned is the context's when the run is cancelled.
func (c *Checker) Check(ctx context.Context, paths []string) (*Report, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	report := &Report{
		RunID:      uuid.NewString(),
		StartedAt:  time.Now(),
		Policy:     string(c.engine.Policy()),
		DepthBound: c.engine.DepthBound(),
	}
	c.progress.OnCheckStart(len(paths))

	results := make([]FileResult, len(paths))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)

	for i, path := range paths {
		g.Go(func() error {
			res, err := c.CheckFile(gctx, path)
			if err != nil {
				return err
			}
			results[i] = res
			c.progress.OnFileChecked(path, len(res.Diagnostics))
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	sortResults(results)
	report.Files = results
	report.Duration = time.Since(report.StartedAt)

	c.logger.Debug("check complete",
		"run_id", report.RunID,
		"files", len(results),
		"diagnostics", report.DiagnosticCount(),
		"errors", report.ErrorCount(),
		"duration", report.Duration)

	c.progress.OnComplete(report)
	return report, nil
}

// CheckFile reads and checks one file. A read failure is recorded in the
// result rather than returned.
func (c *Checker) CheckFile(ctx context.Context, path string) (FileResult, error) {
	source, err := os.ReadFile(path)
	if err != nil {
		c.logger.Warn("failed to read file", "path", path, "error", err)
		return FileResult{Path: path, Error: fmt.Sprintf("failed to read file: %v", err)}, nil
	}
	return c.CheckSource(ctx, path, source)
}

// CheckSource checks source as the file at path, using the result cache when
// enabled.
func (c *Checker) CheckSource(ctx context.Context, path string, source []byte) (FileResult, error) {
	if err := ctx.Err(); err != nil {
		return FileResult{}, err
	}

	key := cacheKey(path, source)
	if res, ok := c.lookup(key); ok {
		return res, nil
	}

	res := FileResult{Path: path}

	unit, err := c.parser.Parse(ctx, path, source)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return FileResult{}, ctxErr
		}
		c.logger.Warn("failed to parse file", "path", path, "error", err)
		res.Error = fmt.Sprintf("failed to parse file: %v", err)
		return res, nil
	}
	res.Language = unit.Language
	res.SyntaxErrors = unit.HasErrors
	if unit.HasErrors {
		// Tree-sitter recovers from errors; analyze what was parsed.
		c.logger.Warn("file has syntax errors, results may be incomplete", "path", path)
	}

	result, err := c.engine.Analyze(ctx, unit)
	if err != nil {
		return FileResult{}, err
	}
	res.Components = len(result.Components)
	res.Diagnostics = result.Diagnostics
	if res.Diagnostics == nil {
		res.Diagnostics = []analysis.Diagnostic{}
	}

	c.remember(key, res)
	return res, nil
}

// lookup consults the in-memory cache, then the persistent store.
func (c *Checker) lookup(key string) (FileResult, bool) {
	if c.cache != nil {
		if res, ok := c.cache.Get(key); ok {
			res.Cached = true
			return res, true
		}
	}
	if c.store == nil {
		return FileResult{}, false
	}

	res, ok, err := c.store.Get(key)
	if err != nil {
		c.logger.Warn("failed to read cached result", "error", err)
		return FileResult{}, false
	}
	if !ok {
		return FileResult{}, false
	}
	if c.cache != nil {
		c.cache.Set(key, res)
	}
	res.Cached = true
	return res, true
}

// remember records a fresh result. Store failures are logged and ignored.
func (c *Checker) remember(key string, res FileResult) {
	if c.cache != nil {
		c.cache.Set(key, res)
	}
	if c.store != nil {
		if err := c.store.Put(key, res); err != nil {
			c.logger.Warn("failed to store result", "path", res.Path, "error", err)
		}
	}
}

// cacheKey addresses a result by file path and content. The path is part of
// the key because diagnostics carry it.
func cacheKey(path string, source []byte) string {
	h := sha256.New()
	h.Write([]byte(path))
	h.Write([]byte{0})
	h.Write(source)
	return hex.EncodeToString(h.Sum(nil))
}
