package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/mvp-joe/rendercheck/internal/checker"
	"github.com/mvp-joe/rendercheck/internal/config"
	"github.com/mvp-joe/rendercheck/internal/discovery"
	"github.com/mvp-joe/rendercheck/internal/report"
	"github.com/mvp-joe/rendercheck/internal/storage"
	"github.com/mvp-joe/rendercheck/internal/tsx"
	"github.com/mvp-joe/rendercheck/internal/watcher"
	"github.com/spf13/cobra"
)

// watchCmd represents the watch command
var watchCmd = &cobra.Command{
	Use:   "watch [dir]",
	Short: "Re-check the project whenever source files change",
	Long: `Watch checks the project once, then watches it for changes and re-checks
after each batch of edits. Results for unchanged files are served from an
in-memory cache, so re-checks only analyze what changed.

Press Ctrl+C to stop.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	rootDir, err := projectRoot()
	if err != nil {
		return err
	}
	if len(args) == 1 {
		if rootDir, err = filepath.Abs(args[0]); err != nil {
			return err
		}
	}

	cfg, err := config.LoadConfigFromDir(rootDir)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger := newLogger(cmd.ErrOrStderr(), verbose)
	s, err := newWatchSession(rootDir, cfg, logger, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	defer s.Close()

	return s.Run(ctx)
}

// watchSession re-checks a project on change, reusing one cached checker.
type watchSession struct {
	rootDir   string
	format    report.Format
	discovery *discovery.FileDiscovery
	checker   *checker.Checker
	store     *storage.ResultStore
	renderer  *report.Renderer
	out       io.Writer
	logger    *slog.Logger
	debounce  time.Duration
}

func newWatchSession(rootDir string, cfg *config.Config, logger *slog.Logger, out io.Writer) (*watchSession, error) {
	format, err := report.ParseFormat(cfg.Output.Format)
	if err != nil {
		return nil, err
	}

	fd, err := discovery.NewFileDiscovery(rootDir, cfg.Paths.Include, cfg.Paths.Ignore)
	if err != nil {
		return nil, fmt.Errorf("failed to create file discovery: %w", err)
	}

	opts := cfg.ToCheckerOptions(logger)
	var store *storage.ResultStore
	if cfg.Cache.Enabled {
		store, err = storage.Open(cfg.CachePath(rootDir), cfg.Fingerprint(Version))
		if err != nil {
			return nil, fmt.Errorf("failed to open result cache: %w", err)
		}
		opts = append(opts, checker.WithStore(store))
	}

	c, err := checker.New(opts...)
	if err != nil {
		if store != nil {
			store.Close()
		}
		return nil, err
	}

	return &watchSession{
		rootDir:   rootDir,
		format:    format,
		discovery: fd,
		checker:   c,
		store:     store,
		renderer:  report.NewRenderer(out),
		out:       out,
		logger:    logger,
		debounce:  watcher.DefaultDebounce,
	}, nil
}

// Run checks once, then re-checks on every batch of changes until ctx is
// cancelled.
func (s *watchSession) Run(ctx context.Context) error {
	if _, err := s.checkOnce(ctx); err != nil {
		return err
	}

	w, err := watcher.NewFileWatcher([]string{s.rootDir}, tsx.SupportedExtensions,
		watcher.WithDebounce(s.debounce),
		watcher.WithFilter(s.discovery.Matches),
		watcher.WithSkipDir(s.discovery.IgnoresDir),
		watcher.WithLogger(s.logger),
	)
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer w.Stop()

	err = w.Start(ctx, func(files []string) {
		fmt.Fprintf(s.out, "\nChange detected in %d %s, re-checking...\n\n", len(files), pluralFiles(len(files)))
		if _, err := s.checkOnce(ctx); err != nil && ctx.Err() == nil {
			s.logger.Error("re-check failed", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("failed to start file watcher: %w", err)
	}

	fmt.Fprintf(s.out, "\nWatching %s for changes (Ctrl+C to stop)\n", s.rootDir)
	<-ctx.Done()
	return nil
}

// checkOnce re-discovers and checks the whole project. Removed files drop
// out of the report because discovery runs every time.
func (s *watchSession) checkOnce(ctx context.Context) (*checker.Report, error) {
	files, err := s.discovery.DiscoverFiles()
	if err != nil {
		return nil, fmt.Errorf("failed to discover files: %w", err)
	}

	rep, err := s.checker.Check(ctx, files)
	if err != nil {
		return nil, err
	}
	if s.store != nil {
		if _, err := s.store.Prune(files); err != nil {
			s.logger.Warn("failed to prune result cache", "error", err)
		}
	}
	if err := s.renderer.Render(rep, s.format); err != nil {
		return nil, fmt.Errorf("failed to write report: %w", err)
	}
	return rep, nil
}

// Close releases the checker and the result cache.
func (s *watchSession) Close() {
	s.checker.Close()
	if s.store != nil {
		s.store.Close()
	}
}
