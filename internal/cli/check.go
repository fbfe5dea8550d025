package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/mattn/go-isatty"
	"github.com/mvp-joe/rendercheck/internal/checker"
	"github.com/mvp-joe/rendercheck/internal/config"
	"github.com/mvp-joe/rendercheck/internal/discovery"
	"github.com/mvp-joe/rendercheck/internal/report"
	"github.com/mvp-joe/rendercheck/internal/storage"
	"github.com/spf13/cobra"
)

// ErrIssuesFound is returned when a check reports diagnostics and the
// configuration treats warnings as failures.
var ErrIssuesFound = errors.New("render annotation issues found")

var (
	formatFlag      string
	depthBoundFlag  int
	policyFlag      string
	concurrencyFlag int
	quietFlag       bool
	cacheFlag       bool
)

// checkCmd represents the check command
var checkCmd = &cobra.Command{
	Use:   "check [paths...]",
	Short: "Check render annotations in the project",
	Long: `Check parses every matching source file and reports discrepancies between
declared render relationships (@component, @renders) and the JSX that is
actually rendered.

With no arguments the whole project is checked using the include and ignore
patterns from the configuration. Directory arguments are walked with the same
patterns; file arguments are checked as given.

Examples:
  # Check the whole project
  rendercheck check

  # Check one directory and emit JSON
  rendercheck check src/components --format json

  # Only follow property forwarding one hop
  rendercheck check --policy single-hop

  # Reuse results for unchanged files from .rendercheck/cache.db
  rendercheck check --cache`,
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
	checkCmd.Flags().StringVarP(&formatFlag, "format", "f", "", "Output format: text or json")
	checkCmd.Flags().IntVar(&depthBoundFlag, "depth-bound", 0, "Maximum property forwarding depth")
	checkCmd.Flags().StringVar(&policyFlag, "policy", "", "Property forwarding policy: transitive or single-hop")
	checkCmd.Flags().IntVar(&concurrencyFlag, "concurrency", 0, "Number of files checked in parallel (default: number of CPUs)")
	checkCmd.Flags().BoolVarP(&quietFlag, "quiet", "q", false, "Disable the progress bar")
	checkCmd.Flags().BoolVar(&cacheFlag, "cache", false, "Persist results across runs and skip unchanged files")
}

// checkOptions are the inputs of one check run.
type checkOptions struct {
	RootDir string
	Paths   []string
	Config  *config.Config
	Quiet   bool
	Logger  *slog.Logger
	Stdout  io.Writer
	Stderr  io.Writer
}

func runCheck(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	rootDir, err := projectRoot()
	if err != nil {
		return err
	}

	cfg, err := config.LoadConfigFromDir(rootDir)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	flags := cmd.Flags()
	if flags.Changed("format") {
		cfg.Output.Format = formatFlag
	}
	if flags.Changed("depth-bound") {
		cfg.Analysis.ForwardingDepthBound = depthBoundFlag
	}
	if flags.Changed("policy") {
		cfg.Analysis.ForwardingPolicy = policyFlag
	}
	if flags.Changed("concurrency") {
		cfg.Analysis.Concurrency = concurrencyFlag
	}
	if flags.Changed("cache") {
		cfg.Cache.Enabled = cacheFlag
	}
	if err := config.Validate(cfg); err != nil {
		return err
	}

	stderr := cmd.ErrOrStderr()
	return checkProject(ctx, checkOptions{
		RootDir: rootDir,
		Paths:   args,
		Config:  cfg,
		Quiet:   quietFlag || !isTerminal(stderr),
		Logger:  newLogger(stderr, verbose),
		Stdout:  cmd.OutOrStdout(),
		Stderr:  stderr,
	})
}

// checkProject discovers files, checks them, and renders the report. The
// configuration must have passed validation.
func checkProject(ctx context.Context, opts checkOptions) error {
	cfg := opts.Config

	format, err := report.ParseFormat(cfg.Output.Format)
	if err != nil {
		return err
	}

	fd, err := discovery.NewFileDiscovery(opts.RootDir, cfg.Paths.Include, cfg.Paths.Ignore)
	if err != nil {
		return fmt.Errorf("failed to create file discovery: %w", err)
	}

	var files []string
	if len(opts.Paths) == 0 {
		files, err = fd.DiscoverFiles()
	} else {
		files, err = fd.Resolve(opts.Paths)
	}
	if err != nil {
		return fmt.Errorf("failed to discover files: %w", err)
	}
	opts.Logger.Debug("discovered files", "count", len(files))

	// JSON output is for machines; keep stderr clean too.
	quiet := opts.Quiet || format == report.FormatJSON

	checkerOpts := append(cfg.ToCheckerOptions(opts.Logger),
		checker.WithCacheSize(0),
		checker.WithProgress(NewCLIProgressReporter(opts.Stderr, quiet)),
	)

	var store *storage.ResultStore
	if cfg.Cache.Enabled {
		store, err = storage.Open(cfg.CachePath(opts.RootDir), cfg.Fingerprint(Version))
		if err != nil {
			return fmt.Errorf("failed to open result cache: %w", err)
		}
		defer store.Close()
		checkerOpts = append(checkerOpts, checker.WithStore(store))
	}

	c, err := checker.New(checkerOpts...)
	if err != nil {
		return err
	}
	defer c.Close()

	rep, err := c.Check(ctx, files)
	if err != nil {
		return fmt.Errorf("check failed: %w", err)
	}

	// Only a whole-project run knows which files are gone.
	if store != nil && len(opts.Paths) == 0 {
		if removed, err := store.Prune(files); err != nil {
			opts.Logger.Warn("failed to prune result cache", "error", err)
		} else if removed > 0 {
			opts.Logger.Debug("pruned result cache", "removed", removed)
		}
	}

	if err := report.NewRenderer(opts.Stdout).Render(rep, format); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}

	if n := rep.ErrorCount(); n > 0 {
		return fmt.Errorf("%d %s could not be checked", n, pluralFiles(n))
	}
	if rep.DiagnosticCount() > 0 && cfg.Output.FailOnWarnings {
		return ErrIssuesFound
	}
	return nil
}

func pluralFiles(n int) string {
	if n == 1 {
		return "file"
	}
	return "files"
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && (isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd()))
}
