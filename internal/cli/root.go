package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

var (
	rootDirFlag string
	verbose     bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "rendercheck",
	Short: "Check React render annotations against actual JSX composition",
	Long: `rendercheck cross-validates @component and @renders JSDoc tags against the
JSX each component actually renders.

It reports components that render things they do not declare, declarations
nothing satisfies, slots that receive the wrong component, tags that name
unknown targets, and property forwarding chains that run too deep.

Configuration is read from .rendercheck/config.yml in the project root and
can be overridden with RENDERCHECK_* environment variables and flags.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&rootDirFlag, "root", "", "project root containing .rendercheck/ (default is the current directory)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

// projectRoot returns the absolute project root.
func projectRoot() (string, error) {
	if rootDirFlag != "" {
		return filepath.Abs(rootDirFlag)
	}
	dir, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get working directory: %w", err)
	}
	return dir, nil
}

// newLogger returns a text logger on w. Warnings are always shown; debug
// output only with --verbose.
func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}
