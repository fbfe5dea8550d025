package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/mvp-joe/rendercheck/internal/config"
	"github.com/spf13/cobra"
)

var cleanQuietFlag bool

// cleanCmd represents the clean command
var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Delete the persistent result cache",
	Long: `Clean removes the result cache database (.rendercheck/cache.db by default)
so the next 'rendercheck check --cache' analyzes every file again.

The configuration file (.rendercheck/config.yml) is preserved.

Examples:
  # Clean the cache of the current project
  rendercheck clean

  # Clean with minimal output
  rendercheck clean --quiet
`,
	RunE: runClean,
}

func init() {
	rootCmd.AddCommand(cleanCmd)
	cleanCmd.Flags().BoolVarP(&cleanQuietFlag, "quiet", "q", false, "Suppress output messages")
}

func runClean(cmd *cobra.Command, args []string) error {
	rootDir, err := projectRoot()
	if err != nil {
		return err
	}

	cfg, err := config.LoadConfigFromDir(rootDir)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	out := cmd.OutOrStdout()
	if cleanQuietFlag {
		out = io.Discard
	}
	return cleanCache(cfg.CachePath(rootDir), out)
}

// cleanCache deletes the cache database and its SQLite side files.
func cleanCache(dbPath string, out io.Writer) error {
	info, err := os.Stat(dbPath)
	if os.IsNotExist(err) {
		fmt.Fprintln(out, "No result cache found for this project")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to stat cache: %w", err)
	}
	sizeMB := float64(info.Size()) / (1024 * 1024)

	for _, path := range []string{dbPath, dbPath + "-wal", dbPath + "-shm", dbPath + "-journal"} {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove %s: %w", path, err)
		}
	}

	fmt.Fprintf(out, "✓ Cleaned result cache (~%.1f MB)\n", sizeMB)
	fmt.Fprintln(out, "Next 'rendercheck check --cache' will analyze every file")
	return nil
}
