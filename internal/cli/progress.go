package cli

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/mvp-joe/rendercheck/internal/checker"
	"github.com/schollz/progressbar/v3"
)

// CLIProgressReporter shows a progress bar while files are checked.
type CLIProgressReporter struct {
	out     io.Writer
	quiet   bool
	mu      sync.Mutex
	fileBar *progressbar.ProgressBar
}

// NewCLIProgressReporter creates a progress reporter writing to out.
func NewCLIProgressReporter(out io.Writer, quiet bool) *CLIProgressReporter {
	return &CLIProgressReporter{out: out, quiet: quiet}
}

func (c *CLIProgressReporter) OnCheckStart(totalFiles int) {
	if c.quiet || totalFiles == 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.fileBar = progressbar.NewOptions(totalFiles,
		progressbar.OptionSetWriter(c.out),
		progressbar.OptionSetDescription("Checking files"),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("files/s"),
		progressbar.OptionThrottle(65*time.Millisecond),
		progressbar.OptionClearOnFinish(),
	)
}

func (c *CLIProgressReporter) OnFileChecked(path string, diagnostics int) {
	if c.quiet {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.fileBar != nil {
		c.fileBar.Add(1)
	}
}

func (c *CLIProgressReporter) OnComplete(report *checker.Report) {
	if c.quiet {
		return
	}

	c.mu.Lock()
	if c.fileBar != nil {
		c.fileBar.Finish()
		c.fileBar = nil
	}
	c.mu.Unlock()

	fmt.Fprintf(c.out, "✓ Checked %d files in %.1fs\n", len(report.Files), report.Duration.Seconds())
}
