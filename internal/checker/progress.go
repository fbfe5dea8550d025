package checker

// ProgressReporter provides callbacks for reporting check progress.
// Implementations can display progress bars, log messages, or remain silent.
// OnFileChecked is called from worker goroutines and must be safe for
// concurrent use.
type ProgressReporter interface {
	// OnCheckStart is called before any file is checked.
	OnCheckStart(totalFiles int)

	// OnFileChecked is called after each file is checked.
	OnFileChecked(path string, diagnostics int)

	// OnComplete is called when every file has been checked.
	OnComplete(report *Report)
}

// NoOpProgressReporter is a progress reporter that does nothing.
// Used when progress reporting is disabled (e.g., --quiet flag).
type NoOpProgressReporter struct{}

func (n *NoOpProgressReporter) OnCheckStart(totalFiles int)                {}
func (n *NoOpProgressReporter) OnFileChecked(path string, diagnostics int) {}
func (n *NoOpProgressReporter) OnComplete(report *Report)                  {}
