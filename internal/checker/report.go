package checker

import (
	"sort"
	"time"

	"github.com/mvp-joe/rendercheck/internal/analysis"
)

// FileResult is the outcome of checking one source file. A file that could
// not be read or parsed carries Error and no diagnostics.
type FileResult struct {
	Path         string                `json:"path"`
	Language     string                `json:"language,omitempty"`
	SyntaxErrors bool                  `json:"syntax_errors,omitempty"`
	Components   int                   `json:"components"`
	Diagnostics  []analysis.Diagnostic `json:"diagnostics"`
	Error        string                `json:"error,omitempty"`

	// Cached is set when the result came from the content cache.
	Cached bool `json:"-"`
}

// Report aggregates the results of one check run.
type Report struct {
	RunID      string        `json:"run_id"`
	StartedAt  time.Time     `json:"started_at"`
	Duration   time.Duration `json:"duration_ns"`
	Policy     string        `json:"policy"`
	DepthBound int           `json:"depth_bound"`
	Files      []FileResult  `json:"files"`
}

// DiagnosticCount returns the number of diagnostics across all files.
func (r *Report) DiagnosticCount() int {
	n := 0
	for _, f := range r.Files {
		n += len(f.Diagnostics)
	}
	return n
}

// ErrorCount returns the number of files that failed to read or parse.
func (r *Report) ErrorCount() int {
	n := 0
	for _, f := range r.Files {
		if f.Error != "" {
			n++
		}
	}
	return n
}

// Diagnostics returns every diagnostic ordered by file, position and kind.
func (r *Report) Diagnostics() []analysis.Diagnostic {
	var out []analysis.Diagnostic
	for _, f := range r.Files {
		out = append(out, f.Diagnostics...)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if c := out[i].Span.Compare(out[j].Span); c != 0 {
			return c < 0
		}
		return out[i].Kind < out[j].Kind
	})
	return out
}

func sortResults(results []FileResult) {
	sort.Slice(results, func(i, j int) bool { return results[i].Path < results[j].Path })
}
