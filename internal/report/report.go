// Package report renders check reports as terminal text or JSON.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
	"github.com/mvp-joe/rendercheck/internal/checker"
)

// Format selects the output representation.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
)

// ParseFormat parses a format name, case-insensitively.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(s)) {
	case FormatText:
		return FormatText, nil
	case FormatJSON:
		return FormatJSON, nil
	}
	return "", fmt.Errorf("unknown output format %q (want %q or %q)", s, FormatText, FormatJSON)
}

type styles struct {
	Path    lipgloss.Style
	Loc     lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
	Code    lipgloss.Style
	Success lipgloss.Style
	Summary lipgloss.Style
}

func newStyles(r *lipgloss.Renderer) styles {
	return styles{
		Path:    r.NewStyle().Bold(true).Underline(true),
		Loc:     r.NewStyle().Foreground(lipgloss.Color("#7F8C8D")),
		Warning: r.NewStyle().Foreground(lipgloss.Color("#F4D03F")),
		Error:   r.NewStyle().Foreground(lipgloss.Color("#E74C3C")).Bold(true),
		Code:    r.NewStyle().Foreground(lipgloss.Color("#7F8C8D")),
		Success: r.NewStyle().Foreground(lipgloss.Color("#2CD7C7")),
		Summary: r.NewStyle().Bold(true),
	}
}

// Renderer writes reports to an output stream. Text output is styled only
// when the stream is a terminal.
type Renderer struct {
	out    io.Writer
	styled bool
	styles styles
}

// NewRenderer creates a renderer for w.
func NewRenderer(w io.Writer) *Renderer {
	return &Renderer{
		out:    w,
		styled: isTerminal(w),
		styles: newStyles(lipgloss.NewRenderer(w)),
	}
}

// SetStyled forces styling on or off.
func (r *Renderer) SetStyled(styled bool) {
	r.styled = styled
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func (r *Renderer) paint(s lipgloss.Style, text string) string {
	if !r.styled {
		return text
	}
	return s.Render(text)
}

// Render writes the report in the given format.
func (r *Renderer) Render(rep *checker.Report, format Format) error {
	if format == FormatJSON {
		return r.JSON(rep)
	}
	return r.Text(rep)
}

// Text writes one block per file with issues, followed by a summary line.
func (r *Renderer) Text(rep *checker.Report) error {
	var b strings.Builder
	s := r.styles

	for _, f := range rep.Files {
		if len(f.Diagnostics) == 0 && f.Error == "" {
			continue
		}
		b.WriteString(r.paint(s.Path, f.Path))
		b.WriteString("\n")

		if f.Error != "" {
			fmt.Fprintf(&b, "  %-8s %s  %s\n", "-", r.paint(s.Error, "error"), f.Error)
		}
		for _, d := range f.Diagnostics {
			loc := fmt.Sprintf("%d:%d", d.Span.Line, d.Span.Column)
			fmt.Fprintf(&b, "  %s %s  %s  %s\n",
				r.paint(s.Loc, fmt.Sprintf("%-8s", loc)),
				r.paint(s.Warning, string(d.Severity)),
				d.Message,
				r.paint(s.Code, d.Code))
		}
		b.WriteString("\n")
	}

	b.WriteString(r.summary(rep))
	b.WriteString("\n")

	_, err := io.WriteString(r.out, b.String())
	return err
}

func (r *Renderer) summary(rep *checker.Report) string {
	issues := rep.DiagnosticCount()
	errs := rep.ErrorCount()
	checked := fmt.Sprintf("%d %s checked", len(rep.Files), plural(len(rep.Files), "file", "files"))

	if issues == 0 && errs == 0 {
		return r.paint(r.styles.Success, "No render annotation issues found") + " (" + checked + ")"
	}

	withIssues := 0
	for _, f := range rep.Files {
		if len(f.Diagnostics) > 0 {
			withIssues++
		}
	}

	line := fmt.Sprintf("%d %s in %d %s (%s",
		issues, plural(issues, "issue", "issues"),
		withIssues, plural(withIssues, "file", "files"),
		checked)
	if errs > 0 {
		line += fmt.Sprintf(", %d %s", errs, plural(errs, "error", "errors"))
	}
	return r.paint(r.styles.Summary, line+")")
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}

// JSONOutput is the machine-readable report.
type JSONOutput struct {
	RunID      string               `json:"run_id"`
	Policy     string               `json:"policy"`
	DepthBound int                  `json:"depth_bound"`
	Summary    JSONSummary          `json:"summary"`
	Files      []checker.FileResult `json:"files"`
}

// JSONSummary holds aggregate counts.
type JSONSummary struct {
	FilesChecked    int   `json:"files_checked"`
	FilesWithIssues int   `json:"files_with_issues"`
	Issues          int   `json:"issues"`
	Errors          int   `json:"errors"`
	DurationMS      int64 `json:"duration_ms"`
}

// NewJSONOutput builds the JSON form of a report. Only files with
// diagnostics or errors are listed.
func NewJSONOutput(rep *checker.Report) JSONOutput {
	out := JSONOutput{
		RunID:      rep.RunID,
		Policy:     rep.Policy,
		DepthBound: rep.DepthBound,
		Summary: JSONSummary{
			FilesChecked: len(rep.Files),
			Issues:       rep.DiagnosticCount(),
			Errors:       rep.ErrorCount(),
			DurationMS:   rep.Duration.Milliseconds(),
		},
		Files: []checker.FileResult{},
	}
	for _, f := range rep.Files {
		if len(f.Diagnostics) == 0 && f.Error == "" {
			continue
		}
		if len(f.Diagnostics) > 0 {
			out.Summary.FilesWithIssues++
		}
		out.Files = append(out.Files, f)
	}
	return out
}

// JSON writes the report as indented JSON.
func (r *Renderer) JSON(rep *checker.Report) error {
	enc := json.NewEncoder(r.out)
	enc.SetIndent("", "  ")
	return enc.Encode(NewJSONOutput(rep))
}
