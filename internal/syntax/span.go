package syntax

import (
	"cmp"
	"fmt"
)

// Span is a source range. Lines and columns are 1-indexed.
type Span struct {
	File      string `json:"file"`
	Line      int    `json:"line"`
	Column    int    `json:"column"`
	EndLine   int    `json:"end_line"`
	EndColumn int    `json:"end_column"`
}

func (s Span) String() string {
	return fmt.Sprintf("%s:%d:%d", s.File, s.Line, s.Column)
}

// Compare orders spans by file, then start, then end.
func (s Span) Compare(o Span) int {
	return cmp.Or(
		cmp.Compare(s.File, o.File),
		cmp.Compare(s.Line, o.Line),
		cmp.Compare(s.Column, o.Column),
		cmp.Compare(s.EndLine, o.EndLine),
		cmp.Compare(s.EndColumn, o.EndColumn),
	)
}

// Before reports whether s sorts before o.
func (s Span) Before(o Span) bool { return s.Compare(o) < 0 }

// IsZero reports whether the span carries no position.
func (s Span) IsZero() bool { return s.Line == 0 }
