package analysis

import (
	"fmt"

	"github.com/mvp-joe/rendercheck/internal/syntax"
)

// Severity of a diagnostic. The engine only reports warnings.
type Severity string

const SeverityWarning Severity = "warning"

// Diagnostic is a located, human-readable finding.
type Diagnostic struct {
	Severity Severity    `json:"severity"`
	Kind     string      `json:"kind"`
	Code     string      `json:"code"`
	Message  string      `json:"message"`
	Span     syntax.Span `json:"span"`
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s: %s: %s [%s]", d.Span, d.Severity, d.Message, d.Code)
}

// Reporter turns discrepancies into diagnostics.
type Reporter struct {
	rendersTag string
}

// NewReporter creates a reporter for the given renders tag name.
func NewReporter(rendersTag string) *Reporter {
	return &Reporter{rendersTag: rendersTag}
}

// Report maps each discrepancy to a diagnostic, preserving order.
func (r *Reporter) Report(ds []Discrepancy) []Diagnostic {
	out := make([]Diagnostic, 0, len(ds))
	for _, d := range ds {
		out = append(out, r.diagnostic(d))
	}
	return out
}

// diagnostic never panics: a formatting failure for one discrepancy falls
// back to a generic message.
func (r *Reporter) diagnostic(d Discrepancy) (diag Diagnostic) {
	diag = Diagnostic{
		Severity: SeverityWarning,
		Kind:     d.Kind.String(),
		Code:     d.Kind.Code(),
		Span:     d.Span,
	}
	defer func() {
		if rec := recover(); rec != nil {
			diag.Message = fmt.Sprintf("%s in %s", d.Kind, d.Subject)
		}
	}()
	diag.Message = r.message(d)
	return diag
}

func (r *Reporter) message(d Discrepancy) string {
	var msg string
	switch d.Kind {
	case UndeclaredUsage:
		msg = fmt.Sprintf("%s renders <%s> but does not declare it with @%s", d.Subject, d.Target, r.rendersTag)
	case MissingDeclaration:
		msg = fmt.Sprintf("%s declares @%s %s but never renders it", d.Subject, r.rendersTag, d.Target)
	case MismatchedTarget:
		msg = fmt.Sprintf("<%s> is supplied to %s, which declares @%s %s", d.Supplied, d.Subject, r.rendersTag, d.Target)
	case UnresolvedTarget:
		if d.Supplied != "" {
			msg = fmt.Sprintf("cannot confirm that <%s> supplied to %s satisfies @%s %s", d.Supplied, d.Subject, r.rendersTag, d.Target)
		} else {
			msg = fmt.Sprintf("@%s target %q on %s does not resolve to a component, property or element", r.rendersTag, d.Target, d.Subject)
		}
	case CycleDepthExceeded:
		msg = fmt.Sprintf("cannot follow <%s> supplied by %s", d.Target, d.Subject)
	case MalformedTag:
		msg = fmt.Sprintf("malformed @%s tag", d.Target)
		if d.Subject != "" {
			msg += " on " + d.Subject
		}
	default:
		msg = d.Kind.String()
	}
	if d.Detail != "" {
		msg += ": " + d.Detail
	}
	return msg
}
