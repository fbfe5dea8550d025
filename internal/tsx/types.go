package tsx

import (
	"fmt"
	"strings"

	"github.com/gobwas/glob"
)

// DefaultRenderableTypes are the type names that accept renderable content.
var DefaultRenderableTypes = []string{
	"ReactNode",
	"React.ReactNode",
	"ReactElement",
	"React.ReactElement",
	"ReactChild",
	"React.ReactChild",
	"ReactPortal",
	"React.ReactPortal",
	"JSX.Element",
	"React.JSX.Element",
	"ComponentChildren",
	"VNode",
}

type typeClassifier struct {
	patterns []glob.Glob
}

func newTypeClassifier(patterns []string) (*typeClassifier, error) {
	c := &typeClassifier{}
	for _, pattern := range patterns {
		g, err := glob.Compile(pattern, '.')
		if err != nil {
			return nil, fmt.Errorf("invalid renderable type pattern %q: %w", pattern, err)
		}
		c.patterns = append(c.patterns, g)
	}
	return c, nil
}

// Renderable reports whether any alternative of a type expression names a
// renderable type. Arrays, readonly modifiers, generic arguments and
// parentheses are looked through, so "ReactElement<P>[] | null" matches.
func (c *typeClassifier) Renderable(typeText string) bool {
	if typeText == "" {
		return false
	}
	for _, alt := range splitTopLevel(typeText, '|') {
		if c.renderableAlternative(alt) {
			return true
		}
	}
	return false
}

func (c *typeClassifier) renderableAlternative(t string) bool {
	for {
		t = strings.TrimSpace(t)
		switch {
		case strings.HasSuffix(t, "[]"):
			t = strings.TrimSuffix(t, "[]")
		case strings.HasPrefix(t, "readonly "):
			t = strings.TrimPrefix(t, "readonly ")
		case (strings.HasPrefix(t, "Array<") || strings.HasPrefix(t, "ReadonlyArray<")) && strings.HasSuffix(t, ">"):
			t = t[strings.Index(t, "<")+1 : len(t)-1]
		case strings.HasPrefix(t, "(") && strings.HasSuffix(t, ")"):
			return c.Renderable(t[1 : len(t)-1])
		default:
			if i := strings.Index(t, "<"); i > 0 {
				t = t[:i]
			}
			return c.matches(strings.Join(strings.Fields(t), ""))
		}
	}
}

func (c *typeClassifier) matches(name string) bool {
	if name == "" {
		return false
	}
	for _, g := range c.patterns {
		if g.Match(name) {
			return true
		}
	}
	return false
}

// splitTopLevel splits s on sep, ignoring separators nested in brackets.
func splitTopLevel(s string, sep byte) []string {
	var parts []string
	depth := 0
	start := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '<', '(', '[', '{':
			depth++
		case '>', ')', ']', '}':
			if depth > 0 {
				depth--
			}
		case sep:
			if depth == 0 {
				parts = append(parts, s[start:i])
				start = i + 1
			}
		}
	}
	parts = append(parts, s[start:])

	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
