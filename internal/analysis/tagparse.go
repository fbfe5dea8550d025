package analysis

import (
	"fmt"
	"strings"
)

// tagBody is a parsed render tag body: [target] ['-'] [description].
type tagBody struct {
	Target      string // Empty for a wildcard
	Description string
}

// parseTagBody parses the text following a render tag name. The target is an
// identifier path ("Header", "UI.Header", "my-element"), optionally wrapped in
// braces. A body that starts with '-' or is empty declares a wildcard.
func parseTagBody(body string) (tagBody, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return tagBody{}, nil
	}

	var target, rest string
	switch {
	case strings.HasPrefix(body, "{"):
		end := strings.IndexByte(body, '}')
		if end < 0 {
			return tagBody{}, fmt.Errorf("unterminated '{' in %q", body)
		}
		target = strings.TrimSpace(body[1:end])
		if target == "" {
			return tagBody{}, fmt.Errorf("empty target in %q", body)
		}
		rest = body[end+1:]
	case strings.HasPrefix(body, "-"):
		rest = body
	default:
		if i := strings.IndexAny(body, " \t\r\n"); i >= 0 {
			target, rest = body[:i], body[i:]
		} else {
			target = body
		}
	}

	if target != "" && !validTarget(target) {
		return tagBody{}, fmt.Errorf("invalid target %q", target)
	}

	rest = strings.TrimSpace(rest)
	rest = strings.TrimSpace(strings.TrimPrefix(rest, "-"))
	return tagBody{Target: target, Description: rest}, nil
}

// validTarget reports whether s is a dotted identifier path.
func validTarget(s string) bool {
	for _, seg := range strings.Split(s, ".") {
		if seg == "" {
			return false
		}
		for i := 0; i < len(seg); i++ {
			c := seg[i]
			switch {
			case c == '_' || c == '$':
			case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z':
			case (c >= '0' && c <= '9') || c == '-':
				if i == 0 {
					return false
				}
			default:
				return false
			}
		}
	}
	return true
}

// isIntrinsicName reports whether a plain name denotes a host element.
func isIntrinsicName(name string) bool {
	return name != "" && name[0] >= 'a' && name[0] <= 'z' && !strings.Contains(name, ".")
}
