package tsx

import (
	"strings"

	"github.com/mvp-joe/rendercheck/internal/syntax"
)

// isDocComment reports whether comment text is a JSDoc block ("/** ... */").
func isDocComment(text string) bool {
	return strings.HasPrefix(text, "/**") && !strings.HasPrefix(text, "/**/") && strings.HasSuffix(text, "*/")
}

// parseDocTags extracts block tags from a JSDoc comment. row and col are the
// 0-indexed position of the comment's first byte. A tag starts at an '@' that
// begins a line or follows whitespace; its body runs until the next tag or the
// end of the comment. Text before the first tag is the free description and
// is not returned.
func parseDocTags(file, text string, row, col uint) []syntax.Tag {
	if !isDocComment(text) {
		return nil
	}
	body := text[3 : len(text)-2]

	var tags []syntax.Tag
	var current *syntax.Tag
	var parts []string

	flush := func() {
		if current == nil {
			return
		}
		current.Body = strings.Join(strings.Fields(strings.Join(parts, " ")), " ")
		tags = append(tags, *current)
		current = nil
		parts = nil
	}

	for i, line := range strings.Split(body, "\n") {
		// Byte offset of line[0] within its source line.
		offset := 0
		if i == 0 {
			offset = int(col) + 3
		}
		content, contentOffset := stripLeader(line, i == 0)
		offset += contentOffset

		for _, seg := range splitTagSegments(content) {
			if seg.tag == "" {
				if current != nil {
					parts = append(parts, seg.text)
				}
				continue
			}
			flush()
			line := int(row) + i + 1
			start := offset + seg.at + 1
			current = &syntax.Tag{
				Name: seg.tag,
				Span: syntax.Span{
					File:      file,
					Line:      line,
					Column:    start,
					EndLine:   line,
					EndColumn: start + len(seg.raw),
				},
			}
			parts = append(parts, seg.text)
		}
	}
	flush()

	return tags
}

// stripLeader removes the indentation and leading '*' of a comment line and
// returns the remaining content with its byte offset in line.
func stripLeader(line string, first bool) (string, int) {
	line = strings.TrimRight(line, "\r")
	if first {
		return line, 0
	}
	i := 0
	for i < len(line) && (line[i] == ' ' || line[i] == '\t') {
		i++
	}
	if i < len(line) && line[i] == '*' {
		i++
		if i < len(line) && line[i] == ' ' {
			i++
		}
	}
	return line[i:], i
}

type tagSegment struct {
	tag  string // Tag name, empty for continuation text
	text string // Text following the tag name
	raw  string // Full segment including "@name"
	at   int    // Byte offset of '@' within the line content
}

// splitTagSegments splits one line of comment content at tag starts.
func splitTagSegments(content string) []tagSegment {
	var starts []int
	for i := 0; i < len(content); i++ {
		if content[i] != '@' {
			continue
		}
		if i > 0 && content[i-1] != ' ' && content[i-1] != '\t' {
			continue
		}
		if i+1 < len(content) && isTagNameByte(content[i+1]) {
			starts = append(starts, i)
		}
	}

	if len(starts) == 0 {
		return []tagSegment{{text: content}}
	}

	var segs []tagSegment
	if lead := strings.TrimSpace(content[:starts[0]]); lead != "" {
		segs = append(segs, tagSegment{text: lead})
	}
	for n, s := range starts {
		end := len(content)
		if n+1 < len(starts) {
			end = starts[n+1]
		}
		raw := strings.TrimRight(content[s:end], " \t")
		j := 1
		for j < len(raw) && isTagNameByte(raw[j]) {
			j++
		}
		segs = append(segs, tagSegment{
			tag:  raw[1:j],
			text: strings.TrimSpace(raw[j:]),
			raw:  raw,
			at:   s,
		})
	}
	return segs
}

func isTagNameByte(b byte) bool {
	return b == '_' || b == '-' || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9')
}
