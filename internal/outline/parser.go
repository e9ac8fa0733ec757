// Package outline converts free-form model output into a section tree and
// validates the tree's structure against generation profiles.
package outline

import (
	"regexp"
	"strings"

	"paperforge/internal/document"
)

// numberedLine matches a dotted-decimal section heading such as
// "1. Introduction", "1.1 Background" or "2.3.1 Detail".
var numberedLine = regexp.MustCompile(`^(\d+(?:\.\d+)*)\.?\s+(.+)$`)

// Parse scans raw outline text line by line and builds an ordered section
// tree. A numbered line opens a section whose depth equals the count of
// dot-separated numeric segments; it nests under the most recently opened
// shallower section. Non-matching, non-blank lines are folded into the
// deepest open section's content. Lines before any section has opened are
// descriptive noise (headers like "Research Outline") and are dropped.
//
// Parsing is pure: the same input always yields the same tree.
func Parse(text string) []*document.Section {
	var roots []*document.Section
	// Stack of currently open sections, one per depth level.
	var stack []*document.Section

	for _, raw := range strings.Split(text, "\n") {
		line := normalizeLine(raw)
		if line == "" {
			continue
		}
		// Bracketed lines are model meta-comments, not content.
		if strings.HasPrefix(line, "[") || strings.HasSuffix(line, "]") {
			continue
		}

		m := numberedLine.FindStringSubmatch(line)
		if m == nil {
			if len(stack) == 0 {
				continue
			}
			appendContent(stack[len(stack)-1], line)
			continue
		}

		sec := &document.Section{Number: m[1], Title: strings.TrimSpace(m[2])}
		depth := sec.Depth()

		// Unwind to the most recent section shallower than this one.
		for len(stack) >= depth {
			stack = stack[:len(stack)-1]
		}
		if len(stack) == 0 {
			roots = append(roots, sec)
		} else {
			parent := stack[len(stack)-1]
			parent.Subsections = append(parent.Subsections, sec)
		}
		stack = append(stack, sec)
	}

	return roots
}

// normalizeLine strips bold-markup artifacts, a stray leading "0 " token and
// surrounding whitespace before pattern matching.
func normalizeLine(line string) string {
	line = strings.TrimSpace(line)
	line = strings.ReplaceAll(line, "**", "")
	line = strings.TrimPrefix(line, "0 ")
	return strings.TrimSpace(line)
}

func appendContent(sec *document.Section, line string) {
	if sec.Content == "" {
		sec.Content = line
		return
	}
	sec.Content += "\n" + line
}
