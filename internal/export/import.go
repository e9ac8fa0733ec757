package export

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	"paperforge/internal/document"
)

// sectionLabel matches the positional label an exporter puts in front of a
// section heading ("1.", "1.1", "2.3.1").
var sectionLabel = regexp.MustCompile(`^(\d+(?:\.\d+)*)\.?\s+(.*)$`)

// ImportMarkdown parses a previously exported (or hand-edited) markdown
// document back into the document model. Only headings carrying a numeric
// label are treated as section boundaries; unlabeled headings inside a
// section stay part of its content, so generated content containing its own
// markdown headings survives a round trip.
func ImportMarkdown(data []byte) (*document.Document, error) {
	src := data
	root := goldmark.New().Parser().Parse(text.NewReader(src))

	doc := &document.Document{}

	type stackEntry struct {
		sec   *document.Section
		depth int
	}
	var stack []stackEntry
	var current *document.Section
	inTOC := false
	inRefs := false

	appendBlock := func(md string) {
		if md == "" {
			return
		}
		if current == nil {
			return
		}
		if current.Content == "" {
			current.Content = md
		} else {
			current.Content += "\n\n" + md
		}
	}

	for n := root.FirstChild(); n != nil; n = n.NextSibling() {
		heading, isHeading := n.(*ast.Heading)
		if isHeading {
			title := strings.TrimSpace(string(heading.Text(src)))

			if heading.Level == 1 && doc.Title == "" && len(stack) == 0 {
				doc.Title = title
				continue
			}
			switch {
			case strings.EqualFold(title, "table of contents"):
				inTOC, inRefs = true, false
				continue
			case strings.EqualFold(title, "references"):
				inTOC, inRefs = false, true
				continue
			}

			if m := sectionLabel.FindStringSubmatch(title); m != nil {
				inTOC, inRefs = false, false
				sec := &document.Section{Number: m[1], Title: strings.TrimSpace(m[2])}
				depth := heading.Level - 1
				for len(stack) > 0 && stack[len(stack)-1].depth >= depth {
					stack = stack[:len(stack)-1]
				}
				if len(stack) == 0 {
					doc.Sections = append(doc.Sections, sec)
				} else {
					parent := stack[len(stack)-1].sec
					parent.Subsections = append(parent.Subsections, sec)
				}
				stack = append(stack, stackEntry{sec: sec, depth: depth})
				current = sec
				continue
			}

			// Unlabeled heading: part of the open section's content.
			appendBlock(fmt.Sprintf("%s %s", strings.Repeat("#", heading.Level), title))
			continue
		}

		if inTOC {
			continue
		}
		if inRefs {
			doc.References = append(doc.References, referenceLines(n, src)...)
			continue
		}
		appendBlock(rawBlock(n, src))
	}

	if len(doc.Sections) == 0 {
		return nil, fmt.Errorf("markdown contains no numbered sections")
	}
	return doc, nil
}

// rawBlock reconstructs the markdown source of a block node.
func rawBlock(n ast.Node, src []byte) string {
	if list, ok := n.(*ast.List); ok {
		var sb strings.Builder
		for item := list.FirstChild(); item != nil; item = item.NextSibling() {
			for c := item.FirstChild(); c != nil; c = c.NextSibling() {
				fmt.Fprintf(&sb, "- %s\n", blockText(c, src))
			}
		}
		return strings.TrimSpace(sb.String())
	}
	return blockText(n, src)
}

// referenceLines extracts one reference per list item or line, stripping
// the exporter's numbering back off.
func referenceLines(n ast.Node, src []byte) []string {
	var refs []string
	add := func(line string) {
		line = strings.TrimSpace(line)
		line = sectionLabel.ReplaceAllString(line, "$2")
		line = strings.TrimPrefix(line, "- ")
		if line != "" {
			refs = append(refs, line)
		}
	}
	if list, ok := n.(*ast.List); ok {
		for item := list.FirstChild(); item != nil; item = item.NextSibling() {
			for c := item.FirstChild(); c != nil; c = c.NextSibling() {
				add(blockText(c, src))
			}
		}
		return refs
	}
	for _, line := range strings.Split(blockText(n, src), "\n") {
		add(line)
	}
	return refs
}
