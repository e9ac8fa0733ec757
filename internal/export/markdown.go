package export

import (
	"fmt"
	"strings"

	"paperforge/internal/document"
)

// Markdown renders the document as a single markdown file. Section content
// is already markdown-flavored and passes through verbatim.
func Markdown(doc *document.Document) Result {
	var sb strings.Builder

	// Title page.
	fmt.Fprintf(&sb, "# %s\n\n", doc.Title)
	if doc.Author != "" {
		fmt.Fprintf(&sb, "*%s*\n\n", doc.Author)
	}
	if !doc.CreatedAt.IsZero() {
		fmt.Fprintf(&sb, "%s\n\n", doc.CreatedAt.Format("January 2, 2006"))
	}

	nodes := renumber(doc.Sections)

	// Table of contents lists every section, including ones whose body is
	// omitted below.
	if len(nodes) > 0 {
		sb.WriteString("## Table of Contents\n\n")
		for _, n := range nodes {
			indent := strings.Repeat("    ", n.depth-1)
			fmt.Fprintf(&sb, "%s- %s %s\n", indent, tocLabel(n), n.sec.Title)
		}
		sb.WriteString("\n")
	}

	// Body: skip sections with no content anywhere in their subtree.
	for _, n := range nodes {
		if !renderable(n.sec) {
			continue
		}
		level := n.depth + 1
		if level > 6 {
			level = 6
		}
		fmt.Fprintf(&sb, "%s %s %s\n\n", strings.Repeat("#", level), tocLabel(n), n.sec.Title)
		if content := strings.TrimSpace(n.sec.Content); content != "" {
			sb.WriteString(content)
			sb.WriteString("\n\n")
		}
	}

	if len(doc.References) > 0 {
		sb.WriteString("## References\n\n")
		for i, ref := range doc.References {
			fmt.Fprintf(&sb, "%d. %s\n", i+1, ref)
		}
		sb.WriteString("\n")
	}

	return Result{
		Data:        []byte(sb.String()),
		Filename:    document.SanitizeTitle(doc.Title) + ".md",
		ContentType: "text/markdown",
	}
}

// tocLabel renders a positional label: top-level sections get a trailing dot
// ("1."), nested ones keep the bare dotted form ("1.1").
func tocLabel(n numbered) string {
	if n.depth == 1 {
		return n.label + "."
	}
	return n.label
}
