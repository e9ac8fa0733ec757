// Package export serializes a completed document into downloadable
// encodings. All exporters share one semantic contract: title page, table of
// contents, body in section order, then references. They are pure functions
// of a Document.
package export

import (
	"fmt"

	"paperforge/internal/document"
)

// Format is a supported output encoding.
type Format string

const (
	FormatMarkdown Format = "md"
	FormatDOCX     Format = "docx"
	FormatPDF      Format = "pdf"
)

// Result is a rendered payload plus download metadata.
type Result struct {
	Data        []byte
	Filename    string
	ContentType string
}

// Export renders doc in the requested format.
func Export(doc *document.Document, format Format) (Result, error) {
	switch format {
	case FormatMarkdown:
		return Markdown(doc), nil
	case FormatDOCX:
		return DOCX(doc)
	case FormatPDF:
		return PDF(doc)
	default:
		return Result{}, fmt.Errorf("unsupported export format: %s", format)
	}
}

// ParseFormat validates a format string from a request path.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case FormatMarkdown, FormatDOCX, FormatPDF:
		return Format(s), nil
	}
	return "", fmt.Errorf("unsupported export format: %s", s)
}

// numbered pairs a section with its positionally derived export label.
// Export numbering is re-derived from position in the tree, never from the
// number stored on the section.
type numbered struct {
	label string
	depth int
	sec   *document.Section
}

// renumber flattens the tree in document order with positional labels:
// top-level sections are "1", "2", ...; subsections "1.1", "1.2", ...
func renumber(sections []*document.Section) []numbered {
	var out []numbered
	var walk func(secs []*document.Section, prefix string, depth int)
	walk = func(secs []*document.Section, prefix string, depth int) {
		for i, s := range secs {
			label := fmt.Sprintf("%d", i+1)
			if prefix != "" {
				label = prefix + "." + label
			}
			out = append(out, numbered{label: label, depth: depth, sec: s})
			walk(s.Subsections, label, depth+1)
		}
	}
	walk(sections, "", 1)
	return out
}

// renderable reports whether a section carries any body content, directly
// or through a subsection. Sections that do not are omitted from the body
// (but still listed in the table of contents).
func renderable(s *document.Section) bool {
	if s.Content != "" {
		return true
	}
	for _, sub := range s.Subsections {
		if renderable(sub) {
			return true
		}
	}
	return false
}
