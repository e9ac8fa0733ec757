// Package papers imports source papers (PDF, DOCX, Markdown, HTML, plain
// text) so the language model can mine them for citations and summaries.
// Parsers produce the same section tree the rest of the service uses.
package papers

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"paperforge/internal/document"
)

// Paper is a parsed source document.
type Paper struct {
	Title    string
	Sections []*document.Section
}

// PlainText flattens the paper for prompting.
func (p *Paper) PlainText() string {
	var sb strings.Builder
	for _, s := range p.Sections {
		s.Walk(func(sec *document.Section) {
			if sec.Title != "" {
				sb.WriteString(sec.Title)
				sb.WriteString("\n")
			}
			if sec.Content != "" {
				sb.WriteString(sec.Content)
				sb.WriteString("\n\n")
			}
		})
	}
	return strings.TrimSpace(sb.String())
}

// Parser converts raw bytes into a Paper.
type Parser interface {
	Parse(r io.Reader, filename string) (*Paper, error)
}

// SupportedExtensions lists the file types the import endpoint accepts.
var SupportedExtensions = map[string]bool{
	".txt":      true,
	".md":       true,
	".markdown": true,
	".html":     true,
	".htm":      true,
	".pdf":      true,
	".docx":     true,
}

// ForFile returns the parser for a filename.
func ForFile(filename string) (Parser, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".txt":
		return &TextParser{}, nil
	case ".md", ".markdown":
		return &MarkdownParser{}, nil
	case ".html", ".htm":
		return &HTMLParser{}, nil
	case ".pdf":
		return &PDFParser{}, nil
	case ".docx":
		return &DOCXParser{}, nil
	default:
		return nil, fmt.Errorf("unsupported file extension: %s", filepath.Ext(filename))
	}
}

// IsSupportedExtension checks whether the import endpoint accepts a file.
func IsSupportedExtension(filename string) bool {
	return SupportedExtensions[strings.ToLower(filepath.Ext(filename))]
}

func titleFromFilename(filename string) string {
	base := filepath.Base(filename)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// treeBuilder assembles a section tree from a stream of headings and text
// blocks, the common shape of the markdown, docx and html parsers.
type treeBuilder struct {
	roots []*document.Section
	stack []struct {
		sec   *document.Section
		level int
	}
}

// Heading opens a new section at the given level (1-6), nesting under the
// most recent shallower heading.
func (b *treeBuilder) Heading(level int, title string) {
	sec := &document.Section{Title: title}
	for len(b.stack) > 0 && b.stack[len(b.stack)-1].level >= level {
		b.stack = b.stack[:len(b.stack)-1]
	}
	if len(b.stack) == 0 {
		b.roots = append(b.roots, sec)
	} else {
		parent := b.stack[len(b.stack)-1].sec
		parent.Subsections = append(parent.Subsections, sec)
	}
	b.stack = append(b.stack, struct {
		sec   *document.Section
		level int
	}{sec, level})
}

// Text appends body text to the open section, opening an untitled root when
// text appears before any heading.
func (b *treeBuilder) Text(t string) {
	t = strings.TrimSpace(t)
	if t == "" {
		return
	}
	if len(b.stack) == 0 {
		b.Heading(1, "")
		b.stack[len(b.stack)-1].sec.Title = ""
	}
	sec := b.stack[len(b.stack)-1].sec
	if sec.Content == "" {
		sec.Content = t
	} else {
		sec.Content += "\n\n" + t
	}
}

// Sections finalizes the tree, assigning positional dotted numbers.
func (b *treeBuilder) Sections() []*document.Section {
	var number func(secs []*document.Section, prefix string)
	number = func(secs []*document.Section, prefix string) {
		for i, s := range secs {
			label := fmt.Sprintf("%d", i+1)
			if prefix != "" {
				label = prefix + "." + label
			}
			s.Number = label
			number(s.Subsections, label)
		}
	}
	number(b.roots, "")
	return b.roots
}
