package papers

import (
	"bytes"
	"io"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// MarkdownParser handles Markdown files using goldmark.
type MarkdownParser struct{}

func (p *MarkdownParser) Parse(r io.Reader, filename string) (*Paper, error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	md := goldmark.New()
	root := md.Parser().Parse(text.NewReader(src))

	title := titleFromFilename(filename)
	var b treeBuilder
	sawContent := false
	for n := root.FirstChild(); n != nil; n = n.NextSibling() {
		if h, ok := n.(*ast.Heading); ok {
			t := string(h.Text(src))
			if h.Level == 1 && !sawContent {
				// A leading h1 is the paper title, not a section.
				title = t
				sawContent = true
				continue
			}
			b.Heading(h.Level, t)
			sawContent = true
			continue
		}
		if t := nodeText(n, src); t != "" {
			b.Text(t)
			sawContent = true
		}
	}

	return &Paper{Title: title, Sections: b.Sections()}, nil
}

// nodeText gets the text content of a goldmark AST node.
func nodeText(n ast.Node, src []byte) string {
	var buf bytes.Buffer
	if n.Type() == ast.TypeBlock {
		lines := n.Lines()
		for i := 0; i < lines.Len(); i++ {
			seg := lines.At(i)
			buf.Write(seg.Value(src))
		}
	}
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		if t, ok := c.(*ast.Text); ok {
			buf.Write(t.Value(src))
			if t.HardLineBreak() || t.SoftLineBreak() {
				buf.WriteByte('\n')
			}
		} else {
			buf.WriteString(nodeText(c, src))
		}
	}
	return strings.TrimSpace(buf.String())
}
