package export

import (
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	"paperforge/internal/document"
)

// Span is a run of text with emphasis attributes.
type Span struct {
	Text   string
	Bold   bool
	Italic bool
}

// Block is one paragraph or heading of rendered content. Heading is 0 for a
// paragraph, otherwise the heading level (1-6).
type Block struct {
	Heading int
	Spans   []Span
}

// parseBlocks reads markdown-flavored section content into blocks of
// emphasis-annotated spans. Unterminated markers come back as literal text
// (goldmark's behavior), so malformed content degrades gracefully instead
// of failing.
func parseBlocks(content string) []Block {
	src := []byte(content)
	root := goldmark.New().Parser().Parse(text.NewReader(src))

	var blocks []Block
	for n := root.FirstChild(); n != nil; n = n.NextSibling() {
		switch node := n.(type) {
		case *ast.Heading:
			blocks = append(blocks, Block{Heading: node.Level, Spans: inlineSpans(node, src, false, false)})
		case *ast.Paragraph, *ast.TextBlock:
			spans := inlineSpans(n, src, false, false)
			if len(spans) > 0 {
				blocks = append(blocks, Block{Spans: spans})
			}
		case *ast.List:
			blocks = append(blocks, listBlocks(node, src)...)
		default:
			// Code fences, quotes and anything else render as plain text.
			if t := blockText(n, src); t != "" {
				blocks = append(blocks, Block{Spans: []Span{{Text: t}}})
			}
		}
	}
	return blocks
}

func listBlocks(list *ast.List, src []byte) []Block {
	var blocks []Block
	for item := list.FirstChild(); item != nil; item = item.NextSibling() {
		var spans []Span
		for c := item.FirstChild(); c != nil; c = c.NextSibling() {
			spans = append(spans, inlineSpans(c, src, false, false)...)
		}
		if len(spans) > 0 {
			spans = append([]Span{{Text: "• "}}, spans...)
			blocks = append(blocks, Block{Spans: spans})
		}
	}
	return blocks
}

// inlineSpans flattens the inline children of a block node, tracking
// emphasis nesting. goldmark maps *italic* and _italic_ to level-1 emphasis
// and **bold** to level 2.
func inlineSpans(n ast.Node, src []byte, bold, italic bool) []Span {
	var spans []Span
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		switch node := c.(type) {
		case *ast.Text:
			t := string(node.Value(src))
			if node.SoftLineBreak() || node.HardLineBreak() {
				t += " "
			}
			if t != "" {
				spans = append(spans, Span{Text: t, Bold: bold, Italic: italic})
			}
		case *ast.Emphasis:
			b, i := bold, italic
			if node.Level >= 2 {
				b = true
			} else {
				i = true
			}
			spans = append(spans, inlineSpans(node, src, b, i)...)
		case *ast.CodeSpan:
			spans = append(spans, Span{Text: string(node.Text(src)), Bold: bold, Italic: italic})
		default:
			spans = append(spans, inlineSpans(c, src, bold, italic)...)
		}
	}
	return spans
}

// blockText extracts the raw source lines of a block node.
func blockText(n ast.Node, src []byte) string {
	var sb strings.Builder
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		sb.Write(seg.Value(src))
	}
	return strings.TrimSpace(sb.String())
}

// plainText joins a block's spans without formatting.
func plainText(b Block) string {
	var sb strings.Builder
	for _, s := range b.Spans {
		sb.WriteString(s.Text)
	}
	return strings.TrimSpace(sb.String())
}

// contentBlocks is a convenience wrapper used by the binary exporters.
func contentBlocks(sec *document.Section) []Block {
	if strings.TrimSpace(sec.Content) == "" {
		return nil
	}
	return parseBlocks(sec.Content)
}
