package export

import (
	"bytes"
	"fmt"

	"github.com/fumiama/go-docx"

	"paperforge/internal/document"
)

// Word sizing: docx font sizes are half-points.
const (
	docxTitleSize   = "48"
	docxHeading1    = "32"
	docxHeading2    = "28"
	docxHeading3    = "24"
	docxBodyHeading = "26"
)

// DOCX renders the document as a Word file.
func DOCX(doc *document.Document) (Result, error) {
	w := docx.New().WithDefaultTheme()

	// Title page.
	title := w.AddParagraph().Justification("center")
	title.AddText(doc.Title).Size(docxTitleSize).Bold()
	if doc.Author != "" {
		author := w.AddParagraph().Justification("center")
		author.AddText(doc.Author).Size("24")
	}
	if !doc.CreatedAt.IsZero() {
		date := w.AddParagraph().Justification("center")
		date.AddText(doc.CreatedAt.Format("January 2, 2006")).Size("20").Italic()
	}
	w.AddParagraph()

	nodes := renumber(doc.Sections)

	// Table of contents.
	if len(nodes) > 0 {
		toc := w.AddParagraph()
		toc.AddText("Table of Contents").Size(docxHeading1).Bold()
		for _, n := range nodes {
			p := w.AddParagraph()
			for i := 1; i < n.depth; i++ {
				p.AddText("").AddTab()
			}
			p.AddText(fmt.Sprintf("%s %s", tocLabel(n), n.sec.Title))
		}
		w.AddParagraph()
	}

	// Body.
	for _, n := range nodes {
		if !renderable(n.sec) {
			continue
		}
		h := w.AddParagraph()
		h.AddText(fmt.Sprintf("%s %s", tocLabel(n), n.sec.Title)).Size(headingSize(n.depth)).Bold()
		writeDocxBlocks(w, contentBlocks(n.sec))
		w.AddParagraph()
	}

	// References.
	if len(doc.References) > 0 {
		h := w.AddParagraph()
		h.AddText("References").Size(docxHeading1).Bold()
		for i, ref := range doc.References {
			p := w.AddParagraph()
			p.AddText(fmt.Sprintf("%d. %s", i+1, ref))
		}
	}

	var buf bytes.Buffer
	if _, err := w.WriteTo(&buf); err != nil {
		return Result{}, fmt.Errorf("write docx: %w", err)
	}
	return Result{
		Data:        buf.Bytes(),
		Filename:    document.SanitizeTitle(doc.Title) + ".docx",
		ContentType: "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	}, nil
}

func headingSize(depth int) string {
	switch depth {
	case 1:
		return docxHeading1
	case 2:
		return docxHeading2
	default:
		return docxHeading3
	}
}

// writeDocxBlocks translates parsed content blocks into paragraphs with
// native bold/italic runs.
func writeDocxBlocks(w *docx.Docx, blocks []Block) {
	for _, b := range blocks {
		p := w.AddParagraph()
		if b.Heading > 0 {
			p.AddText(plainText(b)).Size(docxBodyHeading).Bold()
			continue
		}
		for _, s := range b.Spans {
			if s.Text == "" {
				continue
			}
			r := p.AddText(s.Text)
			if s.Bold {
				r.Bold()
			}
			if s.Italic {
				r.Italic()
			}
		}
	}
}
