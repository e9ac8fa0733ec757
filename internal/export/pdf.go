package export

import (
	"bytes"
	"fmt"

	"github.com/go-pdf/fpdf"

	"paperforge/internal/document"
)

const pdfBodyLineHeight = 5.5

// PDF renders the document as a PDF file.
func PDF(doc *document.Document) (Result, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(doc.Title, true)
	pdf.SetAutoPageBreak(true, 20)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	// Title page.
	pdf.AddPage()
	pdf.SetY(80)
	pdf.SetFont("Helvetica", "B", 24)
	pdf.MultiCell(0, 10, tr(doc.Title), "", "C", false)
	if doc.Author != "" {
		pdf.Ln(8)
		pdf.SetFont("Helvetica", "", 13)
		pdf.MultiCell(0, 7, tr(doc.Author), "", "C", false)
	}
	if !doc.CreatedAt.IsZero() {
		pdf.Ln(4)
		pdf.SetFont("Helvetica", "I", 11)
		pdf.MultiCell(0, 6, doc.CreatedAt.Format("January 2, 2006"), "", "C", false)
	}

	nodes := renumber(doc.Sections)

	// Table of contents.
	if len(nodes) > 0 {
		pdf.AddPage()
		pdf.SetFont("Helvetica", "B", 16)
		pdf.MultiCell(0, 9, "Table of Contents", "", "L", false)
		pdf.Ln(2)
		pdf.SetFont("Helvetica", "", 11)
		for _, n := range nodes {
			pdf.SetX(pdf.GetX() + float64(n.depth-1)*6)
			pdf.MultiCell(0, 6, tr(fmt.Sprintf("%s %s", tocLabel(n), n.sec.Title)), "", "L", false)
			pdf.SetX(10)
		}
	}

	// Body.
	bodyOpened := false
	for _, n := range nodes {
		if !renderable(n.sec) {
			continue
		}
		if !bodyOpened {
			pdf.AddPage()
			bodyOpened = true
		}
		pdf.SetFont("Helvetica", "B", pdfHeadingPts(n.depth))
		pdf.MultiCell(0, 8, tr(fmt.Sprintf("%s %s", tocLabel(n), n.sec.Title)), "", "L", false)
		pdf.Ln(1)
		writePDFBlocks(pdf, tr, contentBlocks(n.sec))
		pdf.Ln(4)
	}

	// References.
	if len(doc.References) > 0 {
		pdf.AddPage()
		pdf.SetFont("Helvetica", "B", 16)
		pdf.MultiCell(0, 9, "References", "", "L", false)
		pdf.Ln(2)
		pdf.SetFont("Helvetica", "", 11)
		for i, ref := range doc.References {
			pdf.MultiCell(0, 6, tr(fmt.Sprintf("%d. %s", i+1, ref)), "", "L", false)
			pdf.Ln(1)
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return Result{}, fmt.Errorf("write pdf: %w", err)
	}
	return Result{
		Data:        buf.Bytes(),
		Filename:    document.SanitizeTitle(doc.Title) + ".pdf",
		ContentType: "application/pdf",
	}, nil
}

func pdfHeadingPts(depth int) float64 {
	switch depth {
	case 1:
		return 16
	case 2:
		return 13.5
	default:
		return 12
	}
}

// writePDFBlocks renders content blocks, switching font styles per span so
// inline emphasis survives into the PDF.
func writePDFBlocks(pdf *fpdf.Fpdf, tr func(string) string, blocks []Block) {
	for _, b := range blocks {
		if b.Heading > 0 {
			pdf.SetFont("Helvetica", "B", 12)
			pdf.MultiCell(0, 7, tr(plainText(b)), "", "L", false)
			pdf.Ln(1)
			continue
		}
		for _, s := range b.Spans {
			style := ""
			if s.Bold {
				style += "B"
			}
			if s.Italic {
				style += "I"
			}
			pdf.SetFont("Helvetica", style, 11)
			pdf.Write(pdfBodyLineHeight, tr(s.Text))
		}
		pdf.Ln(pdfBodyLineHeight)
		pdf.Ln(2)
	}
}
