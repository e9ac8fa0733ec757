package papers

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fumiama/go-docx"
)

// DOCXParser handles .docx files, building sections from Heading styles.
type DOCXParser struct{}

func (p *DOCXParser) Parse(r io.Reader, filename string) (*Paper, error) {
	// go-docx needs a ReadSeeker+size, so write to a temp file.
	tmp, err := os.CreateTemp("", "paperforge-docx-*.docx")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	size, err := io.Copy(tmp, r)
	if err != nil {
		tmp.Close()
		return nil, fmt.Errorf("write temp file: %w", err)
	}
	if _, err := tmp.Seek(0, io.SeekStart); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("seek temp file: %w", err)
	}

	doc, err := docx.Parse(tmp, size)
	tmp.Close()
	if err != nil {
		return nil, fmt.Errorf("parse docx: %w", err)
	}

	var b treeBuilder
	for _, item := range doc.Document.Body.Items {
		para, ok := item.(*docx.Paragraph)
		if !ok {
			continue
		}
		text := paragraphText(para)
		if text == "" {
			continue
		}
		if level := paragraphHeadingLevel(para); level > 0 {
			b.Heading(level, text)
		} else {
			b.Text(text)
		}
	}

	return &Paper{
		Title:    titleFromFilename(filename),
		Sections: b.Sections(),
	}, nil
}

func paragraphHeadingLevel(para *docx.Paragraph) int {
	if para.Properties == nil || para.Properties.Style == nil {
		return 0
	}
	style := strings.ToLower(strings.ReplaceAll(para.Properties.Style.Val, " ", ""))
	if strings.HasPrefix(style, "heading") && len(style) == len("heading")+1 {
		d := style[len(style)-1]
		if d >= '1' && d <= '6' {
			return int(d - '0')
		}
	}
	return 0
}

func paragraphText(para *docx.Paragraph) string {
	var buf strings.Builder
	for _, child := range para.Children {
		run, ok := child.(*docx.Run)
		if !ok {
			continue
		}
		for _, rc := range run.Children {
			if t, ok := rc.(*docx.Text); ok {
				buf.WriteString(t.Text)
			}
		}
	}
	return strings.TrimSpace(buf.String())
}
