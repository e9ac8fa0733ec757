package papers

import (
	"bufio"
	"io"
	"strings"
)

// TextParser handles plain text files. There is no heading structure to
// recover, so the whole file becomes one section of paragraphs.
type TextParser struct{}

func (p *TextParser) Parse(r io.Reader, filename string) (*Paper, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var b treeBuilder
	var current strings.Builder
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			b.Text(current.String())
			current.Reset()
			continue
		}
		if current.Len() > 0 {
			current.WriteString("\n")
		}
		current.WriteString(line)
	}
	b.Text(current.String())
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return &Paper{
		Title:    titleFromFilename(filename),
		Sections: b.Sections(),
	}, nil
}
