package papers

import (
	"strings"
	"testing"
)

func TestMarkdownParser_LeadingH1IsTitle(t *testing.T) {
	src := `# Stabilizer Codes

## Introduction

Opening paragraph.

## Methods

How it was done.
`
	p := &MarkdownParser{}
	paper, err := p.Parse(strings.NewReader(src), "paper.md")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	if paper.Title != "Stabilizer Codes" {
		t.Errorf("expected h1 as title, got %q", paper.Title)
	}
	if len(paper.Sections) != 2 {
		t.Fatalf("expected 2 sections, got %d", len(paper.Sections))
	}
	if paper.Sections[0].Title != "Introduction" || paper.Sections[0].Content != "Opening paragraph." {
		t.Errorf("unexpected first section: %+v", paper.Sections[0])
	}
	if paper.Sections[1].Title != "Methods" {
		t.Errorf("unexpected second section: %+v", paper.Sections[1])
	}
}

func TestMarkdownParser_LaterH1IsSection(t *testing.T) {
	src := `Some preamble text.

# Not The Title

Body.
`
	p := &MarkdownParser{}
	paper, err := p.Parse(strings.NewReader(src), "notes.md")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	if paper.Title != "notes" {
		t.Errorf("expected filename title, got %q", paper.Title)
	}
	if len(paper.Sections) != 2 {
		t.Fatalf("expected preamble plus heading section, got %d", len(paper.Sections))
	}
	if paper.Sections[1].Title != "Not The Title" {
		t.Errorf("expected h1 after content to open a section, got %q", paper.Sections[1].Title)
	}
}

func TestMarkdownParser_HeadingHierarchy(t *testing.T) {
	src := `## Top

### Nested

deep text

## Sibling
`
	p := &MarkdownParser{}
	paper, err := p.Parse(strings.NewReader(src), "h.md")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	if len(paper.Sections) != 2 {
		t.Fatalf("expected 2 roots, got %d", len(paper.Sections))
	}
	top := paper.Sections[0]
	if len(top.Subsections) != 1 || top.Subsections[0].Title != "Nested" {
		t.Fatalf("expected Nested under Top, got %+v", top.Subsections)
	}
	if top.Subsections[0].Content != "deep text" {
		t.Errorf("expected content on nested section, got %q", top.Subsections[0].Content)
	}
	if top.Subsections[0].Number != "1.1" {
		t.Errorf("expected positional number 1.1, got %q", top.Subsections[0].Number)
	}
}

func TestMarkdownParser_NoHeadings(t *testing.T) {
	src := "Just a paragraph.\n\nAnd another one.\n"
	p := &MarkdownParser{}
	paper, err := p.Parse(strings.NewReader(src), "plain.md")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	if len(paper.Sections) != 1 {
		t.Fatalf("expected single untitled section, got %d", len(paper.Sections))
	}
	if paper.Sections[0].Title != "" {
		t.Errorf("expected untitled section, got %q", paper.Sections[0].Title)
	}
	if !strings.Contains(paper.Sections[0].Content, "Just a paragraph.") ||
		!strings.Contains(paper.Sections[0].Content, "And another one.") {
		t.Errorf("expected both paragraphs kept, got %q", paper.Sections[0].Content)
	}
}

func TestMarkdownParser_InlineFormattingFlattened(t *testing.T) {
	src := "## Heading with **bold**\n\nText with *emphasis* and `code`.\n"
	p := &MarkdownParser{}
	paper, err := p.Parse(strings.NewReader(src), "f.md")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	if paper.Sections[0].Title != "Heading with bold" {
		t.Errorf("expected markers stripped from heading, got %q", paper.Sections[0].Title)
	}
}
