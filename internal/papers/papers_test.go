package papers

import (
	"testing"

	"paperforge/internal/document"
)

func TestTreeBuilder_Nesting(t *testing.T) {
	var b treeBuilder
	b.Heading(1, "Intro")
	b.Text("opening")
	b.Heading(2, "Background")
	b.Text("context")
	b.Heading(3, "History")
	b.Heading(2, "Scope")
	b.Heading(1, "Methods")

	secs := b.Sections()
	if len(secs) != 2 {
		t.Fatalf("expected 2 roots, got %d", len(secs))
	}

	intro := secs[0]
	if intro.Title != "Intro" || intro.Content != "opening" {
		t.Errorf("unexpected root: %+v", intro)
	}
	if len(intro.Subsections) != 2 {
		t.Fatalf("expected 2 subsections under Intro, got %d", len(intro.Subsections))
	}
	if intro.Subsections[0].Title != "Background" || intro.Subsections[1].Title != "Scope" {
		t.Errorf("unexpected subsections: %q, %q",
			intro.Subsections[0].Title, intro.Subsections[1].Title)
	}
	if got := intro.Subsections[0].Subsections[0].Title; got != "History" {
		t.Errorf("expected History nested under Background, got %q", got)
	}
	if secs[1].Title != "Methods" {
		t.Errorf("expected Methods as second root, got %q", secs[1].Title)
	}
}

func TestTreeBuilder_Numbering(t *testing.T) {
	var b treeBuilder
	b.Heading(1, "A")
	b.Heading(2, "A1")
	b.Heading(2, "A2")
	b.Heading(1, "B")

	secs := b.Sections()
	checks := []struct {
		number string
		got    string
	}{
		{"1", secs[0].Number},
		{"1.1", secs[0].Subsections[0].Number},
		{"1.2", secs[0].Subsections[1].Number},
		{"2", secs[1].Number},
	}
	for _, c := range checks {
		if c.got != c.number {
			t.Errorf("expected number %q, got %q", c.number, c.got)
		}
	}
}

func TestTreeBuilder_TextBeforeHeading(t *testing.T) {
	var b treeBuilder
	b.Text("preamble paragraph")
	b.Text("second paragraph")
	b.Heading(1, "First Real Heading")

	secs := b.Sections()
	if len(secs) != 2 {
		t.Fatalf("expected untitled root plus heading, got %d roots", len(secs))
	}
	if secs[0].Title != "" {
		t.Errorf("expected untitled preamble section, got %q", secs[0].Title)
	}
	if secs[0].Content != "preamble paragraph\n\nsecond paragraph" {
		t.Errorf("unexpected preamble content: %q", secs[0].Content)
	}
}

func TestForFile(t *testing.T) {
	tests := []struct {
		filename string
		wantErr  bool
	}{
		{"paper.txt", false},
		{"paper.md", false},
		{"paper.MARKDOWN", false},
		{"paper.html", false},
		{"paper.pdf", false},
		{"paper.docx", false},
		{"paper.xlsx", true},
		{"paper", true},
	}
	for _, tt := range tests {
		_, err := ForFile(tt.filename)
		if (err != nil) != tt.wantErr {
			t.Errorf("ForFile(%q): err=%v, wantErr=%v", tt.filename, err, tt.wantErr)
		}
	}
}

func TestIsSupportedExtension(t *testing.T) {
	if !IsSupportedExtension("notes.MD") {
		t.Error("expected extension check to be case-insensitive")
	}
	if IsSupportedExtension("archive.zip") {
		t.Error("expected zip to be unsupported")
	}
}

func TestPaperPlainText(t *testing.T) {
	p := &Paper{
		Title: "t",
		Sections: []*document.Section{
			{Title: "Intro", Content: "opening words", Subsections: []*document.Section{
				{Title: "Background", Content: "context"},
			}},
		},
	}
	got := p.PlainText()
	want := "Intro\nopening words\n\nBackground\ncontext"
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}
