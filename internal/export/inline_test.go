package export

import (
	"testing"
)

func TestParseBlocks_Emphasis(t *testing.T) {
	blocks := parseBlocks("plain **bold** *italic* text")
	if len(blocks) != 1 {
		t.Fatalf("expected 1 block, got %d", len(blocks))
	}

	var bold, italic, plain bool
	for _, s := range blocks[0].Spans {
		switch {
		case s.Bold && s.Text == "bold":
			bold = true
		case s.Italic && s.Text == "italic":
			italic = true
		case !s.Bold && !s.Italic:
			plain = true
		}
	}
	if !bold {
		t.Error("expected a bold span")
	}
	if !italic {
		t.Error("expected an italic span")
	}
	if !plain {
		t.Error("expected plain spans")
	}
}

func TestParseBlocks_Heading(t *testing.T) {
	blocks := parseBlocks("## Section Heading\n\nBody text.")
	if len(blocks) != 2 {
		t.Fatalf("expected 2 blocks, got %d", len(blocks))
	}
	if blocks[0].Heading != 2 {
		t.Errorf("expected heading level 2, got %d", blocks[0].Heading)
	}
	if plainText(blocks[0]) != "Section Heading" {
		t.Errorf("expected heading text, got %q", plainText(blocks[0]))
	}
	if blocks[1].Heading != 0 {
		t.Errorf("expected paragraph block, got heading level %d", blocks[1].Heading)
	}
}

func TestParseBlocks_List(t *testing.T) {
	blocks := parseBlocks("- first\n- second\n")
	if len(blocks) != 2 {
		t.Fatalf("expected 2 list blocks, got %d", len(blocks))
	}
	if blocks[0].Spans[0].Text != "• " {
		t.Errorf("expected bullet prefix, got %q", blocks[0].Spans[0].Text)
	}
	if plainText(blocks[1]) != "• second" {
		t.Errorf("expected second item, got %q", plainText(blocks[1]))
	}
}

func TestParseBlocks_UnterminatedMarkerDegrades(t *testing.T) {
	// An unterminated ** stays literal text rather than failing.
	blocks := parseBlocks("broken **emphasis here")
	if len(blocks) != 1 {
		t.Fatalf("expected 1 block, got %d", len(blocks))
	}
	if got := plainText(blocks[0]); got != "broken **emphasis here" {
		t.Errorf("expected literal text, got %q", got)
	}
}

func TestRenumber_Labels(t *testing.T) {
	nodes := renumber(sampleDoc().Sections)
	wantLabels := []string{"1", "1.1", "1.2", "2"}
	if len(nodes) != len(wantLabels) {
		t.Fatalf("expected %d nodes, got %d", len(wantLabels), len(nodes))
	}
	for i, want := range wantLabels {
		if nodes[i].label != want {
			t.Errorf("node %d: expected label %q, got %q", i, want, nodes[i].label)
		}
	}
	if nodes[1].depth != 2 {
		t.Errorf("expected depth 2 for first subsection, got %d", nodes[1].depth)
	}
}

func TestParseFormat(t *testing.T) {
	for _, ok := range []string{"md", "docx", "pdf"} {
		if _, err := ParseFormat(ok); err != nil {
			t.Errorf("expected %q to parse, got %v", ok, err)
		}
	}
	if _, err := ParseFormat("html"); err == nil {
		t.Error("expected error for unsupported format")
	}
}
