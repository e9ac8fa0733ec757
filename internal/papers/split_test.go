package papers

import (
	"strings"
	"testing"

	"paperforge/internal/document"
)

func TestEstimateTokens(t *testing.T) {
	tests := []struct {
		text string
		want int
	}{
		{"", 0},
		{"one", 1},
		{strings.Repeat("word ", 100), 133},
	}
	for _, tt := range tests {
		if got := EstimateTokens(tt.text); got != tt.want {
			t.Errorf("EstimateTokens(%d words) = %d, want %d",
				len(strings.Fields(tt.text)), got, tt.want)
		}
	}
}

func TestSplit_DropsShortPassages(t *testing.T) {
	p := &Paper{Sections: []*document.Section{
		{Title: "Tiny", Content: "too small"},
	}}
	got := Split(p, SplitConfig{MaxTokens: 100, MinTokens: 10})
	if len(got) != 0 {
		t.Errorf("expected short passage dropped, got %d", len(got))
	}
}

func TestSplit_PacksParagraphs(t *testing.T) {
	para := "five words in this paragraph"
	p := &Paper{Sections: []*document.Section{
		{Title: "S", Content: para + "\n\n" + para + "\n\n" + para},
	}}

	got := Split(p, SplitConfig{MaxTokens: 15, MinTokens: 1})
	if len(got) != 2 {
		t.Fatalf("expected 2 passages, got %d", len(got))
	}
	if got[0].Text != para+"\n\n"+para {
		t.Errorf("expected first two paragraphs packed, got %q", got[0].Text)
	}
	if got[1].Text != para {
		t.Errorf("expected third paragraph alone, got %q", got[1].Text)
	}
}

func TestSplit_OversizedParagraphBreaksOnSentences(t *testing.T) {
	sent := "Short sentence with five words."
	para := strings.TrimSpace(strings.Repeat(sent+" ", 6))
	p := &Paper{Sections: []*document.Section{{Title: "S", Content: para}}}

	got := Split(p, SplitConfig{MaxTokens: 10, MinTokens: 1})
	if len(got) != 6 {
		t.Fatalf("expected one passage per sentence, got %d", len(got))
	}
	for _, ps := range got {
		if ps.Text != sent {
			t.Errorf("expected %q, got %q", sent, ps.Text)
		}
	}
}

func TestSplit_Breadcrumbs(t *testing.T) {
	long := strings.Repeat("meaningful content words here ", 20)
	p := &Paper{Sections: []*document.Section{
		{Title: "Intro", Subsections: []*document.Section{
			{Title: "Background", Content: long},
		}},
	}}

	got := Split(p, DefaultSplitConfig())
	if len(got) != 1 {
		t.Fatalf("expected 1 passage, got %d", len(got))
	}
	bc := got[0].Breadcrumb
	if len(bc) != 2 || bc[0] != "Intro" || bc[1] != "Background" {
		t.Errorf("expected breadcrumb [Intro Background], got %v", bc)
	}
}

func TestSplit_UntitledSectionOmittedFromBreadcrumb(t *testing.T) {
	long := strings.Repeat("meaningful content words here ", 20)
	p := &Paper{Sections: []*document.Section{{Title: "", Content: long}}}

	got := Split(p, DefaultSplitConfig())
	if len(got) != 1 {
		t.Fatalf("expected 1 passage, got %d", len(got))
	}
	if len(got[0].Breadcrumb) != 0 {
		t.Errorf("expected empty breadcrumb, got %v", got[0].Breadcrumb)
	}
}
