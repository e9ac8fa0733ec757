package papers

import (
	"context"
	"strings"
	"testing"

	"paperforge/internal/document"
	"paperforge/internal/errcode"
	"paperforge/internal/llm"
)

type stubLLM struct {
	responses []string
	calls     int
}

func (s *stubLLM) Complete(ctx context.Context, req llm.Request) (string, error) {
	i := s.calls
	s.calls++
	if i >= len(s.responses) {
		i = len(s.responses) - 1
	}
	return s.responses[i], nil
}

func longSection(title string) *document.Section {
	return &document.Section{
		Title:   title,
		Content: strings.Repeat("substantive research prose here ", 20),
	}
}

func TestAnalyze_SinglePassage(t *testing.T) {
	client := &stubLLM{responses: []string{
		"```json\n{\"summary\": \"About codes.\", \"citations\": [\"Shor, P. (1995).\"], \"key_concepts\": [\"stabilizer codes\"]}\n```",
	}}
	a := NewAnalyzer(client)

	got, err := a.Analyze(context.Background(), &Paper{
		Title:    "Codes",
		Sections: []*document.Section{longSection("Intro")},
	})
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if got.Summary != "About codes." {
		t.Errorf("unexpected summary: %q", got.Summary)
	}
	if len(got.Citations) != 1 || got.Citations[0] != "Shor, P. (1995)." {
		t.Errorf("unexpected citations: %v", got.Citations)
	}
	if len(got.KeyConcepts) != 1 || got.KeyConcepts[0] != "stabilizer codes" {
		t.Errorf("unexpected concepts: %v", got.KeyConcepts)
	}
	if client.calls != 1 {
		t.Errorf("expected one model call, got %d", client.calls)
	}
}

func TestAnalyze_DeduplicatesAcrossPassages(t *testing.T) {
	client := &stubLLM{responses: []string{
		`{"summary": "First.", "citations": ["Shor, P. (1995)."], "key_concepts": ["Decoding"]}`,
		`{"summary": "Second.", "citations": ["Shor, P. (1995).", "Steane, A. (1996)."], "key_concepts": ["decoding", "syndrome"]}`,
	}}
	a := NewAnalyzer(client)

	got, err := a.Analyze(context.Background(), &Paper{
		Title:    "Codes",
		Sections: []*document.Section{longSection("Intro"), longSection("Methods")},
	})
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if got.Summary != "First. Second." {
		t.Errorf("expected joined summaries, got %q", got.Summary)
	}
	if len(got.Citations) != 2 {
		t.Errorf("expected exact-match citation dedupe, got %v", got.Citations)
	}
	// Concept dedupe is case-insensitive; the first spelling wins.
	if len(got.KeyConcepts) != 2 || got.KeyConcepts[0] != "Decoding" {
		t.Errorf("unexpected concepts: %v", got.KeyConcepts)
	}
}

func TestAnalyze_SkipsFailedPassages(t *testing.T) {
	client := &stubLLM{responses: []string{
		"this is not json at all",
		`{"summary": "Recovered.", "citations": [], "key_concepts": []}`,
	}}
	a := NewAnalyzer(client)

	got, err := a.Analyze(context.Background(), &Paper{
		Title:    "Codes",
		Sections: []*document.Section{longSection("Intro"), longSection("Methods")},
	})
	if err != nil {
		t.Fatalf("expected partial success, got %v", err)
	}
	if got.Summary != "Recovered." {
		t.Errorf("unexpected summary: %q", got.Summary)
	}
}

func TestAnalyze_AllPassagesFailed(t *testing.T) {
	client := &stubLLM{responses: []string{"still not json"}}
	a := NewAnalyzer(client)

	_, err := a.Analyze(context.Background(), &Paper{
		Title:    "Codes",
		Sections: []*document.Section{longSection("Intro")},
	})
	if err == nil {
		t.Fatal("expected error when every passage fails")
	}
	if errcode.CodeOf(err) != errcode.API {
		t.Errorf("expected API code, got %v", errcode.CodeOf(err))
	}
}

func TestAnalyze_EmptyPaper(t *testing.T) {
	a := NewAnalyzer(&stubLLM{responses: []string{"{}"}})
	_, err := a.Analyze(context.Background(), &Paper{Title: "Empty"})
	if err == nil {
		t.Fatal("expected error for paper with no analyzable text")
	}
	if errcode.CodeOf(err) != errcode.Parsing {
		t.Errorf("expected Parsing code, got %v", errcode.CodeOf(err))
	}
}

func TestStripCodeBlock(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"```json\n{\"a\": 1}\n```", `{"a": 1}`},
		{"```\n{\"a\": 1}\n```", `{"a": 1}`},
		{`{"a": 1}`, `{"a": 1}`},
		{"  {\"a\": 1}  ", `{"a": 1}`},
	}
	for _, tt := range tests {
		if got := stripCodeBlock(tt.in); got != tt.want {
			t.Errorf("stripCodeBlock(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
