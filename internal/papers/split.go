package papers

import (
	"strings"

	"paperforge/internal/document"
)

// EstimateTokens gives a rough token count from the word count. Exact
// tokenization is not required for budgeting analysis passes.
func EstimateTokens(text string) int {
	if text == "" {
		return 0
	}
	words := len(strings.Fields(text))
	tokens := int(float64(words) * 1.33)
	if tokens < 1 {
		tokens = 1
	}
	return tokens
}

// Passage is one token-budgeted slice of a paper, with the heading path it
// came from so the model keeps its bearings.
type Passage struct {
	Text       string
	Breadcrumb []string
}

// SplitConfig controls how papers are sliced for analysis.
type SplitConfig struct {
	MaxTokens int // target passage size in tokens
	MinTokens int // passages below this are dropped
}

func DefaultSplitConfig() SplitConfig {
	return SplitConfig{
		MaxTokens: 1500,
		MinTokens: 50,
	}
}

// Split slices a paper into passages that fit the analysis token budget,
// breaking on paragraph boundaries and falling back to sentence boundaries
// for oversized paragraphs.
func Split(p *Paper, cfg SplitConfig) []Passage {
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 1500
	}
	if cfg.MinTokens <= 0 {
		cfg.MinTokens = 50
	}

	var passages []Passage
	for _, sec := range p.Sections {
		splitSection(sec, nil, cfg, &passages)
	}
	return passages
}

func splitSection(sec *document.Section, breadcrumb []string, cfg SplitConfig, out *[]Passage) {
	bc := append(append([]string(nil), breadcrumb...), sec.Title)
	if sec.Title == "" {
		bc = bc[:len(bc)-1]
	}

	if sec.Content != "" {
		for _, part := range splitText(sec.Content, cfg.MaxTokens) {
			if EstimateTokens(part) >= cfg.MinTokens {
				*out = append(*out, Passage{Text: part, Breadcrumb: bc})
			}
		}
	}
	for _, sub := range sec.Subsections {
		splitSection(sub, bc, cfg, out)
	}
}

// splitText packs paragraphs into passages of at most maxTokens.
func splitText(text string, maxTokens int) []string {
	var result []string
	var current strings.Builder
	currentTokens := 0

	flush := func() {
		if currentTokens > 0 {
			result = append(result, current.String())
			current.Reset()
			currentTokens = 0
		}
	}

	for _, para := range paragraphs(text) {
		paraTokens := EstimateTokens(para)

		if paraTokens > maxTokens {
			flush()
			result = append(result, splitSentences(para, maxTokens)...)
			continue
		}
		if currentTokens+paraTokens > maxTokens {
			flush()
		}
		if current.Len() > 0 {
			current.WriteString("\n\n")
		}
		current.WriteString(para)
		currentTokens += paraTokens
	}
	flush()
	return result
}

func paragraphs(text string) []string {
	var out []string
	for _, p := range strings.Split(text, "\n\n") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// splitSentences breaks an oversized paragraph on sentence boundaries.
func splitSentences(text string, maxTokens int) []string {
	var sentences []string
	var current strings.Builder
	for i, r := range text {
		current.WriteRune(r)
		if (r == '.' || r == '!' || r == '?') && i+1 < len(text) && text[i+1] == ' ' {
			sentences = append(sentences, strings.TrimSpace(current.String()))
			current.Reset()
		}
	}
	if current.Len() > 0 {
		sentences = append(sentences, strings.TrimSpace(current.String()))
	}

	var result []string
	var chunk strings.Builder
	chunkTokens := 0
	for _, sent := range sentences {
		sentTokens := EstimateTokens(sent)
		if chunkTokens+sentTokens > maxTokens && chunkTokens > 0 {
			result = append(result, chunk.String())
			chunk.Reset()
			chunkTokens = 0
		}
		if chunk.Len() > 0 {
			chunk.WriteString(" ")
		}
		chunk.WriteString(sent)
		chunkTokens += sentTokens
	}
	if chunkTokens > 0 {
		result = append(result, chunk.String())
	}
	return result
}
