package papers

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"paperforge/internal/backoff"
	"paperforge/internal/errcode"
	"paperforge/internal/llm"
)

// Analysis is what the model extracts from an imported paper. Citations feed
// the reference list of later runs; key concepts seed the knowledge base.
type Analysis struct {
	Summary     string   `json:"summary"`
	Citations   []string `json:"citations"`
	KeyConcepts []string `json:"key_concepts"`
}

const analysisPrompt = `Analyze the following excerpt of a research paper. Return a JSON object with these fields:

- "summary": a 2-4 sentence summary of the excerpt (string)
- "citations": works cited or referenced in the excerpt, as full citation strings (list of strings)
- "key_concepts": the main technical concepts discussed (list of strings, max 8)

Rules:
- Only list citations that actually appear in the text, never invent any
- Keep citation strings as close to the source formatting as possible
- Key concepts should be short noun phrases
- Return empty lists when the excerpt has nothing to report

Respond with ONLY the JSON object, no other text.`

// Analyzer runs model passes over imported papers.
type Analyzer struct {
	llm       llm.Client
	split     SplitConfig
	maxTokens int
}

func NewAnalyzer(client llm.Client) *Analyzer {
	return &Analyzer{
		llm:       client,
		split:     DefaultSplitConfig(),
		maxTokens: 2048,
	}
}

// Analyze summarizes a paper and collects its citations and key concepts,
// one model pass per passage. Passage failures are skipped so one bad slice
// does not lose the whole paper; an error is returned only when every pass
// failed.
func (a *Analyzer) Analyze(ctx context.Context, p *Paper) (*Analysis, error) {
	passages := Split(p, a.split)
	if len(passages) == 0 {
		return nil, errcode.New(errcode.Parsing, "paper %q contains no analyzable text", p.Title)
	}

	var (
		summaries []string
		citations []string
		concepts  []string
		seenCite  = map[string]bool{}
		seenConc  = map[string]bool{}
		lastErr   error
	)
	for _, passage := range passages {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		part, err := a.analyzePassage(ctx, p.Title, passage)
		if err != nil {
			lastErr = err
			continue
		}
		if part.Summary != "" {
			summaries = append(summaries, part.Summary)
		}
		for _, c := range part.Citations {
			if c = strings.TrimSpace(c); c != "" && !seenCite[c] {
				seenCite[c] = true
				citations = append(citations, c)
			}
		}
		for _, k := range part.KeyConcepts {
			if k = strings.TrimSpace(k); k != "" && !seenConc[strings.ToLower(k)] {
				seenConc[strings.ToLower(k)] = true
				concepts = append(concepts, k)
			}
		}
	}
	if len(summaries) == 0 && len(citations) == 0 && len(concepts) == 0 {
		if lastErr != nil {
			return nil, errcode.Wrap(errcode.API, lastErr, "analyze paper %q", p.Title)
		}
		return nil, errcode.New(errcode.API, "analyze paper %q: model returned nothing", p.Title)
	}

	return &Analysis{
		Summary:     strings.Join(summaries, " "),
		Citations:   citations,
		KeyConcepts: concepts,
	}, nil
}

func (a *Analyzer) analyzePassage(ctx context.Context, title string, p Passage) (*Analysis, error) {
	var sb strings.Builder
	sb.WriteString(analysisPrompt)
	sb.WriteString("\n\n---\n")
	fmt.Fprintf(&sb, "Paper: %q\n", title)
	if len(p.Breadcrumb) > 0 {
		sb.WriteString("Section: ")
		sb.WriteString(strings.Join(p.Breadcrumb, " > "))
		sb.WriteString("\n")
	}
	sb.WriteString("---\n")
	sb.WriteString(p.Text)

	text, err := backoff.Do(ctx, func(ctx context.Context) (string, error) {
		return a.llm.Complete(ctx, llm.Request{
			Prompt:    sb.String(),
			MaxTokens: a.maxTokens,
		})
	}, backoff.Options{})
	if err != nil {
		return nil, err
	}

	var result Analysis
	if err := json.Unmarshal([]byte(stripCodeBlock(text)), &result); err != nil {
		return nil, fmt.Errorf("parse analysis json: %w (raw: %s)", err, truncate(text, 200))
	}
	return &result, nil
}

var codeBlockRe = regexp.MustCompile("(?s)^```(?:json)?\\s*(.*?)\\s*```$")

// stripCodeBlock removes a wrapping markdown code fence if present.
func stripCodeBlock(s string) string {
	s = strings.TrimSpace(s)
	if m := codeBlockRe.FindStringSubmatch(s); m != nil {
		return m[1]
	}
	return s
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
