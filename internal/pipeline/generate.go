package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"paperforge/internal/backoff"
	"paperforge/internal/document"
	"paperforge/internal/errcode"
	"paperforge/internal/llm"
	"paperforge/internal/outline"
)

// Config tunes the generation pipeline. The delays and caps are empirically
// chosen against the provider's rate limit, not correctness constraints.
type Config struct {
	// PaceBaseDelay is the unconditional wait before every section after the
	// first; PaceMultiplier stretches it each time the provider throttles us.
	PaceBaseDelay  time.Duration
	PaceMultiplier float64

	// MaxRateLimitRetries caps reactive same-section retries after throttling.
	MaxRateLimitRetries int
	// MaxConsecutiveErrors aborts the run once this many sections in a row
	// fail for non-rate-limit reasons.
	MaxConsecutiveErrors int

	// MinSectionWords triggers a non-fatal warning on shorter sections.
	MinSectionWords int

	TargetMaxTokens    int
	OutlineMaxTokens   int
	SectionMaxTokens   int
	ReferenceMaxTokens int

	// BackoffMaxRetries and BackoffMaxDelay parameterize the shared backoff
	// utility used for the outline and reference calls.
	BackoffMaxRetries int
	BackoffMaxDelay   time.Duration

	// Sleep is a test seam; nil means a context-aware time.Sleep.
	Sleep func(ctx context.Context, d time.Duration) error
}

// DefaultConfig returns the tuned defaults.
func DefaultConfig() Config {
	return Config{
		PaceBaseDelay:        20 * time.Second,
		PaceMultiplier:       1.5,
		MaxRateLimitRetries:  3,
		MaxConsecutiveErrors: 3,
		MinSectionWords:      3000,
		TargetMaxTokens:      256,
		OutlineMaxTokens:     2048,
		SectionMaxTokens:     8192,
		ReferenceMaxTokens:   2048,
		BackoffMaxRetries:    backoff.DefaultMaxRetries,
		BackoffMaxDelay:      backoff.DefaultMaxDelay,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.PaceBaseDelay <= 0 {
		c.PaceBaseDelay = d.PaceBaseDelay
	}
	if c.PaceMultiplier <= 1 {
		c.PaceMultiplier = d.PaceMultiplier
	}
	if c.MaxRateLimitRetries <= 0 {
		c.MaxRateLimitRetries = d.MaxRateLimitRetries
	}
	if c.MaxConsecutiveErrors <= 0 {
		c.MaxConsecutiveErrors = d.MaxConsecutiveErrors
	}
	if c.MinSectionWords <= 0 {
		c.MinSectionWords = d.MinSectionWords
	}
	if c.TargetMaxTokens <= 0 {
		c.TargetMaxTokens = d.TargetMaxTokens
	}
	if c.OutlineMaxTokens <= 0 {
		c.OutlineMaxTokens = d.OutlineMaxTokens
	}
	if c.SectionMaxTokens <= 0 {
		c.SectionMaxTokens = d.SectionMaxTokens
	}
	if c.ReferenceMaxTokens <= 0 {
		c.ReferenceMaxTokens = d.ReferenceMaxTokens
	}
	if c.BackoffMaxRetries <= 0 {
		c.BackoffMaxRetries = d.BackoffMaxRetries
	}
	if c.BackoffMaxDelay <= 0 {
		c.BackoffMaxDelay = d.BackoffMaxDelay
	}
	if c.Sleep == nil {
		c.Sleep = backoff.SleepContext
	}
	return c
}

// ProgressFunc receives progress updates (0-100, monotonically non-
// decreasing) with a human-readable message. It is invoked synchronously at
// each phase transition and at least once per section.
type ProgressFunc func(pct int, msg string)

// Hooks lets a caller observe a run without owning it.
type Hooks struct {
	Progress ProgressFunc
	State    func(State)
}

func (h Hooks) progress(pct int, msg string) {
	if h.Progress != nil {
		h.Progress(pct, msg)
	}
}

func (h Hooks) state(s State) {
	if h.State != nil {
		h.State(s)
	}
}

// Generator drives the outline-first sequential content pipeline. All
// collaborators are injected; the generator holds no global state.
type Generator struct {
	llm      llm.Client
	cfg      Config
	profiles outline.Profiles
	log      *slog.Logger
}

func NewGenerator(client llm.Client, cfg Config, profiles outline.Profiles, log *slog.Logger) *Generator {
	return &Generator{
		llm:      client,
		cfg:      cfg.withDefaults(),
		profiles: profiles,
		log:      log,
	}
}

// Generate runs the full pipeline for one document: target refinement,
// outline, per-section content with pacing and retry, references,
// finalization. Sections are generated strictly sequentially to stay inside
// the provider's request-rate budget.
func (g *Generator) Generate(ctx context.Context, cfg document.GenerationConfig, author string, hooks Hooks) (*document.Document, error) {
	topic := strings.TrimSpace(cfg.Topic)
	if topic == "" {
		return nil, errcode.New(errcode.Validation, "research topic is required")
	}

	// Phase 1: refine the topic into a concrete target. A failure here is
	// not worth aborting for; the raw topic works as a fallback title.
	hooks.state(StateGeneratingTarget)
	hooks.progress(0, "refining research target")
	target := topic
	if refined, err := g.completeWithBackoff(ctx, buildTargetPrompt(topic), g.cfg.TargetMaxTokens); err == nil {
		if line := firstLine(refined); line != "" {
			target = line
		}
	} else {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		g.log.Warn("target refinement failed, using raw topic", "error", err)
	}

	// Phase 2: outline.
	hooks.state(StateGeneratingOutline)
	hooks.progress(10, "generating outline")
	outlineText, err := g.completeWithBackoff(ctx, buildOutlinePrompt(target, cfg.Mode, cfg.Type), g.cfg.OutlineMaxTokens)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if llm.IsRateLimit(err) {
			return nil, errcode.Wrap(errcode.RateLimit, err, "outline generation exhausted retries")
		}
		return nil, errcode.Wrap(errcode.API, err, "outline generation failed")
	}

	sections := outline.Parse(outlineText)
	if len(sections) == 0 {
		return nil, errcode.New(errcode.Parsing, "outline text yielded no sections")
	}
	if res := outline.ValidateStructure(outlineText, cfg.Mode, cfg.Type, g.profiles); !res.Valid {
		// Advisory only: proceed, but leave a trace for the caller.
		g.log.Warn("outline structure check failed", "reason", res.Reason)
	}

	doc := &document.Document{
		ID:        uuid.NewString(),
		Title:     target,
		Author:    author,
		Sections:  sections,
		CreatedAt: time.Now(),
	}

	nodes := flatten(sections)
	hooks.progress(20, fmt.Sprintf("outline ready (%d sections)", len(nodes)))

	// Phase 3: per-section content, strictly sequential.
	hooks.state(StateGeneratingSections)
	if err := g.generateSections(ctx, cfg, target, nodes, doc, hooks); err != nil {
		return nil, err
	}

	// Phase 4: references. A failure here never aborts the run.
	hooks.state(StateGeneratingReferences)
	hooks.progress(80, "generating references")
	doc.References = append(doc.References, cfg.SeedReferences...)
	refsText, err := g.completeWithBackoff(ctx,
		buildReferencesPrompt(target, cfg.CitationStyle, topTitles(sections)), g.cfg.ReferenceMaxTokens)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		g.log.Warn("reference generation failed, continuing without references", "error", err)
	} else {
		doc.References = append(doc.References, parseReferences(refsText)...)
	}

	hooks.progress(90, "assembling document")
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	hooks.progress(100, "complete")
	return doc, nil
}

// sectionNode pairs a section with the titles of its ancestors.
type sectionNode struct {
	sec  *document.Section
	path []string
}

func flatten(sections []*document.Section) []sectionNode {
	var nodes []sectionNode
	var walk func(secs []*document.Section, path []string)
	walk = func(secs []*document.Section, path []string) {
		for _, s := range secs {
			nodes = append(nodes, sectionNode{sec: s, path: path})
			walk(s.Subsections, append(path[:len(path):len(path)], s.Title))
		}
	}
	walk(sections, nil)
	return nodes
}

// generateSections walks the flattened tree in document order. Section i+1
// only begins after section i completes or is marked failed.
func (g *Generator) generateSections(ctx context.Context, cfg document.GenerationConfig, target string, nodes []sectionNode, doc *document.Document, hooks Hooks) error {
	rateLimitHits := 0
	consecutiveErrors := 0
	total := len(nodes)

	for i, n := range nodes {
		if err := ctx.Err(); err != nil {
			return err
		}
		// Unconditional pacing between sections, stretched by the number of
		// rate-limit hits seen so far.
		if i > 0 {
			if err := g.cfg.Sleep(ctx, g.paceDelay(rateLimitHits)); err != nil {
				return err
			}
		}
		hooks.progress(20+(60*i)/total, fmt.Sprintf("writing section %s %s", n.sec.Number, n.sec.Title))

		prompt := buildSectionPrompt(target, n.path, n.sec, g.cfg.MinSectionWords)
		var text string
		var err error
		for {
			text, err = g.llm.Complete(ctx, llm.Request{
				Prompt:    prompt,
				System:    systemPrompt,
				MaxTokens: g.cfg.SectionMaxTokens,
			})
			if err == nil || ctx.Err() != nil {
				break
			}
			if !llm.IsRateLimit(err) || rateLimitHits >= g.cfg.MaxRateLimitRetries {
				break
			}
			// Reactive retry: same section, longer wait.
			rateLimitHits++
			g.log.Warn("rate limited, retrying section",
				"section", n.sec.Number, "hits", rateLimitHits)
			if serr := g.cfg.Sleep(ctx, g.paceDelay(rateLimitHits)); serr != nil {
				return serr
			}
		}
		if cerr := ctx.Err(); cerr != nil {
			return cerr
		}

		if err != nil {
			consecutiveErrors++
			n.sec.Content = fmt.Sprintf("[content generation failed: %v]", err)
			n.sec.Warning = "content generation failed"
			g.log.Error("section generation failed",
				"section", n.sec.Number, "title", n.sec.Title,
				"consecutive", consecutiveErrors, "error", err)
			if consecutiveErrors >= g.cfg.MaxConsecutiveErrors {
				return newFailure(n.sec.Title, doc,
					errcode.Wrap(errcode.Generation, err,
						"aborted after %d consecutive section failures (last: %s)",
						consecutiveErrors, n.sec.Title))
			}
			continue
		}

		n.sec.Content = strings.TrimSpace(text)
		if wc := document.WordCount(n.sec.Content); wc < g.cfg.MinSectionWords {
			n.sec.Warning = fmt.Sprintf("content below minimum word count (%d < %d)", wc, g.cfg.MinSectionWords)
		} else {
			n.sec.Warning = ""
		}
		consecutiveErrors = 0
		rateLimitHits = 0
		hooks.progress(20+(60*(i+1))/total, fmt.Sprintf("section %s complete", n.sec.Number))
	}
	return nil
}

// paceDelay is base * multiplier^hits.
func (g *Generator) paceDelay(rateLimitHits int) time.Duration {
	return time.Duration(float64(g.cfg.PaceBaseDelay) * math.Pow(g.cfg.PaceMultiplier, float64(rateLimitHits)))
}

// completeWithBackoff wraps a single completion in the shared backoff
// utility, seeding the initial delay from the prompt's token budget.
func (g *Generator) completeWithBackoff(ctx context.Context, prompt string, maxTokens int) (string, error) {
	return backoff.Do(ctx, func(ctx context.Context) (string, error) {
		return g.llm.Complete(ctx, llm.Request{
			Prompt:    prompt,
			System:    systemPrompt,
			MaxTokens: maxTokens,
		})
	}, backoff.Options{
		MaxRetries:   g.cfg.BackoffMaxRetries,
		InitialDelay: backoff.InitialDelayForBudget(backoff.EstimateTokens(prompt)),
		MaxDelay:     g.cfg.BackoffMaxDelay,
		Sleep:        g.cfg.Sleep,
	})
}

func firstLine(s string) string {
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(strings.Trim(strings.TrimSpace(line), `"`))
		if line != "" {
			return line
		}
	}
	return ""
}

func topTitles(sections []*document.Section) []string {
	titles := make([]string, 0, len(sections))
	for _, s := range sections {
		titles = append(titles, s.Title)
	}
	return titles
}

// parseReferences splits the model's reference response into one string per
// line, dropping blanks, bullets and bracketed meta-comments.
func parseReferences(text string) []string {
	var refs []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		line = strings.TrimPrefix(line, "- ")
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "[") {
			continue
		}
		refs = append(refs, line)
	}
	return refs
}
