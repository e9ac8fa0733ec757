package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"paperforge/internal/document"
	"paperforge/internal/errcode"
	"paperforge/internal/llm"
	"paperforge/internal/outline"
)

// scriptedClient answers prompts by kind. sectionErrs is consumed one error
// per section call; a nil entry means success.
type scriptedClient struct {
	mu           sync.Mutex
	outlineText  string
	sectionText  string
	refsText     string
	refsErr      error
	sectionErrs  []error
	sectionCalls int
}

func (c *scriptedClient) Complete(ctx context.Context, req llm.Request) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch {
	case strings.HasPrefix(req.Prompt, "Refine the following topic"):
		return "Refined Target Title", nil
	case strings.HasPrefix(req.Prompt, "Create a numbered outline"):
		return c.outlineText, nil
	case strings.HasPrefix(req.Prompt, "Write the body content"):
		i := c.sectionCalls
		c.sectionCalls++
		if i < len(c.sectionErrs) && c.sectionErrs[i] != nil {
			return "", c.sectionErrs[i]
		}
		return c.sectionText, nil
	case strings.HasPrefix(req.Prompt, "Produce a reference list"):
		if c.refsErr != nil {
			return "", c.refsErr
		}
		return c.refsText, nil
	}
	return "", errors.New("unexpected prompt")
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(discard{}, &slog.HandlerOptions{Level: slog.LevelError + 1}))
}

type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }

// testGenerator builds a generator with a recording sleep seam and tiny
// word-count threshold.
func testGenerator(client llm.Client, sleeps *[]time.Duration) *Generator {
	cfg := Config{
		PaceBaseDelay:   10 * time.Millisecond,
		PaceMultiplier:  2,
		MinSectionWords: 3,
		Sleep: func(ctx context.Context, d time.Duration) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			if sleeps != nil {
				*sleeps = append(*sleeps, d)
			}
			return nil
		},
	}
	return NewGenerator(client, cfg, outline.DefaultProfiles(), testLogger())
}

const threeSectionOutline = "1. Introduction\n2. Methods\n3. Conclusion\n"

func TestGenerate_HappyPath(t *testing.T) {
	client := &scriptedClient{
		outlineText: "1. Introduction\n1.1 Background\n2. Conclusion\n",
		sectionText: "Substantive prose with enough words here.",
		refsText:    "Shor, P. (1995).\n- Steane, A. (1996).\n[formatted as requested]\n",
	}
	var sleeps []time.Duration
	gen := testGenerator(client, &sleeps)

	var progress []int
	doc, err := gen.Generate(context.Background(), document.GenerationConfig{Topic: "quantum codes"},
		"Tester", Hooks{Progress: func(pct int, _ string) { progress = append(progress, pct) }})
	require.NoError(t, err)
	require.NotNil(t, doc)

	assert.Equal(t, "Refined Target Title", doc.Title)
	assert.Equal(t, "Tester", doc.Author)
	require.Len(t, doc.Sections, 2)
	assert.Equal(t, "Substantive prose with enough words here.", doc.Sections[0].Content)
	assert.Empty(t, doc.Sections[0].Warning)

	// Bullet prefixes stripped, bracketed lines dropped.
	assert.Equal(t, []string{"Shor, P. (1995).", "Steane, A. (1996)."}, doc.References)

	// Progress never decreases and ends at 100.
	for i := 1; i < len(progress); i++ {
		assert.GreaterOrEqual(t, progress[i], progress[i-1])
	}
	assert.Equal(t, 100, progress[len(progress)-1])

	// Pacing: one sleep per section after the first, at the base delay.
	assert.Equal(t, []time.Duration{10 * time.Millisecond, 10 * time.Millisecond}, sleeps)
}

func TestGenerate_EmptyTopic(t *testing.T) {
	gen := testGenerator(&scriptedClient{}, nil)
	_, err := gen.Generate(context.Background(), document.GenerationConfig{Topic: "   "}, "", Hooks{})
	require.Error(t, err)
	assert.Equal(t, errcode.Validation, errcode.CodeOf(err))
}

func TestGenerate_UnparseableOutline(t *testing.T) {
	client := &scriptedClient{outlineText: "[no outline for you]\n"}
	gen := testGenerator(client, nil)
	_, err := gen.Generate(context.Background(), document.GenerationConfig{Topic: "t"}, "", Hooks{})
	require.Error(t, err)
	assert.Equal(t, errcode.Parsing, errcode.CodeOf(err))
}

func TestGenerate_RateLimitRetriesSameSection(t *testing.T) {
	rl := &llm.RateLimitError{RetryAfter: time.Minute}
	client := &scriptedClient{
		outlineText: threeSectionOutline,
		sectionText: "enough words to pass the bar",
		refsText:    "Ref.",
		// First section call throttled twice, then succeeds; the two extra
		// calls consume entries 0 and 1.
		sectionErrs: []error{rl, rl, nil, nil, nil},
	}
	var sleeps []time.Duration
	gen := testGenerator(client, &sleeps)

	doc, err := gen.Generate(context.Background(), document.GenerationConfig{Topic: "t"}, "", Hooks{})
	require.NoError(t, err)
	assert.Equal(t, "enough words to pass the bar", doc.Sections[0].Content)

	// Two reactive retry sleeps stretched by the multiplier (20ms, 40ms),
	// then success resets the stretch so pacing returns to base (10ms).
	assert.Equal(t, []time.Duration{
		20 * time.Millisecond,
		40 * time.Millisecond,
		10 * time.Millisecond,
		10 * time.Millisecond,
	}, sleeps)
}

func TestGenerate_RateLimitCapFeedsFailureCounter(t *testing.T) {
	rl := &llm.RateLimitError{RetryAfter: time.Second}
	errs := make([]error, 0, 32)
	for i := 0; i < 32; i++ {
		errs = append(errs, rl)
	}
	client := &scriptedClient{
		outlineText: threeSectionOutline,
		sectionErrs: errs,
	}
	gen := testGenerator(client, nil)

	_, err := gen.Generate(context.Background(), document.GenerationConfig{Topic: "t"}, "", Hooks{})
	require.Error(t, err)

	var failure *Failure
	require.ErrorAs(t, err, &failure)
	assert.Equal(t, errcode.Generation, errcode.CodeOf(err))
	require.NotNil(t, failure.Partial)

	// The partial document keeps placeholders for every failed section.
	for _, sec := range failure.Partial.Sections {
		if sec.Warning != "" {
			assert.Contains(t, sec.Content, "content generation failed")
		}
	}
}

func TestGenerate_ConsecutiveFailuresAbort(t *testing.T) {
	apiErr := &llm.APIError{StatusCode: 500, Message: "boom"}
	client := &scriptedClient{
		outlineText: threeSectionOutline,
		sectionErrs: []error{apiErr, apiErr, apiErr},
	}
	gen := testGenerator(client, nil)

	_, err := gen.Generate(context.Background(), document.GenerationConfig{Topic: "t"}, "", Hooks{})
	require.Error(t, err)

	var failure *Failure
	require.ErrorAs(t, err, &failure)
	assert.Equal(t, "Conclusion", failure.SectionTitle)
	assert.Equal(t, errcode.Generation, errcode.CodeOf(err))
	require.NotNil(t, failure.Partial)
	require.Len(t, failure.Partial.Sections, 3)
	assert.Contains(t, failure.Partial.Sections[0].Content, "content generation failed")
	assert.Equal(t, "content generation failed", failure.Partial.Sections[0].Warning)
}

func TestGenerate_IsolatedFailureDoesNotAbort(t *testing.T) {
	apiErr := &llm.APIError{StatusCode: 500, Message: "boom"}
	client := &scriptedClient{
		outlineText: threeSectionOutline,
		sectionText: "good words in this section",
		refsText:    "Ref.",
		sectionErrs: []error{nil, apiErr, nil},
	}
	gen := testGenerator(client, nil)

	doc, err := gen.Generate(context.Background(), document.GenerationConfig{Topic: "t"}, "", Hooks{})
	require.NoError(t, err)
	assert.Contains(t, doc.Sections[1].Content, "content generation failed")
	assert.Equal(t, "content generation failed", doc.Sections[1].Warning)
	assert.Equal(t, "good words in this section", doc.Sections[2].Content)
	assert.Empty(t, doc.Sections[2].Warning)
}

func TestGenerate_ShortSectionWarning(t *testing.T) {
	client := &scriptedClient{
		outlineText: "1. Only\n",
		sectionText: "too short",
		refsText:    "Ref.",
	}
	gen := testGenerator(client, nil)

	doc, err := gen.Generate(context.Background(), document.GenerationConfig{Topic: "t"}, "", Hooks{})
	require.NoError(t, err)
	assert.Equal(t, "content below minimum word count (2 < 3)", doc.Sections[0].Warning)
}

func TestGenerate_ReferenceFailureNonFatal(t *testing.T) {
	client := &scriptedClient{
		outlineText: "1. Only\n",
		sectionText: "plenty of words right here",
		refsErr:     &llm.APIError{StatusCode: 500, Message: "boom"},
	}
	gen := testGenerator(client, nil)

	doc, err := gen.Generate(context.Background(), document.GenerationConfig{
		Topic:          "t",
		SeedReferences: []string{"Seeded citation."},
	}, "", Hooks{})
	require.NoError(t, err)
	// Seeds survive even when reference generation fails.
	assert.Equal(t, []string{"Seeded citation."}, doc.References)
}

func TestGenerate_Cancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	client := &scriptedClient{
		outlineText: threeSectionOutline,
		sectionText: "words words words words",
	}
	cfg := Config{
		PaceBaseDelay:   10 * time.Millisecond,
		MinSectionWords: 3,
		Sleep: func(ctx context.Context, d time.Duration) error {
			cancel() // cancel during the first pacing sleep
			return ctx.Err()
		},
	}
	gen := NewGenerator(client, cfg, outline.DefaultProfiles(), testLogger())

	_, err := gen.Generate(ctx, document.GenerationConfig{Topic: "t"}, "", Hooks{})
	require.ErrorIs(t, err, context.Canceled)
}
