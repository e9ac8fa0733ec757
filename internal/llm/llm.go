// Package llm is the language-model collaborator client. The pipeline only
// depends on the Client interface; the concrete Anthropic implementation is
// injected at startup.
package llm

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Request is one completion call. Model and sampling parameters are per-call
// configuration, not part of the document model.
type Request struct {
	Prompt    string
	System    string
	MaxTokens int
}

// Client produces a text completion for a prompt.
type Client interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// APIError is a non-rate-limit collaborator failure: non-success HTTP status
// or a malformed response body.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("model api error (status %d): %s", e.StatusCode, e.Message)
}

// RateLimitError signals provider throttling. Its message embeds the
// human-readable "try again in Xm Ys" hint that the backoff utility parses,
// so the hint format is part of this type's contract.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	d := e.RetryAfter
	if d <= 0 {
		d = time.Minute
	}
	mins := int(d / time.Minute)
	secs := int(d/time.Second) % 60
	if mins > 0 {
		return fmt.Sprintf("rate limit exceeded, try again in %dm %ds", mins, secs)
	}
	return fmt.Sprintf("rate limit exceeded, try again in %ds", secs)
}

// IsRateLimit reports whether err is a provider throttling signal.
func IsRateLimit(err error) bool {
	var rl *RateLimitError
	return errors.As(err, &rl)
}
