// Package backoff wraps failing operations with bounded retry and
// exponential backoff. It understands one thing about errors: a textual
// "try again in Xm Ys" hint, which it honors exactly. All other failure
// classification belongs to the caller.
package backoff

import (
	"context"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const (
	// DefaultMaxRetries bounds how many times an operation is re-attempted.
	DefaultMaxRetries = 6
	// DefaultMaxDelay caps a single computed backoff sleep.
	DefaultMaxDelay = 6 * time.Minute
	// DefaultHintBuffer is added on top of an explicit retry-after hint.
	DefaultHintBuffer = 5 * time.Second
)

// Options configures Do. The zero value uses the defaults above with a
// one-second initial delay.
type Options struct {
	MaxRetries   int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	HintBuffer   time.Duration

	// Sleep is a test seam; nil means a context-aware time.Sleep.
	Sleep func(ctx context.Context, d time.Duration) error
}

func (o Options) withDefaults() Options {
	if o.MaxRetries <= 0 {
		o.MaxRetries = DefaultMaxRetries
	}
	if o.InitialDelay <= 0 {
		o.InitialDelay = time.Second
	}
	if o.MaxDelay <= 0 {
		o.MaxDelay = DefaultMaxDelay
	}
	if o.HintBuffer <= 0 {
		o.HintBuffer = DefaultHintBuffer
	}
	if o.Sleep == nil {
		o.Sleep = SleepContext
	}
	return o
}

// Do runs op, retrying on failure until it succeeds or MaxRetries attempts
// have been made. If the error text carries a "try again in Xm Ys" hint the
// sleep is that exact duration plus HintBuffer; otherwise it is
// InitialDelay * 2^attempt capped at MaxDelay. The last error is returned
// after exhaustion.
func Do[T any](ctx context.Context, op func(context.Context) (T, error), opts Options) (T, error) {
	opts = opts.withDefaults()

	var zero T
	var lastErr error
	for attempt := 0; attempt < opts.MaxRetries; attempt++ {
		result, err := op(ctx)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if attempt == opts.MaxRetries-1 {
			break
		}

		delay := Delay(attempt, opts.InitialDelay, opts.MaxDelay)
		if hint, ok := ParseRetryHint(err.Error()); ok {
			delay = hint + opts.HintBuffer
		}
		if err := opts.Sleep(ctx, delay); err != nil {
			return zero, err
		}
	}
	return zero, lastErr
}

// Delay computes the exponential backoff for a 0-indexed attempt.
func Delay(attempt int, initial, max time.Duration) time.Duration {
	d := initial << uint(attempt)
	if d > max || d <= 0 {
		d = max
	}
	return d
}

// retryHint matches provider throttling messages like
// "try again in 2m 30s" or "try again in 45.5s".
var retryHint = regexp.MustCompile(`try again in (?:(\d+)m\s*)?(\d+(?:\.\d+)?)s`)

// ParseRetryHint extracts an explicit retry-after duration from an error
// message, if one is embedded.
func ParseRetryHint(msg string) (time.Duration, bool) {
	m := retryHint.FindStringSubmatch(msg)
	if m == nil {
		return 0, false
	}
	var d time.Duration
	if m[1] != "" {
		mins, _ := strconv.Atoi(m[1])
		d += time.Duration(mins) * time.Minute
	}
	secs, err := strconv.ParseFloat(m[2], 64)
	if err != nil {
		return 0, false
	}
	d += time.Duration(secs * float64(time.Second))
	return d, true
}

// SleepContext sleeps for d or until ctx is cancelled.
func SleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// EstimateTokens gives a rough token count for a prompt using the
// ~1.33 tokens-per-word heuristic. Exact tokenization is not required;
// the estimate only seeds the initial backoff delay.
func EstimateTokens(text string) int {
	if text == "" {
		return 0
	}
	tokens := int(float64(len(strings.Fields(text))) * 1.33)
	if tokens < 1 {
		tokens = 1
	}
	return tokens
}

// InitialDelayForBudget derives a starting backoff delay from an estimated
// token budget: bigger requests consume more of the provider's rate budget
// and start with a longer first wait. Clamped to [2s, 60s].
func InitialDelayForBudget(tokens int) time.Duration {
	d := time.Duration(tokens) * 12 * time.Millisecond
	if d < 2*time.Second {
		d = 2 * time.Second
	}
	if d > time.Minute {
		d = time.Minute
	}
	return d
}
