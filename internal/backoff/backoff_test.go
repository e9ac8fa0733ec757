package backoff

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestParseRetryHint(t *testing.T) {
	tests := []struct {
		msg  string
		want time.Duration
		ok   bool
	}{
		{"rate limit exceeded, try again in 2m 30s", 2*time.Minute + 30*time.Second, true},
		{"try again in 45s", 45 * time.Second, true},
		{"try again in 0m 5s", 5 * time.Second, true},
		{"try again in 1.5s", 1500 * time.Millisecond, true},
		{"internal server error", 0, false},
		{"", 0, false},
	}
	for _, tt := range tests {
		got, ok := ParseRetryHint(tt.msg)
		if ok != tt.ok || got != tt.want {
			t.Errorf("ParseRetryHint(%q) = (%v, %v), want (%v, %v)", tt.msg, got, ok, tt.want, tt.ok)
		}
	}
}

func TestDelay_Exponential(t *testing.T) {
	initial := time.Second
	max := 6 * time.Minute
	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{0, time.Second},
		{1, 2 * time.Second},
		{2, 4 * time.Second},
		{5, 32 * time.Second},
		{9, 6 * time.Minute}, // 512s capped
	}
	for _, tt := range tests {
		if got := Delay(tt.attempt, initial, max); got != tt.want {
			t.Errorf("Delay(%d) = %v, want %v", tt.attempt, got, tt.want)
		}
	}
}

func TestDo_SucceedsAfterFailures(t *testing.T) {
	calls := 0
	var slept []time.Duration
	result, err := Do(context.Background(), func(context.Context) (string, error) {
		calls++
		if calls < 3 {
			return "", errors.New("transient")
		}
		return "ok", nil
	}, Options{
		InitialDelay: 10 * time.Millisecond,
		Sleep: func(_ context.Context, d time.Duration) error {
			slept = append(slept, d)
			return nil
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != "ok" {
		t.Errorf("expected %q, got %q", "ok", result)
	}
	if calls != 3 {
		t.Errorf("expected 3 attempts, got %d", calls)
	}
	want := []time.Duration{10 * time.Millisecond, 20 * time.Millisecond}
	if len(slept) != len(want) {
		t.Fatalf("expected %d sleeps, got %d", len(want), len(slept))
	}
	for i := range want {
		if slept[i] != want[i] {
			t.Errorf("sleep %d = %v, want %v", i, slept[i], want[i])
		}
	}
}

func TestDo_HonorsRetryHint(t *testing.T) {
	var slept []time.Duration
	calls := 0
	_, err := Do(context.Background(), func(context.Context) (int, error) {
		calls++
		if calls == 1 {
			return 0, fmt.Errorf("rate limit exceeded, try again in 1m 10s")
		}
		return 42, nil
	}, Options{
		Sleep: func(_ context.Context, d time.Duration) error {
			slept = append(slept, d)
			return nil
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := time.Minute + 10*time.Second + DefaultHintBuffer
	if len(slept) != 1 || slept[0] != want {
		t.Errorf("expected one sleep of %v, got %v", want, slept)
	}
}

func TestDo_ExhaustsRetries(t *testing.T) {
	calls := 0
	_, err := Do(context.Background(), func(context.Context) (int, error) {
		calls++
		return 0, errors.New("persistent failure")
	}, Options{
		MaxRetries: 4,
		Sleep:      func(context.Context, time.Duration) error { return nil },
	})
	if err == nil {
		t.Fatal("expected error after exhaustion")
	}
	if err.Error() != "persistent failure" {
		t.Errorf("expected last error, got %v", err)
	}
	if calls != 4 {
		t.Errorf("expected 4 attempts, got %d", calls)
	}
}

func TestDo_CancelledDuringSleep(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	_, err := Do(ctx, func(context.Context) (int, error) {
		return 0, errors.New("fail")
	}, Options{
		Sleep: func(ctx context.Context, _ time.Duration) error {
			cancel()
			return ctx.Err()
		},
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestInitialDelayForBudget_Clamped(t *testing.T) {
	tests := []struct {
		tokens int
		want   time.Duration
	}{
		{0, 2 * time.Second},
		{100, 2 * time.Second},
		{1000, 12 * time.Second},
		{100000, time.Minute},
	}
	for _, tt := range tests {
		if got := InitialDelayForBudget(tt.tokens); got != tt.want {
			t.Errorf("InitialDelayForBudget(%d) = %v, want %v", tt.tokens, got, tt.want)
		}
	}
}

func TestEstimateTokens(t *testing.T) {
	if got := EstimateTokens(""); got != 0 {
		t.Errorf("expected 0 tokens for empty text, got %d", got)
	}
	// 100 words at ~1.33 tokens per word.
	words := make([]byte, 0)
	for i := 0; i < 100; i++ {
		words = append(words, []byte("word ")...)
	}
	if got := EstimateTokens(string(words)); got != 133 {
		t.Errorf("expected 133 tokens for 100 words, got %d", got)
	}
}
