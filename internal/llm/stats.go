package llm

import (
	"sort"
	"sync"
	"time"
)

// Snapshot is a point-in-time aggregate of model-call latencies.
type Snapshot struct {
	Count int     `json:"count"`
	MinMs int64   `json:"min_ms"`
	MaxMs int64   `json:"max_ms"`
	AvgMs float64 `json:"avg_ms"`
	P50Ms int64   `json:"p50_ms"`
	P95Ms int64   `json:"p95_ms"`
	P99Ms int64   `json:"p99_ms"`
}

type sample struct {
	at time.Time
	ms int64
}

// Stats tracks call latencies within a rolling window.
type Stats struct {
	mu      sync.Mutex
	samples []sample
	maxAge  time.Duration
}

func NewStats(maxAge time.Duration) *Stats {
	if maxAge <= 0 {
		maxAge = time.Hour
	}
	return &Stats{maxAge: maxAge}
}

// Record adds one latency sample in milliseconds.
func (s *Stats) Record(ms int64) {
	if ms < 0 {
		ms = 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prune(time.Now())
	s.samples = append(s.samples, sample{at: time.Now(), ms: ms})
}

// Current aggregates the samples still inside the window.
func (s *Stats) Current() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prune(time.Now())
	if len(s.samples) == 0 {
		return Snapshot{}
	}

	values := make([]int64, len(s.samples))
	var sum int64
	for i, sm := range s.samples {
		values[i] = sm.ms
		sum += sm.ms
	}
	sort.Slice(values, func(i, j int) bool { return values[i] < values[j] })

	return Snapshot{
		Count: len(values),
		MinMs: values[0],
		MaxMs: values[len(values)-1],
		AvgMs: float64(sum) / float64(len(values)),
		P50Ms: nearestRank(values, 50),
		P95Ms: nearestRank(values, 95),
		P99Ms: nearestRank(values, 99),
	}
}

func (s *Stats) prune(now time.Time) {
	cutoff := now.Add(-s.maxAge)
	keep := s.samples[:0]
	for _, sm := range s.samples {
		if !sm.at.Before(cutoff) {
			keep = append(keep, sm)
		}
	}
	s.samples = keep
}

// nearestRank returns the pct-th percentile of sorted values using the
// nearest-rank method.
func nearestRank(sorted []int64, pct int) int64 {
	if len(sorted) == 0 {
		return 0
	}
	rank := (pct*len(sorted) + 99) / 100
	if rank < 1 {
		rank = 1
	}
	if rank > len(sorted) {
		rank = len(sorted)
	}
	return sorted[rank-1]
}
