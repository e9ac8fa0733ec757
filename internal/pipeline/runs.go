package pipeline

import (
	"context"
	"sync"
	"time"

	"paperforge/internal/document"
)

// State is the lifecycle state of a generation run.
type State string

const (
	StateIdle                 State = "idle"
	StateGeneratingTarget     State = "generating_target"
	StateGeneratingOutline    State = "generating_outline"
	StateGeneratingSections   State = "generating_sections"
	StateGeneratingReferences State = "generating_references"
	StateComplete             State = "complete"
	StateFailed               State = "failed"
	StateCancelled            State = "cancelled"
)

// Terminal reports whether the state is final.
func (s State) Terminal() bool {
	return s == StateComplete || s == StateFailed || s == StateCancelled
}

// Run tracks one end-to-end execution of the generation pipeline for a
// single document. The section tree being built is owned exclusively by the
// run's goroutine; readers get snapshots.
type Run struct {
	mu sync.Mutex

	ID         string
	DocumentID string
	OwnerID    string
	Config     document.GenerationConfig

	state    State
	progress document.ProgressState
	reason   string
	doc      *document.Document

	CreatedAt time.Time
	updatedAt time.Time

	cancel context.CancelFunc
	done   chan struct{}
}

func newRun(id, docID, owner string, cfg document.GenerationConfig, cancel context.CancelFunc) *Run {
	now := time.Now()
	return &Run{
		ID:         id,
		DocumentID: docID,
		OwnerID:    owner,
		Config:     cfg,
		state:      StateIdle,
		CreatedAt:  now,
		updatedAt:  now,
		cancel:     cancel,
		done:       make(chan struct{}),
	}
}

// SetState moves the run to a new non-terminal state.
func (r *Run) SetState(s State) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state.Terminal() {
		return
	}
	r.state = s
	r.updatedAt = time.Now()
}

// SetProgress records a progress update. Progress is clamped so it never
// decreases within a run.
func (r *Run) SetProgress(pct int, msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state.Terminal() {
		return
	}
	if pct < r.progress.Progress {
		pct = r.progress.Progress
	}
	if pct > 100 {
		pct = 100
	}
	r.progress = document.ProgressState{Progress: pct, Message: msg}
	r.updatedAt = time.Now()
}

// Complete marks the run successful with its finished document.
func (r *Run) Complete(doc *document.Document) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state.Terminal() {
		return
	}
	r.state = StateComplete
	r.doc = doc
	r.progress = document.ProgressState{Progress: 100, Message: "complete"}
	r.updatedAt = time.Now()
	close(r.done)
}

// Fail marks the run failed. partial, when non-nil, preserves the sections
// generated before the failure so the caller can keep partial output.
func (r *Run) Fail(reason string, partial *document.Document) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state.Terminal() {
		return
	}
	r.state = StateFailed
	r.reason = reason
	r.doc = partial
	r.progress.Message = reason
	r.updatedAt = time.Now()
	close(r.done)
}

// MarkCancelled records caller-initiated abandonment.
func (r *Run) MarkCancelled() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state.Terminal() {
		return
	}
	r.state = StateCancelled
	r.reason = "cancelled"
	r.updatedAt = time.Now()
	close(r.done)
}

// Cancel signals the run's goroutine to stop. State mutation happens in the
// goroutine once it observes the cancellation.
func (r *Run) Cancel() {
	if r.cancel != nil {
		r.cancel()
	}
}

// Done is closed when the run reaches a terminal state.
func (r *Run) Done() <-chan struct{} { return r.done }

// Document returns the run's document: complete on success, partial after
// a GENERATION_ERROR, nil otherwise.
func (r *Run) Document() *document.Document {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.doc
}

// Snapshot is a read-only, JSON-safe copy of run state.
type Snapshot struct {
	ID         string                 `json:"run_id"`
	DocumentID string                 `json:"doc_id"`
	OwnerID    string                 `json:"owner_id,omitempty"`
	State      State                  `json:"state"`
	Progress   document.ProgressState `json:"progress"`
	Reason     string                 `json:"reason,omitempty"`
	CreatedAt  time.Time              `json:"created_at"`
	UpdatedAt  time.Time              `json:"updated_at"`
}

func (r *Run) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return Snapshot{
		ID:         r.ID,
		DocumentID: r.DocumentID,
		OwnerID:    r.OwnerID,
		State:      r.state,
		Progress:   r.progress,
		Reason:     r.reason,
		CreatedAt:  r.CreatedAt,
		UpdatedAt:  r.updatedAt,
	}
}

// RunStore is a thread-safe in-memory run registry with TTL eviction.
// At most one run per document is active at a time; the store tracks the
// latest run per document so a new run can supersede it.
type RunStore struct {
	mu    sync.Mutex
	runs  map[string]*Run
	byDoc map[string]*Run
	ttl   time.Duration
}

func NewRunStore(ttl time.Duration) *RunStore {
	return &RunStore{
		runs:  make(map[string]*Run),
		byDoc: make(map[string]*Run),
		ttl:   ttl,
	}
}

// Put registers a run and returns the run it supersedes for the same
// document, if any.
func (s *RunStore) Put(run *Run) *Run {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev := s.byDoc[run.DocumentID]
	s.runs[run.ID] = run
	s.byDoc[run.DocumentID] = run
	return prev
}

func (s *RunStore) Get(id string) *Run {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runs[id]
}

// ForDocument returns the latest run for a document.
func (s *RunStore) ForDocument(docID string) *Run {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.byDoc[docID]
}

// Cleanup evicts terminal runs older than the TTL.
func (s *RunStore) Cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	for id, run := range s.runs {
		snap := run.Snapshot()
		if snap.State.Terminal() && now.Sub(snap.UpdatedAt) > s.ttl {
			delete(s.runs, id)
			if s.byDoc[run.DocumentID] == run {
				delete(s.byDoc, run.DocumentID)
			}
		}
	}
}
