package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"paperforge/internal/document"
	"paperforge/internal/errcode"
)

// DocumentSaver persists completed documents. Saving is fire-and-forget
// relative to generation: a save failure never fails a run.
type DocumentSaver interface {
	Save(ctx context.Context, doc *document.Document) (string, error)
}

// Orchestrator owns the run registry and the "one run in flight per
// document" contract. Collaborators are injected, never reached through
// globals.
type Orchestrator struct {
	runs  *RunStore
	gen   *Generator
	saver DocumentSaver
	log   *slog.Logger

	baseCtx context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

func NewOrchestrator(gen *Generator, saver DocumentSaver, runTTL time.Duration, log *slog.Logger) *Orchestrator {
	return &Orchestrator{
		runs:  NewRunStore(runTTL),
		gen:   gen,
		saver: saver,
		log:   log,
	}
}

// Start begins background eviction of expired runs.
func (o *Orchestrator) Start(ctx context.Context) {
	o.baseCtx, o.cancel = context.WithCancel(ctx)
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-o.baseCtx.Done():
				return
			case <-ticker.C:
				o.runs.Cleanup()
			}
		}
	}()
}

// Stop cancels all in-flight runs and waits for them to finish.
func (o *Orchestrator) Stop() {
	if o.cancel != nil {
		o.cancel()
	}
	o.wg.Wait()
}

// StartRun validates the request, supersedes any in-flight run for the same
// document, and launches the pipeline in the background.
func (o *Orchestrator) StartRun(cfg document.GenerationConfig, docID, owner string) (*Run, error) {
	if strings.TrimSpace(cfg.Topic) == "" {
		return nil, errcode.New(errcode.Validation, "research topic is required")
	}
	if o.baseCtx == nil {
		return nil, errcode.New(errcode.Configuration, "orchestrator not started")
	}

	if docID == "" {
		docID = uuid.NewString()
	}
	runCtx, cancel := context.WithCancel(o.baseCtx)
	run := newRun(uuid.NewString(), docID, owner, cfg, cancel)

	if prev := o.runs.Put(run); prev != nil && !prev.Snapshot().State.Terminal() {
		o.log.Info("superseding in-flight run", "doc_id", docID, "old_run", prev.ID, "new_run", run.ID)
		prev.Cancel()
	}

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		defer cancel()
		o.execute(runCtx, run, owner)
	}()

	return run, nil
}

func (o *Orchestrator) execute(ctx context.Context, run *Run, owner string) {
	log := o.log.With("run_id", run.ID, "doc_id", run.DocumentID)

	doc, err := o.gen.Generate(ctx, run.Config, owner, Hooks{
		Progress: run.SetProgress,
		State:    run.SetState,
	})
	if err != nil {
		if errors.Is(err, context.Canceled) {
			log.Info("run cancelled")
			run.MarkCancelled()
			return
		}
		var failure *Failure
		if errors.As(err, &failure) {
			log.Error("run failed", "section", failure.SectionTitle, "error", err)
			run.Fail(err.Error(), failure.Partial)
			return
		}
		log.Error("run failed", "error", err)
		run.Fail(err.Error(), nil)
		return
	}

	doc.ID = run.DocumentID
	run.Complete(doc)
	log.Info("run complete", "sections", doc.CountSections(), "references", len(doc.References))

	// Persistence is fire-and-forget: log and move on.
	if o.saver != nil {
		saveCtx, saveCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer saveCancel()
		if _, err := o.saver.Save(saveCtx, doc); err != nil {
			log.Error("document save failed", "code", errcode.Database, "error", err)
		}
	}
}

// GetRun returns a run by ID.
func (o *Orchestrator) GetRun(id string) *Run {
	return o.runs.Get(id)
}

// RunForDocument returns the latest run for a document.
func (o *Orchestrator) RunForDocument(docID string) *Run {
	return o.runs.ForDocument(docID)
}

// CancelRun signals a run to stop. Returns false if the run is unknown.
func (o *Orchestrator) CancelRun(id string) bool {
	run := o.runs.Get(id)
	if run == nil {
		return false
	}
	run.Cancel()
	return true
}
