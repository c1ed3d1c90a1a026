package job

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/kvasir-lab/doctrans/internal/chunker"
	"github.com/kvasir-lab/doctrans/pkg/log"
)

// Translator turns one chunk into translated text. Implemented by the chunk
// translator (placeholder codec + provider gateway); the interface lives
// here so the orchestrator stays free of transport concerns.
type Translator interface {
	TranslateChunk(ctx context.Context, j *TranslationJob, c *Chunk, precedingContext string) (Result, error)
}

// Result of a single successful chunk translation.
type Result struct {
	Text        string
	TagMismatch bool
}

// CheckpointStore persists job progress durably after every chunk.
type CheckpointStore interface {
	Save(j *TranslationJob) error
	Delete(jobID string) error
}

// CancelToken is the explicit cooperative interrupt handle. It is polled at
// exactly one point per chunk iteration; an in-flight provider request is
// allowed to finish or time out before the job halts.
type CancelToken struct {
	fired atomic.Bool
}

func (t *CancelToken) Interrupt() {
	t.fired.Store(true)
}

func (t *CancelToken) Interrupted() bool {
	return t.fired.Load()
}

// Orchestrator drives the chunk-sequential translation loop. It is the
// single mutator of job state; chunk i's checkpoint write happens before
// chunk i+1's translation attempt.
type Orchestrator struct {
	registry    *Registry
	checkpoints CheckpointStore
	translator  Translator
	events      emitter
}

func NewOrchestrator(registry *Registry, checkpoints CheckpointStore, translator Translator, events chan<- Event) *Orchestrator {
	return &Orchestrator{
		registry:    registry,
		checkpoints: checkpoints,
		translator:  translator,
		events:      emitter{ch: events},
	}
}

// Run acquires the job and processes its pending chunks in index order.
// Returns ErrJobActive when another job holds the running slot.
func (o *Orchestrator) Run(ctx context.Context, jobID string, cancel *CancelToken) error {
	j, err := o.registry.Acquire(jobID)
	if err != nil {
		return err
	}
	if cancel == nil {
		cancel = &CancelToken{}
	}

	tunables := j.Tunables.WithDefaults()
	started := time.Now()

	// Rebuild the context window from already completed chunks so a resumed
	// job sees the same preceding context an uninterrupted run would.
	tracker := chunker.NewContextTracker(tunables.ContextChunks, tunables.ContextTailWords)
	start := j.LastCompletedIndex() + 1
	for i := 0; i < start; i++ {
		if j.Chunks[i].Status == ChunkTranslated {
			tracker.Push(j.Chunks[i].Translated)
		}
	}

	log.Info("Job %s running: %d/%d chunks done, %d to go", j.ID, start, len(j.Chunks), len(j.Chunks)-start)

	for i := start; i < len(j.Chunks); i++ {
		// The one well-defined interrupt poll point per iteration. No
		// partial chunk is ever marked done.
		if cancel.Interrupted() || ctx.Err() != nil {
			return o.interrupt(j, started)
		}

		chunk := &j.Chunks[i]
		res, err := o.translateWithRetry(ctx, j, chunk, tracker.Context(), tunables)
		if err != nil && ctx.Err() != nil {
			// Cancelled mid-retry, not a provider verdict: the chunk stays
			// pending so a resume retries it with a fresh attempt budget.
			return o.interrupt(j, started)
		}
		if err != nil {
			// Exhausted retries: substitute the original source text so the
			// document never has a hole, warn, and keep going.
			chunk.Status = ChunkFailed
			chunk.Translated = chunk.Text
			log.Warn("Job %s chunk %d failed after %d attempts: %v", j.ID, i, chunk.Attempts, err)
		} else {
			chunk.Status = ChunkTranslated
			chunk.Translated = res.Text
			chunk.TagMismatch = res.TagMismatch
			tracker.Push(res.Text)
		}

		o.registry.Update(j)
		if err := o.checkpoints.Save(j); err != nil {
			// Losing durability is worse than losing one job's progress:
			// stop rather than run hours of work that cannot be resumed.
			j.Status = StatusError
			j.Error = fmt.Sprintf("checkpoint save failed: %v", err)
			o.registry.Update(j)
			return fmt.Errorf("checkpoint save failed: %w", err)
		}

		completed, failed, total := j.Counts()
		kind := EventProgress
		if chunk.Status == ChunkFailed {
			kind = EventWarning
		}
		o.events.emit(Event{
			JobID:      j.ID,
			Kind:       kind,
			ChunkIndex: i,
			Completed:  completed,
			Failed:     failed,
			Total:      total,
			Elapsed:    time.Since(started),
			Preview:    preview(chunk.Translated),
		})
	}

	return o.complete(j, started)
}

func (o *Orchestrator) translateWithRetry(ctx context.Context, j *TranslationJob, chunk *Chunk, precedingContext string, tunables Tunables) (Result, error) {
	var lastErr error

	for attempt := 1; attempt <= tunables.MaxAttempts; attempt++ {
		chunk.Attempts++

		attemptCtx, cancelAttempt := context.WithTimeout(ctx, tunables.Timeout)
		res, err := o.translator.TranslateChunk(attemptCtx, j, chunk, precedingContext)
		cancelAttempt()
		if err == nil {
			return res, nil
		}
		lastErr = err
		log.Warn("Job %s chunk %d attempt %d/%d failed: %v", j.ID, chunk.Index, attempt, tunables.MaxAttempts, err)

		if attempt == tunables.MaxAttempts {
			break
		}
		if err := sleepCtx(ctx, retryDelay(tunables, attempt)); err != nil {
			return Result{}, lastErr
		}
	}

	return Result{}, lastErr
}

// retryDelay computes the wait before the next attempt. Both a fixed and an
// exponential schedule are supported; the mode is configuration.
func retryDelay(tunables Tunables, attempt int) time.Duration {
	if tunables.Backoff != BackoffExponential {
		return tunables.RetryDelay
	}
	delay := tunables.RetryDelay
	for i := 1; i < attempt; i++ {
		delay *= 2
	}
	return delay
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// interrupt persists the checkpoint at the last completed chunk and parks
// the job as interrupted. Not an error: the job is resumable.
func (o *Orchestrator) interrupt(j *TranslationJob, started time.Time) error {
	j.Status = StatusInterrupted
	o.registry.Update(j)
	if err := o.checkpoints.Save(j); err != nil {
		log.Error("Failed to save interrupt checkpoint for job %s: %v", j.ID, err)
	}

	completed, failed, total := j.Counts()
	o.events.emit(Event{
		JobID:     j.ID,
		Kind:      EventInterrupted,
		Completed: completed,
		Failed:    failed,
		Total:     total,
		Elapsed:   time.Since(started),
		Message:   fmt.Sprintf("interrupted at chunk %d of %d", j.LastCompletedIndex()+1, total),
	})
	log.Info("Job %s interrupted with %d/%d chunks complete", j.ID, completed+failed, total)
	return nil
}

// complete finalizes the job. A run with failed chunks still completes, but
// the warning status and the per-chunk summary make that visible.
func (o *Orchestrator) complete(j *TranslationJob, started time.Time) error {
	completed, failed, total := j.Counts()

	j.Status = StatusCompleted
	if failed > 0 {
		j.Status = StatusCompletedWarn
	}
	o.registry.Update(j)

	// Completion cleanup is the only implicit checkpoint deletion.
	if err := o.checkpoints.Delete(j.ID); err != nil {
		log.Error("Failed to delete checkpoint for completed job %s: %v", j.ID, err)
	}

	o.events.emit(Event{
		JobID:     j.ID,
		Kind:      EventCompleted,
		Completed: completed,
		Failed:    failed,
		Total:     total,
		Elapsed:   time.Since(started),
		Message:   fmt.Sprintf("%d translated, %d substituted with original text", completed, failed),
	})
	log.Info("Job %s %s: %d translated, %d failed, %d total", j.ID, j.Status, completed, failed, total)
	return nil
}
