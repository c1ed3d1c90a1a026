package job

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTranslator struct {
	fn func(c *Chunk) (Result, error)
}

func (f *fakeTranslator) TranslateChunk(_ context.Context, _ *TranslationJob, c *Chunk, _ string) (Result, error) {
	return f.fn(c)
}

type memCheckpoints struct {
	saves   int
	deletes int
	failing bool
	last    *TranslationJob
}

func (m *memCheckpoints) Save(j *TranslationJob) error {
	if m.failing {
		return errors.New("disk full")
	}
	m.saves++
	m.last = j.Clone()
	return nil
}

func (m *memCheckpoints) Delete(string) error {
	m.deletes++
	return nil
}

func runnableJob(chunks int) *TranslationJob {
	j := newJob("job-1", StatusQueued)
	j.Tunables = Tunables{
		Timeout:     time.Second,
		MaxAttempts: 2,
		RetryDelay:  time.Millisecond,
	}.WithDefaults()
	for i := 0; i < chunks; i++ {
		j.Chunks = append(j.Chunks, Chunk{Index: i, Text: "chunk", Status: ChunkPending})
	}
	return j
}

func TestRunHappyPath(t *testing.T) {
	r := NewRegistry(nil)
	r.Put(runnableJob(3))
	cps := &memCheckpoints{}
	events := make(chan Event, 16)

	o := NewOrchestrator(r, cps, &fakeTranslator{fn: func(c *Chunk) (Result, error) {
		return Result{Text: "t-" + c.Text}, nil
	}}, events)

	require.NoError(t, o.Run(context.Background(), "job-1", nil))

	j, _ := r.Get("job-1")
	assert.Equal(t, StatusCompleted, j.Status)
	for _, c := range j.Chunks {
		assert.Equal(t, ChunkTranslated, c.Status)
		assert.Equal(t, "t-chunk", c.Translated)
	}

	// One checkpoint per chunk, deleted on completion cleanup.
	assert.Equal(t, 3, cps.saves)
	assert.Equal(t, 1, cps.deletes)

	close(events)
	var kinds []EventKind
	for ev := range events {
		kinds = append(kinds, ev.Kind)
	}
	assert.Equal(t, []EventKind{EventProgress, EventProgress, EventProgress, EventCompleted}, kinds)
}

func TestRunRetriesThenSubstitutes(t *testing.T) {
	r := NewRegistry(nil)
	r.Put(runnableJob(2))
	cps := &memCheckpoints{}
	events := make(chan Event, 16)

	attempts := 0
	o := NewOrchestrator(r, cps, &fakeTranslator{fn: func(c *Chunk) (Result, error) {
		if c.Index == 0 {
			attempts++
			return Result{}, errors.New("transient")
		}
		return Result{Text: "ok"}, nil
	}}, events)

	require.NoError(t, o.Run(context.Background(), "job-1", nil))

	assert.Equal(t, 2, attempts, "max_attempts tries before giving up")

	j, _ := r.Get("job-1")
	assert.Equal(t, StatusCompletedWarn, j.Status)
	assert.Equal(t, ChunkFailed, j.Chunks[0].Status)
	assert.Equal(t, "chunk", j.Chunks[0].Translated, "original text substituted")
	assert.Equal(t, ChunkTranslated, j.Chunks[1].Status)

	close(events)
	var kinds []EventKind
	for ev := range events {
		kinds = append(kinds, ev.Kind)
	}
	assert.Equal(t, []EventKind{EventWarning, EventProgress, EventCompleted}, kinds)
}

func TestRunCheckpointFailureAborts(t *testing.T) {
	r := NewRegistry(nil)
	r.Put(runnableJob(3))
	cps := &memCheckpoints{failing: true}

	o := NewOrchestrator(r, cps, &fakeTranslator{fn: func(c *Chunk) (Result, error) {
		return Result{Text: "ok"}, nil
	}}, nil)

	err := o.Run(context.Background(), "job-1", nil)
	require.Error(t, err)

	j, _ := r.Get("job-1")
	assert.Equal(t, StatusError, j.Status)
	assert.Contains(t, j.Error, "checkpoint save failed")
}

func TestRunInterruptBeforeFirstChunk(t *testing.T) {
	r := NewRegistry(nil)
	r.Put(runnableJob(3))
	cps := &memCheckpoints{}

	cancel := &CancelToken{}
	cancel.Interrupt()

	o := NewOrchestrator(r, cps, &fakeTranslator{fn: func(c *Chunk) (Result, error) {
		t.Fatal("no chunk may be translated after an interrupt")
		return Result{}, nil
	}}, nil)

	require.NoError(t, o.Run(context.Background(), "job-1", cancel))

	j, _ := r.Get("job-1")
	assert.Equal(t, StatusInterrupted, j.Status)
	assert.Equal(t, -1, j.LastCompletedIndex())
	assert.Equal(t, 1, cps.saves, "interrupt persists a checkpoint")
}

func TestRunResumesAfterLastCompleted(t *testing.T) {
	r := NewRegistry(nil)
	j := runnableJob(4)
	j.Status = StatusInterrupted
	j.Chunks[0].Status = ChunkTranslated
	j.Chunks[0].Translated = "done-0"
	j.Chunks[1].Status = ChunkTranslated
	j.Chunks[1].Translated = "done-1"
	r.Put(j)

	var translated []int
	o := NewOrchestrator(r, &memCheckpoints{}, &fakeTranslator{fn: func(c *Chunk) (Result, error) {
		translated = append(translated, c.Index)
		return Result{Text: "ok"}, nil
	}}, nil)

	require.NoError(t, o.Run(context.Background(), "job-1", nil))

	assert.Equal(t, []int{2, 3}, translated, "completed chunks are not retranslated")

	got, _ := r.Get("job-1")
	assert.Equal(t, StatusCompleted, got.Status)
	assert.Equal(t, "done-0", got.Chunks[0].Translated)
}

func TestRunContextCancelInterrupts(t *testing.T) {
	r := NewRegistry(nil)
	r.Put(runnableJob(3))
	cps := &memCheckpoints{}

	ctx, cancelCtx := context.WithCancel(context.Background())
	cancelCtx()

	o := NewOrchestrator(r, cps, &fakeTranslator{fn: func(c *Chunk) (Result, error) {
		return Result{Text: "ok"}, nil
	}}, nil)

	require.NoError(t, o.Run(ctx, "job-1", nil))

	j, _ := r.Get("job-1")
	assert.Equal(t, StatusInterrupted, j.Status)
}

func TestRunCancelDuringRetryLeavesChunkPending(t *testing.T) {
	r := NewRegistry(nil)
	j := runnableJob(1)
	j.Tunables.MaxAttempts = 3
	j.Tunables.RetryDelay = 10 * time.Second
	r.Put(j)
	cps := &memCheckpoints{}

	// The first attempt fails and cancels the run, so the retry sleep is cut
	// short with attempts left in the budget.
	ctx, cancelCtx := context.WithCancel(context.Background())
	o := NewOrchestrator(r, cps, &fakeTranslator{fn: func(c *Chunk) (Result, error) {
		cancelCtx()
		return Result{}, errors.New("provider unavailable")
	}}, nil)

	require.NoError(t, o.Run(ctx, "job-1", nil))

	got, _ := r.Get("job-1")
	assert.Equal(t, StatusInterrupted, got.Status)
	assert.Equal(t, ChunkPending, got.Chunks[0].Status)
	assert.Empty(t, got.Chunks[0].Translated)

	// The interrupt checkpoint carries the pending chunk, not a substituted
	// failure.
	require.NotNil(t, cps.last)
	assert.Equal(t, ChunkPending, cps.last.Chunks[0].Status)
}

func TestRetryDelay(t *testing.T) {
	fixed := Tunables{RetryDelay: 2 * time.Second, Backoff: BackoffFixed}
	assert.Equal(t, 2*time.Second, retryDelay(fixed, 1))
	assert.Equal(t, 2*time.Second, retryDelay(fixed, 3))

	exp := Tunables{RetryDelay: 2 * time.Second, Backoff: BackoffExponential}
	assert.Equal(t, 2*time.Second, retryDelay(exp, 1))
	assert.Equal(t, 4*time.Second, retryDelay(exp, 2))
	assert.Equal(t, 8*time.Second, retryDelay(exp, 3))
}

func TestTagMismatchDoesNotFailChunk(t *testing.T) {
	r := NewRegistry(nil)
	r.Put(runnableJob(1))

	o := NewOrchestrator(r, &memCheckpoints{}, &fakeTranslator{fn: func(c *Chunk) (Result, error) {
		return Result{Text: "ok", TagMismatch: true}, nil
	}}, nil)

	require.NoError(t, o.Run(context.Background(), "job-1", nil))

	j, _ := r.Get("job-1")
	assert.Equal(t, StatusCompleted, j.Status)
	assert.Equal(t, ChunkTranslated, j.Chunks[0].Status)
	assert.True(t, j.Chunks[0].TagMismatch)
}
