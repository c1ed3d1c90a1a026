package job

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newJob(id string, status Status) *TranslationJob {
	return &TranslationJob{
		ID:         id,
		InputPath:  "/in.txt",
		OutputPath: "/out.txt",
		Format:     "text",
		TargetLang: "de",
		Status:     status,
		CreatedAt:  time.Now(),
	}
}

func TestRegistryPutGet(t *testing.T) {
	r := NewRegistry(nil)
	r.Put(newJob("a", StatusQueued))

	got, ok := r.Get("a")
	require.True(t, ok)
	assert.Equal(t, StatusQueued, got.Status)

	_, ok = r.Get("missing")
	assert.False(t, ok)
}

func TestRegistryGetReturnsSnapshot(t *testing.T) {
	r := NewRegistry(nil)
	j := newJob("a", StatusQueued)
	j.Chunks = []Chunk{{Index: 0, Text: "x"}}
	r.Put(j)

	got, _ := r.Get("a")
	got.Chunks[0].Text = "mutated"

	again, _ := r.Get("a")
	assert.Equal(t, "x", again.Chunks[0].Text)
}

func TestRegistryAcquire(t *testing.T) {
	r := NewRegistry(nil)
	r.Put(newJob("a", StatusQueued))

	j, err := r.Acquire("a")
	require.NoError(t, err)
	assert.Equal(t, StatusRunning, j.Status)

	stored, _ := r.Get("a")
	assert.Equal(t, StatusRunning, stored.Status)
}

func TestRegistryAcquireConflict(t *testing.T) {
	r := NewRegistry(nil)
	r.Put(newJob("a", StatusQueued))
	r.Put(newJob("b", StatusQueued))

	_, err := r.Acquire("a")
	require.NoError(t, err)

	// A second acquire is a conflict, never queued.
	_, err = r.Acquire("b")
	assert.ErrorIs(t, err, ErrJobActive)

	// Even re-acquiring the running job itself is rejected.
	_, err = r.Acquire("a")
	assert.ErrorIs(t, err, ErrJobActive)
}

func TestRegistryAcquireTransitions(t *testing.T) {
	r := NewRegistry(nil)
	r.Put(newJob("paused", StatusPaused))
	r.Put(newJob("interrupted", StatusInterrupted))
	r.Put(newJob("done", StatusCompleted))

	j, err := r.Acquire("paused")
	require.NoError(t, err)
	require.Equal(t, StatusRunning, j.Status)
	require.NoError(t, r.CompareAndSetStatus("paused", StatusRunning, StatusPaused))

	j, err = r.Acquire("interrupted")
	require.NoError(t, err)
	require.Equal(t, StatusRunning, j.Status)
	require.NoError(t, r.CompareAndSetStatus("interrupted", StatusRunning, StatusInterrupted))

	_, err = r.Acquire("done")
	assert.ErrorIs(t, err, ErrBadTransition)

	_, err = r.Acquire("missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRegistryCompareAndSetStatus(t *testing.T) {
	r := NewRegistry(nil)
	r.Put(newJob("a", StatusQueued))

	require.NoError(t, r.CompareAndSetStatus("a", StatusQueued, StatusPaused))
	got, _ := r.Get("a")
	assert.Equal(t, StatusPaused, got.Status)

	err := r.CompareAndSetStatus("a", StatusQueued, StatusRunning)
	assert.ErrorIs(t, err, ErrBadTransition)

	err = r.CompareAndSetStatus("missing", StatusQueued, StatusRunning)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRegistryDelete(t *testing.T) {
	r := NewRegistry(nil)
	r.Put(newJob("a", StatusQueued))
	r.Put(newJob("b", StatusQueued))

	_, err := r.Acquire("a")
	require.NoError(t, err)

	// Running jobs cannot be deleted.
	assert.ErrorIs(t, r.Delete("a"), ErrBadTransition)
	assert.NoError(t, r.Delete("b"))
	assert.ErrorIs(t, r.Delete("b"), ErrNotFound)
}

func TestRegistryListNewestFirst(t *testing.T) {
	r := NewRegistry(nil)
	old := newJob("old", StatusQueued)
	old.CreatedAt = time.Now().Add(-time.Hour)
	r.Put(old)
	r.Put(newJob("new", StatusQueued))

	list := r.List()
	require.Len(t, list, 2)
	assert.Equal(t, "new", list[0].ID)
	assert.Equal(t, "old", list[1].ID)
}

// memStore is an in-memory Store for hydration tests.
type memStore struct {
	jobs map[string]*TranslationJob
}

func (m *memStore) LoadJobs(context.Context) ([]*TranslationJob, error) {
	ret := make([]*TranslationJob, 0, len(m.jobs))
	for _, j := range m.jobs {
		ret = append(ret, j)
	}
	return ret, nil
}

func (m *memStore) UpsertJob(_ context.Context, j *TranslationJob) error {
	m.jobs[j.ID] = j.Clone()
	return nil
}

func (m *memStore) DeleteJob(_ context.Context, id string) error {
	delete(m.jobs, id)
	return nil
}

func TestRegistryHydrateDemotesRunning(t *testing.T) {
	store := &memStore{jobs: map[string]*TranslationJob{
		"crashed": newJob("crashed", StatusRunning),
		"queued":  newJob("queued", StatusQueued),
	}}

	r := NewRegistry(store)

	crashed, ok := r.Get("crashed")
	require.True(t, ok)
	assert.Equal(t, StatusInterrupted, crashed.Status)

	queued, ok := r.Get("queued")
	require.True(t, ok)
	assert.Equal(t, StatusQueued, queued.Status)

	// The demotion is persisted, not just in memory.
	assert.Equal(t, StatusInterrupted, store.jobs["crashed"].Status)
}

func TestRegistryPersistsThroughStore(t *testing.T) {
	store := &memStore{jobs: map[string]*TranslationJob{}}
	r := NewRegistry(store)

	r.Put(newJob("a", StatusQueued))
	assert.Contains(t, store.jobs, "a")

	require.NoError(t, r.Delete("a"))
	assert.NotContains(t, store.jobs, "a")
}
