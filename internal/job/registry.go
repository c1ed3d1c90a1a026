package job

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/kvasir-lab/doctrans/pkg/log"
)

var (
	// ErrJobActive is returned when a start or resume request arrives while
	// another job is running. Deliberately a conflict, never queued.
	ErrJobActive = errors.New("another job is already running")

	// ErrNotFound is returned for unknown job IDs.
	ErrNotFound = errors.New("job not found")

	// ErrBadTransition is returned for a status change the state machine
	// does not allow.
	ErrBadTransition = errors.New("invalid status transition")
)

// Store persists registry state across restarts.
type Store interface {
	LoadJobs(ctx context.Context) ([]*TranslationJob, error)
	UpsertJob(ctx context.Context, job *TranslationJob) error
	DeleteJob(ctx context.Context, jobID string) error
}

// Registry maps job id to job state. Single-writer-per-job discipline: the
// orchestrator that acquired a job is the only mutation path while it runs.
type Registry struct {
	mu    sync.RWMutex
	jobs  map[string]*TranslationJob
	store Store
}

// NewRegistry builds a registry, hydrating from store when one is given.
// Jobs found in the running state are demoted to interrupted: a restart
// means the previous process died mid-run and its checkpoint is the truth.
func NewRegistry(store Store) *Registry {
	r := &Registry{
		jobs:  make(map[string]*TranslationJob),
		store: store,
	}
	r.hydrate()
	return r
}

func (r *Registry) hydrate() {
	if r.store == nil {
		return
	}
	loaded, err := r.store.LoadJobs(context.Background())
	if err != nil {
		log.Error("Failed to load jobs from store: %v", err)
		return
	}

	now := time.Now()
	for _, raw := range loaded {
		if raw == nil || raw.ID == "" {
			continue
		}
		j := raw.Clone()
		if j.Status == StatusRunning {
			j.Status = StatusInterrupted
			j.UpdatedAt = now
			r.persist(j)
		}
		r.jobs[j.ID] = j
	}
}

// Put registers a new job. The job enters in the queued state.
func (r *Registry) Put(j *TranslationJob) {
	if j == nil || j.ID == "" {
		return
	}
	snapshot := j.Clone()

	r.mu.Lock()
	r.jobs[j.ID] = snapshot
	r.mu.Unlock()

	r.persist(snapshot)
}

// Get returns a snapshot of the job.
func (r *Registry) Get(id string) (*TranslationJob, bool) {
	r.mu.RLock()
	j, ok := r.jobs[id]
	r.mu.RUnlock()
	if !ok {
		return nil, false
	}
	return j.Clone(), true
}

// List returns snapshots of all jobs, newest first.
func (r *Registry) List() []*TranslationJob {
	r.mu.RLock()
	ret := make([]*TranslationJob, 0, len(r.jobs))
	for _, j := range r.jobs {
		ret = append(ret, j.Clone())
	}
	r.mu.RUnlock()

	sort.Slice(ret, func(i, j int) bool {
		return ret[i].CreatedAt.After(ret[j].CreatedAt)
	})
	return ret
}

// Acquire transitions the job to running, enforcing the single active job
// invariant: if any job in the registry is running the request is rejected
// with ErrJobActive, surfaced to the caller as a conflict.
func (r *Registry) Acquire(id string) (*TranslationJob, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, j := range r.jobs {
		if j.Status == StatusRunning {
			return nil, ErrJobActive
		}
	}

	j, ok := r.jobs[id]
	if !ok {
		return nil, ErrNotFound
	}
	switch j.Status {
	case StatusQueued, StatusPaused, StatusInterrupted:
	default:
		return nil, ErrBadTransition
	}

	j.Status = StatusRunning
	j.UpdatedAt = time.Now()
	snapshot := j.Clone()
	r.persistLocked(snapshot)
	return snapshot, nil
}

// Update replaces the stored job with the given state. Only the owning
// orchestrator calls this.
func (r *Registry) Update(j *TranslationJob) {
	if j == nil {
		return
	}
	snapshot := j.Clone()
	snapshot.UpdatedAt = time.Now()

	r.mu.Lock()
	r.jobs[j.ID] = snapshot
	r.mu.Unlock()

	r.persist(snapshot)
}

// CompareAndSetStatus atomically moves the job from one status to another.
func (r *Registry) CompareAndSetStatus(id string, from, to Status) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	j, ok := r.jobs[id]
	if !ok {
		return ErrNotFound
	}
	if j.Status != from {
		return ErrBadTransition
	}
	j.Status = to
	j.UpdatedAt = time.Now()
	r.persistLocked(j.Clone())
	return nil
}

// Delete removes the job from the registry and the backing store. Running
// jobs cannot be deleted.
func (r *Registry) Delete(id string) error {
	r.mu.Lock()
	j, ok := r.jobs[id]
	if !ok {
		r.mu.Unlock()
		return ErrNotFound
	}
	if j.Status == StatusRunning {
		r.mu.Unlock()
		return ErrBadTransition
	}
	delete(r.jobs, id)
	r.mu.Unlock()

	if r.store != nil {
		if err := r.store.DeleteJob(context.Background(), id); err != nil {
			log.Error("Failed to delete job %s from store: %v", id, err)
		}
	}
	return nil
}

func (r *Registry) persist(j *TranslationJob) {
	if r.store == nil || j == nil {
		return
	}
	if err := r.store.UpsertJob(context.Background(), j); err != nil {
		log.Error("Failed to persist job %s: %v", j.ID, err)
	}
}

// persistLocked is persist for callers already holding r.mu. The store is
// external, so the write itself happens without copying concerns.
func (r *Registry) persistLocked(j *TranslationJob) {
	if r.store == nil || j == nil {
		return
	}
	if err := r.store.UpsertJob(context.Background(), j); err != nil {
		log.Error("Failed to persist job %s: %v", j.ID, err)
	}
}
