// Package checkpoint persists job progress as one JSON snapshot per job,
// written with the temp-file-and-rename pattern so a crash mid-write can
// never corrupt the last good checkpoint.
package checkpoint

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/kvasir-lab/doctrans/internal/job"
)

// ErrNotFound is returned when no checkpoint exists for a job id.
var ErrNotFound = errors.New("checkpoint not found")

const formatVersion = 1

// Checkpoint is the durable snapshot: the full job config plus completed
// chunk results and the last completed index. Chunks are persisted strictly
// in index order, so the snapshot is always consistent.
type Checkpoint struct {
	Version            int                 `json:"version"`
	Job                job.TranslationJob  `json:"job"`
	LastCompletedIndex int                 `json:"last_completed_index"`
	SavedAt            time.Time           `json:"saved_at"`
}

// Store keeps one checkpoint file per job under dir.
type Store struct {
	dir string
}

func NewStore(dir string) (*Store, error) {
	if dir == "" {
		return nil, fmt.Errorf("checkpoint directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create checkpoint directory: %w", err)
	}
	return &Store{dir: dir}, nil
}

func (s *Store) path(jobID string) string {
	return filepath.Join(s.dir, jobID+".checkpoint.json")
}

// Save writes the snapshot to a temp file and atomically renames it over
// the previous checkpoint.
func (s *Store) Save(j *job.TranslationJob) error {
	if j == nil || j.ID == "" {
		return fmt.Errorf("job id is required")
	}

	cp := Checkpoint{
		Version:            formatVersion,
		Job:                *j.Clone(),
		LastCompletedIndex: j.LastCompletedIndex(),
		SavedAt:            time.Now().UTC(),
	}

	payload, err := json.MarshalIndent(cp, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal checkpoint: %w", err)
	}

	tmp, err := os.CreateTemp(s.dir, j.ID+".checkpoint-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp checkpoint: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(payload); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("write checkpoint: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("sync checkpoint: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close checkpoint: %w", err)
	}

	if err := os.Rename(tmpPath, s.path(j.ID)); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename checkpoint: %w", err)
	}
	return nil
}

// Load returns the last durable snapshot for the job, or ErrNotFound.
func (s *Store) Load(jobID string) (*Checkpoint, error) {
	payload, err := os.ReadFile(s.path(jobID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("read checkpoint: %w", err)
	}

	var cp Checkpoint
	if err := json.Unmarshal(payload, &cp); err != nil {
		return nil, fmt.Errorf("parse checkpoint: %w", err)
	}
	if cp.Version != formatVersion {
		return nil, fmt.Errorf("unsupported checkpoint version %d", cp.Version)
	}
	return &cp, nil
}

// Delete removes the checkpoint. Called on completion cleanup or when the
// user explicitly discards a paused job, never implicitly otherwise.
func (s *Store) Delete(jobID string) error {
	err := os.Remove(s.path(jobID))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete checkpoint: %w", err)
	}
	return nil
}

// List returns the job ids that have a stored checkpoint.
func (s *Store) List() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("read checkpoint directory: %w", err)
	}
	var ids []string
	for _, e := range entries {
		name := e.Name()
		const suffix = ".checkpoint.json"
		if !e.IsDir() && len(name) > len(suffix) && name[len(name)-len(suffix):] == suffix {
			ids = append(ids, name[:len(name)-len(suffix)])
		}
	}
	return ids, nil
}
