// Package job owns the translation job model and the orchestrator state
// machine that drives it. A job's state is mutated only through the
// orchestrator; everything else observes snapshots.
package job

import (
	"time"
)

type Status string

const (
	StatusQueued      Status = "queued"
	StatusRunning     Status = "running"
	StatusPaused      Status = "paused"
	StatusCompleted   Status = "completed"
	StatusError       Status = "error"
	StatusInterrupted Status = "interrupted"

	// StatusCompletedWarn marks a job that finished with at least one chunk
	// falling back to its original text. Never silently reported as plain
	// completed.
	StatusCompletedWarn Status = "completed_with_warnings"
)

// Terminal reports whether no further transition is possible without an
// explicit user action.
func (s Status) Terminal() bool {
	switch s {
	case StatusCompleted, StatusCompletedWarn, StatusError:
		return true
	}
	return false
}

type ChunkStatus string

const (
	ChunkPending    ChunkStatus = "pending"
	ChunkTranslated ChunkStatus = "translated"
	ChunkFailed     ChunkStatus = "failed"
)

// Chunk is one ordered, independently translated segment. Index defines
// output order and is immutable once the chunker has produced the list.
type Chunk struct {
	Index        int               `json:"index"`
	Text         string            `json:"text"`
	Placeholders map[string]string `json:"placeholders,omitempty"`
	Translated   string            `json:"translated,omitempty"`
	Status       ChunkStatus       `json:"status"`
	Attempts     int               `json:"attempts"`
	TagMismatch  bool              `json:"tag_mismatch,omitempty"`
}

// Done reports whether the chunk has a final output, translated or
// substituted.
func (c Chunk) Done() bool {
	return c.Status == ChunkTranslated || c.Status == ChunkFailed
}

type BackoffMode string

const (
	BackoffFixed       BackoffMode = "fixed"
	BackoffExponential BackoffMode = "exponential"
)

// Tunables are the per-job knobs of the chunk loop.
type Tunables struct {
	ChunkSize    int `json:"chunk_size"`     // target words per chunk
	MinChunkSize int `json:"min_chunk_size"` // adaptive sizing floor
	MaxChunkSize int `json:"max_chunk_size"` // adaptive sizing ceiling

	Timeout     time.Duration `json:"timeout"`      // per translation attempt
	MaxAttempts int           `json:"max_attempts"` // tries per chunk
	RetryDelay  time.Duration `json:"retry_delay"`
	Backoff     BackoffMode   `json:"backoff"`

	ContextChunks    int `json:"context_chunks"`     // k prior chunks kept as context
	ContextTailWords int `json:"context_tail_words"` // tail words retained per chunk

	// ModelContextTokens enables adaptive chunk sizing when > 0.
	ModelContextTokens int `json:"model_context_tokens"`
}

func (t Tunables) WithDefaults() Tunables {
	if t.ChunkSize <= 0 {
		t.ChunkSize = 350
	}
	if t.MaxChunkSize <= 0 {
		t.MaxChunkSize = 600
	}
	if t.MinChunkSize <= 0 {
		t.MinChunkSize = 80
	}
	if t.Timeout <= 0 {
		t.Timeout = 120 * time.Second
	}
	if t.MaxAttempts <= 0 {
		t.MaxAttempts = 3
	}
	if t.RetryDelay <= 0 {
		t.RetryDelay = 5 * time.Second
	}
	if t.Backoff == "" {
		t.Backoff = BackoffFixed
	}
	if t.ContextChunks <= 0 {
		t.ContextChunks = 2
	}
	return t
}

// TranslationJob is the unit of work. Chunks are completed and persisted
// strictly in index order.
type TranslationJob struct {
	ID         string `json:"id"`
	InputPath  string `json:"input_path"`
	OutputPath string `json:"output_path"`
	Format     string `json:"format"` // text | epub | srt

	SourceLang string `json:"source_lang"`
	TargetLang string `json:"target_lang"`

	Provider string `json:"provider"`
	Model    string `json:"model"`

	Tunables Tunables `json:"tunables"`

	Status Status  `json:"status"`
	Chunks []Chunk `json:"chunks"`
	Error  string  `json:"error,omitempty"`

	// SourceHash fingerprints the extracted source text so a resume can
	// verify the same chunk boundaries would be produced again.
	SourceHash string `json:"source_hash"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// LastCompletedIndex returns the highest index i such that chunks 0..i are
// all done, or -1 when none are.
func (j *TranslationJob) LastCompletedIndex() int {
	last := -1
	for _, c := range j.Chunks {
		if !c.Done() {
			break
		}
		last = c.Index
	}
	return last
}

// Counts returns completed (translated), failed and total chunk numbers.
func (j *TranslationJob) Counts() (completed, failed, total int) {
	for _, c := range j.Chunks {
		switch c.Status {
		case ChunkTranslated:
			completed++
		case ChunkFailed:
			failed++
		}
	}
	return completed, failed, len(j.Chunks)
}

// Clone returns a deep copy safe to hand out of the registry.
func (j *TranslationJob) Clone() *TranslationJob {
	if j == nil {
		return nil
	}
	cp := *j
	cp.Chunks = make([]Chunk, len(j.Chunks))
	copy(cp.Chunks, j.Chunks)
	for i := range cp.Chunks {
		if j.Chunks[i].Placeholders != nil {
			m := make(map[string]string, len(j.Chunks[i].Placeholders))
			for k, v := range j.Chunks[i].Placeholders {
				m[k] = v
			}
			cp.Chunks[i].Placeholders = m
		}
	}
	return &cp
}
