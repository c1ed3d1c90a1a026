package job

import "time"

type EventKind string

const (
	EventProgress    EventKind = "progress"
	EventWarning     EventKind = "warning"
	EventInterrupted EventKind = "interrupted"
	EventCompleted   EventKind = "completed"
)

// Event is emitted per chunk completion and on job transitions. Consumed by
// an external subscriber (CLI progress line, UI); the orchestrator only
// emits.
type Event struct {
	JobID      string        `json:"job_id"`
	Kind       EventKind     `json:"kind"`
	ChunkIndex int           `json:"chunk_index"`
	Completed  int           `json:"completed"`
	Failed     int           `json:"failed"`
	Total      int           `json:"total"`
	Elapsed    time.Duration `json:"elapsed"`
	Preview    string        `json:"preview,omitempty"`
	Message    string        `json:"message,omitempty"`
}

// previewLen bounds the last-translated-text preview carried in events.
const previewLen = 120

func preview(text string) string {
	runes := []rune(text)
	if len(runes) <= previewLen {
		return text
	}
	return string(runes[:previewLen]) + "..."
}

// emitter delivers events without ever blocking the chunk loop: a slow or
// absent consumer drops events rather than stalling translation.
type emitter struct {
	ch chan<- Event
}

func (e emitter) emit(ev Event) {
	if e.ch == nil {
		return
	}
	select {
	case e.ch <- ev:
	default:
	}
}
