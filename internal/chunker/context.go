package chunker

import "strings"

// DefaultTailWords is how many trailing words of a translated chunk are
// retained as context for the next one.
const DefaultTailWords = 40

// ContextTracker keeps the tail text of the last k confirmed translations.
// It is read-only reference material for the prompt: entries are pushed only
// after a chunk is confirmed translated, so a failing chunk cannot poison
// the context for its own retries.
type ContextTracker struct {
	k         int
	tailWords int
	entries   []string
}

func NewContextTracker(k, tailWords int) *ContextTracker {
	if k <= 0 {
		k = 2
	}
	if tailWords <= 0 {
		tailWords = DefaultTailWords
	}
	return &ContextTracker{k: k, tailWords: tailWords}
}

// Push records the tail of a confirmed translation, evicting the oldest
// entry beyond k.
func (t *ContextTracker) Push(translated string) {
	tail := lastWords(translated, t.tailWords)
	if tail == "" {
		return
	}
	t.entries = append(t.entries, tail)
	if len(t.entries) > t.k {
		t.entries = t.entries[len(t.entries)-t.k:]
	}
}

// Context returns the retained tails oldest-first, joined for prompt use.
func (t *ContextTracker) Context() string {
	return strings.Join(t.entries, "\n")
}

func (t *ContextTracker) Reset() {
	t.entries = nil
}

func lastWords(text string, n int) string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return ""
	}
	if len(words) <= n {
		return strings.Join(words, " ")
	}
	return strings.Join(words[len(words)-n:], " ")
}
