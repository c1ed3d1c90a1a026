package chunker

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeHyphenation(t *testing.T) {
	assert.Equal(t, "example text", NormalizeHyphenation("exam-\nple text"))
	assert.Equal(t, "example", NormalizeHyphenation("exam-\r\nple"))
	// a hyphen not followed by a line break is untouched
	assert.Equal(t, "well-known", NormalizeHyphenation("well-known"))
	// a dangling hyphen before punctuation is untouched
	assert.Equal(t, "ranges 1-\n2", NormalizeHyphenation("ranges 1-\n2"))
}

func TestSplit_PrefersParagraphBoundaries(t *testing.T) {
	paraA := strings.Repeat("alpha beta gamma delta epsilon. ", 10) // 50 words
	paraB := strings.Repeat("one two three four five. ", 10)        // 50 words
	text := strings.TrimSpace(paraA) + "\n\n" + strings.TrimSpace(paraB)

	chunks := Split(text, Options{TargetWords: 60, MaxWords: 120})

	require.Len(t, chunks, 2)
	assert.Contains(t, chunks[0], "alpha")
	assert.Contains(t, chunks[1], "one")
}

func TestSplit_NeverCutsInsideSentence(t *testing.T) {
	var sentences []string
	for i := 0; i < 30; i++ {
		sentences = append(sentences, "The quick brown fox jumps over the lazy dog near the river bank today.")
	}
	text := strings.Join(sentences, " ")

	chunks := Split(text, Options{TargetWords: 40, MaxWords: 100})
	require.Greater(t, len(chunks), 1)

	for _, chunk := range chunks {
		trimmed := strings.TrimSpace(chunk)
		assert.True(t, strings.HasSuffix(trimmed, "."), "chunk must end on a sentence boundary: %q", trimmed)
	}
}

func TestSplit_HardSplitsOversizedSentence(t *testing.T) {
	// one 150-word "sentence" with no terminal punctuation until the end
	sentence := strings.Repeat("word ", 149) + "end."

	chunks := Split(sentence, Options{TargetWords: 40, MaxWords: 50})

	require.Greater(t, len(chunks), 1)
	total := 0
	for _, c := range chunks {
		words := len(strings.Fields(c))
		assert.LessOrEqual(t, words, 50)
		total += words
	}
	assert.Equal(t, 150, total)
}

func TestSplit_Deterministic(t *testing.T) {
	text := strings.Repeat("Some sentence here. Another follows it. ", 40)
	opts := Options{TargetWords: 30, MaxWords: 60}

	first := Split(text, opts)
	second := Split(text, opts)
	assert.Equal(t, first, second)
}

func TestSplitSentences(t *testing.T) {
	got := SplitSentences("First one. Second one! Third? And a trailing fragment")
	require.Len(t, got, 4)
	assert.Equal(t, "First one.", got[0])
	assert.Equal(t, "Second one!", got[1])
	assert.Equal(t, "Third?", got[2])
	assert.Equal(t, "And a trailing fragment", got[3])
}

func TestContextTracker_RetainsLastK(t *testing.T) {
	tr := NewContextTracker(2, 3)

	tr.Push("one two three four")
	tr.Push("five six seven eight")
	tr.Push("nine ten eleven twelve")

	ctx := tr.Context()
	assert.NotContains(t, ctx, "two", "oldest entry must be evicted")
	assert.Contains(t, ctx, "six seven eight")
	assert.Contains(t, ctx, "ten eleven twelve")
}

func TestContextTracker_IgnoresEmptyPush(t *testing.T) {
	tr := NewContextTracker(3, 5)
	tr.Push("   ")
	assert.Empty(t, tr.Context())
}

func TestSizer_ShrinksWithinBounds(t *testing.T) {
	opts := Options{TargetWords: 400, MinWords: 100, MaxWords: 500}
	s := NewSizer(opts, 4096)

	// no samples yet: configured target
	assert.Equal(t, 400, s.Next())

	// huge responses shrink the target but never below min
	for i := 0; i < 5; i++ {
		s.Observe(5000)
	}
	got := s.Next()
	assert.GreaterOrEqual(t, got, 100)
	assert.Less(t, got, 400)
}

func TestSizer_UnknownContextWindowKeepsTarget(t *testing.T) {
	s := NewSizer(Options{TargetWords: 250}, 0)
	s.Observe(10000)
	assert.Equal(t, 250, s.Next())
}
