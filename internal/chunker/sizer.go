package chunker

// tokensPerWord is a coarse estimate good enough for budget headroom math.
const tokensPerWord = 1.4

// promptOverheadTokens reserves room for the system prompt, placeholder
// instructions and the preceding-context block.
const promptOverheadTokens = 900

// Sizer adapts the chunk word target to the model's context window. As the
// rolling average response grows the target shrinks, trading headroom for
// throughput. Recalculation happens once per chunk boundary via Next, never
// mid-chunk, and the result always stays within [min, max].
type Sizer struct {
	target        int
	min           int
	max           int
	contextTokens int

	avgResponseWords float64
	samples          int
}

// NewSizer returns a sizer for the given configured bounds. contextTokens
// may be zero when the active model's window is unknown, in which case Next
// always returns the configured target.
func NewSizer(opts Options, contextTokens int) *Sizer {
	opts = opts.withDefaults()
	return &Sizer{
		target:        opts.TargetWords,
		min:           opts.MinWords,
		max:           opts.MaxWords,
		contextTokens: contextTokens,
	}
}

// Observe feeds the word count of a completed response into the rolling
// average.
func (s *Sizer) Observe(responseWords int) {
	if responseWords <= 0 {
		return
	}
	s.samples++
	s.avgResponseWords += (float64(responseWords) - s.avgResponseWords) / float64(s.samples)
}

// Next returns the word target for the upcoming chunk.
func (s *Sizer) Next() int {
	if s.contextTokens <= 0 || s.samples == 0 {
		return s.target
	}

	responseTokens := s.avgResponseWords * tokensPerWord
	requestBudget := float64(s.contextTokens) - responseTokens - promptOverheadTokens
	words := int(requestBudget / tokensPerWord)

	if words > s.max {
		return s.max
	}
	if words < s.min {
		return s.min
	}
	return words
}
