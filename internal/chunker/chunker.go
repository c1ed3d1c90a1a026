// Package chunker splits an ordered text stream into bounded segments along
// safe boundaries. Paragraph boundaries are preferred over sentence
// boundaries and a sentence is never split unless it alone exceeds the
// maximum segment size. It also owns the sliding context window of prior
// translated output used to keep consecutive segments coherent.
package chunker

import (
	"regexp"
	"strings"

	"github.com/kvasir-lab/doctrans/pkg/log"
)

const (
	// DefaultTargetWords is used when a job does not configure a chunk size.
	DefaultTargetWords = 350
	// DefaultMaxWords bounds a chunk when no explicit maximum is configured.
	DefaultMaxWords = 600
	// DefaultMinWords is the floor below which adaptive sizing never shrinks.
	DefaultMinWords = 80
)

var (
	// exam-\nple → example; applied before any boundary decision so a
	// mid-word break can never straddle a chunk boundary
	reHyphenBreak = regexp.MustCompile(`(\p{L})-\r?\n(\p{L})`)

	reParagraph = regexp.MustCompile(`\r?\n\s*\r?\n`)

	// sentence-ending punctuation followed by whitespace or end of text
	reSentenceEnd = regexp.MustCompile(`([.!?。！？]["')\]]?)(\s+|$)`)
)

// Options controls how Split forms segments. Zero values fall back to the
// package defaults.
type Options struct {
	TargetWords int
	MinWords    int
	MaxWords    int
}

func (o Options) withDefaults() Options {
	if o.TargetWords <= 0 {
		o.TargetWords = DefaultTargetWords
	}
	if o.MaxWords <= 0 {
		o.MaxWords = DefaultMaxWords
	}
	if o.MinWords <= 0 {
		o.MinWords = DefaultMinWords
	}
	if o.MaxWords < o.TargetWords {
		o.MaxWords = o.TargetWords
	}
	return o
}

// NormalizeHyphenation joins words broken across line ends with a hyphen.
func NormalizeHyphenation(text string) string {
	return reHyphenBreak.ReplaceAllString(text, "$1$2")
}

// Split cuts text into ordered segments of roughly opts.TargetWords words.
// The result is deterministic for a given (text, opts) pair, which resume
// validation relies on.
func Split(text string, opts Options) []string {
	opts = opts.withDefaults()
	text = NormalizeHyphenation(text)

	var chunks []string
	var current []string
	currentWords := 0

	flush := func() {
		if len(current) > 0 {
			chunks = append(chunks, strings.Join(current, "\n\n"))
			current = nil
			currentWords = 0
		}
	}

	for _, para := range splitParagraphs(text) {
		paraWords := wordCount(para)

		// Whole paragraph fits against the target: preferred split point.
		if currentWords+paraWords <= opts.TargetWords {
			current = append(current, para)
			currentWords += paraWords
			continue
		}
		if currentWords > 0 {
			flush()
		}
		if paraWords <= opts.TargetWords {
			current = append(current, para)
			currentWords = paraWords
			continue
		}

		// Oversized paragraph: fall back to sentence boundaries.
		var sentAcc []string
		sentWords := 0
		for _, sent := range SplitSentences(para) {
			sw := wordCount(sent)
			if sentWords+sw > opts.TargetWords && sentWords > 0 {
				chunks = append(chunks, strings.Join(sentAcc, " "))
				sentAcc = nil
				sentWords = 0
			}
			if sw > opts.MaxWords {
				// A single sentence beyond the hard limit forces a mid-
				// sentence split. Rare enough to be worth a log line.
				log.Warn("sentence of %d words exceeds max chunk size %d, forcing hard split", sw, opts.MaxWords)
				if sentWords > 0 {
					chunks = append(chunks, strings.Join(sentAcc, " "))
					sentAcc = nil
					sentWords = 0
				}
				chunks = append(chunks, hardSplit(sent, opts.MaxWords)...)
				continue
			}
			sentAcc = append(sentAcc, sent)
			sentWords += sw
		}
		if sentWords > 0 {
			chunks = append(chunks, strings.Join(sentAcc, " "))
		}
	}
	flush()

	return chunks
}

// SplitSentences cuts a paragraph at sentence-ending punctuation. The
// trailing punctuation stays with its sentence.
func SplitSentences(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	var sentences []string
	rest := text
	for {
		loc := reSentenceEnd.FindStringSubmatchIndex(rest)
		if loc == nil {
			break
		}
		end := loc[3] // end of punctuation group
		sentence := strings.TrimSpace(rest[:end])
		if sentence != "" {
			sentences = append(sentences, sentence)
		}
		rest = rest[loc[1]:]
		if rest == "" {
			return sentences
		}
	}
	if s := strings.TrimSpace(rest); s != "" {
		sentences = append(sentences, s)
	}
	return sentences
}

func splitParagraphs(text string) []string {
	raw := reParagraph.Split(text, -1)
	paras := make([]string, 0, len(raw))
	for _, p := range raw {
		p = strings.TrimSpace(p)
		if p != "" {
			paras = append(paras, p)
		}
	}
	return paras
}

func hardSplit(sentence string, maxWords int) []string {
	words := strings.Fields(sentence)
	var parts []string
	for len(words) > maxWords {
		parts = append(parts, strings.Join(words[:maxWords], " "))
		words = words[maxWords:]
	}
	if len(words) > 0 {
		parts = append(parts, strings.Join(words, " "))
	}
	return parts
}

func wordCount(text string) int {
	return len(strings.Fields(text))
}
