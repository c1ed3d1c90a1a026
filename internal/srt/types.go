// Package srt parses SubRip subtitle files into ordered blocks, groups
// block text for translation and writes the result back with index and
// timing fields byte-identical to the input.
package srt

import (
	"time"

	"golang.org/x/text/language"
)

// Block is one subtitle entry. TimeRaw keeps the exact timing line as it
// appeared in the input; it is re-emitted verbatim so timing survives the
// round trip untouched. A block is the minimum translatable unit.
type Block struct {
	Index      int           `json:"index"`
	TimeRaw    string        `json:"time_raw"`
	StartTime  time.Duration `json:"start_time"`
	EndTime    time.Duration `json:"end_time"`
	Text       string        `json:"text"`
	Translated string        `json:"translated,omitempty"`
}

// File is a parsed subtitle file.
type File struct {
	Blocks   []Block
	Language language.Tag
}
