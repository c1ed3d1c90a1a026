// Package document maps input files onto the translation pipeline: format
// detection by extension and source language auto-detection.
package document

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/abadojack/whatlanggo"
	"golang.org/x/text/language"
)

type Format string

const (
	FormatText Format = "text"
	FormatEPUB Format = "epub"
	FormatSRT  Format = "srt"
)

// DetectFormat resolves the input format from the file extension.
func DetectFormat(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".txt", ".md", ".text":
		return FormatText, nil
	case ".epub":
		return FormatEPUB, nil
	case ".srt":
		return FormatSRT, nil
	default:
		return "", fmt.Errorf("unsupported input format: %s", filepath.Ext(path))
	}
}

// sampleLimit bounds how much text language detection looks at. Detection
// quality plateaus well below this.
const sampleLimit = 4096

// DetectLanguage guesses the source language of text, returning an ISO 639-1
// code or empty when detection is unreliable.
func DetectLanguage(text string) string {
	if len(text) > sampleLimit {
		text = text[:sampleLimit]
	}
	info := whatlanggo.Detect(text)
	if !info.IsReliable() {
		return ""
	}
	code := info.Lang.Iso6391()
	if code == "" {
		return ""
	}
	if _, err := language.Parse(code); err != nil {
		return ""
	}
	return code
}
