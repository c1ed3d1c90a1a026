package file

import (
	"path/filepath"
	"strings"
)

// WithLangSuffix inserts a language code before the file extension:
// book.epub + de → book.de.epub. Files without an extension get the code
// appended: notes + de → notes.de.
func WithLangSuffix(path, lang string) string {
	if path == "" || lang == "" {
		return path
	}

	ext := filepath.Ext(path)
	base := strings.TrimSuffix(path, ext)
	return base + "." + lang + ext
}

// HasLangSuffix reports whether the file name already carries the language
// code directly before its extension. Used to keep directory scans from
// re-translating their own output.
func HasLangSuffix(path, lang string) bool {
	if path == "" || lang == "" {
		return false
	}

	ext := filepath.Ext(path)
	base := strings.TrimSuffix(filepath.Base(path), ext)
	return strings.HasSuffix(base, "."+lang)
}
