package file

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindRecentAfter(t *testing.T) {
	dir := t.TempDir()
	old := filepath.Join(dir, "old.srt")
	fresh := filepath.Join(dir, "sub", "fresh.epub")
	other := filepath.Join(dir, "fresh.log")

	require.NoError(t, os.MkdirAll(filepath.Dir(fresh), 0o755))
	for _, p := range []string{old, fresh, other} {
		require.NoError(t, os.WriteFile(p, []byte("x"), 0o644))
	}
	cutoff := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(old, cutoff.Add(-time.Hour), cutoff.Add(-time.Hour)))

	got, err := FindRecentAfter(dir, cutoff, ".epub", ".srt")
	require.NoError(t, err)
	assert.Equal(t, []string{fresh}, got)

	all, err := FindRecentAfter(dir, cutoff)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{fresh, other}, all)
}

func TestWithLangSuffix(t *testing.T) {
	assert.Equal(t, "/books/novel.de.epub", WithLangSuffix("/books/novel.epub", "de"))
	assert.Equal(t, "notes.fr.txt", WithLangSuffix("notes.txt", "fr"))
	assert.Equal(t, "noext.de", WithLangSuffix("noext", "de"))
	assert.Equal(t, "x.epub", WithLangSuffix("x.epub", ""))
}

func TestHasLangSuffix(t *testing.T) {
	assert.True(t, HasLangSuffix("/books/novel.de.epub", "de"))
	assert.False(t, HasLangSuffix("/books/novel.epub", "de"))
	assert.False(t, HasLangSuffix("/books/novel.de.epub", "fr"))
	assert.False(t, HasLangSuffix("", "de"))
}
