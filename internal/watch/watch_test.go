package watch

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kvasir-lab/doctrans/internal/checkpoint"
	"github.com/kvasir-lab/doctrans/internal/config"
	"github.com/kvasir-lab/doctrans/internal/job"
	"github.com/kvasir-lab/doctrans/internal/service"
)

type echoTranslator struct {
	calls int
}

func (e *echoTranslator) TranslateChunk(_ context.Context, _ *job.TranslationJob, c *job.Chunk, _ string) (job.Result, error) {
	e.calls++
	return job.Result{Text: "DE: " + c.Text}, nil
}

func testScanner(t *testing.T, watchDir string) (*Scanner, *job.Registry) {
	t.Helper()

	cfg := config.Config{
		LLM: config.LLMConfig{Provider: "openrouter", Model: "stub-model"},
		Translate: config.TranslateConfig{
			TargetLanguage: "de",
			Tunables:       job.Tunables{}.WithDefaults(),
		},
		Storage: config.StorageConfig{DataDir: t.TempDir()},
		Watch: config.WatchConfig{
			Dir:       watchDir,
			CronExpr:  "*/10 * * * *",
			OutputDir: watchDir,
		},
	}

	store, err := checkpoint.NewStore(cfg.Storage.CheckpointDir())
	require.NoError(t, err)
	registry := job.NewRegistry(nil)
	pipeline := service.NewPipeline(&cfg, registry, store, &echoTranslator{}, nil)

	return NewScanner(cfg, pipeline, nil), registry
}

func writeDoc(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("One short paragraph to translate.\n"), 0o644))
	return path
}

func TestScanTranslatesNewFiles(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	input := writeDoc(t, dir, "story.txt")
	s, registry := testScanner(t, dir)

	require.NoError(t, s.Scan(context.Background()))

	out, err := os.ReadFile(filepath.Join(dir, "story.de.txt"))
	require.NoError(t, err)
	assert.Contains(t, string(out), "DE: One short paragraph to translate.")

	jobs := registry.List()
	require.Len(t, jobs, 1)
	assert.Equal(t, input, jobs[0].InputPath)
	assert.Equal(t, job.StatusCompleted, jobs[0].Status)
}

func TestScanSkipsOldFiles(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	old := writeDoc(t, dir, "old.txt")
	past := time.Now().Add(-2 * time.Hour)
	require.NoError(t, os.Chtimes(old, past, past))

	s, registry := testScanner(t, dir)
	s.lastScan = time.Now().Add(-time.Hour)

	require.NoError(t, s.Scan(context.Background()))
	assert.Empty(t, registry.List())
}

func TestScanSkipsOwnOutput(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeDoc(t, dir, "story.de.txt")
	s, registry := testScanner(t, dir)

	require.NoError(t, s.Scan(context.Background()))
	assert.Empty(t, registry.List())
	_, err := os.Stat(filepath.Join(dir, "story.de.de.txt"))
	assert.True(t, os.IsNotExist(err))
}

func TestScanSkipsAlreadyTranslated(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeDoc(t, dir, "story.txt")
	writeDoc(t, dir, "story.de.txt")
	s, registry := testScanner(t, dir)

	require.NoError(t, s.Scan(context.Background()))
	assert.Empty(t, registry.List())
}

func TestScanIgnoresUnsupportedExtensions(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "movie.mkv"), []byte("not a document"), 0o644))
	s, registry := testScanner(t, dir)

	require.NoError(t, s.Scan(context.Background()))
	assert.Empty(t, registry.List())
}

func TestScanDefersWhileJobActive(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeDoc(t, dir, "story.txt")
	s, registry := testScanner(t, dir)

	blocker := &job.TranslationJob{
		ID:        "blocker",
		Status:    job.StatusQueued,
		Chunks:    []job.Chunk{{Index: 0, Text: "x", Status: job.ChunkPending}},
		CreatedAt: time.Now().UTC(),
	}
	registry.Put(blocker)
	_, err := registry.Acquire(blocker.ID)
	require.NoError(t, err)

	windowStart := s.lastScan
	require.NoError(t, s.Scan(context.Background()))

	// The window did not advance and the rejected job was dropped, so the
	// file is retried on the next tick.
	assert.Equal(t, windowStart, s.lastScan)
	jobs := registry.List()
	require.Len(t, jobs, 1)
	assert.Equal(t, "blocker", jobs[0].ID)
}

func TestScanRoutesToOutputDir(t *testing.T) {
	t.Parallel()

	watchDir := t.TempDir()
	outDir := t.TempDir()
	writeDoc(t, watchDir, "story.txt")

	s, _ := testScanner(t, watchDir)
	s.cfg.Watch.OutputDir = outDir

	require.NoError(t, s.Scan(context.Background()))

	_, err := os.Stat(filepath.Join(outDir, "story.de.txt"))
	require.NoError(t, err)
}

func TestScanAdvancesWindow(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeDoc(t, dir, "first.txt")
	s, registry := testScanner(t, dir)

	require.NoError(t, s.Scan(context.Background()))
	require.Len(t, registry.List(), 1)

	// Nothing new: the second scan sees zero candidates because the window
	// moved past the first file. The translated output is skipped by suffix.
	require.NoError(t, s.Scan(context.Background()))

	var originals int
	for _, j := range registry.List() {
		if j.InputPath == filepath.Join(dir, "first.txt") {
			originals++
		}
	}
	assert.Equal(t, 1, originals)
}

func TestScheduleRejectsBadExpression(t *testing.T) {
	t.Parallel()

	s, _ := testScanner(t, t.TempDir())
	s.cfg.Watch.CronExpr = "not a cron"

	require.Error(t, s.Schedule(context.Background()))
}
