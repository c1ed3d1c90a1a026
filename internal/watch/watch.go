// Package watch scans a directory on a cron schedule and feeds new documents
// into the translation pipeline. Jobs run sequentially; the pipeline enforces
// the single active job rule, so an overlapping trigger is collapsed by
// singleflight and anything still running simply pushes the scan to the next
// tick.
package watch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/robfig/cron/v3"
	"golang.org/x/sync/singleflight"

	"github.com/kvasir-lab/doctrans/internal/config"
	"github.com/kvasir-lab/doctrans/internal/job"
	"github.com/kvasir-lab/doctrans/internal/service"
	"github.com/kvasir-lab/doctrans/pkg/file"
	"github.com/kvasir-lab/doctrans/pkg/icron"
	"github.com/kvasir-lab/doctrans/pkg/log"
)

// watchExts lists the document types the scanner picks up.
var watchExts = []string{".txt", ".md", ".text", ".epub", ".srt"}

type Scanner struct {
	cfg      config.Config
	pipeline *service.Pipeline
	cron     *cron.Cron

	group    singleflight.Group
	lastScan time.Time
}

func NewScanner(cfg config.Config, pipeline *service.Pipeline, c *cron.Cron) *Scanner {
	return &Scanner{
		cfg:      cfg,
		pipeline: pipeline,
		cron:     c,
	}
}

// Schedule registers the scan on the cron instance. The caller owns the cron
// lifecycle (Start/Stop).
func (s *Scanner) Schedule(ctx context.Context) error {
	expr := s.cfg.Watch.CronExpr

	info, err := icron.GetTriggerInfo(expr, time.Now())
	if err != nil {
		return err
	}
	// Seed the window at the previous trigger so files dropped just before
	// startup are not missed.
	s.lastScan = info.Last
	log.Info("Watching %s (%s), next trigger in %s", s.cfg.Watch.Dir, expr, info.TimeUntilNext.Round(time.Second))

	runFunc := func() {
		_, _, _ = s.group.Do("scan", func() (any, error) {
			if err := s.Scan(ctx); err != nil {
				log.Error("Scan of %s failed: %v", s.cfg.Watch.Dir, err)
			}
			return nil, nil
		})
	}
	_, err = s.cron.AddFunc(expr, runFunc)
	return err
}

// Scan translates every document modified since the previous scan. Files the
// pipeline rejects are logged and skipped; a failed run does not stop the
// remaining candidates.
func (s *Scanner) Scan(ctx context.Context) error {
	since := s.lastScan
	scanStart := time.Now()

	candidates, err := file.FindRecentAfter(s.cfg.Watch.Dir, since, watchExts...)
	if err != nil {
		return err
	}
	log.Info("Found %d candidate files in %s", len(candidates), s.cfg.Watch.Dir)

	for _, path := range candidates {
		if s.skip(path) {
			continue
		}
		if err := s.translate(ctx, path); err != nil {
			if errors.Is(err, job.ErrJobActive) {
				// Leave lastScan untouched so the next tick retries
				// everything from this window.
				log.Warn("A job is already running, deferring scan of %s", s.cfg.Watch.Dir)
				return nil
			}
			log.Error("Failed to translate %s: %v", path, err)
		}
	}

	s.lastScan = scanStart
	return nil
}

// skip filters out pipeline output: files already carrying the target
// language suffix, and files whose translation already exists on disk.
func (s *Scanner) skip(path string) bool {
	lang := s.cfg.Translate.TargetLanguage
	if file.HasLangSuffix(path, lang) {
		log.Debug("Skipping %s: already a translation", path)
		return true
	}
	if _, err := os.Stat(s.outputPath(path, lang)); err == nil {
		log.Debug("Skipping %s: output already exists", path)
		return true
	}
	return false
}

func (s *Scanner) outputPath(inputPath, lang string) string {
	out := file.WithLangSuffix(inputPath, lang)
	if dir := s.cfg.Watch.OutputDir; dir != "" && dir != s.cfg.Watch.Dir {
		out = filepath.Join(dir, filepath.Base(out))
	}
	return out
}

func (s *Scanner) translate(ctx context.Context, path string) error {
	lang := s.cfg.Translate.TargetLanguage

	j, err := s.pipeline.CreateJob(service.JobRequest{
		InputPath:  path,
		OutputPath: s.outputPath(path, lang),
	})
	if err != nil {
		return err
	}

	log.Info("Translating %s to %s (job %s)", path, lang, j.ID)
	err = s.pipeline.Run(ctx, j.ID, nil)
	if errors.Is(err, job.ErrJobActive) {
		// Something outside the watch loop holds the active slot. Drop the
		// queued job; the file is picked up again on the next tick.
		if delErr := s.pipeline.Registry().Delete(j.ID); delErr != nil {
			log.Warn("Failed to drop queued job %s: %v", j.ID, delErr)
		}
	}
	return err
}
