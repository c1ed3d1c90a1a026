// Package service composes the translation pipeline: it turns input files
// into chunked jobs, drives the orchestrator, and reassembles format-native
// output once a job finishes.
package service

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/kvasir-lab/doctrans/internal/checkpoint"
	"github.com/kvasir-lab/doctrans/internal/config"
	"github.com/kvasir-lab/doctrans/internal/document"
	"github.com/kvasir-lab/doctrans/internal/job"
	"github.com/kvasir-lab/doctrans/internal/provider"
	"github.com/kvasir-lab/doctrans/internal/translate"
	"github.com/kvasir-lab/doctrans/pkg/file"
	"github.com/kvasir-lab/doctrans/pkg/log"
)

type Pipeline struct {
	cfg          *config.Config
	registry     *job.Registry
	checkpoints  *checkpoint.Store
	orchestrator *job.Orchestrator
}

// NewPipeline wires a pipeline around an explicit chunk translator. Used
// directly by tests; production callers go through NewDefaultPipeline.
func NewPipeline(
	cfg *config.Config,
	registry *job.Registry,
	checkpoints *checkpoint.Store,
	translator job.Translator,
	events chan<- job.Event,
) *Pipeline {
	return &Pipeline{
		cfg:          cfg,
		registry:     registry,
		checkpoints:  checkpoints,
		orchestrator: job.NewOrchestrator(registry, checkpoints, translator, events),
	}
}

// NewDefaultPipeline builds the provider gateway from configuration and
// wires the standard chunk translator on top of it.
func NewDefaultPipeline(
	cfg *config.Config,
	registry *job.Registry,
	checkpoints *checkpoint.Store,
	events chan<- job.Event,
) (*Pipeline, error) {
	gateway, err := provider.New(provider.Config{
		Provider:    cfg.LLM.Provider,
		APIKey:      cfg.LLM.APIKey,
		APIURL:      cfg.LLM.APIURL,
		Model:       cfg.LLM.Model,
		MaxTokens:   cfg.LLM.MaxTokens,
		Temperature: cfg.LLM.Temperature,
		Timeout:     time.Duration(cfg.LLM.Timeout) * time.Second,
		RateLimit:   cfg.LLM.RateLimit,
		SiteURL:     cfg.LLM.SiteURL,
		AppName:     cfg.LLM.AppName,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build provider gateway: %w", err)
	}
	return NewPipeline(cfg, registry, checkpoints, translate.NewChunkTranslator(gateway), events), nil
}

// JobRequest describes a new translation job. Empty fields fall back to the
// pipeline configuration.
type JobRequest struct {
	InputPath  string
	OutputPath string
	SourceLang string
	TargetLang string
	Tunables   *job.Tunables
}

// CreateJob validates the request, extracts and chunks the input, and
// registers a queued job. Validation failures return synchronously; no job
// state is created for them.
func (p *Pipeline) CreateJob(req JobRequest) (*job.TranslationJob, error) {
	targetLang := req.TargetLang
	if targetLang == "" {
		targetLang = p.cfg.Translate.TargetLanguage
	}
	if targetLang == "" {
		return nil, ErrTargetLanguageRequired
	}
	if _, err := os.Stat(req.InputPath); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInputNotFound, req.InputPath)
	}

	format, err := document.DetectFormat(req.InputPath)
	if err != nil {
		return nil, err
	}

	tunables := p.cfg.Translate.Tunables
	if req.Tunables != nil {
		tunables = req.Tunables.WithDefaults()
	}

	source, err := extractSource(req.InputPath, format, tunables)
	if err != nil {
		return nil, err
	}

	sourceLang := req.SourceLang
	if sourceLang == "" {
		sourceLang = p.cfg.Translate.SourceLanguage
	}
	if sourceLang == "" {
		sourceLang = document.DetectLanguage(source.plainText())
		if sourceLang != "" {
			log.Info("Detected source language %s for %s", sourceLang, req.InputPath)
		}
	}

	outputPath := req.OutputPath
	if outputPath == "" {
		outputPath = defaultOutputPath(req.InputPath, targetLang)
	}

	now := time.Now().UTC()
	j := &job.TranslationJob{
		ID:         uuid.NewString(),
		InputPath:  req.InputPath,
		OutputPath: outputPath,
		Format:     string(format),
		SourceLang: sourceLang,
		TargetLang: targetLang,
		Provider:   p.cfg.LLM.Provider,
		Model:      p.cfg.LLM.Model,
		Tunables:   tunables,
		Status:     job.StatusQueued,
		Chunks:     source.chunks(),
		SourceHash: source.hash(),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	p.registry.Put(j)

	log.Info("Created job %s: %s -> %s (%s, %d chunks)",
		j.ID, j.InputPath, j.OutputPath, j.Format, len(j.Chunks))
	return j.Clone(), nil
}

// Run drives the job to a terminal or interrupted state, then writes the
// output file when it completed.
func (p *Pipeline) Run(ctx context.Context, jobID string, cancel *job.CancelToken) error {
	if err := p.orchestrator.Run(ctx, jobID, cancel); err != nil {
		return err
	}

	j, ok := p.registry.Get(jobID)
	if !ok {
		return job.ErrNotFound
	}
	if j.Status != job.StatusCompleted && j.Status != job.StatusCompletedWarn {
		return nil
	}
	if err := p.assemble(j); err != nil {
		return fmt.Errorf("failed to assemble output for job %s: %w", jobID, err)
	}

	completed, failed, total := j.Counts()
	log.Info("Job %s finished: %d/%d chunks translated, %d substituted, output %s",
		j.ID, completed, total, failed, j.OutputPath)
	return nil
}

// Resume restores a job from its checkpoint, verifies the input still
// produces the recorded chunk boundaries, and continues the chunk loop at
// the first unfinished index.
func (p *Pipeline) Resume(ctx context.Context, jobID string, cancel *job.CancelToken) error {
	cp, err := p.checkpoints.Load(jobID)
	if err != nil {
		return err
	}
	restored := cp.Job.Clone()
	if restored.ID == "" {
		return fmt.Errorf("checkpoint for job %s carries no job state", jobID)
	}
	switch restored.Status {
	case job.StatusInterrupted, job.StatusPaused, job.StatusRunning, job.StatusQueued:
	default:
		return fmt.Errorf("%w: job %s is %s", ErrNotResumable, jobID, restored.Status)
	}

	if err := p.validateBoundaries(restored); err != nil {
		return err
	}

	if restored.Status == job.StatusRunning {
		restored.Status = job.StatusInterrupted
	}
	p.registry.Put(restored)

	log.Info("Resuming job %s at chunk %d/%d", jobID, restored.LastCompletedIndex()+1, len(restored.Chunks))
	return p.Run(ctx, jobID, cancel)
}

// validateBoundaries re-extracts the input and confirms it chunks into
// exactly the texts recorded in the checkpoint.
func (p *Pipeline) validateBoundaries(j *job.TranslationJob) error {
	source, err := extractSource(j.InputPath, document.Format(j.Format), j.Tunables)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSourceChanged, err)
	}
	if source.hash() != j.SourceHash {
		return ErrSourceChanged
	}

	fresh := source.chunks()
	if len(fresh) != len(j.Chunks) {
		return ErrSourceChanged
	}
	for i := range fresh {
		if fresh[i].Text != j.Chunks[i].Text {
			return ErrSourceChanged
		}
	}
	return nil
}

// Registry exposes the job registry for listing and deletion.
func (p *Pipeline) Registry() *job.Registry {
	return p.registry
}

// Checkpoints exposes the checkpoint store for explicit discard.
func (p *Pipeline) Checkpoints() *checkpoint.Store {
	return p.checkpoints
}

func defaultOutputPath(inputPath, targetLang string) string {
	return file.WithLangSuffix(inputPath, targetLang)
}
