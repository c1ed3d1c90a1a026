package service

import (
	"fmt"
	"os"
	"strings"

	"github.com/kvasir-lab/doctrans/internal/document"
	"github.com/kvasir-lab/doctrans/internal/epub"
	"github.com/kvasir-lab/doctrans/internal/job"
	"github.com/kvasir-lab/doctrans/internal/srt"
	"github.com/kvasir-lab/doctrans/pkg/log"
)

// assemble writes the translated output in the job's native format. Every
// chunk of a finished job carries output text: the translation, or the
// original source when all attempts failed.
func (p *Pipeline) assemble(j *job.TranslationJob) error {
	switch document.Format(j.Format) {
	case document.FormatText:
		return p.assembleText(j)
	case document.FormatEPUB:
		return p.assembleEPUB(j)
	case document.FormatSRT:
		return p.assembleSRT(j)
	default:
		return fmt.Errorf("unsupported output format: %s", j.Format)
	}
}

func (p *Pipeline) assembleText(j *job.TranslationJob) error {
	text := joinChunkOutputs(j)
	if err := os.WriteFile(j.OutputPath, []byte(text+"\n"), 0o644); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}
	return nil
}

func (p *Pipeline) assembleEPUB(j *job.TranslationJob) error {
	// Re-open the input for its metadata; the translated text carries none.
	book, err := epub.Extract(j.InputPath)
	if err != nil {
		return err
	}

	out := &epub.Book{
		Title:    book.Title,
		Author:   book.Author,
		Language: j.TargetLang,
		Chapters: epub.SplitChapters(joinChunkOutputs(j), epub.DefaultChapterWords),
	}
	return epub.Build(j.OutputPath, out)
}

func (p *Pipeline) assembleSRT(j *job.TranslationJob) error {
	file, err := srt.ReadFile(j.InputPath)
	if err != nil {
		return err
	}

	// Grouping is deterministic, so group i corresponds to chunk i.
	groups := srt.GroupBlocks(file.Blocks, j.Tunables.ChunkSize)
	if len(groups) != len(j.Chunks) {
		return fmt.Errorf("%w: input now yields %d groups, job has %d chunks",
			ErrSourceChanged, len(groups), len(j.Chunks))
	}

	for i, chunk := range j.Chunks {
		if chunk.Status == job.ChunkFailed {
			// Blocks keep their original text.
			continue
		}
		texts, err := srt.SplitGroup(chunk.Translated, groups[i])
		if err != nil {
			log.Warn("Group %d of job %s lost its block markers, keeping original text: %v", i, j.ID, err)
			continue
		}
		for blockIdx, text := range texts {
			file.Blocks[blockIdx].Translated = text
		}
	}

	return srt.WriteFile(j.OutputPath, file)
}

func joinChunkOutputs(j *job.TranslationJob) string {
	parts := make([]string, 0, len(j.Chunks))
	for _, c := range j.Chunks {
		out := c.Translated
		if out == "" {
			out = c.Text
		}
		parts = append(parts, strings.TrimSpace(out))
	}
	return strings.Join(parts, "\n\n")
}
