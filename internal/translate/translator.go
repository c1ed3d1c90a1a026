// Package translate implements the chunk translator: placeholder encoding,
// prompt assembly with preceding context, the provider call, and decode
// validation with graceful tag-mismatch fallback.
package translate

import (
	"context"
	"fmt"
	"strings"

	"github.com/kvasir-lab/doctrans/internal/job"
	"github.com/kvasir-lab/doctrans/internal/placeholder"
	"github.com/kvasir-lab/doctrans/internal/provider"
	"github.com/kvasir-lab/doctrans/pkg/log"
)

// ChunkTranslator translates one chunk at a time through a provider
// gateway. It implements job.Translator.
type ChunkTranslator struct {
	gateway provider.Translator
}

func NewChunkTranslator(gateway provider.Translator) *ChunkTranslator {
	return &ChunkTranslator{gateway: gateway}
}

// TranslateChunk encodes markup out of the chunk, asks the provider for a
// translation and decodes the result. A placeholder count mismatch is not a
// failure: the decode falls back so no original span is ever lost, and the
// result is flagged for the job summary.
func (t *ChunkTranslator) TranslateChunk(
	ctx context.Context,
	j *job.TranslationJob,
	c *job.Chunk,
	precedingContext string,
) (job.Result, error) {
	plain, tokens := placeholder.Encode(c.Text)
	c.Placeholders = tokens

	req := provider.Request{
		SystemPrompt: buildPrompt(j.SourceLang, j.TargetLang, precedingContext, len(tokens) > 0, strings.Contains(plain, "%%")),
		UserMessage:  plain,
	}

	out, err := t.gateway.Translate(ctx, req)
	if err != nil {
		return job.Result{}, fmt.Errorf("translation failed: %w", err)
	}
	if strings.TrimSpace(out) == "" {
		return job.Result{}, fmt.Errorf("%w: empty translation", provider.ErrInvalidResponse)
	}

	decoded, missing := placeholder.Decode(out, c.Text, tokens)
	if len(missing) > 0 {
		log.Warn("Chunk %d: %d of %d placeholder tokens lost in translation, fallback applied", c.Index, len(missing), len(tokens))
	}

	return job.Result{
		Text:        decoded,
		TagMismatch: len(missing) > 0,
	}, nil
}

// buildPrompt assembles the system prompt for one chunk.
func buildPrompt(sourceLang, targetLang, precedingContext string, hasTokens, hasBlockMarkers bool) string {
	var prompt strings.Builder

	source := sourceLang
	if source == "" || source == "auto" {
		source = "the source language"
	}
	prompt.WriteString("You are a professional document translation expert. Translate the following text from " + source + " to " + targetLang + ".\n\n")

	if precedingContext != "" {
		prompt.WriteString("=== PRECEDING CONTEXT ===\n")
		prompt.WriteString("The tail of the already translated text is given below for continuity. It is reference material only: do not translate it again and do not include it in your output.\n")
		prompt.WriteString(precedingContext + "\n\n")
	}

	prompt.WriteString("=== TRANSLATION GUIDELINES ===\n")
	prompt.WriteString("1. Keep terminology and names consistent with the preceding context\n")
	prompt.WriteString("2. Preserve paragraph breaks exactly as they appear\n")
	if hasTokens {
		prompt.WriteString("3. " + placeholder.InstructionHint() + "\n")
	}
	if hasBlockMarkers {
		prompt.WriteString("4. Preserve all %%...%% separator markers exactly as they appear, in the same positions relative to the text they separate\n")
	}
	prompt.WriteString("\n=== OUTPUT FORMAT ===\n")
	prompt.WriteString("Return ONLY the translated text. Do not include any explanations, notes, or additional text.\n")

	return prompt.String()
}
