package service

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"strings"

	"github.com/kvasir-lab/doctrans/internal/chunker"
	"github.com/kvasir-lab/doctrans/internal/document"
	"github.com/kvasir-lab/doctrans/internal/epub"
	"github.com/kvasir-lab/doctrans/internal/job"
	"github.com/kvasir-lab/doctrans/internal/srt"
)

// extractedSource is an input file reduced to ordered translatable chunk
// texts. Extraction is deterministic: the same file and tunables always
// yield the same chunk list, which is what makes resume validation possible.
type extractedSource struct {
	format     document.Format
	text       string
	chunkTexts []string
}

func extractSource(inputPath string, format document.Format, tunables job.Tunables) (*extractedSource, error) {
	switch format {
	case document.FormatText:
		raw, err := os.ReadFile(inputPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read input file: %w", err)
		}
		text := chunker.NormalizeHyphenation(string(raw))
		return &extractedSource{
			format:     format,
			text:       text,
			chunkTexts: chunker.Split(text, chunkOptions(tunables)),
		}, nil

	case document.FormatEPUB:
		book, err := epub.Extract(inputPath)
		if err != nil {
			return nil, err
		}
		parts := make([]string, 0, len(book.Chapters))
		for _, ch := range book.Chapters {
			parts = append(parts, ch.Text)
		}
		text := chunker.NormalizeHyphenation(strings.Join(parts, "\n\n"))
		return &extractedSource{
			format:     format,
			text:       text,
			chunkTexts: chunker.Split(text, chunkOptions(tunables)),
		}, nil

	case document.FormatSRT:
		file, err := srt.ReadFile(inputPath)
		if err != nil {
			return nil, err
		}
		groups := srt.GroupBlocks(file.Blocks, tunables.ChunkSize)
		texts := make([]string, 0, len(groups))
		for _, g := range groups {
			texts = append(texts, g.Text)
		}
		return &extractedSource{
			format:     format,
			text:       strings.Join(texts, "\n"),
			chunkTexts: texts,
		}, nil

	default:
		return nil, fmt.Errorf("unsupported input format: %s", format)
	}
}

// chunkOptions derives chunker bounds from the tunables. When the model's
// context window is known the word target is scaled to fit its budget,
// assuming responses run about one chunk long.
func chunkOptions(t job.Tunables) chunker.Options {
	opts := chunker.Options{
		TargetWords: t.ChunkSize,
		MinWords:    t.MinChunkSize,
		MaxWords:    t.MaxChunkSize,
	}
	if t.ModelContextTokens > 0 {
		sizer := chunker.NewSizer(opts, t.ModelContextTokens)
		sizer.Observe(t.ChunkSize)
		opts.TargetWords = sizer.Next()
	}
	return opts
}

func (s *extractedSource) plainText() string {
	return s.text
}

func (s *extractedSource) chunks() []job.Chunk {
	out := make([]job.Chunk, len(s.chunkTexts))
	for i, text := range s.chunkTexts {
		out[i] = job.Chunk{
			Index:  i,
			Text:   text,
			Status: job.ChunkPending,
		}
	}
	return out
}

func (s *extractedSource) hash() string {
	sum := sha256.Sum256([]byte(s.text))
	return hex.EncodeToString(sum[:])
}
