package srt

import (
	"bufio"
	"fmt"
	"io"
	"os"
)

// WriteFile writes the subtitle file to path. Index and timing lines are
// re-emitted exactly as parsed; only the text lines change.
func WriteFile(path string, file *File) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer f.Close()

	if err := Write(f, file); err != nil {
		return err
	}
	return nil
}

// Write emits the blocks in SRT format. Blocks without a translation fall
// back to their original text.
func Write(w io.Writer, file *File) error {
	bw := bufio.NewWriter(w)

	for _, block := range file.Blocks {
		text := block.Translated
		if text == "" {
			text = block.Text
		}

		if _, err := fmt.Fprintf(bw, "%d\n%s\n%s\n\n", block.Index, block.TimeRaw, text); err != nil {
			return fmt.Errorf("failed to write subtitle block %d: %w", block.Index, err)
		}
	}

	if err := bw.Flush(); err != nil {
		return fmt.Errorf("failed to flush subtitle output: %w", err)
	}
	return nil
}
