package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/kvasir-lab/doctrans/internal/job"
	"github.com/kvasir-lab/doctrans/internal/service"
)

var (
	outputFile string
	sourceLang string
	targetLang string

	chunkSize     int
	contextChunks int
	maxAttempts   int
	retryDelay    time.Duration
	backoffMode   string
)

var translateCmd = &cobra.Command{
	Use:   "translate <input-file>",
	Short: "Translate a document",
	Long: `Translate a text, Markdown, EPUB, or SRT file into the target language.

The input format is detected from the file extension. When --source is
omitted the source language is detected from the document text. The output
path defaults to the input path with the target language inserted before
the extension (book.epub becomes book.de.epub).

Interrupting a run with Ctrl-C is safe: progress is checkpointed per chunk
and "doctrans resume <job-id>" continues where it stopped.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := newRuntime()
		if err != nil {
			return err
		}
		defer rt.Close()

		req := service.JobRequest{
			InputPath:  args[0],
			OutputPath: outputFile,
			SourceLang: sourceLang,
			TargetLang: targetLang,
		}
		if cmd.Flags().Changed("chunk-size") || cmd.Flags().Changed("context-chunks") ||
			cmd.Flags().Changed("max-attempts") || cmd.Flags().Changed("retry-delay") ||
			cmd.Flags().Changed("backoff") {
			tunables := rt.cfg.Translate.Tunables
			if chunkSize > 0 {
				tunables.ChunkSize = chunkSize
			}
			if contextChunks > 0 {
				tunables.ContextChunks = contextChunks
			}
			if maxAttempts > 0 {
				tunables.MaxAttempts = maxAttempts
			}
			if retryDelay > 0 {
				tunables.RetryDelay = retryDelay
			}
			if backoffMode != "" {
				tunables.Backoff = job.BackoffMode(backoffMode)
			}
			req.Tunables = &tunables
		}

		j, err := rt.pipeline.CreateJob(req)
		if err != nil {
			return err
		}

		fmt.Printf("Job %s: translating %s (%d chunks)\n", j.ID, j.InputPath, len(j.Chunks))
		if err := runJob(cmd.Context(), rt, j.ID, false); err != nil {
			return err
		}

		final, ok := rt.pipeline.Registry().Get(j.ID)
		if !ok {
			return job.ErrNotFound
		}
		switch final.Status {
		case job.StatusCompleted, job.StatusCompletedWarn:
			completed, failed, total := final.Counts()
			fmt.Printf("Translated %d/%d chunks", completed, total)
			if failed > 0 {
				fmt.Printf(" (%d kept in the source language)", failed)
			}
			fmt.Printf(", output written to %s\n", final.OutputPath)
		case job.StatusInterrupted:
			fmt.Printf("Interrupted; resume with: doctrans resume %s\n", j.ID)
		case job.StatusError:
			return fmt.Errorf("job failed: %s", final.Error)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(translateCmd)

	translateCmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output file (default: input with language suffix)")
	translateCmd.Flags().StringVarP(&sourceLang, "source", "s", "", "Source language code (default: auto-detect)")
	translateCmd.Flags().StringVarP(&targetLang, "target", "t", "", "Target language code (default: TARGET_LANGUAGE)")

	translateCmd.Flags().IntVar(&chunkSize, "chunk-size", 0, "Target words per chunk")
	translateCmd.Flags().IntVar(&contextChunks, "context-chunks", 0, "Prior chunks carried as translation context")
	translateCmd.Flags().IntVar(&maxAttempts, "max-attempts", 0, "Attempts per chunk before substituting the original text")
	translateCmd.Flags().DurationVar(&retryDelay, "retry-delay", 0, "Delay between chunk retry attempts")
	translateCmd.Flags().StringVar(&backoffMode, "backoff", "", "Retry backoff mode: fixed or exponential")
}
