package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kvasir-lab/doctrans/internal/job"
)

var resumeCmd = &cobra.Command{
	Use:   "resume <job-id>",
	Short: "Resume an interrupted job from its checkpoint",
	Long: `Resume a job from its last checkpoint. The input file is re-read and
re-chunked first; if it no longer matches the checkpointed chunks the resume
is refused, because already translated pieces would be stitched onto
different text.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := newRuntime()
		if err != nil {
			return err
		}
		defer rt.Close()

		jobID := args[0]
		if err := runJob(cmd.Context(), rt, jobID, true); err != nil {
			return err
		}

		final, ok := rt.pipeline.Registry().Get(jobID)
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
			fmt.Printf("Interrupted again; resume with: doctrans resume %s\n", jobID)
		case job.StatusError:
			return fmt.Errorf("job failed: %s", final.Error)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(resumeCmd)
}
