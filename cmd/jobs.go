package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "Inspect and manage translation jobs",
}

var jobsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List known jobs, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := newRuntime()
		if err != nil {
			return err
		}
		defer rt.Close()

		jobs := rt.pipeline.Registry().List()
		if len(jobs) == 0 {
			fmt.Println("No jobs.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tSTATUS\tPROGRESS\tINPUT\tOUTPUT\tCREATED")
		for _, j := range jobs {
			completed, failed, total := j.Counts()
			progress := fmt.Sprintf("%d/%d", completed, total)
			if failed > 0 {
				progress += fmt.Sprintf(" (%d failed)", failed)
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
				j.ID, j.Status, progress, j.InputPath, j.OutputPath,
				j.CreatedAt.Local().Format("2006-01-02 15:04"))
		}
		return w.Flush()
	},
}

var jobsDeleteCmd = &cobra.Command{
	Use:   "delete <job-id>",
	Short: "Delete a job and its checkpoint",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := newRuntime()
		if err != nil {
			return err
		}
		defer rt.Close()

		jobID := args[0]
		if err := rt.pipeline.Registry().Delete(jobID); err != nil {
			return err
		}
		if err := rt.pipeline.Checkpoints().Delete(jobID); err != nil {
			return err
		}
		fmt.Printf("Deleted job %s\n", jobID)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(jobsCmd)
	jobsCmd.AddCommand(jobsListCmd)
	jobsCmd.AddCommand(jobsDeleteCmd)
}
