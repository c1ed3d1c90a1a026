package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/kvasir-lab/doctrans/pkg/log"
)

var version = "0.3.0"

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "doctrans",
	Short: "Document translation pipeline",
	Long: `doctrans translates complete documents with an LLM while preserving
their structure: plain text and Markdown, EPUB books, and SRT subtitles.

Long documents are split into chunks, translated with a sliding context
window, and checkpointed after every chunk so an interrupted run resumes
where it stopped.

Provider credentials and defaults come from the environment (or a .env
file); see the repository README for the variable list.`,
	Version: version,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if level := os.Getenv("LOG_LEVEL"); level != "" {
			log.GetLogger().SetLevel(log.ParseLevel(level))
		}
		if verbose {
			log.GetLogger().SetLevel(log.LevelDebug)
		}
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
}
