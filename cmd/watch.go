package cmd

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"github.com/kvasir-lab/doctrans/internal/config"
	"github.com/kvasir-lab/doctrans/internal/watch"
	"github.com/kvasir-lab/doctrans/pkg/log"
)

var (
	watchDir      string
	watchCronExpr string
	watchOutDir   string
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch a directory and translate new documents on a schedule",
	Long: `Scan a directory on a cron schedule and translate every new text,
Markdown, EPUB, or SRT file into the configured target language. Files that
already carry the target language suffix, or whose translation already
exists, are skipped.

Runs until interrupted.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := newRuntime(func(cfg *config.Config) {
			if watchDir != "" {
				cfg.Watch.Dir = watchDir
			}
			if watchCronExpr != "" {
				cfg.Watch.CronExpr = watchCronExpr
			}
			if watchOutDir != "" {
				cfg.Watch.OutputDir = watchOutDir
			}
		})
		if err != nil {
			return err
		}
		defer rt.Close()

		if !rt.cfg.Watch.Enabled() {
			return fmt.Errorf("no watch directory configured; set WATCH_DIR or pass --dir")
		}
		if rt.cfg.Translate.TargetLanguage == "" {
			return fmt.Errorf("no target language configured; set TARGET_LANGUAGE")
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		c := cron.New()
		scanner := watch.NewScanner(*rt.cfg, rt.pipeline, c)
		if err := scanner.Schedule(ctx); err != nil {
			return err
		}
		c.Start()
		defer c.Stop()

		<-ctx.Done()
		log.Info("Shutting down watch loop")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().StringVar(&watchDir, "dir", "", "Directory to watch (default: WATCH_DIR)")
	watchCmd.Flags().StringVar(&watchCronExpr, "cron", "", "Scan schedule as a cron expression (default: every 10 minutes)")
	watchCmd.Flags().StringVar(&watchOutDir, "output-dir", "", "Directory for translated files (default: the watched directory)")
}
