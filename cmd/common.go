package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kvasir-lab/doctrans/internal/checkpoint"
	"github.com/kvasir-lab/doctrans/internal/config"
	"github.com/kvasir-lab/doctrans/internal/job"
	"github.com/kvasir-lab/doctrans/internal/persistence"
	"github.com/kvasir-lab/doctrans/internal/service"
	"github.com/kvasir-lab/doctrans/pkg/log"
)

const timeRounding = time.Second

// runtime bundles everything a command needs to drive the pipeline. Close
// releases the SQLite store and drains the event printer.
type runtime struct {
	cfg      *config.Config
	pipeline *service.Pipeline
	store    *persistence.SQLiteStore
	events   chan job.Event
	done     chan struct{}
}

func newRuntime(opts ...config.Option) (*runtime, error) {
	cfg, err := config.NewFromEnv(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if err := os.MkdirAll(cfg.Storage.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	store, err := persistence.NewSQLiteStore(cfg.Storage.DatabasePath())
	if err != nil {
		return nil, fmt.Errorf("failed to open job store: %w", err)
	}
	checkpoints, err := checkpoint.NewStore(cfg.Storage.CheckpointDir())
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to open checkpoint store: %w", err)
	}

	events := make(chan job.Event, 64)
	registry := job.NewRegistry(store)
	pipeline, err := service.NewDefaultPipeline(cfg, registry, checkpoints, events)
	if err != nil {
		store.Close()
		return nil, err
	}

	rt := &runtime{
		cfg:      cfg,
		pipeline: pipeline,
		store:    store,
		events:   events,
		done:     make(chan struct{}),
	}
	go rt.printEvents()
	return rt, nil
}

func (rt *runtime) Close() {
	close(rt.events)
	<-rt.done
	if err := rt.store.Close(); err != nil {
		log.Warn("Failed to close job store: %v", err)
	}
}

func (rt *runtime) printEvents() {
	defer close(rt.done)
	for ev := range rt.events {
		switch ev.Kind {
		case job.EventProgress:
			fmt.Fprintf(os.Stderr, "  chunk %d/%d translated (%d failed, %s elapsed)\n",
				ev.Completed, ev.Total, ev.Failed, ev.Elapsed.Round(timeRounding))
		case job.EventWarning:
			fmt.Fprintf(os.Stderr, "  chunk %d kept in the source language: %s\n",
				ev.ChunkIndex+1, ev.Message)
		case job.EventInterrupted:
			fmt.Fprintf(os.Stderr, "  interrupted after %d/%d chunks; resume with: doctrans resume %s\n",
				ev.Completed, ev.Total, ev.JobID)
		case job.EventCompleted:
			fmt.Fprintf(os.Stderr, "  done: %d/%d chunks in %s\n",
				ev.Completed, ev.Total, ev.Elapsed.Round(timeRounding))
		}
	}
}

// runJob drives a job while translating SIGINT/SIGTERM into a cooperative
// interrupt: the current chunk finishes, the checkpoint is written, and the
// job can be resumed. A second signal exits immediately.
func runJob(ctx context.Context, rt *runtime, jobID string, resume bool) error {
	cancel := &job.CancelToken{}

	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		<-sigCh
		fmt.Fprintln(os.Stderr, "Interrupting after the current chunk (press again to abort)")
		cancel.Interrupt()
		<-sigCh
		os.Exit(1)
	}()

	if resume {
		return rt.pipeline.Resume(ctx, jobID, cancel)
	}
	return rt.pipeline.Run(ctx, jobID, cancel)
}
