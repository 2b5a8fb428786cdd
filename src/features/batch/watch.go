package batch

import (
	"context"
	"log/slog"

	"github.com/lunefort/tuneid/src/features/config"
	"github.com/lunefort/tuneid/src/features/jobs"
	"github.com/lunefort/tuneid/src/infra/watcher"
)

// WatchRunner turns debounced drop-directory events into batch jobs.
type WatchRunner struct {
	config  *config.Manager
	jobs    jobs.JobService
	events  chan watcher.FileEvent
	watcher *watcher.Watcher
}

// NewWatchRunner creates the runner; Start does nothing when watching is
// disabled in configuration.
func NewWatchRunner(cfg *config.Manager, jobSvc jobs.JobService) *WatchRunner {
	return &WatchRunner{
		config: cfg,
		jobs:   jobSvc,
		events: make(chan watcher.FileEvent, 10),
	}
}

// Start begins watching the configured drop directory.
func (r *WatchRunner) Start(ctx context.Context) error {
	watch := r.config.Get().Batch.Watch
	if !watch.Enabled || watch.Path == "" {
		slog.Debug("Drop-directory watching disabled")
		return nil
	}

	w, err := watcher.NewWatcher(r.events, r.config.Get().Batch.Extensions)
	if err != nil {
		return err
	}
	r.watcher = w

	if err := w.Start(ctx, watch.Path); err != nil {
		return err
	}

	go r.loop(ctx)
	return nil
}

// Stop stops the underlying watcher.
func (r *WatchRunner) Stop() {
	if r.watcher != nil {
		r.watcher.Stop()
	}
}

func (r *WatchRunner) loop(ctx context.Context) {
	for {
		select {
		case event := <-r.events:
			slog.Info("Drop directory settled, queueing batch job", "path", event.Path)
			jobID, err := r.jobs.StartJob(JobTypeDirectory, "Watched directory scan", map[string]any{
				"path": event.Path,
			})
			if err != nil {
				slog.Error("Failed to start batch job from watcher", "error", err)
				continue
			}
			slog.Info("Batch job queued", "jobID", jobID)

		case <-ctx.Done():
			return
		}
	}
}
