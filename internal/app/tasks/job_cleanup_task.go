package tasks

import (
	"context"
	"fmt"
	"time"
)

// newJobCleanupTask creates the scheduled task that deletes terminal jobs
// older than the configured retention window, along with their messages.
func newJobCleanupTask(deps TaskDeps) ScheduledTaskFunc {
	log := deps.Logger.With("task", "job_cleanup")

	return func(ctx context.Context) error {
		timeoutCtx, cancel := context.WithTimeout(ctx, time.Minute)
		defer cancel()

		cutoff := time.Now().UTC().Add(-deps.Config.Jobs.Retention)
		deleted, err := deps.Store.DeleteJobsBefore(timeoutCtx, cutoff)
		if err != nil {
			log.ErrorContext(ctx, "Job cleanup failed", "error", err)
			return fmt.Errorf("job cleanup failed: %w", err)
		}

		log.InfoContext(ctx, "Job cleanup finished", "deleted", deleted, "cutoff", cutoff)
		return nil
	}
}
