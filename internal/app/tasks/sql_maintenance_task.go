package tasks

import (
	"context"
	"fmt"
	"time"
)

// newSQLMaintenanceTask creates the scheduled task that runs storage
// maintenance. The task is a no-op for the in-memory backend.
func newSQLMaintenanceTask(deps TaskDeps) ScheduledTaskFunc {
	log := deps.Logger.With("task", "sql_maintenance")

	return func(ctx context.Context) error {
		timeoutCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
		defer cancel()

		startTime := time.Now()
		if err := deps.Store.RunSQLMaintenance(timeoutCtx); err != nil {
			log.ErrorContext(ctx, "SQL maintenance failed", "error", err)
			return fmt.Errorf("sql maintenance failed: %w", err)
		}

		log.InfoContext(ctx, "SQL maintenance finished", "duration", time.Since(startTime))
		return nil
	}
}
