package tasks

import "context"

// ScheduledTaskFunc defines the standard signature for all scheduled tasks.
// Tasks must respect ctx for cancellation and report failures via the error.
type ScheduledTaskFunc func(ctx context.Context) error

// RegisterAllTasks initializes and returns the map of registered scheduled
// tasks. Map keys match the task names in the scheduler configuration.
func RegisterAllTasks(deps TaskDeps) map[string]ScheduledTaskFunc {
	taskMap := make(map[string]ScheduledTaskFunc)

	taskMap["job_cleanup"] = newJobCleanupTask(deps)
	taskMap["sql_maintenance"] = newSQLMaintenanceTask(deps)

	deps.Logger.Info("Initialized scheduled tasks", "count", len(taskMap))
	return taskMap
}
