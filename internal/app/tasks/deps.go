// Package tasks implements the scheduled background tasks of the service:
// expired job cleanup and database maintenance.
package tasks

import (
	"log/slog"

	"github.com/chatlens/chatlens/internal/config"
	"github.com/chatlens/chatlens/internal/database"
)

// TaskDeps contains all dependencies required by scheduled tasks.
type TaskDeps struct {
	Logger *slog.Logger
	Store  database.Store
	Config *config.Config
}
