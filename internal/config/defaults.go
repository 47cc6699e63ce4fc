package config

import "time"

// Default values for configuration
const (
	// Log defaults
	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"

	// Server defaults
	DefaultListenAddr      = ":8080"
	DefaultReadTimeout     = 30 * time.Second
	DefaultWriteTimeout    = 30 * time.Second
	DefaultShutdownTimeout = 10 * time.Second
	DefaultMaxBodyBytes    = 32 << 20 // 32 MiB transcript upload cap

	// Database defaults
	DefaultDBBackend = "sqlite"
	DefaultDBPath    = "chatlens.db"

	// Analysis defaults
	DefaultKeywordTopK     = 3
	DefaultTopSenders      = 5
	DefaultTopEmojis       = 10
	DefaultLanguage        = "en"
	DefaultMinDetectLength = 6
	DefaultMinMatchRatio   = 0.0

	// Sentiment ensemble defaults. Changing these changes every score the
	// service reports: downstream consumers compare results across
	// deployments.
	DefaultVaderWeight       = 0.6
	DefaultPolarityWeight    = 0.4
	DefaultPositiveThreshold = 0.05
	DefaultNegativeThreshold = -0.05

	// Job defaults
	DefaultJobRetention     = 24 * time.Hour
	DefaultFailedLineSample = 10
)

// DefaultSchedulerTasks holds the out-of-the-box background task table.
var DefaultSchedulerTasks = map[string]TaskConfig{
	"job_cleanup":     {Enabled: true, Schedule: "0 * * * *"},
	"sql_maintenance": {Enabled: true, Schedule: "0 4 * * *"},
}
