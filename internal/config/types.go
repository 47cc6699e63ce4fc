// Package config manages application configuration from environment variables,
// config files, and default values.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

// ErrConfiguration indicates a problem loading or validating configuration.
var ErrConfiguration = errors.New("configuration error")

// Config defines the application configuration. Values can be set via environment
// variables prefixed with CHATLENS_ (e.g., CHATLENS_SERVER_LISTEN_ADDR) or through
// config.yaml.
type Config struct {
	Log       LogConfig       `mapstructure:"log"`
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Analysis  AnalysisConfig  `mapstructure:"analysis"`
	Sentiment SentimentConfig `mapstructure:"sentiment"`
	Jobs      JobsConfig      `mapstructure:"jobs"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
}

// LogConfig controls log verbosity and output format.
type LogConfig struct {
	Level  string `mapstructure:"level"  validate:"required,oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"required,oneof=json text"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	ListenAddr      string        `mapstructure:"listen_addr"      validate:"required"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"     validate:"required,min=1s"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"    validate:"required,min=1s"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"required,min=1s"`
	MaxBodyBytes    int64         `mapstructure:"max_body_bytes"   validate:"required,gt=0"`
}

// DatabaseConfig selects and configures the job store backend.
type DatabaseConfig struct {
	Backend string `mapstructure:"backend" validate:"required,oneof=memory sqlite"`
	Path    string `mapstructure:"path"    validate:"required_if=Backend sqlite"`
}

// AnalysisConfig holds pipeline tunables for the per-message analyzers
// and the aggregator.
type AnalysisConfig struct {
	KeywordTopK     int     `mapstructure:"keyword_top_k"     validate:"required,min=1,max=50"`
	TopSenders      int     `mapstructure:"top_senders"       validate:"required,min=1,max=100"`
	TopEmojis       int     `mapstructure:"top_emojis"        validate:"required,min=1,max=100"`
	DefaultLanguage string  `mapstructure:"default_language"  validate:"required,len=2"`
	MinDetectLength int     `mapstructure:"min_detect_length" validate:"min=0,max=256"`
	MinMatchRatio   float64 `mapstructure:"min_match_ratio"   validate:"min=0,max=1"`
}

// SentimentConfig exposes the ensemble weights and label thresholds. The
// defaults must be preserved for output compatibility; they are configurable
// only so operators can experiment without a rebuild.
type SentimentConfig struct {
	VaderWeight       float64 `mapstructure:"vader_weight"       validate:"min=0,max=1"`
	PolarityWeight    float64 `mapstructure:"polarity_weight"    validate:"min=0,max=1"`
	PositiveThreshold float64 `mapstructure:"positive_threshold" validate:"min=0,max=1"`
	NegativeThreshold float64 `mapstructure:"negative_threshold" validate:"min=-1,max=0"`
}

// JobsConfig controls job bookkeeping.
type JobsConfig struct {
	Retention        time.Duration `mapstructure:"retention"          validate:"required,min=1m"`
	FailedLineSample int           `mapstructure:"failed_line_sample" validate:"required,min=1,max=100"`
}

// TaskConfig enables and schedules one background task.
type TaskConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Schedule string `mapstructure:"schedule"`
}

// SchedulerConfig maps task names to their schedules.
type SchedulerConfig struct {
	Tasks map[string]TaskConfig `mapstructure:"tasks"`
}

// Validate checks the complete configuration and returns a wrapped
// ErrConfiguration describing the first problem found.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("%w: %v", ErrConfiguration, err)
	}

	if sum := c.Sentiment.VaderWeight + c.Sentiment.PolarityWeight; sum < 0.999 || sum > 1.001 {
		return fmt.Errorf("%w: sentiment weights must sum to 1, got %v", ErrConfiguration, sum)
	}

	return nil
}
