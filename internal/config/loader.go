package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// LoadConfig loads and validates configuration from:
// 1. Default values
// 2. The config file at path (optional; missing file is not an error)
// 3. CHATLENS_* environment variables
func LoadConfig(path string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.SetEnvPrefix("CHATLENS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Allow missing config file; defaults plus environment are enough.
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: failed to read config file: %v", ErrConfiguration, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("%w: failed to parse config: %v", ErrConfiguration, err)
	}

	if len(cfg.Scheduler.Tasks) == 0 {
		cfg.Scheduler.Tasks = DefaultSchedulerTasks
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	// Log defaults
	v.SetDefault("log.level", DefaultLogLevel)
	v.SetDefault("log.format", DefaultLogFormat)

	// Server defaults
	v.SetDefault("server.listen_addr", DefaultListenAddr)
	v.SetDefault("server.read_timeout", DefaultReadTimeout)
	v.SetDefault("server.write_timeout", DefaultWriteTimeout)
	v.SetDefault("server.shutdown_timeout", DefaultShutdownTimeout)
	v.SetDefault("server.max_body_bytes", DefaultMaxBodyBytes)

	// Database defaults
	v.SetDefault("database.backend", DefaultDBBackend)
	v.SetDefault("database.path", DefaultDBPath)

	// Analysis defaults
	v.SetDefault("analysis.keyword_top_k", DefaultKeywordTopK)
	v.SetDefault("analysis.top_senders", DefaultTopSenders)
	v.SetDefault("analysis.top_emojis", DefaultTopEmojis)
	v.SetDefault("analysis.default_language", DefaultLanguage)
	v.SetDefault("analysis.min_detect_length", DefaultMinDetectLength)
	v.SetDefault("analysis.min_match_ratio", DefaultMinMatchRatio)

	// Sentiment ensemble defaults
	v.SetDefault("sentiment.vader_weight", DefaultVaderWeight)
	v.SetDefault("sentiment.polarity_weight", DefaultPolarityWeight)
	v.SetDefault("sentiment.positive_threshold", DefaultPositiveThreshold)
	v.SetDefault("sentiment.negative_threshold", DefaultNegativeThreshold)

	// Job defaults
	v.SetDefault("jobs.retention", DefaultJobRetention)
	v.SetDefault("jobs.failed_line_sample", DefaultFailedLineSample)
}
