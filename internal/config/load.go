package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable override,
// e.g. RESSPECT_LOG_LEVEL or RESSPECT_DATABASE_URL.
const EnvPrefix = "RESSPECT"

// ErrValidation is wrapped by every error produced by configuration validation.
var ErrValidation = errors.New("validation failed")

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validator returns the shared validator instance so stage options are
// checked with the same rules as the configuration.
func Validator() *validator.Validate {
	return validate
}

// setDefaults registers the default value of every key so that environment
// variables can override keys that never appear in a config file.
func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size_mb", 100)
	v.SetDefault("log.max_backups", 3)
	v.SetDefault("log.max_age_days", 28)

	v.SetDefault("database.url", "")

	v.SetDefault("fit.workers", 4)
	v.SetDefault("fit.queue_size", 1024)
	v.SetDefault("fit.max_iterations", 2000)

	v.SetDefault("loop.classifier", "RandomForest")
	v.SetDefault("loop.strategy", "UncertaintySampling")
	v.SetDefault("loop.batch", 1)
	v.SetDefault("loop.seed", 42)
	v.SetDefault("loop.n_estimators", 100)
}

// Load reads configuration from defaults, an optional YAML file and
// environment variables, in increasing order of precedence.
// An empty path skips the file; a path that does not exist is an error.
// Returns a populated Config struct or an error if loading/validation fails.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks cfg against its struct tags.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	return nil
}
