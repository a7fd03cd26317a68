package config

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Log      LogConfig      `mapstructure:"log" validate:"required"`
	Database DatabaseConfig `mapstructure:"database"`
	Fit      FitConfig      `mapstructure:"fit" validate:"required"`
	Loop     LoopConfig     `mapstructure:"loop" validate:"required"`
}

// LogConfig contains all logging-related configuration settings.
type LogConfig struct {
	Level  string `mapstructure:"level" validate:"required,oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"required,oneof=json text"`
	// File switches output from stdout to a rotating log file.
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb" validate:"gte=0"`
	MaxBackups int    `mapstructure:"max_backups" validate:"gte=0"`
	MaxAgeDays int    `mapstructure:"max_age_days" validate:"gte=0"`
}

// DatabaseConfig contains the optional results database settings.
// An empty URL disables the Postgres sink; results still go to files.
type DatabaseConfig struct {
	URL string `mapstructure:"url" validate:"omitempty,url"`
}

// FitConfig contains light-curve fitting settings.
type FitConfig struct {
	Workers   int `mapstructure:"workers" validate:"gt=0,lte=256"`
	QueueSize int `mapstructure:"queue_size" validate:"gt=0"`
	// MaxIterations bounds the optimizer per filter.
	MaxIterations int `mapstructure:"max_iterations" validate:"gt=0"`
}

// LoopConfig contains defaults for the active-learning loops.
type LoopConfig struct {
	Classifier  string `mapstructure:"classifier" validate:"required,oneof=RandomForest KNN GaussianNB"`
	Strategy    string `mapstructure:"strategy" validate:"required,oneof=RandomSampling UncertaintySampling EntropySampling LeastConfident MarginSampling"`
	Batch       int    `mapstructure:"batch" validate:"gt=0"`
	Seed        int64  `mapstructure:"seed"`
	NEstimators int    `mapstructure:"n_estimators" validate:"gt=0"`
}
