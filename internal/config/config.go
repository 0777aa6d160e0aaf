// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() initializer to build a Config with defaults.
// - External errors must be wrapped via this package's error helpers.
package config

import "runtime"

// Config contains process configuration. Extend as needed.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// DataPath points at the historical loan dataset CSV.
	DataPath string `koanf:"data_path"`

	// ArtifactDir is the root of the versioned model artifact store.
	ArtifactDir string `koanf:"artifact_dir"`

	// FeedbackPath is the JSONL feedback log location.
	FeedbackPath string `koanf:"feedback_path"`

	// MinSamples is the smallest admissible retraining batch.
	MinSamples int `koanf:"min_samples"`

	// MinMinorityFraction is the class-balance floor for retraining batches.
	MinMinorityFraction float64 `koanf:"min_minority_fraction"`

	// AutoRetrainThreshold is how much accumulated feedback triggers an
	// automatic retrain. Zero disables auto-retraining.
	AutoRetrainThreshold int `koanf:"auto_retrain_threshold"`

	// BackgroundSize caps the background sample stored with each version.
	BackgroundSize int `koanf:"background_size"`

	// TopFeatures is how many attributions an explanation reports.
	TopFeatures int `koanf:"top_features"`

	// FitWorkers bounds concurrent tree fitting during training.
	FitWorkers int `koanf:"fit_workers"`

	// Seed drives every randomized training step.
	Seed int64 `koanf:"seed"`

	// DedupeSize sets the size of the feedback idempotency cache.
	DedupeSize int `koanf:"dedupe_size"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:             "info",
		Addr:                 ":9080",
		DataPath:             "data/credit_risk_dataset.csv",
		ArtifactDir:          "artifacts",
		FeedbackPath:         "data/feedback.jsonl",
		MinSamples:           5,
		MinMinorityFraction:  0.1,
		AutoRetrainThreshold: 10,
		BackgroundSize:       100,
		TopFeatures:          5,
		FitWorkers:           runtime.NumCPU(),
		Seed:                 42,
		DedupeSize:           500_000,
	}
}
