package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):.
//  1. defaults (New())
//  2. file (YAML) if CRISK_CONFIG is set
//  3. env (prefix CRISK_)
func Load(ctx context.Context) (*Config, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	k := koanf.New(".")

	// Load from file if provided
	if path := os.Getenv("CRISK_CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrLoadConfig, err)
		}
	}

	// Environment variables: CRISK_ADDR, CRISK_MIN_SAMPLES, ...
	// Map env keys like CRISK_MIN_SAMPLES -> min_samples (flat keys)
	// Preserve underscores to match koanf tags on the struct.
	envProvider := env.Provider("CRISK_", ".", func(s string) string {
		s = strings.ToLower(s)
		s = strings.TrimPrefix(s, "crisk_")
		return s
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoadConfig, err)
	}

	// Unmarshal over a copy of the defaults
	cfg := *New()
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoadConfig, err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.ArtifactDir == "":
		return fmt.Errorf("%w: artifact_dir must not be empty", ErrInvalidConfig)
	case c.FeedbackPath == "":
		return fmt.Errorf("%w: feedback_path must not be empty", ErrInvalidConfig)
	case c.MinSamples < 1:
		return fmt.Errorf("%w: min_samples must be positive", ErrInvalidConfig)
	case c.MinMinorityFraction <= 0 || c.MinMinorityFraction >= 1:
		return fmt.Errorf("%w: min_minority_fraction must be in (0, 1)", ErrInvalidConfig)
	case c.AutoRetrainThreshold < 0:
		return fmt.Errorf("%w: auto_retrain_threshold must not be negative", ErrInvalidConfig)
	case c.BackgroundSize < 1:
		return fmt.Errorf("%w: background_size must be positive", ErrInvalidConfig)
	case c.TopFeatures < 1:
		return fmt.Errorf("%w: top_features must be positive", ErrInvalidConfig)
	case c.FitWorkers < 1:
		return fmt.Errorf("%w: fit_workers must be positive", ErrInvalidConfig)
	}
	return nil
}
