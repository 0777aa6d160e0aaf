package service

import "github.com/okian/crisk/pkg/logger"

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLogger sets a custom logger for the service.
func WithLogger(log logger.Logger) Option {
	return func(s *Service) {
		if log != nil {
			s.logger = log
		}
	}
}

// WithDataPath points the service at the historical loan dataset.
func WithDataPath(path string) Option {
	return func(s *Service) {
		if path != "" {
			s.dataPath = path
		}
	}
}

// WithArtifactDir sets the root of the model artifact store.
func WithArtifactDir(dir string) Option {
	return func(s *Service) {
		if dir != "" {
			s.artifactDir = dir
		}
	}
}

// WithFeedbackPath sets the feedback log location.
func WithFeedbackPath(path string) Option {
	return func(s *Service) {
		if path != "" {
			s.feedbackPath = path
		}
	}
}

// WithMinSamples sets the smallest admissible retraining batch.
func WithMinSamples(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.minSamples = n
		}
	}
}

// WithMinMinorityFraction sets the class-balance floor for retraining.
func WithMinMinorityFraction(f float64) Option {
	return func(s *Service) {
		if f > 0 && f < 1 {
			s.minMinorityFraction = f
		}
	}
}

// WithAutoRetrainThreshold sets how much accumulated feedback triggers an
// automatic retrain. Zero disables auto-retraining.
func WithAutoRetrainThreshold(n int) Option {
	return func(s *Service) {
		if n >= 0 {
			s.autoRetrainThreshold = n
		}
	}
}

// WithBackgroundSize caps the persisted background sample.
func WithBackgroundSize(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.backgroundSize = n
		}
	}
}

// WithTopFeatures sets how many attributions an explanation reports.
func WithTopFeatures(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.topFeatures = n
		}
	}
}

// WithFitWorkers bounds concurrent tree fitting during training.
func WithFitWorkers(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.fitWorkers = n
		}
	}
}

// WithSeed overrides the seed for every randomized training step.
func WithSeed(seed int64) Option {
	return func(s *Service) {
		s.seed = seed
	}
}

// WithDedupeSize sets the size of the feedback idempotency cache.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}
