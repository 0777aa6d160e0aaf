package training

import "github.com/okian/crisk/internal/domain/validate"

// Option applies a configuration option to the Orchestrator.
type Option func(*Orchestrator)

// WithGate overrides the validation gate applied to retraining input.
func WithGate(g *validate.Gate) Option {
	return func(o *Orchestrator) {
		if g != nil {
			o.gate = g
		}
	}
}

// WithSeed overrides the seed shared by every randomized training step.
func WithSeed(seed int64) Option {
	return func(o *Orchestrator) {
		o.seed = seed
	}
}

// WithWorkers bounds the concurrency used for fitting forest trees.
func WithWorkers(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.workers = n
		}
	}
}

// WithBackgroundSize caps the persisted background sample.
func WithBackgroundSize(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.backgroundSize = n
		}
	}
}
