// Package estimator provides the pluggable base learners and the soft-vote
// ensemble used by the training orchestrator. Every estimator honors the same
// contract (fit, predict, predict probabilities) so the orchestrator never
// depends on a concrete algorithm.
package estimator

import (
	"context"

	"gonum.org/v1/gonum/floats"
)

// DefaultSeed keeps every randomized learner reproducible across retrains.
const DefaultSeed = 42

// Estimator is the uniform contract for a binary classifier over fixed-width
// feature matrices. Labels are 0 (repaid) and 1 (default).
type Estimator interface {
	// Name identifies the estimator in reports and logs.
	Name() string

	// Fit trains the estimator from scratch on the full matrix. Estimators
	// do not support partial fit; every call replaces the learned state.
	Fit(ctx context.Context, x [][]float64, y []int) error

	// Predict returns hard labels for each row.
	Predict(x [][]float64) []int

	// PredictProba returns [p(repaid), p(default)] per row.
	PredictProba(x [][]float64) [][]float64
}

// ProbabilityFn exposes a fitted model as a single callable over batches.
// Attribution code consumes this instead of the ensemble object so any model
// with probability output can be explained.
type ProbabilityFn func(x [][]float64) [][]float64

// Accuracy is the fraction of rows whose predicted label matches y.
func Accuracy(predicted, y []int) float64 {
	if len(predicted) == 0 || len(predicted) != len(y) {
		return 0
	}
	hits := 0
	for i, p := range predicted {
		if p == y[i] {
			hits++
		}
	}
	return float64(hits) / float64(len(predicted))
}

// labelsToTargets converts 0/1 labels to float targets for regression trees.
func labelsToTargets(y []int) []float64 {
	out := make([]float64, len(y))
	for i, v := range y {
		out[i] = float64(v)
	}
	return out
}

// probaFromScore maps a default probability to the two-class wire shape.
func probaFromScore(p float64) []float64 {
	p = clamp01(p)
	return []float64{1 - p, p}
}

func clamp01(p float64) float64 {
	if p < 0 {
		return 0
	}
	if p > 1 {
		return 1
	}
	return p
}

// meanOf averages a slice; empty input yields 0.
func meanOf(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	return floats.Sum(xs) / float64(len(xs))
}

// checkMatrix validates the training input shape.
func checkMatrix(x [][]float64, y []int) error {
	if len(x) == 0 {
		return ErrEmptyMatrix
	}
	if len(x) != len(y) {
		return ErrDimensionMismatch
	}
	width := len(x[0])
	if width == 0 {
		return ErrEmptyMatrix
	}
	for _, row := range x {
		if len(row) != width {
			return ErrDimensionMismatch
		}
	}
	return nil
}
