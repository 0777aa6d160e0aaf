// Package explain computes per-feature attributions for a scored record,
// relative to the background sample persisted next to the model.
package explain

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/okian/crisk/internal/domain/estimator"
	"github.com/okian/crisk/internal/domain/model"
)

// DefaultTopFeatures bounds how many attributions a report carries.
const DefaultTopFeatures = 5

// Result is the raw attribution output before presentation shaping.
type Result struct {
	BaseValue    float64
	Attributions []model.Attribution
}

// Explainer attributes the default probability of a single aligned feature
// vector. It needs only a probability callable, never the model object, so
// any estimator with probability output can be explained.
type Explainer struct {
	top int
}

// Option applies a configuration option to the Explainer.
type Option func(*Explainer)

// WithTopFeatures overrides how many ranked attributions are returned.
func WithTopFeatures(n int) Option {
	return func(e *Explainer) {
		if n > 0 {
			e.top = n
		}
	}
}

// New creates an Explainer with default configuration.
func New(opts ...Option) *Explainer {
	e := &Explainer{top: DefaultTopFeatures}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Explain perturbs each feature of row toward the background distribution and
// measures the shift in default probability. The base value is the mean
// default probability over the background sample.
//
// attribution(j) = mean over background rows b of
//
//	p(default | row) - p(default | row with feature j replaced by b_j)
//
// Positive values push toward default, negative toward repaid.
func (e *Explainer) Explain(
	ctx context.Context,
	fn estimator.ProbabilityFn,
	schema []string,
	row []float64,
	background [][]float64,
) (*Result, error) {
	if len(schema) != len(row) {
		return nil, fmt.Errorf("%w: schema width %d, row width %d", ErrShapeMismatch, len(schema), len(row))
	}
	if len(background) == 0 {
		return nil, ErrNoBackground
	}
	for _, b := range background {
		if len(b) != len(row) {
			return nil, fmt.Errorf("%w: background width %d, row width %d", ErrShapeMismatch, len(b), len(row))
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("explain cancelled: %w", err)
	}

	base := meanDefault(fn(background))
	own := fn([][]float64{row})[0][1]

	attrs := make([]model.Attribution, len(schema))
	perturbed := make([][]float64, len(background))
	for j, name := range schema {
		for k, b := range background {
			p := make([]float64, len(row))
			copy(p, row)
			p[j] = b[j]
			perturbed[k] = p
		}
		shift := own - meanDefault(fn(perturbed))
		attrs[j] = model.Attribution{Feature: name, Value: shift}
	}

	sort.SliceStable(attrs, func(a, b int) bool {
		return math.Abs(attrs[a].Value) > math.Abs(attrs[b].Value)
	})
	if len(attrs) > e.top {
		attrs = attrs[:e.top]
	}

	return &Result{BaseValue: base, Attributions: attrs}, nil
}

// Summarize renders the ranked attributions as human-readable lines.
func Summarize(attrs []model.Attribution) []string {
	out := make([]string, len(attrs))
	for i, a := range attrs {
		direction := "lowers risk"
		if a.Value > 0 {
			direction = "raises risk"
		}
		out[i] = fmt.Sprintf("%s: %s (%+.3f)", a.Feature, direction, a.Value)
	}
	return out
}

func meanDefault(proba [][]float64) float64 {
	if len(proba) == 0 {
		return 0
	}
	sum := 0.0
	for _, row := range proba {
		sum += row[1]
	}
	return sum / float64(len(proba))
}
