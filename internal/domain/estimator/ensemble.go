package estimator

import (
	"context"
	"fmt"

	"gonum.org/v1/gonum/floats"
)

// Ensemble combines independently trained members by soft vote: member
// probability rows are averaged, and the hard label follows the averaged
// default probability.
type Ensemble struct {
	members []Estimator
}

// EnsembleOption applies a configuration option to the Ensemble.
type EnsembleOption func(*Ensemble)

// WithMembers replaces the default member set.
func WithMembers(members ...Estimator) EnsembleOption {
	return func(e *Ensemble) {
		if len(members) > 0 {
			e.members = members
		}
	}
}

// NewEnsemble creates the default soft-vote ensemble: a random forest plus
// two gradient-boosting variants, all deterministic from one seed.
func NewEnsemble(seed int64, workers int, opts ...EnsembleOption) *Ensemble {
	e := &Ensemble{
		members: []Estimator{
			NewForest(WithForestSeed(seed), WithForestWorkers(workers)),
			NewBoost(seed),
			NewShallowBoost(seed),
		},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name identifies the estimator in reports.
func (e *Ensemble) Name() string { return "ensemble" }

// Members exposes the base estimators for diagnostics.
func (e *Ensemble) Members() []Estimator {
	out := make([]Estimator, len(e.members))
	copy(out, e.members)
	return out
}

// Fit re-fits every member on the same matrix. A failing member aborts the
// whole fit; a partially fitted ensemble is never returned to callers because
// the orchestrator only persists on success.
func (e *Ensemble) Fit(ctx context.Context, x [][]float64, y []int) error {
	if err := checkMatrix(x, y); err != nil {
		return err
	}
	for _, m := range e.members {
		if err := m.Fit(ctx, x, y); err != nil {
			return fmt.Errorf("fit %s: %w", m.Name(), err)
		}
	}
	return nil
}

// PredictProba averages member probability rows.
func (e *Ensemble) PredictProba(x [][]float64) [][]float64 {
	out := make([][]float64, len(x))
	if len(e.members) == 0 {
		for i := range out {
			out[i] = []float64{0, 0}
		}
		return out
	}

	acc := make([][]float64, len(x))
	for i := range acc {
		acc[i] = make([]float64, 2)
	}
	for _, m := range e.members {
		rows := m.PredictProba(x)
		for i, row := range rows {
			floats.Add(acc[i], row)
		}
	}
	inv := 1 / float64(len(e.members))
	for i := range acc {
		floats.Scale(inv, acc[i])
		out[i] = acc[i]
	}
	return out
}

// Predict thresholds the soft-vote default probability at 0.5.
func (e *Ensemble) Predict(x [][]float64) []int {
	proba := e.PredictProba(x)
	out := make([]int, len(x))
	for i, row := range proba {
		if row[1] >= 0.5 {
			out[i] = 1
		}
	}
	return out
}

// ProbabilityFn adapts the ensemble to the single-callable contract used by
// attribution.
func (e *Ensemble) ProbabilityFn() ProbabilityFn {
	return e.PredictProba
}

// Fitted reports whether every member has been fitted.
func (e *Ensemble) Fitted() bool {
	if len(e.members) == 0 {
		return false
	}
	for _, m := range e.members {
		f, ok := m.(interface{ Fitted() bool })
		if !ok || !f.Fitted() {
			return false
		}
	}
	return true
}
