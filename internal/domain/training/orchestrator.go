// Package training owns the model lifecycle: initial training, retraining
// from accumulated feedback, and offline model comparison.
package training

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"

	"github.com/okian/crisk/internal/adapters/artifact"
	"github.com/okian/crisk/internal/domain/estimator"
	"github.com/okian/crisk/internal/domain/feature"
	"github.com/okian/crisk/internal/domain/model"
	"github.com/okian/crisk/internal/domain/validate"
)

// DefaultBackgroundSize caps the background sample persisted with each
// version.
const DefaultBackgroundSize = 100

// Result summarizes a completed training run.
type Result struct {
	Status       string             `json:"status"`
	ModelVersion string             `json:"model_version"`
	Accuracy     float64            `json:"accuracy"`
	SamplesUsed  int                `json:"samples_used"`
	ClassBalance map[string]float64 `json:"class_balance,omitempty"`
	Collapsed    int                `json:"collapsed_duplicates,omitempty"`
}

// Orchestrator is the sole writer of model artifacts. A mutex serializes
// runs, so overlapping retrain requests queue rather than race on the store.
type Orchestrator struct {
	mu sync.Mutex

	store          artifact.Store
	gate           *validate.Gate
	seed           int64
	workers        int
	backgroundSize int
}

// New creates an Orchestrator writing to store.
func New(store artifact.Store, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		store:          store,
		gate:           validate.New(),
		seed:           estimator.DefaultSeed,
		backgroundSize: DefaultBackgroundSize,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Train fits a fresh ensemble on the historical dataset and commits it. The
// feature schema is derived from the codec, so the first version defines the
// layout every later retrain aligns to.
func (o *Orchestrator) Train(ctx context.Context, records []model.BorrowerRecord, labels []int) (*Result, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if len(records) == 0 {
		return nil, ErrNoTrainingData
	}
	if len(records) != len(labels) {
		return nil, fmt.Errorf("%w: %d records, %d labels", ErrNoTrainingData, len(records), len(labels))
	}

	schema, x := feature.EncodeBatch(records)
	return o.fitAndCommit(ctx, "trained", schema, x, labels, nil)
}

// Retrain validates the accumulated feedback, aligns it to the persisted
// schema, and fully re-fits the ensemble on it. Validation failure aborts
// before any artifact is touched.
func (o *Orchestrator) Retrain(ctx context.Context, raw []validate.RawRecord) (*Result, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	batch, err := o.gate.Validate(ctx, raw)
	if err != nil {
		return nil, err
	}

	borrowers := make([]model.BorrowerRecord, len(batch.Records))
	for i, rec := range batch.Records {
		borrowers[i] = rec.BorrowerRecord
	}
	names, x := feature.EncodeBatch(borrowers)

	schema, err := o.currentSchema(ctx)
	if err != nil {
		return nil, err
	}
	if schema != nil {
		x = feature.AlignBatch(names, x, schema)
	} else {
		schema = names
	}

	balance := make(map[string]float64, len(batch.ClassBalance))
	for label, frac := range batch.ClassBalance {
		balance[fmt.Sprintf("%d", label)] = frac
	}

	res, err := o.fitAndCommit(ctx, "retrained", schema, x, batch.Labels, balance)
	if err != nil {
		return nil, err
	}
	res.Collapsed = batch.Collapsed
	return res, nil
}

// currentSchema returns the persisted schema, or nil on cold start. An
// inconsistent triple on disk is treated as cold start too: the schema is
// regenerated and the next commit replaces the broken version.
func (o *Orchestrator) currentSchema(ctx context.Context) ([]string, error) {
	snap, err := o.store.Load(ctx)
	if err == nil {
		return snap.Schema, nil
	}
	if errors.Is(err, artifact.ErrNoModel) {
		return nil, nil
	}
	var mismatch *artifact.SchemaMismatchError
	if errors.As(err, &mismatch) {
		return nil, nil
	}
	return nil, err
}

func (o *Orchestrator) fitAndCommit(
	ctx context.Context,
	status string,
	schema []string,
	x [][]float64,
	labels []int,
	balance map[string]float64,
) (*Result, error) {
	ens := estimator.NewEnsemble(o.seed, o.workers)
	if err := ens.Fit(ctx, x, labels); err != nil {
		return nil, &FitError{Stage: "ensemble", Err: err}
	}

	accuracy := estimator.Accuracy(ens.Predict(x), labels)
	background := backgroundSample(x, o.backgroundSize, o.seed)

	version, err := o.store.Commit(ctx, &artifact.Snapshot{
		Ensemble:   ens,
		Schema:     schema,
		Background: background,
		Meta: artifact.Meta{
			Accuracy:     accuracy,
			SamplesUsed:  len(labels),
			ClassBalance: balance,
		},
	})
	if err != nil {
		return nil, err
	}

	return &Result{
		Status:       status,
		ModelVersion: version,
		Accuracy:     accuracy,
		SamplesUsed:  len(labels),
		ClassBalance: balance,
	}, nil
}

// backgroundSample picks a deterministic random subsample of at most size
// rows as the attribution reference distribution.
func backgroundSample(x [][]float64, size int, seed int64) [][]float64 {
	if len(x) <= size {
		out := make([][]float64, len(x))
		copy(out, x)
		return out
	}
	rng := rand.New(rand.NewSource(seed))
	perm := rng.Perm(len(x))
	out := make([][]float64, size)
	for i := 0; i < size; i++ {
		out[i] = x[perm[i]]
	}
	return out
}
