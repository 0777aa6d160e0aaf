package estimator

import (
	"context"
	"fmt"
	"math"
	"math/rand"
)

// Default forest hyperparameters.
const (
	defaultForestTrees   = 50
	defaultForestDepth   = 8
	defaultForestMinLeaf = 2
	// seedStride decorrelates per-tree RNG streams derived from one seed.
	seedStride = 7919
)

// Forest is a random forest of regression trees over 0/1 targets. Averaging
// leaf means across trees yields the default probability directly.
type Forest struct {
	NumTrees int   `json:"num_trees"`
	MaxDepth int   `json:"max_depth"`
	MinLeaf  int   `json:"min_leaf"`
	Seed     int64 `json:"seed"`

	Trees []*regTree `json:"trees,omitempty"`

	workers int
}

// ForestOption applies a configuration option to the Forest.
type ForestOption func(*Forest)

// WithForestTrees sets the number of trees.
func WithForestTrees(n int) ForestOption {
	return func(f *Forest) {
		if n > 0 {
			f.NumTrees = n
		}
	}
}

// WithForestDepth sets the maximum tree depth.
func WithForestDepth(d int) ForestOption {
	return func(f *Forest) {
		if d > 0 {
			f.MaxDepth = d
		}
	}
}

// WithForestSeed overrides the deterministic seed.
func WithForestSeed(seed int64) ForestOption {
	return func(f *Forest) {
		f.Seed = seed
	}
}

// WithForestWorkers bounds concurrent tree fitting.
func WithForestWorkers(n int) ForestOption {
	return func(f *Forest) {
		if n > 0 {
			f.workers = n
		}
	}
}

// NewForest creates a forest with deterministic defaults.
func NewForest(opts ...ForestOption) *Forest {
	f := &Forest{
		NumTrees: defaultForestTrees,
		MaxDepth: defaultForestDepth,
		MinLeaf:  defaultForestMinLeaf,
		Seed:     DefaultSeed,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Name identifies the estimator in reports.
func (f *Forest) Name() string { return "random_forest" }

// Fit trains all trees on bootstrap resamples with sqrt-width feature
// subsampling per split. Trees train concurrently; each derives its RNG from
// the forest seed and its index, so results do not depend on scheduling.
func (f *Forest) Fit(ctx context.Context, x [][]float64, y []int) error {
	if err := checkMatrix(x, y); err != nil {
		return err
	}
	targets := labelsToTargets(y)
	width := len(x[0])
	mtry := int(math.Ceil(math.Sqrt(float64(width))))

	trees := make([]*regTree, f.NumTrees)
	jobs := make([]func() error, f.NumTrees)
	for i := 0; i < f.NumTrees; i++ {
		i := i
		jobs[i] = func() error {
			rng := rand.New(rand.NewSource(f.Seed + int64(i)*seedStride)) //nolint:gosec // deterministic seed for reproducible training
			idx := bootstrapIndices(rng, len(x))
			trees[i] = fitRegTree(x, targets, idx, treeFitConfig{
				maxDepth: f.MaxDepth,
				minLeaf:  f.MinLeaf,
				mtry:     mtry,
				rng:      rng,
			})
			return nil
		}
	}

	if err := newFitPool(f.workers).run(ctx, jobs); err != nil {
		return fmt.Errorf("forest fit: %w", err)
	}
	f.Trees = trees
	return nil
}

// PredictProba averages tree outputs into [p(repaid), p(default)] rows.
func (f *Forest) PredictProba(x [][]float64) [][]float64 {
	out := make([][]float64, len(x))
	for i, row := range x {
		out[i] = probaFromScore(f.scoreRow(row))
	}
	return out
}

// Predict thresholds the default probability at 0.5.
func (f *Forest) Predict(x [][]float64) []int {
	out := make([]int, len(x))
	for i, row := range x {
		if f.scoreRow(row) >= 0.5 {
			out[i] = 1
		}
	}
	return out
}

func (f *Forest) scoreRow(row []float64) float64 {
	if len(f.Trees) == 0 {
		return 0
	}
	scores := make([]float64, len(f.Trees))
	for i, t := range f.Trees {
		scores[i] = t.predictRow(row)
	}
	return meanOf(scores)
}

// Fitted reports whether Fit completed at least once.
func (f *Forest) Fitted() bool { return len(f.Trees) > 0 }

func bootstrapIndices(rng *rand.Rand, n int) []int {
	idx := make([]int, n)
	for i := range idx {
		idx[i] = rng.Intn(n)
	}
	return idx
}
