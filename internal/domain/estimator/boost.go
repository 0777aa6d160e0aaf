package estimator

import (
	"context"
	"fmt"
	"math"
	"math/rand"
)

// Gradient boosting over regression trees with logistic loss. Two presets
// mirror the original ensemble members: a deeper slow learner and a shallow
// fast one.

// Boost is a gradient-boosted classifier.
type Boost struct {
	Kind         string  `json:"kind"`
	Rounds       int     `json:"rounds"`
	LearningRate float64 `json:"learning_rate"`
	MaxDepth     int     `json:"max_depth"`
	MinLeaf      int     `json:"min_leaf"`
	Seed         int64   `json:"seed"`

	InitScore float64    `json:"init_score"`
	Trees     []*regTree `json:"trees,omitempty"`
}

// NewBoost creates the primary boosted learner (depth 3, 60 rounds).
func NewBoost(seed int64) *Boost {
	return &Boost{
		Kind:         "gradient_boost",
		Rounds:       60,
		LearningRate: 0.1,
		MaxDepth:     3,
		MinLeaf:      2,
		Seed:         seed,
	}
}

// NewShallowBoost creates the secondary boosted learner (depth 2, more
// rounds, smaller steps); it trades per-tree power for smoother averaging.
func NewShallowBoost(seed int64) *Boost {
	return &Boost{
		Kind:         "shallow_boost",
		Rounds:       100,
		LearningRate: 0.05,
		MaxDepth:     2,
		MinLeaf:      2,
		Seed:         seed,
	}
}

// Name identifies the estimator in reports.
func (b *Boost) Name() string { return b.Kind }

// Fit trains the boosted stage list from scratch on the full matrix.
func (b *Boost) Fit(ctx context.Context, x [][]float64, y []int) error {
	if err := checkMatrix(x, y); err != nil {
		return err
	}

	targets := labelsToTargets(y)
	n := len(x)

	// Initial score is the log-odds of the base rate, clamped so a
	// single-class batch stays finite.
	base := meanOf(targets)
	base = math.Min(math.Max(base, 1e-6), 1-1e-6)
	b.InitScore = math.Log(base / (1 - base))

	scores := make([]float64, n)
	for i := range scores {
		scores[i] = b.InitScore
	}

	residuals := make([]float64, n)
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}

	rng := rand.New(rand.NewSource(b.Seed)) //nolint:gosec // deterministic seed for reproducible training
	b.Trees = make([]*regTree, 0, b.Rounds)

	for round := 0; round < b.Rounds; round++ {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("boost fit cancelled at round %d: %w", round, err)
		}
		for i := range residuals {
			residuals[i] = targets[i] - sigmoid(scores[i])
		}
		tree := fitRegTree(x, residuals, idx, treeFitConfig{
			maxDepth: b.MaxDepth,
			minLeaf:  b.MinLeaf,
			rng:      rng,
		})
		b.Trees = append(b.Trees, tree)
		for i, row := range x {
			scores[i] += b.LearningRate * tree.predictRow(row)
		}
	}
	return nil
}

// PredictProba returns [p(repaid), p(default)] per row.
func (b *Boost) PredictProba(x [][]float64) [][]float64 {
	out := make([][]float64, len(x))
	for i, row := range x {
		out[i] = probaFromScore(sigmoid(b.scoreRow(row)))
	}
	return out
}

// Predict thresholds the default probability at 0.5.
func (b *Boost) Predict(x [][]float64) []int {
	out := make([]int, len(x))
	for i, row := range x {
		if sigmoid(b.scoreRow(row)) >= 0.5 {
			out[i] = 1
		}
	}
	return out
}

func (b *Boost) scoreRow(row []float64) float64 {
	s := b.InitScore
	for _, t := range b.Trees {
		s += b.LearningRate * t.predictRow(row)
	}
	return s
}

// Fitted reports whether Fit completed at least once.
func (b *Boost) Fitted() bool { return len(b.Trees) > 0 }

func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}
