package training

import (
	"context"
	"fmt"
	"math/rand"
	"sort"

	"gonum.org/v1/gonum/integrate"
	"gonum.org/v1/gonum/stat"

	"github.com/okian/crisk/internal/domain/estimator"
	"github.com/okian/crisk/internal/domain/feature"
	"github.com/okian/crisk/internal/domain/model"
)

// ModelReport carries the holdout metrics for one candidate model.
type ModelReport struct {
	Model    string  `json:"model"`
	Accuracy float64 `json:"accuracy"`
	AUC      float64 `json:"auc"`
}

// Report is the result of an offline model comparison run.
type Report struct {
	Results      []ModelReport `json:"results"`
	TrainSamples int           `json:"train_samples"`
	TestSamples  int           `json:"test_samples"`
}

// Compare fits each base estimator and the soft-vote ensemble on a stratified
// 80/20 split and scores them on the holdout. Purely diagnostic: persisted
// artifacts are never read or written.
func (o *Orchestrator) Compare(ctx context.Context, records []model.BorrowerRecord, labels []int) (*Report, error) {
	if len(records) == 0 {
		return nil, ErrNoTrainingData
	}
	if len(records) != len(labels) {
		return nil, fmt.Errorf("%w: %d records, %d labels", ErrNoTrainingData, len(records), len(labels))
	}

	_, x := feature.EncodeBatch(records)
	trainIdx, testIdx := stratifiedSplit(labels, 0.2, o.seed)
	if len(trainIdx) == 0 || len(testIdx) == 0 {
		return nil, fmt.Errorf("%w: holdout split left an empty side", ErrNoTrainingData)
	}

	xTrain, yTrain := subset(x, labels, trainIdx)
	xTest, yTest := subset(x, labels, testIdx)

	candidates := []estimator.Estimator{
		estimator.NewForest(estimator.WithForestSeed(o.seed), estimator.WithForestWorkers(o.workers)),
		estimator.NewBoost(o.seed),
		estimator.NewShallowBoost(o.seed),
		estimator.NewEnsemble(o.seed, o.workers),
	}

	report := &Report{
		TrainSamples: len(trainIdx),
		TestSamples:  len(testIdx),
	}
	for _, cand := range candidates {
		if err := cand.Fit(ctx, xTrain, yTrain); err != nil {
			return nil, &FitError{Stage: cand.Name(), Err: err}
		}
		proba := cand.PredictProba(xTest)
		scores := make([]float64, len(proba))
		for i, p := range proba {
			scores[i] = p[1]
		}
		report.Results = append(report.Results, ModelReport{
			Model:    cand.Name(),
			Accuracy: estimator.Accuracy(cand.Predict(xTest), yTest),
			AUC:      rocAUC(scores, yTest),
		})
	}
	return report, nil
}

// stratifiedSplit shuffles each class independently and holds out testFrac of
// it, so the holdout keeps the class proportions of the input.
func stratifiedSplit(labels []int, testFrac float64, seed int64) (train, test []int) {
	byClass := map[int][]int{}
	for i, y := range labels {
		byClass[y] = append(byClass[y], i)
	}

	classes := make([]int, 0, len(byClass))
	for y := range byClass {
		classes = append(classes, y)
	}
	sort.Ints(classes)

	rng := rand.New(rand.NewSource(seed))
	for _, y := range classes {
		idx := byClass[y]
		rng.Shuffle(len(idx), func(a, b int) { idx[a], idx[b] = idx[b], idx[a] })
		cut := int(float64(len(idx)) * testFrac)
		if cut == 0 && len(idx) > 1 {
			cut = 1
		}
		test = append(test, idx[:cut]...)
		train = append(train, idx[cut:]...)
	}
	sort.Ints(train)
	sort.Ints(test)
	return train, test
}

func subset(x [][]float64, labels []int, idx []int) ([][]float64, []int) {
	xs := make([][]float64, len(idx))
	ys := make([]int, len(idx))
	for i, j := range idx {
		xs[i] = x[j]
		ys[i] = labels[j]
	}
	return xs, ys
}

// rocAUC computes the area under the ROC curve for default scores against
// observed labels.
func rocAUC(scores []float64, labels []int) float64 {
	type pair struct {
		score float64
		pos   bool
	}
	pairs := make([]pair, len(scores))
	for i, s := range scores {
		pairs[i] = pair{score: s, pos: labels[i] == model.StatusDefault}
	}
	sort.Slice(pairs, func(a, b int) bool { return pairs[a].score < pairs[b].score })

	y := make([]float64, len(pairs))
	classes := make([]bool, len(pairs))
	for i, p := range pairs {
		y[i] = p.score
		classes[i] = p.pos
	}

	tpr, fpr, _ := stat.ROC(nil, y, classes, nil)
	return integrate.Trapezoidal(fpr, tpr)
}
