package estimator

import (
	"math/rand"
	"sort"
)

// regression tree used as the shared base learner: forests average leaf means
// of 0/1 targets, boosting fits trees to loss gradients. Splitting criterion
// is variance reduction, which on binary targets is equivalent to gini.

// treeNode is one node of a fitted tree. Exported fields keep the tree
// JSON-serializable for the artifact store.
type treeNode struct {
	Feature   int       `json:"f,omitempty"`
	Threshold float64   `json:"t,omitempty"`
	Left      *treeNode `json:"l,omitempty"`
	Right     *treeNode `json:"r,omitempty"`
	Leaf      bool      `json:"leaf,omitempty"`
	Value     float64   `json:"v"`
}

type regTree struct {
	Root     *treeNode `json:"root"`
	MaxDepth int       `json:"max_depth"`
	MinLeaf  int       `json:"min_leaf"`
}

// treeFitConfig controls one fit pass.
type treeFitConfig struct {
	maxDepth int
	minLeaf  int
	// mtry caps how many candidate features each split considers;
	// <= 0 means all features.
	mtry int
	rng  *rand.Rand
}

func fitRegTree(x [][]float64, targets []float64, idx []int, cfg treeFitConfig) *regTree {
	t := &regTree{MaxDepth: cfg.maxDepth, MinLeaf: cfg.minLeaf}
	t.Root = buildNode(x, targets, idx, cfg.maxDepth, cfg)
	return t
}

func buildNode(x [][]float64, targets []float64, idx []int, depth int, cfg treeFitConfig) *treeNode {
	mean := subsetMean(targets, idx)
	if depth <= 0 || len(idx) < 2*cfg.minLeaf {
		return &treeNode{Leaf: true, Value: mean}
	}

	feat, thresh, ok := bestSplit(x, targets, idx, cfg)
	if !ok {
		return &treeNode{Leaf: true, Value: mean}
	}

	var left, right []int
	for _, i := range idx {
		if x[i][feat] <= thresh {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}
	if len(left) < cfg.minLeaf || len(right) < cfg.minLeaf {
		return &treeNode{Leaf: true, Value: mean}
	}

	return &treeNode{
		Feature:   feat,
		Threshold: thresh,
		Value:     mean,
		Left:      buildNode(x, targets, left, depth-1, cfg),
		Right:     buildNode(x, targets, right, depth-1, cfg),
	}
}

// bestSplit scans candidate features for the threshold with the highest
// variance reduction. Returns ok=false when no admissible split improves on
// the parent node.
func bestSplit(x [][]float64, targets []float64, idx []int, cfg treeFitConfig) (int, float64, bool) {
	width := len(x[idx[0]])
	candidates := candidateFeatures(width, cfg)

	var (
		bestFeat   = -1
		bestThresh float64
		bestScore  float64
	)

	// Parent sum of squared deviations baseline via totals.
	total := 0.0
	for _, i := range idx {
		total += targets[i]
	}
	n := float64(len(idx))

	type pair struct {
		v, t float64
	}
	pairs := make([]pair, len(idx))

	for _, feat := range candidates {
		for k, i := range idx {
			pairs[k] = pair{v: x[i][feat], t: targets[i]}
		}
		sort.Slice(pairs, func(a, b int) bool { return pairs[a].v < pairs[b].v })

		leftSum := 0.0
		for k := 0; k < len(pairs)-1; k++ {
			leftSum += pairs[k].t
			if pairs[k].v == pairs[k+1].v {
				continue
			}
			nl := float64(k + 1)
			nr := n - nl
			if int(nl) < cfg.minLeaf || int(nr) < cfg.minLeaf {
				continue
			}
			rightSum := total - leftSum
			// Variance reduction up to constants: sum of per-side
			// (mean^2 * count) grows as the split gets purer.
			score := leftSum*leftSum/nl + rightSum*rightSum/nr
			if bestFeat == -1 || score > bestScore {
				bestFeat = feat
				bestThresh = (pairs[k].v + pairs[k+1].v) / 2
				bestScore = score
			}
		}
	}

	if bestFeat == -1 {
		return 0, 0, false
	}
	// Reject splits that do not improve on the parent.
	parentScore := total * total / n
	if bestScore <= parentScore+1e-12 {
		return 0, 0, false
	}
	return bestFeat, bestThresh, true
}

// candidateFeatures picks mtry distinct feature indices, or all of them.
func candidateFeatures(width int, cfg treeFitConfig) []int {
	if cfg.mtry <= 0 || cfg.mtry >= width || cfg.rng == nil {
		out := make([]int, width)
		for i := range out {
			out[i] = i
		}
		return out
	}
	perm := cfg.rng.Perm(width)
	out := perm[:cfg.mtry]
	sort.Ints(out)
	return out
}

func subsetMean(targets []float64, idx []int) float64 {
	if len(idx) == 0 {
		return 0
	}
	sum := 0.0
	for _, i := range idx {
		sum += targets[i]
	}
	return sum / float64(len(idx))
}

func (t *regTree) predictRow(row []float64) float64 {
	n := t.Root
	for n != nil && !n.Leaf {
		if n.Left == nil || n.Right == nil {
			break
		}
		if row[n.Feature] <= n.Threshold {
			n = n.Left
		} else {
			n = n.Right
		}
	}
	if n == nil {
		return 0
	}
	return n.Value
}
