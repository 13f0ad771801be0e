package ensemble

import (
	"math"
	"math/rand/v2"
	"sort"

	"gonum.org/v1/gonum/mat"
)

// TreeNode is one node of a fitted regression tree. Fields are exported
// for gob encoding.
type TreeNode struct {
	IsLeaf    bool
	Feature   int
	Threshold float64
	Left      *TreeNode
	Right     *TreeNode
	Value     float64 // mean target at this node
	Impurity  float64 // target variance at this node
	NSamples  int
}

// Predict walks the tree for one feature row.
func (n *TreeNode) Predict(row []float64) float64 {
	node := n
	for !node.IsLeaf {
		if row[node.Feature] <= node.Threshold {
			node = node.Left
		} else {
			node = node.Right
		}
	}
	return node.Value
}

// treeParams are the stopping and sampling controls shared by the tree
// learners.
type treeParams struct {
	MaxDepth        int
	MinSamplesSplit int
	MinSamplesLeaf  int
	MaxFeatures     int // features considered per split, <=0 means all
}

// treeBuilder grows a variance-reduction regression tree over row indices
// into a shared design matrix, accumulating impurity-decrease feature
// importances as it splits.
type treeBuilder struct {
	params      treeParams
	x           [][]float64 // row major
	y           []float64
	rng         *rand.Rand
	importances []float64
}

func newTreeBuilder(x [][]float64, y []float64, params treeParams, rng *rand.Rand) *treeBuilder {
	nFeatures := 0
	if len(x) > 0 {
		nFeatures = len(x[0])
	}
	return &treeBuilder{
		params:      params,
		x:           x,
		y:           y,
		rng:         rng,
		importances: make([]float64, nFeatures),
	}
}

func (b *treeBuilder) build(idx []int) *TreeNode {
	return b.buildNode(idx, 0)
}

func (b *treeBuilder) buildNode(idx []int, depth int) *TreeNode {
	n := len(idx)
	sum, sumSq := 0.0, 0.0
	for _, i := range idx {
		sum += b.y[i]
		sumSq += b.y[i] * b.y[i]
	}
	mean := sum / float64(n)
	sse := sumSq - sum*sum/float64(n)
	if sse < 0 {
		sse = 0
	}

	node := &TreeNode{
		Value:    mean,
		Impurity: sse / float64(n),
		NSamples: n,
	}

	if (b.params.MaxDepth > 0 && depth >= b.params.MaxDepth) ||
		n < b.params.MinSamplesSplit || node.Impurity == 0 {
		node.IsLeaf = true
		return node
	}

	feature, threshold, decrease := b.findBestSplit(idx, sse)
	if feature < 0 {
		node.IsLeaf = true
		return node
	}

	var left, right []int
	for _, i := range idx {
		if b.x[i][feature] <= threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}
	if len(left) < b.params.MinSamplesLeaf || len(right) < b.params.MinSamplesLeaf {
		node.IsLeaf = true
		return node
	}

	node.Feature = feature
	node.Threshold = threshold
	b.importances[feature] += decrease

	node.Left = b.buildNode(left, depth+1)
	node.Right = b.buildNode(right, depth+1)
	return node
}

// candidateFeatures returns the feature indices to scan at one split.
func (b *treeBuilder) candidateFeatures() []int {
	nFeatures := len(b.importances)
	k := b.params.MaxFeatures
	if k <= 0 || k >= nFeatures {
		all := make([]int, nFeatures)
		for j := range all {
			all[j] = j
		}
		return all
	}
	return b.rng.Perm(nFeatures)[:k]
}

// findBestSplit scans the candidate features for the threshold with the
// largest sum-of-squares reduction. Sorted prefix sums evaluate every
// boundary between distinct values in one pass.
func (b *treeBuilder) findBestSplit(idx []int, parentSSE float64) (int, float64, float64) {
	n := len(idx)
	bestFeature := -1
	bestThreshold := 0.0
	bestDecrease := 1e-12

	values := make([]float64, n)
	targets := make([]float64, n)
	order := make([]int, n)

	for _, feature := range b.candidateFeatures() {
		for i, r := range idx {
			values[i] = b.x[r][feature]
			order[i] = i
		}
		sort.Slice(order, func(a, c int) bool { return values[order[a]] < values[order[c]] })
		for i, o := range order {
			targets[i] = b.y[idx[o]]
		}

		sumL, sumSqL := 0.0, 0.0
		totalSum, totalSumSq := 0.0, 0.0
		for _, t := range targets {
			totalSum += t
			totalSumSq += t * t
		}

		for i := 0; i < n-1; i++ {
			t := targets[i]
			sumL += t
			sumSqL += t * t

			v, next := values[order[i]], values[order[i+1]]
			if v == next {
				continue
			}
			nL, nR := i+1, n-i-1
			if nL < b.params.MinSamplesLeaf || nR < b.params.MinSamplesLeaf {
				continue
			}

			sumR := totalSum - sumL
			sseL := sumSqL - sumL*sumL/float64(nL)
			sseR := (totalSumSq - sumSqL) - sumR*sumR/float64(nR)
			decrease := parentSSE - sseL - sseR
			if decrease > bestDecrease {
				bestDecrease = decrease
				bestFeature = feature
				bestThreshold = (v + next) / 2
			}
		}
	}
	return bestFeature, bestThreshold, bestDecrease
}

// denseRows exposes a Dense matrix as per-row slices for fast repeated
// access during tree growth. The slices alias the matrix storage.
func denseRows(x *mat.Dense) [][]float64 {
	n, _ := x.Dims()
	rows := make([][]float64, n)
	for i := 0; i < n; i++ {
		rows[i] = x.RawRowView(i)
	}
	return rows
}

func normalizeImportances(importances []float64) []float64 {
	sum := 0.0
	for _, v := range importances {
		sum += v
	}
	out := make([]float64, len(importances))
	if sum > 0 {
		for i, v := range importances {
			out[i] = v / sum
		}
	}
	return out
}

func sqrtFeatures(nFeatures int) int {
	k := int(math.Sqrt(float64(nFeatures)))
	if k < 1 {
		k = 1
	}
	return k
}
