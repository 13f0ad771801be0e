package ensemble

import (
	"math"
	"math/rand/v2"
	"sort"

	"gonum.org/v1/gonum/mat"

	"konutpricer/core/model"
	kperrors "konutpricer/pkg/errors"
)

// HistBoosting is a gradient booster that quantizes every feature into at
// most MaxBins quantile bins and searches splits over bin boundaries,
// trading split resolution for much cheaper scans. Fields are exported
// for gob encoding.
type HistBoosting struct {
	State *model.StateManager

	NEstimators     int
	MaxDepth        int
	LearningRate    float64
	Subsample       float64
	ColsampleTree   float64
	MaxBins         int
	MinChildSamples int
	Seed            uint64

	InitValue float64
	Trees     []*TreeNode
}

// NewHistBoosting creates the booster with the default hyperparameters.
func NewHistBoosting(seed uint64) *HistBoosting {
	return &HistBoosting{
		State:           model.NewStateManager(),
		NEstimators:     250,
		MaxDepth:        6,
		LearningRate:    0.08,
		Subsample:       0.8,
		ColsampleTree:   0.8,
		MaxBins:         64,
		MinChildSamples: 20,
		Seed:            seed,
	}
}

// Name implements Regressor.
func (hb *HistBoosting) Name() string { return "lgb" }

// Clone returns an unfitted copy with the same hyperparameters.
func (hb *HistBoosting) Clone() Regressor {
	c := *hb
	c.State = model.NewStateManager()
	c.InitValue = 0
	c.Trees = nil
	return &c
}

// Fit quantizes the features once, then runs the boosting stages on the
// binned matrix.
func (hb *HistBoosting) Fit(x *mat.Dense, y []float64) (err error) {
	defer kperrors.Recover(&err, "HistBoosting.Fit")

	nSamples, nFeatures := x.Dims()
	if nSamples == 0 {
		return kperrors.NewModelError("HistBoosting.Fit", "no samples", kperrors.ErrEmptyData)
	}
	if nSamples != len(y) {
		return kperrors.NewDimensionError("HistBoosting.Fit", nSamples, len(y), 0)
	}

	rows := denseRows(x)
	rng := rand.New(rand.NewPCG(hb.Seed, hb.Seed))

	edges := make([][]float64, nFeatures)
	binned := make([][]uint8, nSamples)
	for i := range binned {
		binned[i] = make([]uint8, nFeatures)
	}
	col := make([]float64, nSamples)
	for j := 0; j < nFeatures; j++ {
		for i := 0; i < nSamples; i++ {
			col[i] = rows[i][j]
		}
		edges[j] = binEdges(col, hb.MaxBins)
		for i := 0; i < nSamples; i++ {
			binned[i][j] = binOf(col[i], edges[j])
		}
	}

	sum := 0.0
	for _, v := range y {
		sum += v
	}
	hb.InitValue = sum / float64(nSamples)

	current := make([]float64, nSamples)
	for i := range current {
		current[i] = hb.InitValue
	}
	residuals := make([]float64, nSamples)

	hb.Trees = make([]*TreeNode, 0, hb.NEstimators)
	for t := 0; t < hb.NEstimators; t++ {
		for i := range residuals {
			residuals[i] = y[i] - current[i]
		}

		idx := subsampleRows(nSamples, hb.Subsample, rng)
		features := subsampleFeatures(nFeatures, hb.ColsampleTree, rng)

		g := &histGrower{
			cfg:       hb,
			binned:    binned,
			edges:     edges,
			residuals: residuals,
			features:  features,
		}
		tree := g.grow(idx, 0)
		hb.Trees = append(hb.Trees, tree)

		for i := 0; i < nSamples; i++ {
			current[i] += hb.LearningRate * tree.Predict(rows[i])
		}
	}

	hb.State.SetFitted()
	hb.State.SetDimensions(nFeatures, nSamples)
	return nil
}

// Predict sums the shrunken stage outputs on top of the initial value.
func (hb *HistBoosting) Predict(x *mat.Dense) (_ []float64, err error) {
	defer kperrors.Recover(&err, "HistBoosting.Predict")
	if !hb.State.IsFitted() {
		return nil, kperrors.NewNotFittedError("HistBoosting", "Predict")
	}

	rows := denseRows(x)
	out := make([]float64, len(rows))
	for i, row := range rows {
		pred := hb.InitValue
		for _, tree := range hb.Trees {
			pred += hb.LearningRate * tree.Predict(row)
		}
		out[i] = pred
	}
	return out, nil
}

// binEdges returns at most maxBins-1 quantile cut points over the column.
func binEdges(col []float64, maxBins int) []float64 {
	sorted := append([]float64(nil), col...)
	sort.Float64s(sorted)

	var edges []float64
	for b := 1; b < maxBins; b++ {
		q := float64(b) / float64(maxBins)
		pos := q * float64(len(sorted)-1)
		lo := int(math.Floor(pos))
		hi := int(math.Ceil(pos))
		edge := sorted[lo] + (pos-float64(lo))*(sorted[hi]-sorted[lo])
		if len(edges) == 0 || edge > edges[len(edges)-1] {
			edges = append(edges, edge)
		}
	}
	return edges
}

// binOf maps a value to its bin index. Bin b holds the half-open range
// (edges[b-1], edges[b]], so a value on an edge lands in the left bin.
func binOf(v float64, edges []float64) uint8 {
	return uint8(sort.SearchFloat64s(edges, v))
}

// histGrower builds one tree over the binned matrix using per-bin
// residual statistics.
type histGrower struct {
	cfg       *HistBoosting
	binned    [][]uint8
	edges     [][]float64
	residuals []float64
	features  []int
}

func (hg *histGrower) grow(idx []int, depth int) *TreeNode {
	n := len(idx)
	sum, sumSq := 0.0, 0.0
	for _, i := range idx {
		r := hg.residuals[i]
		sum += r
		sumSq += r * r
	}
	sse := sumSq - sum*sum/float64(n)
	if sse < 0 {
		sse = 0
	}

	node := &TreeNode{
		Value:    sum / float64(n),
		Impurity: sse / float64(n),
		NSamples: n,
	}
	if depth >= hg.cfg.MaxDepth || n < 2*hg.cfg.MinChildSamples || sse == 0 {
		node.IsLeaf = true
		return node
	}

	feature, bin, ok := hg.bestSplit(idx, sum, sumSq, sse)
	if !ok {
		node.IsLeaf = true
		return node
	}

	var left, right []int
	for _, i := range idx {
		if hg.binned[i][feature] <= bin {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}

	node.Feature = feature
	// Real-valued threshold so prediction needs no binning.
	node.Threshold = hg.edges[feature][bin]
	node.Left = hg.grow(left, depth+1)
	node.Right = hg.grow(right, depth+1)
	return node
}

func (hg *histGrower) bestSplit(idx []int, totalSum, totalSumSq, parentSSE float64) (int, uint8, bool) {
	n := len(idx)
	bestFeature := -1
	bestBin := uint8(0)
	bestDecrease := 1e-12

	maxBins := hg.cfg.MaxBins
	count := make([]int, maxBins)
	sum := make([]float64, maxBins)
	sumSq := make([]float64, maxBins)

	for _, feature := range hg.features {
		nEdges := len(hg.edges[feature])
		if nEdges == 0 {
			continue
		}
		for b := 0; b <= nEdges; b++ {
			count[b], sum[b], sumSq[b] = 0, 0, 0
		}
		for _, i := range idx {
			b := hg.binned[i][feature]
			r := hg.residuals[i]
			count[b]++
			sum[b] += r
			sumSq[b] += r * r
		}

		nL := 0
		sumL, sumSqL := 0.0, 0.0
		for b := 0; b < nEdges; b++ {
			nL += count[b]
			sumL += sum[b]
			sumSqL += sumSq[b]

			nR := n - nL
			if nL < hg.cfg.MinChildSamples || nR < hg.cfg.MinChildSamples {
				continue
			}

			sumR := totalSum - sumL
			sseL := sumSqL - sumL*sumL/float64(nL)
			sseR := (totalSumSq - sumSqL) - sumR*sumR/float64(nR)
			decrease := parentSSE - sseL - sseR
			if decrease > bestDecrease {
				bestDecrease = decrease
				bestFeature = feature
				bestBin = uint8(b)
			}
		}
	}
	return bestFeature, bestBin, bestFeature >= 0
}
