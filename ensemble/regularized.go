package ensemble

import (
	"math"
	"math/rand/v2"
	"sort"

	"gonum.org/v1/gonum/mat"

	"konutpricer/core/model"
	kperrors "konutpricer/pkg/errors"
)

// RegularizedBoosting is a second-order boosting machine. Trees are grown
// on gradient statistics with L1 and L2 penalties on leaf weights, a
// minimum split gain, and a minimum hessian mass per child. Rows and
// features are subsampled per stage. Fields are exported for gob
// encoding.
type RegularizedBoosting struct {
	State *model.StateManager

	NEstimators    int
	MaxDepth       int
	LearningRate   float64
	Subsample      float64
	ColsampleTree  float64
	Alpha          float64 // L1 on leaf weights
	Lambda         float64 // L2 on leaf weights
	MinChildWeight float64
	Gamma          float64 // minimum gain to split
	Seed           uint64

	BaseScore float64
	Trees     []*TreeNode
}

// NewRegularizedBoosting creates the booster with the default
// hyperparameters.
func NewRegularizedBoosting(seed uint64) *RegularizedBoosting {
	return &RegularizedBoosting{
		State:          model.NewStateManager(),
		NEstimators:    250,
		MaxDepth:       6,
		LearningRate:   0.08,
		Subsample:      0.8,
		ColsampleTree:  0.8,
		Alpha:          0.1,
		Lambda:         0.1,
		MinChildWeight: 3,
		Gamma:          0.1,
		Seed:           seed,
	}
}

// Name implements Regressor.
func (rb *RegularizedBoosting) Name() string { return "xgb" }

// Clone returns an unfitted copy with the same hyperparameters.
func (rb *RegularizedBoosting) Clone() Regressor {
	c := *rb
	c.State = model.NewStateManager()
	c.BaseScore = 0
	c.Trees = nil
	return &c
}

// Fit runs the boosting stages on squared-loss gradients.
func (rb *RegularizedBoosting) Fit(x *mat.Dense, y []float64) (err error) {
	defer kperrors.Recover(&err, "RegularizedBoosting.Fit")

	nSamples, nFeatures := x.Dims()
	if nSamples == 0 {
		return kperrors.NewModelError("RegularizedBoosting.Fit", "no samples", kperrors.ErrEmptyData)
	}
	if nSamples != len(y) {
		return kperrors.NewDimensionError("RegularizedBoosting.Fit", nSamples, len(y), 0)
	}

	rows := denseRows(x)
	rng := rand.New(rand.NewPCG(rb.Seed, rb.Seed))

	sum := 0.0
	for _, v := range y {
		sum += v
	}
	rb.BaseScore = sum / float64(nSamples)

	current := make([]float64, nSamples)
	for i := range current {
		current[i] = rb.BaseScore
	}
	grad := make([]float64, nSamples)

	rb.Trees = make([]*TreeNode, 0, rb.NEstimators)
	for t := 0; t < rb.NEstimators; t++ {
		// Squared loss: gradient is the signed error, hessian is one.
		for i := range grad {
			grad[i] = current[i] - y[i]
		}

		idx := subsampleRows(nSamples, rb.Subsample, rng)
		features := subsampleFeatures(nFeatures, rb.ColsampleTree, rng)

		g := &gainGrower{
			cfg:      rb,
			x:        rows,
			grad:     grad,
			features: features,
		}
		tree := g.grow(idx, 0)
		rb.Trees = append(rb.Trees, tree)

		for i := 0; i < nSamples; i++ {
			current[i] += rb.LearningRate * tree.Predict(rows[i])
		}
	}

	rb.State.SetFitted()
	rb.State.SetDimensions(nFeatures, nSamples)
	return nil
}

// Predict sums the shrunken leaf weights on top of the base score.
func (rb *RegularizedBoosting) Predict(x *mat.Dense) (_ []float64, err error) {
	defer kperrors.Recover(&err, "RegularizedBoosting.Predict")
	if !rb.State.IsFitted() {
		return nil, kperrors.NewNotFittedError("RegularizedBoosting", "Predict")
	}

	rows := denseRows(x)
	out := make([]float64, len(rows))
	for i, row := range rows {
		pred := rb.BaseScore
		for _, tree := range rb.Trees {
			pred += rb.LearningRate * tree.Predict(row)
		}
		out[i] = pred
	}
	return out, nil
}

// gainGrower builds one tree by maximizing the penalized gain of the
// gradient statistics.
type gainGrower struct {
	cfg      *RegularizedBoosting
	x        [][]float64
	grad     []float64
	features []int
}

// softThreshold applies the L1 shrinkage to a gradient sum.
func softThreshold(g, alpha float64) float64 {
	switch {
	case g > alpha:
		return g - alpha
	case g < -alpha:
		return g + alpha
	default:
		return 0
	}
}

func (gg *gainGrower) score(g, h float64) float64 {
	s := softThreshold(g, gg.cfg.Alpha)
	return s * s / (h + gg.cfg.Lambda)
}

func (gg *gainGrower) leafValue(g, h float64) float64 {
	return -softThreshold(g, gg.cfg.Alpha) / (h + gg.cfg.Lambda)
}

func (gg *gainGrower) grow(idx []int, depth int) *TreeNode {
	g, h := 0.0, 0.0
	for _, i := range idx {
		g += gg.grad[i]
		h++
	}

	node := &TreeNode{
		Value:    gg.leafValue(g, h),
		NSamples: len(idx),
	}
	if depth >= gg.cfg.MaxDepth || h < 2*gg.cfg.MinChildWeight {
		node.IsLeaf = true
		return node
	}

	feature, threshold, ok := gg.bestSplit(idx, g, h)
	if !ok {
		node.IsLeaf = true
		return node
	}

	var left, right []int
	for _, i := range idx {
		if gg.x[i][feature] <= threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}

	node.Feature = feature
	node.Threshold = threshold
	node.Left = gg.grow(left, depth+1)
	node.Right = gg.grow(right, depth+1)
	return node
}

func (gg *gainGrower) bestSplit(idx []int, gTotal, hTotal float64) (int, float64, bool) {
	n := len(idx)
	bestGain := 0.0
	bestFeature := -1
	bestThreshold := 0.0
	parentScore := gg.score(gTotal, hTotal)

	values := make([]float64, n)
	order := make([]int, n)

	for _, feature := range gg.features {
		for i, r := range idx {
			values[i] = gg.x[r][feature]
			order[i] = i
		}
		sort.Slice(order, func(a, c int) bool { return values[order[a]] < values[order[c]] })

		gL, hL := 0.0, 0.0
		for i := 0; i < n-1; i++ {
			r := idx[order[i]]
			gL += gg.grad[r]
			hL++

			v, next := values[order[i]], values[order[i+1]]
			if v == next {
				continue
			}
			hR := hTotal - hL
			if hL < gg.cfg.MinChildWeight || hR < gg.cfg.MinChildWeight {
				continue
			}

			gain := 0.5*(gg.score(gL, hL)+gg.score(gTotal-gL, hR)-parentScore) - gg.cfg.Gamma
			if gain > bestGain {
				bestGain = gain
				bestFeature = feature
				bestThreshold = (v + next) / 2
			}
		}
	}
	return bestFeature, bestThreshold, bestFeature >= 0
}

// subsampleFeatures draws a fraction of feature indices without
// replacement, keeping them sorted for deterministic scans.
func subsampleFeatures(nFeatures int, fraction float64, rng *rand.Rand) []int {
	if fraction >= 1 {
		all := make([]int, nFeatures)
		for j := range all {
			all[j] = j
		}
		return all
	}
	k := int(math.Ceil(fraction * float64(nFeatures)))
	if k < 1 {
		k = 1
	}
	features := rng.Perm(nFeatures)[:k]
	sort.Ints(features)
	return features
}
