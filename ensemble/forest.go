package ensemble

import (
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"

	"konutpricer/core/model"
	"konutpricer/metrics"
	kperrors "konutpricer/pkg/errors"
)

// RandomForest is a bagged ensemble of variance-reduction regression
// trees with per-split feature subsampling. Out-of-bag rows score the
// forest without a holdout set. Fields are exported for gob encoding.
type RandomForest struct {
	State *model.StateManager

	NEstimators     int
	MaxDepth        int
	MinSamplesSplit int
	MinSamplesLeaf  int
	Seed            uint64

	Trees              []*TreeNode
	FeatureImportances []float64
	OOBScore           float64
}

// NewRandomForest creates a forest with the default hyperparameters.
func NewRandomForest(seed uint64) *RandomForest {
	return &RandomForest{
		State:           model.NewStateManager(),
		NEstimators:     200,
		MaxDepth:        12,
		MinSamplesSplit: 3,
		MinSamplesLeaf:  1,
		Seed:            seed,
	}
}

// Name implements Regressor.
func (rf *RandomForest) Name() string { return "rf" }

// Clone returns an unfitted copy with the same hyperparameters.
func (rf *RandomForest) Clone() Regressor {
	c := *rf
	c.State = model.NewStateManager()
	c.Trees = nil
	c.FeatureImportances = nil
	c.OOBScore = 0
	return &c
}

// Fit grows the forest on bootstrap samples of the training rows.
func (rf *RandomForest) Fit(x *mat.Dense, y []float64) (err error) {
	defer kperrors.Recover(&err, "RandomForest.Fit")

	nSamples, nFeatures := x.Dims()
	if nSamples == 0 {
		return kperrors.NewModelError("RandomForest.Fit", "no samples", kperrors.ErrEmptyData)
	}
	if nSamples != len(y) {
		return kperrors.NewDimensionError("RandomForest.Fit", nSamples, len(y), 0)
	}

	rows := denseRows(x)
	rng := rand.New(rand.NewPCG(rf.Seed, rf.Seed))
	params := treeParams{
		MaxDepth:        rf.MaxDepth,
		MinSamplesSplit: rf.MinSamplesSplit,
		MinSamplesLeaf:  rf.MinSamplesLeaf,
		MaxFeatures:     sqrtFeatures(nFeatures),
	}

	rf.Trees = make([]*TreeNode, 0, rf.NEstimators)
	importances := make([]float64, nFeatures)

	oobSum := make([]float64, nSamples)
	oobCount := make([]int, nSamples)

	for t := 0; t < rf.NEstimators; t++ {
		idx := make([]int, nSamples)
		inBag := make([]bool, nSamples)
		for i := range idx {
			j := rng.IntN(nSamples)
			idx[i] = j
			inBag[j] = true
		}

		builder := newTreeBuilder(rows, y, params, rng)
		tree := builder.build(idx)
		rf.Trees = append(rf.Trees, tree)
		for j, v := range builder.importances {
			importances[j] += v
		}

		for i := 0; i < nSamples; i++ {
			if !inBag[i] {
				oobSum[i] += tree.Predict(rows[i])
				oobCount[i]++
			}
		}
	}

	rf.FeatureImportances = normalizeImportances(importances)
	rf.OOBScore = oobScore(y, oobSum, oobCount)
	rf.State.SetFitted()
	rf.State.SetDimensions(nFeatures, nSamples)
	return nil
}

// oobScore computes R2 over the rows that were left out of at least one
// bootstrap sample.
func oobScore(y, oobSum []float64, oobCount []int) float64 {
	var yTrue, yPred []float64
	for i := range y {
		if oobCount[i] > 0 {
			yTrue = append(yTrue, y[i])
			yPred = append(yPred, oobSum[i]/float64(oobCount[i]))
		}
	}
	if len(yTrue) < 2 {
		return 0
	}
	r2, err := metrics.R2Score(yTrue, yPred)
	if err != nil {
		return 0
	}
	return r2
}

// Predict averages the trees' outputs per row.
func (rf *RandomForest) Predict(x *mat.Dense) (_ []float64, err error) {
	defer kperrors.Recover(&err, "RandomForest.Predict")
	if !rf.State.IsFitted() {
		return nil, kperrors.NewNotFittedError("RandomForest", "Predict")
	}

	rows := denseRows(x)
	out := make([]float64, len(rows))
	for i, row := range rows {
		sum := 0.0
		for _, tree := range rf.Trees {
			sum += tree.Predict(row)
		}
		out[i] = sum / float64(len(rf.Trees))
	}
	return out, nil
}
