package ensemble

import (
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"

	"konutpricer/core/model"
	kperrors "konutpricer/pkg/errors"
)

// GradientBoosting fits shallow regression trees to the residuals of the
// running prediction, shrinking each tree's contribution by the learning
// rate. Rows are subsampled without replacement per stage and features
// per split. Fields are exported for gob encoding.
type GradientBoosting struct {
	State *model.StateManager

	NEstimators     int
	LearningRate    float64
	MaxDepth        int
	MinSamplesSplit int
	MinSamplesLeaf  int
	Subsample       float64
	Seed            uint64

	InitValue          float64 // mean target, the stage-0 prediction
	Trees              []*TreeNode
	FeatureImportances []float64
}

// NewGradientBoosting creates a booster with the default hyperparameters.
func NewGradientBoosting(seed uint64) *GradientBoosting {
	return &GradientBoosting{
		State:           model.NewStateManager(),
		NEstimators:     300,
		LearningRate:    0.08,
		MaxDepth:        6,
		MinSamplesSplit: 3,
		MinSamplesLeaf:  1,
		Subsample:       0.8,
		Seed:            seed,
	}
}

// Name implements Regressor.
func (gb *GradientBoosting) Name() string { return "gb" }

// Clone returns an unfitted copy with the same hyperparameters.
func (gb *GradientBoosting) Clone() Regressor {
	c := *gb
	c.State = model.NewStateManager()
	c.InitValue = 0
	c.Trees = nil
	c.FeatureImportances = nil
	return &c
}

// Fit runs the boosting stages.
func (gb *GradientBoosting) Fit(x *mat.Dense, y []float64) (err error) {
	defer kperrors.Recover(&err, "GradientBoosting.Fit")

	nSamples, nFeatures := x.Dims()
	if nSamples == 0 {
		return kperrors.NewModelError("GradientBoosting.Fit", "no samples", kperrors.ErrEmptyData)
	}
	if nSamples != len(y) {
		return kperrors.NewDimensionError("GradientBoosting.Fit", nSamples, len(y), 0)
	}

	rows := denseRows(x)
	rng := rand.New(rand.NewPCG(gb.Seed, gb.Seed))
	params := treeParams{
		MaxDepth:        gb.MaxDepth,
		MinSamplesSplit: gb.MinSamplesSplit,
		MinSamplesLeaf:  gb.MinSamplesLeaf,
		MaxFeatures:     sqrtFeatures(nFeatures),
	}

	sum := 0.0
	for _, v := range y {
		sum += v
	}
	gb.InitValue = sum / float64(nSamples)

	current := make([]float64, nSamples)
	for i := range current {
		current[i] = gb.InitValue
	}
	residuals := make([]float64, nSamples)

	gb.Trees = make([]*TreeNode, 0, gb.NEstimators)
	importances := make([]float64, nFeatures)

	for t := 0; t < gb.NEstimators; t++ {
		for i := range residuals {
			residuals[i] = y[i] - current[i]
		}

		idx := subsampleRows(nSamples, gb.Subsample, rng)
		builder := newTreeBuilder(rows, residuals, params, rng)
		tree := builder.build(idx)
		gb.Trees = append(gb.Trees, tree)
		for j, v := range builder.importances {
			importances[j] += v
		}

		for i := 0; i < nSamples; i++ {
			current[i] += gb.LearningRate * tree.Predict(rows[i])
		}
	}

	gb.FeatureImportances = normalizeImportances(importances)
	gb.State.SetFitted()
	gb.State.SetDimensions(nFeatures, nSamples)
	return nil
}

// Predict sums the shrunken stage outputs on top of the initial value.
func (gb *GradientBoosting) Predict(x *mat.Dense) (_ []float64, err error) {
	defer kperrors.Recover(&err, "GradientBoosting.Predict")
	if !gb.State.IsFitted() {
		return nil, kperrors.NewNotFittedError("GradientBoosting", "Predict")
	}

	rows := denseRows(x)
	out := make([]float64, len(rows))
	for i, row := range rows {
		pred := gb.InitValue
		for _, tree := range gb.Trees {
			pred += gb.LearningRate * tree.Predict(row)
		}
		out[i] = pred
	}
	return out, nil
}

// subsampleRows draws a fraction of row indices without replacement.
// fraction >= 1 keeps every row.
func subsampleRows(nSamples int, fraction float64, rng *rand.Rand) []int {
	if fraction >= 1 {
		idx := make([]int, nSamples)
		for i := range idx {
			idx[i] = i
		}
		return idx
	}
	k := int(fraction * float64(nSamples))
	if k < 1 {
		k = 1
	}
	return rng.Perm(nSamples)[:k]
}
