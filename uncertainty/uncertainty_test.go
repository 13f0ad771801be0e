package uncertainty

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"konutpricer/ensemble"
)

func linearData(n int, seed uint64) (*mat.Dense, []float64) {
	rng := rand.New(rand.NewPCG(seed, seed))
	x := mat.NewDense(n, 3, nil)
	y := make([]float64, n)
	for i := 0; i < n; i++ {
		row := []float64{rng.Float64() * 10, rng.Float64() * 10, rng.Float64() * 10}
		x.SetRow(i, row)
		y[i] = 2*row[0] - row[1] + 0.5*row[2] + rng.NormFloat64()
	}
	return x, y
}

func smallForest(seed uint64) ensemble.Regressor {
	rf := ensemble.NewRandomForest(seed)
	rf.NEstimators = 8
	return rf
}

func TestEstimateShapesAndOrdering(t *testing.T) {
	xTrain, yTrain := linearData(120, 1)
	xEval, _ := linearData(30, 2)

	cfg := Config{Iterations: 5, SampleFraction: 0.5, Seed: 42}
	sum, err := NewEstimator(cfg).Estimate(
		[]ensemble.Regressor{smallForest(42)}, []float64{1},
		xTrain, yTrain, xEval,
	)
	require.NoError(t, err)

	require.Len(t, sum.Std, 30)
	require.Len(t, sum.Lower, 30)
	require.Len(t, sum.Upper, 30)
	for i := range sum.Std {
		assert.GreaterOrEqual(t, sum.Std[i], 0.0)
		assert.LessOrEqual(t, sum.Lower[i], sum.Upper[i])
	}
	assert.Greater(t, sum.MeanUncertainty, 0.0)
}

func TestEstimateDeterministic(t *testing.T) {
	xTrain, yTrain := linearData(100, 3)
	xEval, _ := linearData(20, 4)
	cfg := Config{Iterations: 4, SampleFraction: 0.5, Seed: 7}

	run := func() *Summary {
		s, err := NewEstimator(cfg).Estimate(
			[]ensemble.Regressor{smallForest(7)}, []float64{1},
			xTrain, yTrain, xEval,
		)
		require.NoError(t, err)
		return s
	}
	a, b := run(), run()
	assert.Equal(t, a.Std, b.Std)
	assert.Equal(t, a.Lower, b.Lower)
	assert.Equal(t, a.MeanUncertainty, b.MeanUncertainty)
}

func TestEstimateValidation(t *testing.T) {
	xTrain, yTrain := linearData(50, 5)
	xEval, _ := linearData(10, 6)
	est := NewEstimator(DefaultConfig())

	_, err := est.Estimate(nil, nil, xTrain, yTrain, xEval)
	assert.Error(t, err)

	_, err = est.Estimate(
		[]ensemble.Regressor{smallForest(1)}, []float64{0.5, 0.5},
		xTrain, yTrain, xEval,
	)
	assert.Error(t, err)
}

func TestEstimateTwoWeightedModels(t *testing.T) {
	xTrain, yTrain := linearData(120, 8)
	xEval, _ := linearData(15, 9)

	gb := ensemble.NewGradientBoosting(42)
	gb.NEstimators = 15

	cfg := Config{Iterations: 3, SampleFraction: 0.5, Seed: 42}
	sum, err := NewEstimator(cfg).Estimate(
		[]ensemble.Regressor{smallForest(42), gb}, []float64{0.6, 0.4},
		xTrain, yTrain, xEval,
	)
	require.NoError(t, err)
	assert.Len(t, sum.Std, 15)
}
