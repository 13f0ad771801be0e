package preprocessing

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

func TestYeoJohnsonKnownValues(t *testing.T) {
	// lambda=1 is the identity, lambda=0 is log1p on the positive branch.
	assert.InDelta(t, 3.0, yeoJohnson(3, 1), 1e-12)
	assert.InDelta(t, math.Log1p(3), yeoJohnson(3, 0), 1e-12)
	assert.InDelta(t, -math.Log1p(2), yeoJohnson(-2, 2), 1e-12)
	// lambda=2 positive branch: ((x+1)^2 - 1) / 2.
	assert.InDelta(t, 4.0, yeoJohnson(2, 2), 1e-12)
	// lambda=0 negative branch: -((1-x)^2 - 1) / 2.
	assert.InDelta(t, -1.5, yeoJohnson(-1, 0), 1e-12)
}

func TestPowerTransformerStandardizes(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	n := 300
	data := make([]float64, n*2)
	for i := 0; i < n; i++ {
		// One heavily right-skewed column, one symmetric.
		data[i*2] = math.Exp(rng.NormFloat64())
		data[i*2+1] = rng.NormFloat64() * 5
	}
	x := mat.NewDense(n, 2, data)

	pt := NewPowerTransformer()
	out, err := pt.FitTransform(x)
	require.NoError(t, err)
	require.True(t, pt.State.IsFitted())

	for j := 0; j < 2; j++ {
		col := mat.Col(nil, j, out)
		mean, std := stat.MeanStdDev(col, nil)
		assert.InDelta(t, 0.0, mean, 1e-8, "column %d mean", j)
		assert.InDelta(t, 1.0, std, 0.01, "column %d std", j)
	}

	// The lognormal column needs a contracting transform.
	assert.Less(t, pt.Lambdas[0], 0.5)
	for _, l := range pt.Lambdas {
		assert.GreaterOrEqual(t, l, -2.0)
		assert.LessOrEqual(t, l, 2.0)
	}
}

func TestPowerTransformerReducesSkew(t *testing.T) {
	rng := rand.New(rand.NewPCG(3, 4))
	n := 500
	raw := make([]float64, n)
	for i := range raw {
		raw[i] = math.Exp(rng.NormFloat64())
	}
	x := mat.NewDense(n, 1, raw)

	pt := NewPowerTransformer()
	out, err := pt.FitTransform(x)
	require.NoError(t, err)

	before := stat.Skew(raw, nil)
	after := stat.Skew(mat.Col(nil, 0, out), nil)
	assert.Less(t, math.Abs(after), math.Abs(before)/2)
}

func TestPowerTransformerReappliesTrainingStats(t *testing.T) {
	train := mat.NewDense(4, 1, []float64{1, 2, 3, 4})
	pt := NewPowerTransformer()
	require.NoError(t, pt.Fit(train))

	a, err := pt.Transform(mat.NewDense(2, 1, []float64{2, 3}))
	require.NoError(t, err)
	b, err := pt.Transform(mat.NewDense(2, 1, []float64{2, 3}))
	require.NoError(t, err)
	assert.Equal(t, a.RawMatrix().Data, b.RawMatrix().Data)
}

func TestPowerTransformerConstantColumn(t *testing.T) {
	x := mat.NewDense(5, 1, []float64{7, 7, 7, 7, 7})
	pt := NewPowerTransformer()
	out, err := pt.FitTransform(x)
	require.NoError(t, err)
	col := mat.Col(nil, 0, out)
	for _, v := range col {
		assert.False(t, math.IsNaN(v))
		assert.False(t, math.IsInf(v, 0))
	}
}

func TestPowerTransformerErrors(t *testing.T) {
	pt := NewPowerTransformer()
	_, err := pt.Transform(mat.NewDense(1, 1, []float64{1}))
	assert.Error(t, err) // not fitted

	require.NoError(t, pt.Fit(mat.NewDense(3, 2, []float64{1, 2, 3, 4, 5, 6})))
	_, err = pt.Transform(mat.NewDense(1, 3, []float64{1, 2, 3}))
	assert.Error(t, err) // feature count mismatch
}
