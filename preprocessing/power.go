// Package preprocessing provides the feature transforms applied between
// feature synthesis and model fitting: a Yeo-Johnson power transformer that
// also standardizes, and a drop-first one-hot encoder for the categorical
// location columns.
//
// All components follow the Fit/Transform pattern: statistics are computed
// from the training partition only and reapplied unchanged to test and
// query data.
package preprocessing

import (
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"konutpricer/core/model"
	kperrors "konutpricer/pkg/errors"
)

// PowerTransformer applies a per-feature Yeo-Johnson transform followed by
// standardization to zero mean and unit variance. Fields are exported for
// gob encoding.
type PowerTransformer struct {
	State     *model.StateManager
	Lambdas   []float64
	Means     []float64
	Scales    []float64
	NFeatures int
}

// NewPowerTransformer creates an unfitted PowerTransformer.
func NewPowerTransformer() *PowerTransformer {
	return &PowerTransformer{State: model.NewStateManager()}
}

// Fit estimates, per feature, the Yeo-Johnson lambda maximizing the
// transform's log-likelihood over the column, then the mean and standard
// deviation of the transformed column.
func (t *PowerTransformer) Fit(X mat.Matrix) (err error) {
	defer kperrors.Recover(&err, "PowerTransformer.Fit")
	r, c := X.Dims()
	if r == 0 || c == 0 {
		return kperrors.NewModelError("PowerTransformer.Fit", "empty data", kperrors.ErrEmptyData)
	}
	t.NFeatures = c
	t.Lambdas = make([]float64, c)
	t.Means = make([]float64, c)
	t.Scales = make([]float64, c)

	col := make([]float64, r)
	transformed := make([]float64, r)
	for j := 0; j < c; j++ {
		for i := 0; i < r; i++ {
			col[i] = X.At(i, j)
		}
		lambda := optimalLambda(col)
		t.Lambdas[j] = lambda
		for i, v := range col {
			transformed[i] = yeoJohnson(v, lambda)
		}
		mean, std := stat.MeanStdDev(transformed, nil)
		if math.IsNaN(std) || std < 1e-8 {
			std = 1.0
		}
		t.Means[j] = mean
		t.Scales[j] = std
	}

	t.State.SetFitted()
	t.State.SetDimensions(c, r)
	return nil
}

// Transform applies the fitted Yeo-Johnson transform and standardization.
func (t *PowerTransformer) Transform(X mat.Matrix) (_ *mat.Dense, err error) {
	defer kperrors.Recover(&err, "PowerTransformer.Transform")
	if !t.State.IsFitted() {
		return nil, kperrors.NewNotFittedError("PowerTransformer", "Transform")
	}
	r, c := X.Dims()
	if c != t.NFeatures {
		return nil, kperrors.NewDimensionError("PowerTransformer.Transform", t.NFeatures, c, 1)
	}
	out := mat.NewDense(r, c, nil)
	for j := 0; j < c; j++ {
		lambda := t.Lambdas[j]
		mean := t.Means[j]
		scale := t.Scales[j]
		for i := 0; i < r; i++ {
			out.Set(i, j, (yeoJohnson(X.At(i, j), lambda)-mean)/scale)
		}
	}
	return out, nil
}

// FitTransform fits the transformer and transforms X in one step.
func (t *PowerTransformer) FitTransform(X mat.Matrix) (*mat.Dense, error) {
	if err := t.Fit(X); err != nil {
		return nil, err
	}
	return t.Transform(X)
}

// yeoJohnson applies the Yeo-Johnson transform with parameter lambda.
func yeoJohnson(x, lambda float64) float64 {
	if x >= 0 {
		if math.Abs(lambda) < 1e-10 {
			return math.Log1p(x)
		}
		return (math.Pow(x+1, lambda) - 1) / lambda
	}
	if math.Abs(lambda-2) < 1e-10 {
		return -math.Log1p(-x)
	}
	return -(math.Pow(-x+1, 2-lambda) - 1) / (2 - lambda)
}

// optimalLambda maximizes the Yeo-Johnson log-likelihood over [-2, 2] with
// a coarse grid followed by golden-section refinement. Deterministic.
func optimalLambda(col []float64) float64 {
	const gridPoints = 41
	bestLambda, bestLL := 1.0, math.Inf(-1)
	for g := 0; g < gridPoints; g++ {
		lambda := -2 + 4*float64(g)/float64(gridPoints-1)
		if ll := yjLogLikelihood(col, lambda); ll > bestLL {
			bestLL, bestLambda = ll, lambda
		}
	}
	step := 4.0 / float64(gridPoints-1)
	lo, hi := bestLambda-step, bestLambda+step
	const phi = 0.6180339887498949
	a, b := lo, hi
	x1 := b - phi*(b-a)
	x2 := a + phi*(b-a)
	f1 := yjLogLikelihood(col, x1)
	f2 := yjLogLikelihood(col, x2)
	for iter := 0; iter < 40 && b-a > 1e-5; iter++ {
		if f1 > f2 {
			b, x2, f2 = x2, x1, f1
			x1 = b - phi*(b-a)
			f1 = yjLogLikelihood(col, x1)
		} else {
			a, x1, f1 = x1, x2, f2
			x2 = a + phi*(b-a)
			f2 = yjLogLikelihood(col, x2)
		}
	}
	return (a + b) / 2
}

// yjLogLikelihood is the profile log-likelihood of the Yeo-Johnson
// transform under a normal model:
//
//	-n/2 * log(var(y)) + (lambda-1) * sum(sign(x) * log1p(|x|))
func yjLogLikelihood(col []float64, lambda float64) float64 {
	n := len(col)
	if n < 2 {
		return math.Inf(-1)
	}
	transformed := make([]float64, n)
	logTerm := 0.0
	for i, x := range col {
		transformed[i] = yeoJohnson(x, lambda)
		if x >= 0 {
			logTerm += math.Log1p(x)
		} else {
			logTerm -= math.Log1p(-x)
		}
	}
	variance := stat.Variance(transformed, nil) * float64(n-1) / float64(n)
	if variance <= 0 || math.IsNaN(variance) || math.IsInf(variance, 0) {
		return math.Inf(-1)
	}
	return -float64(n)/2*math.Log(variance) + (lambda-1)*logTerm
}
