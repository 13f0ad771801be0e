package ensemble

import (
	"gonum.org/v1/gonum/mat"

	"konutpricer/core/model"
	kperrors "konutpricer/pkg/errors"
)

// Ridge is an L2-penalized least squares regressor solved in closed form.
// The intercept is left unpenalized by centering the data before the
// solve. It serves as the stacking meta-learner. Fields are exported for
// gob encoding.
type Ridge struct {
	State *model.StateManager

	Alpha float64

	Coef      []float64
	Intercept float64
}

// NewRidge creates a ridge regressor with the given penalty.
func NewRidge(alpha float64) *Ridge {
	return &Ridge{State: model.NewStateManager(), Alpha: alpha}
}

// Name implements Regressor.
func (r *Ridge) Name() string { return "ridge" }

// Clone returns an unfitted copy with the same penalty.
func (r *Ridge) Clone() Regressor {
	c := *r
	c.State = model.NewStateManager()
	c.Coef = nil
	c.Intercept = 0
	return &c
}

// Fit solves (Xc'Xc + alpha I) w = Xc' yc on the centered data.
func (r *Ridge) Fit(x *mat.Dense, y []float64) (err error) {
	defer kperrors.Recover(&err, "Ridge.Fit")

	nSamples, nFeatures := x.Dims()
	if nSamples == 0 {
		return kperrors.NewModelError("Ridge.Fit", "no samples", kperrors.ErrEmptyData)
	}
	if nSamples != len(y) {
		return kperrors.NewDimensionError("Ridge.Fit", nSamples, len(y), 0)
	}

	colMeans := make([]float64, nFeatures)
	for j := 0; j < nFeatures; j++ {
		sum := 0.0
		for i := 0; i < nSamples; i++ {
			sum += x.At(i, j)
		}
		colMeans[j] = sum / float64(nSamples)
	}
	yMean := 0.0
	for _, v := range y {
		yMean += v
	}
	yMean /= float64(nSamples)

	xc := mat.NewDense(nSamples, nFeatures, nil)
	yc := mat.NewVecDense(nSamples, nil)
	for i := 0; i < nSamples; i++ {
		for j := 0; j < nFeatures; j++ {
			xc.Set(i, j, x.At(i, j)-colMeans[j])
		}
		yc.SetVec(i, y[i]-yMean)
	}

	var gram mat.Dense
	gram.Mul(xc.T(), xc)
	for j := 0; j < nFeatures; j++ {
		gram.Set(j, j, gram.At(j, j)+r.Alpha)
	}

	var xty mat.VecDense
	xty.MulVec(xc.T(), yc)

	var w mat.VecDense
	if err := w.SolveVec(&gram, &xty); err != nil {
		return kperrors.NewModelError("Ridge.Fit", "normal equations are singular", kperrors.ErrSingularMatrix)
	}

	r.Coef = make([]float64, nFeatures)
	r.Intercept = yMean
	for j := 0; j < nFeatures; j++ {
		r.Coef[j] = w.AtVec(j)
		r.Intercept -= r.Coef[j] * colMeans[j]
	}

	r.State.SetFitted()
	r.State.SetDimensions(nFeatures, nSamples)
	return nil
}

// Predict computes x.Coef + Intercept per row.
func (r *Ridge) Predict(x *mat.Dense) (_ []float64, err error) {
	defer kperrors.Recover(&err, "Ridge.Predict")
	if !r.State.IsFitted() {
		return nil, kperrors.NewNotFittedError("Ridge", "Predict")
	}

	nSamples, nFeatures := x.Dims()
	if nFeatures != len(r.Coef) {
		return nil, kperrors.NewDimensionError("Ridge.Predict", len(r.Coef), nFeatures, 1)
	}

	out := make([]float64, nSamples)
	for i := 0; i < nSamples; i++ {
		pred := r.Intercept
		for j := 0; j < nFeatures; j++ {
			pred += x.At(i, j) * r.Coef[j]
		}
		out[i] = pred
	}
	return out, nil
}
