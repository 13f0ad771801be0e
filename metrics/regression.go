// Package metrics implements the regression evaluation metrics used to
// cross-validate candidate estimators and report held-out performance:
// MSE, RMSE, MAE, median absolute error, R², adjusted R² and MAPE.
package metrics

import (
	"math"
	"sort"

	kperrors "konutpricer/pkg/errors"
)

func validate(op string, yTrue, yPred []float64) error {
	if len(yTrue) == 0 {
		return kperrors.NewValueError(op, "empty input")
	}
	if len(yPred) != len(yTrue) {
		return kperrors.NewDimensionError(op, len(yTrue), len(yPred), 0)
	}
	return nil
}

// MSE returns the mean squared error.
func MSE(yTrue, yPred []float64) (float64, error) {
	if err := validate("MSE", yTrue, yPred); err != nil {
		return 0, err
	}
	var sum float64
	for i := range yTrue {
		d := yTrue[i] - yPred[i]
		sum += d * d
	}
	return sum / float64(len(yTrue)), nil
}

// RMSE returns the root mean squared error.
func RMSE(yTrue, yPred []float64) (float64, error) {
	mse, err := MSE(yTrue, yPred)
	if err != nil {
		return 0, err
	}
	return math.Sqrt(mse), nil
}

// MAE returns the mean absolute error.
func MAE(yTrue, yPred []float64) (float64, error) {
	if err := validate("MAE", yTrue, yPred); err != nil {
		return 0, err
	}
	var sum float64
	for i := range yTrue {
		sum += math.Abs(yTrue[i] - yPred[i])
	}
	return sum / float64(len(yTrue)), nil
}

// MedianAE returns the median absolute error.
func MedianAE(yTrue, yPred []float64) (float64, error) {
	if err := validate("MedianAE", yTrue, yPred); err != nil {
		return 0, err
	}
	abs := make([]float64, len(yTrue))
	for i := range yTrue {
		abs[i] = math.Abs(yTrue[i] - yPred[i])
	}
	sort.Float64s(abs)
	n := len(abs)
	if n%2 == 1 {
		return abs[n/2], nil
	}
	return (abs[n/2-1] + abs[n/2]) / 2, nil
}

// R2Score returns the coefficient of determination. It can be negative;
// the best possible score is 1.
func R2Score(yTrue, yPred []float64) (float64, error) {
	if err := validate("R2Score", yTrue, yPred); err != nil {
		return 0, err
	}
	var mean float64
	for _, v := range yTrue {
		mean += v
	}
	mean /= float64(len(yTrue))

	var tss, rss float64
	for i := range yTrue {
		tss += (yTrue[i] - mean) * (yTrue[i] - mean)
		rss += (yTrue[i] - yPred[i]) * (yTrue[i] - yPred[i])
	}
	if tss == 0 {
		return 0, kperrors.NewValueError("R2Score", "no variance in yTrue")
	}
	return 1 - rss/tss, nil
}

// AdjustedR2 penalizes R² by the feature count p given n observations.
func AdjustedR2(r2 float64, n, p int) float64 {
	if n-p-1 <= 0 {
		return r2
	}
	return 1 - (1-r2)*float64(n-1)/float64(n-p-1)
}

// MAPE returns the mean absolute percentage error, in percent. Rows with a
// zero true value are skipped.
func MAPE(yTrue, yPred []float64) (float64, error) {
	if err := validate("MAPE", yTrue, yPred); err != nil {
		return 0, err
	}
	var sum float64
	valid := 0
	for i := range yTrue {
		if yTrue[i] == 0 {
			continue
		}
		sum += math.Abs(yTrue[i]-yPred[i]) / math.Abs(yTrue[i])
		valid++
	}
	if valid == 0 {
		return 0, kperrors.NewValueError("MAPE", "all yTrue values are zero")
	}
	return sum / float64(valid) * 100, nil
}

// WithinBand returns the share of predictions whose relative error is
// below tol (e.g. 0.10 for a 10% band). Rows with a zero true value are
// skipped.
func WithinBand(yTrue, yPred []float64, tol float64) float64 {
	inside, valid := 0, 0
	for i := range yTrue {
		if yTrue[i] == 0 {
			continue
		}
		valid++
		if math.Abs(yTrue[i]-yPred[i])/math.Abs(yTrue[i]) < tol {
			inside++
		}
	}
	if valid == 0 {
		return 0
	}
	return float64(inside) / float64(valid)
}
