// Package uncertainty estimates prediction dispersion by bootstrap
// resampling: the top candidates are retrained on half-size resamples of
// the training set and their combined holdout predictions are summarized
// per row.
package uncertainty

import (
	"math"
	"math/rand/v2"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"konutpricer/cleaning"
	"konutpricer/ensemble"
	kperrors "konutpricer/pkg/errors"
	"konutpricer/pkg/log"
)

// Config controls the bootstrap loop.
type Config struct {
	Iterations     int
	SampleFraction float64
	Seed           uint64
}

// DefaultConfig returns the standard bootstrap controls.
func DefaultConfig() Config {
	return Config{Iterations: 10, SampleFraction: 0.5, Seed: 42}
}

// Summary holds the per-row dispersion of the bootstrap predictions over
// the holdout set, with a 68 percent band from the 16th and 84th
// percentiles.
type Summary struct {
	Std   []float64
	Lower []float64
	Upper []float64

	// MeanUncertainty is the average per-row standard deviation, the
	// scalar carried into the bundle for inference-time intervals.
	MeanUncertainty float64
}

// Estimator runs the bootstrap loop over cloned candidates.
type Estimator struct {
	cfg    Config
	logger zerolog.Logger
}

// NewEstimator creates an estimator with the given controls.
func NewEstimator(cfg Config) *Estimator {
	return &Estimator{cfg: cfg, logger: log.GetLoggerWithName("uncertainty")}
}

// Estimate retrains the models on bootstrap resamples of the training
// set and summarizes their weighted predictions on the evaluation rows.
// The models are cloned per iteration and never mutated.
func (e *Estimator) Estimate(models []ensemble.Regressor, weights []float64, xTrain *mat.Dense, yTrain []float64, xEval *mat.Dense) (_ *Summary, err error) {
	defer kperrors.Recover(&err, "Estimator.Estimate")

	if len(models) == 0 {
		return nil, kperrors.NewValueError("Estimator.Estimate", "no models")
	}
	if len(models) != len(weights) {
		return nil, kperrors.NewDimensionError("Estimator.Estimate", len(models), len(weights), 0)
	}
	nTrain, _ := xTrain.Dims()
	if nTrain == 0 || nTrain != len(yTrain) {
		return nil, kperrors.NewModelError("Estimator.Estimate", "empty or mismatched training set", kperrors.ErrEmptyData)
	}
	nEval, _ := xEval.Dims()

	rng := rand.New(rand.NewPCG(e.cfg.Seed, e.cfg.Seed))
	sampleSize := int(float64(nTrain) * e.cfg.SampleFraction)
	if sampleSize < 1 {
		sampleSize = 1
	}

	// iterations x nEval matrix of combined predictions
	rounds := make([][]float64, 0, e.cfg.Iterations)

	for it := 0; it < e.cfg.Iterations; it++ {
		idx := make([]int, sampleSize)
		for i := range idx {
			idx[i] = rng.IntN(nTrain)
		}
		xBoot := takeRows(xTrain, idx)
		yBoot := make([]float64, sampleSize)
		for i, r := range idx {
			yBoot[i] = yTrain[r]
		}

		combined := make([]float64, nEval)
		totalWeight := 0.0
		for k, m := range models {
			clone := m.Clone()
			if err := clone.Fit(xBoot, yBoot); err != nil {
				return nil, kperrors.Wrap(err, "Estimator.Estimate")
			}
			preds, err := clone.Predict(xEval)
			if err != nil {
				return nil, kperrors.Wrap(err, "Estimator.Estimate")
			}
			w := weights[k]
			totalWeight += w
			for i, p := range preds {
				combined[i] += w * p
			}
		}
		for i := range combined {
			combined[i] /= totalWeight
		}
		rounds = append(rounds, combined)

		e.logger.Debug().Int("iteration", it+1).Int(log.SamplesKey, sampleSize).Msg("bootstrap round done")
	}

	return summarize(rounds, nEval), nil
}

func summarize(rounds [][]float64, nEval int) *Summary {
	s := &Summary{
		Std:   make([]float64, nEval),
		Lower: make([]float64, nEval),
		Upper: make([]float64, nEval),
	}

	column := make([]float64, len(rounds))
	for i := 0; i < nEval; i++ {
		for it := range rounds {
			column[it] = rounds[it][i]
		}
		s.Std[i] = popStd(column)
		s.Lower[i] = cleaning.Quantile(column, 0.16)
		s.Upper[i] = cleaning.Quantile(column, 0.84)
	}
	s.MeanUncertainty = stat.Mean(s.Std, nil)
	return s
}

func popStd(values []float64) float64 {
	m := stat.Mean(values, nil)
	sum := 0.0
	for _, v := range values {
		d := v - m
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(values)))
}

func takeRows(x *mat.Dense, idx []int) *mat.Dense {
	_, nFeatures := x.Dims()
	out := mat.NewDense(len(idx), nFeatures, nil)
	for i, r := range idx {
		out.SetRow(i, x.RawRowView(r))
	}
	return out
}
