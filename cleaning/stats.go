package cleaning

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// GroupStats are the per-district or per-neighborhood price aggregates
// merged onto every cleaned row and consumed by the feature synthesizer.
type GroupStats struct {
	Mean   float64
	Median float64
	Std    float64
	Count  int
	Freq   float64
}

func meanOf(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	return stat.Mean(values, nil)
}

// Quantile returns the p-quantile of values using linear interpolation
// between order statistics, matching the percentile definition the fence
// constants were tuned against. values need not be sorted.
func Quantile(values []float64, p float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	return quantileSorted(sorted, p)
}

func quantileSorted(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 1 {
		return sorted[0]
	}
	h := p * float64(n-1)
	lo := int(math.Floor(h))
	hi := int(math.Ceil(h))
	if lo == hi {
		return sorted[lo]
	}
	return sorted[lo] + (h-float64(lo))*(sorted[hi]-sorted[lo])
}

// Median returns the 0.5 quantile.
func Median(values []float64) float64 {
	return Quantile(values, 0.5)
}

// SampleStd returns the sample standard deviation (n-1 denominator), the
// convention used for all persisted group statistics. Returns 0 for fewer
// than two values.
func SampleStd(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	return stat.StdDev(values, nil)
}

// popStd is the population standard deviation (n denominator), used only by
// the global Z-score outlier stage.
func popStd(values []float64) float64 {
	n := len(values)
	if n == 0 {
		return 0
	}
	if n == 1 {
		return 0
	}
	sampleVar := stat.Variance(values, nil)
	return math.Sqrt(sampleVar * float64(n-1) / float64(n))
}

// iqrFence returns the [low, high] outlier bounds from the qLow/qHigh
// quantiles with multiplier k: [Qlow - k*IQR, Qhigh + k*IQR].
func iqrFence(values []float64, qLow, qHigh, k float64) (float64, float64) {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	lo := quantileSorted(sorted, qLow)
	hi := quantileSorted(sorted, qHigh)
	iqr := hi - lo
	return lo - k*iqr, hi + k*iqr
}
