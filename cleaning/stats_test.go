package cleaning

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQuantileInterpolates(t *testing.T) {
	values := []float64{10, 20, 30, 40, 50}
	assert.Equal(t, 10.0, Quantile(values, 0))
	assert.Equal(t, 30.0, Quantile(values, 0.5))
	assert.Equal(t, 50.0, Quantile(values, 1))
	assert.InDelta(t, 15.0, Quantile(values, 0.125), 1e-12)
	assert.True(t, math.IsNaN(Quantile(nil, 0.5)))
}

func TestMedian(t *testing.T) {
	assert.Equal(t, 3.0, Median([]float64{5, 1, 3, 2, 4}))
	assert.Equal(t, 2.5, Median([]float64{1, 2, 3, 4}))
}

func TestSampleStd(t *testing.T) {
	// Sample std of {2,4,4,4,5,5,7,9} is sqrt(32/7).
	got := SampleStd([]float64{2, 4, 4, 4, 5, 5, 7, 9})
	assert.InDelta(t, math.Sqrt(32.0/7.0), got, 1e-12)
	assert.Equal(t, 0.0, SampleStd([]float64{42}))
}

func TestPopStd(t *testing.T) {
	// Population std of the same values is exactly 2.
	got := popStd([]float64{2, 4, 4, 4, 5, 5, 7, 9})
	assert.InDelta(t, 2.0, got, 1e-12)
	assert.Equal(t, 0.0, popStd([]float64{7}))
}

func TestIQRFence(t *testing.T) {
	values := []float64{10, 20, 30, 40, 50, 60, 70, 80, 90, 100}
	lo, hi := iqrFence(values, 0.25, 0.75, 1.5)
	// q25=32.5, q75=77.5, iqr=45
	assert.InDelta(t, 32.5-1.5*45, lo, 1e-9)
	assert.InDelta(t, 77.5+1.5*45, hi, 1e-9)
}
