package features

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"konutpricer/cleaning"
)

func sampleInput() Input {
	return Input{
		Area:  120,
		Rooms: 3,
		Age:   10,
		Floor: 4,
		District: cleaning.GroupStats{
			Mean: 2000000, Median: 1800000, Std: 400000, Count: 50, Freq: 0.2,
		},
		Neighborhood: cleaning.GroupStats{
			Mean: 2400000, Median: 2200000, Std: 300000, Count: 12, Freq: 0.05,
		},
	}
}

func TestSynthesizeSchema(t *testing.T) {
	out, err := Synthesize([]Input{sampleInput(), sampleInput()})
	require.NoError(t, err)

	assert.Equal(t, 2, out.Rows())
	assert.Equal(t, Names(), out.Names())
	assert.Equal(t, 63, out.Cols())
}

func TestSynthesizeEmpty(t *testing.T) {
	_, err := Synthesize(nil)
	assert.Error(t, err)
}

func TestSynthesizeFormulas(t *testing.T) {
	in := sampleInput()
	out, err := Synthesize([]Input{in})
	require.NoError(t, err)

	d, n := in.District, in.Neighborhood

	assert.InDelta(t, d.Std/(d.Mean+1), out.At(0, "price_volatility"), 1e-12)
	assert.InDelta(t, n.Mean/(d.Mean+1), out.At(0, "neighborhood_premium"), 1e-12)
	assert.InDelta(t, (d.Mean-d.Median)/(d.Std+1), out.At(0, "bargaining_index"), 1e-12)
	assert.InDelta(t, d.Mean*d.Freq, out.At(0, "district_luxury_score"), 1e-12)

	assert.InDelta(t, 120.0/3.1, out.At(0, "area_room_ratio"), 1e-12)
	assert.InDelta(t, math.Log1p(120), out.At(0, "area_log"), 1e-12)
	assert.InDelta(t, math.Abs(120-3*25), out.At(0, "ideal_area_deviation"), 1e-12)

	assert.InDelta(t, 1.0/11, out.At(0, "age_reciprocal"), 1e-12)
	assert.InDelta(t, math.Exp(-0.5), out.At(0, "age_decay"), 1e-12)
	assert.InDelta(t, 120/math.Pow(3, 1.2), out.At(0, "area_efficiency"), 1e-12)

	assert.InDelta(t, d.Freq/(n.Freq+0.001), out.At(0, "supply_demand_balance"), 1e-12)
	assert.InDelta(t, (n.Mean-d.Mean)/(d.Std+1), out.At(0, "neighborhood_z_score"), 1e-12)
	assert.InDelta(t, n.Median/(d.Median+1), out.At(0, "neighborhood_median_ratio"), 1e-12)
}

func TestAgeBandIndicatorsArePartition(t *testing.T) {
	for _, age := range []float64{0, 3, 5, 6, 12, 15, 16, 40, 80} {
		in := sampleInput()
		in.Age = age
		out, err := Synthesize([]Input{in})
		require.NoError(t, err)

		sum := out.At(0, "new_building") + out.At(0, "mid_age_building") + out.At(0, "old_building")
		assert.Equal(t, 1.0, sum, "age %v", age)
	}
}

func TestFloorAdvantageScore(t *testing.T) {
	cases := map[float64]float64{
		-1: -0.1, 0: 0, 1: 0.1, 3: 0.1, 4: 0.15, 7: 0.15, 8: 0.05, 15: 0.05, 16: -0.05,
	}
	for floor, want := range cases {
		in := sampleInput()
		in.Floor = floor
		out, err := Synthesize([]Input{in})
		require.NoError(t, err)
		assert.Equal(t, want, out.At(0, "floor_advantage"), "floor %v", floor)
	}
}

func TestPairwiseInteractions(t *testing.T) {
	in := sampleInput()
	out, err := Synthesize([]Input{in})
	require.NoError(t, err)

	assert.InDelta(t, in.Area*in.Rooms, out.At(0, "area_x_rooms"), 1e-12)
	rec := 1 / (in.Age + 1)
	assert.InDelta(t, in.Area*rec, out.At(0, "area_x_age_reciprocal"), 1e-12)
	assert.InDelta(t, in.Rooms*0.15, out.At(0, "rooms_x_floor_advantage"), 1e-12)
}

func TestNonFiniteValuesReplaced(t *testing.T) {
	good := sampleInput()
	bad := sampleInput()
	bad.Rooms = 0 // area_efficiency divides by rooms^1.2

	out, err := Synthesize([]Input{good, good, bad})
	require.NoError(t, err)

	col, ok := out.Column("area_efficiency")
	require.True(t, ok)
	for i, v := range col {
		assert.False(t, math.IsInf(v, 0) || math.IsNaN(v), "row %d", i)
	}
	// The degenerate row takes the median of the finite values.
	assert.Equal(t, col[0], col[2])
}
