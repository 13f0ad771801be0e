package encoding

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"konutpricer/cleaning"
	"konutpricer/dataset"
	"konutpricer/frame"
)

func row(district, hood string, price float64) cleaning.Row {
	return cleaning.Row{Record: dataset.Record{
		Price:        price,
		District:     district,
		Neighborhood: hood,
		Area:         100,
		Rooms:        3,
		Age:          10,
		Floor:        2,
	}}
}

func twoDistrictRows() []cleaning.Row {
	var rows []cleaning.Row
	for i := 0; i < 20; i++ {
		rows = append(rows, row("Kadıköy", "Moda", 100))
	}
	for i := 0; i < 20; i++ {
		rows = append(rows, row("Üsküdar", "Kuzguncuk", 500))
	}
	return rows
}

func TestFitTransformColumnNames(t *testing.T) {
	enc := NewEncoder(5, 42)
	out, err := enc.FitTransform(twoDistrictRows())
	require.NoError(t, err)

	assert.Equal(t, 40, out.Rows())
	assert.Len(t, out.Names(), 18)
	for _, name := range FeatureNames("district") {
		assert.Contains(t, out.Names(), name)
	}
	for _, name := range FeatureNames("neighborhood") {
		assert.Contains(t, out.Names(), name)
	}
}

func TestFitTransformEmptyInput(t *testing.T) {
	enc := NewEncoder(5, 42)
	_, err := enc.FitTransform(nil)
	assert.Error(t, err)
}

func TestFitTransformExcludesOwnPrice(t *testing.T) {
	// 20 rows at the same price plus a single outlier. The outlier sits in
	// exactly one test fold, so its own encoded maximum must come from the
	// other rows only and cannot reflect its own price.
	rows := twoDistrictRows()
	rows = append(rows, row("Kadıköy", "Moda", 10000))

	enc := NewEncoder(5, 42)
	out, err := enc.FitTransform(rows)
	require.NoError(t, err)

	maxCol, ok := out.Column("district_target_max")
	require.True(t, ok)
	assert.Equal(t, 100.0, maxCol[len(rows)-1])

	meanCol, ok := out.Column("district_target_mean")
	require.True(t, ok)
	assert.Equal(t, 100.0, meanCol[len(rows)-1])
}

func TestFitTransformDeterministic(t *testing.T) {
	rows := twoDistrictRows()

	a, err := NewEncoder(5, 7).FitTransform(rows)
	require.NoError(t, err)
	b, err := NewEncoder(5, 7).FitTransform(rows)
	require.NoError(t, err)

	for _, name := range a.Names() {
		ca, ok := a.Column(name)
		require.True(t, ok)
		cb, ok := b.Column(name)
		require.True(t, ok)
		assert.Equal(t, ca, cb, name)
	}
}

func TestSmoothedMeanShrinksTowardGlobal(t *testing.T) {
	rows := twoDistrictRows()
	global := GlobalStats(rows)
	stats := TrainedStats(rows, DistrictColumn())

	kadikoy := stats["Kadıköy"]
	assert.Equal(t, 100.0, kadikoy.Mean)
	// 20 observations at 100 blended with global mean 300.
	expected := (20*100 + SmoothingFactor*global.Mean) / (20 + SmoothingFactor)
	assert.InDelta(t, expected, kadikoy.Smoothed, 1e-9)
	assert.Greater(t, kadikoy.Smoothed, kadikoy.Mean)
}

func TestSingletonCategoryFallsBackToGlobalStd(t *testing.T) {
	rows := twoDistrictRows()
	rows = append(rows, row("Beşiktaş", "Etiler", 900))

	global := GlobalStats(rows)
	stats := TrainedStats(rows, DistrictColumn())

	besiktas := stats["Beşiktaş"]
	assert.Equal(t, 1.0, besiktas.Count)
	assert.Equal(t, global.Std, besiktas.Std)
	assert.Equal(t, 900.0, besiktas.Min)
	assert.Equal(t, 900.0, besiktas.Max)
}

func TestEncodeQueryUnknownCategory(t *testing.T) {
	rows := twoDistrictRows()
	global := GlobalStats(rows)
	stats := TrainedStats(rows, DistrictColumn())

	out := frame.New(1)
	require.NoError(t, EncodeQuery(out, "district", "Sarıyer", stats, global))

	meanCol, ok := out.Column("district_target_mean")
	require.True(t, ok)
	assert.Equal(t, global.Mean, meanCol[0])

	countCol, ok := out.Column("district_target_count")
	require.True(t, ok)
	assert.Equal(t, 1.0, countCol[0])
}

func TestEncodeQueryKnownCategory(t *testing.T) {
	rows := twoDistrictRows()
	global := GlobalStats(rows)
	stats := TrainedStats(rows, DistrictColumn())

	out := frame.New(1)
	require.NoError(t, EncodeQuery(out, "district", "Üsküdar", stats, global))

	meanCol, ok := out.Column("district_target_mean")
	require.True(t, ok)
	assert.Equal(t, 500.0, meanCol[0])
}
