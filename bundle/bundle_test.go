package bundle

import (
	"math/rand/v2"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"konutpricer/cleaning"
	"konutpricer/encoding"
	"konutpricer/ensemble"
	"konutpricer/preprocessing"
)

func fittedBundle(t *testing.T) *Bundle {
	t.Helper()

	rng := rand.New(rand.NewPCG(1, 1))
	n := 80
	x := mat.NewDense(n, 3, nil)
	y := make([]float64, n)
	for i := 0; i < n; i++ {
		row := []float64{rng.Float64() * 10, rng.Float64() * 10, rng.Float64()}
		x.SetRow(i, row)
		y[i] = 4*row[0] + row[1] + rng.NormFloat64()
	}

	rf := ensemble.NewRandomForest(42)
	rf.NEstimators = 5
	gb := ensemble.NewGradientBoosting(42)
	gb.NEstimators = 10
	voting := ensemble.NewVoting([]ensemble.Member{
		{Name: "rf", Model: rf},
		{Name: "gb", Model: gb},
	}, []float64{0.5, 0.5})
	require.NoError(t, voting.Fit(x, y))

	transformer := preprocessing.NewPowerTransformer()
	_, err := transformer.FitTransform(x)
	require.NoError(t, err)

	return &Bundle{
		Model:         voting,
		Strategy:      ensemble.StrategyWeightedAverage,
		Selected:      []string{"rf", "gb"},
		Weights:       []float64{0.5, 0.5},
		Transformer:   transformer,
		FeatureSchema: []string{"a", "b", "c"},
		DistrictStats: map[string]cleaning.GroupStats{
			"Kadıköy": {Mean: 2e6, Median: 1.8e6, Std: 4e5, Count: 40, Freq: 0.5},
		},
		DistrictIndex: cleaning.FoldIndex{"kadikoy": "Kadıköy"},
		Districts:     []string{"Kadıköy"},
		Neighborhoods: map[string][]string{"Kadıköy": {"Moda"}},
		DistrictTarget: map[string]encoding.Stats{
			"Kadıköy": {Mean: 2e6, Median: 1.8e6, Std: 4e5, Count: 40},
		},
		TargetGlobal:    encoding.Global{Mean: 2e6, Median: 1.8e6, Std: 4e5},
		PriceRange:      NewPriceRange(y),
		MeanUncertainty: 120000,
		Metadata: Metadata{
			CreatedAt: time.Now().UTC(),
			Seed:      42,
			NTrain:    64,
			NTest:     16,
			NFeatures: 3,
		},
	}
}

func roundTrip(t *testing.T, repo Repository, b *Bundle) *Bundle {
	t.Helper()
	require.NoError(t, repo.Save(b))
	loaded, err := repo.Load()
	require.NoError(t, err)
	return loaded
}

func assertSamePredictions(t *testing.T, a, b *Bundle) {
	t.Helper()
	x := mat.NewDense(4, 3, []float64{
		1, 2, 0.5,
		5, 5, 0.1,
		9, 1, 0.9,
		3, 7, 0.3,
	})
	pa, err := a.Model.Predict(x)
	require.NoError(t, err)
	pb, err := b.Model.Predict(x)
	require.NoError(t, err)
	assert.Equal(t, pa, pb)
}

func TestFileRepositoryRoundTrip(t *testing.T) {
	b := fittedBundle(t)
	repo := NewFileRepository(filepath.Join(t.TempDir(), "model.bundle"))

	loaded := roundTrip(t, repo, b)
	assert.Equal(t, b.Strategy, loaded.Strategy)
	assert.Equal(t, b.Selected, loaded.Selected)
	assert.Equal(t, b.FeatureSchema, loaded.FeatureSchema)
	assert.Equal(t, b.DistrictStats, loaded.DistrictStats)
	assert.Equal(t, b.DistrictTarget, loaded.DistrictTarget)
	assert.Equal(t, b.PriceRange, loaded.PriceRange)
	assert.Equal(t, b.MeanUncertainty, loaded.MeanUncertainty)
	assertSamePredictions(t, b, loaded)
}

func TestFileRepositoryMissingFile(t *testing.T) {
	repo := NewFileRepository(filepath.Join(t.TempDir(), "absent.bundle"))
	_, err := repo.Load()
	assert.Error(t, err)
}

func TestMemoryRepositoryRoundTrip(t *testing.T) {
	b := fittedBundle(t)
	repo := NewMemoryRepository()

	loaded := roundTrip(t, repo, b)
	assert.Equal(t, b.Weights, loaded.Weights)
	assertSamePredictions(t, b, loaded)
}

func TestMemoryRepositoryEmpty(t *testing.T) {
	_, err := NewMemoryRepository().Load()
	assert.Error(t, err)
}

func TestSaveNilBundle(t *testing.T) {
	assert.Error(t, NewMemoryRepository().Save(nil))
	assert.Error(t, NewFileRepository(filepath.Join(t.TempDir(), "x")).Save(nil))
}

func TestNewPriceRange(t *testing.T) {
	prices := []float64{100, 200, 300, 400, 500}
	pr := NewPriceRange(prices)

	assert.Equal(t, 100.0, pr.Min)
	assert.Equal(t, 500.0, pr.Max)
	assert.Equal(t, 300.0, pr.Mean)
	assert.Equal(t, 300.0, pr.Median)
	assert.Equal(t, 200.0, pr.Q1)
	assert.Equal(t, 400.0, pr.Q3)
	assert.Less(t, pr.Q5, pr.Q1)
	assert.Greater(t, pr.Q95, pr.Q3)
}
