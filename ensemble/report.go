package ensemble

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"konutpricer/metrics"
)

// CandidateScore summarizes one candidate's cross-validation and holdout
// performance.
type CandidateScore struct {
	Name     string
	CVMean   float64
	CVStd    float64
	TestR2   float64
	TestMAPE float64
	OOBScore float64
	Selected bool
	Weight   float64
}

// BandPerformance scores the chosen strategy inside one price range.
type BandPerformance struct {
	Label    string
	MinPrice float64
	MaxPrice float64
	R2       float64
	MAPE     float64
	Count    int
}

// FeatureImportance is one feature's share of the forest's impurity
// decrease.
type FeatureImportance struct {
	Name  string
	Score float64
}

// Report is the full holdout evaluation of a training run.
type Report struct {
	Strategy Strategy

	MSE        float64
	RMSE       float64
	MAE        float64
	MedianAE   float64
	R2         float64
	AdjustedR2 float64
	MAPE       float64

	ResidualMean float64
	ResidualStd  float64
	Within10    float64
	Within20    float64

	Candidates  []CandidateScore
	Bands       []BandPerformance
	TopFeatures []FeatureImportance

	NTrain    int
	NTest     int
	NFeatures int
}

// priceBands are the evaluation ranges, upper bound excluded.
var priceBands = []struct {
	label    string
	min, max float64
}{
	{"under 1M", 0, 1_000_000},
	{"1M to 3M", 1_000_000, 3_000_000},
	{"3M to 5M", 3_000_000, 5_000_000},
	{"over 5M", 5_000_000, math.Inf(1)},
}

// bandPerformances evaluates predictions per price band, skipping empty
// bands.
func bandPerformances(yTrue, yPred []float64) []BandPerformance {
	var out []BandPerformance
	for _, band := range priceBands {
		var bt, bp []float64
		for i, v := range yTrue {
			if v >= band.min && v < band.max {
				bt = append(bt, v)
				bp = append(bp, yPred[i])
			}
		}
		if len(bt) == 0 {
			continue
		}
		r2, _ := metrics.R2Score(bt, bp)
		mape, _ := metrics.MAPE(bt, bp)
		out = append(out, BandPerformance{
			Label:    band.label,
			MinPrice: band.min,
			MaxPrice: band.max,
			R2:       r2,
			MAPE:     mape,
			Count:    len(bt),
		})
	}
	return out
}

// topImportances ranks the named importances and keeps the top k.
func topImportances(names []string, scores []float64, k int) []FeatureImportance {
	if len(scores) == 0 {
		return nil
	}
	out := make([]FeatureImportance, 0, len(scores))
	for i, s := range scores {
		name := ""
		if i < len(names) {
			name = names[i]
		}
		out = append(out, FeatureImportance{Name: name, Score: s})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if len(out) > k {
		out = out[:k]
	}
	return out
}

// buildReport assembles the holdout metrics for the chosen strategy.
func buildReport(yTest, yPred []float64, nFeatures, nTrain int, strategy Strategy) (*Report, error) {
	mse, err := metrics.MSE(yTest, yPred)
	if err != nil {
		return nil, err
	}
	rmse, _ := metrics.RMSE(yTest, yPred)
	mae, _ := metrics.MAE(yTest, yPred)
	medAE, _ := metrics.MedianAE(yTest, yPred)
	r2, _ := metrics.R2Score(yTest, yPred)
	mape, _ := metrics.MAPE(yTest, yPred)

	residuals := make([]float64, len(yTest))
	for i := range yTest {
		residuals[i] = yTest[i] - yPred[i]
	}

	return &Report{
		Strategy:     strategy,
		MSE:          mse,
		RMSE:         rmse,
		MAE:          mae,
		MedianAE:     medAE,
		R2:           r2,
		AdjustedR2:   metrics.AdjustedR2(r2, len(yTest), nFeatures),
		MAPE:         mape,
		ResidualMean: stat.Mean(residuals, nil),
		ResidualStd:  popStdOf(residuals),
		Within10:     metrics.WithinBand(yTest, yPred, 0.10),
		Within20:     metrics.WithinBand(yTest, yPred, 0.20),
		Bands:        bandPerformances(yTest, yPred),
		NTrain:       nTrain,
		NTest:        len(yTest),
		NFeatures:    nFeatures,
	}, nil
}
