// Package encoding implements leakage-safe target encoding for the
// categorical location columns.
//
// At training time each row receives nine price statistics per categorical
// column, computed out-of-fold: the folds are stratified by district so
// every fold sees a balanced location mix, and a row's statistics are
// always derived from the other folds' rows only. No row's encoded
// features may depend on that row's own price.
//
// At inference time the same statistics are computed from the entire
// training dataset, since the query row was never part of it.
package encoding

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"konutpricer/cleaning"
	"konutpricer/frame"
	"konutpricer/modelsel"
	kperrors "konutpricer/pkg/errors"
)

// SmoothingFactor is the Bayesian smoothing strength blending a category's
// observed mean with the global mean, weighted count/(count+factor).
const SmoothingFactor = 10.0

// statNames is the persisted order of the encoded sub-features.
var statNames = []string{"mean", "median", "std", "count", "min", "max", "q25", "q75", "smoothed"}

// Stats holds the nine target statistics of one category.
type Stats struct {
	Mean     float64
	Median   float64
	Std      float64
	Count    float64
	Min      float64
	Max      float64
	Q25      float64
	Q75      float64
	Smoothed float64
}

func (s Stats) values() []float64 {
	return []float64{s.Mean, s.Median, s.Std, s.Count, s.Min, s.Max, s.Q25, s.Q75, s.Smoothed}
}

// Global holds the dataset-wide target statistics used as the fallback for
// categories absent from a fold's training partition or unseen at query
// time.
type Global struct {
	Mean   float64
	Median float64
	Std    float64
}

// Fallback returns the statistics assigned to an unknown category.
func (g Global) Fallback() Stats {
	return Stats{
		Mean: g.Mean, Median: g.Median, Std: g.Std, Count: 1,
		Min: g.Mean, Max: g.Mean, Q25: g.Mean, Q75: g.Mean, Smoothed: g.Mean,
	}
}

// GlobalStats computes the dataset-wide target statistics.
func GlobalStats(rows []cleaning.Row) Global {
	prices := make([]float64, len(rows))
	for i, r := range rows {
		prices[i] = r.Price
	}
	return Global{
		Mean:   stat.Mean(prices, nil),
		Median: cleaning.Median(prices),
		Std:    cleaning.SampleStd(prices),
	}
}

// Column names a categorical column and how to read it from a row.
type Column struct {
	Name  string
	Value func(cleaning.Row) string
}

// DistrictColumn is the district categorical column.
func DistrictColumn() Column {
	return Column{Name: "district", Value: func(r cleaning.Row) string { return r.District }}
}

// NeighborhoodColumn is the neighborhood categorical column.
func NeighborhoodColumn() Column {
	return Column{Name: "neighborhood", Value: func(r cleaning.Row) string { return r.Neighborhood }}
}

// Encoder computes out-of-fold target statistics.
type Encoder struct {
	Columns []Column
	Folds   int
	Seed    uint64
}

// NewEncoder creates an encoder over the district and neighborhood columns
// with the given fold count and seed.
func NewEncoder(folds int, seed uint64) *Encoder {
	return &Encoder{
		Columns: []Column{DistrictColumn(), NeighborhoodColumn()},
		Folds:   folds,
		Seed:    seed,
	}
}

// FitTransform assigns out-of-fold statistics to every training row,
// returning a frame with columns "<col>_target_<stat>".
func (e *Encoder) FitTransform(rows []cleaning.Row) (_ *frame.Frame, err error) {
	defer kperrors.Recover(&err, "Encoder.FitTransform")
	if len(rows) == 0 {
		return nil, kperrors.NewModelError("Encoder.FitTransform", "empty table", kperrors.ErrEmptyData)
	}

	global := GlobalStats(rows)

	districts := make([]string, len(rows))
	for i, r := range rows {
		districts[i] = r.District
	}
	kf := modelsel.StratifiedKFold{NSplits: e.Folds, Shuffle: true, Seed: e.Seed}
	folds := kf.Split(modelsel.Encode(districts))

	out := frame.New(len(rows))
	for _, col := range e.Columns {
		encoded := make([]Stats, len(rows))
		for _, fold := range folds {
			stats := groupStats(rows, fold.Train, col.Value, global)
			for _, i := range fold.Test {
				s, ok := stats[col.Value(rows[i])]
				if !ok {
					s = global.Fallback()
				}
				encoded[i] = s
			}
		}
		if err := addStatColumns(out, col.Name, encoded); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// TrainedStats computes, per category, the statistics over the full
// training dataset for use at inference time.
func TrainedStats(rows []cleaning.Row, col Column) map[string]Stats {
	idx := make([]int, len(rows))
	for i := range rows {
		idx[i] = i
	}
	return groupStats(rows, idx, col.Value, GlobalStats(rows))
}

// EncodeQuery joins precomputed category statistics onto a single query
// record, falling back to global statistics for unknown categories. The
// lookup is total: it always yields a value, never an error.
func EncodeQuery(out *frame.Frame, colName, category string, stats map[string]Stats, global Global) error {
	s, ok := stats[category]
	if !ok {
		s = global.Fallback()
	}
	return addStatColumns(out, colName, []Stats{s})
}

// FeatureNames returns the encoded column names for a categorical column.
func FeatureNames(colName string) []string {
	out := make([]string, len(statNames))
	for i, s := range statNames {
		out[i] = colName + "_target_" + s
	}
	return out
}

func addStatColumns(out *frame.Frame, colName string, encoded []Stats) error {
	names := FeatureNames(colName)
	for k, name := range names {
		values := make([]float64, len(encoded))
		for i, s := range encoded {
			values[i] = s.values()[k]
		}
		if err := out.AddColumn(name, values); err != nil {
			return err
		}
	}
	return nil
}

// groupStats aggregates the target over the given rows per category.
// Categories observed once take the global std; the smoothed mean blends
// the observed mean toward the global mean by SmoothingFactor.
func groupStats(rows []cleaning.Row, idx []int, value func(cleaning.Row) string, global Global) map[string]Stats {
	byCat := make(map[string][]float64)
	for _, i := range idx {
		cat := value(rows[i])
		byCat[cat] = append(byCat[cat], rows[i].Price)
	}
	out := make(map[string]Stats, len(byCat))
	for cat, prices := range byCat {
		count := float64(len(prices))
		std := cleaning.SampleStd(prices)
		if len(prices) < 2 {
			std = global.Std
		}
		mn, mx := prices[0], prices[0]
		for _, p := range prices {
			mn = math.Min(mn, p)
			mx = math.Max(mx, p)
		}
		m := stat.Mean(prices, nil)
		out[cat] = Stats{
			Mean:     m,
			Median:   cleaning.Median(prices),
			Std:      std,
			Count:    count,
			Min:      mn,
			Max:      mx,
			Q25:      cleaning.Quantile(prices, 0.25),
			Q75:      cleaning.Quantile(prices, 0.75),
			Smoothed: (count*m + SmoothingFactor*global.Mean) / (count + SmoothingFactor),
		}
	}
	return out
}
