// Package bundle defines the persisted training artifact and the
// repositories that store it.
//
// A Bundle is everything inference needs, captured atomically at the end
// of a training run: the fitted ensemble, the power transformer, the
// feature schema, the cached location statistics, and the dispersion
// figures behind the confidence intervals. Consumers treat a loaded
// bundle as immutable; nothing in it is updated in place.
package bundle

import (
	"encoding/gob"
	"time"

	"konutpricer/cleaning"
	"konutpricer/encoding"
	"konutpricer/ensemble"
	"konutpricer/preprocessing"
)

func init() {
	// Concrete types reachable through the Regressor interface.
	gob.Register(&ensemble.RandomForest{})
	gob.Register(&ensemble.GradientBoosting{})
	gob.Register(&ensemble.RegularizedBoosting{})
	gob.Register(&ensemble.HistBoosting{})
	gob.Register(&ensemble.Ridge{})
	gob.Register(&ensemble.Voting{})
	gob.Register(&ensemble.Stacking{})
}

// PriceRange captures the spread of training prices, used to judge how
// far a prediction sits from familiar territory.
type PriceRange struct {
	Min    float64
	Max    float64
	Mean   float64
	Median float64
	Q1     float64
	Q3     float64
	Q5     float64
	Q95    float64
}

// Metadata records the provenance of a training run.
type Metadata struct {
	CreatedAt time.Time
	Seed      uint64
	NTrain    int
	NTest     int
	NFeatures int
}

// Bundle is the atomic training artifact.
type Bundle struct {
	Model       ensemble.Regressor
	Strategy    ensemble.Strategy
	Selected    []string
	Weights     []float64
	Transformer *preprocessing.PowerTransformer

	// FeatureSchema is the exact column order the model was fitted on.
	// Inference frames are aligned to it before prediction.
	FeatureSchema []string

	// Cached training-set statistics so inference never re-reads the
	// dataset.
	DistrictStats      map[string]cleaning.GroupStats
	NeighborhoodStats  map[string]cleaning.GroupStats
	DistrictIndex      cleaning.FoldIndex
	NeighborhoodIndex  cleaning.FoldIndex
	Districts          []string
	Neighborhoods      map[string][]string
	DistrictTarget     map[string]encoding.Stats
	NeighborhoodTarget map[string]encoding.Stats
	TargetGlobal       encoding.Global

	// OneHot carries the categorical level layout used at training time.
	OneHot *preprocessing.OneHotEncoder

	// DistrictPricePerM2 is the mean price per square meter per
	// district, for the reporting surface.
	DistrictPricePerM2 map[string]float64

	PriceRange      PriceRange
	MeanUncertainty float64
	ResidualStd     float64

	Report   *ensemble.Report
	Metadata Metadata
}

// NewPriceRange summarizes training prices into a PriceRange.
func NewPriceRange(prices []float64) PriceRange {
	if len(prices) == 0 {
		return PriceRange{}
	}
	mn, mx := prices[0], prices[0]
	sum := 0.0
	for _, p := range prices {
		if p < mn {
			mn = p
		}
		if p > mx {
			mx = p
		}
		sum += p
	}
	return PriceRange{
		Min:    mn,
		Max:    mx,
		Mean:   sum / float64(len(prices)),
		Median: cleaning.Median(prices),
		Q1:     cleaning.Quantile(prices, 0.25),
		Q3:     cleaning.Quantile(prices, 0.75),
		Q5:     cleaning.Quantile(prices, 0.05),
		Q95:    cleaning.Quantile(prices, 0.95),
	}
}
