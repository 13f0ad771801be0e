package service

import (
	"math"

	"konutpricer/bundle"
	"konutpricer/cleaning"
	"konutpricer/encoding"
	"konutpricer/ensemble"
	"konutpricer/features"
	"konutpricer/frame"
	kperrors "konutpricer/pkg/errors"
	"konutpricer/pkg/log"
)

// Query is one listing to price.
type Query struct {
	District     string
	Neighborhood string
	Area         float64
	Rooms        float64
	Age          float64
	Floor        float64
}

// Reliability labels how much the prediction should be trusted.
type Reliability string

const (
	ReliabilityHigh   Reliability = "high"
	ReliabilityMedium Reliability = "medium"
	ReliabilityLow    Reliability = "low"
)

// Prediction is a priced query with its confidence band.
type Prediction struct {
	Price float64

	// One and two sigma bounds, lower bounds clipped at zero.
	Lower   float64
	Upper   float64
	Lower95 float64
	Upper95 float64

	ConfidenceInterval float64
	Reliability        Reliability
	ReliabilityScore   float64
	PricePerM2         float64
	Warnings           []string
}

// validateQuery enforces the same attribute ranges the cleaner accepts.
func validateQuery(q Query) error {
	switch {
	case q.Area < cleaning.MinArea || q.Area > cleaning.MaxArea:
		return kperrors.NewValueError("Service.Predict", "area out of range")
	case q.Rooms < cleaning.MinRooms || q.Rooms > cleaning.MaxRooms:
		return kperrors.NewValueError("Service.Predict", "rooms out of range")
	case q.Age < cleaning.MinAge || q.Age > cleaning.MaxAge:
		return kperrors.NewValueError("Service.Predict", "age out of range")
	case q.Floor < cleaning.MinFloor || q.Floor > cleaning.MaxFloor:
		return kperrors.NewValueError("Service.Predict", "floor out of range")
	case q.District == "":
		return kperrors.NewValueError("Service.Predict", "district is required")
	case q.Neighborhood == "":
		return kperrors.NewValueError("Service.Predict", "neighborhood is required")
	}
	return nil
}

// Predict prices one listing using the loaded bundle. Unknown locations
// never fail: they fall back to global statistics and lower the
// reliability through the interval checks, with an explanatory warning.
func (s *Service) Predict(q Query) (_ *Prediction, err error) {
	defer kperrors.Recover(&err, "Service.Predict")

	if err := validateQuery(q); err != nil {
		return nil, err
	}
	b, err := s.Bundle()
	if err != nil {
		return nil, err
	}

	var warnings []string

	district := cleaning.CanonicalDistrict(q.District)
	if resolved, ok := b.DistrictIndex.Resolve(district); ok {
		district = resolved
	} else {
		warnings = append(warnings, "district not seen in training data, using global statistics")
	}
	neighborhood := cleaning.NormalizeName(q.Neighborhood)
	if resolved, ok := b.NeighborhoodIndex.Resolve(neighborhood); ok {
		neighborhood = resolved
	} else {
		warnings = append(warnings, "neighborhood not seen in training data, using global statistics")
	}

	x, err := s.assembleQuery(b, district, neighborhood, q)
	if err != nil {
		return nil, err
	}

	scaled, err := b.Transformer.Transform(x.Matrix())
	if err != nil {
		return nil, kperrors.Wrap(err, "Service.Predict")
	}
	preds, err := b.Model.Predict(scaled)
	if err != nil {
		return nil, kperrors.Wrap(err, "Service.Predict")
	}
	price := math.Max(0, preds[0])

	p := intervals(price, b.MeanUncertainty)
	p.PricePerM2 = price / q.Area
	p.Warnings = warnings
	applyReliability(p, b.PriceRange.Q1, b.PriceRange.Q3, b.PriceRange.Q5, b.PriceRange.Q95)

	s.logger.Info().
		Str("district", district).
		Str("neighborhood", neighborhood).
		Float64("price", price).
		Str("reliability", string(p.Reliability)).
		Str(log.OperationKey, "predict").
		Msg("prediction served")
	return p, nil
}

// assembleQuery builds the single-row feature frame aligned to the
// training schema.
func (s *Service) assembleQuery(b *bundle.Bundle, district, neighborhood string, q Query) (*frame.Frame, error) {
	dStats, ok := b.DistrictStats[district]
	if !ok {
		dStats = globalGroupStats(b.TargetGlobal)
	}
	nStats, ok := b.NeighborhoodStats[neighborhood]
	if !ok {
		nStats = globalGroupStats(b.TargetGlobal)
	}

	numFrame, err := features.Synthesize([]features.Input{{
		Area:         q.Area,
		Rooms:        q.Rooms,
		Age:          q.Age,
		Floor:        q.Floor,
		District:     dStats,
		Neighborhood: nStats,
	}})
	if err != nil {
		return nil, err
	}

	targetFrame := frame.New(1)
	if err := encoding.EncodeQuery(targetFrame, "district", district, b.DistrictTarget, b.TargetGlobal); err != nil {
		return nil, err
	}
	if err := encoding.EncodeQuery(targetFrame, "neighborhood", neighborhood, b.NeighborhoodTarget, b.TargetGlobal); err != nil {
		return nil, err
	}

	catFrame, err := b.OneHot.Transform([][]string{{district, neighborhood}})
	if err != nil {
		return nil, err
	}

	combined, err := frame.Concat(numFrame, targetFrame, catFrame)
	if err != nil {
		return nil, err
	}
	return combined.Align(b.FeatureSchema), nil
}

// globalGroupStats stands in for an unknown location. Frequency zero
// marks it as unobserved.
func globalGroupStats(g encoding.Global) cleaning.GroupStats {
	return cleaning.GroupStats{
		Mean:   g.Mean,
		Median: g.Median,
		Std:    g.Std,
		Count:  1,
		Freq:   0,
	}
}

// intervals derives the confidence band from the bootstrap uncertainty,
// or from a fixed fraction of the prediction when no uncertainty was
// recorded.
func intervals(price, meanUncertainty float64) *Prediction {
	p := &Prediction{Price: price}
	if meanUncertainty > 0 {
		p.ConfidenceInterval = meanUncertainty
		if price > 0 {
			p.ReliabilityScore = 1 - meanUncertainty/price
		} else {
			p.ReliabilityScore = 0.5
		}
	} else {
		p.ConfidenceInterval = price * 0.15
		p.ReliabilityScore = 0.8
	}
	p.Lower = math.Max(0, price-p.ConfidenceInterval)
	p.Upper = price + p.ConfidenceInterval
	p.Lower95 = math.Max(0, price-2*p.ConfidenceInterval)
	p.Upper95 = price + 2*p.ConfidenceInterval
	return p
}

// applyReliability downgrades predictions that land outside the familiar
// training price territory.
func applyReliability(p *Prediction, q1, q3, q5, q95 float64) {
	switch {
	case p.Price < q5 || p.Price > q95:
		p.Reliability = ReliabilityLow
		p.ReliabilityScore = math.Max(0.2, p.ReliabilityScore*0.4)
		p.Warnings = append(p.Warnings, "predicted price is outside the usual price range")
	case p.Price < q1*0.8 || p.Price > q3*1.2:
		p.Reliability = ReliabilityMedium
		p.ReliabilityScore = math.Max(0.5, p.ReliabilityScore*0.7)
		p.Warnings = append(p.Warnings, "predicted price is at the edge of the usual price range")
	default:
		p.Reliability = ReliabilityHigh
	}
}

// Locations lists the districts and their neighborhoods known to the
// loaded bundle.
func (s *Service) Locations() (districts []string, neighborhoods map[string][]string, err error) {
	b, err := s.Bundle()
	if err != nil {
		return nil, nil, err
	}
	return b.Districts, b.Neighborhoods, nil
}

// DistrictSummary is the reporting view of one district.
type DistrictSummary struct {
	Mean       float64
	Median     float64
	Min        float64
	Max        float64
	Std        float64
	Count      int
	PricePerM2 float64
}

// DistrictStats summarizes training prices per district.
func (s *Service) DistrictStats() (map[string]DistrictSummary, error) {
	b, err := s.Bundle()
	if err != nil {
		return nil, err
	}

	out := make(map[string]DistrictSummary, len(b.DistrictTarget))
	for district, stats := range b.DistrictTarget {
		out[district] = DistrictSummary{
			Mean:       stats.Mean,
			Median:     stats.Median,
			Min:        stats.Min,
			Max:        stats.Max,
			Std:        stats.Std,
			Count:      int(stats.Count),
			PricePerM2: b.DistrictPricePerM2[district],
		}
	}
	return out, nil
}

// BandPerformance reports the holdout metrics per price band from the
// training run.
func (s *Service) BandPerformance() ([]ensemble.BandPerformance, error) {
	b, err := s.Bundle()
	if err != nil {
		return nil, err
	}
	if b.Report == nil {
		return nil, kperrors.NewModelError("Service.BandPerformance", "bundle has no evaluation report", kperrors.ErrDataUnavailable)
	}
	return b.Report.Bands, nil
}
