// Package cleaning turns raw listing rows into a validated, outlier-free
// table with per-group price statistics attached to every row.
//
// The pipeline is deterministic and order-dependent: each stage consumes the
// output of the previous one. A single global outlier pass under-corrects
// for heterogeneous district price distributions, so a per-district pass
// with tighter fences follows it, with minimum-sample floors to keep group
// statistics meaningful.
package cleaning

import (
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"konutpricer/dataset"
	kperrors "konutpricer/pkg/errors"
	"konutpricer/pkg/log"
)

// Validity ranges and outlier-stage constants. The quantile pairs and fence
// multipliers are tuned values; changing them changes the model contract.
const (
	MinArea  = 30.0
	MaxArea  = 400.0
	MinRooms = 1.0
	MaxRooms = 8.0
	MinAge   = 0.0
	MaxAge   = 80.0
	MinFloor = -2.0
	MaxFloor = 40.0
	MinPrice = 100_000.0
	MaxPrice = 50_000_000.0

	zScoreLimit = 3.0

	districtPriceQLow   = 0.10
	districtPriceQHigh  = 0.90
	districtPriceFence  = 1.0
	districtAreaQLow    = 0.05
	districtAreaQHigh   = 0.95
	districtAreaFence   = 1.5
	pricePerAreaQLow    = 0.01
	pricePerAreaQHigh   = 0.99
	pricePerAreaFence   = 1.5
	MinDistrictRows     = 10
	MinNeighborhoodRows = 5
)

// Row is a cleaned record with its group statistics and log price.
type Row struct {
	dataset.Record
	DistrictStats     GroupStats
	NeighborhoodStats GroupStats
	LogPrice          float64
}

// Table is the cleaned dataset. It is recomputed per run from the raw
// source and never persisted.
type Table struct {
	Rows              []Row
	DistrictStats     map[string]GroupStats
	NeighborhoodStats map[string]GroupStats
	DistrictIndex     FoldIndex
	NeighborhoodIndex FoldIndex
}

// Prices returns the price column.
func (t *Table) Prices() []float64 {
	out := make([]float64, len(t.Rows))
	for i, r := range t.Rows {
		out[i] = r.Price
	}
	return out
}

// Districts returns the sorted distinct district names.
func (t *Table) Districts() []string {
	out := make([]string, 0, len(t.DistrictStats))
	for d := range t.DistrictStats {
		out = append(out, d)
	}
	sort.Strings(out)
	return out
}

// NeighborhoodsByDistrict returns each district's sorted neighborhood list.
func (t *Table) NeighborhoodsByDistrict() map[string][]string {
	seen := make(map[string]map[string]bool)
	for _, r := range t.Rows {
		if seen[r.District] == nil {
			seen[r.District] = make(map[string]bool)
		}
		seen[r.District][r.Neighborhood] = true
	}
	out := make(map[string][]string, len(seen))
	for d, hoods := range seen {
		names := make([]string, 0, len(hoods))
		for h := range hoods {
			names = append(names, h)
		}
		sort.Strings(names)
		out[d] = names
	}
	return out
}

// Cleaner runs the multi-stage cleaning pipeline.
type Cleaner struct {
	logger zerolog.Logger
}

// NewCleaner creates a Cleaner.
func NewCleaner() *Cleaner {
	return &Cleaner{logger: log.GetLoggerWithName("cleaning")}
}

// Clean runs all stages over the raw rows. It fails softly: a missing or
// degenerate dataset yields a nil table and an error wrapping
// ErrDataUnavailable rather than a panic.
func (c *Cleaner) Clean(raw []dataset.Raw) (_ *Table, err error) {
	defer kperrors.Recover(&err, "Cleaner.Clean")
	if len(raw) == 0 {
		return nil, kperrors.NewModelError("Cleaner.Clean", "no input rows", kperrors.ErrDataUnavailable)
	}

	records := c.parseAndFilter(raw)
	c.logger.Info().Int(log.RowsKey, len(records)).Msg("base cleaning done")

	records = c.zScoreFilter(records)
	c.logger.Info().Int(log.RowsKey, len(records)).Msg("global z-score pass done")

	records = c.perDistrictFilter(records)
	c.logger.Info().Int(log.RowsKey, len(records)).Msg("per-district pass done")

	records = c.pricePerAreaFilter(records)
	records = filterByGroupCount(records, func(r dataset.Record) string { return r.District }, MinDistrictRows)
	records = filterByGroupCount(records, func(r dataset.Record) string { return r.Neighborhood }, MinNeighborhoodRows)
	c.logger.Info().Int(log.RowsKey, len(records)).Msg("cleaning finished")

	if len(records) == 0 {
		return nil, kperrors.NewModelError("Cleaner.Clean", "no rows survived filtering", kperrors.ErrDataUnavailable)
	}
	return c.buildTable(records), nil
}

// parseAndFilter drops rows with missing fields or unparseable numbers,
// canonicalizes location names, and applies the fixed validity ranges.
func (c *Cleaner) parseAndFilter(raw []dataset.Raw) []dataset.Record {
	out := make([]dataset.Record, 0, len(raw))
	for _, r := range raw {
		price, ok1 := parseNumber(r.Price)
		area, ok2 := parseNumber(r.Area)
		rooms, ok3 := parseNumber(r.Rooms)
		age, ok4 := parseNumber(r.Age)
		floor, ok5 := parseNumber(r.Floor)
		district := CanonicalDistrict(r.District)
		hood := NormalizeName(r.Neighborhood)
		if !ok1 || !ok2 || !ok3 || !ok4 || !ok5 || district == "" || hood == "" {
			continue
		}
		if area < MinArea || area > MaxArea ||
			rooms < MinRooms || rooms > MaxRooms ||
			age < MinAge || age > MaxAge ||
			floor < MinFloor || floor > MaxFloor ||
			price < MinPrice || price > MaxPrice {
			continue
		}
		out = append(out, dataset.Record{
			Price:        price,
			District:     district,
			Neighborhood: hood,
			Area:         area,
			Rooms:        rooms,
			Age:          age,
			Floor:        floor,
		})
	}
	return out
}

// zScoreFilter drops rows whose price is three or more population standard
// deviations from the global mean.
func (c *Cleaner) zScoreFilter(records []dataset.Record) []dataset.Record {
	if len(records) == 0 {
		return records
	}
	prices := make([]float64, len(records))
	for i, r := range records {
		prices[i] = r.Price
	}
	mean := meanOf(prices)
	std := popStd(prices)
	if std == 0 {
		return records
	}
	out := records[:0]
	for _, r := range records {
		if math.Abs(r.Price-mean)/std < zScoreLimit {
			out = append(out, r)
		}
	}
	return out
}

// perDistrictFilter applies, within each district, the price fence on the
// p10/p90 quantiles with a 1.0 multiplier and then the area fence on the
// p05/p95 quantiles with a 1.5 multiplier. Districts with fewer than
// MinDistrictRows rows are dropped entirely.
func (c *Cleaner) perDistrictFilter(records []dataset.Record) []dataset.Record {
	byDistrict := make(map[string][]dataset.Record)
	order := make([]string, 0)
	for _, r := range records {
		if _, ok := byDistrict[r.District]; !ok {
			order = append(order, r.District)
		}
		byDistrict[r.District] = append(byDistrict[r.District], r)
	}

	out := make([]dataset.Record, 0, len(records))
	for _, d := range order {
		rows := byDistrict[d]
		if len(rows) < MinDistrictRows {
			c.logger.Debug().Str("district", d).Int(log.RowsKey, len(rows)).Msg("district dropped, too few rows")
			continue
		}

		prices := make([]float64, len(rows))
		for i, r := range rows {
			prices[i] = r.Price
		}
		lo, hi := iqrFence(prices, districtPriceQLow, districtPriceQHigh, districtPriceFence)
		kept := rows[:0]
		for _, r := range rows {
			if r.Price >= lo && r.Price <= hi {
				kept = append(kept, r)
			}
		}

		if len(kept) > 0 {
			areas := make([]float64, len(kept))
			for i, r := range kept {
				areas[i] = r.Area
			}
			alo, ahi := iqrFence(areas, districtAreaQLow, districtAreaQHigh, districtAreaFence)
			kept2 := kept[:0]
			for _, r := range kept {
				if r.Area >= alo && r.Area <= ahi {
					kept2 = append(kept2, r)
				}
			}
			kept = kept2
		}
		out = append(out, kept...)
	}
	return out
}

// pricePerAreaFilter removes global outliers on the price/area ratio using
// the p01/p99 quantiles with a 1.5 multiplier.
func (c *Cleaner) pricePerAreaFilter(records []dataset.Record) []dataset.Record {
	if len(records) == 0 {
		return records
	}
	ratios := make([]float64, len(records))
	for i, r := range records {
		ratios[i] = r.Price / r.Area
	}
	lo, hi := iqrFence(ratios, pricePerAreaQLow, pricePerAreaQHigh, pricePerAreaFence)
	out := records[:0]
	for i, r := range records {
		if ratios[i] >= lo && ratios[i] <= hi {
			out = append(out, r)
		}
	}
	return out
}

func filterByGroupCount(records []dataset.Record, key func(dataset.Record) string, minCount int) []dataset.Record {
	counts := make(map[string]int)
	for _, r := range records {
		counts[key(r)]++
	}
	out := records[:0]
	for _, r := range records {
		if counts[key(r)] >= minCount {
			out = append(out, r)
		}
	}
	return out
}

// buildTable computes group statistics and frequencies over the surviving
// rows and attaches them, plus log1p(price), to every row.
func (c *Cleaner) buildTable(records []dataset.Record) *Table {
	n := float64(len(records))
	districtPrices := make(map[string][]float64)
	hoodPrices := make(map[string][]float64)
	for _, r := range records {
		districtPrices[r.District] = append(districtPrices[r.District], r.Price)
		hoodPrices[r.Neighborhood] = append(hoodPrices[r.Neighborhood], r.Price)
	}

	districtStats := make(map[string]GroupStats, len(districtPrices))
	for d, prices := range districtPrices {
		districtStats[d] = GroupStats{
			Mean:   meanOf(prices),
			Median: Median(prices),
			Std:    SampleStd(prices),
			Count:  len(prices),
			Freq:   float64(len(prices)) / n,
		}
	}
	hoodStats := make(map[string]GroupStats, len(hoodPrices))
	for h, prices := range hoodPrices {
		hoodStats[h] = GroupStats{
			Mean:   meanOf(prices),
			Median: Median(prices),
			Std:    SampleStd(prices),
			Count:  len(prices),
			Freq:   float64(len(prices)) / n,
		}
	}

	rows := make([]Row, len(records))
	districtNames := make([]string, len(records))
	hoodNames := make([]string, len(records))
	for i, r := range records {
		rows[i] = Row{
			Record:            r,
			DistrictStats:     districtStats[r.District],
			NeighborhoodStats: hoodStats[r.Neighborhood],
			LogPrice:          math.Log1p(r.Price),
		}
		districtNames[i] = r.District
		hoodNames[i] = r.Neighborhood
	}

	return &Table{
		Rows:              rows,
		DistrictStats:     districtStats,
		NeighborhoodStats: hoodStats,
		DistrictIndex:     BuildFoldIndex(districtNames),
		NeighborhoodIndex: BuildFoldIndex(hoodNames),
	}
}

func parseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	s = strings.ReplaceAll(s, ",", "")
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}
