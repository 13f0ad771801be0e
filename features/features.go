// Package features synthesizes the numeric feature set fed to the
// ensemble.
//
// Each listing expands into sixty-three columns: the four raw attributes,
// the location group statistics, and engineered transforms covering area,
// age, floor, room geometry, market dynamics and pairwise interactions.
// The same synthesis runs at training and inference time so the learned
// models always see an identical schema.
package features

import (
	"math"

	"konutpricer/cleaning"
	"konutpricer/frame"
	kperrors "konutpricer/pkg/errors"
)

// Input carries one listing's raw attributes together with the price
// statistics of its resolved district and neighborhood.
type Input struct {
	Area  float64
	Rooms float64
	Age   float64
	Floor float64

	District     cleaning.GroupStats
	Neighborhood cleaning.GroupStats
}

// FromRow builds a synthesis input from a cleaned training row.
func FromRow(r cleaning.Row) Input {
	return Input{
		Area:         r.Area,
		Rooms:        r.Rooms,
		Age:          r.Age,
		Floor:        r.Floor,
		District:     r.DistrictStats,
		Neighborhood: r.NeighborhoodStats,
	}
}

var names = []string{
	"area", "rooms", "age", "floor",
	"district_mean", "district_median", "district_std",
	"neighborhood_mean", "neighborhood_median", "neighborhood_std",
	"district_freq", "neighborhood_freq",

	"price_volatility", "neighborhood_volatility", "neighborhood_premium",
	"bargaining_index", "neighborhood_bargaining_index",
	"district_luxury_score", "neighborhood_luxury_score",

	"area_room_ratio", "area_squared", "area_log", "area_sqrt", "area_cubed",
	"area_room_ratio_squared", "area_room_ratio_log", "ideal_area_deviation",

	"age_squared", "age_log", "age_sqrt", "age_reciprocal", "age_decay",
	"new_building", "mid_age_building", "old_building", "depreciation",

	"area_efficiency", "avg_room_size",
	"large_rooms", "medium_rooms", "small_rooms",

	"ground_floor", "high_floor", "basement_floor",
	"floor_1_3", "floor_4_7", "floor_8_plus",
	"floor_log", "floor_squared", "floor_advantage",

	"age_area_interaction", "floor_area_interaction", "premium_location_score",
	"supply_demand_balance", "price_stability_index",
	"neighborhood_z_score", "neighborhood_median_ratio",

	"area_x_rooms", "area_x_age_reciprocal", "area_x_floor_advantage",
	"rooms_x_age_reciprocal", "rooms_x_floor_advantage",
	"age_reciprocal_x_floor_advantage",
}

// Names returns the synthesized column names in output order.
func Names() []string {
	out := make([]string, len(names))
	copy(out, names)
	return out
}

// Synthesize expands the inputs into the full feature frame. Non-finite
// values arising from degenerate statistics are replaced with the
// column median.
func Synthesize(inputs []Input) (_ *frame.Frame, err error) {
	defer kperrors.Recover(&err, "Synthesize")
	if len(inputs) == 0 {
		return nil, kperrors.NewModelError("Synthesize", "no inputs", kperrors.ErrEmptyData)
	}

	cols := make([][]float64, len(names))
	for j := range cols {
		cols[j] = make([]float64, len(inputs))
	}
	for i, in := range inputs {
		for j, v := range compute(in) {
			cols[j][i] = v
		}
	}

	out := frame.New(len(inputs))
	for j, name := range names {
		if err := out.AddColumn(name, cols[j]); err != nil {
			return nil, err
		}
	}
	out.ReplaceNonFinite()
	return out, nil
}

func indicator(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// floorAdvantage scores how desirable a floor is, peaking at the middle
// floors and penalizing basements and towers.
func floorAdvantage(floor float64) float64 {
	switch {
	case floor < 0:
		return -0.1
	case floor == 0:
		return 0
	case floor <= 3:
		return 0.1
	case floor <= 7:
		return 0.15
	case floor <= 15:
		return 0.05
	default:
		return -0.05
	}
}

func compute(in Input) []float64 {
	d, n := in.District, in.Neighborhood

	priceVolatility := d.Std / (d.Mean + 1)
	districtLuxury := d.Mean * d.Freq

	areaRoomRatio := in.Area / (in.Rooms + 0.1)
	areaLog := math.Log1p(in.Area)

	ageReciprocal := 1 / (in.Age + 1)
	ageDecay := math.Exp(-in.Age / 20)

	avgRoomSize := in.Area / (in.Rooms + 0.5)
	advantage := floorAdvantage(in.Floor)

	return []float64{
		in.Area, in.Rooms, in.Age, in.Floor,
		d.Mean, d.Median, d.Std,
		n.Mean, n.Median, n.Std,
		d.Freq, n.Freq,

		priceVolatility,
		n.Std / (n.Mean + 1),
		n.Mean / (d.Mean + 1),
		(d.Mean - d.Median) / (d.Std + 1),
		(n.Mean - n.Median) / (n.Std + 1),
		districtLuxury,
		n.Mean * n.Freq,

		areaRoomRatio,
		in.Area * in.Area,
		areaLog,
		math.Sqrt(in.Area),
		in.Area * in.Area * in.Area,
		areaRoomRatio * areaRoomRatio,
		math.Log1p(areaRoomRatio),
		math.Abs(in.Area - in.Rooms*25),

		in.Age * in.Age,
		math.Log1p(in.Age + 1),
		math.Sqrt(in.Age + 1),
		ageReciprocal,
		ageDecay,
		indicator(in.Age <= 5),
		indicator(in.Age > 5 && in.Age <= 15),
		indicator(in.Age > 15),
		math.Max(0, 1-in.Age/50),

		in.Area / math.Pow(in.Rooms, 1.2),
		avgRoomSize,
		indicator(avgRoomSize > 20),
		indicator(avgRoomSize >= 15 && avgRoomSize <= 20),
		indicator(avgRoomSize < 15),

		indicator(in.Floor == 0),
		indicator(in.Floor > 5),
		indicator(in.Floor < 0),
		indicator(in.Floor >= 1 && in.Floor <= 3),
		indicator(in.Floor >= 4 && in.Floor <= 7),
		indicator(in.Floor >= 8),
		math.Log1p(in.Floor + 3),
		(in.Floor + 3) * (in.Floor + 3),
		advantage,

		ageReciprocal * areaLog,
		advantage * areaRoomRatio,
		districtLuxury * ageDecay,
		d.Freq / (n.Freq + 0.001),
		1 / (priceVolatility + 0.1),
		(n.Mean - d.Mean) / (d.Std + 1),
		n.Median / (d.Median + 1),

		in.Area * in.Rooms,
		in.Area * ageReciprocal,
		in.Area * advantage,
		in.Rooms * ageReciprocal,
		in.Rooms * advantage,
		ageReciprocal * advantage,
	}
}
