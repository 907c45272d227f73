/*
estimate.go - Labor duration estimation

PURPOSE:
  Converts a unit's physical attributes into predicted labor hours using
  the configured per-attribute rates:

    minutes = area*minutes_per_sq_meter
            + rooms*minutes_per_room
            + bathrooms*minutes_per_bathroom
            + (large windows ? minutes_for_windows : 0)
    hours   = round_half_up(minutes / 60, 2)

PRECISION:
  Computed in decimal so that rounding is exact at the second fractional
  digit (0.005 h rounds to 0.01, never down to 0.00 through float error).

  Inputs are not validated here. Negative values are used literally.
*/
package cleaning

import "github.com/shopspring/decimal"

var minutesPerHour = decimal.NewFromInt(60)

// Estimate returns the estimated labor hours for unit under cfg.
func Estimate(unit Unit, cfg SystemConfig) float64 {
	return EstimateDecimal(unit, cfg).InexactFloat64()
}

// EstimateDecimal is Estimate without the final float conversion.
func EstimateDecimal(unit Unit, cfg SystemConfig) decimal.Decimal {
	minutes := decimal.NewFromFloat(unit.SquareMeters).Mul(decimal.NewFromFloat(cfg.MinutesPerSqMeter)).
		Add(decimal.NewFromInt(int64(unit.RoomCount)).Mul(decimal.NewFromFloat(cfg.MinutesPerRoom))).
		Add(decimal.NewFromInt(int64(unit.BathroomCount)).Mul(decimal.NewFromFloat(cfg.MinutesPerBathroom)))
	if unit.HasLargeWindows {
		minutes = minutes.Add(decimal.NewFromFloat(cfg.MinutesForWindows))
	}
	// Round is half away from zero, i.e. half-up for the non-negative case.
	return minutes.Div(minutesPerHour).Round(2)
}
