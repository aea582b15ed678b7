// Package pricing provides the normal-approximation probability estimates
// used to score iron condors.
//
// The estimates come from a driftless lognormal model of the underlying.
// They are approximations, not a fitted pricing model.
package pricing

import (
	"math"

	"condor-screener/internal/models"
)

// DefaultVolatility is the annualized volatility assumed when no implied
// volatility is available for a leg. It is a fixed placeholder, not an
// estimate fitted to the chain; callers with a better figure should pass it.
const DefaultVolatility = 0.2

// DaysPerYear converts calendar days to years.
const DaysPerYear = 365.0

// NormCDF is the standard normal cumulative distribution function.
func NormCDF(x float64) float64 {
	return 0.5 * (1 + math.Erf(x/math.Sqrt2))
}

// ProbabilityOfProfit returns Φ(d2) for spot against boundary: the estimated
// probability that the underlying finishes above boundary after days.
//
// With days <= 0 the answer is degenerate: 1 when spot <= boundary, else 0.
// A non-positive volatility falls back to DefaultVolatility.
func ProbabilityOfProfit(spot, boundary float64, days int, volatility float64) float64 {
	if days <= 0 {
		if spot <= boundary {
			return 1.0
		}
		return 0.0
	}
	if volatility <= 0 || math.IsNaN(volatility) {
		volatility = DefaultVolatility
	}

	t := float64(days) / DaysPerYear
	sigmaSqrtT := volatility * math.Sqrt(t)

	d1 := (math.Log(spot/boundary) + 0.5*volatility*volatility*t) / sigmaSqrtT
	d2 := d1 - sigmaSqrtT

	return clamp01(NormCDF(d2))
}

// ZoneProbability estimates the probability that the underlying settles
// strictly between lower and upper after days.
func ZoneProbability(spot, lower, upper float64, days int, volatility float64) float64 {
	if upper <= lower {
		return 0
	}
	if days <= 0 {
		if spot > lower && spot < upper {
			return 1
		}
		return 0
	}
	above := ProbabilityOfProfit(spot, lower, days, volatility)
	beyond := ProbabilityOfProfit(spot, upper, days, volatility)
	return clamp01(above - beyond)
}

// VolatilityFor picks the volatility for a condor from its sold legs:
// the mean of both implied vols when quoted, the one quoted otherwise,
// and fallback when neither leg carries one.
func VolatilityFor(callSell, putSell models.Leg, fallback float64) float64 {
	switch {
	case callSell.ImpliedVol > 0 && putSell.ImpliedVol > 0:
		return (callSell.ImpliedVol + putSell.ImpliedVol) / 2
	case callSell.ImpliedVol > 0:
		return callSell.ImpliedVol
	case putSell.ImpliedVol > 0:
		return putSell.ImpliedVol
	case fallback > 0:
		return fallback
	default:
		return DefaultVolatility
	}
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
