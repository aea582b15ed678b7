package pricing

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"condor-screener/internal/models"
)

func TestNormCDF(t *testing.T) {
	assert.InDelta(t, 0.5, NormCDF(0), 1e-12)
	assert.InDelta(t, 0.841344746, NormCDF(1), 1e-9)
	assert.InDelta(t, 0.022750132, NormCDF(-2), 1e-9)
}

func TestProbabilityOfProfit_MatchesClosedForm(t *testing.T) {
	spot, boundary, days, vol := 97.0, 100.0, 10, 0.2

	years := float64(days) / 365
	d1 := (math.Log(spot/boundary) + 0.5*vol*vol*years) / (vol * math.Sqrt(years))
	d2 := d1 - vol*math.Sqrt(years)
	want := 0.5 * (1 + math.Erf(d2/math.Sqrt2))

	assert.InDelta(t, want, ProbabilityOfProfit(spot, boundary, days, vol), 1e-15)
}

func TestProbabilityOfProfit_DefaultVolatility(t *testing.T) {
	withDefault := ProbabilityOfProfit(100, 105, 30, 0)
	explicit := ProbabilityOfProfit(100, 105, 30, DefaultVolatility)
	assert.Equal(t, explicit, withDefault)
}

func TestProbabilityOfProfit_Expired(t *testing.T) {
	assert.Equal(t, 1.0, ProbabilityOfProfit(100, 100, 0, 0.2))
	assert.Equal(t, 1.0, ProbabilityOfProfit(99, 100, -1, 0.2))
	assert.Equal(t, 0.0, ProbabilityOfProfit(101, 100, 0, 0.2))
}

func TestZoneProbability(t *testing.T) {
	p := ZoneProbability(97, 90, 100, 10, 0.2)
	assert.Greater(t, p, 0.0)
	assert.Less(t, p, 1.0)

	assert.Equal(t, 0.0, ZoneProbability(97, 100, 90, 10, 0.2))
	assert.Equal(t, 1.0, ZoneProbability(97, 90, 100, 0, 0.2))
	assert.Equal(t, 0.0, ZoneProbability(105, 90, 100, 0, 0.2))

	// A wider zone around spot is more likely to hold.
	assert.Greater(t, ZoneProbability(100, 80, 120, 10, 0.2), ZoneProbability(100, 95, 105, 10, 0.2))
}

func TestVolatilityFor(t *testing.T) {
	call := models.Leg{Strike: 105, Kind: models.Call, ImpliedVol: 0.30}
	put := models.Leg{Strike: 95, Kind: models.Put, ImpliedVol: 0.40}
	bare := models.Leg{Strike: 95, Kind: models.Put}

	assert.InDelta(t, 0.35, VolatilityFor(call, put, 0.2), 1e-12)
	assert.Equal(t, 0.30, VolatilityFor(call, bare, 0.2))
	assert.Equal(t, 0.40, VolatilityFor(models.Leg{}, put, 0.2))
	assert.Equal(t, 0.25, VolatilityFor(models.Leg{}, bare, 0.25))
	assert.Equal(t, DefaultVolatility, VolatilityFor(models.Leg{}, bare, 0))
}
