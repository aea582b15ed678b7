package pnl

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"condor-screener/internal/errors"
	"condor-screener/internal/models"
	"condor-screener/pkg/utils"
)

// mapSource serves closes keyed by "SYMBOL date".
type mapSource struct {
	closes map[string]float64
	err    error
	calls  int
}

func (m *mapSource) ClosePrice(ctx context.Context, symbol string, date time.Time) (float64, error) {
	m.calls++
	if m.err != nil {
		return 0, m.err
	}
	price, ok := m.closes[symbol+" "+date.Format(models.DateLayout)]
	if !ok {
		return 0, errors.NewDataError("close", symbol, "missing", errors.ErrDataNotFound)
	}
	return price, nil
}

func scenarioCondor(expiration string) models.IronCondor {
	exp, _ := utils.ParseDate(expiration)
	return models.IronCondor{
		Expiration: exp,
		CallSpread: models.CallSpread{Sell: 100, Buy: 105},
		PutSpread:  models.PutSpread{Sell: 90, Buy: 85},
		NetCredit:  0.70,
		MaxProfit:  0.70,
		MaxLoss:    9.30,
		ProfitZone: models.ProfitZone{Lower: 90, Upper: 100},
	}
}

func TestSettle(t *testing.T) {
	ic := scenarioCondor("2024-06-21")

	tests := []struct {
		price float64
		want  float64
	}{
		{95, 0.70},    // inside the zone
		{100, 0.70},   // at the call strike
		{102, -1.30},  // partial call loss
		{105, -4.30},  // full call width
		{150, -4.30},  // capped by the call width
		{88, -1.30},   // partial put loss
		{50, -4.30},   // capped by the put width
		{90.70, 0.70}, // just inside the put strike
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("S=%.2f", tt.price), func(t *testing.T) {
			assert.InDelta(t, tt.want, Settle(ic, tt.price), 1e-9)
		})
	}
}

func TestEvaluate(t *testing.T) {
	source := &mapSource{closes: map[string]float64{
		"SPY 2024-06-14": 95,
		"SPY 2024-06-21": 103,
	}}
	positions := []Position{
		{Symbol: "SPY", Condor: scenarioCondor("2024-06-14")},
		{Symbol: "SPY", Condor: scenarioCondor("2024-06-21")},
		{Symbol: "SPY", Condor: scenarioCondor("2024-06-24")}, // no close published
		{Symbol: "SPY", Condor: scenarioCondor("2024-06-28")}, // expires after asOf
	}
	asOf := time.Date(2024, 6, 26, 9, 0, 0, 0, utils.NewYorkLocation)

	summary, err := NewEvaluator(source).Evaluate(context.Background(), positions, asOf)
	require.NoError(t, err)

	assert.Equal(t, 4, summary.Total)
	assert.Equal(t, 2, summary.Evaluated)
	assert.Equal(t, 1, summary.Pending)
	assert.Equal(t, 1, summary.Missing)
	assert.Equal(t, 1, summary.Profitable)
	assert.InDelta(t, 50.0, summary.WinRate, 1e-9)
	assert.InDelta(t, 0.70-2.30, summary.TotalPnL, 1e-9)
	assert.InDelta(t, (0.70-2.30)/2, summary.AvgPnL, 1e-9)

	require.Len(t, summary.Outcomes, 2)
	assert.True(t, summary.Outcomes[0].InZone)
	assert.False(t, summary.Outcomes[1].InZone)
	assert.Equal(t, 103.0, summary.Outcomes[1].Settlement)
}

func TestEvaluate_ExpiringTodayIsPending(t *testing.T) {
	source := &mapSource{}
	asOf := time.Date(2024, 6, 21, 17, 0, 0, 0, utils.NewYorkLocation)

	summary, err := NewEvaluator(source).Evaluate(context.Background(),
		[]Position{{Symbol: "SPY", Condor: scenarioCondor("2024-06-21")}}, asOf)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Pending)
	assert.Zero(t, summary.Evaluated)
	assert.Zero(t, summary.WinRate)
	assert.Zero(t, source.calls)
}

func TestEvaluate_ProviderFailureAborts(t *testing.T) {
	source := &mapSource{err: errors.ErrProviderUnavailable}
	asOf := time.Date(2024, 7, 1, 9, 0, 0, 0, utils.NewYorkLocation)

	_, err := NewEvaluator(source).Evaluate(context.Background(),
		[]Position{{Symbol: "SPY", Condor: scenarioCondor("2024-06-21")}}, asOf)
	assert.ErrorIs(t, err, errors.ErrProviderUnavailable)
}

func TestEvaluate_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewEvaluator(&mapSource{}).Evaluate(ctx,
		[]Position{{Symbol: "SPY", Condor: scenarioCondor("2024-06-21")}}, time.Now())
	assert.ErrorIs(t, err, context.Canceled)
}
