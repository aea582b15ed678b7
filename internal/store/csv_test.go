package store

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"condor-screener/internal/errors"
	"condor-screener/internal/models"
)

func TestWriteCSV_RoundTrip(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "data")
	now := time.Date(2024, 6, 11, 14, 30, 0, 0, time.UTC)

	ic := testCondor("2024-06-21", 100, 90, 0.70)
	ic.ProbabilityOfProfit = 0.61234
	ic.RiskReward = 0.7 / 9.3

	path, err := WriteCSV(dir, "spy", []models.IronCondor{ic, testCondor("2024-06-14", 101, 91, 0.5)}, true, now)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "spy_iron_condors.csv"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	header := strings.SplitN(string(data), "\n", 2)[0]
	assert.Equal(t, "symbol,expiration,call_sell_strike,call_buy_strike,put_sell_strike,put_buy_strike,"+
		"net_credit,max_profit,max_loss,profit_zone_lower,profit_zone_upper,probability_of_profit,"+
		"risk_reward_ratio,days_to_expiration,spot_price,has_upcoming_earnings,timestamp", header)

	rows, err := ReadCSV(path)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	row := rows[0]
	assert.Equal(t, "SPY", row.Symbol)
	assert.Equal(t, "2024-06-21", row.Expiration)
	assert.Equal(t, 61.2, row.ProbabilityOfProfit, "stored as a rounded percentage")
	assert.Equal(t, 0.08, row.RiskRewardRatio)
	assert.True(t, row.HasUpcomingEarnings)
	assert.Equal(t, "2024-06-11T10:30:00-04:00", row.Timestamp)

	back, err := row.Condor()
	require.NoError(t, err)
	assert.Equal(t, ic.CallSpread, back.CallSpread)
	assert.Equal(t, ic.PutSpread, back.PutSpread)
	assert.InDelta(t, 0.70, back.NetCredit, 1e-9)
	assert.InDelta(t, 9.30, back.MaxLoss, 1e-9)
	assert.InDelta(t, 0.612, back.ProbabilityOfProfit, 1e-9)
	assert.Equal(t, "2024-06-21", back.Expiration.Format(models.DateLayout))
}

func TestWriteCSV_EmptyWritesNothing(t *testing.T) {
	dir := t.TempDir()
	path, err := WriteCSV(dir, "SPY", nil, false, time.Now())
	require.NoError(t, err)
	assert.Empty(t, path)

	_, err = os.Stat(CSVPath(dir, "SPY"))
	assert.True(t, os.IsNotExist(err))
}

func TestReadCSV_Missing(t *testing.T) {
	_, err := ReadCSV(filepath.Join(t.TempDir(), "nope.csv"))
	assert.ErrorIs(t, err, errors.ErrDataNotFound)
}

func TestCondorRow_BadExpiration(t *testing.T) {
	_, err := CondorRow{Symbol: "SPY", Expiration: "21/06/2024"}.Condor()
	assert.Error(t, err)
}

type closeFailWriter struct {
	strings.Builder
	closeErr error
}

func (w *closeFailWriter) Close() error { return w.closeErr }

func TestWriteRows_CloseErrorFailsWrite(t *testing.T) {
	row := NewCondorRow("SPY", models.IronCondor{}, false, time.Now())
	rows := []*CondorRow{&row}

	w := &closeFailWriter{closeErr: fmt.Errorf("disk full")}
	err := writeRows(w, rows)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	assert.True(t, strings.HasPrefix(w.String(), "symbol,"))

	ok := &closeFailWriter{}
	require.NoError(t, writeRows(ok, rows))
}
