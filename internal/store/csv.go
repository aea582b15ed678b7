package store

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gocarina/gocsv"

	"condor-screener/internal/errors"
	"condor-screener/internal/models"
	"condor-screener/pkg/utils"
)

// CondorRow is one line of the exported CSV. Probability is a percentage.
type CondorRow struct {
	Symbol              string  `csv:"symbol"`
	Expiration          string  `csv:"expiration"`
	CallSellStrike      float64 `csv:"call_sell_strike"`
	CallBuyStrike       float64 `csv:"call_buy_strike"`
	PutSellStrike       float64 `csv:"put_sell_strike"`
	PutBuyStrike        float64 `csv:"put_buy_strike"`
	NetCredit           float64 `csv:"net_credit"`
	MaxProfit           float64 `csv:"max_profit"`
	MaxLoss             float64 `csv:"max_loss"`
	ProfitZoneLower     float64 `csv:"profit_zone_lower"`
	ProfitZoneUpper     float64 `csv:"profit_zone_upper"`
	ProbabilityOfProfit float64 `csv:"probability_of_profit"`
	RiskRewardRatio     float64 `csv:"risk_reward_ratio"`
	DaysToExpiration    int     `csv:"days_to_expiration"`
	SpotPrice           float64 `csv:"spot_price"`
	HasUpcomingEarnings bool    `csv:"has_upcoming_earnings"`
	Timestamp           string  `csv:"timestamp"`
}

// NewCondorRow converts a condor into its rounded CSV form.
func NewCondorRow(symbol string, ic models.IronCondor, hasEarnings bool, now time.Time) CondorRow {
	return CondorRow{
		Symbol:              symbol,
		Expiration:          ic.Expiration.Format(models.DateLayout),
		CallSellStrike:      ic.CallSpread.Sell,
		CallBuyStrike:       ic.CallSpread.Buy,
		PutSellStrike:       ic.PutSpread.Sell,
		PutBuyStrike:        ic.PutSpread.Buy,
		NetCredit:           utils.Round(ic.NetCredit, 2),
		MaxProfit:           utils.Round(ic.MaxProfit, 2),
		MaxLoss:             utils.Round(ic.MaxLoss, 2),
		ProfitZoneLower:     utils.Round(ic.ProfitZone.Lower, 2),
		ProfitZoneUpper:     utils.Round(ic.ProfitZone.Upper, 2),
		ProbabilityOfProfit: utils.Round(ic.ProbabilityPct(), 1),
		RiskRewardRatio:     utils.Round(ic.RiskReward, 2),
		DaysToExpiration:    ic.DaysToExpiration,
		SpotPrice:           utils.Round(ic.SpotPrice, 2),
		HasUpcomingEarnings: hasEarnings,
		Timestamp:           now.In(utils.NewYorkLocation).Format(time.RFC3339),
	}
}

// Condor converts the row back into a record. Values carry the CSV rounding.
func (r CondorRow) Condor() (models.IronCondor, error) {
	exp, err := utils.ParseDate(r.Expiration)
	if err != nil {
		return models.IronCondor{}, errors.NewDataError("csv", r.Symbol, "bad expiration "+r.Expiration, err)
	}
	return models.IronCondor{
		Expiration:          exp,
		CallSpread:          models.CallSpread{Sell: r.CallSellStrike, Buy: r.CallBuyStrike},
		PutSpread:           models.PutSpread{Sell: r.PutSellStrike, Buy: r.PutBuyStrike},
		NetCredit:           r.NetCredit,
		MaxProfit:           r.MaxProfit,
		MaxLoss:             r.MaxLoss,
		ProfitZone:          models.ProfitZone{Lower: r.ProfitZoneLower, Upper: r.ProfitZoneUpper},
		ProbabilityOfProfit: r.ProbabilityOfProfit / 100,
		RiskReward:          r.RiskRewardRatio,
		DaysToExpiration:    r.DaysToExpiration,
		SpotPrice:           r.SpotPrice,
	}, nil
}

// CSVPath returns the export path for symbol under dir.
func CSVPath(dir, symbol string) string {
	return filepath.Join(dir, strings.ToLower(symbol)+"_iron_condors.csv")
}

// WriteCSV exports condors to <dir>/<symbol>_iron_condors.csv, replacing
// any previous export. It writes nothing and returns "" for an empty list.
func WriteCSV(dir, symbol string, condors []models.IronCondor, hasEarnings bool, now time.Time) (string, error) {
	if len(condors) == 0 {
		return "", nil
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("creating data directory: %w", err)
	}

	symbol = strings.ToUpper(symbol)
	rows := make([]*CondorRow, 0, len(condors))
	for _, ic := range condors {
		row := NewCondorRow(symbol, ic, hasEarnings, now)
		rows = append(rows, &row)
	}

	path := CSVPath(dir, symbol)
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("creating %s: %w", path, err)
	}
	if err := writeRows(f, rows); err != nil {
		return "", fmt.Errorf("writing %s: %w", path, err)
	}
	return path, nil
}

// writeRows marshals rows into w and closes it. A failed close is a
// failed write.
func writeRows(w io.WriteCloser, rows []*CondorRow) (err error) {
	defer func() {
		if cerr := w.Close(); err == nil {
			err = cerr
		}
	}()
	return gocsv.Marshal(&rows, w)
}

// ReadCSV loads rows written by WriteCSV.
func ReadCSV(path string) ([]CondorRow, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewDataError("csv", path, "file not found", errors.ErrDataNotFound)
		}
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	var rows []*CondorRow
	if err := gocsv.UnmarshalFile(f, &rows); err != nil {
		return nil, errors.NewDataError("csv", path, "decode rows", err)
	}

	out := make([]CondorRow, 0, len(rows))
	for _, r := range rows {
		out = append(out, *r)
	}
	return out, nil
}
