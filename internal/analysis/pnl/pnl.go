// Package pnl evaluates screened iron condors against settlement prices.
package pnl

import (
	"context"
	"math"
	"time"

	"condor-screener/internal/errors"
	"condor-screener/internal/models"
	"condor-screener/pkg/utils"
)

// SettlementSource supplies the underlying's closing price on a date.
type SettlementSource interface {
	ClosePrice(ctx context.Context, symbol string, date time.Time) (float64, error)
}

// Position is a condor held on an underlying.
type Position struct {
	Symbol string            `json:"symbol" yaml:"symbol"`
	Condor models.IronCondor `json:"condor" yaml:"condor"`
}

// Outcome is the settled result of one position.
type Outcome struct {
	Position   Position `json:"position" yaml:"position"`
	Settlement float64  `json:"settlement_price" yaml:"settlement_price"`
	PnL        float64  `json:"pnl" yaml:"pnl"`
	InZone     bool     `json:"in_zone" yaml:"in_zone"`
}

// Summary aggregates settled outcomes. WinRate is a percentage of
// evaluated positions.
type Summary struct {
	Total      int       `json:"total" yaml:"total"`
	Evaluated  int       `json:"evaluated" yaml:"evaluated"`
	Pending    int       `json:"pending" yaml:"pending"`
	Missing    int       `json:"missing_settlement" yaml:"missing_settlement"`
	Profitable int       `json:"profitable" yaml:"profitable"`
	WinRate    float64   `json:"win_rate" yaml:"win_rate"`
	TotalPnL   float64   `json:"total_pnl" yaml:"total_pnl"`
	AvgPnL     float64   `json:"avg_pnl" yaml:"avg_pnl"`
	Outcomes   []Outcome `json:"outcomes" yaml:"outcomes"`
}

// Settle returns the per-share payoff of ic held to expiration with the
// underlying settling at price. The result lies in [-MaxLoss, NetCredit].
func Settle(ic models.IronCondor, price float64) float64 {
	callLoss := math.Min(math.Max(0, price-ic.CallSpread.Sell), ic.CallSpread.Width())
	putLoss := math.Min(math.Max(0, ic.PutSpread.Sell-price), ic.PutSpread.Width())
	return ic.NetCredit - callLoss - putLoss
}

// Evaluator settles positions whose expiration has passed.
type Evaluator struct {
	source SettlementSource
}

// NewEvaluator creates an evaluator reading closes from source.
func NewEvaluator(source SettlementSource) *Evaluator {
	return &Evaluator{source: source}
}

// Evaluate settles every position expiring before asOf's calendar date.
// Positions expiring today or later are counted as pending. A missing
// close is counted and skipped; any other lookup error aborts.
func (e *Evaluator) Evaluate(ctx context.Context, positions []Position, asOf time.Time) (Summary, error) {
	summary := Summary{Total: len(positions), Outcomes: []Outcome{}}
	today := utils.Date(asOf)

	for _, pos := range positions {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		if !utils.CalendarDate(pos.Condor.Expiration).Before(today) {
			summary.Pending++
			continue
		}

		price, err := e.source.ClosePrice(ctx, pos.Symbol, pos.Condor.Expiration)
		if err != nil {
			if errors.Is(err, errors.ErrDataNotFound) {
				summary.Missing++
				continue
			}
			return summary, errors.Wrapf(err, "settlement for %s %s", pos.Symbol, pos.Condor.Expiration.Format(models.DateLayout))
		}

		pnl := Settle(pos.Condor, price)
		summary.Outcomes = append(summary.Outcomes, Outcome{
			Position:   pos,
			Settlement: price,
			PnL:        pnl,
			InZone:     pos.Condor.ProfitZone.Contains(price),
		})
		summary.Evaluated++
		summary.TotalPnL += pnl
		if pnl > 0 {
			summary.Profitable++
		}
	}

	if summary.Evaluated > 0 {
		summary.WinRate = float64(summary.Profitable) / float64(summary.Evaluated) * 100
		summary.AvgPnL = summary.TotalPnL / float64(summary.Evaluated)
	}
	return summary, nil
}
