package provider

import (
	"context"
	"strings"
	"time"

	"condor-screener/internal/errors"
	"condor-screener/internal/models"
	"condor-screener/pkg/utils"
)

// Capture records what src reports for symbol between from and to as a
// Snapshot that FileProvider can replay. When src reports earnings inside
// the window, the window start is stored as the announcement date.
func Capture(ctx context.Context, src Provider, symbol string, from, to time.Time) (*Snapshot, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))

	spot, err := src.SpotPrice(ctx, symbol)
	if err != nil {
		return nil, errors.Wrapf(err, "spot price for %s", symbol)
	}
	snap := &Snapshot{Symbol: symbol, Spot: spot, Contracts: []SnapshotContract{}}

	if has, err := src.HasEarnings(ctx, symbol, from, to); err == nil && has {
		snap.Earnings = []string{utils.Date(from).Format(models.DateLayout)}
	}

	expirations, err := src.Expirations(ctx, symbol, from, to)
	if err != nil {
		return nil, errors.Wrapf(err, "expirations for %s", symbol)
	}
	for _, exp := range expirations {
		chain, err := src.Chain(ctx, symbol, exp)
		if err != nil {
			return nil, errors.Wrapf(err, "chain for %s %s", symbol, exp.Format(models.DateLayout))
		}
		for _, rc := range chain {
			expiration := rc.Expiration
			if expiration == "" {
				expiration = exp.Format(models.DateLayout)
			}
			snap.Contracts = append(snap.Contracts, SnapshotContract{
				Ticker:       rc.Ticker,
				Expiration:   expiration,
				Type:         rc.ContractType,
				Strike:       rc.Strike,
				Bid:          rc.Bid,
				Ask:          rc.Ask,
				Volume:       rc.Volume,
				OpenInterest: rc.OpenInterest,
				ImpliedVol:   rc.ImpliedVol,
			})
		}
	}
	return snap, nil
}
