// Package provider supplies spot prices, option chains, earnings dates and
// settlement closes to the screener.
package provider

import (
	"context"
	"time"

	"condor-screener/internal/models"
)

// Provider is a market data source for one underlying at a time.
type Provider interface {
	// Name identifies the provider in logs and metrics.
	Name() string
	// SpotPrice returns the last traded price of symbol.
	SpotPrice(ctx context.Context, symbol string) (float64, error)
	// Expirations returns the option expirations of symbol between from and to, inclusive.
	Expirations(ctx context.Context, symbol string, from, to time.Time) ([]time.Time, error)
	// Chain returns the raw option chain of symbol for one expiration.
	Chain(ctx context.Context, symbol string, expiration time.Time) ([]models.RawContract, error)
	// HasEarnings reports whether an earnings announcement falls between from and to.
	HasEarnings(ctx context.Context, symbol string, from, to time.Time) (bool, error)
	// ClosePrice returns the official close of symbol on date.
	ClosePrice(ctx context.Context, symbol string, date time.Time) (float64, error)
}
