// Package store provides persistence for screening runs: a SQLite scan
// history and CSV export of selected condors.
package store

import (
	"context"
	"time"

	"condor-screener/internal/analysis/condor"
	"condor-screener/internal/models"
)

// HistoryStore defines the interface for scan history persistence.
type HistoryStore interface {
	SaveScan(ctx context.Context, rec *ScanRecord) error
	ListScans(ctx context.Context, filter ScanFilter) ([]ScanRecord, error)
	GetScan(ctx context.Context, id string) (*ScanRecord, error)
	DeleteScansBefore(ctx context.Context, before time.Time) (int64, error)
	Close() error
}

// ScanRecord is one persisted screening run. Condors is only populated
// by GetScan.
type ScanRecord struct {
	ID          string              `json:"id" yaml:"id"`
	Symbol      string              `json:"symbol" yaml:"symbol"`
	AsOf        time.Time           `json:"as_of" yaml:"as_of"`
	SpotPrice   float64             `json:"spot_price" yaml:"spot_price"`
	MaxDays     int                 `json:"max_days" yaml:"max_days"`
	Params      condor.Params       `json:"params" yaml:"params"`
	Expirations int                 `json:"expirations" yaml:"expirations"`
	Skipped     int                 `json:"skipped_expirations" yaml:"skipped_expirations"`
	Candidates  int                 `json:"candidates" yaml:"candidates"`
	Selected    int                 `json:"selected" yaml:"selected"`
	HasEarnings bool                `json:"has_earnings" yaml:"has_earnings"`
	Duration    time.Duration       `json:"duration_ns" yaml:"duration"`
	CreatedAt   time.Time           `json:"created_at" yaml:"created_at"`
	Condors     []models.IronCondor `json:"condors,omitempty" yaml:"condors,omitempty"`
}

// NewScanRecord builds a history record from a finished scan.
func NewScanRecord(req condor.ScanRequest, res *condor.ScanResult) *ScanRecord {
	return &ScanRecord{
		ID:          res.ID,
		Symbol:      res.Symbol,
		AsOf:        res.AsOf,
		SpotPrice:   res.SpotPrice,
		MaxDays:     req.MaxDays,
		Params:      req.Params,
		Expirations: len(res.Expirations),
		Skipped:     res.Skipped,
		Candidates:  res.Candidates,
		Selected:    len(res.Condors),
		HasEarnings: res.HasEarnings,
		Duration:    res.Duration,
		Condors:     res.Condors,
	}
}

// ScanFilter narrows ListScans.
type ScanFilter struct {
	Symbol string
	Since  time.Time
	Limit  int
}
