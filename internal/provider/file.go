package provider

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"condor-screener/internal/errors"
	"condor-screener/internal/models"
	"condor-screener/pkg/utils"
)

const fileName = "file"

// Snapshot is the on-disk fixture for one underlying, stored as
// <dir>/<SYMBOL>.json.
type Snapshot struct {
	Symbol    string             `json:"symbol"`
	Spot      float64            `json:"spot"`
	Earnings  []string           `json:"earnings,omitempty"`
	Closes    map[string]float64 `json:"closes,omitempty"`
	Contracts []SnapshotContract `json:"contracts"`
}

// SnapshotContract is one fixture chain entry. Absent quote fields stay nil.
type SnapshotContract struct {
	Ticker       string   `json:"ticker,omitempty"`
	Expiration   string   `json:"expiration"`
	Type         string   `json:"type"`
	Strike       *float64 `json:"strike"`
	Bid          *float64 `json:"bid,omitempty"`
	Ask          *float64 `json:"ask,omitempty"`
	Volume       *int64   `json:"volume,omitempty"`
	OpenInterest *int64   `json:"open_interest,omitempty"`
	ImpliedVol   *float64 `json:"implied_vol,omitempty"`
}

// FileProvider serves market data from JSON snapshots for offline runs.
type FileProvider struct {
	dir string
}

// NewFileProvider creates a provider reading snapshots from dir.
func NewFileProvider(dir string) *FileProvider {
	return &FileProvider{dir: dir}
}

// Name implements Provider.
func (p *FileProvider) Name() string {
	return fileName
}

func (p *FileProvider) load(symbol string) (*Snapshot, error) {
	path := filepath.Join(p.dir, strings.ToUpper(symbol)+".json")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewDataError("snapshot", symbol, "no snapshot at "+path, errors.ErrDataNotFound)
		}
		return nil, errors.NewProviderError(fileName, path, 0, err)
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, errors.NewDataError("snapshot", symbol, "decode "+path, err)
	}
	return &snap, nil
}

// SaveSnapshot writes snap to dir, creating it when needed.
func SaveSnapshot(dir string, snap *Snapshot) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("creating snapshot directory: %w", err)
	}
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encoding snapshot: %w", err)
	}
	path := filepath.Join(dir, strings.ToUpper(snap.Symbol)+".json")
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("writing snapshot: %w", err)
	}
	return path, nil
}

// SpotPrice implements Provider.
func (p *FileProvider) SpotPrice(ctx context.Context, symbol string) (float64, error) {
	snap, err := p.load(symbol)
	if err != nil {
		return 0, err
	}
	return snap.Spot, nil
}

// Expirations implements Provider.
func (p *FileProvider) Expirations(ctx context.Context, symbol string, from, to time.Time) ([]time.Time, error) {
	snap, err := p.load(symbol)
	if err != nil {
		return nil, err
	}

	lo, hi := from.Format(models.DateLayout), to.Format(models.DateLayout)
	seen := make(map[string]bool)
	var out []time.Time
	for _, c := range snap.Contracts {
		if seen[c.Expiration] || c.Expiration < lo || c.Expiration > hi {
			continue
		}
		exp, err := utils.ParseDate(c.Expiration)
		if err != nil {
			continue
		}
		seen[c.Expiration] = true
		out = append(out, exp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out, nil
}

// Chain implements Provider.
func (p *FileProvider) Chain(ctx context.Context, symbol string, expiration time.Time) ([]models.RawContract, error) {
	snap, err := p.load(symbol)
	if err != nil {
		return nil, err
	}

	target := expiration.Format(models.DateLayout)
	var out []models.RawContract
	for _, c := range snap.Contracts {
		if c.Expiration != target {
			continue
		}
		out = append(out, models.RawContract{
			Ticker:       c.Ticker,
			Expiration:   c.Expiration,
			ContractType: c.Type,
			Strike:       c.Strike,
			Bid:          c.Bid,
			Ask:          c.Ask,
			Volume:       c.Volume,
			OpenInterest: c.OpenInterest,
			ImpliedVol:   c.ImpliedVol,
		})
	}
	return out, nil
}

// HasEarnings implements Provider.
func (p *FileProvider) HasEarnings(ctx context.Context, symbol string, from, to time.Time) (bool, error) {
	snap, err := p.load(symbol)
	if err != nil {
		return false, err
	}
	lo, hi := from.Format(models.DateLayout), to.Format(models.DateLayout)
	for _, d := range snap.Earnings {
		if d >= lo && d <= hi {
			return true, nil
		}
	}
	return false, nil
}

// ClosePrice implements Provider.
func (p *FileProvider) ClosePrice(ctx context.Context, symbol string, date time.Time) (float64, error) {
	snap, err := p.load(symbol)
	if err != nil {
		return 0, err
	}
	key := date.Format(models.DateLayout)
	price, ok := snap.Closes[key]
	if !ok {
		return 0, errors.NewDataError("close", symbol, "no close for "+key, errors.ErrDataNotFound)
	}
	return price, nil
}
