package condor

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"condor-screener/internal/errors"
	"condor-screener/internal/logging"
	"condor-screener/internal/models"
	"condor-screener/pkg/utils"
)

// MarketData is the slice of a market data provider the scanner needs.
type MarketData interface {
	SpotPrice(ctx context.Context, symbol string) (float64, error)
	Expirations(ctx context.Context, symbol string, from, to time.Time) ([]time.Time, error)
	Chain(ctx context.Context, symbol string, expiration time.Time) ([]models.RawContract, error)
	HasEarnings(ctx context.Context, symbol string, from, to time.Time) (bool, error)
}

// ScanRequest describes one screening run.
type ScanRequest struct {
	Symbol  string
	MaxDays int
	Params  Params
	// AsOf is the evaluation time. Zero means now.
	AsOf time.Time
}

// ScanResult is the ranked outcome of a screening run across expirations.
type ScanResult struct {
	ID          string              `json:"id" yaml:"id"`
	Symbol      string              `json:"symbol" yaml:"symbol"`
	SpotPrice   float64             `json:"spot_price" yaml:"spot_price"`
	AsOf        time.Time           `json:"as_of" yaml:"as_of"`
	Expirations []time.Time         `json:"expirations" yaml:"expirations"`
	HasEarnings bool                `json:"has_earnings" yaml:"has_earnings"`
	Candidates  int                 `json:"candidates" yaml:"candidates"`
	Skipped     int                 `json:"skipped_expirations" yaml:"skipped_expirations"`
	Stats       BuildStats          `json:"stats" yaml:"stats"`
	Condors     []models.IronCondor `json:"condors" yaml:"condors"`
	Duration    time.Duration       `json:"duration_ns" yaml:"duration"`
}

// Scanner screens every expiration of an underlying within a date range.
// Expirations are built concurrently on a bounded worker pool and merged
// in expiration order before a single ranking pass.
type Scanner struct {
	data        MarketData
	logger      zerolog.Logger
	concurrency int
	now         func() time.Time
}

// NewScanner creates a scanner backed by data.
func NewScanner(data MarketData, logger zerolog.Logger, concurrency int) *Scanner {
	if concurrency <= 0 {
		concurrency = 4
	}
	return &Scanner{
		data:        data,
		logger:      logger,
		concurrency: concurrency,
		now:         time.Now,
	}
}

// expirationSlot holds one worker's output at the expiration's index.
type expirationSlot struct {
	condors []models.IronCondor
	stats   BuildStats
	err     error
}

// Scan runs the full pipeline for req.
func (s *Scanner) Scan(ctx context.Context, req ScanRequest) (*ScanResult, error) {
	start := time.Now()
	result, err := s.scan(ctx, req)

	ScanDurationSeconds.Observe(time.Since(start).Seconds())
	if err != nil {
		ScansTotal.WithLabelValues("error").Inc()
		return nil, err
	}
	ScansTotal.WithLabelValues("ok").Inc()

	result.Duration = time.Since(start)
	logging.LogScan(s.logger, result.Symbol, len(result.Expirations), result.Candidates, len(result.Condors), result.Duration)
	return result, nil
}

func (s *Scanner) scan(ctx context.Context, req ScanRequest) (*ScanResult, error) {
	symbol := strings.ToUpper(strings.TrimSpace(req.Symbol))
	if symbol == "" {
		return nil, errors.NewConfigError("symbol", req.Symbol, "symbol is required")
	}
	if req.MaxDays <= 0 {
		return nil, errors.NewConfigError("max_days", req.MaxDays, "must be > 0")
	}
	if err := req.Params.Validate(); err != nil {
		return nil, err
	}

	asOf := req.AsOf
	if asOf.IsZero() {
		asOf = s.now()
	}

	result := &ScanResult{
		ID:      uuid.New().String(),
		Symbol:  symbol,
		AsOf:    asOf,
		Condors: []models.IronCondor{},
	}
	log := logging.WithScanID(logging.WithSymbol(s.logger, symbol), result.ID)

	spot, err := s.data.SpotPrice(ctx, symbol)
	if err != nil {
		return nil, errors.Wrapf(err, "spot price for %s", symbol)
	}
	if !(spot > 0) {
		return nil, errors.NewDataError("spot", symbol, "no spot price available", errors.ErrNoSpotPrice)
	}
	result.SpotPrice = spot

	from := utils.Date(asOf)
	to := from.AddDate(0, 0, req.MaxDays)

	hasEarnings, err := s.data.HasEarnings(ctx, symbol, from, to)
	if err != nil {
		log.Warn().Err(err).Msg("Earnings check failed")
	}
	result.HasEarnings = hasEarnings
	if hasEarnings {
		log.Warn().Msg("Earnings announcement falls inside the scan window")
	}

	expirations, err := s.data.Expirations(ctx, symbol, from, to)
	if err != nil {
		return nil, errors.Wrapf(err, "expirations for %s", symbol)
	}
	expirations = futureExpirations(expirations, asOf)
	result.Expirations = expirations
	if len(expirations) == 0 {
		log.Info().Int("max_days", req.MaxDays).Msg("No expirations in range")
		return result, nil
	}

	engine := NewEngine(req.Params)
	slots := s.buildAll(ctx, log, engine, symbol, spot, asOf, expirations)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var (
		candidates []models.IronCondor
		firstErr   error
	)
	for _, slot := range slots {
		if slot.err != nil {
			result.Skipped++
			if firstErr == nil {
				firstErr = slot.err
			}
			continue
		}
		candidates = append(candidates, slot.condors...)
		result.Stats.Add(slot.stats)
	}
	if result.Skipped == len(slots) {
		return nil, firstErr
	}

	result.Candidates = len(candidates)
	result.Condors = Select(candidates, req.Params.Thresholds(), req.Params.RankKey, req.Params.ResultLimit)
	return result, nil
}

// buildAll fans expirations out over the worker pool. Slot i always holds
// the output for expirations[i], so the merge order does not depend on
// scheduling.
func (s *Scanner) buildAll(ctx context.Context, log zerolog.Logger, engine *Engine, symbol string, spot float64, asOf time.Time, expirations []time.Time) []expirationSlot {
	slots := make([]expirationSlot, len(expirations))
	workChan := make(chan int, len(expirations))

	var wg sync.WaitGroup

	for w := 0; w < s.concurrency && w < len(expirations); w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range workChan {
				select {
				case <-ctx.Done():
					slots[idx].err = ctx.Err()
					continue
				default:
				}
				slots[idx] = s.buildExpiration(ctx, log, engine, symbol, spot, asOf, expirations[idx])
			}
		}()
	}

	for idx := range expirations {
		workChan <- idx
	}
	close(workChan)
	wg.Wait()

	return slots
}

func (s *Scanner) buildExpiration(ctx context.Context, log zerolog.Logger, engine *Engine, symbol string, spot float64, asOf, expiration time.Time) expirationSlot {
	log = logging.WithExpiration(log, expiration)

	raw, err := s.data.Chain(ctx, symbol, expiration)
	if err != nil {
		ExpirationsScannedTotal.WithLabelValues("error").Inc()
		log.Error().Err(err).Msg("Failed to fetch option chain")
		return expirationSlot{err: errors.Wrapf(err, "chain %s %s", symbol, expiration.Format(models.DateLayout))}
	}

	calls, puts := Normalize(raw, expiration)
	condors, res := engine.candidates(Input{
		Calls:      calls,
		Puts:       puts,
		Spot:       spot,
		Expiration: expiration,
		AsOf:       asOf,
	})
	observeBuild(res.Stats)
	ExpirationsScannedTotal.WithLabelValues("ok").Inc()

	log.Debug().
		Int("contracts", len(raw)).
		Int("liquid_calls", res.LiquidCalls).
		Int("liquid_puts", res.LiquidPuts).
		Int("combinations", res.Stats.Combinations).
		Int("emitted", res.Stats.Emitted).
		Bool("capped", res.Stats.Capped).
		Msg("Expiration built")

	return expirationSlot{condors: condors, stats: res.Stats}
}

// futureExpirations returns the distinct expirations after asOf, sorted.
func futureExpirations(expirations []time.Time, asOf time.Time) []time.Time {
	seen := make(map[string]bool, len(expirations))
	out := make([]time.Time, 0, len(expirations))
	for _, exp := range expirations {
		key := exp.Format(models.DateLayout)
		if seen[key] || utils.DaysToExpiration(asOf, exp) <= 0 {
			continue
		}
		seen[key] = true
		out = append(out, exp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}
