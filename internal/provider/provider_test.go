package provider

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"condor-screener/internal/config"
	"condor-screener/internal/errors"
	"condor-screener/internal/models"
	"condor-screener/pkg/utils"
)

func testSnapshot() *Snapshot {
	f, n := models.Float64, models.Int64
	return &Snapshot{
		Symbol:   "SPY",
		Spot:     97,
		Earnings: []string{"2024-07-20"},
		Closes:   map[string]float64{"2024-06-21": 98.5},
		Contracts: []SnapshotContract{
			{Expiration: "2024-06-21", Type: "call", Strike: f(100), Bid: f(1.0), Ask: f(1.1), Volume: n(10), OpenInterest: n(100)},
			{Expiration: "2024-06-21", Type: "put", Strike: f(90), Bid: f(0.4), Ask: f(0.5), Volume: n(10), OpenInterest: n(100)},
			{Expiration: "2024-06-14", Type: "call", Strike: f(100), Bid: f(0.6), Ask: f(0.7)},
			{Expiration: "2024-08-16", Type: "call", Strike: f(100), Bid: f(3.0), Ask: f(3.2)},
		},
	}
}

func TestFileProvider(t *testing.T) {
	dir := t.TempDir()
	_, err := SaveSnapshot(dir, testSnapshot())
	require.NoError(t, err)

	p := NewFileProvider(dir)
	ctx := context.Background()
	from, _ := utils.ParseDate("2024-06-11")
	to := from.AddDate(0, 0, 30)

	spot, err := p.SpotPrice(ctx, "spy")
	require.NoError(t, err)
	assert.Equal(t, 97.0, spot)

	exps, err := p.Expirations(ctx, "SPY", from, to)
	require.NoError(t, err)
	require.Len(t, exps, 2)
	assert.Equal(t, "2024-06-14", exps[0].Format(models.DateLayout))

	chain, err := p.Chain(ctx, "SPY", exps[1])
	require.NoError(t, err)
	assert.Len(t, chain, 2)

	has, err := p.HasEarnings(ctx, "SPY", from, to)
	require.NoError(t, err)
	assert.False(t, has)
	has, err = p.HasEarnings(ctx, "SPY", from, from.AddDate(0, 0, 60))
	require.NoError(t, err)
	assert.True(t, has)

	closePrice, err := p.ClosePrice(ctx, "SPY", exps[1])
	require.NoError(t, err)
	assert.Equal(t, 98.5, closePrice)

	_, err = p.ClosePrice(ctx, "SPY", exps[0])
	assert.ErrorIs(t, err, errors.ErrDataNotFound)

	_, err = p.SpotPrice(ctx, "QQQ")
	assert.ErrorIs(t, err, errors.ErrDataNotFound)
}

// countingProvider records calls per method.
type countingProvider struct {
	mu    sync.Mutex
	calls map[string]int
	spot  float64
	err   error
}

func (c *countingProvider) hit(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.calls == nil {
		c.calls = make(map[string]int)
	}
	c.calls[name]++
}

func (c *countingProvider) count(name string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls[name]
}

func (c *countingProvider) Name() string { return "counting" }

func (c *countingProvider) SpotPrice(ctx context.Context, symbol string) (float64, error) {
	c.hit("spot")
	return c.spot, c.err
}

func (c *countingProvider) Expirations(ctx context.Context, symbol string, from, to time.Time) ([]time.Time, error) {
	c.hit("expirations")
	return []time.Time{from.AddDate(0, 0, 3)}, c.err
}

func (c *countingProvider) Chain(ctx context.Context, symbol string, expiration time.Time) ([]models.RawContract, error) {
	c.hit("chain")
	return []models.RawContract{{Expiration: expiration.Format(models.DateLayout), ContractType: "call", Strike: models.Float64(100)}}, c.err
}

func (c *countingProvider) HasEarnings(ctx context.Context, symbol string, from, to time.Time) (bool, error) {
	c.hit("earnings")
	return true, c.err
}

func (c *countingProvider) ClosePrice(ctx context.Context, symbol string, date time.Time) (float64, error) {
	c.hit("close")
	return 99, c.err
}

func TestCachedProvider_ServesRepeatsFromCache(t *testing.T) {
	inner := &countingProvider{spot: 97}
	cached, err := NewCachedProvider(inner, DefaultCacheConfig(), zerolog.Nop())
	require.NoError(t, err)
	defer cached.Close()

	ctx := context.Background()
	day := time.Date(2024, 6, 11, 0, 0, 0, 0, utils.NewYorkLocation)

	for i := 0; i < 3; i++ {
		spot, err := cached.SpotPrice(ctx, "SPY")
		require.NoError(t, err)
		assert.Equal(t, 97.0, spot)

		_, err = cached.Expirations(ctx, "SPY", day, day.AddDate(0, 0, 30))
		require.NoError(t, err)

		chain, err := cached.Chain(ctx, "SPY", day.AddDate(0, 0, 3))
		require.NoError(t, err)
		assert.Len(t, chain, 1)

		has, err := cached.HasEarnings(ctx, "SPY", day, day.AddDate(0, 0, 30))
		require.NoError(t, err)
		assert.True(t, has)

		closePrice, err := cached.ClosePrice(ctx, "SPY", day)
		require.NoError(t, err)
		assert.Equal(t, 99.0, closePrice)

		cached.Wait()
	}

	for _, name := range []string{"spot", "expirations", "chain", "earnings", "close"} {
		assert.Equal(t, 1, inner.count(name), name)
	}
}

func TestCachedProvider_DoesNotCacheErrors(t *testing.T) {
	inner := &countingProvider{err: errors.ErrProviderUnavailable}
	cached, err := NewCachedProvider(inner, DefaultCacheConfig(), zerolog.Nop())
	require.NoError(t, err)
	defer cached.Close()

	for i := 0; i < 2; i++ {
		_, err := cached.SpotPrice(context.Background(), "SPY")
		assert.ErrorIs(t, err, errors.ErrProviderUnavailable)
		cached.Wait()
	}
	assert.Equal(t, 2, inner.count("spot"))
}

func TestNew_FromConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Provider.Name = config.ProviderFile
	cfg.Provider.FixturesDir = t.TempDir()

	p, err := New(cfg, zerolog.Nop())
	require.NoError(t, err)
	_, isCached := p.(*CachedProvider)
	assert.True(t, isCached)
	assert.Equal(t, "file", p.Name())

	cfg.Cache.Enabled = false
	p, err = New(cfg, zerolog.Nop())
	require.NoError(t, err)
	_, isFile := p.(*FileProvider)
	assert.True(t, isFile)

	cfg.Provider.Name = config.ProviderPolygon
	cfg.Provider.APIKey = ""
	_, err = New(cfg, zerolog.Nop())
	assert.True(t, errors.IsConfigError(err))
}

func TestCapture_ReplaysThroughFileProvider(t *testing.T) {
	src := t.TempDir()
	_, err := SaveSnapshot(src, testSnapshot())
	require.NoError(t, err)

	ctx := context.Background()
	from, _ := utils.ParseDate("2024-06-11")
	to := from.AddDate(0, 0, 60)

	snap, err := Capture(ctx, NewFileProvider(src), "spy", from, to)
	require.NoError(t, err)
	assert.Equal(t, "SPY", snap.Symbol)
	assert.Equal(t, 97.0, snap.Spot)
	assert.Equal(t, []string{"2024-06-11"}, snap.Earnings)
	assert.Len(t, snap.Contracts, 3)

	dst := t.TempDir()
	_, err = SaveSnapshot(dst, snap)
	require.NoError(t, err)

	replay := NewFileProvider(dst)
	exps, err := replay.Expirations(ctx, "SPY", from, to)
	require.NoError(t, err)
	require.Len(t, exps, 2)

	chain, err := replay.Chain(ctx, "SPY", exps[1])
	require.NoError(t, err)
	assert.Len(t, chain, 2)

	has, err := replay.HasEarnings(ctx, "SPY", from, to)
	require.NoError(t, err)
	assert.True(t, has)
}

func TestCapture_SpotFailure(t *testing.T) {
	from, _ := utils.ParseDate("2024-06-11")
	_, err := Capture(context.Background(), NewFileProvider(t.TempDir()), "SPY", from, from.AddDate(0, 0, 7))
	assert.ErrorIs(t, err, errors.ErrDataNotFound)
}
