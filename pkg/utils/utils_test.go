package utils

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDaysToExpiration(t *testing.T) {
	asOf := time.Date(2024, 3, 1, 15, 0, 0, 0, NewYorkLocation)

	tests := []struct {
		name       string
		expiration time.Time
		want       int
	}{
		{"same day", time.Date(2024, 3, 1, 9, 0, 0, 0, NewYorkLocation), 0},
		{"next day", time.Date(2024, 3, 2, 0, 0, 0, 0, NewYorkLocation), 1},
		{"across DST switch", time.Date(2024, 3, 15, 0, 0, 0, 0, NewYorkLocation), 14},
		{"past", time.Date(2024, 2, 28, 0, 0, 0, 0, NewYorkLocation), -2},
		{"utc midnight keeps its date", time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC), 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DaysToExpiration(asOf, tt.expiration))
		})
	}
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2024-06-21")
	require.NoError(t, err)
	assert.Equal(t, 21, d.Day())
	assert.Equal(t, NewYorkLocation, d.Location())

	_, err = ParseDate("21/06/2024")
	assert.Error(t, err)
}

func TestGetMarketStatus(t *testing.T) {
	open := time.Date(2024, 3, 4, 10, 0, 0, 0, NewYorkLocation)    // Monday
	early := time.Date(2024, 3, 4, 9, 0, 0, 0, NewYorkLocation)    // before bell
	weekend := time.Date(2024, 3, 2, 12, 0, 0, 0, NewYorkLocation) // Saturday

	assert.Equal(t, MarketOpen, GetMarketStatus(open))
	assert.Equal(t, MarketClosed, GetMarketStatus(early))
	assert.Equal(t, MarketClosed, GetMarketStatus(weekend))
}

func TestFormatting(t *testing.T) {
	assert.Equal(t, "$1,234,567.89", FormatUSD(1234567.891))
	assert.Equal(t, "-$0.30", FormatUSD(-0.3))
	assert.Equal(t, "$999.00", FormatUSD(999))
	assert.Equal(t, "+$4.70", FormatPnL(4.7))
	assert.Equal(t, "102.5", FormatStrike(102.5))
	assert.Equal(t, "$100/$105", FormatSpread(100, 105))
	assert.Equal(t, 0.7, Round(0.70000000001, 2))
}

func TestRetry_StopsOnSuccess(t *testing.T) {
	cfg := RetryConfig{MaxAttempts: 5, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond, BackoffFactor: 2}

	calls := 0
	got, err := RetryWithResult(context.Background(), cfg, func() (int, error) {
		calls++
		if calls < 3 {
			return 0, errors.New("transient")
		}
		return 42, nil
	})

	require.NoError(t, err)
	assert.Equal(t, 42, got)
	assert.Equal(t, 3, calls)
}

func TestRetry_PermanentAndNonRetryable(t *testing.T) {
	cfg := RetryConfig{MaxAttempts: 5, InitialDelay: time.Millisecond, BackoffFactor: 2}
	sentinel := errors.New("bad request")

	calls := 0
	err := Retry(context.Background(), cfg, func() error {
		calls++
		return Permanent(sentinel)
	})
	assert.ErrorIs(t, err, sentinel)
	assert.Equal(t, 1, calls)

	cfg.Retryable = func(err error) bool { return false }
	calls = 0
	err = Retry(context.Background(), cfg, func() error {
		calls++
		return sentinel
	})
	assert.ErrorIs(t, err, sentinel)
	assert.Equal(t, 1, calls)
}

func TestRetry_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	cfg := RetryConfig{MaxAttempts: 3, InitialDelay: time.Second, BackoffFactor: 2}
	err := Retry(ctx, cfg, func() error { return errors.New("down") })
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRateLimiter_BurstThenRefill(t *testing.T) {
	now := time.Date(2024, 6, 11, 10, 0, 0, 0, time.UTC)
	limiter := NewRateLimiter(2, 3) // 2 tokens/sec, burst of 3
	limiter.now = func() time.Time { return now }
	limiter.lastUpdate = now

	for i := 0; i < 3; i++ {
		assert.True(t, limiter.Allow(), "burst %d", i)
	}
	assert.False(t, limiter.Allow())

	now = now.Add(500 * time.Millisecond)
	assert.True(t, limiter.Allow(), "one token refilled")
	assert.False(t, limiter.Allow())
}

func TestRateLimiter_WaitHonoursContext(t *testing.T) {
	limiter := PerMinute(1)
	require.NoError(t, limiter.Wait(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, limiter.Wait(ctx), context.DeadlineExceeded)
}

func TestRateLimiter_NilNeverLimits(t *testing.T) {
	limiter := PerMinute(0)
	assert.Nil(t, limiter)
	for i := 0; i < 100; i++ {
		require.NoError(t, limiter.Wait(context.Background()))
	}
}
