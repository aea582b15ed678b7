package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigError_MatchesSentinel(t *testing.T) {
	err := NewConfigError("max_risk", -1.0, "must be positive")

	assert.True(t, Is(err, ErrConfigInvalid))
	assert.True(t, IsConfigError(fmt.Errorf("screen: %w", err)))
	assert.Contains(t, err.Error(), "max_risk")

	var cfgErr *ConfigError
	require.True(t, As(fmt.Errorf("outer: %w", err), &cfgErr))
	assert.Equal(t, "max_risk", cfgErr.Field)
}

func TestProviderError_Unwrap(t *testing.T) {
	err := NewProviderError("polygon", "/v3/snapshot/options/SPY", 429, ErrRateLimited)

	assert.True(t, Is(err, ErrRateLimited))
	assert.Contains(t, err.Error(), "status 429")
	assert.False(t, IsConfigError(err))
}

func TestWrap_Nil(t *testing.T) {
	assert.NoError(t, Wrap(nil, "context"))
	assert.NoError(t, Wrapf(nil, "context %d", 1))

	wrapped := Wrapf(ErrDataNotFound, "chain %s", "SPY")
	assert.EqualError(t, wrapped, "chain SPY: data not found")
	assert.True(t, Is(wrapped, ErrDataNotFound))
}
