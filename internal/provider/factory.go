package provider

import (
	"github.com/rs/zerolog"

	"condor-screener/internal/config"
	"condor-screener/internal/errors"
)

// New builds the configured provider, wrapped in a cache when enabled.
func New(cfg *config.Config, logger zerolog.Logger) (Provider, error) {
	var base Provider

	switch cfg.Provider.Name {
	case config.ProviderPolygon:
		pc := DefaultPolygonConfig()
		pc.BaseURL = cfg.Provider.BaseURL
		pc.APIKey = cfg.Provider.APIKey
		pc.Timeout = cfg.Provider.Timeout
		pc.MaxRetries = cfg.Provider.MaxRetries
		pc.PageSize = cfg.Provider.PageSize
		pc.MaxContracts = cfg.Provider.MaxContracts
		pc.RequestsPerMinute = cfg.Provider.RequestsPerMinute
		pc.BreakerThreshold = cfg.Provider.BreakerThreshold
		if cfg.Provider.BreakerCooldown > 0 {
			pc.BreakerCooldown = cfg.Provider.BreakerCooldown
		}

		client, err := NewPolygonClient(pc, logger)
		if err != nil {
			return nil, err
		}
		base = client
	case config.ProviderFile:
		base = NewFileProvider(cfg.Provider.FixturesDir)
	default:
		return nil, errors.NewConfigError("provider.name", cfg.Provider.Name, "must be 'polygon' or 'file'")
	}

	if !cfg.Cache.Enabled {
		return base, nil
	}

	cc := DefaultCacheConfig()
	cc.MaxCost = cfg.Cache.MaxCost
	cc.SpotTTL = cfg.Cache.SpotTTL
	cc.ChainTTL = cfg.Cache.ChainTTL
	cc.ExpirationsTTL = cfg.Cache.ExpirationsTTL
	cc.EarningsTTL = cfg.Cache.EarningsTTL

	cached, err := NewCachedProvider(base, cc, logger)
	if err != nil {
		return nil, err
	}
	return cached, nil
}
