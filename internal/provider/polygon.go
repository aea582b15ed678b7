package provider

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"condor-screener/internal/errors"
	"condor-screener/internal/logging"
	"condor-screener/internal/models"
	"condor-screener/internal/resilience"
	"condor-screener/internal/security"
	"condor-screener/pkg/utils"
)

const polygonName = "polygon"

// PolygonConfig holds Polygon REST client settings.
type PolygonConfig struct {
	BaseURL    string
	APIKey     string
	Timeout    time.Duration
	MaxRetries int
	RetryDelay time.Duration
	// PageSize is the per-request result limit.
	PageSize int
	// MaxContracts caps contracts read from one chain snapshot.
	MaxContracts int
	// MaxReferenceContracts caps contracts scanned when listing expirations.
	MaxReferenceContracts int
	// RequestsPerMinute throttles outgoing requests. Zero disables throttling.
	RequestsPerMinute int
	// BreakerThreshold is the number of consecutive upstream failures that
	// stop requests for BreakerCooldown. Zero disables the breaker.
	BreakerThreshold int
	BreakerCooldown  time.Duration
}

// DefaultPolygonConfig returns the client defaults.
func DefaultPolygonConfig() PolygonConfig {
	return PolygonConfig{
		BaseURL:               "https://api.polygon.io",
		Timeout:               15 * time.Second,
		MaxRetries:            3,
		RetryDelay:            500 * time.Millisecond,
		PageSize:              250,
		MaxContracts:          3000,
		MaxReferenceContracts: 15000,
		BreakerThreshold:      5,
		BreakerCooldown:       30 * time.Second,
	}
}

// PolygonClient is an HTTP client for the Polygon.io REST API.
type PolygonClient struct {
	cfg        PolygonConfig
	httpClient *http.Client
	retry      utils.RetryConfig
	limiter    *utils.RateLimiter
	breaker    *resilience.CircuitBreaker
	logger     zerolog.Logger
}

// NewPolygonClient creates a new Polygon client. An API key is required.
func NewPolygonClient(cfg PolygonConfig, logger zerolog.Logger) (*PolygonClient, error) {
	if cfg.APIKey == "" {
		return nil, errors.NewConfigError("provider.api_key", "", "set POLYGON_API_KEY or provider.api_key")
	}
	defaults := DefaultPolygonConfig()
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaults.BaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaults.Timeout
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = defaults.PageSize
	}
	if cfg.MaxContracts <= 0 {
		cfg.MaxContracts = defaults.MaxContracts
	}
	if cfg.MaxReferenceContracts <= 0 {
		cfg.MaxReferenceContracts = defaults.MaxReferenceContracts
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = defaults.RetryDelay
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	retry := utils.DefaultRetryConfig()
	retry.MaxAttempts = cfg.MaxRetries + 1
	retry.InitialDelay = cfg.RetryDelay

	log := logger.With().Str("provider", polygonName).Logger()
	breaker := resilience.NewCircuitBreaker(polygonName, resilience.CircuitBreakerConfig{
		FailureThreshold: cfg.BreakerThreshold,
		SuccessThreshold: 1,
		Cooldown:         cfg.BreakerCooldown,
	})
	breaker.OnStateChange(func(name string, from, to resilience.CircuitState) {
		BreakerTransitionsTotal.WithLabelValues(string(to)).Inc()
		log.Warn().Str("from", string(from)).Str("to", string(to)).Msg("Provider circuit breaker changed state")
	})

	return &PolygonClient{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		retry:   retry,
		limiter: utils.PerMinute(cfg.RequestsPerMinute),
		breaker: breaker,
		logger:  log,
	}, nil
}

// Name implements Provider.
func (c *PolygonClient) Name() string {
	return polygonName
}

// SpotPrice returns the last trade price.
func (c *PolygonClient) SpotPrice(ctx context.Context, symbol string) (float64, error) {
	var resp lastTradeResponse
	path := "/v2/last/trade/" + url.PathEscape(symbol)
	if err := c.get(ctx, "last_trade", c.cfg.BaseURL+path, &resp); err != nil {
		return 0, err
	}
	if resp.Results.Price == nil || *resp.Results.Price <= 0 {
		return 0, errors.NewDataError("spot", symbol, "no last trade", errors.ErrNoSpotPrice)
	}
	return *resp.Results.Price, nil
}

// Expirations lists distinct expirations from the contract reference data.
func (c *PolygonClient) Expirations(ctx context.Context, symbol string, from, to time.Time) ([]time.Time, error) {
	query := url.Values{}
	query.Set("underlying_ticker", symbol)
	query.Set("expiration_date.gte", from.Format(models.DateLayout))
	query.Set("expiration_date.lte", to.Format(models.DateLayout))
	query.Set("expired", "false")
	query.Set("order", "asc")
	query.Set("sort", "expiration_date")
	query.Set("limit", strconv.Itoa(c.referencePageSize()))

	seen := make(map[string]bool)
	var out []time.Time

	scanned := 0
	next := c.cfg.BaseURL + "/v3/reference/options/contracts?" + query.Encode()
	for next != "" && scanned < c.cfg.MaxReferenceContracts {
		var page contractsPage
		if err := c.get(ctx, "contracts", next, &page); err != nil {
			return nil, err
		}
		for _, contract := range page.Results {
			scanned++
			if seen[contract.ExpirationDate] {
				continue
			}
			exp, err := utils.ParseDate(contract.ExpirationDate)
			if err != nil {
				continue
			}
			seen[contract.ExpirationDate] = true
			out = append(out, exp)
		}
		next = page.NextURL
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out, nil
}

// Chain returns the snapshot chain of one expiration, following next_url
// pages up to MaxContracts contracts.
func (c *PolygonClient) Chain(ctx context.Context, symbol string, expiration time.Time) ([]models.RawContract, error) {
	query := url.Values{}
	query.Set("expiration_date", expiration.Format(models.DateLayout))
	query.Set("limit", strconv.Itoa(c.cfg.PageSize))

	var out []models.RawContract
	next := c.cfg.BaseURL + "/v3/snapshot/options/" + url.PathEscape(symbol) + "?" + query.Encode()
	for next != "" && len(out) < c.cfg.MaxContracts {
		var page snapshotPage
		if err := c.get(ctx, "options_chain", next, &page); err != nil {
			return nil, err
		}
		for _, snap := range page.Results {
			if len(out) >= c.cfg.MaxContracts {
				break
			}
			out = append(out, snap.raw())
		}
		next = page.NextURL
	}

	ContractsFetchedTotal.Add(float64(len(out)))
	return out, nil
}

// HasEarnings checks the Benzinga earnings calendar.
func (c *PolygonClient) HasEarnings(ctx context.Context, symbol string, from, to time.Time) (bool, error) {
	query := url.Values{}
	query.Set("ticker", symbol)
	query.Set("date.gte", from.Format(models.DateLayout))
	query.Set("date.lte", to.Format(models.DateLayout))
	query.Set("limit", "10")

	var resp earningsResponse
	if err := c.get(ctx, "earnings", c.cfg.BaseURL+"/benzinga/v1/earnings?"+query.Encode(), &resp); err != nil {
		return false, err
	}
	return len(resp.Results) > 0, nil
}

// ClosePrice returns the official daily close.
func (c *PolygonClient) ClosePrice(ctx context.Context, symbol string, date time.Time) (float64, error) {
	path := fmt.Sprintf("/v1/open-close/%s/%s", url.PathEscape(symbol), date.Format(models.DateLayout))

	var resp openCloseResponse
	if err := c.get(ctx, "open_close", c.cfg.BaseURL+path+"?adjusted=true", &resp); err != nil {
		return 0, err
	}
	if resp.Close == nil || *resp.Close <= 0 {
		return 0, errors.NewDataError("close", symbol, "no close for "+date.Format(models.DateLayout), errors.ErrDataNotFound)
	}
	return *resp.Close, nil
}

func (c *PolygonClient) referencePageSize() int {
	// The reference endpoint accepts up to 1000 per page.
	if c.cfg.PageSize > 1000 {
		return 1000
	}
	return c.cfg.PageSize
}

// get fetches rawURL into out, retrying transient failures. Requests are
// refused while the breaker is open.
func (c *PolygonClient) get(ctx context.Context, endpoint, rawURL string, out interface{}) error {
	err := c.breaker.Execute(func() error {
		return utils.Retry(ctx, c.retry, func() error {
			return c.do(ctx, endpoint, rawURL, out)
		})
	}, upstreamFailure)
	if errors.Is(err, resilience.ErrCircuitOpen) {
		return errors.NewProviderError(polygonName, endpoint, 0, fmt.Errorf("%w: %w", errors.ErrProviderUnavailable, err))
	}
	return err
}

// upstreamFailure reports whether err means the provider itself is failing.
func upstreamFailure(err error) bool {
	return errors.Is(err, errors.ErrProviderUnavailable) || errors.Is(err, errors.ErrRateLimited)
}

func (c *PolygonClient) do(ctx context.Context, endpoint, rawURL string, out interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return utils.Permanent(err)
	}
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return utils.Permanent(fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("User-Agent", "condor-screener/1.0")

	resp, err := c.httpClient.Do(req)
	duration := time.Since(start)
	APIRequestDurationSeconds.WithLabelValues(endpoint).Observe(duration.Seconds())
	if err != nil {
		APIRequestsTotal.WithLabelValues(endpoint, "error").Inc()
		logging.LogAPICall(c.logger, http.MethodGet, endpoint, duration, err)
		if ctx.Err() != nil {
			return utils.Permanent(ctx.Err())
		}
		return errors.NewProviderError(polygonName, endpoint, 0, fmt.Errorf("%w: %v", errors.ErrProviderUnavailable, err))
	}
	defer resp.Body.Close()

	APIRequestsTotal.WithLabelValues(endpoint, strconv.Itoa(resp.StatusCode)).Inc()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		err := statusError(endpoint, resp.StatusCode, security.Redact(strings.TrimSpace(string(body))))
		logging.LogAPICall(c.logger, http.MethodGet, endpoint, duration, err)
		return err
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		err = errors.NewProviderError(polygonName, endpoint, resp.StatusCode, fmt.Errorf("decode response: %w", err))
		logging.LogAPICall(c.logger, http.MethodGet, endpoint, duration, err)
		return utils.Permanent(err)
	}

	logging.LogAPICall(c.logger, http.MethodGet, endpoint, duration, nil)
	return nil
}

// statusError maps a non-200 status. Rate limits and server errors are
// retried; everything else is permanent.
func statusError(endpoint string, status int, body string) error {
	switch {
	case status == http.StatusTooManyRequests:
		return errors.NewProviderError(polygonName, endpoint, status, errors.ErrRateLimited)
	case status >= 500:
		return errors.NewProviderError(polygonName, endpoint, status, fmt.Errorf("%w: %s", errors.ErrProviderUnavailable, body))
	case status == http.StatusNotFound:
		return utils.Permanent(errors.NewProviderError(polygonName, endpoint, status, errors.ErrDataNotFound))
	default:
		return utils.Permanent(errors.NewProviderError(polygonName, endpoint, status, fmt.Errorf("unexpected status: %s", body)))
	}
}
