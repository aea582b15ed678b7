package condor

import (
	"math"
	"time"

	"condor-screener/internal/analysis/pricing"
	"condor-screener/internal/errors"
	"condor-screener/internal/models"
	"condor-screener/pkg/utils"
)

// Params is the full configuration bundle for one screening run.
type Params struct {
	MinVolume         int64            `json:"min_volume" yaml:"min_volume"`
	MinOpenInterest   int64            `json:"min_open_interest" yaml:"min_open_interest"`
	MaxLegsPerSide    int              `json:"max_legs_per_side" yaml:"max_legs_per_side"`
	MaxCandidates     int              `json:"max_candidates" yaml:"max_candidates"`
	MinNetCredit      float64          `json:"min_net_credit" yaml:"min_net_credit"`
	MaxRisk           float64          `json:"max_risk" yaml:"max_risk"`
	MinProbabilityPct float64          `json:"min_probability_pct" yaml:"min_probability_pct"`
	RankKey           models.RankKey   `json:"rank_key" yaml:"rank_key"`
	ResultLimit       int              `json:"result_limit" yaml:"result_limit"`
	Volatility        float64          `json:"volatility" yaml:"volatility"`
	Window            models.LegWindow `json:"window" yaml:"window"`
}

// DefaultParams returns the screener defaults.
func DefaultParams() Params {
	return Params{
		MinVolume:         5,
		MinOpenInterest:   25,
		MaxLegsPerSide:    50,
		MaxCandidates:     1000,
		MinNetCredit:      0.10,
		MaxRisk:           10.00,
		MinProbabilityPct: 30,
		RankKey:           models.RankByCredit,
		ResultLimit:       10,
		Volatility:        pricing.DefaultVolatility,
		Window:            models.WindowFirst,
	}
}

// Validate checks every field and returns the first violation as a
// *errors.ConfigError.
func (p Params) Validate() error {
	switch {
	case p.MinVolume < 0:
		return errors.NewConfigError("min_volume", p.MinVolume, "must be >= 0")
	case p.MinOpenInterest < 0:
		return errors.NewConfigError("min_open_interest", p.MinOpenInterest, "must be >= 0")
	case p.MaxLegsPerSide <= 0:
		return errors.NewConfigError("max_legs_per_side", p.MaxLegsPerSide, "must be > 0")
	case p.MaxCandidates <= 0:
		return errors.NewConfigError("max_candidates", p.MaxCandidates, "must be > 0")
	case !nonNegative(p.MinNetCredit):
		return errors.NewConfigError("min_net_credit", p.MinNetCredit, "must be a number >= 0")
	case !(p.MaxRisk > 0) || math.IsInf(p.MaxRisk, 0):
		return errors.NewConfigError("max_risk", p.MaxRisk, "must be > 0")
	case !nonNegative(p.MinProbabilityPct) || p.MinProbabilityPct > 100:
		return errors.NewConfigError("min_probability_pct", p.MinProbabilityPct, "must be between 0 and 100")
	case !p.RankKey.Valid():
		return errors.NewConfigError("rank_key", p.RankKey, "must be one of credit, probability, risk_reward")
	case p.ResultLimit <= 0:
		return errors.NewConfigError("result_limit", p.ResultLimit, "must be > 0")
	case !nonNegative(p.Volatility):
		return errors.NewConfigError("volatility", p.Volatility, "must be >= 0")
	case !p.Window.Valid():
		return errors.NewConfigError("window", p.Window, "must be first or spot")
	}
	return nil
}

// Thresholds returns the ranker limits carried by p.
func (p Params) Thresholds() Thresholds {
	return Thresholds{
		MinNetCredit:      p.MinNetCredit,
		MaxRisk:           p.MaxRisk,
		MinProbabilityPct: p.MinProbabilityPct,
	}
}

// Builder returns the enumerator configured by p.
func (p Params) Builder() Builder {
	return Builder{
		MaxLegsPerSide: p.MaxLegsPerSide,
		MaxCandidates:  p.MaxCandidates,
		Volatility:     p.Volatility,
		Window:         p.Window,
	}
}

func nonNegative(v float64) bool {
	return v >= 0 && !math.IsInf(v, 0)
}

// Input is one expiration's worth of legs.
type Input struct {
	Calls      []models.Leg
	Puts       []models.Leg
	Spot       float64
	Expiration time.Time
	AsOf       time.Time
}

// Result is the outcome of Engine.Screen.
type Result struct {
	Condors     []models.IronCondor `json:"condors"`
	Candidates  int                 `json:"candidates"`
	LiquidCalls int                 `json:"liquid_calls"`
	LiquidPuts  int                 `json:"liquid_puts"`
	Stats       BuildStats          `json:"stats"`
}

// Engine runs the single-expiration pipeline:
// liquidity filter, enumeration, filter, rank, limit.
type Engine struct {
	params Params
}

// NewEngine creates an engine for params. Params are validated on each
// Screen call.
func NewEngine(params Params) *Engine {
	return &Engine{params: params}
}

// Params returns the engine configuration.
func (e *Engine) Params() Params {
	return e.params
}

// Screen validates the configuration and the input, then returns the
// ranked condors for in. No candidates is a valid, empty result.
func (e *Engine) Screen(in Input) (Result, error) {
	if err := e.params.Validate(); err != nil {
		return Result{}, err
	}
	if err := validateInput(in); err != nil {
		return Result{}, err
	}

	candidates, res := e.candidates(in)
	res.Candidates = len(candidates)
	res.Condors = Select(candidates, e.params.Thresholds(), e.params.RankKey, e.params.ResultLimit)
	return res, nil
}

// candidates runs liquidity filtering and enumeration without ranking.
// The scanner concatenates these across expirations before ranking once.
func (e *Engine) candidates(in Input) ([]models.IronCondor, Result) {
	calls := FilterLiquid(onlyKind(in.Calls, models.Call), e.params.MinVolume, e.params.MinOpenInterest)
	puts := FilterLiquid(onlyKind(in.Puts, models.Put), e.params.MinVolume, e.params.MinOpenInterest)

	condors, stats := e.params.Builder().Build(calls, puts, in.Spot, in.Expiration, in.AsOf)
	return condors, Result{
		LiquidCalls: len(calls),
		LiquidPuts:  len(puts),
		Stats:       stats,
	}
}

func validateInput(in Input) error {
	if !(in.Spot > 0) || math.IsInf(in.Spot, 0) {
		return errors.NewConfigError("spot", in.Spot, "must be > 0")
	}
	if in.AsOf.IsZero() {
		return errors.NewConfigError("as_of", in.AsOf, "evaluation time is required")
	}
	if utils.DaysToExpiration(in.AsOf, in.Expiration) <= 0 {
		return errors.NewConfigError("expiration", in.Expiration.Format(models.DateLayout), "must be after the evaluation date")
	}
	return nil
}

// onlyKind drops legs of the wrong kind or with unusable quotes.
func onlyKind(legs []models.Leg, kind models.ContractKind) []models.Leg {
	out := make([]models.Leg, 0, len(legs))
	for _, leg := range legs {
		if leg.Kind == kind && leg.Valid() {
			out = append(out, leg)
		}
	}
	return out
}
