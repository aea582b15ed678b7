// Package models provides domain models for the iron condor screener.
package models

import (
	"fmt"
	"time"
)

// DateLayout is the calendar date format used by providers and CSV files.
const DateLayout = "2006-01-02"

// CallSpread is the short call spread of a condor. Buy is above Sell.
type CallSpread struct {
	Sell float64 `json:"sell_strike" yaml:"sell_strike"`
	Buy  float64 `json:"buy_strike" yaml:"buy_strike"`
}

// Width returns the distance between the two strikes.
func (s CallSpread) Width() float64 {
	return s.Buy - s.Sell
}

// PutSpread is the short put spread of a condor. Buy is below Sell.
type PutSpread struct {
	Sell float64 `json:"sell_strike" yaml:"sell_strike"`
	Buy  float64 `json:"buy_strike" yaml:"buy_strike"`
}

// Width returns the distance between the two strikes.
func (s PutSpread) Width() float64 {
	return s.Sell - s.Buy
}

// ProfitZone is the underlying price interval that keeps the full credit.
type ProfitZone struct {
	Lower float64 `json:"lower" yaml:"lower"`
	Upper float64 `json:"upper" yaml:"upper"`
}

// Contains reports whether price settles inside the zone.
func (z ProfitZone) Contains(price float64) bool {
	return price >= z.Lower && price <= z.Upper
}

// IronCondor is a priced 4-leg strategy for one expiration.
type IronCondor struct {
	Expiration          time.Time  `json:"expiration" yaml:"expiration"`
	CallSpread          CallSpread `json:"call_spread" yaml:"call_spread"`
	PutSpread           PutSpread  `json:"put_spread" yaml:"put_spread"`
	NetCredit           float64    `json:"net_credit" yaml:"net_credit"`
	MaxProfit           float64    `json:"max_profit" yaml:"max_profit"`
	MaxLoss             float64    `json:"max_loss" yaml:"max_loss"`
	ProfitZone          ProfitZone `json:"profit_zone" yaml:"profit_zone"`
	ProbabilityOfProfit float64    `json:"probability_of_profit" yaml:"probability_of_profit"`
	RiskReward          float64    `json:"risk_reward_ratio" yaml:"risk_reward_ratio"`
	DaysToExpiration    int        `json:"days_to_expiration" yaml:"days_to_expiration"`
	SpotPrice           float64    `json:"spot_price" yaml:"spot_price"`
}

// TotalWidth returns the combined width of both spreads.
func (ic IronCondor) TotalWidth() float64 {
	return ic.CallSpread.Width() + ic.PutSpread.Width()
}

// ProbabilityPct returns the probability of profit as a percentage.
func (ic IronCondor) ProbabilityPct() float64 {
	return ic.ProbabilityOfProfit * 100
}

// String returns a short human-readable form of the condor.
func (ic IronCondor) String() string {
	return fmt.Sprintf("IC[%s C %.2f/%.2f P %.2f/%.2f credit=%.2f loss=%.2f pop=%.1f%%]",
		ic.Expiration.Format(DateLayout),
		ic.CallSpread.Sell, ic.CallSpread.Buy,
		ic.PutSpread.Sell, ic.PutSpread.Buy,
		ic.NetCredit, ic.MaxLoss, ic.ProbabilityPct())
}

// RankKey selects the ranking criterion for screened condors.
type RankKey string

const (
	RankByCredit      RankKey = "credit"
	RankByProbability RankKey = "probability"
	RankByRiskReward  RankKey = "risk_reward"
)

// Valid reports whether k is a known ranking key.
func (k RankKey) Valid() bool {
	switch k {
	case RankByCredit, RankByProbability, RankByRiskReward:
		return true
	}
	return false
}

// LegWindow selects which liquid legs per side enter the enumeration.
type LegWindow string

const (
	// WindowFirst keeps the first K legs by ascending strike.
	WindowFirst LegWindow = "first"
	// WindowSpot keeps K legs centered on the spot price.
	WindowSpot LegWindow = "spot"
)

// Valid reports whether w is a known window mode.
func (w LegWindow) Valid() bool {
	return w == WindowFirst || w == WindowSpot
}
