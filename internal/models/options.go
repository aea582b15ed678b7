package models

import (
	"math"
	"time"
)

// ContractKind is the option right of a contract.
type ContractKind string

const (
	Call ContractKind = "call"
	Put  ContractKind = "put"
)

// ParseContractKind maps a provider contract type to a ContractKind.
func ParseContractKind(s string) (ContractKind, bool) {
	switch s {
	case "call", "CALL", "Call", "C", "CE":
		return Call, true
	case "put", "PUT", "Put", "P", "PE":
		return Put, true
	default:
		return "", false
	}
}

// RawContract is one chain entry as delivered by a market-data provider.
// Nil pointers mean the provider did not send the field.
type RawContract struct {
	Ticker       string
	Expiration   string // YYYY-MM-DD
	ContractType string
	Strike       *float64
	Bid          *float64
	Ask          *float64
	Volume       *int64
	OpenInterest *int64
	ImpliedVol   *float64
}

// Leg is a single normalized option contract at one strike.
type Leg struct {
	Strike       float64      `json:"strike" yaml:"strike"`
	Bid          float64      `json:"bid" yaml:"bid"`
	Ask          float64      `json:"ask" yaml:"ask"`
	Volume       int64        `json:"volume" yaml:"volume"`
	OpenInterest int64        `json:"open_interest" yaml:"open_interest"`
	Kind         ContractKind `json:"kind" yaml:"kind"`
	ImpliedVol   float64      `json:"implied_vol,omitempty" yaml:"implied_vol,omitempty"`
}

// Mid returns the bid/ask midpoint used as the premium estimate.
func (l Leg) Mid() float64 {
	return (l.Bid + l.Ask) / 2
}

// Valid reports whether the leg carries a usable quote.
func (l Leg) Valid() bool {
	if !finite(l.Strike) || !finite(l.Bid) || !finite(l.Ask) || !finite(l.ImpliedVol) {
		return false
	}
	if l.Strike <= 0 || l.Bid < 0 || l.Ask < l.Bid {
		return false
	}
	if l.Volume < 0 || l.OpenInterest < 0 || l.ImpliedVol < 0 {
		return false
	}
	return l.Kind == Call || l.Kind == Put
}

// OptionChain is a snapshot of one expiration for an underlying.
type OptionChain struct {
	Symbol     string
	SpotPrice  float64
	Expiration time.Time
	Contracts  []RawContract
}

// Float64 returns a pointer to v. Used when building RawContract fixtures.
func Float64(v float64) *float64 {
	return &v
}

// Int64 returns a pointer to v.
func Int64(v int64) *int64 {
	return &v
}

// finite reports whether v is a usable number.
func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
