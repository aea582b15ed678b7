package condor

import (
	"time"

	"condor-screener/internal/analysis/pricing"
	"condor-screener/internal/models"
	"condor-screener/pkg/utils"
)

// BuildStats counts what happened during one enumeration.
type BuildStats struct {
	Combinations   int  `json:"combinations"`
	RejectedZone   int  `json:"rejected_zone"` // strike layout: overlapping or zero-width spreads
	RejectedCredit int  `json:"rejected_credit"`
	RejectedLoss   int  `json:"rejected_loss"`
	Emitted        int  `json:"emitted"`
	Capped         bool `json:"capped"`
}

// Add accumulates other into s.
func (s *BuildStats) Add(other BuildStats) {
	s.Combinations += other.Combinations
	s.RejectedZone += other.RejectedZone
	s.RejectedCredit += other.RejectedCredit
	s.RejectedLoss += other.RejectedLoss
	s.Emitted += other.Emitted
	s.Capped = s.Capped || other.Capped
}

// Builder enumerates iron condors from one expiration's legs.
type Builder struct {
	// MaxLegsPerSide bounds how many calls and how many puts are considered.
	MaxLegsPerSide int
	// MaxCandidates bounds how many condors one Build call emits.
	MaxCandidates int
	// Volatility is used when neither sold leg quotes an implied vol.
	Volatility float64
	Window     models.LegWindow
}

// Build enumerates condors in a fixed order: call sell i, call buy j > i,
// put sell k, put buy l < k, all by strike ascending. A candidate is kept
// when the put side sits below the call side, the net credit is positive
// and the max loss is positive. Enumeration stops once MaxCandidates
// records have been emitted.
//
// Build returns no candidates when expiration is not after asOf.
func (b Builder) Build(calls, puts []models.Leg, spot float64, expiration, asOf time.Time) ([]models.IronCondor, BuildStats) {
	var stats BuildStats
	out := make([]models.IronCondor, 0)

	days := utils.DaysToExpiration(asOf, expiration)
	if days <= 0 || b.MaxCandidates <= 0 {
		return out, stats
	}

	calls = window(sortedCopy(calls), b.MaxLegsPerSide, spot, b.Window)
	puts = window(sortedCopy(puts), b.MaxLegsPerSide, spot, b.Window)

	for i := 0; i < len(calls); i++ {
		for j := i + 1; j < len(calls); j++ {
			for k := 0; k < len(puts); k++ {
				for l := 0; l < k; l++ {
					if len(out) >= b.MaxCandidates {
						stats.Capped = true
						return out, stats
					}
					stats.Combinations++

					callSell, callBuy := calls[i], calls[j]
					putSell, putBuy := puts[k], puts[l]

					if callBuy.Strike <= callSell.Strike ||
						putBuy.Strike >= putSell.Strike ||
						putSell.Strike >= callSell.Strike {
						stats.RejectedZone++
						continue
					}

					credit := callSell.Mid() - callBuy.Mid() + putSell.Mid() - putBuy.Mid()
					if credit <= 0 {
						stats.RejectedCredit++
						continue
					}

					width := (callBuy.Strike - callSell.Strike) + (putSell.Strike - putBuy.Strike)
					maxLoss := width - credit
					if maxLoss <= 0 {
						stats.RejectedLoss++
						continue
					}

					vol := pricing.VolatilityFor(callSell, putSell, b.Volatility)
					pop := pricing.ZoneProbability(spot, putSell.Strike, callSell.Strike, days, vol)

					out = append(out, models.IronCondor{
						Expiration:          expiration,
						CallSpread:          models.CallSpread{Sell: callSell.Strike, Buy: callBuy.Strike},
						PutSpread:           models.PutSpread{Sell: putSell.Strike, Buy: putBuy.Strike},
						NetCredit:           credit,
						MaxProfit:           credit,
						MaxLoss:             maxLoss,
						ProfitZone:          models.ProfitZone{Lower: putSell.Strike, Upper: callSell.Strike},
						ProbabilityOfProfit: pop,
						RiskReward:          credit / maxLoss,
						DaysToExpiration:    days,
						SpotPrice:           spot,
					})
					stats.Emitted++
				}
			}
		}
	}
	return out, stats
}

func sortedCopy(legs []models.Leg) []models.Leg {
	out := make([]models.Leg, len(legs))
	copy(out, legs)
	sortByStrike(out)
	return out
}
