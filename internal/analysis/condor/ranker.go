package condor

import (
	"sort"

	"condor-screener/internal/models"
)

// Thresholds are the acceptance limits applied before ranking.
type Thresholds struct {
	MinNetCredit      float64
	MaxRisk           float64
	MinProbabilityPct float64
}

// Filter returns the condors that pay at least MinNetCredit, risk at most
// MaxRisk and have a probability of profit of at least MinProbabilityPct.
func Filter(condors []models.IronCondor, th Thresholds) []models.IronCondor {
	out := make([]models.IronCondor, 0, len(condors))
	for _, ic := range condors {
		if ic.NetCredit >= th.MinNetCredit &&
			ic.MaxLoss <= th.MaxRisk &&
			ic.ProbabilityPct() >= th.MinProbabilityPct {
			out = append(out, ic)
		}
	}
	return out
}

// Rank returns a copy of condors sorted descending by key. Equal keys keep
// their enumeration order. Unknown keys rank by credit.
func Rank(condors []models.IronCondor, key models.RankKey) []models.IronCondor {
	out := make([]models.IronCondor, len(condors))
	copy(out, condors)

	metric := rankMetric(key)
	sort.SliceStable(out, func(i, j int) bool {
		return metric(out[i]) > metric(out[j])
	})
	return out
}

func rankMetric(key models.RankKey) func(models.IronCondor) float64 {
	switch key {
	case models.RankByProbability:
		return func(ic models.IronCondor) float64 { return ic.ProbabilityOfProfit }
	case models.RankByRiskReward:
		return func(ic models.IronCondor) float64 { return ic.RiskReward }
	default:
		return func(ic models.IronCondor) float64 { return ic.NetCredit }
	}
}

// Limit returns at most the first n condors. n <= 0 yields an empty slice.
func Limit(condors []models.IronCondor, n int) []models.IronCondor {
	if n < 0 {
		n = 0
	}
	if n > len(condors) {
		n = len(condors)
	}
	out := make([]models.IronCondor, n)
	copy(out, condors[:n])
	return out
}

// Select filters, ranks and truncates in one pass.
func Select(condors []models.IronCondor, th Thresholds, key models.RankKey, limit int) []models.IronCondor {
	return Limit(Rank(Filter(condors, th), key), limit)
}
