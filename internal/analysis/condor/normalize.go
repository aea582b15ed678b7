// Package condor builds, prices and ranks iron condors for one underlying.
//
// Everything except Scanner is pure: no I/O, no logging and no ambient
// state. Scanner is the caller-side driver that fetches chains through a
// MarketData source and fans expirations out over a worker pool.
package condor

import (
	"strings"
	"time"

	"condor-screener/internal/models"
)

// Normalize converts raw chain entries for the given expiration into
// typed legs, split by kind. Entries for other expirations, unknown
// contract types, missing or non-positive strikes, and unusable quotes
// are dropped. Absent quote fields count as zero.
func Normalize(raw []models.RawContract, expiration time.Time) (calls, puts []models.Leg) {
	target := expiration.Format(models.DateLayout)

	calls = make([]models.Leg, 0, len(raw)/2)
	puts = make([]models.Leg, 0, len(raw)/2)

	for _, rc := range raw {
		if strings.TrimSpace(rc.Expiration) != target {
			continue
		}
		leg, ok := toLeg(rc)
		if !ok {
			continue
		}
		if leg.Kind == models.Call {
			calls = append(calls, leg)
		} else {
			puts = append(puts, leg)
		}
	}
	return calls, puts
}

func toLeg(rc models.RawContract) (models.Leg, bool) {
	kind, ok := models.ParseContractKind(strings.TrimSpace(rc.ContractType))
	if !ok || rc.Strike == nil {
		return models.Leg{}, false
	}

	leg := models.Leg{
		Strike:       *rc.Strike,
		Bid:          floatOr(rc.Bid),
		Ask:          floatOr(rc.Ask),
		Volume:       intOr(rc.Volume),
		OpenInterest: intOr(rc.OpenInterest),
		Kind:         kind,
		ImpliedVol:   floatOr(rc.ImpliedVol),
	}
	return leg, leg.Valid()
}

func floatOr(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}

func intOr(v *int64) int64 {
	if v == nil {
		return 0
	}
	return *v
}
