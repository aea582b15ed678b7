package condor

import (
	"sort"

	"condor-screener/internal/models"
)

// FilterLiquid returns the legs with at least minVolume traded contracts
// and minOpenInterest open contracts, sorted by strike ascending.
// Legs with equal strikes keep their input order. legs is not modified.
func FilterLiquid(legs []models.Leg, minVolume, minOpenInterest int64) []models.Leg {
	out := make([]models.Leg, 0, len(legs))
	for _, leg := range legs {
		if leg.Volume >= minVolume && leg.OpenInterest >= minOpenInterest {
			out = append(out, leg)
		}
	}
	sortByStrike(out)
	return out
}

func sortByStrike(legs []models.Leg) {
	sort.SliceStable(legs, func(i, j int) bool {
		return legs[i].Strike < legs[j].Strike
	})
}

// window narrows a strike-sorted side to at most k legs.
func window(legs []models.Leg, k int, spot float64, mode models.LegWindow) []models.Leg {
	if k <= 0 {
		return nil
	}
	if len(legs) <= k {
		return legs
	}
	if mode != models.WindowSpot {
		return legs[:k]
	}

	// Center the window on the first strike at or above spot.
	pivot := sort.Search(len(legs), func(i int) bool { return legs[i].Strike >= spot })
	start := pivot - k/2
	if start < 0 {
		start = 0
	}
	if start > len(legs)-k {
		start = len(legs) - k
	}
	return legs[start : start+k]
}
