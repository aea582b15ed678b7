package store

import (
	"context"
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"condor-screener/internal/models"
)

// Property 1: Scan history round-trip
//
// For any run with up to ten condors, saving it and loading it back by ID
// returns the same summary and the same condors in the same order.
func TestProperty_ScanRoundTrip(t *testing.T) {
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "scans_property.db"))
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	defer store.Close()

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50
	properties := gopter.NewProperties(parameters)

	symbols := []string{"SPY", "QQQ", "IWM", "DIA", "AAPL"}
	base := time.Date(2024, 6, 3, 14, 0, 0, 0, time.UTC)

	properties.Property("save then get returns an equivalent run", prop.ForAll(
		func(symbolIdx, count, offsetMinutes int, spot, credit float64) bool {
			ctx := context.Background()

			condors := make([]models.IronCondor, count)
			for i := range condors {
				exp := base.AddDate(0, 0, 1+i%5).Format(models.DateLayout)
				condors[i] = testCondor(exp, math.Round(spot)+float64(i), math.Round(spot)-float64(i)-5, credit)
			}
			rec := testRecord(symbols[symbolIdx%len(symbols)], base.Add(time.Duration(offsetMinutes)*time.Minute), condors...)
			rec.SpotPrice = spot

			if err := store.SaveScan(ctx, rec); err != nil {
				t.Logf("save failed: %v", err)
				return false
			}
			got, err := store.GetScan(ctx, rec.ID)
			if err != nil {
				t.Logf("get failed: %v", err)
				return false
			}

			if got.Symbol != rec.Symbol || !got.AsOf.Equal(rec.AsOf) || got.SpotPrice != rec.SpotPrice {
				return false
			}
			if got.Params != rec.Params || len(got.Condors) != len(rec.Condors) {
				return false
			}
			for i := range rec.Condors {
				want, have := rec.Condors[i], got.Condors[i]
				if want.Expiration.Format(models.DateLayout) != have.Expiration.Format(models.DateLayout) {
					return false
				}
				if want.CallSpread != have.CallSpread || want.PutSpread != have.PutSpread || want.ProfitZone != have.ProfitZone {
					return false
				}
				if want.NetCredit != have.NetCredit || want.MaxLoss != have.MaxLoss {
					return false
				}
			}
			return true
		},
		gen.IntRange(0, 100),
		gen.IntRange(0, 10),
		gen.IntRange(0, 60*24*30),
		gen.Float64Range(50, 600),
		gen.Float64Range(0.05, 4.0),
	))

	properties.TestingRun(t)
}
