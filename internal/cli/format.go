package cli

import (
	"fmt"
	"time"

	"condor-screener/internal/models"
	"condor-screener/pkg/utils"
)

// FormatExpiration formats an expiration as a short month-day label.
func FormatExpiration(t time.Time) string {
	return t.Format("Jan 02")
}

// FormatDate formats a New York calendar date.
func FormatDate(t time.Time) string {
	return t.In(utils.NewYorkLocation).Format(models.DateLayout)
}

// FormatDateTime formats a timestamp in New York time.
func FormatDateTime(t time.Time) string {
	return t.In(utils.NewYorkLocation).Format("2006-01-02 15:04 MST")
}

// FormatDuration formats a duration in human-readable form.
func FormatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	} else if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	} else if d < time.Hour {
		return fmt.Sprintf("%dm %ds", int(d.Minutes()), int(d.Seconds())%60)
	}
	return fmt.Sprintf("%dh %dm", int(d.Hours()), int(d.Minutes())%60)
}

// FormatProbability formats a 0..1 probability as a one-decimal percentage.
func FormatProbability(p float64) string {
	return fmt.Sprintf("%.1f%%", p*100)
}

// FormatRiskReward formats a credit-to-max-loss ratio.
func FormatRiskReward(rr float64) string {
	return fmt.Sprintf("%.2f", rr)
}

// FormatCallSpread renders the call side as "$100/$105".
func FormatCallSpread(s models.CallSpread) string {
	return utils.FormatSpread(s.Sell, s.Buy)
}

// FormatPutSpread renders the put side as "$90/$85".
func FormatPutSpread(s models.PutSpread) string {
	return utils.FormatSpread(s.Sell, s.Buy)
}

// FormatZone renders the profit zone as "$90 - $100".
func FormatZone(z models.ProfitZone) string {
	return "$" + utils.FormatStrike(z.Lower) + " - $" + utils.FormatStrike(z.Upper)
}

// ShortID returns the first block of a scan ID.
func ShortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
