package utils

import (
	"time"
)

// NewYorkLocation is the timezone for US equity options.
var NewYorkLocation *time.Location

func init() {
	var err error
	NewYorkLocation, err = time.LoadLocation("America/New_York")
	if err != nil {
		// Fallback to EST without DST
		NewYorkLocation = time.FixedZone("EST", -5*60*60)
	}
}

// MarketStatus represents the current regular-session status.
type MarketStatus string

const (
	MarketOpen   MarketStatus = "OPEN"
	MarketClosed MarketStatus = "CLOSED"
)

// Date truncates t to midnight of its calendar day in New York.
func Date(t time.Time) time.Time {
	t = t.In(NewYorkLocation)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, NewYorkLocation)
}

// CalendarDate returns t's own calendar date as midnight in New York.
// Expirations are dates, so UTC midnight 2024-06-21 stays 2024-06-21.
func CalendarDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, NewYorkLocation)
}

// Today returns the current New York calendar date.
func Today() time.Time {
	return Date(time.Now())
}

// ParseDate parses a YYYY-MM-DD date as a New York calendar date.
func ParseDate(s string) (time.Time, error) {
	return time.ParseInLocation("2006-01-02", s, NewYorkLocation)
}

// DaysToExpiration returns whole calendar days from asOf to expiration.
// asOf is an instant read in New York; expiration is a calendar date read
// in its own location. Negative when expiration has passed.
func DaysToExpiration(asOf, expiration time.Time) int {
	from := Date(asOf)
	to := CalendarDate(expiration)
	// Round to absorb the 23h/25h days around DST switches.
	return int(to.Sub(from).Round(24*time.Hour) / (24 * time.Hour))
}

// GetMarketStatus returns the regular-session status at now.
func GetMarketStatus(now time.Time) MarketStatus {
	now = now.In(NewYorkLocation)

	if now.Weekday() == time.Saturday || now.Weekday() == time.Sunday {
		return MarketClosed
	}

	timeMinutes := now.Hour()*60 + now.Minute()

	// Regular session: 9:30 - 16:00
	if timeMinutes >= 570 && timeMinutes < 960 {
		return MarketOpen
	}

	return MarketClosed
}

// MarketClose returns the 16:00 close on the given calendar date.
func MarketClose(date time.Time) time.Time {
	d := Date(date)
	return time.Date(d.Year(), d.Month(), d.Day(), 16, 0, 0, 0, NewYorkLocation)
}
