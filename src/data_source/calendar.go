package datasource

import (
	"strings"
	"time"

	"option-guide/src/logger"

	"github.com/scmhub/calendar"
)

// MarketGate decides whether upstream polling should run, based on an
// exchange calendar. A nil gate is always open (crypto spot trades 24/7).
type MarketGate struct {
	MIC      string
	Calendar *calendar.Calendar
	Fallback bool
	Timezone *time.Location
}

// -----------------------------------------------------------------------------

// NewMarketGate loads the calendar for an ISO 10383 MIC such as "xnys".
// An empty mic returns nil. Unknown MICs fall back to Mon-Fri 09:30-16:00
// New York time.
func NewMarketGate(mic string, l *logger.Logger) *MarketGate {
	mic = strings.ToLower(strings.TrimSpace(mic))
	if mic == "" {
		return nil
	}
	if l == nil {
		l = logger.Nop()
	}

	cal := calendar.GetCalendar(mic)
	if cal == nil {
		l.Warning("Failed to load calendar for MIC '%s'. Using simple fallback (Mon-Fri 09:30-16:00 New York).", mic)
		nyLoc, err := time.LoadLocation("America/New_York")
		if err != nil {
			nyLoc = time.UTC
		}
		return &MarketGate{MIC: mic, Fallback: true, Timezone: nyLoc}
	}

	return &MarketGate{MIC: mic, Calendar: cal, Timezone: cal.Loc}
}

// -----------------------------------------------------------------------------

func (g *MarketGate) IsTradingDay(date time.Time) bool {
	if g == nil {
		return true
	}
	if g.Timezone != nil {
		date = date.In(g.Timezone)
	}

	if g.Fallback {
		weekday := date.Weekday()
		return weekday != time.Saturday && weekday != time.Sunday
	}
	return g.Calendar.IsBusinessDay(date)
}

// -----------------------------------------------------------------------------

// IsOpen checks if the market is open at t.
func (g *MarketGate) IsOpen(t time.Time) bool {
	if g == nil {
		return true
	}
	if g.Timezone != nil {
		t = t.In(g.Timezone)
	}

	if g.Fallback {
		if !g.IsTradingDay(t) {
			return false
		}
		hour, minute := t.Hour(), t.Minute()
		return (hour > 9 || (hour == 9 && minute >= 30)) && hour < 16
	}

	return g.Calendar.IsOpen(t)
}
