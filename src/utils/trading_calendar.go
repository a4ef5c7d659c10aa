package utils

import (
	"log"
	"strings"
	"time"

	"github.com/scmhub/calendar"
)

// TradingCalendar answers trading-day questions using scmhub/calendar.
type TradingCalendar struct {
	Calendar *calendar.Calendar
	Fallback bool
	Timezone *time.Location
}

// -----------------------------------------------------------------------------

// GetCalendar resolves an ISO 10383 MIC code ("xnys", "xlon", ...) to a
// trading calendar. Unknown MICs fall back to a plain Mon-Fri week.
func GetCalendar(mic string) *TradingCalendar {
	cal := calendar.GetCalendar(strings.ToLower(mic))
	if cal == nil {
		log.Printf("WARNING: no calendar for MIC '%s'. Using simple fallback (Mon-Fri).", mic)
		return &TradingCalendar{Fallback: true, Timezone: time.UTC}
	}

	return &TradingCalendar{Calendar: cal, Fallback: false, Timezone: cal.Loc}
}

// -----------------------------------------------------------------------------

func (tc *TradingCalendar) IsTradingDay(date time.Time) bool {
	// Normalize to timezone if available
	if tc.Timezone != nil {
		date = date.In(tc.Timezone)
	}

	if tc.Fallback {
		// Simple fallback: Mon-Fri
		weekday := date.Weekday()
		return weekday != time.Saturday && weekday != time.Sunday
	}
	// Library handles IsHoliday / IsBusinessDay
	return tc.Calendar.IsBusinessDay(date)
}
