package utils

import (
	"time"

	"github.com/gonzaloreinoso/stdev-dag/src/logger"
)

// RunScheduler decides when the pipeline fires. It is passive: the main loop
// asks for the next boundary and whether a tick should actually run.
type RunScheduler struct {
	Interval time.Duration
	Calendar *TradingCalendar
	Logger   *logger.Logger
}

// -----------------------------------------------------------------------------

func NewRunScheduler(intervalMinutes int, calendarMIC string, l *logger.Logger) *RunScheduler {
	if intervalMinutes <= 0 {
		intervalMinutes = 60
	}

	rs := &RunScheduler{
		Interval: time.Duration(intervalMinutes) * time.Minute,
		Logger:   l,
	}

	if calendarMIC != "" {
		rs.Calendar = GetCalendar(calendarMIC)
		l.Info("RunScheduler: every %s, gated by calendar '%s'", rs.Interval, calendarMIC)
	} else {
		l.Info("RunScheduler: every %s, ungated", rs.Interval)
	}

	return rs
}

// -----------------------------------------------------------------------------

// NextTick returns the first interval boundary strictly after now.
func (rs *RunScheduler) NextTick(now time.Time) time.Time {
	return now.Truncate(rs.Interval).Add(rs.Interval)
}

// -----------------------------------------------------------------------------

// ShouldRun reports whether a tick at t should process data. Ticks on
// non-trading days are skipped when a calendar is configured.
func (rs *RunScheduler) ShouldRun(t time.Time) bool {
	if rs.Calendar == nil {
		return true
	}

	return rs.Calendar.IsTradingDay(t)
}
