package utils

// -----------------------------------------------------------------------------

// Constants for result retention and cache sizing.
// The pipeline works on an hourly grid: 24 points per security per day.
const (
	DefaultRetentionDays = 7
	PointsPerDay         = 24
)

// -----------------------------------------------------------------------------

// HourlyPointsForDays returns the cache capacity covering the given number
// of retention days on the hourly grid.
func HourlyPointsForDays(days int) int {
	if days <= 0 {
		days = DefaultRetentionDays
	}
	return days * PointsPerDay
}
