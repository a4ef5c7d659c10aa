package analysis

import (
	"fmt"
	"sort"
	"time"

	"github.com/gonzaloreinoso/stdev-dag/src/models"
)

// -----------------------------------------------------------------------------

// FloorHour truncates a timestamp down to its hour boundary.
func FloorHour(t time.Time) time.Time {
	return t.UTC().Truncate(time.Hour)
}

// -----------------------------------------------------------------------------

// CeilHour rounds a timestamp up to the next hour boundary. Timestamps
// already on a boundary are returned unchanged.
func CeilHour(t time.Time) time.Time {
	floored := FloorHour(t)
	if floored.Equal(t.UTC()) {
		return floored
	}
	return floored.Add(time.Hour)
}

// -----------------------------------------------------------------------------

// NormalizeHourly aligns every security onto one shared hourly grid spanning
// the observed range of the whole input, inclusive on both ends. Hours with
// no snapshot become placeholder rows with nil quotes, which downstream
// analysis treats as missing values. Snapshots off the hour boundary widen
// the observed span but never land on the grid.
//
// The output is ordered by security then timestamp. Duplicate
// (security, snap_time) pairs are refused.
func NormalizeHourly(points []models.MPricePoint) ([]models.MPricePoint, error) {
	if len(points) == 0 {
		return []models.MPricePoint{}, nil
	}

	// 1. Global observed span across all securities
	minTs := points[0].SnapTime.UTC()
	maxTs := minTs
	for _, p := range points[1:] {
		ts := p.SnapTime.UTC()
		if ts.Before(minTs) {
			minTs = ts
		}
		if ts.After(maxTs) {
			maxTs = ts
		}
	}
	gridStart := FloorHour(minTs)
	gridEnd := CeilHour(maxTs)

	// 2. Index snapshots by security and exact timestamp
	bySecurity := make(map[string]map[int64]models.MPricePoint)
	for _, p := range points {
		ts := p.SnapTime.UTC()
		slots, ok := bySecurity[p.SecurityID]
		if !ok {
			slots = make(map[int64]models.MPricePoint)
			bySecurity[p.SecurityID] = slots
		}
		key := ts.UnixNano()
		if _, dup := slots[key]; dup {
			return nil, fmt.Errorf("duplicate snapshot for security '%s' at %s", p.SecurityID, ts.Format(time.RFC3339))
		}
		p.SnapTime = ts
		slots[key] = p
	}

	securities := make([]string, 0, len(bySecurity))
	for id := range bySecurity {
		securities = append(securities, id)
	}
	sort.Strings(securities)

	hours := int(gridEnd.Sub(gridStart)/time.Hour) + 1

	// 3. Fill the grid, synthesizing missing hours
	result := make([]models.MPricePoint, 0, hours*len(securities))
	for _, id := range securities {
		slots := bySecurity[id]
		for h := 0; h < hours; h++ {
			ts := gridStart.Add(time.Duration(h) * time.Hour)
			if p, ok := slots[ts.UnixNano()]; ok {
				result = append(result, p)
				continue
			}
			result = append(result, models.MPricePoint{
				SecurityID: id,
				SnapTime:   ts,
			})
		}
	}

	return result, nil
}
