package models

import "time"

// MPricePoint represents one hourly price snapshot for a security.
type MPricePoint struct {
	SecurityID string    `json:"security_id"`
	SnapTime   time.Time `json:"snap_time"`
	Bid        *float64  `json:"bid"` // nil when the quote is missing
	Mid        *float64  `json:"mid"`
	Ask        *float64  `json:"ask"`
}
