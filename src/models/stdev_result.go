package models

import "time"

// MStdevResult is one emitted rolling standard deviation row.
type MStdevResult struct {
	SecurityID string    `json:"security_id"`
	Timestamp  time.Time `json:"timestamp"`
	BidStdev   *float64  `json:"bid_stdev"` // nil until a window fills for the field
	MidStdev   *float64  `json:"mid_stdev"`
	AskStdev   *float64  `json:"ask_stdev"`
}
