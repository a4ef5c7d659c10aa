package models

import "time"

// MRunReport represents the outcome metrics of one pipeline run.
type MRunReport struct {
	RunID          string    `json:"run_id"`
	WindowStart    time.Time `json:"window_start"`
	WindowEnd      time.Time `json:"window_end"`
	RowsRead       int       `json:"rows_read"`
	RowsNormalized int       `json:"rows_normalized"`
	RowsEmitted    int       `json:"rows_emitted"`
	Securities     int       `json:"securities"`
	ElapsedSeconds float64   `json:"elapsed_seconds"`
	FinishedAt     time.Time `json:"finished_at"`
}
