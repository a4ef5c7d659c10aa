package storage

import (
	"fmt"

	"github.com/gonzaloreinoso/stdev-dag/src/models"
)

// Info: Separate file for run bookkeeping logic specific to Postgres

// -----------------------------------------------------------------------------

func (d *PostgresDB) createRunReportsTable() error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS "%s"."run_reports" (
			run_id TEXT PRIMARY KEY,
			window_start TIMESTAMPTZ,
			window_end TIMESTAMPTZ,
			rows_read INTEGER,
			rows_normalized INTEGER,
			rows_emitted INTEGER,
			securities INTEGER,
			elapsed_seconds DOUBLE PRECISION,
			finished_at TIMESTAMPTZ
		);
	`, d.Schema)
	if _, err := d.DB.Exec(query); err != nil {
		return fmt.Errorf("failed to create run_reports: %w", err)
	}
	return nil
}

// -----------------------------------------------------------------------------

// SaveRunReport records the outcome of one pipeline run. Reports are keyed
// by run id, so a retried save of the same run overwrites itself.
func (d *PostgresDB) SaveRunReport(report *models.MRunReport) error {
	if report == nil {
		return nil
	}

	query := fmt.Sprintf(`
		INSERT INTO "%s"."run_reports"
			(run_id, window_start, window_end, rows_read, rows_normalized, rows_emitted, securities, elapsed_seconds, finished_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (run_id) DO UPDATE SET
			window_start = EXCLUDED.window_start,
			window_end = EXCLUDED.window_end,
			rows_read = EXCLUDED.rows_read,
			rows_normalized = EXCLUDED.rows_normalized,
			rows_emitted = EXCLUDED.rows_emitted,
			securities = EXCLUDED.securities,
			elapsed_seconds = EXCLUDED.elapsed_seconds,
			finished_at = EXCLUDED.finished_at
	`, d.Schema)

	_, err := d.DB.Exec(query,
		report.RunID,
		report.WindowStart.UTC(),
		report.WindowEnd.UTC(),
		report.RowsRead,
		report.RowsNormalized,
		report.RowsEmitted,
		report.Securities,
		report.ElapsedSeconds,
		report.FinishedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to save run report: %w", err)
	}
	return nil
}
