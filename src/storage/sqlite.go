package storage

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/gonzaloreinoso/stdev-dag/src/logger"
	"github.com/gonzaloreinoso/stdev-dag/src/models"
)

// -----------------------------------------------------------------------------

type SQLiteDB struct {
	Config *models.MConfig
	DB     *sql.DB
	Logger *logger.Logger
}

// -----------------------------------------------------------------------------

func NewSQLiteDB(cfg *models.MConfig, log *logger.Logger) (*SQLiteDB, error) {
	return &SQLiteDB{
		Config: cfg,
		Logger: log,
	}, nil
}

// -----------------------------------------------------------------------------

func (d *SQLiteDB) Initialize() error {
	dsn := d.Config.Storage.DBPath

	// Open DB
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return err
	}

	if err := db.Ping(); err != nil {
		return err
	}

	d.DB = db

	// PRAGMA optimizations
	if _, err := db.Exec("PRAGMA journal_mode = WAL;"); err != nil {
		d.Logger.Warning("Failed to set WAL mode: %v", err)
	}
	if _, err := db.Exec("PRAGMA synchronous = NORMAL;"); err != nil {
		d.Logger.Warning("Failed to set synchronous mode: %v", err)
	}

	return d.createTables()
}

// -----------------------------------------------------------------------------

// createTables is additive: the pipeline appends to existing tables across
// runs, so nothing is ever dropped here.
// SQLite types: INTEGER for unix timestamps, REAL for float64, TEXT for string
func (d *SQLiteDB) createTables() error {
	query := `
		CREATE TABLE IF NOT EXISTS price_data (
			security_id TEXT,
			snap_time INTEGER,
			bid REAL,
			mid REAL,
			ask REAL,
			PRIMARY KEY (security_id, snap_time)
		);
	`
	if _, err := d.DB.Exec(query); err != nil {
		return fmt.Errorf("failed to create price_data: %w", err)
	}

	query = `
		CREATE TABLE IF NOT EXISTS stdev_results (
			security_id TEXT,
			timestamp INTEGER,
			bid_stdev REAL,
			mid_stdev REAL,
			ask_stdev REAL,
			PRIMARY KEY (security_id, timestamp)
		);
	`
	if _, err := d.DB.Exec(query); err != nil {
		return fmt.Errorf("failed to create stdev_results: %w", err)
	}

	query = `
		CREATE TABLE IF NOT EXISTS run_reports (
			run_id TEXT PRIMARY KEY,
			window_start INTEGER,
			window_end INTEGER,
			rows_read INTEGER,
			rows_normalized INTEGER,
			rows_emitted INTEGER,
			securities INTEGER,
			elapsed_seconds REAL,
			finished_at INTEGER
		);
	`
	if _, err := d.DB.Exec(query); err != nil {
		return fmt.Errorf("failed to create run_reports: %w", err)
	}

	return nil
}

// -----------------------------------------------------------------------------

func (d *SQLiteDB) SavePricePointsBulk(points []models.MPricePoint) error {
	if len(points) == 0 {
		return nil
	}

	tx, err := d.DB.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	// Re-extracted snapshots collide on the primary key and are skipped
	stmt, err := tx.Prepare(`
		INSERT INTO price_data (security_id, snap_time, bid, mid, ask)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (security_id, snap_time) DO NOTHING
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, p := range points {
		_, err := stmt.Exec(p.SecurityID, p.SnapTime.UTC().Unix(), p.Bid, p.Mid, p.Ask)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

// -----------------------------------------------------------------------------

func (d *SQLiteDB) SaveStdevResultsBulk(results []models.MStdevResult) error {
	if len(results) == 0 {
		return nil
	}

	tx, err := d.DB.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO stdev_results (security_id, timestamp, bid_stdev, mid_stdev, ask_stdev)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (security_id, timestamp) DO NOTHING
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, r := range results {
		_, err := stmt.Exec(r.SecurityID, r.Timestamp.UTC().Unix(), r.BidStdev, r.MidStdev, r.AskStdev)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

// -----------------------------------------------------------------------------

// SaveRunReport records the outcome of one pipeline run.
func (d *SQLiteDB) SaveRunReport(report *models.MRunReport) error {
	if report == nil {
		return nil
	}

	query := `
		INSERT INTO run_reports
			(run_id, window_start, window_end, rows_read, rows_normalized, rows_emitted, securities, elapsed_seconds, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (run_id) DO UPDATE SET
			window_start = excluded.window_start,
			window_end = excluded.window_end,
			rows_read = excluded.rows_read,
			rows_normalized = excluded.rows_normalized,
			rows_emitted = excluded.rows_emitted,
			securities = excluded.securities,
			elapsed_seconds = excluded.elapsed_seconds,
			finished_at = excluded.finished_at
	`
	_, err := d.DB.Exec(query,
		report.RunID,
		report.WindowStart.UTC().Unix(),
		report.WindowEnd.UTC().Unix(),
		report.RowsRead,
		report.RowsNormalized,
		report.RowsEmitted,
		report.Securities,
		report.ElapsedSeconds,
		report.FinishedAt.UTC().Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to save run report: %w", err)
	}
	return nil
}

// -----------------------------------------------------------------------------

// CleanupOldData trims raw snapshots past the retention horizon. Result rows
// are the product of the pipeline and are kept.
func (d *SQLiteDB) CleanupOldData() error {
	retentionDays := d.Config.DataSource.DataRetentionDays
	cutoff := time.Now().UTC().AddDate(0, 0, -retentionDays).Unix()

	d.Logger.Info("Cleaning up raw prices older than %d days (snap_time < %d)", retentionDays, cutoff)

	if _, err := d.DB.Exec("DELETE FROM price_data WHERE snap_time < ?", cutoff); err != nil {
		d.Logger.Error("Cleanup price_data error: %v", err)
	}

	d.Logger.Info("Cleanup completed")
	return nil
}

// -----------------------------------------------------------------------------

func (d *SQLiteDB) Close() error {
	if d.DB != nil {
		return d.DB.Close()
	}
	return nil
}
