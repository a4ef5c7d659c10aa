package storage

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/gonzaloreinoso/stdev-dag/src/logger"
	"github.com/gonzaloreinoso/stdev-dag/src/models"
)

// -----------------------------------------------------------------------------

type PostgresDB struct {
	Config *models.MConfig
	DB     *sql.DB
	Schema string
	Logger *logger.Logger
}

// -----------------------------------------------------------------------------

func NewPostgresDB(cfg *models.MConfig, log *logger.Logger) (*PostgresDB, error) {
	if cfg.Storage.DBSchema == "" {
		return nil, fmt.Errorf("postgres schema is not configured")
	}

	return &PostgresDB{
		Config: cfg,
		Schema: cfg.Storage.DBSchema,
		Logger: log,
	}, nil
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) Initialize() error {
	dsn := d.Config.Storage.DBConnectionString
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return err
	}

	if err := db.Ping(); err != nil {
		return err
	}

	d.DB = db

	// Create Schema
	if _, err := d.DB.Exec(fmt.Sprintf(`CREATE SCHEMA IF NOT EXISTS "%s"`, d.Schema)); err != nil {
		return fmt.Errorf("failed to create schema %s: %w", d.Schema, err)
	}

	if err := d.createTables(); err != nil {
		return err
	}

	d.Logger.Info("PostgresDB initialized successfully (Schema: %s)", d.Schema)
	return nil
}

// -----------------------------------------------------------------------------

// createTables is additive: the pipeline appends to existing tables across
// runs, so nothing is ever dropped here.
func (d *PostgresDB) createTables() error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS "%s"."price_data" (
			security_id TEXT,
			snap_time TIMESTAMPTZ,
			bid DOUBLE PRECISION,
			mid DOUBLE PRECISION,
			ask DOUBLE PRECISION,
			PRIMARY KEY (security_id, snap_time)
		);
	`, d.Schema)
	if _, err := d.DB.Exec(query); err != nil {
		return fmt.Errorf("failed to create price_data: %w", err)
	}

	query = fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS "%s"."stdev_results" (
			security_id TEXT,
			"timestamp" TIMESTAMPTZ,
			bid_stdev DOUBLE PRECISION,
			mid_stdev DOUBLE PRECISION,
			ask_stdev DOUBLE PRECISION,
			PRIMARY KEY (security_id, "timestamp")
		);
	`, d.Schema)
	if _, err := d.DB.Exec(query); err != nil {
		return fmt.Errorf("failed to create stdev_results: %w", err)
	}

	return d.createRunReportsTable()
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) SavePricePointsBulk(points []models.MPricePoint) error {
	if len(points) == 0 {
		return nil
	}

	tx, err := d.DB.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	// Re-extracted snapshots collide on the primary key and are skipped
	query := fmt.Sprintf(`
		INSERT INTO "%s"."price_data" (security_id, snap_time, bid, mid, ask)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (security_id, snap_time) DO NOTHING
	`, d.Schema)
	stmt, err := tx.Prepare(query)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, p := range points {
		_, err := stmt.Exec(p.SecurityID, p.SnapTime.UTC(), p.Bid, p.Mid, p.Ask)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) SaveStdevResultsBulk(results []models.MStdevResult) error {
	if len(results) == 0 {
		return nil
	}

	tx, err := d.DB.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := fmt.Sprintf(`
		INSERT INTO "%s"."stdev_results" (security_id, "timestamp", bid_stdev, mid_stdev, ask_stdev)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (security_id, "timestamp") DO NOTHING
	`, d.Schema)
	stmt, err := tx.Prepare(query)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, r := range results {
		_, err := stmt.Exec(r.SecurityID, r.Timestamp.UTC(), r.BidStdev, r.MidStdev, r.AskStdev)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

// -----------------------------------------------------------------------------

// CleanupOldData trims raw snapshots past the retention horizon. Result rows
// are the product of the pipeline and are kept.
func (d *PostgresDB) CleanupOldData() error {
	retentionDays := d.Config.DataSource.DataRetentionDays
	cutoff := time.Now().UTC().AddDate(0, 0, -retentionDays)

	d.Logger.Info("Cleaning up raw prices older than %d days (snap_time < %s)", retentionDays, cutoff.Format(time.RFC3339))

	if _, err := d.DB.Exec(fmt.Sprintf(`DELETE FROM "%s"."price_data" WHERE snap_time < $1`, d.Schema), cutoff); err != nil {
		d.Logger.Error("Cleanup price_data error: %v", err)
	}

	return nil
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) Close() error {
	if d.DB != nil {
		return d.DB.Close()
	}
	return nil
}
