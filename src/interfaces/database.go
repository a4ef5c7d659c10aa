package interfaces

import "github.com/gonzaloreinoso/stdev-dag/src/models"

// -----------------------------------------------------------------------------
// IDatabase defines the contract for storage operations.
// -----------------------------------------------------------------------------

type IDatabase interface {

	// -----------------------------------------------------------------------------

	// Initialize sets up the database schema and tables.
	Initialize() error

	// -----------------------------------------------------------------------------

	// SavePricePointsBulk inserts a batch of raw price snapshots. Rows already
	// present are left untouched, so replayed extractions stay safe.
	SavePricePointsBulk(points []models.MPricePoint) error

	// -----------------------------------------------------------------------------

	// SaveStdevResultsBulk inserts a batch of calculated result rows.
	SaveStdevResultsBulk(results []models.MStdevResult) error

	// -----------------------------------------------------------------------------

	// SaveRunReport records the outcome metrics of one run.
	SaveRunReport(report *models.MRunReport) error

	// -----------------------------------------------------------------------------

	// CleanupOldData removes data older than the retention policy.
	CleanupOldData() error

	// -----------------------------------------------------------------------------

	// Close the database connection
	Close() error
}
