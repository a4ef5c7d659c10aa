package interfaces

import (
	"context"

	"github.com/gonzaloreinoso/stdev-dag/src/models"
)

// -----------------------------------------------------------------------------
// IPriceSource interface for extracting price snapshots for a run.
// -----------------------------------------------------------------------------

type IPriceSource interface {

	// Name returns the unique identifier of the source
	Name() string

	// -----------------------------------------------------------------------------

	// Fetch retrieves every available snapshot for the run. A missing input
	// is an error: the pipeline fails fast instead of running on nothing.
	Fetch(ctx context.Context) ([]models.MPricePoint, error)
}
