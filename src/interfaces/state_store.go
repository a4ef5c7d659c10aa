package interfaces

import (
	"context"

	"github.com/gonzaloreinoso/stdev-dag/src/analysis/core"
)

// -----------------------------------------------------------------------------
// IStateStore persists accumulator state between runs. Implementations assume
// a single writer: concurrent processes sharing one location lose updates.
// -----------------------------------------------------------------------------

type IStateStore interface {

	// -----------------------------------------------------------------------------

	// Load restores every persisted accumulator. A missing or unreadable
	// document yields an empty map, never an error: losing state is
	// recoverable, the next runs simply warm the windows back up.
	Load(ctx context.Context) (map[core.Key]*core.Accumulator, error)

	// -----------------------------------------------------------------------------

	// Save persists the full accumulator map, replacing the previous document.
	Save(ctx context.Context, states map[core.Key]*core.Accumulator) error

	// -----------------------------------------------------------------------------

	// Close releases the underlying connection or handle.
	Close() error
}
