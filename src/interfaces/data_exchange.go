package interfaces

import "github.com/gonzaloreinoso/stdev-dag/src/models"

// -----------------------------------------------------------------------------
// IDataExchanger defining the interface for sharing data with external systems (Server/Push).
// -----------------------------------------------------------------------------

type IDataExchanger interface {
	// -----------------------------------------------------------------------------
	// Broadcast pushes data to external listeners and updates server state.
	Broadcast(data *models.MLatestData)

	// -----------------------------------------------------------------------------
	// UpdateAllDatas updates the internal state without broadcasting
	UpdateAllDatas(data *models.MLatestData)

	// -----------------------------------------------------------------------------
	// Start the server
	Start() error

	// -----------------------------------------------------------------------------
	// Stop the server gracefully
	Stop() error
}
