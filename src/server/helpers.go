package server

import (
	"github.com/gonzaloreinoso/stdev-dag/src/models"
)

// -----------------------------------------------------------------------------

// filterResults narrows a results map to the requested securities. An empty
// request keeps everything.
func filterResults(all map[string][]models.MStdevResult, securities []string) map[string][]models.MStdevResult {
	if len(securities) == 0 {
		return all
	}

	filtered := make(map[string][]models.MStdevResult)
	for securityID, rows := range all {
		if contains(securities, securityID) {
			filtered[securityID] = rows
		}
	}
	return filtered
}

// -----------------------------------------------------------------------------

func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
