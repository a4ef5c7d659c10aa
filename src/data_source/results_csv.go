package datasource

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/gonzaloreinoso/stdev-dag/src/models"
)

var resultsHeader = []string{"security_id", "timestamp", "bid_stdev", "mid_stdev", "ask_stdev"}

// -----------------------------------------------------------------------------

// WriteResultsCSV writes the computed rows to path, creating parent
// directories as needed. Unfilled windows stay as empty cells.
func WriteResultsCSV(path string, results []models.MStdevResult) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("creating results directory: %w", err)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	writer := csv.NewWriter(f)
	if err := writer.Write(resultsHeader); err != nil {
		return err
	}

	for _, r := range results {
		record := []string{
			r.SecurityID,
			r.Timestamp.UTC().Format(TimeLayout),
			formatStdev(r.BidStdev),
			formatStdev(r.MidStdev),
			formatStdev(r.AskStdev),
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}

// -----------------------------------------------------------------------------

func formatStdev(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'g', -1, 64)
}
