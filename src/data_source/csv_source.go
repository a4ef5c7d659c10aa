package datasource

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gonzaloreinoso/stdev-dag/src/helpers"
	"github.com/gonzaloreinoso/stdev-dag/src/logger"
	"github.com/gonzaloreinoso/stdev-dag/src/models"
)

// TimeLayout is the timestamp format of the price files. RFC3339 is accepted
// on read as well.
const TimeLayout = "2006-01-02 15:04:05"

var requiredColumns = []string{"security_id", "snap_time", "bid", "mid", "ask"}

// -----------------------------------------------------------------------------
// CSVPriceSource reads hourly quote snapshots from CSV file drops.
// -----------------------------------------------------------------------------

type CSVPriceSource struct {
	Path   string // single file or glob pattern
	Logger *logger.Logger
}

// -----------------------------------------------------------------------------

func NewCSVPriceSource(path string, l *logger.Logger) *CSVPriceSource {
	return &CSVPriceSource{
		Path:   path,
		Logger: l,
	}
}

// -----------------------------------------------------------------------------

func (s *CSVPriceSource) Name() string {
	return "csv"
}

// -----------------------------------------------------------------------------

// Fetch reads every file matching the configured path and merges the rows.
// A path matching nothing is a hard error: the pipeline must not silently
// run on an empty extraction.
func (s *CSVPriceSource) Fetch(ctx context.Context) ([]models.MPricePoint, error) {
	matches, err := filepath.Glob(s.Path)
	if err != nil {
		return nil, &helpers.DataSourceError{PipelineError: helpers.PipelineError{
			Message: fmt.Sprintf("bad price path pattern '%s'", s.Path), Cause: err}}
	}
	if len(matches) == 0 {
		return nil, &helpers.DataSourceError{PipelineError: helpers.PipelineError{
			Message: fmt.Sprintf("price file not found: %s", s.Path)}}
	}
	sort.Strings(matches)

	var points []models.MPricePoint
	for _, path := range matches {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		rows, err := s.readFile(path)
		if err != nil {
			return nil, &helpers.DataSourceError{PipelineError: helpers.PipelineError{
				Message: fmt.Sprintf("reading %s", path), Cause: err}}
		}
		points = append(points, rows...)
	}

	s.Logger.Info("Extracted %d rows from %d file(s) matching '%s'",
		len(points), len(matches), s.Path)

	return points, nil
}

// -----------------------------------------------------------------------------

func (s *CSVPriceSource) readFile(path string) ([]models.MPricePoint, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}

	columns := make(map[string]int, len(header))
	for i, name := range header {
		columns[strings.ToLower(strings.TrimSpace(name))] = i
	}

	// Name every missing column at once instead of failing one at a time
	var missing []string
	for _, name := range requiredColumns {
		if _, ok := columns[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required columns %v", missing)
	}

	var points []models.MPricePoint
	line := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		point, err := parseRow(record, columns)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		points = append(points, point)
	}

	return points, nil
}

// -----------------------------------------------------------------------------

func parseRow(record []string, columns map[string]int) (models.MPricePoint, error) {
	securityID := strings.TrimSpace(record[columns["security_id"]])
	if securityID == "" {
		return models.MPricePoint{}, fmt.Errorf("empty security_id")
	}

	snapTime, err := parseTimestamp(record[columns["snap_time"]])
	if err != nil {
		return models.MPricePoint{}, err
	}

	point := models.MPricePoint{SecurityID: securityID, SnapTime: snapTime}

	for _, field := range []struct {
		name string
		dest **float64
	}{
		{"bid", &point.Bid},
		{"mid", &point.Mid},
		{"ask", &point.Ask},
	} {
		value, err := parseQuote(record[columns[field.name]])
		if err != nil {
			return models.MPricePoint{}, fmt.Errorf("column %s: %w", field.name, err)
		}
		*field.dest = value
	}

	return point, nil
}

// -----------------------------------------------------------------------------

func parseTimestamp(cell string) (time.Time, error) {
	cell = strings.TrimSpace(cell)

	if t, err := time.ParseInLocation(TimeLayout, cell, time.UTC); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, cell); err == nil {
		return t.UTC(), nil
	}

	return time.Time{}, fmt.Errorf("unparseable snap_time '%s'", cell)
}

// -----------------------------------------------------------------------------

// parseQuote maps empty cells and the literal NaN to a missing quote.
func parseQuote(cell string) (*float64, error) {
	cell = strings.TrimSpace(cell)
	if cell == "" {
		return nil, nil
	}

	v, err := strconv.ParseFloat(cell, 64)
	if err != nil {
		return nil, fmt.Errorf("unparseable quote '%s'", cell)
	}
	if math.IsNaN(v) {
		return nil, nil
	}
	if math.IsInf(v, 0) {
		return nil, fmt.Errorf("non-finite quote '%s'", cell)
	}

	return &v, nil
}
