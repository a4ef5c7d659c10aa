package datasource

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gonzaloreinoso/stdev-dag/src/helpers"
	"github.com/gonzaloreinoso/stdev-dag/src/interfaces"
	"github.com/gonzaloreinoso/stdev-dag/src/logger"
)

var _ interfaces.IPriceSource = (*CSVPriceSource)(nil)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}
	return path
}

func TestFetchParsesRows(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "prices.csv",
		"security_id,snap_time,bid,mid,ask,venue\n"+
			"SEC_1,2024-03-01 10:00:00,99.5,100.0,100.5,XNYS\n"+
			"SEC_1,2024-03-01 11:00:00,,100.1,NaN,XNYS\n"+
			"SEC_2,2024-03-01T10:00:00+02:00,1.0,1.1,1.2,XLON\n")

	source := NewCSVPriceSource(path, logger.NewNop())
	points, err := source.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(points) != 3 {
		t.Fatalf("expected 3 points, got %d", len(points))
	}

	first := points[0]
	if first.SecurityID != "SEC_1" {
		t.Fatalf("expected SEC_1, got %s", first.SecurityID)
	}
	if !first.SnapTime.Equal(time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected snap time %v", first.SnapTime)
	}
	if first.Bid == nil || *first.Bid != 99.5 || first.Mid == nil || *first.Mid != 100.0 {
		t.Fatalf("unexpected quotes in %+v", first)
	}

	// Empty and NaN cells are missing quotes, not errors
	second := points[1]
	if second.Bid != nil || second.Ask != nil {
		t.Fatalf("expected nil bid and ask, got %+v", second)
	}
	if second.Mid == nil || *second.Mid != 100.1 {
		t.Fatalf("expected mid 100.1, got %+v", second.Mid)
	}

	// Zoned RFC3339 input is normalized to UTC
	third := points[2]
	if !third.SnapTime.Equal(time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)) {
		t.Fatalf("expected 08:00 UTC, got %v", third.SnapTime)
	}
	if loc := third.SnapTime.Location(); loc != time.UTC {
		t.Fatalf("expected UTC location, got %v", loc)
	}
}

func TestFetchNamesAllMissingColumns(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "bad.csv", "security_id,snap_time\nSEC_1,2024-03-01 10:00:00\n")

	source := NewCSVPriceSource(path, logger.NewNop())
	_, err := source.Fetch(context.Background())
	if err == nil {
		t.Fatal("expected error for missing columns")
	}
	for _, col := range []string{"bid", "mid", "ask"} {
		if !strings.Contains(err.Error(), col) {
			t.Fatalf("error should name missing column %s: %v", col, err)
		}
	}
}

func TestFetchFailsFastOnAbsentFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nope.csv")

	source := NewCSVPriceSource(path, logger.NewNop())
	_, err := source.Fetch(context.Background())
	if err == nil {
		t.Fatal("expected error for absent file")
	}

	var srcErr *helpers.DataSourceError
	if !errors.As(err, &srcErr) {
		t.Fatalf("expected DataSourceError, got %T", err)
	}
	if !strings.Contains(err.Error(), path) {
		t.Fatalf("error should name the path: %v", err)
	}
}

func TestFetchMergesGlobMatches(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "prices_10.csv",
		"security_id,snap_time,bid,mid,ask\nSEC_1,2024-03-01 10:00:00,1,2,3\n")
	writeFile(t, dir, "prices_11.csv",
		"security_id,snap_time,bid,mid,ask\nSEC_1,2024-03-01 11:00:00,4,5,6\n")

	source := NewCSVPriceSource(filepath.Join(dir, "prices_*.csv"), logger.NewNop())
	points, err := source.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(points) != 2 {
		t.Fatalf("expected merged 2 points, got %d", len(points))
	}
	// Files merge in lexical order
	if !points[0].SnapTime.Before(points[1].SnapTime) {
		t.Fatalf("expected rows of prices_10 first, got %v then %v",
			points[0].SnapTime, points[1].SnapTime)
	}
}

func TestFetchRejectsBadQuote(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "bad.csv",
		"security_id,snap_time,bid,mid,ask\nSEC_1,2024-03-01 10:00:00,abc,2,3\n")

	source := NewCSVPriceSource(path, logger.NewNop())
	_, err := source.Fetch(context.Background())
	if err == nil {
		t.Fatal("expected error for unparseable quote")
	}
	if !strings.Contains(err.Error(), "line 2") || !strings.Contains(err.Error(), "bid") {
		t.Fatalf("error should name line and column: %v", err)
	}
}

func TestFetchHonorsContext(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "prices.csv",
		"security_id,snap_time,bid,mid,ask\nSEC_1,2024-03-01 10:00:00,1,2,3\n")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	source := NewCSVPriceSource(path, logger.NewNop())
	if _, err := source.Fetch(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
