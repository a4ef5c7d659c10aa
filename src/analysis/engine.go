package analysis

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/gonzaloreinoso/stdev-dag/src/analysis/core"
	"github.com/gonzaloreinoso/stdev-dag/src/helpers"
	"github.com/gonzaloreinoso/stdev-dag/src/logger"
	"github.com/gonzaloreinoso/stdev-dag/src/models"
)

// -----------------------------------------------------------------------------

// Engine drives one rolling standard deviation accumulator per security and
// quote field, carrying their state across runs.
type Engine struct {
	Config *models.MConfig
	Logger *logger.Logger

	states map[core.Key]*core.Accumulator
}

// -----------------------------------------------------------------------------

// NewEngine creates an engine seeded with previously persisted accumulators.
// A nil state map starts every series cold.
func NewEngine(cfg *models.MConfig, restored map[core.Key]*core.Accumulator, log *logger.Logger) (*Engine, error) {
	if cfg.Analysis.WindowSize < 2 {
		return nil, &helpers.ConfigurationError{PipelineError: helpers.PipelineError{
			Message: fmt.Sprintf("window size must be at least 2, got %d", cfg.Analysis.WindowSize),
		}}
	}

	states := restored
	if states == nil {
		states = make(map[core.Key]*core.Accumulator)
	}

	return &Engine{
		Config: cfg,
		Logger: log,
		states: states,
	}, nil
}

// -----------------------------------------------------------------------------

// Process consumes normalized snapshots and returns one result row per
// security and hour inside [start, end]. Snapshots earlier than the lookback
// horizon or later than end are ignored; snapshots between lookback and start
// warm the accumulators up without producing output.
func (e *Engine) Process(points []models.MPricePoint, start, end time.Time) ([]models.MStdevResult, error) {
	if end.Before(start) {
		return nil, &helpers.ValidationError{PipelineError: helpers.PipelineError{
			Message: fmt.Sprintf("window end %s precedes start %s", end.Format(time.RFC3339), start.Format(time.RFC3339)),
		}}
	}

	start = start.UTC()
	end = end.UTC()
	lookback := start.Add(-time.Duration(e.Config.Analysis.LookbackDays) * 24 * time.Hour)

	// State evolves in timestamp order within each security
	sorted := make([]models.MPricePoint, len(points))
	copy(sorted, points)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].SecurityID != sorted[j].SecurityID {
			return sorted[i].SecurityID < sorted[j].SecurityID
		}
		return sorted[i].SnapTime.Before(sorted[j].SnapTime)
	})

	var results []models.MStdevResult
	for _, p := range sorted {
		ts := p.SnapTime.UTC()
		if ts.Before(lookback) || ts.After(end) {
			continue
		}

		row := models.MStdevResult{SecurityID: p.SecurityID, Timestamp: ts}
		row.BidStdev = e.update(p.SecurityID, core.FieldBid, p.Bid, ts)
		row.MidStdev = e.update(p.SecurityID, core.FieldMid, p.Mid, ts)
		row.AskStdev = e.update(p.SecurityID, core.FieldAsk, p.Ask, ts)

		// Warm-up rows update state only
		if !ts.Before(start) {
			results = append(results, row)
		}
	}

	e.Logger.Debug("Processed %d snapshots into %d result rows (%d accumulators live)", len(sorted), len(results), len(e.states))
	return results, nil
}

// -----------------------------------------------------------------------------

func (e *Engine) update(securityID string, field core.Field, value *float64, ts time.Time) *float64 {
	key := core.Key{SecurityID: securityID, Field: field}
	acc, ok := e.states[key]
	if !ok {
		// WindowSize was validated at construction, this cannot fail
		acc, _ = core.NewAccumulator(e.Config.Analysis.WindowSize, e.Config.Analysis.GapReset)
		e.states[key] = acc
	}

	v := math.NaN()
	if value != nil {
		v = *value
	}
	return acc.Update(v, ts)
}

// -----------------------------------------------------------------------------

// States exposes the live accumulators for persistence after a run.
func (e *Engine) States() map[core.Key]*core.Accumulator {
	return e.states
}
