package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/gonzaloreinoso/stdev-dag/src/analysis"
	"github.com/gonzaloreinoso/stdev-dag/src/analysis/core"
	datasource "github.com/gonzaloreinoso/stdev-dag/src/data_source"
	"github.com/gonzaloreinoso/stdev-dag/src/helpers"
	"github.com/gonzaloreinoso/stdev-dag/src/interfaces"
	"github.com/gonzaloreinoso/stdev-dag/src/logger"
	"github.com/gonzaloreinoso/stdev-dag/src/models"
	"github.com/gonzaloreinoso/stdev-dag/src/utils"
)

// -----------------------------------------------------------------------------
// Runner executes one processing window end to end:
// extract -> load raw -> normalize -> restore state -> process -> persist
// state -> load results -> results csv -> retention cleanup -> publish.
// -----------------------------------------------------------------------------

type Runner struct {
	Config    *models.MConfig
	Logger    *logger.Logger
	Source    interfaces.IPriceSource
	DB        interfaces.IDatabase      // nil when db_type is none
	States    interfaces.IStateStore    // nil when state persistence is disabled
	Exchanger interfaces.IDataExchanger // nil when nothing serves results
	Cache     *utils.ResultCache
	Errors    *helpers.ErrorHandler

	// One run at a time. Overlapping windows would feed rows into the
	// accumulators twice, so callers must only ever advance the window.
	mu sync.Mutex
}

// -----------------------------------------------------------------------------

func NewRunner(
	cfg *models.MConfig,
	log *logger.Logger,
	source interfaces.IPriceSource,
	db interfaces.IDatabase,
	states interfaces.IStateStore,
	exchanger interfaces.IDataExchanger,
	cache *utils.ResultCache,
) *Runner {
	return &Runner{
		Config:    cfg,
		Logger:    log,
		Source:    source,
		DB:        db,
		States:    states,
		Exchanger: exchanger,
		Cache:     cache,
		Errors:    helpers.NewErrorHandler(),
	}
}

// -----------------------------------------------------------------------------

// Run processes the window [start, end] and returns the run report.
func (r *Runner) Run(ctx context.Context, start, end time.Time) (*models.MRunReport, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	runID := uuid.NewString()
	started := time.Now()

	r.Logger.Info("[%s] Run started for window [%s, %s]",
		runID, start.UTC().Format(time.RFC3339), end.UTC().Format(time.RFC3339))

	// 1. Extract
	points, err := r.Source.Fetch(ctx)
	if err != nil {
		return nil, err
	}

	// 2. Load raw prices (skipped when relational storage is disabled)
	if r.DB != nil {
		_, err = r.Errors.ExecuteWithRetry("load raw prices into database", func() (interface{}, error) {
			return nil, r.DB.SavePricePointsBulk(points)
		}, 3)
		if err != nil {
			return nil, err
		}
	}

	// 3. Normalize onto the shared hourly grid
	grid, err := analysis.NormalizeHourly(points)
	if err != nil {
		return nil, &helpers.ValidationError{PipelineError: helpers.PipelineError{
			Message: "normalization failed", Cause: err}}
	}

	// 4. Restore calculation state
	states := make(map[core.Key]*core.Accumulator)
	if r.States != nil {
		states, err = r.States.Load(ctx)
		if err != nil {
			return nil, &helpers.StateError{PipelineError: helpers.PipelineError{
				Message: "restoring calculation state", Cause: err}}
		}
	}

	// 5. Process
	engine, err := analysis.NewEngine(r.Config, states, r.Logger)
	if err != nil {
		return nil, err
	}
	results, err := engine.Process(grid, start, end)
	if err != nil {
		return nil, err
	}

	// 6. Persist calculation state
	if r.States != nil {
		_, err = r.Errors.ExecuteWithRetry("persist calculation state", func() (interface{}, error) {
			return nil, r.States.Save(ctx, engine.States())
		}, 3)
		if err != nil {
			return nil, err
		}
	}

	// 7. Load results into database
	if r.DB != nil && len(results) > 0 {
		_, err = r.Errors.ExecuteWithRetry("load results into database", func() (interface{}, error) {
			return nil, r.DB.SaveStdevResultsBulk(results)
		}, 3)
		if err != nil {
			return nil, err
		}
	}

	// 8. Results CSV
	if path := r.Config.DataSource.ResultsPath; path != "" {
		if err := datasource.WriteResultsCSV(path, results); err != nil {
			return nil, fmt.Errorf("writing results csv: %w", err)
		}
	}

	// 9. Retention cleanup
	if r.DB != nil {
		r.Errors.Handle(r.DB.CleanupOldData(), "retention cleanup")
	}

	// 10. Publish
	report := r.buildReport(runID, start, end, points, grid, results, started)
	if r.DB != nil {
		r.Errors.Handle(r.DB.SaveRunReport(report), "run bookkeeping")
	}

	r.Cache.AddBatch(results)

	if r.Exchanger != nil {
		payload := buildLatestData(results, report)
		r.Exchanger.UpdateAllDatas(payload)
		r.Exchanger.Broadcast(payload)
	}

	r.Logger.Info("[%s] Run finished: %d rows read, %d emitted for %d securities in %.3fs",
		runID, report.RowsRead, report.RowsEmitted, report.Securities, report.ElapsedSeconds)

	return report, nil
}

// -----------------------------------------------------------------------------

func (r *Runner) buildReport(
	runID string,
	start, end time.Time,
	points, grid []models.MPricePoint,
	results []models.MStdevResult,
	started time.Time,
) *models.MRunReport {
	securities := make(map[string]bool)
	for _, p := range grid {
		securities[p.SecurityID] = true
	}

	return &models.MRunReport{
		RunID:          runID,
		WindowStart:    start.UTC(),
		WindowEnd:      end.UTC(),
		RowsRead:       len(points),
		RowsNormalized: len(grid),
		RowsEmitted:    len(results),
		Securities:     len(securities),
		ElapsedSeconds: time.Since(started).Seconds(),
		FinishedAt:     time.Now().UTC(),
	}
}

// -----------------------------------------------------------------------------

func buildLatestData(results []models.MStdevResult, report *models.MRunReport) *models.MLatestData {
	bySecurity := make(map[string][]models.MStdevResult)
	for _, result := range results {
		bySecurity[result.SecurityID] = append(bySecurity[result.SecurityID], result)
	}

	return &models.MLatestData{
		Type:      "UPDATE",
		Results:   bySecurity,
		Report:    report,
		Timestamp: time.Now().Unix(),
	}
}
