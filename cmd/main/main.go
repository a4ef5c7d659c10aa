package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gonzaloreinoso/stdev-dag/src/analysis"
	"github.com/gonzaloreinoso/stdev-dag/src/config"
	datasource "github.com/gonzaloreinoso/stdev-dag/src/data_source"
	"github.com/gonzaloreinoso/stdev-dag/src/interfaces"
	"github.com/gonzaloreinoso/stdev-dag/src/logger"
	"github.com/gonzaloreinoso/stdev-dag/src/pipeline"
	"github.com/gonzaloreinoso/stdev-dag/src/server"
	"github.com/gonzaloreinoso/stdev-dag/src/state"
	"github.com/gonzaloreinoso/stdev-dag/src/storage"
	"github.com/gonzaloreinoso/stdev-dag/src/utils"
)

// -----------------------------------------------------------------------------

func main() {

	// Parse command line flags
	configPath := flag.String("config", "../../config/default.yaml", "path to config file")
	once := flag.Bool("once", false, "process a single window and exit")
	startFlag := flag.String("start", "", "window start for -once (2006-01-02 15:04:05 or RFC3339, UTC)")
	endFlag := flag.String("end", "", "window end for -once")
	flag.Parse()

	// Load config from YAML file
	config, err := config.NewConfig(*configPath)
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		os.Exit(1)
	}

	// Setup logger
	appLogger := logger.NewLogger(config.MConfig, config.Name)

	// 2. Relational storage
	var db interfaces.IDatabase

	switch config.Storage.DBType {
	case "postgres":
		db, err = storage.NewPostgresDB(config.MConfig, appLogger)
	case "sqlite":
		db, err = storage.NewSQLiteDB(config.MConfig, appLogger)
	case "none":
		appLogger.Info("Relational storage disabled")
	}
	if err != nil {
		appLogger.Critical("Failed to init db: %v", err)
	}
	if db != nil {
		if err := db.Initialize(); err != nil {
			appLogger.Critical("Failed to migrate db: %v", err)
		}
		defer db.Close()
	}

	// 3. Calculation state store
	states, err := state.Open(config.MConfig, appLogger)
	if err != nil {
		appLogger.Critical("Failed to open state store: %v", err)
	}
	if states != nil {
		defer states.Close()
	}

	// 4. Source, cache, server
	source := datasource.NewCSVPriceSource(config.DataSource.PricesPath, appLogger)
	cache := utils.NewResultCache(utils.HourlyPointsForDays(config.DataSource.DataRetentionDays))
	srv := server.NewAPIServer(config.MConfig, appLogger, cache)

	runner := pipeline.NewRunner(config.MConfig, appLogger, source, db, states, srv, cache)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 5. One-shot mode: a single explicit window, then exit
	if *once {
		start, end, err := parseWindow(*startFlag, *endFlag)
		if err != nil {
			appLogger.Critical("Bad window flags: %v", err)
		}

		if _, err := runner.Run(ctx, start, end); err != nil {
			appLogger.Critical("Run failed: %v", err)
		}
		return
	}

	// 6. Serve results
	go func() {
		if err := srv.Start(); err != nil {
			appLogger.Error("Server failed: %v", err)
		}
	}()

	// 7. Scheduled loop: each tick processes the hours that completed since
	// the previous successful run, so windows stay disjoint and chronological.
	scheduler := utils.NewRunScheduler(config.Schedule.IntervalMinutes, config.Schedule.Calendar, appLogger)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	appLogger.Info("Starting scheduled processing loop...")

	var lastEnd time.Time
	timer := time.NewTimer(time.Until(scheduler.NextTick(time.Now())))
	defer timer.Stop()

	for {
		select {
		case tick := <-timer.C:
			timer.Reset(time.Until(scheduler.NextTick(time.Now())))

			if !scheduler.ShouldRun(tick) {
				appLogger.Info("Skipping tick at %s (calendar gate)", tick.UTC().Format(time.RFC3339))
				continue
			}

			windowEnd := analysis.FloorHour(tick.UTC())
			windowStart := windowEnd
			if !lastEnd.IsZero() {
				windowStart = lastEnd.Add(time.Hour)
			}
			if windowStart.After(windowEnd) {
				continue // no whole hour completed yet
			}

			if _, err := runner.Run(ctx, windowStart, windowEnd); err != nil {
				appLogger.Error("Run failed: %v", err)
				continue // retry the same window on the next tick
			}
			lastEnd = windowEnd

		case <-quit:
			appLogger.Info("Shutting down...")
			cancel()
			return
		}
	}
}

// -----------------------------------------------------------------------------

// parseWindow validates the -once window flags. Bounds are floored to whole
// hours, matching the processing grid.
func parseWindow(startRaw, endRaw string) (time.Time, time.Time, error) {
	if startRaw == "" || endRaw == "" {
		return time.Time{}, time.Time{}, fmt.Errorf("-once requires both -start and -end")
	}

	start, err := parseFlagTime(startRaw)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	end, err := parseFlagTime(endRaw)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}

	start = analysis.FloorHour(start)
	end = analysis.FloorHour(end)
	if end.Before(start) {
		return time.Time{}, time.Time{}, fmt.Errorf("end %s precedes start %s", endRaw, startRaw)
	}

	return start, end, nil
}

// -----------------------------------------------------------------------------

func parseFlagTime(raw string) (time.Time, error) {
	if t, err := time.ParseInLocation(datasource.TimeLayout, raw, time.UTC); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.UTC(), nil
	}
	return time.Time{}, fmt.Errorf("unparseable time '%s'", raw)
}
