package utils

import (
	"sort"
	"sync"

	"github.com/gonzaloreinoso/stdev-dag/src/logger"
	"github.com/gonzaloreinoso/stdev-dag/src/models"
)

// -----------------------------------------------------------------------------
// ResultCache holds the recent result rows per security for the API layer.
// -----------------------------------------------------------------------------

type ResultCache struct {
	Streams   map[string]*ResultBuffer
	MaxPoints int
	Logger    *logger.Logger
	mu        sync.RWMutex
}

// -----------------------------------------------------------------------------

func NewResultCache(maxPoints int) *ResultCache {
	return &ResultCache{
		Streams:   make(map[string]*ResultBuffer),
		MaxPoints: maxPoints,
		Logger:    logger.NewLogger(nil, "ResultCache"),
	}
}

// -----------------------------------------------------------------------------

// Add appends one result row to the buffer of its security.
func (rc *ResultCache) Add(result models.MStdevResult) {
	rc.mu.Lock()
	defer rc.mu.Unlock()

	if _, ok := rc.Streams[result.SecurityID]; !ok {
		rc.Streams[result.SecurityID] = NewResultBuffer(rc.MaxPoints)
	}

	rc.Streams[result.SecurityID].Append(result)
}

// -----------------------------------------------------------------------------

// AddBatch appends a run's emitted rows, fanning out per security.
func (rc *ResultCache) AddBatch(results []models.MStdevResult) {
	for _, result := range results {
		rc.Add(result)
	}
}

// -----------------------------------------------------------------------------

// Latest returns the n most recent rows for a security, nil when unknown.
func (rc *ResultCache) Latest(securityID string, n int) []models.MStdevResult {
	rc.mu.RLock()
	defer rc.mu.RUnlock()

	buffer, ok := rc.Streams[securityID]
	if !ok || buffer.Size() == 0 {
		return nil
	}

	return buffer.GetLatest(n)
}

// -----------------------------------------------------------------------------

// All returns the full buffered history for a security, oldest first.
func (rc *ResultCache) All(securityID string) []models.MStdevResult {
	rc.mu.RLock()
	defer rc.mu.RUnlock()

	buffer, ok := rc.Streams[securityID]
	if !ok || buffer.Size() == 0 {
		return nil
	}

	return buffer.GetAll()
}

// -----------------------------------------------------------------------------

// Snapshot returns the buffered history for every security.
func (rc *ResultCache) Snapshot() map[string][]models.MStdevResult {
	rc.mu.RLock()
	defer rc.mu.RUnlock()

	result := make(map[string][]models.MStdevResult)
	for id, buffer := range rc.Streams {
		if buffer.Size() == 0 {
			continue
		}
		result[id] = buffer.GetAll()
	}

	return result
}

// -----------------------------------------------------------------------------

// SecurityIDs returns the cached security ids in sorted order.
func (rc *ResultCache) SecurityIDs() []string {
	rc.mu.RLock()
	defer rc.mu.RUnlock()

	ids := make([]string, 0, len(rc.Streams))
	for id := range rc.Streams {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	return ids
}

// -----------------------------------------------------------------------------

// HasSecurity checks if a security has cached rows
func (rc *ResultCache) HasSecurity(securityID string) bool {
	rc.mu.RLock()
	defer rc.mu.RUnlock()

	_, ok := rc.Streams[securityID]
	return ok
}

// -----------------------------------------------------------------------------

// SecurityCount returns number of securities with cached rows
func (rc *ResultCache) SecurityCount() int {
	rc.mu.RLock()
	defer rc.mu.RUnlock()

	return len(rc.Streams)
}

// -----------------------------------------------------------------------------

// Cleanup clears all cached rows
func (rc *ResultCache) Cleanup() {
	rc.mu.Lock()
	defer rc.mu.Unlock()

	rc.Streams = make(map[string]*ResultBuffer)
}
