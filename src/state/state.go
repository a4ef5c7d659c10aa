// Package state persists accumulator windows between runs. Stores assume a
// single writer: two processes sharing one location overwrite each other's
// documents. The pipeline runner serializes runs in-process for the same
// reason.
package state

import (
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/gonzaloreinoso/stdev-dag/src/interfaces"
	"github.com/gonzaloreinoso/stdev-dag/src/logger"
	"github.com/gonzaloreinoso/stdev-dag/src/models"
)

// -----------------------------------------------------------------------------

// Open builds the state store named by the configured location: a redis://
// or rediss:// URL selects Redis, anything else is a file path. An empty
// location disables persistence and returns nil.
func Open(cfg *models.MConfig, log *logger.Logger) (interfaces.IStateStore, error) {
	location := cfg.State.Location
	if location == "" {
		return nil, nil
	}

	if strings.HasPrefix(location, "redis://") || strings.HasPrefix(location, "rediss://") {
		opts, err := redis.ParseURL(location)
		if err != nil {
			return nil, fmt.Errorf("invalid redis state location: %w", err)
		}
		key := fmt.Sprintf("%s:calculation_state", cfg.Name)
		return NewRedisStore(opts, key, cfg.Analysis.WindowSize, cfg.Analysis.GapReset, log), nil
	}

	return NewFileStore(location, cfg.Analysis.WindowSize, cfg.Analysis.GapReset, log), nil
}
