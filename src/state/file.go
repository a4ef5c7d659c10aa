package state

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gonzaloreinoso/stdev-dag/src/analysis/core"
	"github.com/gonzaloreinoso/stdev-dag/src/logger"
)

// -----------------------------------------------------------------------------
// FileStore keeps the accumulator state in one JSON document on disk.
// -----------------------------------------------------------------------------

type FileStore struct {
	Path       string
	WindowSize int
	GapReset   bool
	Logger     *logger.Logger
}

// -----------------------------------------------------------------------------

func NewFileStore(path string, windowSize int, gapReset bool, log *logger.Logger) *FileStore {
	return &FileStore{
		Path:       path,
		WindowSize: windowSize,
		GapReset:   gapReset,
		Logger:     log,
	}
}

// -----------------------------------------------------------------------------

// Load reads the state document. A missing file means a cold start. A
// document that cannot be parsed or validated is discarded with a warning:
// the accumulators warm back up over the next runs.
func (s *FileStore) Load(ctx context.Context) (map[core.Key]*core.Accumulator, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		if os.IsNotExist(err) {
			s.Logger.Info("No state file at %s, starting cold", s.Path)
			return map[core.Key]*core.Accumulator{}, nil
		}
		return nil, fmt.Errorf("failed to read state file '%s': %w", s.Path, err)
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		s.Logger.Warning("State file %s is not valid JSON, discarding: %v", s.Path, err)
		return map[core.Key]*core.Accumulator{}, nil
	}

	states, err := decode(doc, s.WindowSize, s.GapReset)
	if err != nil {
		s.Logger.Warning("State file %s failed validation, discarding: %v", s.Path, err)
		return map[core.Key]*core.Accumulator{}, nil
	}

	s.Logger.Info("Restored %d accumulators from %s", len(states), s.Path)
	return states, nil
}

// -----------------------------------------------------------------------------

// Save replaces the state document, creating parent directories when needed.
func (s *FileStore) Save(ctx context.Context, states map[core.Key]*core.Accumulator) error {
	data, err := json.Marshal(encode(states))
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	if dir := filepath.Dir(s.Path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create state directory '%s': %w", dir, err)
		}
	}

	if err := os.WriteFile(s.Path, data, 0644); err != nil {
		return fmt.Errorf("failed to write state file '%s': %w", s.Path, err)
	}
	return nil
}

// -----------------------------------------------------------------------------

func (s *FileStore) Close() error {
	return nil
}
