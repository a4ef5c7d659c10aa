package state

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/gonzaloreinoso/stdev-dag/src/analysis/core"
	"github.com/gonzaloreinoso/stdev-dag/src/logger"
)

// -----------------------------------------------------------------------------
// RedisStore keeps the accumulator state as one JSON document under a single
// Redis key.
// -----------------------------------------------------------------------------

type RedisStore struct {
	Client     *redis.Client
	Key        string
	WindowSize int
	GapReset   bool
	Logger     *logger.Logger
}

// -----------------------------------------------------------------------------

func NewRedisStore(opts *redis.Options, key string, windowSize int, gapReset bool, log *logger.Logger) *RedisStore {
	return &RedisStore{
		Client:     redis.NewClient(opts),
		Key:        key,
		WindowSize: windowSize,
		GapReset:   gapReset,
		Logger:     log,
	}
}

// -----------------------------------------------------------------------------

// Load reads the state document. An absent key means a cold start, a corrupt
// document is discarded with a warning. Connection failures surface as
// errors: unlike corruption they are not recoverable by recomputing.
func (s *RedisStore) Load(ctx context.Context) (map[core.Key]*core.Accumulator, error) {
	data, err := s.Client.Get(ctx, s.Key).Bytes()
	if err == redis.Nil {
		s.Logger.Info("No state at key %s, starting cold", s.Key)
		return map[core.Key]*core.Accumulator{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read state from redis: %w", err)
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		s.Logger.Warning("State at key %s is not valid JSON, discarding: %v", s.Key, err)
		return map[core.Key]*core.Accumulator{}, nil
	}

	states, err := decode(doc, s.WindowSize, s.GapReset)
	if err != nil {
		s.Logger.Warning("State at key %s failed validation, discarding: %v", s.Key, err)
		return map[core.Key]*core.Accumulator{}, nil
	}

	s.Logger.Info("Restored %d accumulators from redis key %s", len(states), s.Key)
	return states, nil
}

// -----------------------------------------------------------------------------

// Save replaces the state document. No expiry: the state is the durable
// handoff between runs.
func (s *RedisStore) Save(ctx context.Context, states map[core.Key]*core.Accumulator) error {
	data, err := json.Marshal(encode(states))
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	if err := s.Client.Set(ctx, s.Key, data, 0).Err(); err != nil {
		return fmt.Errorf("failed to write state to redis: %w", err)
	}
	return nil
}

// -----------------------------------------------------------------------------

func (s *RedisStore) Close() error {
	return s.Client.Close()
}
