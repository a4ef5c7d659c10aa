package state

import (
	"context"
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gonzaloreinoso/stdev-dag/src/analysis/core"
	"github.com/gonzaloreinoso/stdev-dag/src/logger"
	"github.com/gonzaloreinoso/stdev-dag/src/models"
)

func hour(n int) time.Time {
	return time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC).Add(time.Duration(n) * time.Hour)
}

func buildStates(t *testing.T, windowSize int, values ...float64) map[core.Key]*core.Accumulator {
	t.Helper()
	acc, err := core.NewAccumulator(windowSize, false)
	if err != nil {
		t.Fatalf("NewAccumulator: %v", err)
	}
	for i, v := range values {
		acc.Update(v, hour(i))
	}
	return map[core.Key]*core.Accumulator{
		{SecurityID: "SEC_1", Field: core.FieldMid}: acc,
	}
}

func TestFileStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results", "calculation_state.json")
	store := NewFileStore(path, 3, false, logger.NewNop())

	states := buildStates(t, 3, 10, 12, 14)
	if err := store.Save(context.Background(), states); err != nil {
		t.Fatalf("Save: %v", err)
	}

	restored, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(restored) != 1 {
		t.Fatalf("expected 1 accumulator, got %d", len(restored))
	}

	key := core.Key{SecurityID: "SEC_1", Field: core.FieldMid}
	orig := states[key]
	got := restored[key]
	if got == nil {
		t.Fatal("expected SEC_1 mid accumulator")
	}
	if got.Sum() != orig.Sum() || got.SumSq() != orig.SumSq() || got.Len() != orig.Len() {
		t.Fatalf("restored sums diverge: got (%f, %f, %d), want (%f, %f, %d)",
			got.Sum(), got.SumSq(), got.Len(), orig.Sum(), orig.SumSq(), orig.Len())
	}
	if !got.LastTimestamp().Equal(orig.LastTimestamp()) {
		t.Fatalf("expected last timestamp %v, got %v", orig.LastTimestamp(), got.LastTimestamp())
	}

	// The restored window must keep evolving exactly like the original
	want := orig.Update(16, hour(3))
	have := got.Update(16, hour(3))
	if want == nil || have == nil || *want != *have {
		t.Fatalf("restored accumulator diverged: want %v, got %v", want, have)
	}
}

func TestFileStoreMissingFileStartsCold(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "absent.json"), 3, false, logger.NewNop())
	states, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(states) != 0 {
		t.Fatalf("expected empty state, got %d entries", len(states))
	}
}

func TestFileStoreDiscardsCorruptDocument(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "not json", content: "{{{"},
		{name: "unknown field name", content: `{"SEC_1": {"volume": {"values": [], "sum": 0, "sum_sq": 0, "last_timestamp": null, "last_stdev": null}}}`},
		{name: "non finite value", content: `{"SEC_1": {"mid": {"values": [1e999], "sum": 0, "sum_sq": 0, "last_timestamp": null, "last_stdev": null}}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "state.json")
			if err := os.WriteFile(path, []byte(tt.content), 0644); err != nil {
				t.Fatalf("WriteFile: %v", err)
			}

			store := NewFileStore(path, 3, false, logger.NewNop())
			states, err := store.Load(context.Background())
			if err != nil {
				t.Fatalf("corruption must not fail the load: %v", err)
			}
			if len(states) != 0 {
				t.Fatalf("expected discarded state, got %d entries", len(states))
			}
		})
	}
}

func TestFileStoreShrunkenWindowTruncates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")

	wide := NewFileStore(path, 5, false, logger.NewNop())
	if err := wide.Save(context.Background(), buildStates(t, 5, 1, 2, 3, 4, 5)); err != nil {
		t.Fatalf("Save: %v", err)
	}

	narrow := NewFileStore(path, 3, false, logger.NewNop())
	states, err := narrow.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	acc := states[core.Key{SecurityID: "SEC_1", Field: core.FieldMid}]
	if acc == nil {
		t.Fatal("expected restored accumulator")
	}
	if acc.Len() != 3 || acc.Cap() != 3 {
		t.Fatalf("expected truncation to 3 values, got len %d cap %d", acc.Len(), acc.Cap())
	}
	vals := acc.Values()
	want := []float64{3, 4, 5}
	for i := range want {
		if vals[i] != want[i] {
			t.Fatalf("expected newest values %v, got %v", want, vals)
		}
	}
	wantSum, wantSumSq := core.RunningSums(want)
	if math.Abs(acc.Sum()-wantSum) > 1e-9 || math.Abs(acc.SumSq()-wantSumSq) > 1e-9 {
		t.Fatalf("expected recomputed sums (%f, %f), got (%f, %f)", wantSum, wantSumSq, acc.Sum(), acc.SumSq())
	}
}

func TestFileStorePersistedSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	store := NewFileStore(path, 3, false, logger.NewNop())

	// Accumulator that never saw an observation: nullable fields stay null
	acc, _ := core.NewAccumulator(3, false)
	states := map[core.Key]*core.Accumulator{
		{SecurityID: "SEC_9", Field: core.FieldAsk}: acc,
	}
	if err := store.Save(context.Background(), states); err != nil {
		t.Fatalf("Save: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	var raw map[string]map[string]map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}

	rec, ok := raw["SEC_9"]["ask"]
	if !ok {
		t.Fatalf("expected SEC_9/ask record, got %v", raw)
	}
	for _, field := range []string{"values", "sum", "sum_sq", "last_timestamp", "last_stdev"} {
		if _, ok := rec[field]; !ok {
			t.Fatalf("persisted record lacks %q: %s", field, data)
		}
	}
	if string(rec["last_timestamp"]) != "null" || string(rec["last_stdev"]) != "null" {
		t.Fatalf("expected null last_timestamp and last_stdev, got %s", data)
	}
}

func TestOpenSelectsBackend(t *testing.T) {
	log := logger.NewNop()

	cfg := &models.MConfig{Name: "stdev-dag"}
	cfg.Analysis.WindowSize = 3

	// Empty location disables persistence
	store, err := Open(cfg, log)
	if err != nil || store != nil {
		t.Fatalf("expected disabled store, got %v (%v)", store, err)
	}

	cfg.State.Location = filepath.Join(t.TempDir(), "state.json")
	store, err = Open(cfg, log)
	if err != nil {
		t.Fatalf("Open file store: %v", err)
	}
	if _, ok := store.(*FileStore); !ok {
		t.Fatalf("expected *FileStore, got %T", store)
	}

	cfg.State.Location = "redis://localhost:6379/2"
	store, err = Open(cfg, log)
	if err != nil {
		t.Fatalf("Open redis store: %v", err)
	}
	rs, ok := store.(*RedisStore)
	if !ok {
		t.Fatalf("expected *RedisStore, got %T", store)
	}
	if rs.Key != "stdev-dag:calculation_state" {
		t.Fatalf("expected namespaced key, got %s", rs.Key)
	}

	cfg.State.Location = "redis://localhost:6379/not-a-db"
	if _, err := Open(cfg, log); err == nil {
		t.Fatal("expected error for malformed redis URL")
	}
}
