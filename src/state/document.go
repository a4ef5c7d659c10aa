package state

import (
	"fmt"
	"time"

	"github.com/gonzaloreinoso/stdev-dag/src/analysis/core"
)

// -----------------------------------------------------------------------------
// Persisted form: security id -> field name -> record. Two map levels keep
// security identifiers and field names apart without a separator convention.
// -----------------------------------------------------------------------------

type document map[string]map[string]record

type record struct {
	Values        []float64  `json:"values"`
	Sum           float64    `json:"sum"`
	SumSq         float64    `json:"sum_sq"`
	LastTimestamp *time.Time `json:"last_timestamp"`
	LastStdev     *float64   `json:"last_stdev"`
}

// -----------------------------------------------------------------------------

func encode(states map[core.Key]*core.Accumulator) document {
	doc := make(document, len(states))
	for key, acc := range states {
		fields, ok := doc[key.SecurityID]
		if !ok {
			fields = make(map[string]record, len(core.Fields))
			doc[key.SecurityID] = fields
		}

		rec := record{
			Values: acc.Values(),
			Sum:    acc.Sum(),
			SumSq:  acc.SumSq(),
		}
		if last := acc.LastTimestamp(); !last.IsZero() {
			utc := last.UTC()
			rec.LastTimestamp = &utc
		}
		if std := acc.LastStdev(); std != nil {
			v := *std
			rec.LastStdev = &v
		}
		fields[key.Field.String()] = rec
	}
	return doc
}

// -----------------------------------------------------------------------------

func decode(doc document, windowSize int, gapReset bool) (map[core.Key]*core.Accumulator, error) {
	states := make(map[core.Key]*core.Accumulator)
	for securityID, fields := range doc {
		if securityID == "" {
			return nil, fmt.Errorf("persisted state has an empty security id")
		}
		for fieldName, rec := range fields {
			field, err := core.ParseField(fieldName)
			if err != nil {
				return nil, fmt.Errorf("security '%s': %w", securityID, err)
			}

			var last time.Time
			if rec.LastTimestamp != nil {
				last = rec.LastTimestamp.UTC()
			}
			acc, err := core.RestoreAccumulator(windowSize, gapReset, rec.Values, rec.Sum, rec.SumSq, last, rec.LastStdev)
			if err != nil {
				return nil, fmt.Errorf("security '%s' field '%s': %w", securityID, fieldName, err)
			}
			states[core.Key{SecurityID: securityID, Field: field}] = acc
		}
	}
	return states, nil
}
