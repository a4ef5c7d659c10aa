package core

import (
	"fmt"
	"math"
	"time"
)

// -----------------------------------------------------------------------------
// Accumulator is a fixed-capacity circular window over one price series with
// running sums. True ring buffer - no resizing allowed!
// -----------------------------------------------------------------------------

type Accumulator struct {
	values   []float64
	capacity int
	index    int // Next write position
	size     int // Current number of elements

	sum   float64
	sumSq float64

	lastTimestamp time.Time // zero until the first observation
	lastStdev     *float64  // nil until a window first fills

	gapReset bool
}

// -----------------------------------------------------------------------------

// NewAccumulator creates an empty accumulator. A window below 2 has no
// sample standard deviation and is rejected.
func NewAccumulator(windowSize int, gapReset bool) (*Accumulator, error) {
	if windowSize < 2 {
		return nil, fmt.Errorf("window size must be at least 2, got %d", windowSize)
	}
	return &Accumulator{
		values:   make([]float64, windowSize),
		capacity: windowSize,
		gapReset: gapReset,
	}, nil
}

// -----------------------------------------------------------------------------

// RestoreAccumulator rebuilds an accumulator from persisted parts. When the
// persisted window is longer than the configured one (the window size shrank
// between runs) only the newest values are kept and the sums are recomputed
// so they keep matching the buffer contents.
func RestoreAccumulator(windowSize int, gapReset bool, values []float64, sum, sumSq float64, lastTimestamp time.Time, lastStdev *float64) (*Accumulator, error) {
	a, err := NewAccumulator(windowSize, gapReset)
	if err != nil {
		return nil, err
	}

	for i, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("persisted value %d is not finite", i)
		}
	}

	if len(values) > a.capacity {
		values = values[len(values)-a.capacity:]
		sum, sumSq = RunningSums(values)
	}

	copy(a.values, values)
	a.size = len(values)
	a.index = a.size % a.capacity
	a.sum = sum
	a.sumSq = sumSq
	a.lastTimestamp = lastTimestamp
	if lastStdev != nil {
		v := *lastStdev
		a.lastStdev = &v
	}
	return a, nil
}

// -----------------------------------------------------------------------------

// Update feeds one observation and returns the standard deviation to report
// for it, or nil when no window has filled yet. NaN marks a missing value:
// it clears the window but keeps the previously reported standard deviation,
// so output carries the last known value through gaps.
func (a *Accumulator) Update(value float64, ts time.Time) *float64 {
	if math.IsNaN(value) {
		a.clear()
		a.lastTimestamp = ts
		return a.lastStdev
	}

	// Optional guard for state restored after downtime: a hole in the
	// hourly sequence means the window no longer holds contiguous hours.
	if a.gapReset && !a.lastTimestamp.IsZero() && !ts.Equal(a.lastTimestamp.Add(time.Hour)) {
		a.clear()
	}

	if a.size == a.capacity {
		// Full: the slot at the write position holds the oldest value
		old := a.values[a.index]
		a.sum -= old
		a.sumSq -= old * old
	} else {
		a.size++
	}

	a.values[a.index] = value
	a.sum += value
	a.sumSq += value * value
	a.index = (a.index + 1) % a.capacity
	a.lastTimestamp = ts

	if a.size == a.capacity {
		std := SampleStdev(a.sum, a.sumSq, a.size)
		a.lastStdev = &std
	}
	return a.lastStdev
}

// -----------------------------------------------------------------------------

func (a *Accumulator) clear() {
	a.index = 0
	a.size = 0
	a.sum = 0
	a.sumSq = 0
}

// -----------------------------------------------------------------------------

// Values returns the window contents in insertion order (oldest to newest)
func (a *Accumulator) Values() []float64 {
	result := make([]float64, a.size)

	var startIdx int
	if a.size == a.capacity {
		// Buffer is full, oldest is at current index (wrap-around)
		startIdx = a.index
	}

	for i := 0; i < a.size; i++ {
		result[i] = a.values[(startIdx+i)%a.capacity]
	}
	return result
}

// -----------------------------------------------------------------------------

// Sum returns the running sum of the window contents
func (a *Accumulator) Sum() float64 {
	return a.sum
}

// -----------------------------------------------------------------------------

// SumSq returns the running sum of squares of the window contents
func (a *Accumulator) SumSq() float64 {
	return a.sumSq
}

// -----------------------------------------------------------------------------

// Len returns current number of elements
func (a *Accumulator) Len() int {
	return a.size
}

// -----------------------------------------------------------------------------

// Cap returns the window capacity (fixed)
func (a *Accumulator) Cap() int {
	return a.capacity
}

// -----------------------------------------------------------------------------

// IsFull returns whether a full window is present
func (a *Accumulator) IsFull() bool {
	return a.size == a.capacity
}

// -----------------------------------------------------------------------------

// LastTimestamp returns the timestamp of the most recent observation, the
// zero time when none was seen yet.
func (a *Accumulator) LastTimestamp() time.Time {
	return a.lastTimestamp
}

// -----------------------------------------------------------------------------

// LastStdev returns the most recently reported standard deviation, nil when
// no window has filled yet.
func (a *Accumulator) LastStdev() *float64 {
	return a.lastStdev
}
