package utils

import (
	"github.com/gonzaloreinoso/stdev-dag/src/models"
)

// -----------------------------------------------------------------------------
// ResultBuffer is a fixed-size circular buffer of result rows.
// True ring buffer - no resizing allowed!
// -----------------------------------------------------------------------------

type ResultBuffer struct {
	data     []models.MStdevResult
	capacity int
	index    int // Next write position
	size     int // Current number of elements
}

// -----------------------------------------------------------------------------

// NewResultBuffer creates a new buffer with fixed capacity
func NewResultBuffer(capacity int) *ResultBuffer {
	if capacity <= 0 {
		capacity = HourlyPointsForDays(DefaultRetentionDays)
	}

	return &ResultBuffer{
		data:     make([]models.MStdevResult, capacity),
		capacity: capacity,
		index:    0,
		size:     0,
	}
}

// -----------------------------------------------------------------------------

// Append adds a result row, evicting the oldest once full
func (rb *ResultBuffer) Append(result models.MStdevResult) {
	rb.data[rb.index] = result

	rb.index = (rb.index + 1) % rb.capacity

	// Update size (never exceeds capacity)
	if rb.size < rb.capacity {
		rb.size++
	}
}

// -----------------------------------------------------------------------------

// GetLatest returns the n most recent rows, oldest of them first
func (rb *ResultBuffer) GetLatest(n int) []models.MStdevResult {
	if rb.size == 0 || n <= 0 {
		return []models.MStdevResult{}
	}

	count := n
	if n > rb.size {
		count = rb.size
	}

	result := make([]models.MStdevResult, count)

	// Latest data sits just before the write index
	startIdx := (rb.index - count + rb.capacity) % rb.capacity

	for i := 0; i < count; i++ {
		idx := (startIdx + i) % rb.capacity
		result[i] = rb.data[idx]
	}

	return result
}

// -----------------------------------------------------------------------------

// GetAll returns all data in insertion order (oldest to newest)
func (rb *ResultBuffer) GetAll() []models.MStdevResult {
	if rb.size == 0 {
		return []models.MStdevResult{}
	}

	result := make([]models.MStdevResult, rb.size)

	// Calculate start index (oldest element)
	var startIdx int
	if rb.size == rb.capacity {
		// Buffer is full, oldest is at current index (wrap-around)
		startIdx = rb.index
	} else {
		// Buffer not full, oldest is at index 0
		startIdx = 0
	}

	for i := 0; i < rb.size; i++ {
		idx := (startIdx + i) % rb.capacity
		result[i] = rb.data[idx]
	}

	return result
}

// -----------------------------------------------------------------------------

// Size returns current number of elements
func (rb *ResultBuffer) Size() int {
	return rb.size
}

// -----------------------------------------------------------------------------

// Capacity returns buffer capacity (fixed)
func (rb *ResultBuffer) Capacity() int {
	return rb.capacity
}

// -----------------------------------------------------------------------------

// IsFull returns whether buffer is full
func (rb *ResultBuffer) IsFull() bool {
	return rb.size == rb.capacity
}

// -----------------------------------------------------------------------------

// Clear resets the buffer
func (rb *ResultBuffer) Clear() {
	rb.index = 0
	rb.size = 0
}
