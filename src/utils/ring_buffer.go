package utils

import (
	"volley-observer/src/models"
)

// -----------------------------------------------------------------------------
// MetricRing is a fixed-size circular buffer of metric records.
// True ring buffer - no implicit resizing!
// -----------------------------------------------------------------------------

type MetricRing struct {
	data     []models.MMetric
	capacity int
	index    int // Next write position
	size     int // Current number of elements
}

// -----------------------------------------------------------------------------

// NewMetricRing creates a new buffer with fixed capacity
func NewMetricRing(capacity int) *MetricRing {
	if capacity <= 0 {
		capacity = 256 // Default reasonable size
	}

	return &MetricRing{
		data:     make([]models.MMetric, capacity),
		capacity: capacity,
		index:    0,
		size:     0,
	}
}

// -----------------------------------------------------------------------------

// Append adds one record, overwriting the oldest when full
func (rb *MetricRing) Append(m models.MMetric) {
	rb.data[rb.index] = m
	rb.index = (rb.index + 1) % rb.capacity

	// Update size (never exceeds capacity)
	if rb.size < rb.capacity {
		rb.size++
	}
}

// -----------------------------------------------------------------------------

// GetLatest returns the n most recent records, oldest of them first
func (rb *MetricRing) GetLatest(n int) []models.MMetric {
	if rb.size == 0 || n <= 0 {
		return []models.MMetric{}
	}

	count := n
	if n > rb.size {
		count = rb.size
	}

	result := make([]models.MMetric, count)

	// Latest data is at index-1
	startIdx := (rb.index - count + rb.capacity) % rb.capacity

	for i := 0; i < count; i++ {
		idx := (startIdx + i) % rb.capacity
		result[i] = rb.data[idx]
	}

	return result
}

// -----------------------------------------------------------------------------

// GetAll returns all data in insertion order (oldest to newest)
func (rb *MetricRing) GetAll() []models.MMetric {
	if rb.size == 0 {
		return []models.MMetric{}
	}

	result := make([]models.MMetric, rb.size)

	var startIdx int
	if rb.size == rb.capacity {
		// Buffer is full, oldest is at current index (wrap-around)
		startIdx = rb.index
	} else {
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
func (rb *MetricRing) Size() int {
	return rb.size
}

// -----------------------------------------------------------------------------

// Capacity returns buffer capacity (fixed)
func (rb *MetricRing) Capacity() int {
	return rb.capacity
}

// -----------------------------------------------------------------------------

// IsFull returns whether buffer is full
func (rb *MetricRing) IsFull() bool {
	return rb.size == rb.capacity
}

// -----------------------------------------------------------------------------

// Clear resets the buffer
func (rb *MetricRing) Clear() {
	rb.index = 0
	rb.size = 0
}
