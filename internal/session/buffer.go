// Package session keeps the in-memory view of the points processed during the
// active session.
package session

import (
	"sync"

	"github.com/jengzang/car-location-go/internal/models"
)

// Buffer accumulates processed points in arrival order.
// Only the coordinator appends; readers always get a copy.
// With a positive capacity the buffer keeps the newest capacity points,
// otherwise it grows for the lifetime of the session.
type Buffer struct {
	mu       sync.RWMutex
	points   []models.ProcessedLocationPoint
	capacity int
	dropped  int64
	version  uint64
	changed  chan struct{}
}

// NewBuffer creates a buffer; capacity <= 0 means unbounded
func NewBuffer(capacity int) *Buffer {
	if capacity < 0 {
		capacity = 0
	}
	return &Buffer{
		capacity: capacity,
		changed:  make(chan struct{}),
	}
}

// Append adds a point at the end of the session view
func (b *Buffer) Append(p models.ProcessedLocationPoint) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.capacity > 0 && len(b.points) == b.capacity {
		copy(b.points, b.points[1:])
		b.points = b.points[:len(b.points)-1]
		b.dropped++
	}
	b.points = append(b.points, p)
	b.bump()
}

// Reset clears the buffer at the start of a new session
func (b *Buffer) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.points = nil
	b.dropped = 0
	b.bump()
}

// Snapshot returns a copy of the buffered points, oldest first
func (b *Buffer) Snapshot() []models.ProcessedLocationPoint {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]models.ProcessedLocationPoint, len(b.points))
	copy(out, b.points)
	return out
}

// Len returns the number of buffered points
func (b *Buffer) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.points)
}

// Dropped returns how many points the retention window evicted this session
func (b *Buffer) Dropped() int64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.dropped
}

// Changed returns a channel closed on the next mutation, plus the version it
// was taken at. Readers wait on it and then call Snapshot.
func (b *Buffer) Changed() (<-chan struct{}, uint64) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.changed, b.version
}

// bump must be called with the write lock held
func (b *Buffer) bump() {
	b.version++
	close(b.changed)
	b.changed = make(chan struct{})
}
