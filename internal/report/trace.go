// Package report records estimated positions for a session in memory and
// renders them as charts. Nothing here is persisted.
package report

import (
	"sync"

	"github.com/banshee-data/deadreckon/internal/navigation"
)

// Trace is a bounded, concurrency-safe history of estimated positions.
// Once full the oldest entries are overwritten.
type Trace struct {
	mu    sync.Mutex
	buf   []navigation.EstimatedPosition
	next  int
	count int
}

// NewTrace returns a trace holding at most capacity positions.
func NewTrace(capacity int) *Trace {
	if capacity < 1 {
		capacity = 1
	}
	return &Trace{buf: make([]navigation.EstimatedPosition, capacity)}
}

// Record appends a position.
func (t *Trace) Record(p navigation.EstimatedPosition) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.buf[t.next] = p
	t.next = (t.next + 1) % len(t.buf)
	if t.count < len(t.buf) {
		t.count++
	}
}

// Len returns the number of recorded positions.
func (t *Trace) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.count
}

// Snapshot returns the recorded positions, oldest first.
func (t *Trace) Snapshot() []navigation.EstimatedPosition {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]navigation.EstimatedPosition, 0, t.count)
	start := t.next - t.count
	if start < 0 {
		start += len(t.buf)
	}
	for i := 0; i < t.count; i++ {
		out = append(out, t.buf[(start+i)%len(t.buf)])
	}
	return out
}

// Reset discards all positions.
func (t *Trace) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.next = 0
	t.count = 0
}

// elapsedSeconds returns each position's time since the first, in seconds.
func elapsedSeconds(points []navigation.EstimatedPosition) []float64 {
	out := make([]float64, len(points))
	if len(points) == 0 {
		return out
	}
	t0 := points[0].TimestampNanos
	for i, p := range points {
		out[i] = float64(p.TimestampNanos-t0) / 1e9
	}
	return out
}
