package estimator

import "gonum.org/v1/gonum/stat"

// window is a fixed-capacity ring of recent acceleration magnitudes. When
// full the oldest value is overwritten.
type window struct {
	buf   []float64
	next  int
	count int

	scratch []float64
}

func newWindow(capacity int) *window {
	if capacity < 1 {
		capacity = 1
	}
	return &window{
		buf:     make([]float64, capacity),
		scratch: make([]float64, 0, capacity),
	}
}

func (w *window) push(v float64) {
	w.buf[w.next] = v
	w.next = (w.next + 1) % len(w.buf)
	if w.count < len(w.buf) {
		w.count++
	}
}

func (w *window) len() int { return w.count }

func (w *window) clear() {
	w.next = 0
	w.count = 0
}

// values returns the contents oldest first. The slice is reused.
func (w *window) values() []float64 {
	w.scratch = w.scratch[:0]
	start := w.next - w.count
	if start < 0 {
		start += len(w.buf)
	}
	for i := 0; i < w.count; i++ {
		w.scratch = append(w.scratch, w.buf[(start+i)%len(w.buf)])
	}
	return w.scratch
}

// stdDev returns the sample standard deviation, or 0 with fewer than two values.
func (w *window) stdDev() float64 {
	if w.count < 2 {
		return 0
	}
	return stat.StdDev(w.values(), nil)
}
