package monitoring

import "sync"

// latencyRing keeps the most recent N observations for quantile
// estimation without unbounded growth.
type latencyRing struct {
	mu   sync.Mutex
	buf  []float64
	next int
	full bool
}

func newLatencyRing(size int) *latencyRing {
	return &latencyRing{buf: make([]float64, size)}
}

func (r *latencyRing) add(v float64) {
	r.mu.Lock()
	r.buf[r.next] = v
	r.next++
	if r.next == len(r.buf) {
		r.next = 0
		r.full = true
	}
	r.mu.Unlock()
}

// values returns a copy of the stored observations, oldest first.
func (r *latencyRing) values() []float64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.full {
		out := make([]float64, r.next)
		copy(out, r.buf[:r.next])
		return out
	}
	out := make([]float64, 0, len(r.buf))
	out = append(out, r.buf[r.next:]...)
	out = append(out, r.buf[:r.next]...)
	return out
}
