package app

// RSSIRing keeps the most recent RSSI values for sparklines.
type RSSIRing struct {
	buf  []float64
	next int
	full bool
}

// NewRSSIRing creates a ring holding up to capacity values.
func NewRSSIRing(capacity int) *RSSIRing {
	return &RSSIRing{buf: make([]float64, capacity)}
}

// Push records a value, overwriting the oldest once full.
func (r *RSSIRing) Push(v float64) {
	r.buf[r.next] = v
	r.next = (r.next + 1) % len(r.buf)
	if r.next == 0 {
		r.full = true
	}
}

// Values returns the stored values oldest first.
func (r *RSSIRing) Values() []float64 {
	if !r.full {
		return append([]float64(nil), r.buf[:r.next]...)
	}
	out := make([]float64, 0, len(r.buf))
	out = append(out, r.buf[r.next:]...)
	return append(out, r.buf[:r.next]...)
}

// Last returns the most recent value, or 0 if empty.
func (r *RSSIRing) Last() float64 {
	if r.Len() == 0 {
		return 0
	}
	return r.buf[(r.next-1+len(r.buf))%len(r.buf)]
}

// Len returns the number of stored values.
func (r *RSSIRing) Len() int {
	if r.full {
		return len(r.buf)
	}
	return r.next
}

// Reset empties the ring.
func (r *RSSIRing) Reset() {
	r.next = 0
	r.full = false
}
