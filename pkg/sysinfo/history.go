package sysinfo

// History keeps the most recent samples of a series in a fixed ring.
// The zero value is unusable; use NewHistory.
type History struct {
	buf  []float64
	next int
	full bool
}

func NewHistory(size int) *History {
	return &History{buf: make([]float64, max(size, 1))}
}

func (h *History) Add(v float64) {
	h.buf[h.next] = v
	h.next = (h.next + 1) % len(h.buf)
	if h.next == 0 {
		h.full = true
	}
}

// Values returns the samples oldest first.
func (h *History) Values() []float64 {
	if !h.full {
		return append([]float64(nil), h.buf[:h.next]...)
	}
	out := make([]float64, 0, len(h.buf))
	out = append(out, h.buf[h.next:]...)
	return append(out, h.buf[:h.next]...)
}

func (h *History) Len() int {
	if h.full {
		return len(h.buf)
	}
	return h.next
}

// Max returns the largest value held, or 0 when empty.
func (h *History) Max() float64 {
	var m float64
	for _, v := range h.Values() {
		m = max(m, v)
	}
	return m
}
