package exercise

import "time"

// HistoryCapacity bounds the angle and accuracy histories.
const HistoryCapacity = 100

// Sample is one recorded measurement.
type Sample struct {
	Value float64   `json:"value"`
	At    time.Time `json:"at"`
}

// History is a fixed-capacity FIFO of samples; the oldest is evicted first.
type History struct {
	buf   []Sample
	start int
	n     int
}

// NewHistory returns an empty history holding at most capacity samples.
func NewHistory(capacity int) *History {
	if capacity <= 0 {
		capacity = HistoryCapacity
	}
	return &History{buf: make([]Sample, capacity)}
}

// Push appends a sample, evicting the oldest when full.
func (h *History) Push(v float64, at time.Time) {
	if h.n < len(h.buf) {
		h.buf[(h.start+h.n)%len(h.buf)] = Sample{Value: v, At: at}
		h.n++
		return
	}
	h.buf[h.start] = Sample{Value: v, At: at}
	h.start = (h.start + 1) % len(h.buf)
}

// Len returns the number of stored samples.
func (h *History) Len() int { return h.n }

// Values returns the stored values, oldest first.
func (h *History) Values() []float64 {
	out := make([]float64, h.n)
	for i := range out {
		out[i] = h.buf[(h.start+i)%len(h.buf)].Value
	}
	return out
}

// Last returns up to n most recent values, oldest first.
func (h *History) Last(n int) []float64 {
	vals := h.Values()
	if n < len(vals) {
		return vals[len(vals)-n:]
	}
	return vals
}

// Clear drops every sample.
func (h *History) Clear() {
	h.start, h.n = 0, 0
}
