// Package filter provides signal smoothing used for live display.
package filter

// DefaultFactor is the smoothing factor used for the live gaze pointer.
const DefaultFactor = 0.85

// LowPassFilter is an exponential moving average over a scalar signal.
//
// The filter is primed by the first sample it observes rather than starting
// from zero, so the first Update returns its input unchanged.
type LowPassFilter struct {
	factor float64
	value  float64
	primed bool
}

// NewLowPassFilter creates a filter with the given smoothing factor. Higher
// factors resist change more. The factor is clamped to [0,1].
func NewLowPassFilter(factor float64) *LowPassFilter {
	switch {
	case factor < 0:
		factor = 0
	case factor > 1:
		factor = 1
	}
	return &LowPassFilter{factor: factor}
}

// Update feeds a new sample and returns the smoothed value.
func (f *LowPassFilter) Update(sample float64) float64 {
	if !f.primed {
		f.value = sample
		f.primed = true
		return f.value
	}

	next := f.factor*f.value + (1.0-f.factor)*sample

	// The result must stay between the previous value and the sample, rounding included.
	lo, hi := min(f.value, sample), max(f.value, sample)
	f.value = min(max(next, lo), hi)

	return f.value
}

// Value returns the current smoothed value.
func (f *LowPassFilter) Value() float64 {
	return f.value
}

// Factor returns the smoothing factor.
func (f *LowPassFilter) Factor() float64 {
	return f.factor
}

// Primed returns true once the filter has observed a sample.
func (f *LowPassFilter) Primed() bool {
	return f.primed
}

// Reset discards the current value; the next Update primes the filter again.
func (f *LowPassFilter) Reset() {
	f.value = 0
	f.primed = false
}
