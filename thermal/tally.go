package thermal

import "math"

// Tally is a bounded accumulator whose fill level models conductor heating.
// The value never leaves [0, threshold].
type Tally struct {
	value     float64
	threshold float64
	max       float64
	maxAt     uint32
}

// Returns the current tally.
func (t *Tally) Value() float64 {
	return t.value
}

// Returns the trip threshold the tally is bounded by.
func (t *Tally) Threshold() float64 {
	return t.threshold
}

// SetThreshold changes the bound, clamping the tally to it.
func (t *Tally) SetThreshold(threshold float64) {
	t.threshold = math.Max(threshold, 0)
	t.value = math.Min(t.value, t.threshold)
}

// Set replaces the tally, clamped to [0, threshold].
func (t *Tally) Set(v float64) {
	t.value = math.Min(math.Max(v, 0), t.threshold)
}

// Add accumulates v, clamped to the threshold, and records the maximum
// reached together with the counter it was reached at.
func (t *Tally) Add(v float64, counter uint32) {
	t.Set(t.value + v)
	if t.value > t.max {
		t.max = t.value
		t.maxAt = counter
	}
}

// Decay removes v from the tally, stopping at zero.
func (t *Tally) Decay(v float64) {
	t.Set(t.value - v)
}

func (t *Tally) Reset() {
	t.value = 0
}

// Full reports whether the tally has reached its threshold.
func (t *Tally) Full() bool {
	return t.threshold > 0 && t.value >= t.threshold
}

// Returns the tally as a percentage of the threshold.
func (t *Tally) Percent() float64 {
	if t.threshold <= 0 {
		return 0
	}
	return t.value / t.threshold * 100
}

// Returns the tally in tenths of a percent of the threshold, 0 to 1000.
func (t *Tally) Bucket() uint16 {
	return uint16(math.Round(t.Percent() * 10))
}

// Returns the largest tally seen and the counter at which it was reached.
func (t *Tally) Max() (float64, uint32) {
	return t.max, t.maxAt
}

// ClearMax forgets the recorded maximum.
func (t *Tally) ClearMax() {
	t.max, t.maxAt = 0, 0
}
