package disturbance

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFaultRamp(t *testing.T) {
	testCases := []struct {
		name     string
		ramp     float64
		expected []float64
	}{
		{"step", 0, []float64{5, 5, 5, 5, 0, 0}},
		{"ramped", 2, []float64{0, 2.5, 5, 5, 0, 0}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			fault, err := NewFault(FaultParams{
				Target:    GroundCurrent,
				Duration:  4,
				Magnitude: 5,
				Ramp:      tc.ramp,
			})
			assert.NoError(t, err)

			for i, want := range tc.expected {
				assert.InDelta(t, want, fault.stepDisturbance(1.0), 1e-9, "step %d", i)
			}
			assert.Equal(t, uint64(1), fault.GetCountRepeats())
			assert.True(t, fault.Off)
		})
	}
}

func TestFaultRepeats(t *testing.T) {
	fault, err := NewFault(FaultParams{
		Target:     PhaseACurrent,
		Repeats:    2,
		StartDelay: 2,
		Duration:   1,
		Magnitude:  100,
	})
	assert.NoError(t, err)

	var total float64
	for range 20 {
		total += fault.stepDisturbance(1.0)
	}
	assert.InDelta(t, 200, total, 1e-9)
	assert.Equal(t, uint64(2), fault.GetCountRepeats())
}

func TestFaultInvalidParams(t *testing.T) {
	testCases := []struct {
		name   string
		params FaultParams
	}{
		{"zero duration", FaultParams{}},
		{"ramp beyond duration", FaultParams{Duration: 1, Ramp: 2}},
		{"negative ramp", FaultParams{Duration: 1, Ramp: -0.5}},
		{"negative start delay", FaultParams{Duration: 1, StartDelay: -1}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewFault(tc.params)
			assert.Error(t, err)
		})
	}
}
