package mathfuncs_test

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/synaptecltd/tripunit/mathfuncs"
)

func TestShapes(t *testing.T) {
	M := 1.0 + rand.Float64()*99.0 // amplitude (between 1 and 100)
	x := 1.0 + rand.Float64()*99.0 // time (between 1 and 100)

	testCases := []struct {
		name     string  // registered shape name
		t        float64 // elapsed time in seconds
		A        float64 // amplitude
		T        float64 // period or time constant in seconds
		expected float64
		delta    float64
		isError  bool
	}{
		{name: "not_a_shape", isError: true},
		{name: "linear", t: x, A: M, T: M, expected: x, delta: 1e-9},
		{name: "sine", t: x, A: M, T: 4 * x, expected: M, delta: 1e-2 * M},
		{name: "cosine", t: x, A: M, T: 4 * x, expected: 0, delta: 1e-2 * M},
		{name: "exponential", t: x, A: M, T: x, expected: M * (1 - math.Exp(-1)), delta: 1e-9},
		{name: "exponential_decay", t: x, A: M, T: x, expected: M * math.Exp(-1), delta: 1e-9},
		{name: "parabolic", t: x, A: M, T: 2 * x, expected: M / 4, delta: 1e-9},
		{name: "step", t: 1.5 * x, A: M, T: 2 * x, expected: M, delta: 1e-9},
		{name: "step", t: 0, A: M, T: x, expected: 0, delta: 1e-9},
		{name: "square", t: 0.25 * x, A: M, T: x, expected: M, delta: 1e-9},
		{name: "square", t: 1.5 * x, A: M, T: 2 * x, expected: -M, delta: 1e-9},
		{name: "sawtooth", t: 3 * x, A: M, T: x, expected: 0, delta: 1e-6},
		{name: "sawtooth", t: x, A: M, T: 4 * x, expected: M / 2, delta: 1e-6},
		{name: "impulse", t: x / 2, A: M, T: x, expected: 0, delta: 1e-9},
		{name: "impulse", t: 0, A: M, T: x, expected: M, delta: 1e-9},
		{name: "flat", t: x, A: M, T: 0, expected: M, delta: 1e-9},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			shape, err := mathfuncs.ShapeFromName(tc.name)
			if tc.isError {
				assert.Error(t, err)
				return
			}

			assert.NoError(t, err)
			assert.InDelta(t, tc.expected, shape(tc.t, tc.A, tc.T), tc.delta)
		})
	}
}

func TestShapeNamesSorted(t *testing.T) {
	names := mathfuncs.ShapeNames()
	assert.Contains(t, names, "linear")
	assert.Contains(t, names, "exponential_decay")
	assert.IsIncreasing(t, names)
}
