// Package mathfuncs holds the envelope shapes that drive disturbance
// magnitudes over time.
package mathfuncs

import (
	"errors"
	"math"
	"sort"

	"github.com/stevenblair/sigourney/fast"
)

// Shape is an envelope y=f(t,A,T). It takes an amplitude, A, and a period or
// time constant, T, and returns the value at elapsed time t.
type Shape func(t, A, T float64) float64

var shapes = map[string]Shape{
	"linear":            linearRamp,
	"sine":              sineWave,
	"cosine":            cosineWave,
	"exponential":       exponentialRise,
	"exponential_decay": exponentialDecay,
	"parabolic":         parabolicRamp,
	"step":              stepFunction,
	"square":            squareWave,
	"sawtooth":          sawtoothWave,
	"impulse":           impulseTrain,
	"flat":              flat,
}

// Returns the names of every shape, sorted.
func ShapeNames() []string {
	names := make([]string, 0, len(shapes))
	for name := range shapes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Returns the named shape.
func ShapeFromName(name string) (Shape, error) {
	s, ok := shapes[name]
	if !ok {
		return nil, errors.New("shape not found: " + name)
	}
	return s, nil
}

// Returns y=(A/T)*t.
func linearRamp(t, A, T float64) float64 {
	return A / T * t
}

// Returns y=A*sin(2*pi*t/T).
func sineWave(t, A, T float64) float64 {
	return A * fast.Sin(2*math.Pi*t/T)
}

// Returns y=A*cos(2*pi*t/T).
func cosineWave(t, A, T float64) float64 {
	return A * fast.Cos(2*math.Pi*t/T)
}

// Returns y=A*(1-exp(-t/T)), a rise towards A with time constant T.
func exponentialRise(t, A, T float64) float64 {
	return A * (1 - math.Exp(-t/T))
}

// Returns y=A*exp(-t/T). Used for the decaying DC offset of an asymmetrical fault.
func exponentialDecay(t, A, T float64) float64 {
	return A * math.Exp(-t/T)
}

func parabolicRamp(t, A, T float64) float64 {
	return A * (t / T) * (t / T)
}

// Returns 0 for the first half of every period T and A for the second.
func stepFunction(t, A, T float64) float64 {
	if math.Mod(t, T) < T/2 {
		return 0
	}
	return A
}

func squareWave(t, A, T float64) float64 {
	if fast.Sin(2*math.Pi*t/T) >= 0 {
		return A
	}
	return -A
}

// Returns a sawtooth rising from -A to A over each period, crossing zero at
// whole periods.
func sawtoothWave(t, A, T float64) float64 {
	x := t/T + 0.5
	return A * (2*(x-math.Floor(x)) - 1)
}

// Returns A for one microsecond at the start of every period T.
func impulseTrain(t, A, T float64) float64 {
	if math.Mod(t, T) < 1e-6 {
		return A
	}
	return 0
}

func flat(_, A, _ float64) float64 {
	return A
}
