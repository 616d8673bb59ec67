package metering

import (
	"errors"
	"math"
)

// Raw is one set of instantaneous samples taken at Fnom*SamplesPerCycle.
type Raw struct {
	Current [NumChannels]float64 // GroundResidual is ignored and recomputed
	Voltage [3]float64           // line-neutral
}

// Frontend turns raw samples into the per-sample and per-cycle snapshots the
// protection engine consumes. It keeps running sums of squares over sliding
// half-cycle and one-cycle windows and accumulates the power, voltage and
// frequency measurements once per cycle.
type Frontend struct {
	// inputs
	Fnom           float64 // nominal frequency
	PowerUpSamples int     // reported once as Sample.StartupSamples
	MinVoltage     float64 // line-neutral RMS below which frequency is not measured
	BreakerClosed  bool
	ZoneInterlock  bool

	// internal state
	squares  [NumChannels][SamplesPerCycle]float64
	half     [NumChannels]float64
	one      [NumChannels]float64
	voltages [3][SamplesPerCycle]float64
	idx      int
	filled   int
	total    int
	counter  uint32
	reported bool

	vSq, vllSq, p, q [3]float64
	cycleIdx         int

	prevV                      [3]float64
	crossA, prevCrossA, crossB float64
	crossingsA, crossingsB     int

	// outputs
	Sample Sample
	Cycle  Cycle
}

// NewFrontend returns a front end sampling at 80 samples per nominal cycle.
func NewFrontend(fnom float64) (*Frontend, error) {
	if fnom != 50 && fnom != 60 {
		return nil, errors.New("nominal frequency must be 50 or 60 Hz")
	}
	return &Frontend{
		Fnom:       fnom,
		MinVoltage: 10,
		Cycle:      Cycle{Frequency: math.NaN()},
	}, nil
}

// Push ingests one set of samples. sampleValid reports that Sample holds a
// full half-cycle window; cycleDone reports that Cycle was refreshed.
func (f *Frontend) Push(raw Raw) (sampleValid, cycleDone bool) {
	raw.Current[GroundResidual] = raw.Current[A] + raw.Current[B] + raw.Current[C] + raw.Current[N]

	for ch := range raw.Current {
		sq := raw.Current[ch] * raw.Current[ch]
		if f.filled >= SamplesPerHalfCycle {
			f.half[ch] = math.Max(f.half[ch]-f.squares[ch][(f.idx+SamplesPerHalfCycle)%SamplesPerCycle], 0)
		}
		if f.filled >= SamplesPerCycle {
			f.one[ch] = math.Max(f.one[ch]-f.squares[ch][f.idx], 0)
		}
		f.squares[ch][f.idx] = sq
		f.half[ch] += sq
		f.one[ch] += sq
	}

	v := raw.Voltage
	for ph := 0; ph < 3; ph++ {
		delayed := 0.0
		if f.filled >= SamplesPerCycle/4 {
			delayed = f.voltages[ph][(f.idx+SamplesPerCycle-SamplesPerCycle/4)%SamplesPerCycle]
		}
		f.voltages[ph][f.idx] = v[ph]

		i := raw.Current[ph]
		f.vSq[ph] += v[ph] * v[ph]
		f.p[ph] += v[ph] * i
		f.q[ph] += delayed * i

		vll := v[ph] - v[(ph+1)%3]
		f.vllSq[ph] += vll * vll
	}
	f.trackCrossings(v)

	f.idx = (f.idx + 1) % SamplesPerCycle
	if f.filled < SamplesPerCycle {
		f.filled++
	}
	f.total++
	f.counter++
	f.cycleIdx++

	if f.filled >= SamplesPerHalfCycle {
		sampleValid = true
		f.Sample.Counter = f.counter
		f.Sample.HalfCycleSOS = f.half
		f.Sample.OneCycleSOS = f.one
		f.Sample.ZoneInterlock = f.ZoneInterlock
		f.Sample.StartupSamples = 0
		if !f.reported {
			f.Sample.StartupSamples = f.PowerUpSamples
			f.reported = true
		}
	}

	if f.cycleIdx == SamplesPerCycle {
		f.cycleIdx = 0
		if f.filled == SamplesPerCycle {
			f.finishCycle()
			cycleDone = true
		}
		f.vSq, f.vllSq, f.p, f.q = [3]float64{}, [3]float64{}, [3]float64{}, [3]float64{}
	}

	return sampleValid, cycleDone
}

// trackCrossings records the interpolated positions of rising zero crossings of Va and Vb.
func (f *Frontend) trackCrossings(v [3]float64) {
	pos := float64(f.total)
	if f.prevV[0] < 0 && v[0] >= 0 {
		f.prevCrossA = f.crossA
		f.crossA = pos - 1 + -f.prevV[0]/(v[0]-f.prevV[0])
		f.crossingsA++
	}
	if f.prevV[1] < 0 && v[1] >= 0 {
		f.crossB = pos - 1 + -f.prevV[1]/(v[1]-f.prevV[1])
		f.crossingsB++
	}
	f.prevV = v
}

func (f *Frontend) finishCycle() {
	c := &f.Cycle
	c.Counter = f.counter
	c.OneCycleSOS = f.one
	c.BreakerClosed = f.BreakerClosed
	for ch := range f.one {
		c.Current[ch] = math.Sqrt(f.one[ch] / SamplesPerCycle)
	}

	for ph := 0; ph < 3; ph++ {
		c.VoltageLN[ph] = math.Sqrt(f.vSq[ph] / SamplesPerCycle)
		c.VoltageLL[ph] = math.Sqrt(f.vllSq[ph] / SamplesPerCycle)
		c.RealPower[ph] = f.p[ph] / SamplesPerCycle
		c.ReactivePower[ph] = f.q[ph] / SamplesPerCycle
		c.ApparentPower[ph] = c.VoltageLN[ph] * c.Current[ph]
		c.PowerFactor[ph] = 1
		if c.ApparentPower[ph] > 0 {
			c.PowerFactor[ph] = c.RealPower[ph] / c.ApparentPower[ph]
		}
	}
	c.VoltageUnbalance = unbalance(c.VoltageLL)
	c.CurrentUnbalance = unbalance([3]float64{c.Current[A], c.Current[B], c.Current[C]})

	c.Frequency = math.NaN()
	period := f.crossA - f.prevCrossA
	fresh := float64(f.total)-f.crossA <= 2*SamplesPerCycle
	if c.VoltageLN[0] >= f.MinVoltage && f.crossingsA >= 2 && fresh && period > 0 {
		c.Frequency = f.Fnom * SamplesPerCycle / period

		if f.crossingsB >= 1 {
			frac := math.Mod(f.crossB-f.crossA, period)
			if frac < 0 {
				frac += period
			}
			c.Rotation = ABC
			if frac/period >= 0.5 {
				c.Rotation = ACB
			}
		}
	}
}

// unbalance returns the largest deviation from the mean as a percentage of the mean.
func unbalance(x [3]float64) float64 {
	avg := (x[0] + x[1] + x[2]) / 3
	if avg <= 0 {
		return 0
	}
	dev := 0.0
	for _, v := range x {
		dev = math.Max(dev, math.Abs(v-avg))
	}
	return dev / avg * 100
}
