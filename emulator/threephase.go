package emulator

import (
	"math"
	"math/rand/v2"

	"github.com/synaptecltd/tripunit/metering"
)

const TwoPiOverThree = 2 * math.Pi / 3

// ThreePhaseEmulation synthesises one set of three-phase waveforms from
// sequence components. Magnitudes are peak values.
type ThreePhaseEmulation struct {
	// inputs
	PosSeqMag       float64
	PhaseOffset     float64 // radians, negative for a lagging current
	NegSeqMag       float64 // pu, relative to PosSeqMag
	NegSeqAng       float64
	ZeroSeqMag      float64
	ZeroSeqAng      float64
	HarmonicNumbers []float64 `mapstructure:",omitempty,flow"`
	HarmonicMags    []float64 `mapstructure:",omitempty,flow"` // pu, relative to PosSeqMag
	HarmonicAngs    []float64 `mapstructure:",omitempty,flow"`
	NoiseMax        float64   // pu, standard deviation of the noise on each phase

	// event emulation
	FaultPhaseAMag        float64
	FaultPosSeqMag        float64
	FaultRemainingSamples int

	// internal state
	pAngle float64

	// outputs
	A, B, C float64
}

// stepDeltas are the disturbance contributions to one step, as peak values.
type stepDeltas struct {
	posSeqMag float64
	phaseAMag float64
	angle     float64 // radians added to PhaseOffset
}

func (e *ThreePhaseEmulation) stepThreePhase(r *rand.Rand, f, Ts float64, rotation metering.Rotation, d stepDeltas) {
	angle := f*2*math.Pi*Ts + e.pAngle
	angle = wrapAngle(angle)
	e.pAngle = angle

	PosSeqPhase := e.PhaseOffset + d.angle + e.pAngle

	// ACB swaps the phase positions of B and C
	bOffset, cOffset := -TwoPiOverThree, TwoPiOverThree
	if rotation == metering.ACB {
		bOffset, cOffset = cOffset, bOffset
	}

	posSeqMag := e.PosSeqMag + d.posSeqMag
	phaseAMag := d.phaseAMag
	if e.FaultRemainingSamples > 0 {
		posSeqMag += e.FaultPosSeqMag
		phaseAMag += e.FaultPhaseAMag
		e.FaultRemainingSamples--
	}

	// positive sequence
	a1 := math.Sin(PosSeqPhase) * (posSeqMag + phaseAMag)
	b1 := math.Sin(PosSeqPhase+bOffset) * posSeqMag
	c1 := math.Sin(PosSeqPhase+cOffset) * posSeqMag

	// negative sequence
	a2 := math.Sin(PosSeqPhase+e.NegSeqAng) * e.NegSeqMag * e.PosSeqMag
	b2 := math.Sin(PosSeqPhase+cOffset+e.NegSeqAng) * e.NegSeqMag * e.PosSeqMag
	c2 := math.Sin(PosSeqPhase+bOffset+e.NegSeqAng) * e.NegSeqMag * e.PosSeqMag

	// zero sequence
	abc0 := math.Sin(PosSeqPhase+e.ZeroSeqAng) * e.ZeroSeqMag

	// harmonics
	ah := 0.0
	bh := 0.0
	ch := 0.0
	// ensure consistent array sizes have been specified
	if len(e.HarmonicNumbers) == len(e.HarmonicMags) && len(e.HarmonicNumbers) == len(e.HarmonicAngs) {
		for i, n := range e.HarmonicNumbers {
			mag := e.HarmonicMags[i] * e.PosSeqMag
			ang := e.HarmonicAngs[i]

			ah += math.Sin(n*PosSeqPhase+ang) * mag
			bh += math.Sin(n*(PosSeqPhase+bOffset)+ang) * mag
			ch += math.Sin(n*(PosSeqPhase+cOffset)+ang) * mag
		}
	}

	// add noise, ensure worst case where noise is uncorrelated across phases
	var ra, rb, rc float64
	if e.NoiseMax > 0 {
		ra = r.NormFloat64() * e.NoiseMax * e.PosSeqMag
		rb = r.NormFloat64() * e.NoiseMax * e.PosSeqMag
		rc = r.NormFloat64() * e.NoiseMax * e.PosSeqMag
	}

	// combine the output for each phase
	e.A = a1 + a2 + abc0 + ah + ra
	e.B = b1 + b2 + abc0 + bh + rb
	e.C = c1 + c2 + abc0 + ch + rc
}

// Returns the positive-sequence phase angle of the last step.
func (e *ThreePhaseEmulation) phase() float64 {
	return e.pAngle + e.PhaseOffset
}

func wrapAngle(a float64) float64 {
	if a > math.Pi {
		return a - 2*math.Pi
	}
	return a
}
