// Package emulator generates the sensor waveforms of a low-voltage feeder:
// three phase voltages, three phase currents, the neutral current and the
// current returning through earth. Disturbances from the disturbance package
// and built-in events perturb the waveforms so that protection can be
// exercised without a test set.
package emulator

import (
	"math"
	"math/rand/v2"

	"github.com/synaptecltd/tripunit/disturbance"
	"github.com/synaptecltd/tripunit/metering"
)

// Emulator encapsulates the waveform emulation of three-phase voltage and
// current at 80 samples per nominal cycle.
type Emulator struct {
	// common inputs
	SamplingRate int
	Ts           float64
	Fnom         float64
	Rotation     metering.Rotation

	V *ThreePhaseEmulation // line-neutral volts
	I *ThreePhaseEmulation // amps

	Disturbances disturbance.Container

	// event emulation
	Fdeviation                 float64
	fDeviationRemainingSamples int
	faultGroundMag             float64
	faultGroundRemaining       int

	// common state
	SmpCnt int
	r      *rand.Rand

	// outputs
	N      float64 // neutral current
	Ground float64 // current returning through earth, seen by a source-ground sensor
}

// NewEmulator returns an emulator for the nominal frequency. The seed fixes
// the noise sequence so that runs are repeatable.
func NewEmulator(frequency float64, seed uint64) *Emulator {
	samplingRate := int(frequency * metering.SamplesPerCycle)
	return &Emulator{
		SamplingRate: samplingRate,
		Fnom:         frequency,
		Ts:           1 / float64(samplingRate),
		r:            rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
	}
}

// Step performs one iteration of the waveform generation.
func (e *Emulator) Step() {
	d := e.Disturbances.StepAll(e.Ts)

	f := e.Fnom + e.Fdeviation + d[disturbance.Frequency]
	if e.fDeviationRemainingSamples > 0 {
		e.fDeviationRemainingSamples--
		if e.fDeviationRemainingSamples == 0 {
			e.Fdeviation = 0.0
		}
	}

	if e.V != nil {
		// disturbances are line-line RMS, the emulation is line-neutral peak
		toPeak := math.Sqrt2 / math.Sqrt(3)
		e.V.stepThreePhase(e.r, f, e.Ts, e.Rotation, stepDeltas{
			posSeqMag: d[disturbance.Voltage] * toPeak,
			phaseAMag: d[disturbance.PhaseAVoltage] * toPeak,
		})
	}
	if e.I != nil {
		e.I.stepThreePhase(e.r, f, e.Ts, e.Rotation, stepDeltas{
			posSeqMag: d[disturbance.Current] * math.Sqrt2,
			phaseAMag: d[disturbance.PhaseACurrent] * math.Sqrt2,
			angle:     -d[disturbance.CurrentAngle] * math.Pi / 180,
		})

		// the neutral carries the imbalance of the phases, earth carries the rest
		e.N = -(e.I.A + e.I.B + e.I.C)
		groundMag := d[disturbance.GroundCurrent] * math.Sqrt2
		if e.faultGroundRemaining > 0 {
			groundMag += e.faultGroundMag
			e.faultGroundRemaining--
		}
		e.Ground = math.Sin(e.I.phase()) * groundMag
		e.I.A += e.Ground
	}

	e.SmpCnt++
	if e.SmpCnt >= e.SamplingRate {
		e.SmpCnt = 0
	}
}

// Raw returns the sensor values of the last step.
func (e *Emulator) Raw() metering.Raw {
	var raw metering.Raw
	if e.I != nil {
		raw.Current[metering.A] = e.I.A
		raw.Current[metering.B] = e.I.B
		raw.Current[metering.C] = e.I.C
		raw.Current[metering.N] = e.N
		raw.Current[metering.GroundSource] = e.Ground
	}
	if e.V != nil {
		raw.Voltage = [3]float64{e.V.A, e.V.B, e.V.C}
	}
	return raw
}
