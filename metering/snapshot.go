package metering

import (
	"fmt"
	"strings"
)

const (
	SamplesPerCycle     = 80
	SamplesPerHalfCycle = SamplesPerCycle / 2
)

// Channel indexes the current channels of a snapshot.
type Channel int

const (
	A Channel = iota
	B
	C
	N
	GroundResidual // A + B + C + N
	GroundSource   // external source-ground sensor
	NumChannels
)

// Phases are the protected phase channels.
var Phases = [...]Channel{A, B, C}

func (c Channel) String() string {
	switch c {
	case A:
		return "A"
	case B:
		return "B"
	case C:
		return "C"
	case N:
		return "N"
	case GroundResidual:
		return "Gres"
	case GroundSource:
		return "Gsrc"
	}
	return fmt.Sprintf("Channel(%d)", int(c))
}

// Rotation is the phase sequence of the voltages.
type Rotation uint8

const (
	ABC Rotation = iota
	ACB
)

func (r Rotation) String() string {
	if r == ACB {
		return "ACB"
	}
	return "ABC"
}

func (r *Rotation) UnmarshalText(text []byte) error {
	switch strings.ToUpper(strings.TrimSpace(string(text))) {
	case "ABC":
		*r = ABC
	case "ACB":
		*r = ACB
	default:
		return fmt.Errorf("unknown rotation: %q", text)
	}
	return nil
}

func (r *Rotation) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var name string
	if err := unmarshal(&name); err != nil {
		return err
	}
	return r.UnmarshalText([]byte(name))
}

func (r Rotation) MarshalYAML() (interface{}, error) {
	return r.String(), nil
}

// Sample is the per-sample measurement snapshot consumed by the
// instantaneous, short-delay and ground-fault functions. Sums of squares are
// over the most recent half cycle and one cycle of samples.
type Sample struct {
	Counter        uint32 // free-running sample counter
	HalfCycleSOS   [NumChannels]float64
	OneCycleSOS    [NumChannels]float64
	StartupSamples int  // samples lost before the first valid half cycle on a cold start
	ZoneInterlock  bool // upstream zone-interlock restraint input asserted
}

// Returns the largest half-cycle sum of squares of the phase channels.
func (s *Sample) HalfCycleMax() float64 {
	return maxOf(&s.HalfCycleSOS)
}

// Returns the largest one-cycle sum of squares of the phase channels.
func (s *Sample) OneCycleMax() float64 {
	return maxOf(&s.OneCycleSOS)
}

// Cycle is the per-cycle measurement snapshot.
type Cycle struct {
	Counter     uint32
	OneCycleSOS [NumChannels]float64
	Current     [NumChannels]float64 // RMS

	VoltageLL        [3]float64 // RMS, AB BC CA
	VoltageLN        [3]float64 // RMS
	VoltageUnbalance float64    // percent, line-line
	CurrentUnbalance float64    // percent

	RealPower     [3]float64 // W per phase, positive in the forward direction of the sensors
	ReactivePower [3]float64 // var per phase
	ApparentPower [3]float64 // VA per phase
	PowerFactor   [3]float64 // signed with real power

	Frequency     float64 // Hz, NaN when it cannot be measured
	Rotation      Rotation
	BreakerClosed bool
}

// Returns the largest one-cycle sum of squares of the phase channels.
func (c *Cycle) OneCycleMax() float64 {
	return maxOf(&c.OneCycleSOS)
}

// Returns the largest RMS phase current.
func (c *Cycle) CurrentMax() float64 {
	return max(c.Current[A], c.Current[B], c.Current[C])
}

// Returns the largest line-line voltage.
func (c *Cycle) VoltageMax() float64 {
	return max(c.VoltageLL[0], c.VoltageLL[1], c.VoltageLL[2])
}

// Returns the smallest line-line voltage.
func (c *Cycle) VoltageMin() float64 {
	return min(c.VoltageLL[0], c.VoltageLL[1], c.VoltageLL[2])
}

func maxOf(sos *[NumChannels]float64) float64 {
	return max(sos[A], sos[B], sos[C])
}
