// Package disturbance describes the deviations injected into emulated
// waveforms: faults, overloads, voltage and frequency excursions, each acting
// on one quantity of the power system.
package disturbance

import (
	"fmt"

	"github.com/google/uuid"
)

// Target names the emulated quantity a disturbance acts on. Current and
// voltage magnitudes are RMS, voltages line-line.
type Target uint8

const (
	Current       Target = iota // amps added to every phase
	PhaseACurrent               // amps added to phase A only
	GroundCurrent               // amps leaving phase A and returning through earth
	Voltage                     // volts added to every phase
	PhaseAVoltage               // volts added to phase A only
	Frequency                   // hertz added to the nominal frequency
	CurrentAngle                // degrees of additional current lag
	NumTargets
)

var targetNames = [NumTargets]string{
	"current", "current_a", "ground", "voltage", "voltage_a", "frequency", "current_angle",
}

func (t Target) String() string {
	if t >= NumTargets {
		return fmt.Sprintf("Target(%d)", uint8(t))
	}
	return targetNames[t]
}

func (t Target) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *Target) UnmarshalText(text []byte) error {
	for i, name := range targetNames {
		if name == string(text) {
			*t = Target(i)
			return nil
		}
	}
	return fmt.Errorf("unknown disturbance target: %q", text)
}

// Disturbance is the interface for all disturbance types.
type Disturbance interface {
	TypeAsString() string
	GetTarget() Target
	GetIsActive() bool
	GetStartDelay() float64
	GetDuration() float64

	// stepDisturbance advances the internal time state and returns the
	// change in the target this timestep.
	stepDisturbance(Ts float64) float64
}

// Deltas holds the summed effect of a container's disturbances on each target.
type Deltas [NumTargets]float64

// Container is a collection of disturbances keyed by ID.
type Container map[string]Disturbance

// StepAll steps every disturbance and returns their summed effect per target.
func (c Container) StepAll(Ts float64) Deltas {
	var d Deltas
	for key := range c {
		dist := c[key]
		d[dist.GetTarget()] += dist.stepDisturbance(Ts)
	}
	return d
}

// Add stores a disturbance under a new UUID and returns the UUID.
func (c Container) Add(d Disturbance) uuid.UUID {
	id := uuid.New()
	c[id.String()] = d
	return id
}

// Returns whether any disturbance is active this timestep.
func (c Container) AnyActive() bool {
	for _, d := range c {
		if d.GetIsActive() {
			return true
		}
	}
	return false
}
