package trip

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/synaptecltd/tripunit/events"
)

// Cause names the protection function responsible for a trip. The same bit
// positions are used for the pickup flags.
type Cause uint8

const (
	LongDelay Cause = iota
	ShortDelay
	Instantaneous
	GroundFault
	PhaseLoss
	CurrentUnbalance
	UnderVoltage
	OverVoltage
	VoltageUnbalance
	UnderFrequency
	OverFrequency
	RealPower
	ReactivePower
	ApparentPower
	PowerFactor
	ReversePower
	ReverseReactivePower
	PhaseRotation
	Override
	numCauses
)

var causes = [numCauses]struct {
	name string
	code events.Code
}{
	LongDelay:            {"long-delay", events.LongDelayTrip},
	ShortDelay:           {"short-delay", events.ShortDelayTrip},
	Instantaneous:        {"instantaneous", events.InstantaneousTrip},
	GroundFault:          {"ground-fault", events.GroundFaultTrip},
	PhaseLoss:            {"phase-loss", events.PhaseLossTrip},
	CurrentUnbalance:     {"current-unbalance", events.CurrentUnbalanceTrip},
	UnderVoltage:         {"under-voltage", events.UnderVoltageTrip},
	OverVoltage:          {"over-voltage", events.OverVoltageTrip},
	VoltageUnbalance:     {"voltage-unbalance", events.VoltageUnbalanceTrip},
	UnderFrequency:       {"under-frequency", events.UnderFrequencyTrip},
	OverFrequency:        {"over-frequency", events.OverFrequencyTrip},
	RealPower:            {"real-power", events.RealPowerTrip},
	ReactivePower:        {"reactive-power", events.ReactivePowerTrip},
	ApparentPower:        {"apparent-power", events.ApparentPowerTrip},
	PowerFactor:          {"power-factor", events.PowerFactorTrip},
	ReversePower:         {"reverse-power", events.ReversePowerTrip},
	ReverseReactivePower: {"reverse-reactive-power", events.ReverseReactivePowerTrip},
	PhaseRotation:        {"phase-rotation", events.PhaseRotationTrip},
	Override:             {"override", events.OverrideTrip},
}

func (c Cause) String() string {
	if c >= numCauses {
		return fmt.Sprintf("Cause(%d)", uint8(c))
	}
	return causes[c].name
}

// Returns the event code logged when c trips the breaker.
func (c Cause) Code() events.Code {
	if c >= numCauses {
		return 0
	}
	return causes[c].code
}

// Causes is a set of Cause bits.
type Causes uint32

func (s Causes) Has(c Cause) bool {
	return s&(1<<c) != 0
}

func (s *Causes) set(c Cause) {
	*s |= 1 << c
}

func (s *Causes) clear(c Cause) {
	*s &^= 1 << c
}

func (s Causes) String() string {
	var names []string
	for c := Cause(0); c < numCauses; c++ {
		if s.Has(c) {
			names = append(names, c.String())
		}
	}
	return strings.Join(names, "|")
}

// Alarm names an alarm flag.
type Alarm uint8

const (
	LongDelayPickupAlarm Alarm = iota
	GroundFaultAlarm
	GroundFaultPreAlarm
	HighLoad1Alarm
	HighLoad2Alarm
	ThermalMemoryAlarm
	OverVoltageAlarm
	UnderVoltageAlarm
	VoltageUnbalanceAlarm
	CurrentUnbalanceAlarm
	OverFrequencyAlarm
	UnderFrequencyAlarm
	PhaseLossAlarm
	PhaseRotationAlarm
	RealPowerAlarm
	ReactivePowerAlarm
	ApparentPowerAlarm
	PowerFactorAlarm
	ReversePowerAlarm
	ReverseReactivePowerAlarm
	numAlarms
)

var alarmNames = [numAlarms]string{
	"long-delay-pickup", "ground-fault", "ground-fault-pre", "high-load-1", "high-load-2",
	"thermal-memory", "over-voltage", "under-voltage", "voltage-unbalance", "current-unbalance",
	"over-frequency", "under-frequency", "phase-loss", "phase-rotation", "real-power",
	"reactive-power", "apparent-power", "power-factor", "reverse-power", "reverse-reactive-power",
}

func (a Alarm) String() string {
	if a >= numAlarms {
		return fmt.Sprintf("Alarm(%d)", uint8(a))
	}
	return alarmNames[a]
}

// Alarms is a set of Alarm bits.
type Alarms uint32

func (s Alarms) Has(a Alarm) bool {
	return s&(1<<a) != 0
}

func (s Alarms) String() string {
	var names []string
	for a := Alarm(0); a < numAlarms; a++ {
		if s.Has(a) {
			names = append(names, a.String())
		}
	}
	return strings.Join(names, "|")
}

// Flags is the trip/alarm flag set. Causes and Alarms latch until Reset;
// Pickups follow the live state of each function.
type Flags struct {
	Causes      Causes
	Alarms      Alarms
	Pickups     Causes
	TripRequest bool
	Bell        bool
}

// Reset clears the latched causes and alarms. It refuses while a trip
// request is pending so the cause of an in-flight trip cannot be lost.
func (f *Flags) Reset() bool {
	if f.TripRequest {
		return false
	}
	f.Causes = 0
	f.Alarms = 0
	f.Bell = false
	return true
}

// SetTrip latches cause c and raises the trip request and bell.
func (f *Flags) SetTrip(c Cause) {
	f.Causes.set(c)
	f.TripRequest = true
	f.Bell = true
}

// AcknowledgeTrip drops the trip request once the breaker has opened.
func (f *Flags) AcknowledgeTrip() {
	f.TripRequest = false
}

func (f *Flags) SetAlarm(a Alarm) {
	f.Alarms |= 1 << a
}

func (f *Flags) ClearAlarm(a Alarm) {
	f.Alarms &^= 1 << a
}

// SetPickup records whether the function behind c is picked up.
func (f *Flags) SetPickup(c Cause, on bool) {
	if on {
		f.Pickups.set(c)
		return
	}
	f.Pickups.clear(c)
}

// AlarmOptions selects the captures an alarm requests when it operates.
type AlarmOptions struct {
	Waveform bool // arm an alarm waveform capture
	Extended bool // request an extended capture
}

// Dispatcher performs the side effects of protection decisions. Every
// protection function reports through it.
type Dispatcher interface {
	// Trip latches c, requests the trip and arms the trip waveform capture.
	// It returns false when protection is held off and nothing was done.
	Trip(c Cause, value float64) bool

	// Alarm raises a, logs code and returns the logged event's ID.
	Alarm(a Alarm, code events.Code, value float64, opts AlarmOptions) uuid.UUID

	// ClearAlarm drops a.
	ClearAlarm(a Alarm)

	// Event logs a pickup or exit event and returns its ID.
	Event(code events.Code, value float64) uuid.UUID

	// Pickup records the pickup state of the function behind c.
	Pickup(c Cause, on bool)
}
