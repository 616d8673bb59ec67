package emulator

import "fmt"

// EventKind is a built-in emulated event.
type EventKind uint8

// Emulated event types
const (
	SinglePhaseFault EventKind = iota
	ThreePhaseFault
	GroundFault
	OverVoltage
	UnderVoltage
	OverFrequency
	UnderFrequency
	NumEventKinds
)

var eventKindNames = [NumEventKinds]string{
	"single_phase_fault", "three_phase_fault", "ground_fault",
	"over_voltage", "under_voltage", "over_frequency", "under_frequency",
}

// MaxEmulatedFaultDurationSamples is the number of samples for emulating a fault
const MaxEmulatedFaultDurationSamples = 6000

// MaxEmulatedFrequencyDurationSamples is the number of samples for emulating frequency deviations
const MaxEmulatedFrequencyDurationSamples = 8000

// EmulatedFaultCurrentFactor is the fault current as a multiple of the load current
const EmulatedFaultCurrentFactor = 12

func (k EventKind) String() string {
	if k >= NumEventKinds {
		return fmt.Sprintf("EventKind(%d)", uint8(k))
	}
	return eventKindNames[k]
}

func (k *EventKind) UnmarshalText(text []byte) error {
	for i, name := range eventKindNames {
		if name == string(text) {
			*k = EventKind(i)
			return nil
		}
	}
	return fmt.Errorf("unknown emulated event: %q", text)
}

func (k *EventKind) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var name string
	if err := unmarshal(&name); err != nil {
		return err
	}
	return k.UnmarshalText([]byte(name))
}

// StartEvent initiates an emulated event. V and I must both be emulated.
func (e *Emulator) StartEvent(kind EventKind) {
	switch kind {
	case SinglePhaseFault:
		e.I.startFault(0, e.I.PosSeqMag*EmulatedFaultCurrentFactor)
		e.V.startFault(0, e.V.PosSeqMag*-0.2)
	case ThreePhaseFault:
		e.I.startFault(e.I.PosSeqMag*EmulatedFaultCurrentFactor, 0)
		e.V.startFault(e.V.PosSeqMag*-0.2, 0)
	case GroundFault:
		e.faultGroundMag = e.I.PosSeqMag
		e.faultGroundRemaining = MaxEmulatedFaultDurationSamples
	case OverVoltage:
		e.V.startFault(e.V.PosSeqMag*0.2, 0)
	case UnderVoltage:
		e.V.startFault(e.V.PosSeqMag*-0.2, 0)
	case OverFrequency:
		e.Fdeviation = e.Fnom * 0.06
		e.fDeviationRemainingSamples = MaxEmulatedFrequencyDurationSamples
	case UnderFrequency:
		e.Fdeviation = e.Fnom * -0.06
		e.fDeviationRemainingSamples = MaxEmulatedFrequencyDurationSamples
	}
}

func (t *ThreePhaseEmulation) startFault(posSeqMag, phaseAMag float64) {
	t.FaultPosSeqMag = posSeqMag
	t.FaultPhaseAMag = phaseAMag
	t.FaultRemainingSamples = MaxEmulatedFaultDurationSamples
}
