package events

import "fmt"

// Code is the event-log code of a protection event.
type Code uint16

// Pickup (entry) codes.
const (
	LongDelayPickup            Code = 63
	ShortDelayPickup           Code = 65
	UnderVoltagePickup         Code = 83
	OverVoltagePickup          Code = 84
	VoltageUnbalancePickup     Code = 85
	CurrentUnbalancePickup     Code = 86
	ReversePowerPickup         Code = 87
	ReverseReactivePowerPickup Code = 88
	PhaseLossPickup            Code = 89
	OverFrequencyPickup        Code = 90
	UnderFrequencyPickup       Code = 91
	RealPowerPickup            Code = 92
	ReactivePowerPickup        Code = 93
	ApparentPowerPickup        Code = 94
	PowerFactorPickup          Code = 95
	GroundFaultPickup          Code = 96
	PhaseRotationPickup        Code = 97
)

// Trip codes.
const (
	LongDelayTrip            Code = 98
	ShortDelayTrip           Code = 99
	InstantaneousTrip        Code = 100
	OverrideTrip             Code = 101
	OverVoltageTrip          Code = 108
	UnderVoltageTrip         Code = 109
	VoltageUnbalanceTrip     Code = 110
	CurrentUnbalanceTrip     Code = 111
	ReversePowerTrip         Code = 112
	ReverseReactivePowerTrip Code = 113
	PhaseRotationTrip        Code = 114
	PhaseLossTrip            Code = 115
	OverFrequencyTrip        Code = 116
	UnderFrequencyTrip       Code = 117
	RealPowerTrip            Code = 120
	ReactivePowerTrip        Code = 121
	ApparentPowerTrip        Code = 122
	PowerFactorTrip          Code = 123
	GroundFaultTrip          Code = 127
)

// Alarm codes.
const (
	GroundFaultPreAlarm        Code = 131
	GroundFaultAlarm           Code = 132
	OverVoltageAlarm           Code = 141
	UnderVoltageAlarm          Code = 142
	VoltageUnbalanceAlarm      Code = 143
	CurrentUnbalanceAlarm      Code = 144
	ReversePowerAlarm          Code = 145
	ReverseReactivePowerAlarm  Code = 146
	PhaseRotationAlarm         Code = 147
	PhaseLossAlarm             Code = 148
	OverFrequencyAlarm         Code = 149
	UnderFrequencyAlarm        Code = 150
	RealPowerAlarm             Code = 151
	ReactivePowerAlarm         Code = 152
	ApparentPowerAlarm         Code = 153
	PowerFactorAlarm           Code = 154
	HighLoad1Alarm             Code = 155
	HighLoad2Alarm             Code = 156
	GlobalCaptureEntry         Code = 157
	ThermalMemoryAlarm         Code = 158
)

// Exit codes, logged when a picked-up function drops out without operating.
const (
	LongDelayExit            Code = 200
	OverVoltageExit          Code = 202
	UnderVoltageExit         Code = 203
	VoltageUnbalanceExit     Code = 204
	CurrentUnbalanceExit     Code = 205
	ReversePowerExit         Code = 206
	ReverseReactivePowerExit Code = 207
	PhaseLossExit            Code = 208
	OverFrequencyExit        Code = 209
	UnderFrequencyExit       Code = 210
	RealPowerExit            Code = 211
	ReactivePowerExit        Code = 212
	ApparentPowerExit        Code = 213
	PowerFactorExit          Code = 214
	HighLoad1Exit            Code = 215
	HighLoad2Exit            Code = 216
	GroundFaultExit          Code = 217
	GlobalCaptureExit        Code = 218
	ShortDelayExit           Code = 219
	PhaseRotationExit        Code = 220
	ThermalMemoryExit        Code = 221
	GroundFaultPreAlarmExit  Code = 222
)

var codeNames = map[Code]string{
	LongDelayPickup:            "long-delay pickup",
	ShortDelayPickup:           "short-delay pickup",
	UnderVoltagePickup:         "under-voltage pickup",
	OverVoltagePickup:          "over-voltage pickup",
	VoltageUnbalancePickup:     "voltage-unbalance pickup",
	CurrentUnbalancePickup:     "current-unbalance pickup",
	ReversePowerPickup:         "reverse-power pickup",
	ReverseReactivePowerPickup: "reverse-reactive-power pickup",
	PhaseLossPickup:            "phase-loss pickup",
	OverFrequencyPickup:        "over-frequency pickup",
	UnderFrequencyPickup:       "under-frequency pickup",
	RealPowerPickup:            "real-power pickup",
	ReactivePowerPickup:        "reactive-power pickup",
	ApparentPowerPickup:        "apparent-power pickup",
	PowerFactorPickup:          "power-factor pickup",
	GroundFaultPickup:          "ground-fault pickup",
	PhaseRotationPickup:        "phase-rotation pickup",

	LongDelayTrip:            "long-delay trip",
	ShortDelayTrip:           "short-delay trip",
	InstantaneousTrip:        "instantaneous trip",
	OverrideTrip:             "override trip",
	OverVoltageTrip:          "over-voltage trip",
	UnderVoltageTrip:         "under-voltage trip",
	VoltageUnbalanceTrip:     "voltage-unbalance trip",
	CurrentUnbalanceTrip:     "current-unbalance trip",
	ReversePowerTrip:         "reverse-power trip",
	ReverseReactivePowerTrip: "reverse-reactive-power trip",
	PhaseRotationTrip:        "phase-rotation trip",
	PhaseLossTrip:            "phase-loss trip",
	OverFrequencyTrip:        "over-frequency trip",
	UnderFrequencyTrip:       "under-frequency trip",
	RealPowerTrip:            "real-power trip",
	ReactivePowerTrip:        "reactive-power trip",
	ApparentPowerTrip:        "apparent-power trip",
	PowerFactorTrip:          "power-factor trip",
	GroundFaultTrip:          "ground-fault trip",

	GroundFaultPreAlarm:       "ground-fault pre-alarm",
	GroundFaultAlarm:          "ground-fault alarm",
	OverVoltageAlarm:          "over-voltage alarm",
	UnderVoltageAlarm:         "under-voltage alarm",
	VoltageUnbalanceAlarm:     "voltage-unbalance alarm",
	CurrentUnbalanceAlarm:     "current-unbalance alarm",
	ReversePowerAlarm:         "reverse-power alarm",
	ReverseReactivePowerAlarm: "reverse-reactive-power alarm",
	PhaseRotationAlarm:        "phase-rotation alarm",
	PhaseLossAlarm:            "phase-loss alarm",
	OverFrequencyAlarm:        "over-frequency alarm",
	UnderFrequencyAlarm:       "under-frequency alarm",
	RealPowerAlarm:            "real-power alarm",
	ReactivePowerAlarm:        "reactive-power alarm",
	ApparentPowerAlarm:        "apparent-power alarm",
	PowerFactorAlarm:          "power-factor alarm",
	HighLoad1Alarm:            "high-load 1 alarm",
	HighLoad2Alarm:            "high-load 2 alarm",
	GlobalCaptureEntry:        "global capture",
	ThermalMemoryAlarm:        "thermal-memory alarm",

	LongDelayExit:            "long-delay exit",
	OverVoltageExit:          "over-voltage exit",
	UnderVoltageExit:         "under-voltage exit",
	VoltageUnbalanceExit:     "voltage-unbalance exit",
	CurrentUnbalanceExit:     "current-unbalance exit",
	ReversePowerExit:         "reverse-power exit",
	ReverseReactivePowerExit: "reverse-reactive-power exit",
	PhaseLossExit:            "phase-loss exit",
	OverFrequencyExit:        "over-frequency exit",
	UnderFrequencyExit:       "under-frequency exit",
	RealPowerExit:            "real-power exit",
	ReactivePowerExit:        "reactive-power exit",
	ApparentPowerExit:        "apparent-power exit",
	PowerFactorExit:          "power-factor exit",
	HighLoad1Exit:            "high-load 1 exit",
	HighLoad2Exit:            "high-load 2 exit",
	GroundFaultExit:          "ground-fault exit",
	GlobalCaptureExit:        "global capture exit",
	ShortDelayExit:           "short-delay exit",
	PhaseRotationExit:        "phase-rotation exit",
	ThermalMemoryExit:        "thermal-memory exit",
	GroundFaultPreAlarmExit:  "ground-fault pre-alarm exit",
}

func (c Code) String() string {
	if name, ok := codeNames[c]; ok {
		return name
	}
	return fmt.Sprintf("Code(%d)", uint16(c))
}

// IsTrip reports whether c is a trip code.
func (c Code) IsTrip() bool {
	return c >= LongDelayTrip && c <= GroundFaultTrip
}

// IsExit reports whether c is an exit code.
func (c Code) IsExit() bool {
	return c >= LongDelayExit
}
