package settings

import (
	"errors"
	"fmt"

	"github.com/synaptecltd/tripunit/curves"
	"github.com/synaptecltd/tripunit/metering"
)

// Settings is the configuration snapshot of the trip unit. Setpoints are
// fixed-point integers; the unit of each is given next to the field. Times
// are in hundredths of a second throughout.
type Settings struct {
	Breaker       Breaker       `yaml:"Breaker"`
	System        System        `yaml:"System"`
	LongDelay     LongDelay     `yaml:"LongDelay"`
	ShortDelay    ShortDelay    `yaml:"ShortDelay"`
	Instantaneous Instantaneous `yaml:"Instantaneous"`
	GroundFault   GroundFault   `yaml:"GroundFault"`
	HighLoad      HighLoad      `yaml:"HighLoad"`
	ThermalAlarm  uint16        `yaml:"ThermalAlarm"` // percent of the long-delay trip point, 0 = off

	OverVoltage          Relay `yaml:"OverVoltage"`          // tenths of a percent of system voltage
	UnderVoltage         Relay `yaml:"UnderVoltage"`         // tenths of a percent of system voltage
	VoltageUnbalance     Relay `yaml:"VoltageUnbalance"`     // percent
	CurrentUnbalance     Relay `yaml:"CurrentUnbalance"`     // percent
	OverFrequency        Relay `yaml:"OverFrequency"`        // tenths of a percent of nominal
	UnderFrequency       Relay `yaml:"UnderFrequency"`       // tenths of a percent of nominal
	PhaseLoss            Relay `yaml:"PhaseLoss"`            // pickup fixed
	PhaseRotation        Relay `yaml:"PhaseRotation"`        // pickup unused
	RealPower            Relay `yaml:"RealPower"`            // kW
	ReactivePower        Relay `yaml:"ReactivePower"`        // kvar
	ApparentPower        Relay `yaml:"ApparentPower"`        // kVA
	PowerFactor          Relay `yaml:"PowerFactor"`          // hundredths
	ReversePower         Relay `yaml:"ReversePower"`         // kW
	ReverseReactivePower Relay `yaml:"ReverseReactivePower"` // kvar
}

type Breaker struct {
	Rating    uint16 `yaml:"Rating"`    // In, amps
	Withstand uint16 `yaml:"Withstand"` // kA, 0 disables the override trip
}

type System struct {
	Frequency uint16            `yaml:"Frequency"` // Hz, 50 or 60
	Voltage   uint16            `yaml:"Voltage"`   // line-line volts
	Feed      Feed              `yaml:"Feed"`
	Rotation  metering.Rotation `yaml:"Rotation"`
}

type LongDelay struct {
	Curve         curves.Family `yaml:"Curve"`
	Pickup        uint16        `yaml:"Pickup"` // Ir in hundredths of In
	Time          uint16        `yaml:"Time"`   // trip time at 6 x Ir, or time dial x 100 for IEEE/IEC curves
	ThermalMemory bool          `yaml:"ThermalMemory"`
}

type ShortDelay struct {
	Pickup uint16       `yaml:"Pickup"` // tenths of Ir
	Time   uint16       `yaml:"Time"`
	Slope  curves.Slope `yaml:"Slope"`
	ZSI    bool         `yaml:"ZSI"`
}

type Instantaneous struct {
	Pickup uint16 `yaml:"Pickup"` // tenths of In, 0 = off
}

type GroundFault struct {
	Action        Action       `yaml:"Action"`
	Sensing       Sensing      `yaml:"Sensing"`
	Pickup        uint16       `yaml:"Pickup"` // hundredths of In
	Time          uint16       `yaml:"Time"`
	Slope         curves.Slope `yaml:"Slope"`
	ZSI           bool         `yaml:"ZSI"`
	ThermalMemory bool         `yaml:"ThermalMemory"`
	CapOverride   bool         `yaml:"CapOverride"` // lifts the 1200 A cap on residual sensing
	PreAlarm      uint16       `yaml:"PreAlarm"`    // percent of pickup, 0 = off
}

type HighLoad struct {
	Level1 uint16 `yaml:"Level1"` // percent of Ir, 0 = off
	Time1  uint16 `yaml:"Time1"`
	Level2 uint16 `yaml:"Level2"` // percent of Ir, 0 = off
	Time2  uint16 `yaml:"Time2"`
}

// Stage is one half of a trip/alarm pair.
type Stage struct {
	Enabled  bool   `yaml:"Enabled"`
	Pickup   uint16 `yaml:"Pickup"`
	Time     uint16 `yaml:"Time"`
	Waveform bool   `yaml:"Waveform"` // alarm only: arm a waveform capture
	Extended bool   `yaml:"Extended"` // alarm only: request an extended capture
	Global   bool   `yaml:"Global"`   // alarm only: request the global capture
}

// Relay is a trip/alarm pair of delay-timer stages.
type Relay struct {
	Trip   Stage `yaml:"Trip"`
	Alarm  Stage `yaml:"Alarm"`
	Phases uint8 `yaml:"Phases"` // over/under voltage: phases that must be beyond pickup, 1-3
}

// Function identifies a delay-timer protection function. The order is the
// order in which they are evaluated every cycle.
type Function int

const (
	OverVoltage Function = iota
	UnderVoltage
	VoltageUnbalance
	CurrentUnbalance
	OverFrequency
	UnderFrequency
	PhaseLoss
	PhaseRotation
	RealPower
	ReactivePower
	ApparentPower
	PowerFactor
	ReversePower
	ReverseReactivePower
	NumFunctions
)

var functionNames = [NumFunctions]string{
	"over-voltage", "under-voltage", "voltage-unbalance", "current-unbalance",
	"over-frequency", "under-frequency", "phase-loss", "phase-rotation",
	"real-power", "reactive-power", "apparent-power", "power-factor",
	"reverse-power", "reverse-reactive-power",
}

func (f Function) String() string {
	if f < 0 || f >= NumFunctions {
		return fmt.Sprintf("Function(%d)", int(f))
	}
	return functionNames[f]
}

// Returns the settings of delay-timer function f.
func (s *Settings) Relay(f Function) *Relay {
	switch f {
	case OverVoltage:
		return &s.OverVoltage
	case UnderVoltage:
		return &s.UnderVoltage
	case VoltageUnbalance:
		return &s.VoltageUnbalance
	case CurrentUnbalance:
		return &s.CurrentUnbalance
	case OverFrequency:
		return &s.OverFrequency
	case UnderFrequency:
		return &s.UnderFrequency
	case PhaseLoss:
		return &s.PhaseLoss
	case PhaseRotation:
		return &s.PhaseRotation
	case RealPower:
		return &s.RealPower
	case ReactivePower:
		return &s.ReactivePower
	case ApparentPower:
		return &s.ApparentPower
	case PowerFactor:
		return &s.PowerFactor
	case ReversePower:
		return &s.ReversePower
	case ReverseReactivePower:
		return &s.ReverseReactivePower
	}
	return nil
}

func relay(tripPickup, tripTime, alarmPickup, alarmTime uint16) Relay {
	return Relay{
		Trip:   Stage{Pickup: tripPickup, Time: tripTime},
		Alarm:  Stage{Pickup: alarmPickup, Time: alarmTime},
		Phases: 1,
	}
}

// Default returns the factory settings.
func Default() Settings {
	return Settings{
		Breaker: Breaker{Rating: 1000, Withstand: 50},
		System:  System{Frequency: 60, Voltage: 480, Feed: Forward, Rotation: metering.ABC},
		LongDelay: LongDelay{
			Curve:         curves.I2T,
			Pickup:        40,
			Time:          200,
			ThermalMemory: true,
		},
		ShortDelay:    ShortDelay{Pickup: 20, Time: 5, Slope: curves.Flat},
		Instantaneous: Instantaneous{Pickup: 40},
		GroundFault: GroundFault{
			Action:        Trip,
			Sensing:       Residual,
			Pickup:        20,
			Time:          30,
			Slope:         curves.Flat,
			ThermalMemory: true,
			PreAlarm:      50,
		},
		HighLoad: HighLoad{Time1: 3000, Time2: 3000},

		OverVoltage:          relay(1200, 6000, 1500, 6000),
		UnderVoltage:         relay(900, 6000, 500, 6000),
		VoltageUnbalance:     relay(50, 3000, 50, 3000),
		CurrentUnbalance:     relay(50, 1000, 30, 1000),
		OverFrequency:        relay(1050, 100, 1050, 6000),
		UnderFrequency:       relay(950, 100, 900, 6000),
		PhaseLoss:            relay(0, 100, 0, 100),
		PhaseRotation:        relay(0, 6000, 0, 6000),
		RealPower:            relay(1000, 3000, 1000, 3000),
		ReactivePower:        relay(1000, 3000, 1000, 3000),
		ApparentPower:        relay(1000, 3000, 1000, 3000),
		PowerFactor:          relay(95, 3000, 95, 3000),
		ReversePower:         relay(1200, 3000, 1200, 3000),
		ReverseReactivePower: relay(1000, 3000, 1000, 3000),
	}
}

// Validate checks every setpoint against its allowed range and returns all
// violations joined.
func (s *Settings) Validate() error {
	var errs []error
	check := func(ok bool, format string, args ...interface{}) {
		if !ok {
			errs = append(errs, fmt.Errorf(format, args...))
		}
	}

	check(s.Breaker.Rating > 0, "breaker rating must be positive")
	check(s.System.Frequency == 50 || s.System.Frequency == 60, "system frequency must be 50 or 60 Hz, got %d", s.System.Frequency)
	check(s.System.Voltage > 0, "system voltage must be positive")

	check(s.LongDelay.Curve.Valid(), "unknown long-delay curve %d", s.LongDelay.Curve)
	check(s.LongDelay.Pickup >= 20 && s.LongDelay.Pickup <= 100, "long-delay pickup %d outside 20-100", s.LongDelay.Pickup)
	check(s.LongDelay.Time > 0, "long-delay time must be positive")

	check(s.ShortDelay.Pickup >= 15 && s.ShortDelay.Pickup <= 120, "short-delay pickup %d outside 15-120", s.ShortDelay.Pickup)
	check(s.ShortDelay.Time >= 5 && s.ShortDelay.Time <= 50, "short-delay time %d outside 5-50", s.ShortDelay.Time)

	inst := s.Instantaneous.Pickup
	check(inst == 0 || (inst >= 20 && inst <= 150), "instantaneous pickup %d outside 20-150", inst)

	gf := &s.GroundFault
	check(gf.Action <= Alarm, "unknown ground-fault action %d", gf.Action)
	if gf.Action != Off {
		check(gf.Pickup >= 10 && gf.Pickup <= 100, "ground-fault pickup %d outside 10-100", gf.Pickup)
		check(gf.Time >= 5 && gf.Time <= 100, "ground-fault time %d outside 5-100", gf.Time)
		check(gf.PreAlarm == 0 || (gf.PreAlarm >= 50 && gf.PreAlarm <= 100), "ground-fault pre-alarm %d outside 50-100", gf.PreAlarm)
	}

	hl := &s.HighLoad
	check(hl.Level1 == 0 || (hl.Level1 >= 50 && hl.Level1 <= 120), "high-load 1 level %d outside 50-120", hl.Level1)
	check(hl.Level2 == 0 || (hl.Level2 >= 50 && hl.Level2 <= 120), "high-load 2 level %d outside 50-120", hl.Level2)
	check(s.ThermalAlarm == 0 || (s.ThermalAlarm >= 50 && s.ThermalAlarm <= 100), "thermal alarm %d outside 50-100", s.ThermalAlarm)

	for f := Function(0); f < NumFunctions; f++ {
		r := s.Relay(f)
		for _, st := range []struct {
			name  string
			stage *Stage
		}{{"trip", &r.Trip}, {"alarm", &r.Alarm}} {
			if !st.stage.Enabled {
				continue
			}
			check(st.stage.Time > 0, "%s %s time must be positive", f, st.name)
			if f != PhaseLoss && f != PhaseRotation {
				check(st.stage.Pickup > 0, "%s %s pickup must be positive", f, st.name)
			}
		}
		if f == OverVoltage || f == UnderVoltage {
			check(r.Phases >= 1 && r.Phases <= 3, "%s phases %d outside 1-3", f, r.Phases)
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid settings: %w", errors.Join(errs...))
	}
	return nil
}
