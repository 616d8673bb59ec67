package thresholds

import (
	"errors"
	"fmt"
	"math"

	"github.com/synaptecltd/tripunit/curves"
	"github.com/synaptecltd/tripunit/metering"
	"github.com/synaptecltd/tripunit/settings"
)

const (
	HoldoffTime           = 0.5   // seconds protection stays disabled after a trip
	InstantaneousPasses   = 3     // consecutive half-cycle passes above pickup
	ShortDelayOverride    = 8.0   // multiple of Ir above which the short delay is flat
	GroundFaultOverride   = 0.625 // multiple of the ground-fault base above which it is flat
	GroundFaultCap        = 1200.0
	I2tMinPassCycles      = 1.5
	ZSIHalfCycles         = 4
	MinCaptureCycles      = 8
	LongDelayPickupFactor = 1.1
	LongDelayMinPasses    = 3
	LongDelayCoolTime     = 300.0 // seconds to cool a full long-delay tally
	GroundFaultCoolLevel  = 0.1   // multiple of the ground-fault base that sets the cooling rate
	GroundFaultCoolFactor = 0.01  // fraction of that sum of squares removed per sample
	AlarmHoldoffTime      = 2.0   // seconds the load alarms stay suspended after a trip
	ThermalAlarmTime      = 2.0
	PhaseLossUnbalance    = 75.0 // percent current unbalance treated as a lost phase
	MinCurrentFraction    = 0.1  // of In, below which current-based qualifiers fail
	MinVoltageFraction    = 0.5  // of system voltage, below which voltage-based qualifiers fail
)

// Overcurrent holds the thresholds shared by the short-delay and ground-fault
// state machines. Pickups are sums of squares over a half cycle or one cycle.
type Overcurrent struct {
	HalfCycPickup    float64
	OneCycPickup     float64
	Slope            curves.Slope
	FlatPasses       int
	I2tThreshold     float64
	I2tMinPasses     int
	FlatOverride     float64 // one-cycle sum of squares above which the flat path applies
	ZSI              bool
	ZSIPasses        int
	ConfirmSamples   int
	MinCapturePasses int
}

type Instantaneous struct {
	Enabled       bool
	HalfCycPickup float64
	Passes        int
}

// Override trips at the breaker's short-circuit withstand current.
type Override struct {
	Enabled       bool
	HalfCycPickup float64
}

type LongDelay struct {
	Family        curves.Family
	Base          float64 // one-cycle sum of squares of Ir
	Pickup        float64 // one-cycle sum of squares
	TripThreshold float64
	MinPasses     int
	BDelay        int // cycles, inverse-time families only
	ThermalMemory bool
	Cool          float64 // per cycle
	MinCapture    int     // cycles
}

type GroundFault struct {
	Overcurrent
	Action        settings.Action
	Sensing       settings.Sensing
	Base          float64 // amps, In or the 1200 A cap
	Capped        bool
	ThermalMemory bool
	Cool          float64 // per sample
}

// Channel returns the metering channel the ground-fault function watches.
func (g *GroundFault) Channel() metering.Channel {
	if g.Sensing == settings.Source {
		return metering.GroundSource
	}
	return metering.GroundResidual
}

// Stage is one delay-timer stage in engineering units.
type Stage struct {
	Enabled  bool
	Pickup   float64
	Delay    int // cycles
	Waveform bool
	Extended bool
	Global   bool
}

type Relay struct {
	Trip   Stage
	Alarm  Stage
	Phases int
}

// Set is an immutable snapshot of every derived threshold.
type Set struct {
	Frequency       float64
	SamplesPerCycle int
	In              float64
	Ir              float64
	SystemVoltage   float64 // line-line
	FeedSign        float64
	Rotation        metering.Rotation
	HoldoffSamples  int
	AlarmHoldoff    int     // samples
	MinCurrent      float64 // RMS amps
	MinVoltage      float64 // line-line volts

	Override      Override
	Instantaneous Instantaneous
	ShortDelay    Overcurrent
	LongDelay     LongDelay
	GroundFault   GroundFault

	Relays              [settings.NumFunctions]Relay
	GroundFaultPreAlarm Stage // RMS amps
	HighLoad1           Stage // RMS amps
	HighLoad2           Stage // RMS amps
	ThermalAlarm        Stage // percent of the long-delay trip point
}

type band struct {
	below  float64 // milliseconds
	factor float64
}

// Compensation for the samples already lost to half-cycle confirmation and
// breaker clearing time. The I2t paths use the same bands so that the I2t
// curve meets the flat curve at the override current.
var timeBands = []band{
	{below: 100, factor: 0.5},
	{below: 200, factor: 0.7},
	{below: math.Inf(1), factor: 0.8},
}

// Returns the compensation factor for a delay of ms milliseconds.
func Compensation(ms float64) float64 {
	for _, b := range timeBands {
		if ms < b.below {
			return b.factor
		}
	}
	return timeBands[len(timeBands)-1].factor
}

// Generate derives a threshold set from s. It always returns a usable set;
// settings it cannot use are replaced by defaults that never suppress
// protection, and each replacement is reported in the returned error.
func Generate(s settings.Settings) (*Set, error) {
	var errs []error
	def := settings.Default()

	fnom := float64(s.System.Frequency)
	if fnom != 50 && fnom != 60 {
		errs = append(errs, fmt.Errorf("frequency %d Hz unsupported, using 60 Hz", s.System.Frequency))
		fnom = 60
	}
	rating := s.Breaker.Rating
	if rating == 0 {
		errs = append(errs, fmt.Errorf("zero breaker rating, using %d A", def.Breaker.Rating))
		rating = def.Breaker.Rating
	}
	vsys := s.System.Voltage
	if vsys == 0 {
		errs = append(errs, fmt.Errorf("zero system voltage, using %d V", def.System.Voltage))
		vsys = def.System.Voltage
	}

	spc := metering.SamplesPerCycle
	in := float64(rating)
	set := &Set{
		Frequency:       fnom,
		SamplesPerCycle: spc,
		In:              in,
		SystemVoltage:   float64(vsys),
		FeedSign:        s.System.Feed.Sign(),
		Rotation:        s.System.Rotation,
		HoldoffSamples:  int(math.Round(HoldoffTime * fnom * float64(spc))),
		AlarmHoldoff:    int(math.Round(AlarmHoldoffTime * fnom * float64(spc))),
		MinCurrent:      MinCurrentFraction * in,
		MinVoltage:      MinVoltageFraction * float64(vsys),
	}

	ldPickup := clamp(s.LongDelay.Pickup, 20, 100, "long-delay pickup", &errs)
	set.Ir = in * float64(ldPickup) / 100

	// override
	if s.Breaker.Withstand > 0 {
		withstand := float64(s.Breaker.Withstand) * 1000
		if withstand <= in {
			errs = append(errs, fmt.Errorf("withstand %d kA not above the %d A rating, override off", s.Breaker.Withstand, rating))
		} else {
			set.Override = Override{
				Enabled:       true,
				HalfCycPickup: sos(withstand, metering.SamplesPerHalfCycle),
			}
		}
	}

	// instantaneous
	if s.Instantaneous.Pickup > 0 {
		pu := float64(clamp(s.Instantaneous.Pickup, 20, 150, "instantaneous pickup", &errs)) / 10 * in
		set.Instantaneous = Instantaneous{
			Enabled:       true,
			HalfCycPickup: sos(pu, metering.SamplesPerHalfCycle),
			Passes:        InstantaneousPasses,
		}
	}

	// short delay
	sdPickup := float64(clamp(s.ShortDelay.Pickup, 15, 120, "short-delay pickup", &errs)) / 10 * set.Ir
	sdTime := clamp(s.ShortDelay.Time, 5, 50, "short-delay time", &errs)
	set.ShortDelay = overcurrent(sdPickup, sdTime, ShortDelayOverride*set.Ir, s.ShortDelay.Slope, s.ShortDelay.ZSI, fnom, &errs)

	// long delay
	set.LongDelay = longDelay(s.LongDelay, set.Ir, fnom, &errs)

	// ground fault
	set.GroundFault = groundFault(s.GroundFault, in, fnom, &errs)
	if s.GroundFault.Action != settings.Off && s.GroundFault.PreAlarm > 0 {
		pu := float64(s.GroundFault.Pickup) / 100 * set.GroundFault.Base
		set.GroundFaultPreAlarm = Stage{
			Enabled: true,
			Pickup:  float64(s.GroundFault.PreAlarm) / 100 * pu,
			Delay:   delayCycles(s.GroundFault.Time, fnom),
		}
	}

	// alarms driven by load level
	set.HighLoad1 = highLoad(s.HighLoad.Level1, s.HighLoad.Time1, set.Ir, fnom)
	set.HighLoad2 = highLoad(s.HighLoad.Level2, s.HighLoad.Time2, set.Ir, fnom)
	if s.ThermalAlarm > 0 && set.LongDelay.Family.Simple() {
		set.ThermalAlarm = Stage{
			Enabled: true,
			Pickup:  float64(s.ThermalAlarm),
			Delay:   int(math.Round(ThermalAlarmTime * fnom)),
		}
	}

	for f := settings.Function(0); f < settings.NumFunctions; f++ {
		r := s.Relay(f)
		phases := int(r.Phases)
		if phases < 1 || phases > 3 {
			if f == settings.OverVoltage || f == settings.UnderVoltage {
				errs = append(errs, fmt.Errorf("%s phases %d unsupported, using 1", f, r.Phases))
			}
			phases = 1
		}
		set.Relays[f] = Relay{
			Trip:   relayStage(f, r.Trip, set, &errs),
			Alarm:  relayStage(f, r.Alarm, set, &errs),
			Phases: phases,
		}
	}

	return set, errors.Join(errs...)
}

func overcurrent(pickup float64, time uint16, override float64, slope curves.Slope, zsi bool, fnom float64, errs *[]error) Overcurrent {
	if slope > curves.I2tSlope {
		*errs = append(*errs, fmt.Errorf("unknown slope %d, using flat", slope))
		slope = curves.Flat
	}
	spc := float64(metering.SamplesPerCycle)
	ms := float64(time) * 10
	flat := int(math.Round(ms / 1000 * fnom * spc * Compensation(ms)))
	overrideSOS := sos(override, metering.SamplesPerCycle)

	return Overcurrent{
		HalfCycPickup:    sos(pickup, metering.SamplesPerHalfCycle),
		OneCycPickup:     sos(pickup, metering.SamplesPerCycle),
		Slope:            slope,
		FlatPasses:       flat,
		I2tThreshold:     overrideSOS * float64(flat),
		I2tMinPasses:     int(math.Round(I2tMinPassCycles * spc)),
		FlatOverride:     overrideSOS,
		ZSI:              zsi,
		ZSIPasses:        ZSIHalfCycles * metering.SamplesPerHalfCycle,
		ConfirmSamples:   metering.SamplesPerHalfCycle,
		MinCapturePasses: MinCaptureCycles * metering.SamplesPerCycle,
	}
}

func longDelay(s settings.LongDelay, ir, fnom float64, errs *[]error) LongDelay {
	family := s.Curve
	if !family.Valid() {
		*errs = append(*errs, fmt.Errorf("unknown long-delay curve %d, using %s", s.Curve, curves.I2T))
		family = curves.I2T
	}
	t := s.Time
	if t == 0 {
		*errs = append(*errs, errors.New("zero long-delay time, using 0.5 s"))
		t = 50
	}
	seconds := float64(t) / 100

	ld := LongDelay{
		Family:        family,
		Base:          sos(ir, metering.SamplesPerCycle),
		Pickup:        sos(LongDelayPickupFactor*ir, metering.SamplesPerCycle),
		TripThreshold: family.TripThreshold(seconds, fnom),
		MinPasses:     LongDelayMinPasses,
		BDelay:        family.BDelayCycles(seconds, fnom),
		ThermalMemory: s.ThermalMemory && family.Simple(),
		MinCapture:    MinCaptureCycles,
	}
	ld.Cool = ld.TripThreshold / (LongDelayCoolTime * fnom)
	return ld
}

func groundFault(s settings.GroundFault, in, fnom float64, errs *[]error) GroundFault {
	base := in
	capped := in > GroundFaultCap && s.Sensing == settings.Residual && s.Action == settings.Trip && !s.CapOverride
	if capped {
		base = GroundFaultCap
	}

	gf := GroundFault{
		Action:        s.Action,
		Sensing:       s.Sensing,
		Base:          base,
		Capped:        capped,
		ThermalMemory: s.ThermalMemory,
	}
	if s.Action == settings.Off {
		return gf
	}
	if s.Action > settings.Alarm {
		*errs = append(*errs, fmt.Errorf("unknown ground-fault action %d, using trip", s.Action))
		gf.Action = settings.Trip
	}

	pickup := float64(clamp(s.Pickup, 10, 100, "ground-fault pickup", errs)) / 100 * base
	time := clamp(s.Time, 5, 100, "ground-fault time", errs)
	gf.Overcurrent = overcurrent(pickup, time, GroundFaultOverride*base, s.Slope, s.ZSI, fnom, errs)
	gf.Cool = sos(GroundFaultCoolLevel*base, metering.SamplesPerCycle) * GroundFaultCoolFactor
	return gf
}

func highLoad(level, time uint16, ir, fnom float64) Stage {
	if level == 0 {
		return Stage{}
	}
	return Stage{
		Enabled: true,
		Pickup:  float64(level) / 100 * ir,
		Delay:   delayCycles(time, fnom),
	}
}

func relayStage(f settings.Function, st settings.Stage, set *Set, errs *[]error) Stage {
	out := Stage{
		Enabled:  st.Enabled,
		Delay:    delayCycles(st.Time, set.Frequency),
		Waveform: st.Waveform,
		Extended: st.Extended,
		Global:   st.Global,
	}
	if st.Enabled && st.Time == 0 {
		*errs = append(*errs, fmt.Errorf("%s: zero delay, using one cycle", f))
	}

	p := float64(st.Pickup)
	switch f {
	case settings.OverVoltage, settings.UnderVoltage:
		out.Pickup = p / 1000 * set.SystemVoltage
	case settings.OverFrequency, settings.UnderFrequency:
		out.Pickup = p / 1000 * set.Frequency
	case settings.PhaseLoss:
		out.Pickup = PhaseLossUnbalance
	case settings.PhaseRotation:
		out.Pickup = 0
	case settings.RealPower, settings.ReactivePower, settings.ApparentPower,
		settings.ReversePower, settings.ReverseReactivePower:
		out.Pickup = p * 1000 / 3 // per phase
	case settings.PowerFactor:
		out.Pickup = p / 100
	default:
		out.Pickup = p
	}
	return out
}

func delayCycles(time uint16, fnom float64) int {
	return max(int(math.Round(float64(time)/100*fnom)), 1)
}

// sos returns the sum of squares of n samples of a sinusoid with RMS value rms.
func sos(rms float64, n int) float64 {
	return rms * rms * float64(n)
}

func clamp(v, lo, hi uint16, what string, errs *[]error) uint16 {
	switch {
	case v < lo:
		*errs = append(*errs, fmt.Errorf("%s %d below %d, using %d", what, v, lo, lo))
		return lo
	case v > hi:
		*errs = append(*errs, fmt.Errorf("%s %d above %d, using %d", what, v, hi, hi))
		return hi
	}
	return v
}
