package relay

import (
	"math"

	"github.com/synaptecltd/tripunit/capture"
	"github.com/synaptecltd/tripunit/events"
	"github.com/synaptecltd/tripunit/metering"
	"github.com/synaptecltd/tripunit/settings"
	"github.com/synaptecltd/tripunit/thresholds"
	"github.com/synaptecltd/tripunit/trip"
)

// evaluator tests one function's quantity against a stage pickup.
type evaluator func(st *thresholds.Stage, r *thresholds.Relay, set *thresholds.Set, cyc *metering.Cycle) Reading

type function struct {
	cause      trip.Cause
	alarm      trip.Alarm
	pickup     events.Code
	alarmCode  events.Code
	exit       events.Code
	processing capture.Processing
	evaluate   evaluator
}

var functions = [settings.NumFunctions]function{
	settings.OverVoltage: {
		trip.OverVoltage, trip.OverVoltageAlarm,
		events.OverVoltagePickup, events.OverVoltageAlarm, events.OverVoltageExit,
		capture.Maximum, overVoltage,
	},
	settings.UnderVoltage: {
		trip.UnderVoltage, trip.UnderVoltageAlarm,
		events.UnderVoltagePickup, events.UnderVoltageAlarm, events.UnderVoltageExit,
		capture.Minimum, underVoltage,
	},
	settings.VoltageUnbalance: {
		trip.VoltageUnbalance, trip.VoltageUnbalanceAlarm,
		events.VoltageUnbalancePickup, events.VoltageUnbalanceAlarm, events.VoltageUnbalanceExit,
		capture.Maximum, voltageUnbalance,
	},
	settings.CurrentUnbalance: {
		trip.CurrentUnbalance, trip.CurrentUnbalanceAlarm,
		events.CurrentUnbalancePickup, events.CurrentUnbalanceAlarm, events.CurrentUnbalanceExit,
		capture.Maximum, whenClosed(currentUnbalance),
	},
	settings.OverFrequency: {
		trip.OverFrequency, trip.OverFrequencyAlarm,
		events.OverFrequencyPickup, events.OverFrequencyAlarm, events.OverFrequencyExit,
		capture.Maximum, overFrequency,
	},
	settings.UnderFrequency: {
		trip.UnderFrequency, trip.UnderFrequencyAlarm,
		events.UnderFrequencyPickup, events.UnderFrequencyAlarm, events.UnderFrequencyExit,
		capture.Minimum, underFrequency,
	},
	settings.PhaseLoss: {
		trip.PhaseLoss, trip.PhaseLossAlarm,
		events.PhaseLossPickup, events.PhaseLossAlarm, events.PhaseLossExit,
		capture.Maximum, whenClosed(phaseLoss),
	},
	settings.PhaseRotation: {
		trip.PhaseRotation, trip.PhaseRotationAlarm,
		events.PhaseRotationPickup, events.PhaseRotationAlarm, events.PhaseRotationExit,
		capture.Maximum, phaseRotation,
	},
	settings.RealPower: {
		trip.RealPower, trip.RealPowerAlarm,
		events.RealPowerPickup, events.RealPowerAlarm, events.RealPowerExit,
		capture.Maximum, power(func(c *metering.Cycle) *[3]float64 { return &c.RealPower }, 1, true),
	},
	settings.ReactivePower: {
		trip.ReactivePower, trip.ReactivePowerAlarm,
		events.ReactivePowerPickup, events.ReactivePowerAlarm, events.ReactivePowerExit,
		capture.Maximum, power(func(c *metering.Cycle) *[3]float64 { return &c.ReactivePower }, 1, true),
	},
	settings.ApparentPower: {
		trip.ApparentPower, trip.ApparentPowerAlarm,
		events.ApparentPowerPickup, events.ApparentPowerAlarm, events.ApparentPowerExit,
		capture.Maximum, power(func(c *metering.Cycle) *[3]float64 { return &c.ApparentPower }, 1, false),
	},
	settings.PowerFactor: {
		trip.PowerFactor, trip.PowerFactorAlarm,
		events.PowerFactorPickup, events.PowerFactorAlarm, events.PowerFactorExit,
		capture.Minimum, whenClosed(underPowerFactor),
	},
	settings.ReversePower: {
		trip.ReversePower, trip.ReversePowerAlarm,
		events.ReversePowerPickup, events.ReversePowerAlarm, events.ReversePowerExit,
		capture.Maximum, whenClosed(power(func(c *metering.Cycle) *[3]float64 { return &c.RealPower }, -1, true)),
	},
	settings.ReverseReactivePower: {
		trip.ReverseReactivePower, trip.ReverseReactivePowerAlarm,
		events.ReverseReactivePowerPickup, events.ReverseReactivePowerAlarm, events.ReverseReactivePowerExit,
		capture.Maximum, whenClosed(power(func(c *metering.Cycle) *[3]float64 { return &c.ReactivePower }, -1, true)),
	},
}

// Evaluate tests the quantity monitored by f against the pickup of st.
func Evaluate(f settings.Function, st *thresholds.Stage, set *thresholds.Set, cyc *metering.Cycle) Reading {
	if f < 0 || f >= settings.NumFunctions {
		return Reading{}
	}
	return functions[f].evaluate(st, &set.Relays[f], set, cyc)
}

// whenClosed suspends ev while the breaker is open.
func whenClosed(ev evaluator) evaluator {
	return func(st *thresholds.Stage, r *thresholds.Relay, set *thresholds.Set, cyc *metering.Cycle) Reading {
		if !cyc.BreakerClosed {
			return Reading{}
		}
		return ev(st, r, set, cyc)
	}
}

// overVoltage picks up when at least r.Phases line-line voltages are at or
// above pickup.
func overVoltage(st *thresholds.Stage, r *thresholds.Relay, _ *thresholds.Set, cyc *metering.Cycle) Reading {
	n := 0
	for _, v := range cyc.VoltageLL {
		if v >= st.Pickup {
			n++
		}
	}
	return Reading{Valid: true, Beyond: n >= r.Phases, Value: cyc.VoltageMax()}
}

func underVoltage(st *thresholds.Stage, r *thresholds.Relay, _ *thresholds.Set, cyc *metering.Cycle) Reading {
	n := 0
	for _, v := range cyc.VoltageLL {
		if v <= st.Pickup {
			n++
		}
	}
	return Reading{Valid: true, Beyond: n >= r.Phases, Value: cyc.VoltageMin()}
}

func voltageUnbalance(st *thresholds.Stage, _ *thresholds.Relay, set *thresholds.Set, cyc *metering.Cycle) Reading {
	return Reading{
		Valid:  cyc.VoltageMax() >= set.MinVoltage,
		Beyond: cyc.VoltageUnbalance >= st.Pickup,
		Value:  cyc.VoltageUnbalance,
	}
}

func currentUnbalance(st *thresholds.Stage, _ *thresholds.Relay, set *thresholds.Set, cyc *metering.Cycle) Reading {
	return Reading{
		Valid:  cyc.CurrentMax() >= set.MinCurrent,
		Beyond: cyc.CurrentUnbalance >= st.Pickup,
		Value:  cyc.CurrentUnbalance,
	}
}

// phaseLoss is current unbalance against a fixed pickup.
func phaseLoss(st *thresholds.Stage, r *thresholds.Relay, set *thresholds.Set, cyc *metering.Cycle) Reading {
	return currentUnbalance(st, r, set, cyc)
}

func overFrequency(st *thresholds.Stage, _ *thresholds.Relay, _ *thresholds.Set, cyc *metering.Cycle) Reading {
	return Reading{
		Valid:  !math.IsNaN(cyc.Frequency),
		Beyond: cyc.Frequency >= st.Pickup,
		Value:  cyc.Frequency,
	}
}

func underFrequency(st *thresholds.Stage, _ *thresholds.Relay, _ *thresholds.Set, cyc *metering.Cycle) Reading {
	return Reading{
		Valid:  !math.IsNaN(cyc.Frequency),
		Beyond: cyc.Frequency <= st.Pickup,
		Value:  cyc.Frequency,
	}
}

func phaseRotation(_ *thresholds.Stage, _ *thresholds.Relay, set *thresholds.Set, cyc *metering.Cycle) Reading {
	return Reading{
		Valid:  cyc.VoltageMax() >= set.MinVoltage,
		Beyond: cyc.Rotation != set.Rotation,
		Value:  float64(cyc.Rotation),
	}
}

// power returns an evaluator of the largest per-phase flow in direction dir
// (+1 forward, -1 reverse) after normalizing by the feed direction. Apparent
// power has no direction and is taken as is.
func power(quantity func(*metering.Cycle) *[3]float64, dir float64, signed bool) evaluator {
	return func(st *thresholds.Stage, _ *thresholds.Relay, set *thresholds.Set, cyc *metering.Cycle) Reading {
		sign := 1.0
		if signed {
			sign = dir * set.FeedSign
		}
		peak := math.Inf(-1)
		for _, p := range quantity(cyc) {
			peak = math.Max(peak, p*sign)
		}
		return Reading{Valid: true, Beyond: peak >= st.Pickup, Value: peak}
	}
}

func underPowerFactor(st *thresholds.Stage, _ *thresholds.Relay, set *thresholds.Set, cyc *metering.Cycle) Reading {
	low := math.Inf(1)
	for i, ch := range metering.Phases {
		if cyc.Current[ch] < set.MinCurrent {
			continue
		}
		low = math.Min(low, math.Abs(cyc.PowerFactor[i]))
	}
	return Reading{
		Valid:  !math.IsInf(low, 1),
		Beyond: low < st.Pickup,
		Value:  low,
	}
}
