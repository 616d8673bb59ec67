package relay

import (
	"github.com/synaptecltd/tripunit/capture"
	"github.com/synaptecltd/tripunit/events"
	"github.com/synaptecltd/tripunit/metering"
	"github.com/synaptecltd/tripunit/settings"
	"github.com/synaptecltd/tripunit/thresholds"
	"github.com/synaptecltd/tripunit/trip"
)

// Capture IDs of the alarm-only timers, after the trip/alarm pairs.
const (
	GroundFaultPreAlarmID = capture.RelayBase + 2*capture.ID(settings.NumFunctions) + iota
	HighLoad1ID
	HighLoad2ID
	ThermalMemoryID
)

// Returns the capture ID owned by the stage of f with role r.
func CaptureID(f settings.Function, r Role) capture.ID {
	return capture.RelayBase + 2*capture.ID(f) + capture.ID(r)
}

// Relays holds every delay-timer stage of the trip unit.
type Relays struct {
	trips  [settings.NumFunctions]Timer
	alarms [settings.NumFunctions]Timer

	preAlarm  Timer
	highLoad1 Timer
	highLoad2 Timer
	thermal   Timer
}

func New() *Relays {
	r := &Relays{}
	for f := settings.Function(0); f < settings.NumFunctions; f++ {
		fn := &functions[f]
		r.trips[f] = Timer{
			Role:       TripRole,
			Cause:      fn.cause,
			Codes:      Codes{Pickup: fn.pickup, Exit: fn.exit},
			ID:         CaptureID(f, TripRole),
			Processing: fn.processing,
		}
		r.alarms[f] = Timer{
			Role:       AlarmRole,
			Alarm:      fn.alarm,
			Codes:      Codes{Pickup: fn.pickup, Fire: fn.alarmCode, Exit: fn.exit},
			ID:         CaptureID(f, AlarmRole),
			Processing: fn.processing,
		}
	}
	r.preAlarm = Timer{
		Role:  AlarmRole,
		Alarm: trip.GroundFaultPreAlarm,
		Codes: Codes{Fire: events.GroundFaultPreAlarm, Exit: events.GroundFaultPreAlarmExit},
		ID:    GroundFaultPreAlarmID,
	}
	r.highLoad1 = Timer{
		Role:  AlarmRole,
		Alarm: trip.HighLoad1Alarm,
		Codes: Codes{Fire: events.HighLoad1Alarm, Exit: events.HighLoad1Exit},
		ID:    HighLoad1ID,
	}
	r.highLoad2 = Timer{
		Role:  AlarmRole,
		Alarm: trip.HighLoad2Alarm,
		Codes: Codes{Fire: events.HighLoad2Alarm, Exit: events.HighLoad2Exit},
		ID:    HighLoad2ID,
	}
	r.thermal = Timer{
		Role:  AlarmRole,
		Alarm: trip.ThermalMemoryAlarm,
		Codes: Codes{Fire: events.ThermalMemoryAlarm, Exit: events.ThermalMemoryExit},
		ID:    ThermalMemoryID,
	}
	return r
}

// RunTrips runs the trip stages in function order. It stops at the first
// stage that trips and reports whether one did.
func (r *Relays) RunTrips(set *thresholds.Set, cyc *metering.Cycle, d trip.Dispatcher, c *capture.Coordinator) bool {
	for f := settings.Function(0); f < settings.NumFunctions; f++ {
		st := &set.Relays[f].Trip
		if r.trips[f].Run(st, Evaluate(f, st, set, cyc), cyc.Counter, d, c) {
			return true
		}
	}
	return false
}

// RunAlarms runs the alarm stages in function order.
func (r *Relays) RunAlarms(set *thresholds.Set, cyc *metering.Cycle, d trip.Dispatcher, c *capture.Coordinator) {
	for f := settings.Function(0); f < settings.NumFunctions; f++ {
		st := &set.Relays[f].Alarm
		r.alarms[f].Run(st, Evaluate(f, st, set, cyc), cyc.Counter, d, c)
	}
}

// RunPreAlarm runs the ground-fault pre-alarm on the sensed ground current.
func (r *Relays) RunPreAlarm(set *thresholds.Set, cyc *metering.Cycle, d trip.Dispatcher, c *capture.Coordinator) {
	gf := cyc.Current[set.GroundFault.Channel()]
	r.preAlarm.Run(&set.GroundFaultPreAlarm, Reading{
		Valid:  true,
		Beyond: gf >= set.GroundFaultPreAlarm.Pickup,
		Value:  gf,
	}, cyc.Counter, d, c)
}

// RunLoadAlarms runs the high-load alarms and the thermal-memory alarm.
// thermalPercent is the long-delay tally as a percentage of its trip point.
func (r *Relays) RunLoadAlarms(set *thresholds.Set, cyc *metering.Cycle, thermalPercent float64, d trip.Dispatcher, c *capture.Coordinator) {
	load := cyc.CurrentMax()
	for _, hl := range []struct {
		timer *Timer
		stage *thresholds.Stage
	}{{&r.highLoad1, &set.HighLoad1}, {&r.highLoad2, &set.HighLoad2}} {
		hl.timer.Run(hl.stage, Reading{Valid: true, Beyond: load >= hl.stage.Pickup, Value: load}, cyc.Counter, d, c)
	}

	r.thermal.Run(&set.ThermalAlarm, Reading{
		Valid:  true,
		Beyond: thermalPercent >= set.ThermalAlarm.Pickup,
		Value:  thermalPercent,
	}, cyc.Counter, d, c)
}

// Returns the trip stage of f.
func (r *Relays) Trip(f settings.Function) *Timer {
	return &r.trips[f]
}

// Returns the alarm stage of f.
func (r *Relays) Alarm(f settings.Function) *Timer {
	return &r.alarms[f]
}
