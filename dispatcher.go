package tripunit

import (
	"github.com/google/uuid"
	"github.com/synaptecltd/tripunit/events"
	"github.com/synaptecltd/tripunit/thresholds"
	"github.com/synaptecltd/tripunit/trip"
	"go.uber.org/zap"
)

// dispatcher carries out protection decisions for the pass in progress.
// Callers hold the engine mutex.
type dispatcher struct {
	e       *Engine
	set     *thresholds.Set
	counter uint32
}

var _ trip.Dispatcher = (*dispatcher)(nil)

func (d *dispatcher) heldOff() bool {
	return d.e.heldOff(d.counter)
}

// Trip latches the cause, holds off further trips and the load alarms, arms
// the trip waveform capture, logs the trip and opens the breaker.
func (d *dispatcher) Trip(c trip.Cause, value float64) bool {
	e := d.e
	if d.heldOff() {
		return false
	}
	e.flags.SetTrip(c)
	e.holdoff = true
	e.holdoffUntil = d.counter + uint32(d.set.HoldoffSamples)
	e.alarmHoldoff = true
	e.alarmHoldoffUntil = d.counter + uint32(d.set.AlarmHoldoff)

	id := d.Event(c.Code(), value)
	if e.tripWaveform.Arm() {
		e.recorder.RequestWaveform(events.TripWaveform, id)
	}
	e.logger.Warn("trip",
		zap.Stringer("cause", c),
		zap.Float64("value", value),
		zap.Uint32("sample", d.counter))
	if e.actuator != nil {
		e.actuator.Open(c)
		e.actuator.Transient(true)
	}
	return true
}

func (d *dispatcher) Alarm(a trip.Alarm, code events.Code, value float64, opts trip.AlarmOptions) uuid.UUID {
	e := d.e
	e.flags.SetAlarm(a)
	id := d.Event(code, value)
	if opts.Waveform && e.alarmWaveform.Arm() {
		e.recorder.RequestWaveform(events.AlarmWaveform, id)
	}
	if opts.Extended {
		e.recorder.RequestExtendedCapture(code, id)
	}
	e.logger.Info("alarm",
		zap.Stringer("alarm", a),
		zap.Float64("value", value),
		zap.Uint32("sample", d.counter))
	return id
}

func (d *dispatcher) ClearAlarm(a trip.Alarm) {
	d.e.flags.ClearAlarm(a)
}

func (d *dispatcher) Event(code events.Code, value float64) uuid.UUID {
	ev := events.Event{
		ID:      uuid.New(),
		Code:    code,
		Counter: d.counter,
		Time:    d.e.now(),
		Value:   value,
	}
	d.e.recorder.Log(ev)
	return ev.ID
}

func (d *dispatcher) Pickup(c trip.Cause, on bool) {
	d.e.flags.SetPickup(c, on)
}
