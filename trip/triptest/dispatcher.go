// Package triptest provides a recording trip.Dispatcher for tests.
package triptest

import (
	"github.com/google/uuid"
	"github.com/synaptecltd/tripunit/events"
	"github.com/synaptecltd/tripunit/trip"
)

// Dispatcher records every call it receives. Setting HeldOff makes Trip refuse.
type Dispatcher struct {
	Flags   trip.Flags
	HeldOff bool

	Trips  []trip.Cause
	Alarms []events.Code
	Events []events.Event
}

func (d *Dispatcher) Trip(c trip.Cause, value float64) bool {
	if d.HeldOff {
		return false
	}
	d.Flags.SetTrip(c)
	d.Trips = append(d.Trips, c)
	d.Events = append(d.Events, events.Event{ID: uuid.New(), Code: c.Code(), Value: value})
	return true
}

func (d *Dispatcher) Alarm(a trip.Alarm, code events.Code, value float64, _ trip.AlarmOptions) uuid.UUID {
	d.Flags.SetAlarm(a)
	d.Alarms = append(d.Alarms, code)
	return d.Event(code, value)
}

func (d *Dispatcher) ClearAlarm(a trip.Alarm) {
	d.Flags.ClearAlarm(a)
}

func (d *Dispatcher) Event(code events.Code, value float64) uuid.UUID {
	id := uuid.New()
	d.Events = append(d.Events, events.Event{ID: id, Code: code, Value: value})
	return id
}

func (d *Dispatcher) Pickup(c trip.Cause, on bool) {
	d.Flags.SetPickup(c, on)
}

// Returns the logged events with the given code.
func (d *Dispatcher) WithCode(code events.Code) []events.Event {
	var out []events.Event
	for _, ev := range d.Events {
		if ev.Code == code {
			out = append(out, ev)
		}
	}
	return out
}

// Tripped reports whether c has tripped.
func (d *Dispatcher) Tripped(c trip.Cause) bool {
	for _, got := range d.Trips {
		if got == c {
			return true
		}
	}
	return false
}
