// Package relay implements the delay-timer protection functions: voltage,
// frequency, power, unbalance, phase loss and phase rotation, each as a
// trip and alarm pair, plus the alarm-only load timers.
package relay

import (
	"github.com/google/uuid"
	"github.com/synaptecltd/tripunit/capture"
	"github.com/synaptecltd/tripunit/events"
	"github.com/synaptecltd/tripunit/thresholds"
	"github.com/synaptecltd/tripunit/trip"
)

// Role says whether a timer trips the breaker or raises an alarm.
type Role uint8

const (
	TripRole Role = iota
	AlarmRole
)

func (r Role) String() string {
	if r == AlarmRole {
		return "alarm"
	}
	return "trip"
}

// Reading is the state of a monitored quantity for one cycle.
type Reading struct {
	Valid  bool    // the quantity could be evaluated; false suspends the timer
	Beyond bool    // past pickup
	Value  float64 // reported in events and captures
}

// Codes are the events a timer logs. A zero code is not logged.
type Codes struct {
	Pickup events.Code
	Fire   events.Code // alarm roles only; trips log the cause's code
	Exit   events.Code
}

// Timer is one delay-timer stage. It counts cycles while its quantity is
// beyond pickup and operates once the count reaches the stage delay.
type Timer struct {
	// inputs
	Role       Role
	Cause      trip.Cause // trip role
	Alarm      trip.Alarm // alarm role
	Codes      Codes
	ID         capture.ID
	Processing capture.Processing

	// internal state
	elapsed  int
	pickedUp bool
	operated bool
	global   bool
}

// Run advances the timer by one cycle and reports whether it operated.
func (t *Timer) Run(st *thresholds.Stage, r Reading, counter uint32, d trip.Dispatcher, c *capture.Coordinator) bool {
	if !st.Enabled || !r.Valid {
		t.Suspend(counter, d, c)
		return false
	}
	if !r.Beyond {
		if t.pickedUp {
			t.dropout(st, counter, d, c)
		}
		return false
	}

	if !t.pickedUp {
		t.pickedUp = true
		var id uuid.UUID
		if t.Codes.Pickup != 0 {
			id = d.Event(t.Codes.Pickup, r.Value)
		}
		c.Open(t.ID, id, counter, t.Processing)
		if t.Role == TripRole {
			d.Pickup(t.Cause, true)
		}
	}
	c.Observe(t.ID, r.Value)

	if t.operated {
		return false
	}
	t.elapsed++
	if t.elapsed < st.Delay {
		return false
	}
	return t.fire(st, r.Value, counter, d, c)
}

func (t *Timer) fire(st *thresholds.Stage, value float64, counter uint32, d trip.Dispatcher, c *capture.Coordinator) bool {
	if t.Role == TripRole {
		if !d.Trip(t.Cause, value) {
			return false
		}
	} else {
		d.Alarm(t.Alarm, t.Codes.Fire, value, trip.AlarmOptions{Waveform: st.Waveform, Extended: st.Extended})
		if st.Global && c.AcquireGlobal(t.ID) {
			t.global = true
			d.Event(events.GlobalCaptureEntry, float64(t.ID))
		}
	}
	t.operated = true
	c.Close(t.ID, capture.BucketFull, counter)
	return true
}

func (t *Timer) dropout(st *thresholds.Stage, counter uint32, d trip.Dispatcher, c *capture.Coordinator) {
	bucket := capture.Bucket(float64(t.elapsed), float64(st.Delay))
	if !t.operated {
		if t.elapsed*2 < st.Delay {
			c.Cancel(t.ID, counter)
		} else {
			c.Close(t.ID, bucket, counter)
		}
	}
	if t.Codes.Exit != 0 {
		d.Event(t.Codes.Exit, float64(bucket))
	}
	t.release(d, c)
}

// Suspend zeroes the timer without logging, cancelling any open capture.
func (t *Timer) Suspend(counter uint32, d trip.Dispatcher, c *capture.Coordinator) {
	if !t.pickedUp {
		return
	}
	c.Cancel(t.ID, counter)
	t.release(d, c)
}

func (t *Timer) release(d trip.Dispatcher, c *capture.Coordinator) {
	if t.Role == TripRole {
		d.Pickup(t.Cause, false)
	} else if t.operated {
		d.ClearAlarm(t.Alarm)
	}
	if t.global {
		c.ReleaseGlobal(t.ID)
		d.Event(events.GlobalCaptureExit, float64(t.ID))
		t.global = false
	}
	t.elapsed = 0
	t.pickedUp = false
	t.operated = false
}

// Returns the number of cycles counted towards the delay.
func (t *Timer) Elapsed() int {
	return t.elapsed
}

// PickedUp reports whether the quantity is beyond pickup.
func (t *Timer) PickedUp() bool {
	return t.pickedUp
}

// Operated reports whether the timer has tripped or alarmed since pickup.
func (t *Timer) Operated() bool {
	return t.operated
}
