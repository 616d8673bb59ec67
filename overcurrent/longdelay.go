package overcurrent

import (
	"github.com/synaptecltd/tripunit/capture"
	"github.com/synaptecltd/tripunit/events"
	"github.com/synaptecltd/tripunit/metering"
	"github.com/synaptecltd/tripunit/thermal"
	"github.com/synaptecltd/tripunit/thresholds"
	"github.com/synaptecltd/tripunit/trip"
)

type longDelayState uint8

const (
	ldIdle longDelayState = iota
	ldPickup
	ldConfirmDropout
)

// LongDelay is the overload function for the simple I^n t curve families.
// It accumulates once per cycle into a thermal tally that, with thermal
// memory enabled, cools instead of resetting when the load falls.
type LongDelay struct {
	// internal state
	state    longDelayState
	passes   int
	tally    thermal.Tally
	operated bool
}

func NewLongDelay() *LongDelay {
	return &LongDelay{}
}

// Run evaluates one cycle and reports whether the breaker was tripped.
func (l *LongDelay) Run(th *thresholds.LongDelay, cyc *metering.Cycle, d trip.Dispatcher, c *capture.Coordinator) bool {
	l.tally.SetThreshold(th.TripThreshold)
	sos := cyc.OneCycleMax()
	above := sos >= th.Pickup
	value := rms(sos, metering.SamplesPerCycle)

	switch l.state {
	case ldIdle:
		if !above {
			l.cool(th)
			return false
		}
		id := d.Alarm(trip.LongDelayPickupAlarm, events.LongDelayPickup, value, trip.AlarmOptions{})
		c.Open(capture.LongDelay, id, cyc.Counter, capture.Maximum)
		d.Pickup(trip.LongDelay, true)
		l.state = ldPickup
		l.passes = 0
		l.operated = false

	case ldPickup:
		if !above {
			// a single low cycle is not enough to reset the accumulation
			l.state = ldConfirmDropout
			return false
		}

	case ldConfirmDropout:
		if !above {
			l.dropout(th, cyc.Counter, d, c)
			return false
		}
		l.state = ldPickup
	}

	l.passes++
	l.tally.Add(th.Family.Increment(sos/th.Base), cyc.Counter)
	c.Observe(capture.LongDelay, value)

	if l.operated || !l.tally.Full() || l.passes < th.MinPasses {
		return false
	}
	if !d.Trip(trip.LongDelay, value) {
		return false
	}
	l.operated = true
	c.Close(capture.LongDelay, capture.BucketFull, cyc.Counter)
	return true
}

func (l *LongDelay) dropout(th *thresholds.LongDelay, counter uint32, d trip.Dispatcher, c *capture.Coordinator) {
	bucket := int(l.tally.Bucket())
	if !l.operated {
		if l.passes >= th.MinCapture {
			c.Close(capture.LongDelay, bucket, counter)
		} else {
			c.Cancel(capture.LongDelay, counter)
		}
	}
	d.Event(events.LongDelayExit, float64(bucket))
	d.ClearAlarm(trip.LongDelayPickupAlarm)
	d.Pickup(trip.LongDelay, false)

	l.state = ldIdle
	l.passes = 0
	l.operated = false
	l.cool(th)
}

func (l *LongDelay) cool(th *thresholds.LongDelay) {
	if th.ThermalMemory {
		l.tally.Decay(th.Cool)
		return
	}
	l.tally.Reset()
}

// Suspend abandons a pickup without logging, keeping the tally.
func (l *LongDelay) Suspend(counter uint32, d trip.Dispatcher, c *capture.Coordinator) {
	if l.state == ldIdle {
		return
	}
	c.Cancel(capture.LongDelay, counter)
	d.ClearAlarm(trip.LongDelayPickupAlarm)
	d.Pickup(trip.LongDelay, false)
	l.state = ldIdle
	l.passes = 0
	l.operated = false
}

// PickedUp reports whether the load is above the long-delay pickup.
func (l *LongDelay) PickedUp() bool {
	return l.state != ldIdle
}

// Tally exposes the thermal tally for persistence and the thermal-memory alarm.
func (l *LongDelay) Tally() *thermal.Tally {
	return &l.tally
}

type inverseState uint8

const (
	invIdle inverseState = iota
	invADelay
	invBDelay
)

// InverseTime is the long-delay function for the IEEE and IEC curves. An A
// delay tally of f(I) - f(Ir) per cycle is followed by a fixed B delay.
// Both reset as soon as the current falls below pickup.
type InverseTime struct {
	// internal state
	state    inverseState
	tally    thermal.Tally
	bCycles  int
	passes   int
	operated bool
}

func NewInverseTime() *InverseTime {
	return &InverseTime{}
}

// Run evaluates one cycle and reports whether the breaker was tripped.
func (m *InverseTime) Run(th *thresholds.LongDelay, cyc *metering.Cycle, d trip.Dispatcher, c *capture.Coordinator) bool {
	m.tally.SetThreshold(th.TripThreshold)
	sos := cyc.OneCycleMax()
	value := rms(sos, metering.SamplesPerCycle)

	if sos < th.Pickup {
		if m.state != invIdle {
			m.dropout(th, cyc.Counter, d, c)
		}
		return false
	}

	if m.state == invIdle {
		id := d.Alarm(trip.LongDelayPickupAlarm, events.LongDelayPickup, value, trip.AlarmOptions{})
		c.Open(capture.LongDelay, id, cyc.Counter, capture.Maximum)
		d.Pickup(trip.LongDelay, true)
		m.state = invADelay
	}
	m.passes++
	c.Observe(capture.LongDelay, value)

	if m.state == invADelay {
		m.tally.Add(th.Family.Increment(sos/th.Base), cyc.Counter)
		if !m.tally.Full() {
			return false
		}
		m.state = invBDelay
	}

	if m.bCycles < th.BDelay {
		m.bCycles++
		return false
	}
	if m.operated || !d.Trip(trip.LongDelay, value) {
		return false
	}
	m.operated = true
	c.Close(capture.LongDelay, capture.BucketFull, cyc.Counter)
	return true
}

func (m *InverseTime) dropout(th *thresholds.LongDelay, counter uint32, d trip.Dispatcher, c *capture.Coordinator) {
	bucket := int(m.tally.Bucket())
	if !m.operated {
		if m.passes >= th.MinCapture {
			c.Close(capture.LongDelay, bucket, counter)
		} else {
			c.Cancel(capture.LongDelay, counter)
		}
	}
	d.Event(events.LongDelayExit, float64(bucket))
	d.ClearAlarm(trip.LongDelayPickupAlarm)
	d.Pickup(trip.LongDelay, false)
	m.Reset()
}

// Suspend abandons a pickup without logging.
func (m *InverseTime) Suspend(counter uint32, d trip.Dispatcher, c *capture.Coordinator) {
	if m.state == invIdle {
		return
	}
	c.Cancel(capture.LongDelay, counter)
	d.ClearAlarm(trip.LongDelayPickupAlarm)
	d.Pickup(trip.LongDelay, false)
	m.Reset()
}

// Reset clears both delays.
func (m *InverseTime) Reset() {
	m.state = invIdle
	m.tally.Reset()
	m.bCycles = 0
	m.passes = 0
	m.operated = false
}

// PickedUp reports whether the current is above the long-delay pickup.
func (m *InverseTime) PickedUp() bool {
	return m.state != invIdle
}

// Returns the A delay tally and the number of B delay cycles counted.
func (m *InverseTime) Progress() (tally float64, bCycles int) {
	return m.tally.Value(), m.bCycles
}

// Tally exposes the A delay tally.
func (m *InverseTime) Tally() *thermal.Tally {
	return &m.tally
}
