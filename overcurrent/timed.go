// Package overcurrent implements the current-based protection state machines:
// instantaneous, short delay, long delay (simple and IEEE/IEC curves) and
// ground fault.
package overcurrent

import (
	"math"

	"github.com/synaptecltd/tripunit/capture"
	"github.com/synaptecltd/tripunit/curves"
	"github.com/synaptecltd/tripunit/events"
	"github.com/synaptecltd/tripunit/metering"
	"github.com/synaptecltd/tripunit/thermal"
	"github.com/synaptecltd/tripunit/thresholds"
	"github.com/synaptecltd/tripunit/trip"
)

type timedState uint8

const (
	idle timedState = iota
	confirming
	deciding
)

func (s timedState) String() string {
	switch s {
	case idle:
		return "idle"
	case confirming:
		return "confirming"
	case deciding:
		return "deciding"
	}
	return "unknown"
}

// reading is one sample's worth of input to a timed machine.
type reading struct {
	half     float64 // half-cycle sum of squares
	one      float64 // one-cycle sum of squares
	startup  int
	restrain bool // zone-interlock input asserted
	counter  uint32
}

// timed is the per-sample short-delay state machine, shared with ground fault.
// It picks up on the half-cycle sum of squares, confirms for a half cycle,
// then decides every sample between the zone-interlock, flat and I2t paths.
type timed struct {
	cause      trip.Cause
	id         capture.ID
	pickupCode events.Code
	exitCode   events.Code

	// memory keeps the I2t tally across drop-outs, cooling it by cool per sample.
	memory bool
	cool   float64

	// fire operates the function and reports whether it did.
	fire func(d trip.Dispatcher, value float64) bool
	// release undoes an operation that does not latch, on drop-out.
	release func(d trip.Dispatcher)

	// internal state
	state    timedState
	passes   int
	confirm  int
	tally    thermal.Tally
	flatPath bool
	operated bool
}

func (m *timed) run(th *thresholds.Overcurrent, in reading, d trip.Dispatcher, c *capture.Coordinator) bool {
	m.tally.SetThreshold(th.I2tThreshold)

	switch m.state {
	case idle:
		if in.half < th.HalfCycPickup {
			if m.memory {
				m.tally.Decay(m.cool)
			} else {
				m.tally.Reset()
			}
			return false
		}
		m.state = confirming
		m.passes = 1 + in.startup
		m.confirm = 0
		m.flatPath = th.Slope == curves.Flat
		if !m.memory {
			m.tally.Reset()
		}
		m.tally.Add(in.half, in.counter)

		value := rms(in.half, metering.SamplesPerHalfCycle)
		id := d.Event(m.pickupCode, value)
		c.Open(m.id, id, in.counter, capture.Maximum)
		c.Observe(m.id, value)
		d.Pickup(m.cause, true)
		return false

	case confirming:
		if in.half < th.HalfCycPickup {
			m.dropout(th, in.counter, d, c)
			return false
		}
		m.passes++
		m.confirm++
		c.Observe(m.id, rms(in.half, metering.SamplesPerHalfCycle))
		if m.confirm < th.ConfirmSamples {
			return false
		}
		m.tally.Add(in.one, in.counter)
		m.state = deciding
		return m.decide(th, in, false, d, c)

	case deciding:
		if in.one < th.OneCycPickup {
			m.dropout(th, in.counter, d, c)
			return false
		}
		m.passes++
		c.Observe(m.id, rms(in.one, metering.SamplesPerCycle))
		return m.decide(th, in, true, d, c)
	}
	return false
}

func (m *timed) decide(th *thresholds.Overcurrent, in reading, accumulate bool, d trip.Dispatcher, c *capture.Coordinator) bool {
	if m.operated {
		return false
	}
	value := rms(in.one, metering.SamplesPerCycle)

	// an unrestrained interlocked unit runs on the interlock time alone,
	// even when its own band is shorter
	if th.ZSI && !in.restrain {
		if m.passes >= th.ZSIPasses {
			return m.operate(value, in.counter, d, c)
		}
		return false
	}

	m.flatPath = th.Slope == curves.Flat || in.one >= th.FlatOverride
	if m.flatPath {
		if m.passes >= th.FlatPasses {
			return m.operate(value, in.counter, d, c)
		}
		return false
	}

	if accumulate {
		m.tally.Add(in.one, in.counter)
	}
	if m.passes >= th.I2tMinPasses && m.tally.Full() {
		return m.operate(value, in.counter, d, c)
	}
	return false
}

func (m *timed) operate(value float64, counter uint32, d trip.Dispatcher, c *capture.Coordinator) bool {
	if !m.fire(d, value) {
		return false
	}
	m.operated = true
	c.Close(m.id, capture.BucketFull, counter)
	return true
}

func (m *timed) dropout(th *thresholds.Overcurrent, counter uint32, d trip.Dispatcher, c *capture.Coordinator) {
	if m.operated {
		if m.release != nil {
			m.release(d)
		}
	} else {
		var bucket int
		if m.flatPath {
			bucket = capture.Bucket(float64(m.passes), float64(th.FlatPasses))
		} else {
			bucket = capture.Bucket(m.tally.Value(), th.I2tThreshold)
		}
		if m.passes >= th.MinCapturePasses {
			c.Close(m.id, bucket, counter)
		} else {
			c.Cancel(m.id, counter)
		}
		d.Event(m.exitCode, float64(bucket))
	}
	d.Pickup(m.cause, false)
	m.clear()
}

// disable returns the machine to idle without logging, cancelling any capture.
func (m *timed) disable(counter uint32, d trip.Dispatcher, c *capture.Coordinator) {
	if m.state == idle {
		return
	}
	if m.operated && m.release != nil {
		m.release(d)
	}
	c.Cancel(m.id, counter)
	d.Pickup(m.cause, false)
	m.clear()
	m.tally.Reset()
}

func (m *timed) clear() {
	m.state = idle
	m.passes = 0
	m.confirm = 0
	m.operated = false
	if !m.memory {
		m.tally.Reset()
	}
}

// rms converts a sum of squares over n samples to an RMS value.
func rms(sos float64, n int) float64 {
	if sos <= 0 {
		return 0
	}
	return math.Sqrt(sos / float64(n))
}
