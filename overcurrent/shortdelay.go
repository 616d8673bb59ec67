package overcurrent

import (
	"github.com/synaptecltd/tripunit/capture"
	"github.com/synaptecltd/tripunit/events"
	"github.com/synaptecltd/tripunit/metering"
	"github.com/synaptecltd/tripunit/settings"
	"github.com/synaptecltd/tripunit/thresholds"
	"github.com/synaptecltd/tripunit/trip"
)

// ShortDelay protects against short circuits that downstream devices should
// be given time to clear. It runs every sample on the largest phase current.
type ShortDelay struct {
	m timed
}

func NewShortDelay() *ShortDelay {
	return &ShortDelay{m: timed{
		cause:      trip.ShortDelay,
		id:         capture.ShortDelay,
		pickupCode: events.ShortDelayPickup,
		exitCode:   events.ShortDelayExit,
		fire: func(d trip.Dispatcher, value float64) bool {
			return d.Trip(trip.ShortDelay, value)
		},
	}}
}

// Run evaluates one sample and reports whether the breaker was tripped.
func (s *ShortDelay) Run(th *thresholds.Overcurrent, sample *metering.Sample, d trip.Dispatcher, c *capture.Coordinator) bool {
	return s.m.run(th, reading{
		half:     sample.HalfCycleMax(),
		one:      sample.OneCycleMax(),
		startup:  sample.StartupSamples,
		restrain: sample.ZoneInterlock,
		counter:  sample.Counter,
	}, d, c)
}

// PickedUp reports whether the short delay is timing.
func (s *ShortDelay) PickedUp() bool {
	return s.m.state != idle
}

// Returns the number of samples spent in pickup.
func (s *ShortDelay) Passes() int {
	return s.m.passes
}

// Returns the I2t tally.
func (s *ShortDelay) Tally() float64 {
	return s.m.tally.Value()
}

// GroundFault protects against current returning through earth. It follows
// the short-delay shape on the residual or source-ground channel and can
// alarm instead of tripping.
type GroundFault struct {
	m      timed
	action settings.Action
}

func NewGroundFault() *GroundFault {
	g := &GroundFault{}
	g.m = timed{
		cause:      trip.GroundFault,
		id:         capture.GroundFault,
		pickupCode: events.GroundFaultPickup,
		exitCode:   events.GroundFaultExit,
		fire:       g.fire,
		release:    g.release,
	}
	return g
}

func (g *GroundFault) fire(d trip.Dispatcher, value float64) bool {
	if g.action == settings.Alarm {
		d.Alarm(trip.GroundFaultAlarm, events.GroundFaultAlarm, value, trip.AlarmOptions{})
		return true
	}
	return d.Trip(trip.GroundFault, value)
}

func (g *GroundFault) release(d trip.Dispatcher) {
	if g.action == settings.Alarm {
		d.ClearAlarm(trip.GroundFaultAlarm)
	}
}

// Run evaluates one sample and reports whether the function operated.
func (g *GroundFault) Run(th *thresholds.GroundFault, sample *metering.Sample, d trip.Dispatcher, c *capture.Coordinator) bool {
	if th.Action == settings.Off {
		g.m.disable(sample.Counter, d, c)
		return false
	}
	if th.Action != g.action {
		g.m.disable(sample.Counter, d, c)
		g.action = th.Action
	}
	g.m.memory = th.ThermalMemory
	g.m.cool = th.Cool

	ch := th.Channel()
	return g.m.run(&th.Overcurrent, reading{
		half:     sample.HalfCycleSOS[ch],
		one:      sample.OneCycleSOS[ch],
		startup:  sample.StartupSamples,
		restrain: sample.ZoneInterlock,
		counter:  sample.Counter,
	}, d, c)
}

// PickedUp reports whether the ground-fault function is timing.
func (g *GroundFault) PickedUp() bool {
	return g.m.state != idle
}

// Returns the ground-fault I2t tally.
func (g *GroundFault) Tally() float64 {
	return g.m.tally.Value()
}

// Instantaneous trips without intentional delay once the filtered
// half-cycle current stays above pickup for a few consecutive samples.
type Instantaneous struct {
	// internal state
	prev   [3]float64
	passes int
}

func NewInstantaneous() *Instantaneous {
	return &Instantaneous{}
}

// Run evaluates one sample and reports whether the breaker was tripped.
func (f *Instantaneous) Run(th *thresholds.Instantaneous, sample *metering.Sample, d trip.Dispatcher) bool {
	var peak float64
	for i, ch := range metering.Phases {
		v := sample.HalfCycleSOS[ch]
		filtered := v
		if v <= f.prev[i]/2 {
			// a half cycle less than half the previous one is taken as
			// the tail of a DC offset, not a fault clearing
			filtered = (v + f.prev[i]) / 2
		}
		f.prev[i] = v
		peak = max(peak, filtered)
	}

	if !th.Enabled || peak < th.HalfCycPickup {
		f.passes = 0
		return false
	}
	if f.passes == 0 {
		f.passes = 1 + sample.StartupSamples
	} else {
		f.passes++
	}
	if f.passes < th.Passes {
		return false
	}
	if !d.Trip(trip.Instantaneous, rms(peak, metering.SamplesPerHalfCycle)) {
		return false
	}
	f.passes = 0
	return true
}

// Override trips on the first sample whose unfiltered half-cycle current on
// any phase reaches the breaker's withstand rating.
func Override(th *thresholds.Override, sample *metering.Sample, d trip.Dispatcher) bool {
	if !th.Enabled {
		return false
	}
	var peak float64
	for _, ch := range metering.Phases {
		peak = max(peak, sample.HalfCycleSOS[ch])
	}
	if peak < th.HalfCycPickup {
		return false
	}
	return d.Trip(trip.Override, rms(peak, metering.SamplesPerHalfCycle))
}
