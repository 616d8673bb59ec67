// Package tripunit is the protection engine of an electronic trip unit for
// low-voltage circuit breakers. It runs the overcurrent functions on every
// sample and the overload and delay-timer functions on every cycle, and
// performs the side effects of their decisions.
package tripunit

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/synaptecltd/tripunit/capture"
	"github.com/synaptecltd/tripunit/events"
	"github.com/synaptecltd/tripunit/metering"
	"github.com/synaptecltd/tripunit/overcurrent"
	"github.com/synaptecltd/tripunit/relay"
	"github.com/synaptecltd/tripunit/settings"
	"github.com/synaptecltd/tripunit/thermal"
	"github.com/synaptecltd/tripunit/thresholds"
	"github.com/synaptecltd/tripunit/trip"
	"go.uber.org/zap"
)

// Engine owns the state of every protection function. Sample and Cycle must
// be called from a single goroutine; Configure may be called from any.
type Engine struct {
	logger   *zap.Logger
	recorder events.Recorder
	actuator Actuator
	now      func() time.Time

	set atomic.Pointer[thresholds.Set]

	mu       sync.Mutex
	flags    trip.Flags
	captures *capture.Coordinator
	dispatch dispatcher

	holdoff           bool
	holdoffUntil      uint32
	alarmHoldoff      bool
	alarmHoldoffUntil uint32

	tripWaveform  events.Waveform
	alarmWaveform events.Waveform

	inst    *overcurrent.Instantaneous
	sd      *overcurrent.ShortDelay
	gf      *overcurrent.GroundFault
	ld      *overcurrent.LongDelay
	inverse *overcurrent.InverseTime
	relays  *relay.Relays
}

// New returns an engine protecting with s. Settings that cannot be used are
// replaced by safe defaults, so the engine is always usable. New only logs
// the replacements; call Configure to get them as an error.
func New(s settings.Settings, opts ...Option) *Engine {
	cfg := &engineConfig{}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.logger == nil {
		cfg.logger = zap.NewNop()
	}
	if cfg.recorder == nil {
		cfg.recorder = discard{}
	}
	if cfg.now == nil {
		cfg.now = time.Now
	}

	e := &Engine{
		logger:   cfg.logger,
		recorder: cfg.recorder,
		actuator: cfg.actuator,
		now:      cfg.now,
		captures: capture.New(cfg.recorder),
		inst:     overcurrent.NewInstantaneous(),
		sd:       overcurrent.NewShortDelay(),
		gf:       overcurrent.NewGroundFault(),
		ld:       overcurrent.NewLongDelay(),
		inverse:  overcurrent.NewInverseTime(),
		relays:   relay.New(),
	}
	e.dispatch.e = e
	_ = e.Configure(s)
	return e
}

// Configure generates thresholds from s and publishes them for the next
// sample. The returned error lists the settings that were replaced; the
// thresholds are published regardless.
func (e *Engine) Configure(s settings.Settings) error {
	set, err := thresholds.Generate(s)
	if err != nil {
		e.logger.Warn("settings replaced by defaults", zap.Error(err))
	}
	e.set.Store(set)
	e.logger.Info("thresholds published",
		zap.Float64("frequency", set.Frequency),
		zap.Float64("in", set.In),
		zap.Float64("ir", set.Ir),
		zap.Stringer("curve", set.LongDelay.Family))
	return err
}

// Returns the thresholds currently in force.
func (e *Engine) Thresholds() *thresholds.Set {
	return e.set.Load()
}

// Sample runs the override, instantaneous, short-delay and ground-fault
// functions, in that order, and reports whether any of them tripped the
// breaker. A ground fault set to alarm is not run during the alarm hold-off.
func (e *Engine) Sample(s *metering.Sample) bool {
	set := e.set.Load()

	e.mu.Lock()
	defer e.mu.Unlock()

	d := e.begin(set, s.Counter)
	tripped := overcurrent.Override(&set.Override, s, d)
	if e.inst.Run(&set.Instantaneous, s, d) {
		tripped = true
	}
	if e.sd.Run(&set.ShortDelay, s, d, e.captures) {
		tripped = true
	}
	if set.GroundFault.Action == settings.Alarm && e.alarmHoldoff {
		return tripped
	}
	if e.gf.Run(&set.GroundFault, s, d, e.captures) && set.GroundFault.Action == settings.Trip {
		tripped = true
	}
	return tripped
}

// Cycle runs the long-delay function, the delay-timer trip stages (skipped
// while protection is held off), the alarm stages, the ground-fault
// pre-alarm and the load alarms (skipped during the alarm hold-off), and
// reports whether the breaker was tripped.
func (e *Engine) Cycle(c *metering.Cycle) bool {
	set := e.set.Load()

	e.mu.Lock()
	defer e.mu.Unlock()

	d := e.begin(set, c.Counter)
	var tripped bool
	if set.LongDelay.Family.Simple() {
		e.inverse.Suspend(c.Counter, d, e.captures)
		tripped = e.ld.Run(&set.LongDelay, c, d, e.captures)
	} else {
		e.ld.Suspend(c.Counter, d, e.captures)
		tripped = e.inverse.Run(&set.LongDelay, c, d, e.captures)
	}

	if !d.heldOff() && e.relays.RunTrips(set, c, d, e.captures) {
		tripped = true
	}
	e.relays.RunAlarms(set, c, d, e.captures)
	e.relays.RunPreAlarm(set, c, d, e.captures)
	if !e.alarmHoldoff {
		e.relays.RunLoadAlarms(set, c, e.ld.Tally().Percent(), d, e.captures)
	}
	return tripped
}

func (e *Engine) begin(set *thresholds.Set, counter uint32) *dispatcher {
	e.heldOff(counter)
	if e.alarmHoldoff && int32(e.alarmHoldoffUntil-counter) <= 0 {
		e.alarmHoldoff = false
	}
	e.dispatch.set = set
	e.dispatch.counter = counter
	return &e.dispatch
}

// HeldOff reports whether protection is disabled following a trip at the
// given sample counter.
func (e *Engine) HeldOff(counter uint32) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.heldOff(counter)
}

func (e *Engine) heldOff(counter uint32) bool {
	if !e.holdoff {
		return false
	}
	if int32(e.holdoffUntil-counter) > 0 {
		return true
	}
	e.holdoff = false
	if e.actuator != nil {
		e.actuator.Transient(false)
	}
	return false
}

// Returns a copy of the trip, alarm and pickup flags.
func (e *Engine) Flags() trip.Flags {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.flags
}

// ResetFlags clears the latched causes and alarms. It returns false, leaving
// the flags untouched, while a trip request is pending.
func (e *Engine) ResetFlags() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.flags.Reset()
}

// AcknowledgeTrip drops the trip request once the breaker has opened.
func (e *Engine) AcknowledgeTrip() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.flags.AcknowledgeTrip()
}

// ZoneInterlockOut reports whether the restraint signal to upstream breakers
// should be asserted: the short delay or ground fault is picked up.
func (e *Engine) ZoneInterlockOut() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.sd.PickedUp() || e.gf.PickedUp()
}

// WaveformDone tells the engine the recorder finished a waveform capture so
// that the next one can be armed.
func (e *Engine) WaveformDone(kind events.WaveformKind) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if kind == events.TripWaveform {
		e.tripWaveform.Done()
		return
	}
	e.alarmWaveform.Done()
}

// RestoreThermal reconstructs the long-delay tally after a loss of power
// from the persisted record and the charge left on the thermal-memory
// capacitor. On error the tally is rebuilt from whatever could be read.
func (e *Engine) RestoreThermal(ctx context.Context, capFraction float64, store thermal.Store, charger thermal.Charger) error {
	set := e.set.Load()

	e.mu.Lock()
	defer e.mu.Unlock()

	tally, err := thermal.PowerUp(ctx, capFraction, set.LongDelay.TripThreshold, store, charger)
	t := e.ld.Tally()
	t.SetThreshold(set.LongDelay.TripThreshold)
	t.Set(tally)
	e.logger.Info("thermal memory restored",
		zap.Float64("capacitor", capFraction),
		zap.Float64("percent", t.Percent()))
	if err != nil {
		return fmt.Errorf("restoring thermal memory: %w", err)
	}
	return nil
}

// Returns the long-delay tally as a record for persistence.
func (e *Engine) ThermalRecord() thermal.Record {
	e.mu.Lock()
	defer e.mu.Unlock()
	return thermal.NewRecord(e.ld.Tally().Percent())
}

// SaveThermal persists the long-delay tally to store.
func (e *Engine) SaveThermal(ctx context.Context, store thermal.Store) error {
	if err := store.Save(ctx, e.ThermalRecord()); err != nil {
		return fmt.Errorf("saving thermal memory: %w", err)
	}
	return nil
}

// Returns the current or last disturbance record of id.
func (e *Engine) Capture(id capture.ID) capture.Record {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.captures.Record(id)
}
