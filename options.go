package tripunit

import (
	"time"

	"github.com/google/uuid"
	"github.com/synaptecltd/tripunit/capture"
	"github.com/synaptecltd/tripunit/events"
	"github.com/synaptecltd/tripunit/trip"
	"go.uber.org/zap"
)

// Actuator opens the breaker. Open is called once per accepted trip.
// Transient(true) follows it and Transient(false) is called when the trip
// hold-off ends, bracketing the pulse to the transient actuator.
type Actuator interface {
	Open(c trip.Cause)
	Transient(active bool)
}

type engineConfig struct {
	logger   *zap.Logger
	recorder events.Recorder
	actuator Actuator
	now      func() time.Time
}

// Option configures an Engine.
type Option func(*engineConfig)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *engineConfig) { c.logger = l }
}

// WithRecorder sets the event log and capture collaborator.
func WithRecorder(r events.Recorder) Option {
	return func(c *engineConfig) { c.recorder = r }
}

// WithActuator sets the trip actuator.
func WithActuator(a Actuator) Option {
	return func(c *engineConfig) { c.actuator = a }
}

// WithClock sets the time source used to stamp events.
func WithClock(now func() time.Time) Option {
	return func(c *engineConfig) { c.now = now }
}

// discard is the recorder used when none is configured.
type discard struct{}

func (discard) Log(events.Event) {}
func (discard) RequestWaveform(events.WaveformKind, uuid.UUID) {}
func (discard) RequestExtendedCapture(events.Code, uuid.UUID) {}
func (discard) Disturbance(capture.Record) {}
func (discard) GlobalCapture(capture.ID, bool) {}
