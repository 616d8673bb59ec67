package events

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/synaptecltd/tripunit/capture"
	"go.uber.org/zap"
)

// Event is one entry of the protection event log. For exit events Value
// holds the trip bucket in tenths of a percent.
type Event struct {
	ID      uuid.UUID
	Code    Code
	Counter uint32
	Time    time.Time
	Value   float64
}

// WaveformKind selects the waveform capture buffer.
type WaveformKind uint8

const (
	TripWaveform WaveformKind = iota
	AlarmWaveform
)

func (k WaveformKind) String() string {
	if k == TripWaveform {
		return "trip"
	}
	return "alarm"
}

// Waveform latches a capture request until the recorder reports it finished.
type Waveform struct {
	busy bool
}

// Arm starts a capture unless one is already in progress.
func (w *Waveform) Arm() bool {
	if w.busy {
		return false
	}
	w.busy = true
	return true
}

// Done marks the capture finished.
func (w *Waveform) Done() {
	w.busy = false
}

// Returns whether a capture is in progress.
func (w *Waveform) InProgress() bool {
	return w.busy
}

// Recorder is the event log and capture hardware the engine reports to.
type Recorder interface {
	capture.Sink
	Log(ev Event)
	RequestWaveform(kind WaveformKind, eventID uuid.UUID)
	RequestExtendedCapture(code Code, eventID uuid.UUID)
}

// MemoryRecorder keeps everything it is told in memory and logs it.
type MemoryRecorder struct {
	logger *zap.Logger

	mu           sync.Mutex
	events       []Event
	disturbances []capture.Record
	waveforms    []WaveformKind
	extended     []Code
	global       []bool
}

// NewMemoryRecorder returns a recorder logging to logger, which may be nil.
func NewMemoryRecorder(logger *zap.Logger) *MemoryRecorder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MemoryRecorder{logger: logger}
}

func (m *MemoryRecorder) Log(ev Event) {
	m.mu.Lock()
	m.events = append(m.events, ev)
	m.mu.Unlock()

	fields := []zap.Field{
		zap.Uint16("code", uint16(ev.Code)),
		zap.Uint32("sample", ev.Counter),
		zap.Float64("value", ev.Value),
		zap.Stringer("id", ev.ID),
	}
	if ev.Code.IsTrip() {
		m.logger.Warn(ev.Code.String(), fields...)
		return
	}
	m.logger.Info(ev.Code.String(), fields...)
}

func (m *MemoryRecorder) RequestWaveform(kind WaveformKind, eventID uuid.UUID) {
	m.mu.Lock()
	m.waveforms = append(m.waveforms, kind)
	m.mu.Unlock()
	m.logger.Debug("waveform capture requested", zap.Stringer("kind", kind), zap.Stringer("event", eventID))
}

func (m *MemoryRecorder) RequestExtendedCapture(code Code, eventID uuid.UUID) {
	m.mu.Lock()
	m.extended = append(m.extended, code)
	m.mu.Unlock()
	m.logger.Debug("extended capture requested", zap.Stringer("cause", code), zap.Stringer("event", eventID))
}

func (m *MemoryRecorder) Disturbance(r capture.Record) {
	m.mu.Lock()
	m.disturbances = append(m.disturbances, r)
	m.mu.Unlock()
	m.logger.Debug("disturbance capture finished",
		zap.Stringer("function", r.ID),
		zap.Bool("cancelled", r.Cancelled),
		zap.Uint16("bucket", r.Bucket),
		zap.Uint32("duration", r.Duration()))
}

func (m *MemoryRecorder) GlobalCapture(holder capture.ID, active bool) {
	m.mu.Lock()
	m.global = append(m.global, active)
	m.mu.Unlock()
	m.logger.Info("global capture", zap.Stringer("holder", holder), zap.Bool("active", active))
}

// Returns a copy of the logged events.
func (m *MemoryRecorder) Events() []Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Event(nil), m.events...)
}

// Returns the logged events with the given code.
func (m *MemoryRecorder) EventsWithCode(code Code) []Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Event
	for _, ev := range m.events {
		if ev.Code == code {
			out = append(out, ev)
		}
	}
	return out
}

// Returns a copy of the finished disturbance captures.
func (m *MemoryRecorder) Disturbances() []capture.Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]capture.Record(nil), m.disturbances...)
}

// Returns the waveform capture requests in order.
func (m *MemoryRecorder) Waveforms() []WaveformKind {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]WaveformKind(nil), m.waveforms...)
}

// Returns the extended capture requests in order.
func (m *MemoryRecorder) ExtendedCaptures() []Code {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Code(nil), m.extended...)
}

// Returns the global capture messages in order.
func (m *MemoryRecorder) GlobalMessages() []bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]bool(nil), m.global...)
}
