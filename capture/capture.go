package capture

import (
	"fmt"
	"math"

	"github.com/google/uuid"
)

// ID identifies the disturbance capture owned by one protection function.
type ID uint8

const (
	LongDelay ID = iota
	ShortDelay
	GroundFault

	// RelayBase is the first ID of the delay-timer functions. Each function
	// owns two IDs, one for its trip stage and one for its alarm stage.
	RelayBase ID = 8

	// MaxID bounds the number of captures that can be tracked.
	MaxID ID = 64
)

// BucketFull is the trip bucket of a capture that reached its trip point.
const BucketFull = 1000

func (id ID) String() string {
	switch id {
	case LongDelay:
		return "long-delay"
	case ShortDelay:
		return "short-delay"
	case GroundFault:
		return "ground-fault"
	}
	if id >= RelayBase && id < MaxID {
		return fmt.Sprintf("relay-%d", id-RelayBase)
	}
	return fmt.Sprintf("ID(%d)", uint8(id))
}

func (id ID) mask() uint64 {
	return 1 << uint64(id)
}

// Processing selects how the value of interest is reduced over a capture.
type Processing uint8

const (
	Maximum Processing = iota
	Minimum
)

// Record describes one disturbance capture.
type Record struct {
	ID        ID
	EventID   uuid.UUID // event that opened the capture
	Entry     uint32    // counter at open
	Exit      uint32    // counter at close or cancel
	Extreme   float64   // max or min of the value of interest
	Mean      float64
	Bucket    uint16 // tenths of a percent of the trip point reached, 0-1000
	Cancelled bool

	processing   Processing
	observations int
	sum          float64
}

// Duration returns the number of counter ticks the capture spanned.
func (r *Record) Duration() uint32 {
	return r.Exit - r.Entry
}

// Sink receives finished captures and the external global-capture message.
type Sink interface {
	Disturbance(r Record)
	GlobalCapture(holder ID, active bool)
}

// Coordinator tracks which functions have a disturbance capture open. Opening
// an open capture, or closing or cancelling one that is not open, does nothing.
// At most one function at a time holds the global capture.
type Coordinator struct {
	sink      Sink
	active    uint64
	cancelled uint64
	records   [MaxID]Record

	global     ID
	globalHeld bool
}

// New returns a coordinator reporting to sink, which may be nil.
func New(sink Sink) *Coordinator {
	return &Coordinator{sink: sink}
}

// Returns the bitmask of open captures.
func (c *Coordinator) Active() uint64 {
	return c.active
}

// Returns the bitmask of captures whose last window was cancelled.
func (c *Coordinator) Cancelled() uint64 {
	return c.cancelled
}

// IsOpen reports whether id has a capture open.
func (c *Coordinator) IsOpen(id ID) bool {
	return id < MaxID && c.active&id.mask() != 0
}

// Returns the current or last record of id.
func (c *Coordinator) Record(id ID) Record {
	if id >= MaxID {
		return Record{}
	}
	return c.records[id]
}

// Open starts a capture for id attributed to eventID. It returns false when
// the capture was already open.
func (c *Coordinator) Open(id ID, eventID uuid.UUID, counter uint32, p Processing) bool {
	if id >= MaxID || c.IsOpen(id) {
		return false
	}
	c.active |= id.mask()
	c.cancelled &^= id.mask()

	extreme := math.Inf(-1)
	if p == Minimum {
		extreme = math.Inf(1)
	}
	c.records[id] = Record{
		ID:         id,
		EventID:    eventID,
		Entry:      counter,
		Extreme:    extreme,
		processing: p,
	}
	return true
}

// Observe folds a value of interest into an open capture.
func (c *Coordinator) Observe(id ID, v float64) {
	if !c.IsOpen(id) || math.IsNaN(v) {
		return
	}
	r := &c.records[id]
	if r.processing == Minimum {
		r.Extreme = math.Min(r.Extreme, v)
	} else {
		r.Extreme = math.Max(r.Extreme, v)
	}
	r.sum += v
	r.observations++
	r.Mean = r.sum / float64(r.observations)
}

// Close completes an open capture, recording bucket clamped to 0-1000.
func (c *Coordinator) Close(id ID, bucket int, counter uint32) bool {
	if !c.IsOpen(id) {
		return false
	}
	c.active &^= id.mask()

	r := &c.records[id]
	r.Exit = counter
	r.Bucket = uint16(min(max(bucket, 0), BucketFull))
	c.finish(r)
	return true
}

// Cancel drops an open capture without completing it.
func (c *Coordinator) Cancel(id ID, counter uint32) bool {
	if !c.IsOpen(id) {
		return false
	}
	c.active &^= id.mask()
	c.cancelled |= id.mask()

	r := &c.records[id]
	r.Exit = counter
	r.Cancelled = true
	c.finish(r)
	return true
}

func (c *Coordinator) finish(r *Record) {
	if r.observations == 0 {
		r.Extreme = 0
	}
	if c.sink != nil {
		c.sink.Disturbance(*r)
	}
}

// AcquireGlobal requests the global capture for id. It succeeds when no one
// holds it or id already does.
func (c *Coordinator) AcquireGlobal(id ID) bool {
	if c.globalHeld {
		return c.global == id
	}
	c.global, c.globalHeld = id, true
	if c.sink != nil {
		c.sink.GlobalCapture(id, true)
	}
	return true
}

// ReleaseGlobal gives up the global capture. Only the holder can release it.
func (c *Coordinator) ReleaseGlobal(id ID) bool {
	if !c.globalHeld || c.global != id {
		return false
	}
	c.globalHeld = false
	if c.sink != nil {
		c.sink.GlobalCapture(id, false)
	}
	return true
}

// Returns the holder of the global capture, if any.
func (c *Coordinator) GlobalHolder() (ID, bool) {
	return c.global, c.globalHeld
}

// Bucket converts progress towards a target into tenths of a percent, 0-1000.
func Bucket(progress, target float64) int {
	if target <= 0 {
		return BucketFull
	}
	return int(math.Min(math.Max(math.Round(progress/target*1000), 0), BucketFull))
}
