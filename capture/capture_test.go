package capture_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/synaptecltd/tripunit/capture"
)

type sink struct {
	records []capture.Record
	global  []bool
}

func (s *sink) Disturbance(r capture.Record) {
	s.records = append(s.records, r)
}

func (s *sink) GlobalCapture(_ capture.ID, active bool) {
	s.global = append(s.global, active)
}

func TestOpenIsIdempotent(t *testing.T) {
	s := &sink{}
	c := capture.New(s)
	first := uuid.New()

	assert.True(t, c.Open(capture.ShortDelay, first, 10, capture.Maximum))
	assert.False(t, c.Open(capture.ShortDelay, uuid.New(), 20, capture.Maximum))
	assert.Equal(t, first, c.Record(capture.ShortDelay).EventID)
	assert.Equal(t, uint32(10), c.Record(capture.ShortDelay).Entry)
	assert.Equal(t, uint64(1)<<capture.ShortDelay, c.Active())
}

func TestCloseAndCancelWhenNotOpen(t *testing.T) {
	s := &sink{}
	c := capture.New(s)

	assert.False(t, c.Close(capture.LongDelay, 500, 1))
	assert.False(t, c.Cancel(capture.LongDelay, 1))
	assert.Empty(t, s.records)
	assert.Zero(t, c.Active())
	assert.Zero(t, c.Cancelled())
}

func TestCloseRecordsObservations(t *testing.T) {
	s := &sink{}
	c := capture.New(s)
	id := capture.RelayBase + 3

	c.Open(id, uuid.New(), 100, capture.Minimum)
	for _, v := range []float64{480, 420, 450} {
		c.Observe(id, v)
	}
	assert.True(t, c.Close(id, 500, 130))
	assert.False(t, c.Close(id, 500, 131))

	assert.Len(t, s.records, 1)
	r := s.records[0]
	assert.Equal(t, 420.0, r.Extreme)
	assert.InDelta(t, 450.0, r.Mean, 1e-9)
	assert.Equal(t, uint16(500), r.Bucket)
	assert.Equal(t, uint32(30), r.Duration())
	assert.False(t, r.Cancelled)
	assert.False(t, c.IsOpen(id))
}

func TestBucketClamp(t *testing.T) {
	testCases := []struct {
		name     string
		bucket   int
		expected uint16
	}{
		{name: "negative", bucket: -40, expected: 0},
		{name: "in range", bucket: 731, expected: 731},
		{name: "overflow", bucket: 4000, expected: 1000},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			c := capture.New(nil)
			c.Open(capture.GroundFault, uuid.New(), 0, capture.Maximum)
			c.Close(capture.GroundFault, tc.bucket, 1)
			assert.Equal(t, tc.expected, c.Record(capture.GroundFault).Bucket)
		})
	}

	assert.Equal(t, 1000, capture.Bucket(9, 4))
	assert.Equal(t, 0, capture.Bucket(-1, 4))
	assert.Equal(t, 500, capture.Bucket(30, 60))
	assert.Equal(t, 1000, capture.Bucket(1, 0))
}

func TestCancel(t *testing.T) {
	s := &sink{}
	c := capture.New(s)

	c.Open(capture.LongDelay, uuid.New(), 5, capture.Maximum)
	assert.True(t, c.Cancel(capture.LongDelay, 9))
	assert.False(t, c.Cancel(capture.LongDelay, 10))
	assert.Equal(t, uint64(1)<<capture.LongDelay, c.Cancelled())
	assert.True(t, s.records[0].Cancelled)
	assert.Equal(t, 0.0, s.records[0].Extreme)

	c.Open(capture.LongDelay, uuid.New(), 11, capture.Maximum)
	assert.Zero(t, c.Cancelled())
}

func TestGlobalCaptureOwnership(t *testing.T) {
	s := &sink{}
	c := capture.New(s)
	ov := capture.RelayBase + 1
	uv := capture.RelayBase + 3

	assert.True(t, c.AcquireGlobal(ov))
	assert.True(t, c.AcquireGlobal(ov))
	assert.False(t, c.AcquireGlobal(uv))
	assert.False(t, c.ReleaseGlobal(uv))

	holder, held := c.GlobalHolder()
	assert.True(t, held)
	assert.Equal(t, ov, holder)

	assert.True(t, c.ReleaseGlobal(ov))
	assert.False(t, c.ReleaseGlobal(ov))
	assert.True(t, c.AcquireGlobal(uv))
	assert.Equal(t, []bool{true, false, true}, s.global)
}
