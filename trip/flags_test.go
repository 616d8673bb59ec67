package trip_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/synaptecltd/tripunit/events"
	"github.com/synaptecltd/tripunit/trip"
)

func TestResetRefusedWhileTripPending(t *testing.T) {
	var f trip.Flags
	f.SetTrip(trip.ShortDelay)
	f.SetAlarm(trip.OverVoltageAlarm)

	assert.False(t, f.Reset())
	assert.True(t, f.Causes.Has(trip.ShortDelay))
	assert.True(t, f.Alarms.Has(trip.OverVoltageAlarm))

	f.AcknowledgeTrip()
	assert.True(t, f.Reset())
	assert.Zero(t, f.Causes)
	assert.Zero(t, f.Alarms)
	assert.False(t, f.Bell)
}

func TestPickupsSurviveReset(t *testing.T) {
	var f trip.Flags
	f.SetPickup(trip.LongDelay, true)
	f.SetPickup(trip.GroundFault, true)
	f.SetPickup(trip.GroundFault, false)

	assert.True(t, f.Reset())
	assert.True(t, f.Pickups.Has(trip.LongDelay))
	assert.False(t, f.Pickups.Has(trip.GroundFault))
}

func TestNames(t *testing.T) {
	var f trip.Flags
	f.SetTrip(trip.Instantaneous)
	f.SetTrip(trip.PhaseRotation)
	assert.Equal(t, "instantaneous|phase-rotation", f.Causes.String())
	assert.Equal(t, events.PhaseRotationTrip, trip.PhaseRotation.Code())
	assert.Equal(t, events.OverrideTrip, trip.Override.Code())

	f.SetAlarm(trip.HighLoad2Alarm)
	assert.Equal(t, "high-load-2", f.Alarms.String())
	assert.Equal(t, "Cause(99)", trip.Cause(99).String())
}
