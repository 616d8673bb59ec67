package tripunit_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/synaptecltd/tripunit"
	"github.com/synaptecltd/tripunit/capture"
	"github.com/synaptecltd/tripunit/curves"
	"github.com/synaptecltd/tripunit/events"
	"github.com/synaptecltd/tripunit/metering"
	"github.com/synaptecltd/tripunit/settings"
	"github.com/synaptecltd/tripunit/thermal"
	"github.com/synaptecltd/tripunit/trip"
	"go.uber.org/zap/zaptest"
)

type actuator struct {
	causes     []trip.Cause
	transients []bool
}

func (a *actuator) Open(c trip.Cause) {
	a.causes = append(a.causes, c)
}

func (a *actuator) Transient(active bool) {
	a.transients = append(a.transients, active)
}

func newEngine(t *testing.T, s settings.Settings) (*tripunit.Engine, *events.MemoryRecorder, *actuator) {
	t.Helper()
	rec := events.NewMemoryRecorder(zaptest.NewLogger(t))
	act := &actuator{}
	e := tripunit.New(s,
		tripunit.WithLogger(zaptest.NewLogger(t)),
		tripunit.WithRecorder(rec),
		tripunit.WithActuator(act),
		tripunit.WithClock(func() time.Time { return time.Unix(1700000000, 0) }),
	)
	return e, rec, act
}

func phaseSample(counter uint32, amps float64) *metering.Sample {
	s := &metering.Sample{Counter: counter}
	s.HalfCycleSOS[metering.A] = amps * amps * metering.SamplesPerHalfCycle
	s.OneCycleSOS[metering.A] = amps * amps * metering.SamplesPerCycle
	return s
}

func voltageCycle(counter uint32, volts float64) *metering.Cycle {
	c := &metering.Cycle{Counter: counter, BreakerClosed: true}
	c.VoltageLL = [3]float64{volts, volts, volts}
	return c
}

func TestInstantaneousTripThroughEngine(t *testing.T) {
	e, rec, act := newEngine(t, settings.Default())

	var at uint32
	for i := uint32(1); i <= 10; i++ {
		if e.Sample(phaseSample(i, 10000)) {
			at = i
			break
		}
	}
	require.Equal(t, uint32(3), at)

	flags := e.Flags()
	assert.True(t, flags.Causes.Has(trip.Instantaneous))
	assert.True(t, flags.TripRequest)
	assert.True(t, flags.Bell)
	assert.Equal(t, []trip.Cause{trip.Instantaneous}, act.causes)
	assert.Equal(t, []events.WaveformKind{events.TripWaveform}, rec.Waveforms())

	trips := rec.EventsWithCode(events.InstantaneousTrip)
	require.Len(t, trips, 1)
	assert.Equal(t, uint32(3), trips[0].Counter)
	assert.Equal(t, time.Unix(1700000000, 0), trips[0].Time)
	assert.InDelta(t, 10000.0, trips[0].Value, 1e-6)
}

func TestHoldoffBlocksFurtherTrips(t *testing.T) {
	e, rec, act := newEngine(t, settings.Default())
	holdoff := uint32(e.Thresholds().HoldoffSamples)
	require.Equal(t, uint32(2400), holdoff)

	// the fault persists: every function that picks up is refused
	var counter uint32
	for counter = 1; counter < 3+holdoff; counter++ {
		e.Sample(phaseSample(counter, 10000))
	}
	assert.Len(t, act.causes, 1)
	assert.True(t, e.HeldOff(counter-1))
	assert.Equal(t, []bool{true}, act.transients)

	// the transient output drops with the hold-off
	assert.False(t, e.HeldOff(3+holdoff))
	assert.Equal(t, []bool{true, false}, act.transients)

	assert.True(t, e.Sample(phaseSample(3+holdoff, 10000)))
	assert.Len(t, act.causes, 2)
	assert.Equal(t, []bool{true, false, true}, act.transients)

	// the trip waveform stays latched until the recorder reports it done
	assert.Len(t, rec.Waveforms(), 1)
}

func TestTransientDropsOnNextPassAfterHoldoff(t *testing.T) {
	e, _, act := newEngine(t, settings.Default())
	holdoff := uint32(e.Thresholds().HoldoffSamples)

	for i := uint32(1); i <= 3; i++ {
		e.Sample(phaseSample(i, 10000))
	}
	for i := uint32(4); i < 3+holdoff; i++ {
		e.Sample(phaseSample(i, 0))
	}
	assert.Equal(t, []bool{true}, act.transients)

	e.Sample(phaseSample(3+holdoff, 0))
	assert.Equal(t, []bool{true, false}, act.transients)
	e.Sample(phaseSample(4+holdoff, 0))
	assert.Equal(t, []bool{true, false}, act.transients)
}

func TestOverrideTripsOnFirstSample(t *testing.T) {
	e, rec, act := newEngine(t, settings.Default())

	assert.True(t, e.Sample(phaseSample(1, 60000)))
	assert.Equal(t, []trip.Cause{trip.Override}, act.causes)
	assert.True(t, e.Flags().Causes.Has(trip.Override))
	require.Len(t, rec.EventsWithCode(events.OverrideTrip), 1)
	assert.InDelta(t, 60000.0, rec.EventsWithCode(events.OverrideTrip)[0].Value, 1e-6)

	// instantaneous is held off by the override trip
	for i := uint32(2); i <= 10; i++ {
		assert.False(t, e.Sample(phaseSample(i, 60000)))
	}
	assert.Empty(t, rec.EventsWithCode(events.InstantaneousTrip))
}

func TestLoadAlarmsHeldOffAfterTrip(t *testing.T) {
	s := settings.Default()
	s.HighLoad.Level1 = 80 // 320 A over 6 cycles
	s.HighLoad.Time1 = 10
	e, _, _ := newEngine(t, s)
	require.Equal(t, 9600, e.Thresholds().AlarmHoldoff)

	for i := uint32(1); i <= 3; i++ {
		e.Sample(phaseSample(i, 10000))
	}
	require.True(t, e.Flags().Causes.Has(trip.Instantaneous))

	highLoadAt := -1
	preAlarmAt := -1
	for k := 1; k <= 140; k++ {
		c := &metering.Cycle{Counter: uint32(k * metering.SamplesPerCycle), BreakerClosed: true}
		c.Current[metering.A] = 350
		c.OneCycleSOS[metering.A] = 350 * 350 * metering.SamplesPerCycle
		c.Current[metering.GroundResidual] = 150
		e.Cycle(c)
		alarms := e.Flags().Alarms
		if highLoadAt < 0 && alarms.Has(trip.HighLoad1Alarm) {
			highLoadAt = k
		}
		if preAlarmAt < 0 && alarms.Has(trip.GroundFaultPreAlarm) {
			preAlarmAt = k
		}
	}

	// the alarm hold-off ends at sample 9603, so timing starts on cycle 121
	assert.Equal(t, 126, highLoadAt)
	// the pre-alarm is not held off
	assert.Equal(t, 18, preAlarmAt)
}

func TestGroundFaultAlarmHeldOffAfterTrip(t *testing.T) {
	s := settings.Default()
	s.GroundFault.Action = settings.Alarm
	s.GroundFault.PreAlarm = 0
	e, _, _ := newEngine(t, s)
	alarmHoldoff := uint32(e.Thresholds().AlarmHoldoff)

	for i := uint32(1); i <= 3; i++ {
		e.Sample(phaseSample(i, 10000))
	}
	residual := func(counter uint32) *metering.Sample {
		sample := &metering.Sample{Counter: counter}
		sample.HalfCycleSOS[metering.GroundResidual] = 400 * 400 * metering.SamplesPerHalfCycle
		sample.OneCycleSOS[metering.GroundResidual] = 400 * 400 * metering.SamplesPerCycle
		return sample
	}
	for i := uint32(4); i < 3+alarmHoldoff; i++ {
		e.Sample(residual(i))
	}
	assert.False(t, e.Flags().Alarms.Has(trip.GroundFaultAlarm))

	alarmed := false
	for i := 3 + alarmHoldoff; i < 3+alarmHoldoff+2000 && !alarmed; i++ {
		e.Sample(residual(i))
		alarmed = e.Flags().Alarms.Has(trip.GroundFaultAlarm)
	}
	assert.True(t, alarmed)
}

func TestTripWaveformRearmedAfterDone(t *testing.T) {
	e, rec, _ := newEngine(t, settings.Default())
	holdoff := uint32(e.Thresholds().HoldoffSamples)

	for i := uint32(1); i <= 3; i++ {
		e.Sample(phaseSample(i, 10000))
	}
	e.WaveformDone(events.TripWaveform)

	for i := uint32(4); i < 3+holdoff; i++ {
		e.Sample(phaseSample(i, 0))
	}
	var tripped bool
	for i := 3 + holdoff; i < 3+holdoff+5 && !tripped; i++ {
		tripped = e.Sample(phaseSample(i, 10000))
	}
	require.True(t, tripped)
	assert.Equal(t, []events.WaveformKind{events.TripWaveform, events.TripWaveform}, rec.Waveforms())
}

func TestResetFlagsRefusedWhileTripPending(t *testing.T) {
	e, _, _ := newEngine(t, settings.Default())
	for i := uint32(1); i <= 3; i++ {
		e.Sample(phaseSample(i, 10000))
	}

	assert.False(t, e.ResetFlags())
	assert.True(t, e.Flags().Causes.Has(trip.Instantaneous))

	e.AcknowledgeTrip()
	assert.True(t, e.ResetFlags())
	flags := e.Flags()
	assert.Zero(t, flags.Causes)
	assert.False(t, flags.Bell)
}

func TestRelayTripsSkippedDuringHoldoff(t *testing.T) {
	s := settings.Default()
	s.OverVoltage.Trip = settings.Stage{Enabled: true, Pickup: 1200, Time: 10}
	s.OverVoltage.Alarm = settings.Stage{Enabled: true, Pickup: 1100, Time: 10}
	e, _, act := newEngine(t, s)

	for i := uint32(1); i <= 3; i++ {
		e.Sample(phaseSample(i, 10000))
	}
	require.Len(t, act.causes, 1)

	tripAt := -1
	alarmAt := -1
	for k := 1; k <= 60; k++ {
		if e.Cycle(voltageCycle(uint32(k*metering.SamplesPerCycle), 600)) && tripAt < 0 {
			tripAt = k
		}
		if alarmAt < 0 && e.Flags().Alarms.Has(trip.OverVoltageAlarm) {
			alarmAt = k
		}
	}

	// hold-off ends at sample 2403; the trip stage starts timing on cycle 31
	assert.Equal(t, 36, tripAt)
	assert.Equal(t, 6, alarmAt)
	assert.Equal(t, []trip.Cause{trip.Instantaneous, trip.OverVoltage}, act.causes)
}

func TestGroundFaultAlarmDoesNotTrip(t *testing.T) {
	s := settings.Default()
	s.GroundFault.Action = settings.Alarm
	s.GroundFault.PreAlarm = 0
	e, rec, act := newEngine(t, s)

	alarmed := false
	for i := uint32(1); i <= 2000 && !alarmed; i++ {
		sample := &metering.Sample{Counter: i}
		sample.HalfCycleSOS[metering.GroundResidual] = 400 * 400 * metering.SamplesPerHalfCycle
		sample.OneCycleSOS[metering.GroundResidual] = 400 * 400 * metering.SamplesPerCycle
		assert.False(t, e.Sample(sample))
		alarmed = e.Flags().Alarms.Has(trip.GroundFaultAlarm)
	}

	assert.True(t, alarmed)
	assert.Empty(t, act.causes)
	assert.False(t, e.Flags().TripRequest)
	assert.Len(t, rec.EventsWithCode(events.GroundFaultAlarm), 1)
}

func TestZoneInterlockOutFollowsPickup(t *testing.T) {
	s := settings.Default()
	s.Instantaneous.Pickup = 0
	e, _, _ := newEngine(t, s)

	assert.False(t, e.ZoneInterlockOut())
	e.Sample(phaseSample(1, 1000))
	assert.True(t, e.ZoneInterlockOut())
	e.Sample(phaseSample(2, 0))
	assert.False(t, e.ZoneInterlockOut())
}

func TestLongDelayPickupAlarm(t *testing.T) {
	s := settings.Default()
	e, rec, _ := newEngine(t, s)

	c := &metering.Cycle{Counter: 80}
	c.OneCycleSOS[metering.A] = 600 * 600 * metering.SamplesPerCycle
	e.Cycle(c)

	flags := e.Flags()
	assert.True(t, flags.Alarms.Has(trip.LongDelayPickupAlarm))
	assert.True(t, flags.Pickups.Has(trip.LongDelay))
	assert.Len(t, rec.EventsWithCode(events.LongDelayPickup), 1)
	assert.Equal(t, uint32(80), e.Capture(capture.LongDelay).Entry)
}

func TestCurveChangeSuspendsLongDelay(t *testing.T) {
	s := settings.Default()
	e, rec, _ := newEngine(t, s)

	c := &metering.Cycle{Counter: 80}
	c.OneCycleSOS[metering.A] = 600 * 600 * metering.SamplesPerCycle
	e.Cycle(c)
	require.True(t, e.Flags().Pickups.Has(trip.LongDelay))

	s.LongDelay.Curve = curves.IEEEVeryInverse
	s.LongDelay.Time = 100
	require.NoError(t, e.Configure(s))

	// 600 A is above the inverse pickup too, so it picks up again afresh
	c = &metering.Cycle{Counter: 160}
	c.OneCycleSOS[metering.A] = 600 * 600 * metering.SamplesPerCycle
	e.Cycle(c)
	assert.True(t, e.Flags().Pickups.Has(trip.LongDelay))
	assert.Len(t, rec.EventsWithCode(events.LongDelayPickup), 2)
	assert.Empty(t, rec.EventsWithCode(events.LongDelayExit))

	var cancelled int
	for _, r := range rec.Disturbances() {
		if r.ID == capture.LongDelay && r.Cancelled {
			cancelled++
		}
	}
	assert.Equal(t, 1, cancelled)
}

func TestConfigureReportsReplacedSettings(t *testing.T) {
	e, _, _ := newEngine(t, settings.Default())

	s := settings.Default()
	s.System.Frequency = 55
	assert.Error(t, e.Configure(s))
	assert.Equal(t, 60.0, e.Thresholds().Frequency)

	s.System.Frequency = 50
	assert.NoError(t, e.Configure(s))
	assert.Equal(t, 50.0, e.Thresholds().Frequency)
}

func TestNewRepairsSettings(t *testing.T) {
	s := settings.Default()
	s.System.Frequency = 55
	s.Breaker.Rating = 0
	e, _, act := newEngine(t, s)

	assert.Equal(t, 60.0, e.Thresholds().Frequency)
	assert.Equal(t, 1000.0, e.Thresholds().In)
	for i := uint32(1); i <= 3; i++ {
		e.Sample(phaseSample(i, 10000))
	}
	assert.Equal(t, []trip.Cause{trip.Instantaneous}, act.causes)
}

func TestConfigureWhileRunning(t *testing.T) {
	e, _, _ := newEngine(t, settings.Default())

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		s := settings.Default()
		for i := 0; i < 100; i++ {
			s.ShortDelay.Pickup = uint16(20 + i%10)
			_ = e.Configure(s)
		}
	}()
	for i := uint32(1); i <= 1000; i++ {
		e.Sample(phaseSample(i, 100))
		if i%metering.SamplesPerCycle == 0 {
			e.Cycle(&metering.Cycle{Counter: i, Frequency: 60})
		}
	}
	wg.Wait()
	assert.False(t, e.Flags().TripRequest)
}

func TestRestoreThermal(t *testing.T) {
	testCases := []struct {
		name        string
		stored      thermal.Record
		capFraction float64
		percent     float64
	}{
		{"half charged capacitor", thermal.NewRecord(80), 0.5, 40},
		{"full capacitor", thermal.NewRecord(50), 1, 50},
		{"corrupt record", thermal.Record{Percent: 70, Complement: 70}, 1, 0},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			e, _, _ := newEngine(t, settings.Default())
			store := thermal.NewMemoryStore(tc.stored)

			require.NoError(t, e.RestoreThermal(context.Background(), tc.capFraction, store, nil))
			assert.Equal(t, uint16(tc.percent), e.ThermalRecord().Percent)

			saved, err := store.Load(context.Background())
			require.NoError(t, err)
			assert.Equal(t, thermal.NewRecord(tc.percent), saved)
		})
	}
}

func TestSaveThermal(t *testing.T) {
	e, _, _ := newEngine(t, settings.Default())
	store := thermal.NewMemoryStore(thermal.NewRecord(0))
	require.NoError(t, e.RestoreThermal(context.Background(), 1, thermal.NewMemoryStore(thermal.NewRecord(25)), nil))

	require.NoError(t, e.SaveThermal(context.Background(), store))
	rec, _ := store.Load(context.Background())
	assert.Equal(t, uint16(25), rec.Percent)
	assert.True(t, rec.Valid())
}
