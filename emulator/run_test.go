package emulator_test

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/synaptecltd/tripunit"
	"github.com/synaptecltd/tripunit/emulator"
	"github.com/synaptecltd/tripunit/events"
	"github.com/synaptecltd/tripunit/metering"
	"github.com/synaptecltd/tripunit/trip"
	"go.uber.org/zap/zaptest"
	"gotest.tools/v3/assert"
	is "gotest.tools/v3/assert/cmp"
)

const boltedFault = `
Name: bolted fault
Duration: 0.5
Current: 400
PowerFactor: 0.9
Events:
  - Kind: three_phase_fault
    At: 0.1
`

const groundFault = `
Name: arcing ground fault
Duration: 2
Current: 200
Settings:
  GroundFault:
    Pickup: 20
    Time: 10
Disturbances:
  - type: fault
    Target: ground
    StartDelay: 0.2
    Duration: 1.5
    Magnitude: 400
`

func newEngine(t *testing.T, s *emulator.Scenario) (*tripunit.Engine, *events.MemoryRecorder) {
	t.Helper()
	rec := events.NewMemoryRecorder(zaptest.NewLogger(t))
	e := tripunit.New(s.Settings, tripunit.WithRecorder(rec), tripunit.WithLogger(zaptest.NewLogger(t)))
	return e, rec
}

func TestBoltedFaultTripsInstantaneous(t *testing.T) {
	s, err := emulator.ParseScenario([]byte(boltedFault))
	assert.NilError(t, err)
	engine, rec := newEngine(t, s)

	res, err := emulator.Run(context.Background(), s, engine)
	assert.NilError(t, err)
	assert.Assert(t, res.Tripped())
	assert.Assert(t, res.FirstTrip() > 0.1 && res.FirstTrip() < 0.12, "tripped at %v", res.FirstTrip())
	assert.Assert(t, res.Samples < s.Samples())

	assert.Assert(t, engine.Flags().Causes.Has(trip.Instantaneous))
	assert.Check(t, is.Len(rec.EventsWithCode(events.InstantaneousTrip), 1))
}

func TestGroundFaultTripsAfterDelay(t *testing.T) {
	s, err := emulator.ParseScenario([]byte(groundFault))
	assert.NilError(t, err)
	assert.Equal(t, len(s.Disturbances), 1)
	engine, rec := newEngine(t, s)

	res, err := emulator.Run(context.Background(), s, engine)
	assert.NilError(t, err)
	assert.Assert(t, res.Tripped())
	// 100 ms of flat delay after the fault starts at 200 ms
	assert.Assert(t, res.FirstTrip() > 0.25 && res.FirstTrip() < 0.35, "tripped at %v", res.FirstTrip())
	assert.Assert(t, engine.Flags().Causes.Has(trip.GroundFault))
	assert.Check(t, is.Len(rec.EventsWithCode(events.GroundFaultTrip), 1))
}

func TestHealthyFeederDoesNotTrip(t *testing.T) {
	s, err := emulator.ParseScenario([]byte("Duration: 0.5\nCurrent: 300\nNoise: 0.001\nSeed: 3\n"))
	assert.NilError(t, err)
	engine, _ := newEngine(t, s)

	res, err := emulator.Run(context.Background(), s, engine)
	assert.NilError(t, err)
	assert.Assert(t, !res.Tripped())
	assert.Equal(t, res.Samples, 2400)
	assert.Assert(t, is.Nil(res.Trips))
}

type alwaysTrips struct{ cycles int }

func (a *alwaysTrips) Sample(*metering.Sample) bool { return false }
func (a *alwaysTrips) Cycle(*metering.Cycle) bool { a.cycles++; return true }

func TestRunOptions(t *testing.T) {
	s, err := emulator.ParseScenario([]byte("Duration: 0.1\nCurrent: 10\n"))
	assert.NilError(t, err)

	p := &alwaysTrips{}
	var seen int
	res, err := emulator.Run(context.Background(), s, p,
		emulator.UntilEnd(),
		emulator.EveryCycle(func(*metering.Cycle) { seen++ }),
	)
	assert.NilError(t, err)
	assert.Equal(t, res.Samples, 480)
	assert.Equal(t, len(res.Trips), 6)
	assert.Equal(t, seen, 6)
	assert.Equal(t, p.cycles, 6)
	assert.Assert(t, math.Abs(res.FirstTrip()-1.0/60) < 1e-9, "first trip at %v", res.FirstTrip())
}

func TestRunStopsAtFirstTrip(t *testing.T) {
	s, err := emulator.ParseScenario([]byte("Duration: 0.1\nCurrent: 10\n"))
	assert.NilError(t, err)

	res, err := emulator.Run(context.Background(), s, &alwaysTrips{})
	assert.NilError(t, err)
	assert.Equal(t, res.Samples, metering.SamplesPerCycle)
	assert.Equal(t, len(res.Trips), 1)
}

func TestRunCancelled(t *testing.T) {
	s, err := emulator.ParseScenario([]byte("Duration: 10\n"))
	assert.NilError(t, err)
	engine, _ := newEngine(t, s)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res, err := emulator.Run(ctx, s, engine)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, res.Samples, metering.SamplesPerCycle)
}

func TestRunRealTime(t *testing.T) {
	s, err := emulator.ParseScenario([]byte("Duration: 0.05\nCurrent: 10\n"))
	assert.NilError(t, err)
	engine, _ := newEngine(t, s)

	res, err := emulator.Run(context.Background(), s, engine, emulator.RealTime())
	assert.NilError(t, err)
	assert.Equal(t, res.Samples, 240)
}

func TestLoadScenario(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ground.yaml")
	assert.NilError(t, os.WriteFile(path, []byte(groundFault), 0o600))

	s, err := emulator.LoadScenario(path)
	assert.NilError(t, err)
	assert.Equal(t, s.Name, "arcing ground fault")
	assert.Equal(t, s.Settings.GroundFault.Time, uint16(10))
	// untouched settings keep their defaults
	assert.Equal(t, s.Settings.Breaker.Rating, uint16(1000))

	_, err = emulator.LoadScenario(filepath.Join(dir, "missing.yaml"))
	assert.ErrorContains(t, err, "reading scenario")
}

func TestParseScenarioErrors(t *testing.T) {
	testCases := []struct {
		name string
		yaml string
		want string
	}{
		{"negative duration", "Duration: -1\n", "duration"},
		{"power factor", "PowerFactor: 1.5\n", "power factor"},
		{"event after the end", "Duration: 1\nEvents:\n  - Kind: over_voltage\n    At: 2\n", "outside the run"},
		{"unknown key", "Currents: 5\n", "parsing scenario"},
		{"bad settings", "Settings:\n  System:\n    Frequency: 55\n", "system frequency"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := emulator.ParseScenario([]byte(tc.yaml))
			assert.ErrorContains(t, err, tc.want)
		})
	}
}
