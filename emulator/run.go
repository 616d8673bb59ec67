package emulator

import (
	"context"
	"math"
	"slices"
	"time"

	"github.com/synaptecltd/tripunit/metering"
)

// Protection consumes the measurement snapshots of a run. Both calls report
// whether a trip was issued.
type Protection interface {
	Sample(s *metering.Sample) bool
	Cycle(c *metering.Cycle) bool
}

// Result summarises a run.
type Result struct {
	Samples int       // samples emulated
	Trips   []float64 // seconds into the run of every reported trip
}

// Returns whether protection tripped during the run.
func (r *Result) Tripped() bool {
	return len(r.Trips) > 0
}

// Returns the time of the first trip in seconds, or NaN without a trip.
func (r *Result) FirstTrip() float64 {
	if len(r.Trips) == 0 {
		return math.NaN()
	}
	return r.Trips[0]
}

type runConfig struct {
	realTime   bool
	untilEnd   bool
	everyCycle func(c *metering.Cycle)
}

// RunOption configures a run.
type RunOption func(*runConfig)

// RealTime paces the run at one cycle per nominal cycle period.
func RealTime() RunOption {
	return func(c *runConfig) { c.realTime = true }
}

// UntilEnd keeps running after a trip until the scenario duration elapses.
func UntilEnd() RunOption {
	return func(c *runConfig) { c.untilEnd = true }
}

// EveryCycle calls fn with each completed cycle snapshot, after protection.
func EveryCycle(fn func(c *metering.Cycle)) RunOption {
	return func(c *runConfig) { c.everyCycle = fn }
}

// Run emulates the scenario through a sampling front end into p. It stops at
// the first trip unless UntilEnd is given, when the duration elapses, or when
// ctx is done, in which case the partial result is returned with ctx's error.
func Run(ctx context.Context, s *Scenario, p Protection, opts ...RunOption) (Result, error) {
	cfg := &runConfig{}
	for _, opt := range opts {
		opt(cfg)
	}

	fe, err := metering.NewFrontend(s.frequency())
	if err != nil {
		return Result{}, err
	}
	fe.BreakerClosed = !s.BreakerOpen
	fe.ZoneInterlock = s.Restrained

	e := s.Emulator()
	events := schedule(s.Events, e.Ts)

	var ticker *time.Ticker
	if cfg.realTime {
		ticker = time.NewTicker(time.Duration(float64(time.Second) / s.frequency()))
		defer ticker.Stop()
	}

	var res Result
	total := s.Samples()
	for n := 0; n < total; n++ {
		for len(events) > 0 && events[0].sample <= n {
			e.StartEvent(events[0].kind)
			events = events[1:]
		}

		e.Step()
		res.Samples++
		sampleValid, cycleDone := fe.Push(e.Raw())

		tripped := sampleValid && p.Sample(&fe.Sample)
		if cycleDone {
			if p.Cycle(&fe.Cycle) {
				tripped = true
			}
			if cfg.everyCycle != nil {
				cfg.everyCycle(&fe.Cycle)
			}
		}
		if tripped {
			res.Trips = append(res.Trips, float64(n+1)*e.Ts)
			if !cfg.untilEnd {
				return res, nil
			}
		}

		if n%metering.SamplesPerCycle != metering.SamplesPerCycle-1 {
			continue
		}
		if ticker != nil {
			select {
			case <-ctx.Done():
				return res, ctx.Err()
			case <-ticker.C:
			}
		} else if err := ctx.Err(); err != nil {
			return res, err
		}
	}
	return res, nil
}

type scheduled struct {
	sample int
	kind   EventKind
}

// Returns the events in the order they start, in samples.
func schedule(events []ScheduledEvent, Ts float64) []scheduled {
	out := make([]scheduled, 0, len(events))
	for _, ev := range events {
		out = append(out, scheduled{sample: int(math.Round(ev.At / Ts)), kind: ev.Kind})
	}
	slices.SortStableFunc(out, func(a, b scheduled) int {
		return a.sample - b.sample
	})
	return out
}
