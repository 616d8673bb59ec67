package disturbance

import (
	"errors"

	"github.com/synaptecltd/tripunit/mathfuncs"
)

// Base is the base struct for all disturbance types.
type Base struct {
	// Setters and getters are provided for private fields below to allow for error checking
	name       string
	typeName   string
	target     Target
	startDelay float64 // seconds before the disturbance begins, and between repeats
	duration   float64 // seconds each occurrence lasts, 0 for continuous
	Repeats    uint64  // number of occurrences, 0 for infinite
	Off        bool

	// internal state
	isActive              bool
	startDelayIndex       int     // time steps waited since the last occurrence ended
	elapsedActivatedIndex int     // time steps since the start of the active occurrence
	elapsedActivatedTime  float64 // seconds since the start of the active occurrence
	countRepeats          uint64
}

func (b *Base) GetName() string {
	return b.name
}

// Returns the type of disturbance as a string.
func (b *Base) TypeAsString() string {
	return b.typeName
}

func (b *Base) GetTarget() Target {
	return b.target
}

// Returns the start delay in seconds.
func (b *Base) GetStartDelay() float64 {
	return b.startDelay
}

// Returns the duration of each occurrence in seconds.
func (b *Base) GetDuration() float64 {
	return b.duration
}

// Returns whether the disturbance is acting on the waveform in this timestep.
func (b *Base) GetIsActive() bool {
	return b.isActive
}

// Returns the number of completed occurrences.
func (b *Base) GetCountRepeats() uint64 {
	return b.countRepeats
}

// Sets the start time in seconds if delay >= 0.
func (b *Base) SetStartDelay(startDelay float64) error {
	if startDelay < 0 {
		return errors.New("startDelay must be greater than or equal to 0")
	}
	b.startDelay = startDelay
	return nil
}

func (b *Base) SetTarget(t Target) error {
	if t >= NumTargets {
		return errors.New("unknown disturbance target")
	}
	b.target = t
	return nil
}

// Returns whether the disturbance should be active this timestep:
//  1. the start delay has elapsed, and;
//  2. not every repeat has been completed.
func (b *Base) checkActive(Ts float64) bool {
	moreRepeatsAllowed := b.countRepeats < b.Repeats || b.Repeats == 0
	if !moreRepeatsAllowed {
		b.Off = true
		return false
	}
	return b.startDelayIndex >= int(b.startDelay/Ts)-1
}

// advance moves the occurrence clock on by one step. It returns the elapsed
// time at the start of the step and whether the occurrence is finished.
func (b *Base) advance(Ts float64) (elapsed float64, done bool) {
	b.elapsedActivatedTime = float64(b.elapsedActivatedIndex) * Ts
	b.elapsedActivatedIndex++
	if b.duration > 0 && b.elapsedActivatedIndex >= int(b.duration/Ts) {
		b.elapsedActivatedIndex = 0
		b.startDelayIndex = 0
		b.countRepeats++
		return b.elapsedActivatedTime, true
	}
	return b.elapsedActivatedTime, false
}

// step runs the common activation logic and, when active, calls shape with
// the elapsed time of the occurrence.
func (b *Base) step(Ts float64, shape func(elapsed float64) float64) float64 {
	if b.Off {
		b.isActive = false
		return 0
	}
	b.isActive = b.checkActive(Ts)
	if !b.isActive {
		b.startDelayIndex++
		return 0
	}
	elapsed, _ := b.advance(Ts)
	return shape(elapsed)
}

// Looks up a shape by name, leaving the fields untouched on error.
func setShapeByName(name, fallback string, funcName *string, funcVar *mathfuncs.Shape) error {
	if name == "" {
		name = fallback
	}
	shape, err := mathfuncs.ShapeFromName(name)
	if err != nil {
		return err
	}
	*funcVar = shape
	*funcName = name
	return nil
}
