package disturbance

import (
	"errors"
	"math"
)

// Fault changes its target by a fixed amount for a bounded time: a short
// circuit, a ground fault, a lost phase or a frequency excursion. It occurs
// once unless Repeats says otherwise.
type Fault struct {
	Base

	Magnitude float64
	ramp      float64 // seconds to reach Magnitude, 0 for a step
}

// FaultParams are the parameters of a fault disturbance.
type FaultParams struct {
	Name       string  `yaml:"Name"`
	Target     Target  `yaml:"Target"`
	Repeats    uint64  `yaml:"Repeats"` // 0 means once
	Off        bool    `yaml:"Off"`
	StartDelay float64 `yaml:"StartDelay"`
	Duration   float64 `yaml:"Duration"` // seconds, must be positive
	Magnitude  float64 `yaml:"Magnitude"`
	Ramp       float64 `yaml:"Ramp"`
}

// Initialise the internal fields of a Fault when it is unmarshalled from yaml.
func (f *Fault) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var params FaultParams
	if err := unmarshal(&params); err != nil {
		return err
	}

	fault, err := NewFault(params)
	if err != nil {
		return err
	}
	*f = *fault
	return nil
}

// Returns a Fault with the requested parameters, checking for invalid values.
func NewFault(params FaultParams) (*Fault, error) {
	f := &Fault{}

	f.name = params.Name
	f.typeName = "fault"
	f.Magnitude = params.Magnitude
	f.Off = params.Off
	f.Repeats = max(params.Repeats, 1)

	if err := f.SetTarget(params.Target); err != nil {
		return nil, err
	}
	if err := f.SetDuration(params.Duration); err != nil {
		return nil, err
	}
	if err := f.SetStartDelay(params.StartDelay); err != nil {
		return nil, err
	}
	if err := f.SetRamp(params.Ramp); err != nil {
		return nil, err
	}
	return f, nil
}

func (f *Fault) stepDisturbance(Ts float64) float64 {
	return f.step(Ts, func(elapsed float64) float64 {
		if elapsed < f.ramp {
			return f.Magnitude * elapsed / f.ramp
		}
		return f.Magnitude
	})
}

// Sets the duration of the fault in seconds if duration > 0.
func (f *Fault) SetDuration(duration float64) error {
	if duration <= 0 || math.IsInf(duration, 0) {
		return errors.New("fault duration must be a positive number of seconds")
	}
	f.duration = duration
	return nil
}

// Sets the time taken to reach full magnitude, which cannot exceed the duration.
func (f *Fault) SetRamp(ramp float64) error {
	if ramp < 0 || ramp > f.duration {
		return errors.New("fault ramp must be between 0 and the fault duration")
	}
	f.ramp = ramp
	return nil
}

// Returns the time taken to reach full magnitude.
func (f *Fault) GetRamp() float64 {
	return f.ramp
}
