package disturbance

import (
	"errors"

	"github.com/synaptecltd/tripunit/mathfuncs"
)

// Trend varies its target continuously along a shape, such as a load that
// creeps up over minutes or a voltage that sags and recovers.
type Trend struct {
	Base

	Magnitude float64 // peak change in the target
	Invert    bool    // multiplies the shape by -1
	Reverse   bool    // subtracts the shape from Magnitude, running it backwards

	// internal state
	shapeName      string
	shape          mathfuncs.Shape
	periodDuration float64 // period of the shape within each occurrence; Duration when 0
}

// TrendParams are the parameters of a trend disturbance.
type TrendParams struct {
	Name           string  `yaml:"Name"`
	Target         Target  `yaml:"Target"`
	Repeats        uint64  `yaml:"Repeats"` // 0 for infinite
	Off            bool    `yaml:"Off"`
	StartDelay     float64 `yaml:"StartDelay"`     // seconds before the trend begins, and between repeats
	Duration       float64 `yaml:"Duration"`       // seconds each trend lasts, 0 switches it off
	PeriodDuration float64 `yaml:"PeriodDuration"` // seconds, 0 uses Duration

	Magnitude float64 `yaml:"Magnitude"`
	Shape     string  `yaml:"Shape"` // empty defaults to "linear"
	Invert    bool    `yaml:"Invert"`
	Reverse   bool    `yaml:"Reverse"`
}

// Initialise the internal fields of a Trend when it is unmarshalled from yaml.
func (t *Trend) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var params TrendParams
	if err := unmarshal(&params); err != nil {
		return err
	}

	trend, err := NewTrend(params)
	if err != nil {
		return err
	}
	*t = *trend
	return nil
}

// Returns a Trend with the requested parameters, checking for invalid values.
func NewTrend(params TrendParams) (*Trend, error) {
	t := &Trend{}

	t.name = params.Name
	t.typeName = "trend"
	t.Magnitude = params.Magnitude
	t.Repeats = params.Repeats
	t.Invert = params.Invert
	t.Reverse = params.Reverse
	t.Off = params.Off // may be overridden by SetDuration

	if err := t.SetTarget(params.Target); err != nil {
		return nil, err
	}
	if err := t.SetDuration(params.Duration); err != nil {
		return nil, err
	}
	if err := t.SetStartDelay(params.StartDelay); err != nil {
		return nil, err
	}
	if err := t.SetShapeByName(params.Shape); err != nil {
		return nil, err
	}
	if err := t.SetPeriodDuration(params.PeriodDuration); err != nil {
		return nil, err
	}
	return t, nil
}

func (t *Trend) stepDisturbance(Ts float64) float64 {
	return t.step(Ts, func(elapsed float64) float64 {
		y := t.shape(elapsed, t.Magnitude, t.periodDuration)
		switch {
		case t.Reverse && t.Invert:
			return -(t.Magnitude - y)
		case t.Reverse:
			return t.Magnitude - y
		case t.Invert:
			return -y
		}
		return y
	})
}

// Sets the duration of each trend in seconds. A zero duration switches the
// trend off.
func (t *Trend) SetDuration(duration float64) error {
	if duration < 0 {
		return errors.New("duration must be positive value")
	}
	if duration == 0 {
		t.Off = true
	}
	t.duration = duration
	return nil
}

// Sets the period of the shape in seconds. Zero uses the trend duration.
func (t *Trend) SetPeriodDuration(periodDuration float64) error {
	if periodDuration < 0 {
		return errors.New("periodDuration must be positive value")
	}
	if periodDuration == 0 {
		t.periodDuration = t.duration
		return nil
	}
	t.periodDuration = periodDuration
	return nil
}

func (t *Trend) SetShapeByName(name string) error {
	return setShapeByName(name, "linear", &t.shapeName, &t.shape)
}

func (t *Trend) GetShapeName() string {
	return t.shapeName
}
