package disturbance

import (
	"errors"
	"math"
	"math/rand/v2"

	"github.com/synaptecltd/tripunit/mathfuncs"
)

// Spike produces single-sample impulses on its target with a probability
// each timestep: switching transients and sensor glitches that protection
// must ride through. Spikes are drawn from a seeded source so runs repeat.
type Spike struct {
	Base

	Magnitude     float64
	VaryMagnitude bool // scale each spike by the magnitude of a normal variate

	// Private fields have setters for invalid value checking
	probability float64 // chance of a spike in each time step
	spikeSign   float64 // -1 for only negative spikes, 1 for only positive, 0 for either
	magShape    string
	probShape   string

	// internal state
	magFunction  mathfuncs.Shape // modulates Magnitude over each burst, nil for constant
	probFunction mathfuncs.Shape // modulates probability over each burst, nil for constant
	rng          *rand.Rand
}

// SpikeParams are the parameters of a spike disturbance.
type SpikeParams struct {
	Name       string  `yaml:"Name"`
	Target     Target  `yaml:"Target"`
	Seed       uint64  `yaml:"Seed"`
	Repeats    uint64  `yaml:"Repeats"` // number of bursts, 0 for infinite
	Off        bool    `yaml:"Off"`
	StartDelay float64 `yaml:"StartDelay"` // seconds before the first burst, and between bursts
	Duration   float64 `yaml:"Duration"`   // seconds each burst lasts, 0 for continuous

	Magnitude     float64 `yaml:"Magnitude"`
	MagShape      string  `yaml:"MagShape"`
	VaryMagnitude bool    `yaml:"VaryMagnitude"`
	Sign          float64 `yaml:"Sign"`
	Probability   float64 `yaml:"Probability"`
	ProbShape     string  `yaml:"ProbShape"`
}

// Initialise the internal fields of a Spike when it is unmarshalled from yaml.
func (s *Spike) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var params SpikeParams
	if err := unmarshal(&params); err != nil {
		return err
	}

	spike, err := NewSpike(params)
	if err != nil {
		return err
	}
	*s = *spike
	return nil
}

// Returns a Spike with the requested parameters, checking for invalid values.
func NewSpike(params SpikeParams) (*Spike, error) {
	s := &Spike{}

	s.name = params.Name
	s.typeName = "spike"
	s.Magnitude = params.Magnitude
	s.VaryMagnitude = params.VaryMagnitude
	s.Repeats = params.Repeats
	s.Off = params.Off
	s.rng = rand.New(rand.NewPCG(params.Seed, params.Seed+1))

	if err := s.SetTarget(params.Target); err != nil {
		return nil, err
	}
	if err := s.SetStartDelay(params.StartDelay); err != nil {
		return nil, err
	}
	if err := s.SetProbability(params.Probability); err != nil {
		return nil, err
	}
	if err := s.SetSpikeSign(params.Sign); err != nil {
		return nil, err
	}
	if err := s.SetMagShapeByName(params.MagShape); err != nil {
		return nil, err
	}
	if err := s.SetProbShapeByName(params.ProbShape); err != nil {
		return nil, err
	}
	if err := s.SetDuration(params.Duration); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Spike) stepDisturbance(Ts float64) float64 {
	return s.step(Ts, func(elapsed float64) float64 {
		if s.rng.Float64() >= s.FetchProbability(elapsed) {
			s.isActive = false
			return 0
		}

		delta := s.Magnitude
		if s.magFunction != nil {
			delta = s.magFunction(elapsed, s.Magnitude, s.duration)
		}
		delta *= s.sign()
		if s.VaryMagnitude {
			delta *= math.Abs(s.rng.NormFloat64())
		}
		return delta
	})
}

// Returns the chance of a spike at elapsed seconds into a burst.
func (s *Spike) FetchProbability(elapsed float64) float64 {
	if s.probFunction == nil {
		return s.probability
	}
	return math.Abs(s.probFunction(elapsed, s.probability, s.duration))
}

// Returns -1 or +1 with odds set by spikeSign.
func (s *Spike) sign() float64 {
	if s.rng.Float64()*2-1 > s.spikeSign {
		return -1
	}
	return 1
}

// Sets the duration of each burst in seconds, 0 for continuous. Shapes need
// a finite burst to scale over.
func (s *Spike) SetDuration(duration float64) error {
	if duration < 0 {
		return errors.New("duration must be positive value")
	}
	if duration == 0 && (s.magFunction != nil || s.probFunction != nil) {
		return errors.New("duration must be greater than 0 when a shape is used")
	}
	s.duration = duration
	return nil
}

// Sets the probability of a spike in each time step if 0 <= probability <= 1.
func (s *Spike) SetProbability(probability float64) error {
	if probability < 0 || probability > 1 {
		return errors.New("probability must be between 0 and 1")
	}
	s.probability = probability
	return nil
}

func (s *Spike) SetSpikeSign(spikeSign float64) error {
	if spikeSign < -1.0 || spikeSign > 1.0 {
		return errors.New("spike sign must be between -1 and 1")
	}
	s.spikeSign = spikeSign
	return nil
}

// Sets the shape modulating the spike magnitude; empty for none.
func (s *Spike) SetMagShapeByName(name string) error {
	if name == "" {
		s.magShape, s.magFunction = "", nil
		return nil
	}
	return setShapeByName(name, "", &s.magShape, &s.magFunction)
}

// Sets the shape modulating the spike probability; empty for none.
func (s *Spike) SetProbShapeByName(name string) error {
	if name == "" {
		s.probShape, s.probFunction = "", nil
		return nil
	}
	return setShapeByName(name, "", &s.probShape, &s.probFunction)
}

func (s *Spike) GetProbability() float64 {
	return s.probability
}

func (s *Spike) GetSpikeSign() float64 {
	return s.spikeSign
}

func (s *Spike) GetMagShapeName() string {
	return s.magShape
}

func (s *Spike) GetProbShapeName() string {
	return s.probShape
}
