package emulator

import (
	"errors"
	"fmt"
	"math"
	"os"

	"github.com/synaptecltd/tripunit/disturbance"
	"github.com/synaptecltd/tripunit/metering"
	"github.com/synaptecltd/tripunit/settings"
	"gopkg.in/yaml.v2"
)

// Scenario describes one emulated run: the trip unit settings, the steady
// state of the feeder and what happens to it.
type Scenario struct {
	Name     string            `yaml:"Name"`
	Duration float64           `yaml:"Duration"` // seconds
	Seed     uint64            `yaml:"Seed"`
	Settings settings.Settings `yaml:"Settings"`

	Voltage     float64    `yaml:"Voltage"`     // line-line RMS, 0 uses the system voltage
	Current     float64    `yaml:"Current"`     // RMS load current per phase
	PowerFactor float64    `yaml:"PowerFactor"` // lagging, 0 for unity
	Unbalance   float64    `yaml:"Unbalance"`   // negative-sequence current, pu
	Noise       float64    `yaml:"Noise"`       // pu of each waveform
	Harmonics   []Harmonic `yaml:"Harmonics"`
	Restrained  bool       `yaml:"Restrained"` // zone-interlock input asserted
	BreakerOpen bool       `yaml:"BreakerOpen"`

	Events       []ScheduledEvent      `yaml:"Events"`
	Disturbances disturbance.Container `yaml:"Disturbances"`
}

// Harmonic is a current harmonic relative to the load current.
type Harmonic struct {
	Number    float64 `yaml:"Number"`
	Magnitude float64 `yaml:"Magnitude"` // pu
	Angle     float64 `yaml:"Angle"`     // degrees
}

// ScheduledEvent starts a built-in event at a time into the run.
type ScheduledEvent struct {
	Kind EventKind `yaml:"Kind"`
	At   float64   `yaml:"At"` // seconds
}

// LoadScenario reads a scenario from a YAML file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading scenario %s: %w", path, err)
	}
	s, err := ParseScenario(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// ParseScenario parses a YAML scenario. Settings missing from the scenario
// keep their factory defaults.
func ParseScenario(data []byte) (*Scenario, error) {
	s := &Scenario{
		Duration: 1,
		Settings: settings.Default(),
	}
	if err := yaml.UnmarshalStrict(data, s); err != nil {
		return nil, fmt.Errorf("parsing scenario: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Validate checks the scenario and its settings.
func (s *Scenario) Validate() error {
	var errs []error
	if s.Duration <= 0 || math.IsInf(s.Duration, 0) || math.IsNaN(s.Duration) {
		errs = append(errs, errors.New("duration must be a positive number of seconds"))
	}
	if s.PowerFactor < 0 || s.PowerFactor > 1 {
		errs = append(errs, fmt.Errorf("power factor %g outside 0-1", s.PowerFactor))
	}
	if s.Current < 0 || s.Voltage < 0 {
		errs = append(errs, errors.New("voltage and current must not be negative"))
	}
	for _, ev := range s.Events {
		if ev.At < 0 || ev.At > s.Duration {
			errs = append(errs, fmt.Errorf("%s at %gs is outside the run", ev.Kind, ev.At))
		}
	}
	if err := s.Settings.Validate(); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid scenario %q: %w", s.Name, errors.Join(errs...))
	}
	return nil
}

// Samples returns the number of samples the scenario runs for.
func (s *Scenario) Samples() int {
	return int(math.Round(s.Duration * s.frequency() * metering.SamplesPerCycle))
}

func (s *Scenario) frequency() float64 {
	return float64(s.Settings.System.Frequency)
}

// Emulator returns an emulator in the scenario's steady state, with its
// disturbances attached.
func (s *Scenario) Emulator() *Emulator {
	e := NewEmulator(s.frequency(), s.Seed)
	e.Rotation = s.Settings.System.Rotation
	e.Disturbances = s.Disturbances

	vll := s.Voltage
	if vll == 0 {
		vll = float64(s.Settings.System.Voltage)
	}
	e.V = &ThreePhaseEmulation{
		PosSeqMag: vll / math.Sqrt(3) * math.Sqrt2,
		NoiseMax:  s.Noise,
	}

	pf := s.PowerFactor
	if pf == 0 {
		pf = 1
	}
	e.I = &ThreePhaseEmulation{
		PosSeqMag:   s.Current * math.Sqrt2,
		PhaseOffset: -math.Acos(pf),
		NegSeqMag:   s.Unbalance,
		NoiseMax:    s.Noise,
	}
	for _, h := range s.Harmonics {
		e.I.HarmonicNumbers = append(e.I.HarmonicNumbers, h.Number)
		e.I.HarmonicMags = append(e.I.HarmonicMags, h.Magnitude)
		e.I.HarmonicAngs = append(e.I.HarmonicAngs, h.Angle*math.Pi/180)
	}
	return e
}
