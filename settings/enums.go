package settings

import (
	"fmt"
	"strings"
)

// Action selects what a protection function does when it operates.
type Action uint8

const (
	Off Action = iota
	Trip
	Alarm
)

var actionNames = []string{"off", "trip", "alarm"}

func (a Action) String() string { return enumName(actionNames, a) }

func (a *Action) UnmarshalText(text []byte) error {
	return parseEnum(actionNames, text, "action", a)
}

func (a *Action) UnmarshalYAML(unmarshal func(interface{}) error) error {
	return unmarshalEnumYAML(unmarshal, a.UnmarshalText)
}

func (a Action) MarshalYAML() (interface{}, error) { return a.String(), nil }

// Sensing selects the ground-fault current source.
type Sensing uint8

const (
	Residual Sensing = iota // vector sum of the phase and neutral currents
	Source                  // external source-ground sensor
)

var sensingNames = []string{"residual", "source"}

func (s Sensing) String() string { return enumName(sensingNames, s) }

func (s *Sensing) UnmarshalText(text []byte) error {
	return parseEnum(sensingNames, text, "sensing", s)
}

func (s *Sensing) UnmarshalYAML(unmarshal func(interface{}) error) error {
	return unmarshalEnumYAML(unmarshal, s.UnmarshalText)
}

func (s Sensing) MarshalYAML() (interface{}, error) { return s.String(), nil }

// Feed is the power-flow direction of the installation. Reverse-fed
// breakers see forward power with the opposite sign.
type Feed uint8

const (
	Forward Feed = iota
	Reverse
)

var feedNames = []string{"forward", "reverse"}

func (f Feed) String() string { return enumName(feedNames, f) }

func (f *Feed) UnmarshalText(text []byte) error {
	return parseEnum(feedNames, text, "feed", f)
}

func (f *Feed) UnmarshalYAML(unmarshal func(interface{}) error) error {
	return unmarshalEnumYAML(unmarshal, f.UnmarshalText)
}

func (f Feed) MarshalYAML() (interface{}, error) { return f.String(), nil }

// Sign returns +1 for forward feed and -1 for reverse feed.
func (f Feed) Sign() float64 {
	if f == Reverse {
		return -1
	}
	return 1
}

func enumName[T ~uint8](names []string, v T) string {
	if int(v) < len(names) {
		return names[v]
	}
	return fmt.Sprintf("%d", uint8(v))
}

func parseEnum[T ~uint8](names []string, text []byte, what string, out *T) error {
	s := strings.ToLower(strings.TrimSpace(string(text)))
	for i, name := range names {
		if name == s {
			*out = T(i)
			return nil
		}
	}
	return fmt.Errorf("unknown %s: %q", what, text)
}

func unmarshalEnumYAML(unmarshal func(interface{}) error, parse func([]byte) error) error {
	var name string
	if err := unmarshal(&name); err != nil {
		return err
	}
	return parse([]byte(name))
}
