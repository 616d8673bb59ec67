package disturbance

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/mitchellh/mapstructure"
)

// Unmarshals a yaml list of disturbances into the container, keying each by a new UUID.
func (c *Container) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var entries []map[string]interface{}
	if err := unmarshal(&entries); err != nil {
		return err
	}

	if *c == nil {
		*c = make(Container, len(entries))
	}
	for _, entry := range entries {
		d, err := createFromEntry(entry)
		if err != nil {
			return err
		}
		c.Add(d)
	}
	return nil
}

// Returns a decodeHook function that can be used to decode disturbances with
// mapstructure, for configuration solutions like spf13/viper.
func GetDecodeHook() mapstructure.DecodeHookFunc {
	return func(f reflect.Type, t reflect.Type, data interface{}) (interface{}, error) {
		if t == reflect.TypeOf((*Disturbance)(nil)).Elem() {
			return createFromEntry(data)
		}
		return data, nil
	}
}

// Decode builds a container from a list of generic maps.
func Decode(entries []interface{}) (Container, error) {
	c := make(Container, len(entries))
	for _, entry := range entries {
		d, err := createFromEntry(entry)
		if err != nil {
			return nil, err
		}
		c.Add(d)
	}
	return c, nil
}

// Creates a disturbance from an entry based on its "type" (or "Type") field.
func createFromEntry(entry interface{}) (Disturbance, error) {
	m, err := stringMap(entry)
	if err != nil {
		return nil, err
	}

	// some yaml parsers lower-case keys and some don't
	typeStr, ok := m["type"].(string)
	if !ok {
		typeStr, ok = m["Type"].(string)
		if !ok {
			return nil, errors.New("disturbance type field is missing or not a string")
		}
	}

	switch typeStr {
	case "trend":
		var params TrendParams
		if err := decodeParams(&params, m); err != nil {
			return nil, err
		}
		return NewTrend(params)
	case "fault":
		var params FaultParams
		if err := decodeParams(&params, m); err != nil {
			return nil, err
		}
		return NewFault(params)
	case "spike":
		var params SpikeParams
		if err := decodeParams(&params, m); err != nil {
			return nil, err
		}
		return NewSpike(params)
	}
	return nil, fmt.Errorf("unknown disturbance type: %s", typeStr)
}

// Use mapstructure to decode m into params.
func decodeParams[T any](params *T, m map[string]interface{}) error {
	delete(m, "type")
	delete(m, "Type")

	decoderConfig := &mapstructure.DecoderConfig{
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.TextUnmarshallerHookFunc(), // parses targets
		),
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		Result:           params,
	}
	decoder, err := mapstructure.NewDecoder(decoderConfig)
	if err != nil {
		return err
	}
	return decoder.Decode(m)
}

// stringMap accepts both map[string]interface{} and the
// map[interface{}]interface{} produced by yaml.v2 for nested maps.
func stringMap(entry interface{}) (map[string]interface{}, error) {
	switch m := entry.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(m))
		for k, v := range m {
			out[k] = v
		}
		return out, nil
	case map[interface{}]interface{}:
		out := make(map[string]interface{}, len(m))
		for k, v := range m {
			key, ok := k.(string)
			if !ok {
				return nil, fmt.Errorf("disturbance key %v is not a string", k)
			}
			out[key] = v
		}
		return out, nil
	}
	return nil, fmt.Errorf("disturbance entry cannot be parsed to a map: %v", entry)
}
