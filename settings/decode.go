package settings

import (
	"fmt"
	"os"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v2"
)

// Load reads settings from a YAML file. Keys missing from the file keep
// their factory defaults.
func Load(path string) (Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, fmt.Errorf("reading settings %s: %w", path, err)
	}
	s, err := LoadFromBytes(data)
	if err != nil {
		return Settings{}, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// LoadFromBytes parses YAML settings on top of the factory defaults.
func LoadFromBytes(data []byte) (Settings, error) {
	s := Default()
	if err := yaml.UnmarshalStrict(data, &s); err != nil {
		return Settings{}, fmt.Errorf("parsing settings: %w", err)
	}
	return s, nil
}

// Returns a decode hook that parses the text form of the settings enums.
// This supports configuration solutions like spf13/viper that use
// mapstructure to unmarshal yaml files.
func GetDecodeHook() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		mapstructure.TextUnmarshallerHookFunc(), // curve families, slopes, actions, rotation
	)
}

// Decode builds settings from a generic map on top of the factory defaults.
func Decode(m map[string]interface{}) (Settings, error) {
	s := Default()
	decoderConfig := &mapstructure.DecoderConfig{
		DecodeHook:  GetDecodeHook(),
		TagName:     "yaml",
		ErrorUnused: true,
		Result:      &s,
	}
	decoder, err := mapstructure.NewDecoder(decoderConfig)
	if err != nil {
		return Settings{}, err
	}
	if err := decoder.Decode(m); err != nil {
		return Settings{}, fmt.Errorf("decoding settings: %w", err)
	}
	return s, nil
}
