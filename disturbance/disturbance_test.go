package disturbance_test

import (
	"testing"

	"github.com/mitchellh/mapstructure"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/synaptecltd/tripunit/disturbance"
	"gopkg.in/yaml.v2"
)

func TestUnmarshalYAML(t *testing.T) {
	yamlStr := `
- type: trend
  Name: overload
  Target: current
  StartDelay: 1.5
  Duration: 60
  Magnitude: 400
  Shape: exponential
- Type: fault
  Name: bolted
  Target: ground
  Duration: 0.5
  Magnitude: 300
  Ramp: 0.1
`
	var container disturbance.Container
	err := yaml.Unmarshal([]byte(yamlStr), &container)
	require.NoError(t, err)
	require.Len(t, container, 2)

	byType := make(map[string]disturbance.Disturbance)
	for _, d := range container {
		byType[d.TypeAsString()] = d
	}

	trend, ok := byType["trend"].(*disturbance.Trend)
	require.True(t, ok)
	assert.Equal(t, "overload", trend.GetName())
	assert.Equal(t, disturbance.Current, trend.GetTarget())
	assert.Equal(t, 1.5, trend.GetStartDelay())
	assert.Equal(t, 60.0, trend.GetDuration())
	assert.Equal(t, "exponential", trend.GetShapeName())

	fault, ok := byType["fault"].(*disturbance.Fault)
	require.True(t, ok)
	assert.Equal(t, disturbance.GroundCurrent, fault.GetTarget())
	assert.Equal(t, 0.1, fault.GetRamp())
	assert.Equal(t, uint64(1), fault.Repeats)
}

func TestUnmarshalYAMLErrors(t *testing.T) {
	testCases := []struct {
		name string
		yaml string
	}{
		{"missing type", "- Name: x\n  Duration: 1\n"},
		{"unknown type", "- type: sag\n  Duration: 1\n"},
		{"unknown target", "- type: fault\n  Target: neutral\n  Duration: 1\n"},
		{"unknown field", "- type: trend\n  Duration: 1\n  Probability: 0.5\n"},
		{"invalid value", "- type: fault\n  Duration: -1\n"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var container disturbance.Container
			assert.Error(t, yaml.Unmarshal([]byte(tc.yaml), &container))
		})
	}
}

func TestDecodeHook(t *testing.T) {
	var out struct {
		Disturbances []disturbance.Disturbance
	}
	input := map[string]interface{}{
		"Disturbances": []interface{}{
			map[string]interface{}{"type": "fault", "Target": "frequency", "Duration": 2.0, "Magnitude": -1.5},
			map[interface{}]interface{}{"type": "trend", "Target": "voltage_a", "Duration": 10.0, "Magnitude": -50.0},
		},
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: disturbance.GetDecodeHook(),
		Result:     &out,
	})
	require.NoError(t, err)
	require.NoError(t, decoder.Decode(input))

	require.Len(t, out.Disturbances, 2)
	assert.Equal(t, "fault", out.Disturbances[0].TypeAsString())
	assert.Equal(t, disturbance.Frequency, out.Disturbances[0].GetTarget())
	assert.Equal(t, "trend", out.Disturbances[1].TypeAsString())
	assert.Equal(t, disturbance.PhaseAVoltage, out.Disturbances[1].GetTarget())
}

func TestStepAll(t *testing.T) {
	c, err := disturbance.Decode([]interface{}{
		map[string]interface{}{"type": "fault", "Target": "current", "Duration": 1.0, "Magnitude": 100.0},
		map[string]interface{}{"type": "fault", "Target": "current", "Duration": 1.0, "Magnitude": 50.0},
		map[string]interface{}{"type": "fault", "Target": "ground", "Duration": 1.0, "Magnitude": 7.0},
	})
	require.NoError(t, err)

	d := c.StepAll(0.25)
	assert.InDelta(t, 150, d[disturbance.Current], 1e-9)
	assert.InDelta(t, 7, d[disturbance.GroundCurrent], 1e-9)
	assert.Zero(t, d[disturbance.Voltage])
	assert.True(t, c.AnyActive())

	for range 4 {
		c.StepAll(0.25)
	}
	assert.False(t, c.AnyActive())
}

func TestTargetText(t *testing.T) {
	for target := disturbance.Target(0); target < disturbance.NumTargets; target++ {
		text, err := target.MarshalText()
		require.NoError(t, err)

		var parsed disturbance.Target
		require.NoError(t, parsed.UnmarshalText(text))
		assert.Equal(t, target, parsed)
	}
	assert.Equal(t, "Target(9)", disturbance.Target(9).String())
}
