package curves_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/synaptecltd/tripunit/curves"
	"gopkg.in/yaml.v2"
)

func TestIncrement(t *testing.T) {
	testCases := []struct {
		name     string
		family   curves.Family
		x        float64 // per-unit current I/Ir
		expected float64
	}{
		{name: "i05t", family: curves.ISqrtT, x: 4, expected: 2},
		{name: "it", family: curves.IT, x: 3, expected: 3},
		{name: "i2t", family: curves.I2T, x: 3, expected: 9},
		{name: "i4t", family: curves.I4T, x: 2, expected: 16},
		{name: "iec-a at 2x", family: curves.IECStandardInverse, x: 2, expected: math.Pow(2, 0.02) - 1},
		{name: "iec-b at 2x", family: curves.IECVeryInverse, x: 2, expected: 1},
		{name: "iec-c at 2x", family: curves.IECExtremelyInverse, x: 2, expected: 3},
		{name: "ieee-mi below Ir", family: curves.IEEEModeratelyInverse, x: 0.8, expected: 0},
		{name: "zero current", family: curves.I2T, x: 0, expected: 0},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.InDelta(t, tc.expected, tc.family.Increment(tc.x*tc.x), 1e-9)
		})
	}
}

func TestIECStandardInverseTripTime(t *testing.T) {
	// IEC-A at 2x pickup with TMS 1 trips in 0.14/(2^0.02-1) seconds
	f := curves.IECStandardInverse
	threshold := f.TripThreshold(1.0, 60)
	cycles := threshold / f.Increment(4)
	assert.InDelta(t, 0.14/(math.Pow(2, 0.02)-1), cycles/60, 1e-9)
	assert.Equal(t, 0, f.BDelayCycles(1.0, 60))
}

func TestIEEEBDelay(t *testing.T) {
	assert.Equal(t, 29, curves.IEEEVeryInverse.BDelayCycles(1.0, 60))
	assert.Equal(t, 0, curves.I2T.BDelayCycles(1.0, 60))
}

func TestSimpleTripThreshold(t *testing.T) {
	// at 6x Ir an I2t curve with a 2 s setting trips in 2 s
	threshold := curves.I2T.TripThreshold(2, 60)
	assert.InDelta(t, 120.0, threshold/curves.I2T.Increment(36), 1e-9)
}

func TestFamilyFromName(t *testing.T) {
	for _, name := range curves.FamilyNames() {
		f, err := curves.FamilyFromName(name)
		require.NoError(t, err)
		assert.Equal(t, name, f.String())
	}

	_, err := curves.FamilyFromName("not_a_curve")
	assert.Error(t, err)
}

func TestFamilyYAML(t *testing.T) {
	var v struct {
		ByName curves.Family `yaml:"ByName"`
		ByCode curves.Family `yaml:"ByCode"`
		Slope  curves.Slope  `yaml:"Slope"`
	}
	err := yaml.Unmarshal([]byte("ByName: iec-b\nByCode: 3\nSlope: i2t\n"), &v)
	require.NoError(t, err)
	assert.Equal(t, curves.IECVeryInverse, v.ByName)
	assert.Equal(t, curves.I4T, v.ByCode)
	assert.Equal(t, curves.I2tSlope, v.Slope)

	err = yaml.Unmarshal([]byte("ByName: 42\n"), &v)
	assert.Error(t, err)
}
