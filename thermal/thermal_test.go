package thermal_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/synaptecltd/tripunit/thermal"
)

func TestTallyBounds(t *testing.T) {
	var tally thermal.Tally
	tally.SetThreshold(100)

	tally.Add(60, 1)
	tally.Add(60, 2)
	assert.Equal(t, 100.0, tally.Value())
	assert.True(t, tally.Full())
	assert.Equal(t, uint16(1000), tally.Bucket())

	max, at := tally.Max()
	assert.Equal(t, 100.0, max)
	assert.Equal(t, uint32(2), at)

	tally.Decay(250)
	assert.Equal(t, 0.0, tally.Value())

	tally.Add(80, 3)
	tally.SetThreshold(50)
	assert.Equal(t, 50.0, tally.Value())
	tally.Set(-5)
	assert.Equal(t, 0.0, tally.Value())
}

func TestRecordComplement(t *testing.T) {
	r := thermal.NewRecord(42.4)
	assert.Equal(t, uint16(42), r.Percent)
	assert.True(t, r.Valid())

	r.Complement++
	assert.False(t, r.Valid())
	assert.False(t, thermal.Record{}.Valid())
	assert.Equal(t, uint16(100), thermal.NewRecord(250).Percent)
}

type orderedCharger struct {
	store   *thermal.MemoryStore
	atStart thermal.Record
	enabled bool
}

func (c *orderedCharger) EnableCharging() {
	c.atStart, _ = c.store.Load(context.Background())
	c.enabled = true
}

func TestPowerUp(t *testing.T) {
	testCases := []struct {
		name       string
		record     thermal.Record
		capacitor  float64
		expected   float64
		persisted  uint16
	}{
		{name: "half charged at 80%", record: thermal.NewRecord(80), capacitor: 0.5, expected: 400, persisted: 40},
		{name: "bad complement", record: thermal.Record{Percent: 80, Complement: 80}, capacitor: 1, expected: 0, persisted: 0},
		{name: "capacitor above full scale", record: thermal.NewRecord(50), capacitor: 1.7, expected: 500, persisted: 50},
		{name: "negative capacitor reading", record: thermal.NewRecord(50), capacitor: -0.2, expected: 0, persisted: 0},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			store := thermal.NewMemoryStore(tc.record)
			charger := &orderedCharger{store: store}

			tally, err := thermal.PowerUp(context.Background(), tc.capacitor, 1000, store, charger)
			require.NoError(t, err)
			assert.InDelta(t, tc.expected, tally, 1e-9)
			assert.True(t, charger.enabled)
			assert.Equal(t, tc.persisted, charger.atStart.Percent)
			assert.True(t, charger.atStart.Valid())
		})
	}
}

func TestPowerUpStaysBelowThreshold(t *testing.T) {
	store := thermal.NewMemoryStore(thermal.NewRecord(100))
	tally, err := thermal.PowerUp(context.Background(), 1, 1000, store, nil)
	require.NoError(t, err)
	assert.Less(t, tally, 1000.0)
	assert.InDelta(t, 1000.0, tally, 1e-9)
}

type failingStore struct{}

func (failingStore) Load(context.Context) (thermal.Record, error) {
	return thermal.Record{}, errors.New("unavailable")
}

func (failingStore) Save(context.Context, thermal.Record) error {
	return errors.New("unavailable")
}

func TestPowerUpStoreFailure(t *testing.T) {
	charger := &orderedCharger{store: thermal.NewMemoryStore(thermal.Record{})}
	tally, err := thermal.PowerUp(context.Background(), 1, 1000, failingStore{}, charger)
	assert.Error(t, err)
	assert.Equal(t, 0.0, tally)
	assert.True(t, charger.enabled)
}

func TestCapacitorFraction(t *testing.T) {
	assert.InDelta(t, 0.5, thermal.CapacitorFraction(thermal.VCapMax/2), 1e-9)
	assert.Equal(t, 1.0, thermal.CapacitorFraction(4095))
}

func TestRedisStoreUnreachable(t *testing.T) {
	cfg := thermal.DefaultRedisConfig("127.0.0.1:1")
	cfg.Timeout = 200 * time.Millisecond

	store, err := thermal.NewRedisStore(cfg)
	assert.Nil(t, store)
	assert.ErrorContains(t, err, "failed to connect to Redis")
}
