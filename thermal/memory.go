package thermal

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
)

// VCapMax is the full-charge reading of the thermal-memory capacitor in ADC counts.
const VCapMax = 3328

// Record is the persisted thermal-memory level. Complement must be the bitwise
// complement of Percent for the record to be trusted.
type Record struct {
	Percent    uint16
	Complement uint16
}

// NewRecord returns a record for the given percentage, rounded and clamped to 0-100.
func NewRecord(percent float64) Record {
	p := uint16(math.Round(math.Min(math.Max(percent, 0), 100)))
	return Record{Percent: p, Complement: ^p}
}

// Valid reports whether the complement check passes.
func (r Record) Valid() bool {
	return r.Percent <= 100 && r.Complement == ^r.Percent
}

// Store persists a Record across power cycles.
type Store interface {
	Load(ctx context.Context) (Record, error)
	Save(ctx context.Context, r Record) error
}

// Charger controls the circuit that charges the thermal-memory capacitor.
type Charger interface {
	EnableCharging()
}

// CapacitorFraction converts a capacitor reading in ADC counts to a fraction of full charge.
func CapacitorFraction(counts uint16) float64 {
	return math.Min(float64(counts)/VCapMax, 1)
}

// PowerUp reconstructs the long-delay tally after a loss of power. The tally
// is threshold x capacitor fraction x persisted percentage, kept strictly
// below the threshold. The reconstructed level is written back to the store
// before the charger is re-enabled. A record failing its complement check is
// treated as 0 %.
func PowerUp(ctx context.Context, capFraction, threshold float64, store Store, charger Charger) (float64, error) {
	var errs []error

	rec, err := store.Load(ctx)
	if err != nil {
		errs = append(errs, fmt.Errorf("loading thermal memory: %w", err))
		rec = Record{}
	}

	pct := 0.0
	if rec.Valid() {
		pct = float64(rec.Percent)
	}
	capFraction = math.Min(math.Max(capFraction, 0), 1)

	tally := threshold * capFraction * pct / 100
	if threshold > 0 && tally >= threshold {
		tally = math.Nextafter(threshold, 0)
	}
	tally = math.Max(tally, 0)

	out := NewRecord(0)
	if threshold > 0 {
		out = NewRecord(tally / threshold * 100)
	}
	if err := store.Save(ctx, out); err != nil {
		errs = append(errs, fmt.Errorf("saving thermal memory: %w", err))
	}

	if charger != nil {
		charger.EnableCharging()
	}

	return tally, errors.Join(errs...)
}

// MemoryStore keeps the record in process memory.
type MemoryStore struct {
	mu  sync.Mutex
	rec Record
}

func NewMemoryStore(r Record) *MemoryStore {
	return &MemoryStore{rec: r}
}

func (m *MemoryStore) Load(_ context.Context) (Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rec, nil
}

func (m *MemoryStore) Save(_ context.Context, r Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rec = r
	return nil
}
