package sensor

import (
	"context"
	"errors"
	"math"
	"math/rand/v2"
	"sync"
)

// Sample is one read of a hardware source: a value per measured kind.
type Sample map[Kind]float64

// Hardware is a physical (or simulated) measurement source.
type Hardware interface {
	// Type returns the hardware tag sensors bind to, e.g. "sht4x".
	Type() string

	// Detect reports whether the device answers. Called once at startup.
	Detect(ctx context.Context) error

	// Read takes one measurement.
	Read(ctx context.Context) (Sample, error)
}

// ErrHardwareAbsent is returned by Detect when no device answers.
var ErrHardwareAbsent = errors.New("sensor: hardware not present")

// Simulated produces a slow random walk around typical grow-tent values.
// It lets the controller run end to end on a machine with no sensor bus.
type Simulated struct {
	mu    sync.Mutex
	rng   *rand.Rand
	state Sample
}

// NewSimulated returns a simulated source. The same seed yields the same
// sequence of samples.
func NewSimulated(seed uint64) *Simulated {
	return &Simulated{
		rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		state: Sample{
			KindTemperature: 24.0,
			KindHumidity:    60.0,
			KindCO2:         800.0,
			KindLight:       400.0,
		},
	}
}

// Type returns "simulated".
func (s *Simulated) Type() string { return HardwareSimulated }

// Detect always succeeds.
func (s *Simulated) Detect(context.Context) error { return nil }

type walk struct {
	step, lo, hi float64
}

// simulatedWalks is a slice so the random draws happen in a fixed order.
var simulatedWalks = []struct {
	kind Kind
	walk
}{
	{KindTemperature, walk{step: 0.2, lo: 18, hi: 32}},
	{KindHumidity, walk{step: 0.8, lo: 35, hi: 85}},
	{KindCO2, walk{step: 15, lo: 400, hi: 1600}},
	{KindLight, walk{step: 10, lo: 0, hi: 1200}},
}

// Read advances the walk one step and returns the new values.
func (s *Simulated) Read(ctx context.Context) (Sample, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(Sample, len(s.state))
	for _, w := range simulatedWalks {
		kind := w.kind
		v := s.state[kind] + (s.rng.Float64()*2-1)*w.step
		v = math.Max(w.lo, math.Min(w.hi, v))
		s.state[kind] = v
		out[kind] = math.Round(v*100) / 100
	}
	return out, nil
}
