package actuator

import (
	"context"
	"fmt"
	"strconv"
	"sync"
)

// RelayBank drives locally wired relays by pin number.
type RelayBank interface {
	Set(pin int, on bool) error
}

type relayDriver struct {
	bank RelayBank
}

func (d *relayDriver) Set(ctx context.Context, target string, on bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	pin, err := strconv.Atoi(target)
	if err != nil || pin < 0 {
		return fmt.Errorf("%w: relay pin %q", ErrInvalidTarget, target)
	}
	return d.bank.Set(pin, on)
}

// MemoryRelays is a RelayBank that only records pin states. It stands in
// for GPIO on hosts without relay hardware.
type MemoryRelays struct {
	mu      sync.Mutex
	allowed map[int]bool
	states  map[int]bool
}

// NewMemoryRelays returns a bank accepting the given pins. With no pins
// every non-negative pin is accepted.
func NewMemoryRelays(pins ...int) *MemoryRelays {
	m := &MemoryRelays{states: make(map[int]bool)}
	if len(pins) > 0 {
		m.allowed = make(map[int]bool, len(pins))
		for _, p := range pins {
			m.allowed[p] = true
		}
	}
	return m
}

// Set records the pin state.
func (m *MemoryRelays) Set(pin int, on bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.allowed != nil && !m.allowed[pin] {
		return fmt.Errorf("%w: relay pin %d not configured", ErrInvalidTarget, pin)
	}
	m.states[pin] = on
	return nil
}

// State returns the last state set for pin.
func (m *MemoryRelays) State(pin int) (on, known bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	on, known = m.states[pin]
	return on, known
}
