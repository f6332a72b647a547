// Package clock provides the two time sources the controller uses: a
// monotonic clock for every interval comparison and a wall clock for
// history timestamps only.
package clock

import (
	"sync"
	"time"
)

// syncedAfter is the earliest wall time treated as a real (NTP-synced)
// clock. Anything earlier means the host has not set its time yet.
var syncedAfter = time.Date(2020, time.January, 1, 0, 0, 0, 0, time.UTC)

// Clock is the time source for the controller.
type Clock interface {
	// Now returns the monotonic time elapsed since the clock started.
	Now() time.Duration

	// Wall returns epoch seconds when the wall clock is synced, otherwise
	// monotonic seconds.
	Wall() uint32

	// Synced reports whether Wall is returning epoch seconds.
	Synced() bool
}

// System is the Clock backed by the host time.
type System struct {
	start time.Time
	now   func() time.Time
}

// NewSystem returns a System clock started at the current instant.
func NewSystem() *System {
	return &System{start: time.Now(), now: time.Now}
}

// Now returns the monotonic uptime.
func (c *System) Now() time.Duration {
	return c.now().Sub(c.start)
}

// Synced reports whether the host wall clock looks set.
func (c *System) Synced() bool {
	return c.now().After(syncedAfter)
}

// Wall returns epoch seconds, or uptime seconds before the host clock is set.
func (c *System) Wall() uint32 {
	if !c.Synced() {
		return uint32(c.Now() / time.Second)
	}
	return uint32(c.now().Unix())
}

// Fake is a manually advanced Clock for tests.
type Fake struct {
	mu     sync.Mutex
	mono   time.Duration
	epoch  uint32
	synced bool
}

// NewFake returns a Fake at monotonic zero. A non-zero epoch makes the
// fake report a synced wall clock starting at that epoch second.
func NewFake(epoch uint32) *Fake {
	return &Fake{epoch: epoch, synced: epoch != 0}
}

// Advance moves both clocks forward by d.
func (f *Fake) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.mono += d
}

// Now returns the fake monotonic time.
func (f *Fake) Now() time.Duration {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.mono
}

// Synced reports whether the fake was created with an epoch.
func (f *Fake) Synced() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.synced
}

// Wall returns epoch + elapsed seconds, or elapsed seconds when unsynced.
func (f *Fake) Wall() uint32 {
	f.mu.Lock()
	defer f.mu.Unlock()
	secs := uint32(f.mono / time.Second)
	if !f.synced {
		return secs
	}
	return f.epoch + secs
}
