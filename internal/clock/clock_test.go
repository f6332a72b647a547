package clock

import (
	"testing"
	"time"
)

func TestSystem_MonotonicAndWall(t *testing.T) {
	base := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)
	current := base
	c := &System{start: base, now: func() time.Time { return current }}

	current = base.Add(2500 * time.Millisecond)
	if got := c.Now(); got != 2500*time.Millisecond {
		t.Errorf("Now() = %v, want 2.5s", got)
	}
	if !c.Synced() {
		t.Error("Synced() = false for a 2026 wall clock")
	}
	if got := c.Wall(); got != uint32(current.Unix()) {
		t.Errorf("Wall() = %d, want %d", got, current.Unix())
	}
}

func TestSystem_UnsyncedFallsBackToUptime(t *testing.T) {
	base := time.Unix(0, 0)
	current := base
	c := &System{start: base, now: func() time.Time { return current }}

	current = base.Add(90 * time.Second)
	if c.Synced() {
		t.Error("Synced() = true for a 1970 wall clock")
	}
	if got := c.Wall(); got != 90 {
		t.Errorf("Wall() = %d, want 90", got)
	}
}

func TestFake(t *testing.T) {
	f := NewFake(1_700_000_000)
	f.Advance(61 * time.Second)

	if f.Now() != 61*time.Second {
		t.Errorf("Now() = %v, want 61s", f.Now())
	}
	if f.Wall() != 1_700_000_061 {
		t.Errorf("Wall() = %d, want 1700000061", f.Wall())
	}

	unsynced := NewFake(0)
	unsynced.Advance(5 * time.Second)
	if unsynced.Synced() || unsynced.Wall() != 5 {
		t.Errorf("unsynced fake: Synced() = %v, Wall() = %d", unsynced.Synced(), unsynced.Wall())
	}
}
