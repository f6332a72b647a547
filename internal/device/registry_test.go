package device

import (
	"errors"
	"testing"
)

// MockRepository is a test implementation of Repository.
type MockRepository struct {
	records []Record
	saves   int
	loadErr error
	saveErr error
}

func NewMockRepository(records ...Record) *MockRepository {
	return &MockRepository{records: records}
}

func (m *MockRepository) Load() ([]Record, error) {
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	return append([]Record(nil), m.records...), nil
}

func (m *MockRepository) Save(records []Record) error {
	m.saves++
	if m.saveErr != nil {
		return m.saveErr
	}
	m.records = append([]Record(nil), records...)
	return nil
}

func testDevice(id, ip string) Device {
	return Device{ID: id, Name: "Exhaust fan", Type: "fan", ControlMethod: "tasmota", IPAddress: ip}
}

func newTestRegistry(t *testing.T, devices ...Device) (*Registry, *MockRepository) {
	t.Helper()
	repo := NewMockRepository()
	r := NewRegistry(repo)
	for _, d := range devices {
		if _, err := r.Add(d); err != nil {
			t.Fatalf("Add(%q) error = %v", d.ID, err)
		}
	}
	return r, repo
}

// ─── CRUD ───────────────────────────────────────────────────────────

func TestRegistry_Add(t *testing.T) {
	r, repo := newTestRegistry(t)

	d, err := r.Add(Device{Name: "Heater", ControlMethod: "shelly_gen2", IPAddress: "192.168.1.40", IsOn: true})
	if err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if d.ID == "" {
		t.Error("Add() should generate an ID")
	}
	if d.IsOn || d.ControlMode != ModeManual {
		t.Errorf("Add() runtime fields = (%v, %q), want (false, manual)", d.IsOn, d.ControlMode)
	}
	if len(repo.records) != 1 || repo.records[0].IPAddress != "192.168.1.40" {
		t.Errorf("repo records = %+v", repo.records)
	}

	if _, err := r.Add(Device{ID: d.ID, ControlMethod: "tasmota", IPAddress: "10.0.0.1"}); !errors.Is(err, ErrDeviceExists) {
		t.Errorf("Add(duplicate) error = %v, want ErrDeviceExists", err)
	}
	if _, err := r.Add(Device{ID: "x", ControlMethod: "zigbee", IPAddress: "10.0.0.1"}); !errors.Is(err, ErrInvalidMethod) {
		t.Errorf("Add(bad method) error = %v, want ErrInvalidMethod", err)
	}
}

func TestRegistry_UpdatePartial(t *testing.T) {
	r, _ := newTestRegistry(t, testDevice("fan", "10.0.0.2"))
	r.SetState("fan", true)

	ip := "10.0.0.9"
	got, err := r.Update("fan", Patch{IPAddress: &ip})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if got.IPAddress != ip || got.Name != "Exhaust fan" || !got.IsOn {
		t.Errorf("Update() = %+v", got)
	}

	bad := "relay"
	if _, err := r.Update("fan", Patch{ControlMethod: &bad}); !errors.Is(err, ErrInvalidTarget) {
		t.Errorf("Update(relay with IP target) error = %v, want ErrInvalidTarget", err)
	}
	if _, err := r.Update("missing", Patch{IPAddress: &ip}); !errors.Is(err, ErrDeviceNotFound) {
		t.Errorf("Update(missing) error = %v, want ErrDeviceNotFound", err)
	}
}

func TestRegistry_Remove(t *testing.T) {
	r, repo := newTestRegistry(t, testDevice("a", "10.0.0.1"), testDevice("b", "10.0.0.2"), testDevice("c", "10.0.0.3"))

	if err := r.Remove("b"); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	list := r.List()
	if len(list) != 2 || list[0].ID != "a" || list[1].ID != "c" {
		t.Errorf("List() = %+v, want [a c]", list)
	}
	if len(repo.records) != 2 {
		t.Errorf("repo records = %d, want 2", len(repo.records))
	}
	if err := r.Remove("b"); !errors.Is(err, ErrDeviceNotFound) {
		t.Errorf("Remove(missing) error = %v, want ErrDeviceNotFound", err)
	}
}

// ─── Runtime state ──────────────────────────────────────────────────

func TestRegistry_StateAndLookup(t *testing.T) {
	r, _ := newTestRegistry(t, testDevice("fan", "10.0.0.2"))

	if !r.SetState("fan", true) || !r.IsOn("fan") {
		t.Error("SetState/IsOn mismatch")
	}
	if r.SetState("ghost", true) {
		t.Error("SetState(unknown) = true")
	}

	d, ok := r.FindByTarget("tasmota", "10.0.0.2")
	if !ok || d.ID != "fan" {
		t.Errorf("FindByTarget() = %+v, %v", d, ok)
	}
	if _, ok := r.FindByTarget("shelly_gen1", "10.0.0.2"); ok {
		t.Error("FindByTarget() should match on method too")
	}
}

func TestRegistry_SetControlModes(t *testing.T) {
	r, _ := newTestRegistry(t, testDevice("a", "10.0.0.1"), testDevice("b", "10.0.0.2"))

	r.SetControlModes(func(id string) bool { return id == "b" })

	a, _ := r.Get("a")
	b, _ := r.Get("b")
	if a.ControlMode != ModeManual || b.ControlMode != ModeAutomatic {
		t.Errorf("modes = (%q, %q), want (manual, automatic)", a.ControlMode, b.ControlMode)
	}
}

// ─── Persistence ────────────────────────────────────────────────────

func TestRegistry_Load(t *testing.T) {
	repo := NewMockRepository(
		Record{ID: "a", Name: "A", ControlMethod: "tasmota", IPAddress: "10.0.0.1"},
		Record{ID: "a", Name: "dup", ControlMethod: "tasmota", IPAddress: "10.0.0.1"},
		Record{ID: "bad", Name: "B", ControlMethod: "zigbee", IPAddress: "10.0.0.2"},
		Record{ID: "r", Name: "Pump", ControlMethod: "relay", IPAddress: "4"},
	)
	r := NewRegistry(repo)

	if err := r.Load(); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	list := r.List()
	if len(list) != 2 || list[0].ID != "a" || list[1].ID != "r" {
		t.Fatalf("List() = %+v, want [a r]", list)
	}
	if list[1].ControlMode != ModeManual || list[1].IsOn {
		t.Errorf("loaded device runtime fields = %+v", list[1])
	}
}

func TestRegistry_LoadError(t *testing.T) {
	repo := NewMockRepository()
	repo.loadErr = errors.New("flash unreadable")
	if err := NewRegistry(repo).Load(); err == nil {
		t.Error("Load() expected error")
	}
}

func TestRegistry_SaveFailureKeepsMemory(t *testing.T) {
	r, repo := newTestRegistry(t)
	repo.saveErr = errors.New("disk full")

	if _, err := r.Add(testDevice("fan", "10.0.0.2")); err != nil {
		t.Fatalf("Add() error = %v, want nil despite save failure", err)
	}
	if r.Count() != 1 {
		t.Errorf("Count() = %d, want 1", r.Count())
	}
}

func TestRegistry_Replace(t *testing.T) {
	r, _ := newTestRegistry(t, testDevice("a", "10.0.0.1"), testDevice("b", "10.0.0.2"))
	r.SetState("a", true)

	err := r.Replace([]Record{
		{ID: "a", Name: "A", ControlMethod: "tasmota", IPAddress: "10.0.0.1"},
		{ID: "c", Name: "C", ControlMethod: "shelly_gen1", IPAddress: "10.0.0.3"},
	})
	if err != nil {
		t.Fatalf("Replace() error = %v", err)
	}
	if _, ok := r.Get("b"); ok {
		t.Error("Replace() should drop b")
	}
	if !r.IsOn("a") {
		t.Error("Replace() should keep the cached state of surviving devices")
	}

	err = r.Replace([]Record{{ID: "x", ControlMethod: "nope", IPAddress: "1.2.3.4"}})
	if !errors.Is(err, ErrInvalidMethod) {
		t.Errorf("Replace(invalid) error = %v, want ErrInvalidMethod", err)
	}
	if r.Count() != 2 {
		t.Errorf("Count() = %d after rejected replace, want 2", r.Count())
	}
}
