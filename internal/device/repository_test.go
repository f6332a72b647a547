package device

import (
	"strings"
	"testing"

	"github.com/nerrad567/growctl/internal/storage"
)

func TestJSONRepository_RoundTrip(t *testing.T) {
	store := storage.NewMemoryStore()
	repo := NewJSONRepository(store)

	records, err := repo.Load()
	if err != nil || len(records) != 0 {
		t.Fatalf("Load() on empty store = %v, %v", records, err)
	}

	want := []Record{
		{ID: "fan", Name: "Fan", Type: "fan", ControlMethod: "tasmota", IPAddress: "10.0.0.2"},
		{ID: "pump", Name: "Pump", Type: "pump", ControlMethod: "relay", IPAddress: "5"},
	}
	if err := repo.Save(want); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	raw, _ := store.Read(storage.DevicesPath) //nolint:errcheck // Written above
	if strings.Contains(string(raw), "isOn") || strings.Contains(string(raw), "controlMode") {
		t.Errorf("runtime fields persisted: %s", raw)
	}

	got, err := repo.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(got) != 2 || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("Load() = %+v, want %+v", got, want)
	}
}

func TestJSONRepository_SaveEmptyWritesArray(t *testing.T) {
	store := storage.NewMemoryStore()
	if err := NewJSONRepository(store).Save(nil); err != nil {
		t.Fatalf("Save(nil) error = %v", err)
	}
	raw, _ := store.Read(storage.DevicesPath) //nolint:errcheck // Written above
	if strings.TrimSpace(string(raw)) != "[]" {
		t.Errorf("devices file = %q, want []", raw)
	}
}
