package automation

import (
	"testing"

	"github.com/nerrad567/growctl/internal/storage"
)

func TestJSONRepository_MissingFile(t *testing.T) {
	repo := NewJSONRepository(storage.NewMemoryStore())
	rules, err := repo.Load()
	if err != nil || len(rules) != 0 {
		t.Errorf("Load() = %v, %v, want empty", rules, err)
	}
}

func TestJSONRepository_DefaultsOnLoad(t *testing.T) {
	store := storage.NewMemoryStore()
	doc := `[{"id":"r1","sensorId":"temp","threshold":27.5,"deviceId":"fan","deviceMethod":"tasmota","deviceTarget":"10.0.0.5"},
	{"id":"r2","enabled":false,"sensorId":"hum","operator":"<","threshold":40,"thresholdOff":45,"useHysteresis":true,"minRunTimeMs":60000,"deviceId":"mister","deviceMethod":"relay","deviceTarget":"5","action":"turn_off"}]`
	if err := store.Write(storage.RulesPath, []byte(doc)); err != nil {
		t.Fatal(err)
	}

	rules, err := NewJSONRepository(store).Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(rules) != 2 {
		t.Fatalf("len = %d, want 2", len(rules))
	}

	r1 := rules[0]
	if r1.Enabled || r1.Operator != OpGreater || r1.Action != ActionTurnOn || r1.ThresholdOff != 27.5 {
		t.Errorf("r1 defaults = %+v", r1)
	}
	r2 := rules[1]
	if r2.Enabled || r2.Operator != OpLess || r2.ThresholdOff != 45 || !r2.UseHysteresis || r2.MinRunTimeMs != 60000 || r2.ActionOn() {
		t.Errorf("r2 = %+v", r2)
	}
}

func TestJSONRepository_SaveLoad(t *testing.T) {
	store := storage.NewMemoryStore()
	repo := NewJSONRepository(store)
	want := []Rule{{
		ID: "r1", Name: "Cool", Enabled: true, SensorID: "temp", Operator: OpGreaterEqual,
		Threshold: 28, ThresholdOff: 26, UseHysteresis: true, MinRunTimeMs: 1000,
		DeviceID: "fan", DeviceMethod: "tasmota", DeviceTarget: "10.0.0.5", Action: ActionTurnOn,
	}}

	if err := repo.Save(want); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	got, err := repo.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(got) != 1 || got[0] != want[0] {
		t.Errorf("Load() = %+v, want %+v", got, want)
	}
}

func TestJSONRepository_SaveNilWritesEmptyArray(t *testing.T) {
	store := storage.NewMemoryStore()
	if err := NewJSONRepository(store).Save(nil); err != nil {
		t.Fatal(err)
	}
	data, _ := store.Read(storage.RulesPath)
	if string(data) != "[]" {
		t.Errorf("file = %q, want []", data)
	}
}
