package sensor

import (
	"context"
	"errors"
	"math"
	"testing"
)

// ─── Fakes ──────────────────────────────────────────────────────────

type fakeHardware struct {
	kind      string
	detectErr error
	sample    Sample
	readErr   error
	reads     int
}

func (f *fakeHardware) Type() string                 { return f.kind }
func (f *fakeHardware) Detect(context.Context) error { return f.detectErr }
func (f *fakeHardware) Read(context.Context) (Sample, error) {
	f.reads++
	if f.readErr != nil {
		return nil, f.readErr
	}
	return f.sample, nil
}

func newTestReader(t *testing.T, hw ...Hardware) (*Reader, *Registry) {
	t.Helper()
	reg, _ := newTestRegistry(t)
	mustAdd(t, reg, tempSensor("t1"))
	mustAdd(t, reg, humSensor("h1"))
	mustAdd(t, reg, vpdSensor("vpd1", "t1", "h1"))
	mustAdd(t, reg, Sensor{ID: "co2", Type: KindCO2, HardwareType: HardwareSCD4x})

	r := NewReader(reg, hw...)
	r.Detect(context.Background())
	return r, reg
}

// ─── VPD ────────────────────────────────────────────────────────────

func TestVPD(t *testing.T) {
	v, ok := VPD(25, 50)
	if !ok {
		t.Fatal("VPD(25, 50) not ok")
	}
	if math.Abs(v-1.585) > 0.01 {
		t.Errorf("VPD(25, 50) = %.4f, want ≈1.585", v)
	}

	if _, ok := VPD(25, 0); ok {
		t.Error("VPD with RH = 0 should be no reading")
	}
	if _, ok := VPD(math.NaN(), 50); ok {
		t.Error("VPD with NaN temperature should be no reading")
	}
}

// ─── Reader ─────────────────────────────────────────────────────────

func TestReader_ValueFromHardware(t *testing.T) {
	sht := &fakeHardware{kind: HardwareSHT4x, sample: Sample{KindTemperature: 25, KindHumidity: 50}}
	r, _ := newTestReader(t, sht)

	if _, ok := r.Value("t1"); ok {
		t.Error("Value() before Refresh should be no reading")
	}

	r.Refresh(context.Background())

	if v, ok := r.Value("t1"); !ok || v != 25 {
		t.Errorf("Value(t1) = %v, %v; want 25, true", v, ok)
	}
	if v, ok := r.Value("vpd1"); !ok || math.Abs(v-1.585) > 0.01 {
		t.Errorf("Value(vpd1) = %v, %v; want ≈1.585, true", v, ok)
	}
	if _, ok := r.Value("co2"); ok {
		t.Error("Value(co2) should be no reading without scd4x hardware")
	}
	if _, ok := r.Value("unknown"); ok {
		t.Error("Value(unknown) should be no reading")
	}
}

func TestReader_FailedReadInvalidatesCache(t *testing.T) {
	sht := &fakeHardware{kind: HardwareSHT4x, sample: Sample{KindTemperature: 25, KindHumidity: 50}}
	r, _ := newTestReader(t, sht)
	r.Refresh(context.Background())

	sht.readErr = errors.New("i2c nack")
	r.Refresh(context.Background())

	if _, ok := r.Value("t1"); ok {
		t.Error("Value() after failed read should be no reading")
	}
	if _, ok := r.Value("vpd1"); ok {
		t.Error("derived Value() after failed source read should be no reading")
	}
}

func TestReader_AbsentHardwareIsNotRead(t *testing.T) {
	scd := &fakeHardware{kind: HardwareSCD4x, detectErr: ErrHardwareAbsent}
	r, _ := newTestReader(t, scd)
	r.Refresh(context.Background())

	if scd.reads != 0 {
		t.Errorf("absent hardware read %d times, want 0", scd.reads)
	}
	if r.Connected(HardwareSCD4x) {
		t.Error("Connected(scd4x) = true for absent hardware")
	}
	if !r.Connected(HardwareCalculated) {
		t.Error("Connected(calculated) should always be true")
	}
}

func TestReader_VPDZeroHumidity(t *testing.T) {
	sht := &fakeHardware{kind: HardwareSHT4x, sample: Sample{KindTemperature: 25, KindHumidity: 0}}
	r, _ := newTestReader(t, sht)
	r.Refresh(context.Background())

	if _, ok := r.Value("vpd1"); ok {
		t.Error("Value(vpd1) with RH = 0 should be no reading")
	}
}

func TestReader_Snapshot(t *testing.T) {
	sht := &fakeHardware{kind: HardwareSHT4x, sample: Sample{KindTemperature: 25, KindHumidity: 50}}
	r, _ := newTestReader(t, sht)
	r.Refresh(context.Background())

	snap := r.Snapshot()
	if len(snap) != 3 {
		t.Fatalf("Snapshot() = %+v, want 3 readings (co2 missing)", snap)
	}
	if snap[0].ID != "t1" || snap[1].ID != "h1" || snap[2].ID != "vpd1" {
		t.Errorf("Snapshot() order = %+v", snap)
	}
	if snap[2].Type != KindVPD {
		t.Errorf("Snapshot()[2].Type = %q, want vpd", snap[2].Type)
	}
}

func TestReader_LightFactor(t *testing.T) {
	light := &fakeHardware{kind: HardwareAS7341, sample: Sample{KindLight: 400}}
	r, reg := newTestReader(t, light)
	mustAdd(t, reg, Sensor{ID: "ppfd", Type: KindLight, HardwareType: HardwareAS7341})
	r.Refresh(context.Background())

	r.SetLightFactor(1.5)
	if v, ok := r.Value("ppfd"); !ok || v != 600 {
		t.Errorf("Value(ppfd) = %v, %v; want 600, true", v, ok)
	}
	if v, ok := r.Raw("ppfd"); !ok || v != 400 {
		t.Errorf("Raw(ppfd) = %v, %v; want 400, true", v, ok)
	}
	if _, ok := r.Raw("t1"); ok {
		t.Error("Raw() of a non-light sensor should be no reading")
	}

	r.SetLightFactor(0)
	if v, _ := r.Value("ppfd"); v != 600 {
		t.Errorf("non-positive factor applied: Value(ppfd) = %v", v)
	}
}

func TestSimulated_Deterministic(t *testing.T) {
	a, b := NewSimulated(42), NewSimulated(42)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		sa, err := a.Read(ctx)
		if err != nil {
			t.Fatalf("Read() error = %v", err)
		}
		sb, _ := b.Read(ctx) //nolint:errcheck // Same source as above
		for kind, v := range sa {
			if sb[kind] != v {
				t.Fatalf("step %d %s: %v != %v", i, kind, v, sb[kind])
			}
		}
	}

	s, _ := a.Read(ctx) //nolint:errcheck // Simulated never fails with a live context
	if s[KindTemperature] < 18 || s[KindTemperature] > 32 {
		t.Errorf("temperature %v outside simulated bounds", s[KindTemperature])
	}
}

func TestSimulated_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewSimulated(1).Read(ctx); err == nil {
		t.Error("Read() with cancelled context should fail")
	}
}
