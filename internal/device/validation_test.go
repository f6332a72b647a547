package device

import (
	"errors"
	"testing"
)

func TestValidateTarget(t *testing.T) {
	tests := []struct {
		method  string
		target  string
		wantErr bool
	}{
		{"tasmota", "192.168.1.20", false},
		{"tasmota", "192.168.1.20:8080", false},
		{"shelly_gen1", "plug-1.lan", false},
		{"shelly_gen2", "fe80::1", false},
		{"shelly_gen2", "[fe80::1]:80", false},
		{"tasmota", "", true},
		{"tasmota", "10.0.0.1/cm", true},
		{"tasmota", "10.0.0.1:99999", true},
		{"tasmota", "-bad-.lan", true},
		{"relay", "4", false},
		{"relay", "-1", true},
		{"relay", "gpio4", true},
	}

	for _, tt := range tests {
		t.Run(tt.method+"/"+tt.target, func(t *testing.T) {
			err := ValidateTarget(tt.method, tt.target)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateTarget(%q, %q) error = %v, wantErr %v", tt.method, tt.target, err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidTarget) {
				t.Errorf("error = %v, want ErrInvalidTarget", err)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	valid := Device{ID: "fan-1", Name: "Fan", ControlMethod: "tasmota", IPAddress: "10.0.0.5"}
	if err := Validate(valid); err != nil {
		t.Fatalf("Validate(valid) error = %v", err)
	}

	badID := valid
	badID.ID = "fan/1"
	if err := Validate(badID); !errors.Is(err, ErrInvalidDevice) {
		t.Errorf("Validate(bad id) error = %v, want ErrInvalidDevice", err)
	}

	longName := valid
	longName.Name = string(make([]byte, maxNameLength+1))
	if err := Validate(longName); !errors.Is(err, ErrInvalidDevice) {
		t.Errorf("Validate(long name) error = %v, want ErrInvalidDevice", err)
	}

	badMethod := valid
	badMethod.ControlMethod = "x10"
	if err := Validate(badMethod); !errors.Is(err, ErrInvalidMethod) {
		t.Errorf("Validate(bad method) error = %v, want ErrInvalidMethod", err)
	}
}
