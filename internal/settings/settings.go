// Package settings holds the controller's user preferences, persisted at
// storage.SettingsPath.
package settings

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/nerrad567/growctl/internal/storage"
)

// UTC offsets in use worldwide span UTC-12:00 to UTC+14:00.
const (
	MinOffsetMinutes = -12 * 60
	MaxOffsetMinutes = 14 * 60
)

// DefaultLightFactor leaves light readings uncalibrated.
const DefaultLightFactor = 1.0

var (
	// ErrInvalidOffset is returned for a timezone offset outside the valid range.
	ErrInvalidOffset = errors.New("settings: invalid timezone offset")

	// ErrInvalidFactor is returned for a light calibration factor that is
	// not a positive finite number.
	ErrInvalidFactor = errors.New("settings: invalid light calibration factor")
)

// Settings is the persisted document.
type Settings struct {
	TimezoneOffsetMinutes int     `json:"timezoneOffsetMinutes"`
	LightFactor           float64 `json:"ppfdFactor"`
}

// Logger defines the logging interface used by the Manager.
type Logger interface {
	Info(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Manager owns the current settings. It is not safe for concurrent use.
type Manager struct {
	store   storage.Store
	current Settings
	logger  Logger
}

// NewManager returns a Manager with default settings (UTC, uncalibrated light).
func NewManager(store storage.Store) *Manager {
	return &Manager{
		store:   store,
		current: Settings{LightFactor: DefaultLightFactor},
		logger:  noopLogger{},
	}
}

// SetLogger sets the logger for the manager.
func (m *Manager) SetLogger(logger Logger) {
	m.logger = logger
}

// Load reads the persisted settings. A missing file keeps the defaults, an
// out-of-range offset is reset to UTC and a missing or invalid light factor
// is reset to DefaultLightFactor.
func (m *Manager) Load() error {
	var s Settings
	err := storage.ReadJSON(m.store, storage.SettingsPath, &s)
	if errors.Is(err, storage.ErrNotFound) {
		m.logger.Info("no settings file, using defaults")
		return nil
	}
	if err != nil {
		return fmt.Errorf("loading settings: %w", err)
	}
	if validOffset(s.TimezoneOffsetMinutes) != nil {
		s.TimezoneOffsetMinutes = 0
	}
	if validFactor(s.LightFactor) != nil {
		s.LightFactor = DefaultLightFactor
	}
	m.current = s
	m.logger.Info("settings loaded",
		"timezone_offset_minutes", s.TimezoneOffsetMinutes,
		"light_factor", s.LightFactor,
	)
	return nil
}

// Get returns the current settings.
func (m *Manager) Get() Settings {
	return m.current
}

// SetTimezoneOffset changes the offset from UTC and persists it.
func (m *Manager) SetTimezoneOffset(minutes int) error {
	if err := validOffset(minutes); err != nil {
		return err
	}
	m.current.TimezoneOffsetMinutes = minutes
	m.save()
	m.logger.Info("timezone updated", "timezone_offset_minutes", minutes)
	return nil
}

// SetLightFactor changes the multiplier applied to raw light readings and
// persists it.
func (m *Manager) SetLightFactor(factor float64) error {
	if err := validFactor(factor); err != nil {
		return err
	}
	m.current.LightFactor = factor
	m.save()
	m.logger.Info("light calibration updated", "light_factor", factor)
	return nil
}

// ResetLightFactor restores DefaultLightFactor.
func (m *Manager) ResetLightFactor() {
	m.current.LightFactor = DefaultLightFactor
	m.save()
	m.logger.Info("light calibration reset")
}

// save writes the current settings. A failed write is logged; the
// in-memory settings still apply.
func (m *Manager) save() {
	if err := storage.WriteJSON(m.store, storage.SettingsPath, m.current); err != nil {
		m.logger.Error("failed to save settings", "error", err)
	}
}

// Location returns a fixed zone for the configured offset.
func (m *Manager) Location() *time.Location {
	off := m.current.TimezoneOffsetMinutes
	if off == 0 {
		return time.UTC
	}
	sign := '+'
	abs := off
	if off < 0 {
		sign = '-'
		abs = -off
	}
	name := fmt.Sprintf("UTC%c%02d:%02d", sign, abs/60, abs%60)
	return time.FixedZone(name, off*60)
}

// LocalTime converts t to the configured zone.
func (m *Manager) LocalTime(t time.Time) time.Time {
	return t.In(m.Location())
}

func validOffset(minutes int) error {
	if minutes < MinOffsetMinutes || minutes > MaxOffsetMinutes {
		return fmt.Errorf("%w: %d minutes", ErrInvalidOffset, minutes)
	}
	return nil
}

func validFactor(f float64) error {
	if f <= 0 || math.IsNaN(f) || math.IsInf(f, 0) {
		return fmt.Errorf("%w: %v", ErrInvalidFactor, f)
	}
	return nil
}
