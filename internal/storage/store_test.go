package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nerrad567/growctl/internal/infrastructure/database"
)

// ─── Helpers ────────────────────────────────────────────────────────

func newSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	db, err := database.Open(database.Config{
		Path:        filepath.Join(t.TempDir(), "store.db"),
		WALMode:     true,
		BusyTimeout: 5,
	})
	if err != nil {
		t.Fatalf("database.Open() error = %v", err)
	}
	t.Cleanup(func() { db.Close() }) //nolint:errcheck // Test cleanup

	s, err := NewSQLiteStore(context.Background(), db)
	if err != nil {
		t.Fatalf("NewSQLiteStore() error = %v", err)
	}
	return s
}

func newFileStore(t *testing.T) *FileStore {
	t.Helper()
	s, err := NewFileStore(filepath.Join(t.TempDir(), "data"))
	if err != nil {
		t.Fatalf("NewFileStore() error = %v", err)
	}
	return s
}

func backends(t *testing.T) map[string]Store {
	t.Helper()
	return map[string]Store{
		"file":   newFileStore(t),
		"sqlite": newSQLiteStore(t),
		"memory": NewMemoryStore(),
	}
}

// ─── Contract ───────────────────────────────────────────────────────

func TestStore_Contract(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			if s.Exists(RulesPath) {
				t.Fatal("empty store should not contain rules")
			}
			if _, err := s.Read(RulesPath); !errors.Is(err, ErrNotFound) {
				t.Fatalf("Read(missing) error = %v, want ErrNotFound", err)
			}

			payload := []byte{0x01, 0x02, 0x03, 0xff}
			if err := s.Write("/history/temp1_12h.bin", payload); err != nil {
				t.Fatalf("Write() error = %v", err)
			}
			if !s.Exists("/history/temp1_12h.bin") {
				t.Fatal("Exists() = false after Write")
			}

			got, err := s.Read("/history/temp1_12h.bin")
			if err != nil {
				t.Fatalf("Read() error = %v", err)
			}
			if string(got) != string(payload) {
				t.Errorf("Read() = %v, want %v", got, payload)
			}

			if err := s.Write("/history/temp1_12h.bin", []byte{0x09}); err != nil {
				t.Fatalf("overwrite error = %v", err)
			}
			got, _ = s.Read("/history/temp1_12h.bin") //nolint:errcheck // Checked by content
			if len(got) != 1 || got[0] != 0x09 {
				t.Errorf("Read() after overwrite = %v", got)
			}

			if err := s.Remove("/history/temp1_12h.bin"); err != nil {
				t.Fatalf("Remove() error = %v", err)
			}
			if s.Exists("/history/temp1_12h.bin") {
				t.Error("Exists() = true after Remove")
			}
			if err := s.Remove("/history/temp1_12h.bin"); err != nil {
				t.Errorf("Remove(missing) error = %v, want nil", err)
			}
		})
	}
}

func TestStore_InvalidPaths(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			for _, p := range []string{"rules.json", "/", "/../etc/passwd", "/history//x", "/a/./b"} {
				if err := s.Write(p, []byte("x")); !errors.Is(err, ErrInvalidPath) {
					t.Errorf("Write(%q) error = %v, want ErrInvalidPath", p, err)
				}
			}
		})
	}
}

// ─── JSON helpers ───────────────────────────────────────────────────

func TestJSONRoundTripIsPrettyPrinted(t *testing.T) {
	s := NewMemoryStore()
	doc := map[string]any{"timezoneOffsetMinutes": 60}

	if err := WriteJSON(s, SettingsPath, doc); err != nil {
		t.Fatalf("WriteJSON() error = %v", err)
	}

	raw, _ := s.Read(SettingsPath) //nolint:errcheck // Written above
	if !strings.Contains(string(raw), "\n  \"timezoneOffsetMinutes\": 60") {
		t.Errorf("document not pretty-printed: %s", raw)
	}

	var back struct {
		TimezoneOffsetMinutes int `json:"timezoneOffsetMinutes"`
	}
	if err := ReadJSON(s, SettingsPath, &back); err != nil {
		t.Fatalf("ReadJSON() error = %v", err)
	}
	if back.TimezoneOffsetMinutes != 60 {
		t.Errorf("TimezoneOffsetMinutes = %d, want 60", back.TimezoneOffsetMinutes)
	}
}

func TestReadJSON_Corrupt(t *testing.T) {
	s := NewMemoryStore()
	_ = s.Write(RulesPath, []byte("{not json")) //nolint:errcheck // Memory write cannot fail

	var v []any
	err := ReadJSON(s, RulesPath, &v)
	if err == nil || errors.Is(err, ErrNotFound) {
		t.Errorf("ReadJSON(corrupt) error = %v, want decode error", err)
	}
}

// ─── Backend specifics ──────────────────────────────────────────────

func TestFileStore_LayoutAndNoTempLeftovers(t *testing.T) {
	s := newFileStore(t)

	if err := s.Write("/history/co2_7d.bin", []byte("abc")); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	full := filepath.Join(s.Root(), "history", "co2_7d.bin")
	if _, err := os.Stat(full); err != nil {
		t.Fatalf("expected file at %s: %v", full, err)
	}

	entries, err := os.ReadDir(filepath.Join(s.Root(), "history"))
	if err != nil {
		t.Fatalf("ReadDir() error = %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("history dir has %d entries, want 1 (temp file leaked?)", len(entries))
	}
}

func TestMemoryStore_FailWrites(t *testing.T) {
	s := NewMemoryStore()
	s.FailWrites = true
	if err := s.Write(RulesPath, []byte("[]")); err == nil {
		t.Error("Write() expected error when FailWrites is set")
	}
	if s.Len() != 0 {
		t.Errorf("Len() = %d, want 0", s.Len())
	}
}
