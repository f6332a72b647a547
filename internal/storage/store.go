package storage

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Well-known document paths.
const (
	RulesPath    = "/rules.json"
	DevicesPath  = "/devices.json"
	SensorsPath  = "/sensors.json"
	SettingsPath = "/settings.json"
	HistoryDir   = "/history"
)

// Store reads and writes named blobs.
//
// Implementations are not required to be safe for concurrent use; the
// controller loop is the only caller.
type Store interface {
	// Read returns the blob at path or ErrNotFound.
	Read(path string) ([]byte, error)

	// Write replaces the blob at path.
	Write(path string, data []byte) error

	// Remove deletes the blob at path. Removing a missing blob is not an error.
	Remove(path string) error

	// Exists reports whether a blob exists at path.
	Exists(path string) bool
}

// ReadJSON decodes the document at path into v.
func ReadJSON(s Store, path string, v any) error {
	data, err := s.Read(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decoding %s: %w", path, err)
	}
	return nil
}

// WriteJSON encodes v pretty-printed and stores it at path.
func WriteJSON(s Store, path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding %s: %w", path, err)
	}
	return s.Write(path, data)
}

// validatePath checks that path is absolute and stays inside the store.
func validatePath(path string) error {
	if !strings.HasPrefix(path, "/") || path == "/" {
		return fmt.Errorf("%w: %q", ErrInvalidPath, path)
	}
	for _, part := range strings.Split(path[1:], "/") {
		if part == "" || part == "." || part == ".." {
			return fmt.Errorf("%w: %q", ErrInvalidPath, path)
		}
	}
	return nil
}
