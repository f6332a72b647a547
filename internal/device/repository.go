package device

import (
	"errors"
	"fmt"

	"github.com/nerrad567/growctl/internal/storage"
)

// Repository persists the device catalog.
type Repository interface {
	Load() ([]Record, error)
	Save(records []Record) error
}

// JSONRepository stores devices as a JSON array at storage.DevicesPath.
type JSONRepository struct {
	store storage.Store
}

// NewJSONRepository creates a repository over store.
func NewJSONRepository(store storage.Store) *JSONRepository {
	return &JSONRepository{store: store}
}

// Load returns the persisted records. A missing file yields no records.
func (r *JSONRepository) Load() ([]Record, error) {
	var records []Record
	err := storage.ReadJSON(r.store, storage.DevicesPath, &records)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading devices: %w", err)
	}
	return records, nil
}

// Save replaces the persisted records.
func (r *JSONRepository) Save(records []Record) error {
	if records == nil {
		records = []Record{}
	}
	if err := storage.WriteJSON(r.store, storage.DevicesPath, records); err != nil {
		return fmt.Errorf("saving devices: %w", err)
	}
	return nil
}
