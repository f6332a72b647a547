package automation

import (
	"errors"
	"fmt"

	"github.com/nerrad567/growctl/internal/storage"
)

// Repository persists the rule set.
type Repository interface {
	Load() ([]Rule, error)
	Save(rules []Rule) error
}

// JSONRepository stores rules as a JSON array at storage.RulesPath.
type JSONRepository struct {
	store storage.Store
}

// NewJSONRepository creates a repository over store.
func NewJSONRepository(store storage.Store) *JSONRepository {
	return &JSONRepository{store: store}
}

// Load returns the persisted rules. Missing optional fields take the same
// defaults as a rule added by a client, except that a rule without
// "enabled" loads disabled. A missing file yields no rules.
func (r *JSONRepository) Load() ([]Rule, error) {
	var patches []Patch
	err := storage.ReadJSON(r.store, storage.RulesPath, &patches)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading rules: %w", err)
	}

	rules := make([]Rule, len(patches))
	for i, p := range patches {
		rules[i] = p.Stored()
	}
	return rules, nil
}

// Save replaces the persisted rules.
func (r *JSONRepository) Save(rules []Rule) error {
	if rules == nil {
		rules = []Rule{}
	}
	if err := storage.WriteJSON(r.store, storage.RulesPath, rules); err != nil {
		return fmt.Errorf("saving rules: %w", err)
	}
	return nil
}
