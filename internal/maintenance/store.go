package maintenance

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

// ErrNotFound is returned by Load when no maintenance record exists.
var ErrNotFound = errors.New("maintenance state not found")

// FileStore persists the maintenance State as a single JSON file. Writes
// replace the whole file; concurrent enable/disable from separate operator
// sessions are last-writer-wins, which is acceptable for a low-frequency
// control action.
type FileStore struct {
	path string
}

// NewFileStore creates a FileStore backed by the given path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Load reads the persisted state. It returns ErrNotFound when the file does
// not exist and a wrapped error for unreadable or corrupt content; callers
// treat both as "disabled".
func (s *FileStore) Load() (*State, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("reading maintenance state: %w", err)
	}

	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("parsing maintenance state: %w", err)
	}
	return &state, nil
}

// Save writes the state, replacing any existing record.
func (s *FileStore) Save(state *State) error {
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding maintenance state: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("writing maintenance state: %w", err)
	}
	return nil
}

// Remove deletes the persisted record. Removing an absent record is not an
// error.
func (s *FileStore) Remove() error {
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing maintenance state: %w", err)
	}
	return nil
}
