// Package statestore persists desk state between sessions.
package statestore

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/peter-kozarec/paperdesk/pkg/portfolio"
)

type StateStore interface {
	Save(state portfolio.State) error
	Load() (portfolio.State, error)
}

// FileStore keeps one JSON snapshot on disk. Save writes to a temp file and
// renames over the target so a crash mid-write never leaves a torn snapshot.
type FileStore struct {
	path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (s *FileStore) Save(state portfolio.State) error {
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("unable to marshal state: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("unable to write state file %q: %w", tmp, err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("unable to replace state file %q: %w", s.path, err)
	}
	return nil
}

// Load returns the persisted state, or a zero state when the file is missing
// or unreadable. Startup must not fail on a bad snapshot.
func (s *FileStore) Load() (portfolio.State, error) {
	var state portfolio.State

	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return state, nil
		}
		slog.Warn("unable to read state file, starting fresh", "path", s.path, "error", err)
		return state, nil
	}

	if err := json.Unmarshal(data, &state); err != nil {
		slog.Warn("state file is corrupt, starting fresh", "path", s.path, "error", err)
		return portfolio.State{}, nil
	}

	return state, nil
}

func (s *FileStore) String() string {
	return filepath.Clean(s.path)
}
