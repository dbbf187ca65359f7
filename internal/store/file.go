package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/mavillena/aemet-track/internal/climate"
)

const (
	historyFile = "historical.json"
	summaryFile = "summary.json"
	stateFile   = "state.json"
)

// FileStore persists the history, summary and run state as flat JSON
// files inside a data directory.
type FileStore struct {
	dir string
}

// NewFileStore creates the data directory if needed and returns a store
// rooted at it.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

// LoadHistory reads and validates the persisted year records. A missing
// file is reported as climate.ErrNotStored; a malformed one is a
// distinct failure, never silently replaced by empty data.
func (s *FileStore) LoadHistory(_ context.Context) (climate.History, error) {
	var history climate.History
	if err := s.readJSON(historyFile, &history); err != nil {
		return nil, err
	}
	if err := history.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", historyFile, err)
	}
	return history, nil
}

// SaveHistory writes the full history.
func (s *FileStore) SaveHistory(_ context.Context, history climate.History) error {
	return s.writeJSON(historyFile, history)
}

// LoadSummary reads the persisted summary.
func (s *FileStore) LoadSummary(_ context.Context) (*climate.Summary, error) {
	summary := new(climate.Summary)
	if err := s.readJSON(summaryFile, summary); err != nil {
		return nil, err
	}
	return summary, nil
}

// SaveSummary writes the derived summary.
func (s *FileStore) SaveSummary(_ context.Context, summary *climate.Summary) error {
	return s.writeJSON(summaryFile, summary)
}

// LoadState reads the persisted run state.
func (s *FileStore) LoadState(_ context.Context) (RunState, error) {
	var state RunState
	if err := s.readJSON(stateFile, &state); err != nil {
		return RunState{}, err
	}
	return state, nil
}

// SaveState writes the run state.
func (s *FileStore) SaveState(_ context.Context, state RunState) error {
	return s.writeJSON(stateFile, state)
}

func (s *FileStore) readJSON(name string, target any) error {
	data, err := os.ReadFile(filepath.Join(s.dir, name))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%s: %w", name, climate.ErrNotStored)
		}
		return fmt.Errorf("read %s: %w", name, err)
	}
	if err = json.Unmarshal(data, target); err != nil {
		return fmt.Errorf("decode %s: %w", name, err)
	}
	return nil
}

// writeJSON writes through a temp file and renames it into place, so a
// crash mid-write never leaves a truncated data file behind.
func (s *FileStore) writeJSON(name string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", name, err)
	}
	tmp := filepath.Join(s.dir, name+".tmp")
	if err = os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	if err = os.Rename(tmp, filepath.Join(s.dir, name)); err != nil {
		return fmt.Errorf("replace %s: %w", name, err)
	}
	return nil
}
