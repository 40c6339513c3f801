package registry

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/kazuhidet/Web-Interface-for-WoL/pkg/models"
)

// Store persists the whole registry document
type Store interface {
	Load() (*models.State, error)
	Save(state *models.State) error
}

// FileStore keeps the registry in a single JSON file. Writes go to a
// temporary file in the same directory which is then renamed over the target,
// so readers see either the old or the new document.
type FileStore struct {
	path string
}

// NewFileStore creates the parent directory if needed
func NewFileStore(path string) (*FileStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	return &FileStore{path: path}, nil
}

// Path returns the file location
func (s *FileStore) Path() string {
	return s.path
}

// Load reads the document. A missing file is an empty registry.
func (s *FileStore) Load() (*models.State, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return emptyState(), nil
		}
		return nil, fmt.Errorf("failed to read %s: %w", s.path, err)
	}

	state := emptyState()
	if len(data) == 0 {
		return state, nil
	}
	if err := json.Unmarshal(data, state); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", s.path, err)
	}
	if state.Agents == nil {
		state.Agents = []models.Agent{}
	}
	if state.Hosts == nil {
		state.Hosts = []models.Host{}
	}
	return state, nil
}

// Save writes the document atomically
func (s *FileStore) Save(state *models.State) error {
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), "."+filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := func() { os.Remove(tmpName) }

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		cleanup()
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		cleanup()
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		cleanup()
		return fmt.Errorf("failed to replace %s: %w", s.path, err)
	}
	return nil
}

func emptyState() *models.State {
	return &models.State{Agents: []models.Agent{}, Hosts: []models.Host{}}
}
