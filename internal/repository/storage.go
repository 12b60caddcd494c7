package repository

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Storage is a small JSON-file store. Writes go through a temp file and a
// rename so a crash mid-write never leaves a truncated journal behind.
type Storage struct {
	mu sync.Mutex
}

func NewStorage() *Storage {
	return &Storage{}
}

func (s *Storage) Read(path string, v interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil // caller handles initialization
		}
		return fmt.Errorf("failed to open file %s: %w", path, err)
	}
	defer file.Close()

	if err := json.NewDecoder(file).Decode(v); err != nil {
		return fmt.Errorf("failed to decode json from %s: %w", path, err)
	}
	return nil
}

func (s *Storage) Write(path string, v interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode json for %s: %w", path, err)
	}

	tmp := filepath.Join(filepath.Dir(path), "."+filepath.Base(path)+".tmp")
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write temp file for %s: %w", path, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}

func (s *Storage) Exists(path string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := os.Stat(path)
	return !os.IsNotExist(err)
}
