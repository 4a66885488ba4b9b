// Copyright 2025 The OdontoMapa Authors
// SPDX-License-Identifier: Apache-2.0

package location

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// Snapshot is the persisted form of a resolved location: a single
// record replaced whole on every write.
type Snapshot struct {
	City        string `json:"city"`
	State       string `json:"state"`
	Country     string `json:"country"`
	Timestamp   int64  `json:"timestamp"` // epoch milliseconds
	Coordinates struct {
		Lat float64 `json:"lat"`
		Lng float64 `json:"lng"`
	} `json:"coordinates"`
}

// Store persists a single location snapshot between sessions.
type Store interface {
	// Load returns the stored snapshot, or nil when none exists.
	Load() (*Snapshot, error)
	// Save replaces the stored snapshot.
	Save(*Snapshot) error
	// Clear removes the stored snapshot.
	Clear() error
}

// FileStore keeps the snapshot as a JSON file.
type FileStore struct {
	path string
}

// NewFileStore creates a file-backed store at path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Load implements Store.
func (s *FileStore) Load() (*Snapshot, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}

		return nil, fmt.Errorf("reading location cache: %w", err)
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("parsing location cache: %w", err)
	}

	return &snap, nil
}

// Save implements Store.
func (s *FileStore) Save(snap *Snapshot) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o750); err != nil {
		return fmt.Errorf("creating cache directory: %w", err)
	}

	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshaling location cache: %w", err)
	}

	if err := os.WriteFile(s.path, data, 0o600); err != nil {
		return fmt.Errorf("writing location cache: %w", err)
	}

	return nil
}

// Clear implements Store.
func (s *FileStore) Clear() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("clearing location cache: %w", err)
	}

	return nil
}

// MemoryStore is an in-process Store, used in tests and as a fallback
// when no cache path is configured.
type MemoryStore struct {
	snap *Snapshot
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Load implements Store.
func (s *MemoryStore) Load() (*Snapshot, error) {
	if s.snap == nil {
		return nil, nil
	}

	cp := *s.snap

	return &cp, nil
}

// Save implements Store.
func (s *MemoryStore) Save(snap *Snapshot) error {
	cp := *snap
	s.snap = &cp

	return nil
}

// Clear implements Store.
func (s *MemoryStore) Clear() error {
	s.snap = nil

	return nil
}
