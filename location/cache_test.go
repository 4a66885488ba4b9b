// Copyright 2025 The OdontoMapa Authors
// SPDX-License-Identifier: Apache-2.0

package location

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStoreRoundTrip(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "location.json"))

	snap, err := store.Load()
	require.NoError(t, err)
	assert.Nil(t, snap)

	in := &Snapshot{
		City:      "Goiânia",
		State:     "Goiás",
		Country:   "Brasil",
		Timestamp: 1756700000000,
	}
	in.Coordinates.Lat = -16.6864
	in.Coordinates.Lng = -49.2643
	require.NoError(t, store.Save(in))

	out, err := store.Load()
	require.NoError(t, err)
	require.NotNil(t, out)
	assert.Equal(t, in, out)

	require.NoError(t, store.Clear())

	out, err = store.Load()
	require.NoError(t, err)
	assert.Nil(t, out)
}

func TestFileStoreCreatesParentDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "location.json")
	store := NewFileStore(path)

	require.NoError(t, store.Save(&Snapshot{City: "Trindade"}))

	_, err := os.Stat(path)
	require.NoError(t, err)
}

func TestFileStoreCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "location.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	_, err := NewFileStore(path).Load()
	assert.Error(t, err)
}

func TestFileStoreClearMissingFile(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "absent.json"))
	assert.NoError(t, store.Clear())
}
