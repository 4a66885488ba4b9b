// Copyright 2025 The OdontoMapa Authors
// SPDX-License-Identifier: Apache-2.0

package clinics

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"
)

//go:embed seed_data.json
var seedData []byte

// SeedFile represents the JSON seed file format.
type SeedFile struct {
	Version     string    `json:"version"`
	LastUpdated time.Time `json:"last_updated"`
	Clinics     []*Clinic `json:"clinics"`
}

// ImportFromJSON imports clinics from a JSON file.
func ImportFromJSON(repo Repository, filepath string) (int, error) {
	data, err := os.ReadFile(filepath) // #nosec G304 - filepath is provided by admin
	if err != nil {
		return 0, fmt.Errorf("reading file: %w", err)
	}

	return importSeed(repo, data)
}

// ExportToJSON exports all clinics to a JSON file.
func ExportToJSON(repo Repository, filepath string) error {
	clinics, err := repo.ListClinics(nil, 0, 0)
	if err != nil {
		return fmt.Errorf("listing clinics: %w", err)
	}

	seed := &SeedFile{
		Version:     "1.0",
		LastUpdated: time.Now(),
		Clinics:     clinics,
	}

	data, err := json.MarshalIndent(seed, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling JSON: %w", err)
	}

	err = os.WriteFile(filepath, data, 0o600)
	if err != nil {
		return fmt.Errorf("writing file: %w", err)
	}

	return nil
}

// SeedIfEmpty loads the embedded directory when the table is empty.
func SeedIfEmpty(repo Repository) (bool, int, error) {
	count, err := repo.CountClinics()
	if err != nil {
		return false, 0, fmt.Errorf("counting clinics: %w", err)
	}

	if count > 0 {
		return false, count, nil
	}

	imported, err := importSeed(repo, seedData)
	if err != nil {
		return false, imported, err
	}

	return true, imported, nil
}

func importSeed(repo Repository, data []byte) (int, error) {
	var seed SeedFile
	if err := json.Unmarshal(data, &seed); err != nil {
		return 0, fmt.Errorf("parsing JSON: %w", err)
	}

	var bar *progressbar.ProgressBar
	if isatty.IsTerminal(os.Stderr.Fd()) {
		bar = progressbar.NewOptions(len(seed.Clinics),
			progressbar.OptionSetDescription("Seeding clinics"),
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionShowCount(),
			progressbar.OptionClearOnFinish(),
		)
	}

	imported := 0

	for _, clinic := range seed.Clinics {
		if err := repo.SaveClinic(clinic); err != nil {
			return imported, fmt.Errorf("saving clinic %s: %w", clinic.Name, err)
		}

		imported++

		if bar != nil {
			_ = bar.Add(1)
		}
	}

	return imported, nil
}
