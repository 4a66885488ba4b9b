// Copyright 2025 The OdontoMapa Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"database/sql"
	"fmt"
	"log"

	_ "github.com/duckdb/duckdb-go/v2" // register duckdb driver
	"github.com/spf13/cobra"

	"github.com/odontomapa/odontomapa/clinics"
	"github.com/odontomapa/odontomapa/config"
)

var seedImportFile string

var seedExportFile string

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Populate or export the clinic directory",
	Args:  cobra.NoArgs,
	RunE: func(_ *cobra.Command, _ []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		db, err := sql.Open("duckdb", cfg.DBPath)
		if err != nil {
			return fmt.Errorf("opening database: %w", err)
		}
		defer db.Close()

		repo := clinics.NewRepository(db)
		if err := repo.CreateSchema(); err != nil {
			return fmt.Errorf("creating schema: %w", err)
		}

		if seedExportFile != "" {
			if err := clinics.ExportToJSON(repo, seedExportFile); err != nil {
				return fmt.Errorf("exporting clinics: %w", err)
			}

			log.Printf("Exported clinics to %s", seedExportFile)

			return nil
		}

		if seedImportFile != "" {
			imported, err := clinics.ImportFromJSON(repo, seedImportFile)
			if err != nil {
				return fmt.Errorf("importing clinics: %w", err)
			}

			log.Printf("Imported %d clinics from %s", imported, seedImportFile)

			return nil
		}

		seeded, count, err := clinics.SeedIfEmpty(repo)
		if err != nil {
			return fmt.Errorf("seeding clinics: %w", err)
		}

		if !seeded {
			log.Printf("Directory already has %d clinics, nothing to do", count)

			return nil
		}

		log.Printf("Seeded %d clinics", count)

		return nil
	},
}

func init() {
	seedCmd.Flags().StringVar(&seedImportFile, "import", "", "import clinics from a JSON file")
	seedCmd.Flags().StringVar(&seedExportFile, "export", "", "export clinics to a JSON file")
	rootCmd.AddCommand(seedCmd)
}
