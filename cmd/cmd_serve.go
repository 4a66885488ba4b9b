// Copyright 2025 The OdontoMapa Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"path/filepath"

	_ "github.com/duckdb/duckdb-go/v2" // register duckdb driver
	"github.com/spf13/cobra"

	"github.com/odontomapa/odontomapa/clinics"
	"github.com/odontomapa/odontomapa/config"
	"github.com/odontomapa/odontomapa/geocode"
	"github.com/odontomapa/odontomapa/location"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the clinic locator API server",
	Args:  cobra.NoArgs,
	RunE: func(_ *cobra.Command, _ []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		if dir := filepath.Dir(cfg.DBPath); dir != "." {
			if err := os.MkdirAll(dir, 0o750); err != nil {
				return fmt.Errorf("creating db directory: %w", err)
			}
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

		seeded, count, err := clinics.SeedIfEmpty(repo)
		if err != nil {
			return fmt.Errorf("seeding clinics: %w", err)
		}

		if seeded {
			log.Printf("Seeded %d clinics into %s", count, cfg.DBPath)
		} else {
			log.Printf("Directory has %d clinics", count)
		}

		geocoder := geocode.NewReverseGeocoder(geocode.NewNominatimClient(cfg.NominatimURL))

		resolver := location.NewResolver(
			location.NewFileStore(cfg.CacheFile),
			nil,
			[]location.IPLocator{
				location.NewIPAPIClient(cfg.IPAPIURL),
				location.NewIPAPIComClient(cfg.IPAPIComURL),
			},
			geocoder,
			// no position sensor on the server process; acquisition
			// starts at the IP stage
			location.Capabilities{Geolocation: true, SecureContext: false},
		)

		server := clinics.NewServer(repo, resolver, geocoder)

		log.Printf("odontomapa %s listening on %s", Version, cfg.ListenAddr)

		return server.Run(cfg.ListenAddr)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
