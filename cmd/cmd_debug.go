// Copyright 2025 The OdontoMapa Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"bufio"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	_ "github.com/duckdb/duckdb-go/v2" // register duckdb driver
	"github.com/spf13/cobra"

	"github.com/odontomapa/odontomapa/clinics"
	"github.com/odontomapa/odontomapa/config"
	"github.com/odontomapa/odontomapa/gazetteer"
	"github.com/odontomapa/odontomapa/geocode"
	"github.com/odontomapa/odontomapa/location"
	"github.com/odontomapa/odontomapa/spatial"
)

func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}

	return (info.Mode() & os.ModeCharDevice) != 0
}

var debugCmd = &cobra.Command{
	Use:   "debug",
	Short: "Dev tools",
}

var debugGeocodeCmd = &cobra.Command{
	Use:   "geocode",
	Short: "Reverse geocode coordinates read from stdin",
	Long: `Lê um par "lat lng" por linha e imprime o resultado da geocodificação
reversa.

$ echo "-16.6469 -49.4889" | odontomapa debug geocode
-16.6469 -49.4889	{"city":"Trindade","state":"Goiás",…}
	`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		geocoder := geocode.NewReverseGeocoder(geocode.NewNominatimClient(cfg.NominatimURL))

		input := os.Stdin
		if isTerminal(input) {
			fmt.Fprintln(os.Stderr, "Informe coordenadas (lat lng), uma por linha…")
		}

		scanner := bufio.NewScanner(input)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" {
				continue
			}

			pt, err := parsePoint(line)
			if err != nil {
				fmt.Printf("%s\t%q\n", line, err)

				continue
			}

			result := geocoder.Reverse(cmd.Context(), pt)

			s, err := json.Marshal(result)
			if err != nil {
				log.Fatal(err)
			}

			fmt.Printf("%s\t%s\n", line, s)
		}

		return scanner.Err()
	},
}

var debugRankCmd = &cobra.Command{
	Use:   "rank <lat> <lng>",
	Short: "Rank the stored clinics around a coordinate",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		pt, err := parsePoint(args[0] + " " + args[1])
		if err != nil {
			return err
		}

		cfg, err := config.Load()
		if err != nil {
			return err
		}

		repo, db, err := openRepository(cfg)
		if err != nil {
			return err
		}
		defer db.Close()

		all, err := repo.ListClinics(nil, 0, 0)
		if err != nil {
			return fmt.Errorf("listing clinics: %w", err)
		}

		geocoder := geocode.NewReverseGeocoder(nil)
		place := geocoder.Reverse(cmd.Context(), pt)

		loc := location.Resolved{
			City:    place.City,
			State:   place.State,
			Country: place.Country,
			Point:   &pt,
			Status:  location.StatusGPS,
		}

		ranked := clinics.Rank(all, loc, clinics.DefaultMaxDistanceKm)

		code, _ := gazetteer.StateCode(place.State)
		fmt.Printf("# %s, %s (%s) via %s\n", place.City, place.State, code, place.Source)

		for _, c := range ranked {
			fmt.Printf("%6.1f km\t%s\t%s, %s\n", c.DistanceKm, c.Name, c.City, c.State)
		}

		return nil
	},
}

func openRepository(cfg *config.Config) (clinics.Repository, *sql.DB, error) {
	db, err := sql.Open("duckdb", cfg.DBPath)
	if err != nil {
		return nil, nil, fmt.Errorf("opening database: %w", err)
	}

	repo := clinics.NewRepository(db)
	if err := repo.CreateSchema(); err != nil {
		db.Close()

		return nil, nil, fmt.Errorf("creating schema: %w", err)
	}

	return repo, db, nil
}

func parsePoint(line string) (spatial.Point, error) {
	fields := strings.Fields(line)
	if len(fields) != 2 {
		return spatial.Point{}, fmt.Errorf("expected \"lat lng\", got %q", line)
	}

	lat, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return spatial.Point{}, fmt.Errorf("parsing latitude: %w", err)
	}

	lng, err := strconv.ParseFloat(fields[1], 64)
	if err != nil {
		return spatial.Point{}, fmt.Errorf("parsing longitude: %w", err)
	}

	pt := spatial.Point{Lat: lat, Lng: lng}
	if !pt.Valid() {
		return spatial.Point{}, fmt.Errorf("coordinates out of range: %s", line)
	}

	return pt, nil
}

func init() {
	debugCmd.AddCommand(debugGeocodeCmd)
	debugCmd.AddCommand(debugRankCmd)
	rootCmd.AddCommand(debugCmd)
}
