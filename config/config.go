// Copyright 2025 The OdontoMapa Authors
// SPDX-License-Identifier: Apache-2.0

// Package config reads runtime settings from the environment.
package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	ListenAddr   string `env:"LISTEN_ADDR" envDefault:"localhost:8080"`
	DBPath       string `env:"DB_PATH" envDefault:"odontomapa.db"`
	CacheFile    string `env:"LOCATION_CACHE_FILE" envDefault:"data/location.json"`
	NominatimURL string `env:"NOMINATIM_URL" envDefault:"https://nominatim.openstreetmap.org"`
	IPAPIURL     string `env:"IPAPI_URL" envDefault:""`
	IPAPIComURL  string `env:"IPAPI_COM_URL" envDefault:""`
}

func Load() (*Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}

	return &cfg, nil
}
