// Copyright 2025 The OdontoMapa Authors
// SPDX-License-Identifier: Apache-2.0

// Package clinics stores the clinic directory and ranks it against a
// resolved user location.
package clinics

import (
	"fmt"
	"time"

	"github.com/uber/h3-go/v4"

	"github.com/odontomapa/odontomapa/spatial"
)

// Clinic is a directory entry. Point is nil when the clinic has not
// been geocoded yet.
type Clinic struct {
	ID        int            `json:"id"`
	Name      string         `json:"name"`
	City      string         `json:"city"`
	State     string         `json:"state"`
	Address   string         `json:"address"`
	Phone     string         `json:"phone"`
	Point     *spatial.Point `json:"point"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	H3Res5    int64          `json:"-"`
	H3Res6    int64          `json:"-"`
	H3Res7    int64          `json:"-"`
	H3Res8    int64          `json:"-"`
}

func (c *Clinic) computeH3() error {
	if c.Point == nil {
		c.H3Res5 = 0
		c.H3Res6 = 0
		c.H3Res7 = 0
		c.H3Res8 = 0

		return nil
	}

	latLng := h3.NewLatLng(c.Point.Lat, c.Point.Lng)
	for res := 5; res <= 8; res++ {
		cell, err := h3.LatLngToCell(latLng, res)
		if err != nil {
			return fmt.Errorf("error converting to h3 cell at res %d: %w", res, err)
		}

		switch res {
		case 5:
			c.H3Res5 = int64(cell)
		case 6:
			c.H3Res6 = int64(cell)
		case 7:
			c.H3Res7 = int64(cell)
		case 8:
			c.H3Res8 = int64(cell)
		}
	}

	return nil
}

// RankedClinic is a clinic augmented with its distance from the user.
type RankedClinic struct {
	Clinic
	DistanceKm float64 `json:"distance_km"`
}
