// Copyright 2025 The OdontoMapa Authors
// SPDX-License-Identifier: Apache-2.0

package clinics

import (
	"math"
	"sort"

	"github.com/odontomapa/odontomapa/gazetteer"
	"github.com/odontomapa/odontomapa/location"
	"github.com/odontomapa/odontomapa/utils/textutils"
)

// DefaultMaxDistanceKm bounds how far a clinic may be from the user
// and still be offered.
const DefaultMaxDistanceKm = 100.0

// Rank scores clinics against the user's location and returns the best
// tier sorted by distance. Tiers are tried in order: same city, same
// state, adjacent states, then the whole within-radius set.
//
// Clinics without a coordinate get an infinite distance and never pass
// the radius filter. When the user has no coordinate, distances are
// zero and the tiers select purely by city and state.
func Rank(clinics []*Clinic, loc location.Resolved, maxDistanceKm float64) []*RankedClinic {
	if maxDistanceKm <= 0 {
		maxDistanceKm = DefaultMaxDistanceKm
	}

	inRadius := make([]*RankedClinic, 0, len(clinics))

	for _, c := range clinics {
		d := math.Inf(1)

		switch {
		case c.Point == nil:
			// excluded below
		case loc.Point == nil:
			d = 0
		default:
			d = loc.Point.DistanceKm(*c.Point)
		}

		if d > maxDistanceKm {
			continue
		}

		inRadius = append(inRadius, &RankedClinic{Clinic: *c, DistanceKm: d})
	}

	if loc.City == "" && loc.State == "" {
		return sorted(inRadius)
	}

	if tier := sameCity(inRadius, loc.City); len(tier) > 0 {
		return sorted(tier)
	}

	stateCode, _ := gazetteer.StateCode(loc.State)

	if tier := inStates(inRadius, []string{stateCode}); len(tier) > 0 {
		return sorted(tier)
	}

	if tier := inStates(inRadius, gazetteer.NearbyStates(stateCode)); len(tier) > 0 {
		return sorted(tier)
	}

	return sorted(inRadius)
}

func sameCity(clinics []*RankedClinic, city string) []*RankedClinic {
	if city == "" {
		return nil
	}

	var tier []*RankedClinic

	for _, c := range clinics {
		if textutils.ContainsFold(c.City, city) {
			tier = append(tier, c)
		}
	}

	return tier
}

// inStates keeps clinics whose city resolves, through the gazetteer,
// to one of the given state codes. A clinic in a city the gazetteer
// does not know resolves to no state and stays out of these tiers; it
// can still surface through the within-radius fallback.
func inStates(clinics []*RankedClinic, codes []string) []*RankedClinic {
	if len(codes) == 0 || codes[0] == "" {
		return nil
	}

	allowed := make(map[string]bool, len(codes))
	for _, code := range codes {
		allowed[code] = true
	}

	var tier []*RankedClinic

	for _, c := range clinics {
		if code, ok := gazetteer.StateOf(c.City); ok && allowed[code] {
			tier = append(tier, c)
		}
	}

	return tier
}

func sorted(clinics []*RankedClinic) []*RankedClinic {
	sort.SliceStable(clinics, func(i, j int) bool {
		if clinics[i].DistanceKm != clinics[j].DistanceKm {
			return clinics[i].DistanceKm < clinics[j].DistanceKm
		}

		return clinics[i].Name < clinics[j].Name
	})

	return clinics
}
