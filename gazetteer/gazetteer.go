// Copyright 2025 The OdontoMapa Authors
// SPDX-License-Identifier: Apache-2.0

// Package gazetteer holds the static reference table of Brazilian
// cities the locator knows about: canonical coordinates, state code and
// a per-city detection radius, plus state name and adjacency lookups.
// The table is read-only after process start.
package gazetteer

import (
	"sync"

	"github.com/uber/h3-go/v4"

	"github.com/odontomapa/odontomapa/spatial"
	"github.com/odontomapa/odontomapa/utils/textutils"
)

// Entry describes one known city.
type Entry struct {
	Name              string
	StateCode         string
	Point             spatial.Point
	DetectionRadiusKm float64
}

// Detection radii are intentionally asymmetric: metro hubs get wide
// radii, small municipalities tight ones. Trindade is enlarged to 20 km
// so it absorbs coordinates the external geocoder mislabels as the
// neighboring Goianira (see geocode.correctKnownMisread).
var entries = []Entry{
	// Goiás metro area and interior
	{Name: "Goiânia", StateCode: "GO", Point: spatial.Point{Lat: -16.6864, Lng: -49.2643}, DetectionRadiusKm: 25},
	{Name: "Trindade", StateCode: "GO", Point: spatial.Point{Lat: -16.6469, Lng: -49.4889}, DetectionRadiusKm: 20},
	{Name: "Aparecida de Goiânia", StateCode: "GO", Point: spatial.Point{Lat: -16.8198, Lng: -49.2469}, DetectionRadiusKm: 12},
	{Name: "Senador Canedo", StateCode: "GO", Point: spatial.Point{Lat: -16.7083, Lng: -49.0914}, DetectionRadiusKm: 10},
	{Name: "Goianira", StateCode: "GO", Point: spatial.Point{Lat: -16.4958, Lng: -49.4261}, DetectionRadiusKm: 8},
	{Name: "Abadia de Goiás", StateCode: "GO", Point: spatial.Point{Lat: -16.7583, Lng: -49.4400}, DetectionRadiusKm: 7},
	{Name: "Guapó", StateCode: "GO", Point: spatial.Point{Lat: -16.8300, Lng: -49.5319}, DetectionRadiusKm: 7},
	{Name: "Hidrolândia", StateCode: "GO", Point: spatial.Point{Lat: -16.9619, Lng: -49.2283}, DetectionRadiusKm: 8},
	{Name: "Inhumas", StateCode: "GO", Point: spatial.Point{Lat: -16.3578, Lng: -49.4958}, DetectionRadiusKm: 8},
	{Name: "Anápolis", StateCode: "GO", Point: spatial.Point{Lat: -16.3281, Lng: -48.9530}, DetectionRadiusKm: 15},
	{Name: "Rio Verde", StateCode: "GO", Point: spatial.Point{Lat: -17.7972, Lng: -50.9264}, DetectionRadiusKm: 15},
	{Name: "Caldas Novas", StateCode: "GO", Point: spatial.Point{Lat: -17.7442, Lng: -48.6250}, DetectionRadiusKm: 10},
	{Name: "Luziânia", StateCode: "GO", Point: spatial.Point{Lat: -16.2525, Lng: -47.9503}, DetectionRadiusKm: 10},
	// Federal District and Southeast
	{Name: "Brasília", StateCode: "DF", Point: spatial.Point{Lat: -15.7939, Lng: -47.8828}, DetectionRadiusKm: 30},
	{Name: "São Paulo", StateCode: "SP", Point: spatial.Point{Lat: -23.5505, Lng: -46.6333}, DetectionRadiusKm: 40},
	{Name: "Campinas", StateCode: "SP", Point: spatial.Point{Lat: -22.9099, Lng: -47.0626}, DetectionRadiusKm: 18},
	{Name: "Rio de Janeiro", StateCode: "RJ", Point: spatial.Point{Lat: -22.9068, Lng: -43.1729}, DetectionRadiusKm: 35},
	{Name: "Belo Horizonte", StateCode: "MG", Point: spatial.Point{Lat: -19.9167, Lng: -43.9345}, DetectionRadiusKm: 30},
	{Name: "Uberlândia", StateCode: "MG", Point: spatial.Point{Lat: -18.9186, Lng: -48.2772}, DetectionRadiusKm: 15},
	{Name: "Uberaba", StateCode: "MG", Point: spatial.Point{Lat: -19.7483, Lng: -47.9319}, DetectionRadiusKm: 12},
	{Name: "Vitória", StateCode: "ES", Point: spatial.Point{Lat: -20.3155, Lng: -40.3128}, DetectionRadiusKm: 15},
	// South
	{Name: "Curitiba", StateCode: "PR", Point: spatial.Point{Lat: -25.4284, Lng: -49.2733}, DetectionRadiusKm: 25},
	{Name: "Florianópolis", StateCode: "SC", Point: spatial.Point{Lat: -27.5954, Lng: -48.5480}, DetectionRadiusKm: 18},
	{Name: "Porto Alegre", StateCode: "RS", Point: spatial.Point{Lat: -30.0346, Lng: -51.2177}, DetectionRadiusKm: 25},
	// Center-West and North
	{Name: "Cuiabá", StateCode: "MT", Point: spatial.Point{Lat: -15.6014, Lng: -56.0979}, DetectionRadiusKm: 20},
	{Name: "Campo Grande", StateCode: "MS", Point: spatial.Point{Lat: -20.4697, Lng: -54.6201}, DetectionRadiusKm: 20},
	{Name: "Palmas", StateCode: "TO", Point: spatial.Point{Lat: -10.1844, Lng: -48.3336}, DetectionRadiusKm: 15},
	{Name: "Manaus", StateCode: "AM", Point: spatial.Point{Lat: -3.1190, Lng: -60.0217}, DetectionRadiusKm: 25},
	{Name: "Belém", StateCode: "PA", Point: spatial.Point{Lat: -1.4558, Lng: -48.4902}, DetectionRadiusKm: 20},
	// Northeast
	{Name: "Salvador", StateCode: "BA", Point: spatial.Point{Lat: -12.9777, Lng: -38.5016}, DetectionRadiusKm: 25},
	{Name: "Fortaleza", StateCode: "CE", Point: spatial.Point{Lat: -3.7319, Lng: -38.5267}, DetectionRadiusKm: 25},
	{Name: "Recife", StateCode: "PE", Point: spatial.Point{Lat: -8.0476, Lng: -34.8770}, DetectionRadiusKm: 20},
	{Name: "Natal", StateCode: "RN", Point: spatial.Point{Lat: -5.7945, Lng: -35.2110}, DetectionRadiusKm: 15},
	{Name: "João Pessoa", StateCode: "PB", Point: spatial.Point{Lat: -7.1195, Lng: -34.8450}, DetectionRadiusKm: 15},
	{Name: "Maceió", StateCode: "AL", Point: spatial.Point{Lat: -9.6498, Lng: -35.7089}, DetectionRadiusKm: 15},
	{Name: "Teresina", StateCode: "PI", Point: spatial.Point{Lat: -5.0892, Lng: -42.8019}, DetectionRadiusKm: 15},
	{Name: "São Luís", StateCode: "MA", Point: spatial.Point{Lat: -2.5307, Lng: -44.3068}, DetectionRadiusKm: 18},
	{Name: "Aracaju", StateCode: "SE", Point: spatial.Point{Lat: -10.9472, Lng: -37.0731}, DetectionRadiusKm: 12},
}

// stateNames maps UF codes to display names.
var stateNames = map[string]string{
	"AC": "Acre", "AL": "Alagoas", "AP": "Amapá", "AM": "Amazonas",
	"BA": "Bahia", "CE": "Ceará", "DF": "Distrito Federal",
	"ES": "Espírito Santo", "GO": "Goiás", "MA": "Maranhão",
	"MT": "Mato Grosso", "MS": "Mato Grosso do Sul", "MG": "Minas Gerais",
	"PA": "Pará", "PB": "Paraíba", "PR": "Paraná", "PE": "Pernambuco",
	"PI": "Piauí", "RJ": "Rio de Janeiro", "RN": "Rio Grande do Norte",
	"RS": "Rio Grande do Sul", "RO": "Rondônia", "RR": "Roraima",
	"SC": "Santa Catarina", "SP": "São Paulo", "SE": "Sergipe",
	"TO": "Tocantins",
}

// adjacentStates lists the "nearby states" used to widen clinic
// searches beyond the user's own state.
var adjacentStates = map[string][]string{
	"GO": {"DF", "MT", "MS", "MG", "TO", "BA"},
	"DF": {"GO", "MG"},
	"MG": {"SP", "RJ", "ES", "BA", "GO", "DF", "MS"},
	"SP": {"MG", "RJ", "PR", "MS"},
	"RJ": {"SP", "MG", "ES"},
	"ES": {"MG", "RJ", "BA"},
	"PR": {"SP", "SC", "MS"},
	"SC": {"PR", "RS"},
	"RS": {"SC"},
	"MS": {"GO", "MG", "SP", "PR", "MT"},
	"MT": {"GO", "MS", "TO", "PA", "AM", "RO"},
	"TO": {"GO", "MT", "BA", "PI", "MA", "PA"},
	"BA": {"GO", "MG", "ES", "SE", "AL", "PE", "PI", "TO"},
	"SE": {"BA", "AL"},
	"AL": {"SE", "BA", "PE"},
	"PE": {"AL", "BA", "PI", "CE", "PB"},
	"PB": {"PE", "CE", "RN"},
	"RN": {"PB", "CE"},
	"CE": {"RN", "PB", "PE", "PI"},
	"PI": {"CE", "PE", "BA", "TO", "MA"},
	"MA": {"PI", "TO", "PA"},
	"PA": {"MA", "TO", "MT", "AM", "AP", "RR"},
	"AM": {"PA", "MT", "RO", "RR", "AC"},
	"RO": {"AM", "MT", "AC"},
	"AC": {"AM", "RO"},
	"RR": {"AM", "PA"},
	"AP": {"PA"},
}

// cellResolution determines the granularity of the H3 index used for
// nearest-city lookups. Resolution 3 cells are ~60 km across, so a
// two-ring grid disk comfortably covers the largest detection radius
// (São Paulo, 40 km) with margin.
const cellResolution = 3

type cityIndex struct {
	byName     map[string]int
	byCell     map[h3.Cell][]int
	stateCodes map[string]string // folded state name -> UF code
}

var index = sync.OnceValue(func() *cityIndex {
	idx := &cityIndex{
		byName:     make(map[string]int, len(entries)),
		byCell:     make(map[h3.Cell][]int, len(entries)),
		stateCodes: make(map[string]string, len(stateNames)*2),
	}

	for i, e := range entries {
		idx.byName[textutils.Fold(e.Name)] = i

		cell, err := h3.LatLngToCell(h3.NewLatLng(e.Point.Lat, e.Point.Lng), cellResolution)
		if err != nil {
			continue // entry still reachable through the full scan path
		}

		idx.byCell[cell] = append(idx.byCell[cell], i)
	}

	for code, name := range stateNames {
		idx.stateCodes[textutils.Fold(name)] = code
		idx.stateCodes[textutils.Fold(code)] = code
	}

	return idx
})

// Lookup returns the entry for a city name. Matching is case and
// accent insensitive.
func Lookup(name string) (Entry, bool) {
	if i, ok := index().byName[textutils.Fold(name)]; ok {
		return entries[i], true
	}

	return Entry{}, false
}

// candidates returns the entry indices worth checking for a point,
// pruned by the H3 cell index. Falls back to all entries when the
// point cannot be indexed.
func candidates(pt spatial.Point) []int {
	cell, err := h3.LatLngToCell(h3.NewLatLng(pt.Lat, pt.Lng), cellResolution)
	if err == nil {
		disk, diskErr := h3.GridDisk(cell, 2)
		if diskErr == nil {
			var out []int
			for _, c := range disk {
				out = append(out, index().byCell[c]...)
			}

			return out
		}
	}

	all := make([]int, len(entries))
	for i := range entries {
		all[i] = i
	}

	return all
}

// NearestCity returns the entry closest to pt, provided that distance
// falls within the entry's own detection radius. The radius check uses
// each entry's radius, so a point can be "near" a wide metro hub yet
// not near a tight-radius town at the same distance.
func NearestCity(pt spatial.Point) (Entry, float64, bool) {
	best := -1
	bestDist := 0.0

	for _, i := range candidates(pt) {
		d := pt.DistanceKm(entries[i].Point)
		if best < 0 || d < bestDist {
			best = i
			bestDist = d
		}
	}

	if best < 0 || bestDist > entries[best].DetectionRadiusKm {
		return Entry{}, 0, false
	}

	return entries[best], bestDist, true
}

// CoveringCity returns the minimum-distance entry among all entries
// whose detection radius covers pt. Unlike NearestCity this can match
// a farther city with a wide radius when the globally nearest entry's
// own radius is too tight.
func CoveringCity(pt spatial.Point) (Entry, float64, bool) {
	best := -1
	bestDist := 0.0

	for _, i := range candidates(pt) {
		d := pt.DistanceKm(entries[i].Point)
		if d > entries[i].DetectionRadiusKm {
			continue
		}

		if best < 0 || d < bestDist {
			best = i
			bestDist = d
		}
	}

	if best < 0 {
		return Entry{}, 0, false
	}

	return entries[best], bestDist, true
}

// StateOf returns the UF code of a known city name.
func StateOf(cityName string) (string, bool) {
	e, ok := Lookup(cityName)
	if !ok {
		return "", false
	}

	return e.StateCode, true
}

// NearbyStates returns the adjacency set for a UF code, empty when the
// code is unknown.
func NearbyStates(stateCode string) []string {
	return adjacentStates[stateCode]
}

// StateName returns the display name for a UF code, or the code itself
// when unknown.
func StateName(code string) string {
	if name, ok := stateNames[code]; ok {
		return name
	}

	return code
}

// StateCode normalizes a state reference, accepting either a display
// name ("Goiás") or a UF code ("GO", any case).
func StateCode(state string) (string, bool) {
	code, ok := index().stateCodes[textutils.Fold(state)]

	return code, ok
}

// Entries returns a copy of the gazetteer table.
func Entries() []Entry {
	out := make([]Entry, len(entries))
	copy(out, entries)

	return out
}
