// Copyright 2025 The OdontoMapa Authors
// SPDX-License-Identifier: Apache-2.0

// Package textutils provides normalization helpers for Brazilian place
// names, which routinely carry diacritics ("Goiânia", "São Paulo").
package textutils

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Fold normalizes a string by removing accents, lowercasing, and
// trimming spaces. "Goiânia" and "  goiania " fold to the same key.
func Fold(s string) string {
	s, _, _ = transform.String(
		transform.Chain(
			norm.NFD,
			runes.Remove(runes.In(unicode.Mn)),
			norm.NFC,
		),
		strings.TrimSpace(strings.ToLower(s)),
	)

	return s
}

// EqualFold reports whether two place names are equal after folding.
func EqualFold(a, b string) bool {
	return Fold(a) == Fold(b)
}

// ContainsFold reports whether either folded name contains the other.
// This substring-in-both-directions rule mirrors how the product
// matches user city names against clinic city names.
func ContainsFold(a, b string) bool {
	fa, fb := Fold(a), Fold(b)
	if fa == "" || fb == "" {
		return false
	}

	return strings.Contains(fa, fb) || strings.Contains(fb, fa)
}
