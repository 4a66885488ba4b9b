// Copyright 2025 The OdontoMapa Authors
// SPDX-License-Identifier: Apache-2.0

package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/odontomapa/odontomapa/spatial"
)

// DefaultNominatimURL is the public OSM reverse-geocoding endpoint.
const DefaultNominatimURL = "https://nominatim.openstreetmap.org"

// NominatimClient implements ReverseProvider against a Nominatim-style
// reverse geocoding service.
type NominatimClient struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
}

// NewNominatimClient creates a client for the given base URL. An empty
// baseURL uses the public OSM endpoint.
func NewNominatimClient(baseURL string) *NominatimClient {
	if baseURL == "" {
		baseURL = DefaultNominatimURL
	}

	return &NominatimClient{
		baseURL:   baseURL,
		userAgent: "odontomapa/1.0",
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

type nominatimAddress struct {
	City         string `json:"city"`
	Town         string `json:"town"`
	Village      string `json:"village"`
	Municipality string `json:"municipality"`
	State        string `json:"state"`
	Country      string `json:"country"`
}

type nominatimResponse struct {
	DisplayName string           `json:"display_name"`
	Address     nominatimAddress `json:"address"`
}

// Reverse performs a reverse lookup. The caller absorbs errors: a
// failure here only means the geocoding chain moves to its next step.
func (c *NominatimClient) Reverse(ctx context.Context, pt spatial.Point) (*Address, error) {
	params := url.Values{}
	params.Set("format", "jsonv2")
	params.Set("lat", fmt.Sprintf("%.8f", pt.Lat))
	params.Set("lon", fmt.Sprintf("%.8f", pt.Lng))
	params.Set("accept-language", "pt-BR")
	params.Set("addressdetails", "1")

	reqURL := c.baseURL + "/reverse?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("building reverse geocoding request: %w", err)
	}

	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("reverse geocoding request failed: %w", err)
	}

	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("reverse geocoding service returned status %d", resp.StatusCode)
	}

	var nr nominatimResponse
	if err := json.NewDecoder(resp.Body).Decode(&nr); err != nil {
		return nil, fmt.Errorf("decoding reverse geocoding response: %w", err)
	}

	city := firstNonEmpty(
		nr.Address.City,
		nr.Address.Town,
		nr.Address.Village,
		nr.Address.Municipality,
	)
	if city == "" {
		return nil, fmt.Errorf("no city in reverse geocoding response for %s", pt)
	}

	return &Address{
		City:    city,
		State:   nr.Address.State,
		Country: nr.Address.Country,
	}, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}

	return ""
}
