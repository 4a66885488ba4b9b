// Copyright 2025 The OdontoMapa Authors
// SPDX-License-Identifier: Apache-2.0

package location

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/odontomapa/odontomapa/spatial"
)

// IPLocation is a normalized IP-geolocation answer. The two providers
// use slightly different field names; clients normalize here.
type IPLocation struct {
	City    string
	State   string
	Country string
	Point   spatial.Point
}

// IPLocator resolves the caller's approximate location from its IP.
type IPLocator interface {
	Locate(ctx context.Context) (*IPLocation, error)
}

const ipLookupTimeout = 8 * time.Second

// DefaultIPAPIURL is the primary IP geolocation endpoint.
const DefaultIPAPIURL = "https://ipapi.co/json/"

// IPAPIClient queries ipapi.co. Response fields: city, region,
// country_name, latitude, longitude.
type IPAPIClient struct {
	url        string
	httpClient *http.Client
}

// NewIPAPIClient creates the primary IP locator. An empty url uses the
// public endpoint.
func NewIPAPIClient(url string) *IPAPIClient {
	if url == "" {
		url = DefaultIPAPIURL
	}

	return &IPAPIClient{
		url:        url,
		httpClient: &http.Client{Timeout: ipLookupTimeout},
	}
}

type ipapiResponse struct {
	City        string  `json:"city"`
	Region      string  `json:"region"`
	CountryName string  `json:"country_name"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	Error       bool    `json:"error"`
}

// Locate implements IPLocator.
func (c *IPAPIClient) Locate(ctx context.Context) (*IPLocation, error) {
	var r ipapiResponse
	if err := getJSON(ctx, c.httpClient, c.url, &r); err != nil {
		return nil, err
	}

	if r.Error || r.City == "" {
		return nil, fmt.Errorf("ip lookup returned no usable city")
	}

	return &IPLocation{
		City:    r.City,
		State:   r.Region,
		Country: r.CountryName,
		Point:   spatial.Point{Lat: r.Latitude, Lng: r.Longitude},
	}, nil
}

// DefaultIPAPIComURL is the secondary IP geolocation endpoint.
const DefaultIPAPIComURL = "http://ip-api.com/json/"

// IPAPIComClient queries ip-api.com. Response fields: city,
// regionName, country, lat, lon, plus a status discriminator.
type IPAPIComClient struct {
	url        string
	httpClient *http.Client
}

// NewIPAPIComClient creates the secondary IP locator. An empty url
// uses the public endpoint.
func NewIPAPIComClient(url string) *IPAPIComClient {
	if url == "" {
		url = DefaultIPAPIComURL
	}

	return &IPAPIComClient{
		url:        url,
		httpClient: &http.Client{Timeout: ipLookupTimeout},
	}
}

type ipAPIComResponse struct {
	Status     string  `json:"status"`
	City       string  `json:"city"`
	RegionName string  `json:"regionName"`
	Country    string  `json:"country"`
	Lat        float64 `json:"lat"`
	Lon        float64 `json:"lon"`
}

// Locate implements IPLocator.
func (c *IPAPIComClient) Locate(ctx context.Context) (*IPLocation, error) {
	var r ipAPIComResponse
	if err := getJSON(ctx, c.httpClient, c.url, &r); err != nil {
		return nil, err
	}

	if r.Status != "success" || r.City == "" {
		return nil, fmt.Errorf("ip lookup status %q with city %q", r.Status, r.City)
	}

	return &IPLocation{
		City:    r.City,
		State:   r.RegionName,
		Country: r.Country,
		Point:   spatial.Point{Lat: r.Lat, Lng: r.Lon},
	}, nil
}

func getJSON(ctx context.Context, client *http.Client, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("building ip lookup request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("ip lookup request failed: %w", err)
	}

	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("ip lookup returned status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding ip lookup response: %w", err)
	}

	return nil
}
