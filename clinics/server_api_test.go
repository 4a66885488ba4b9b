// Copyright 2025 The OdontoMapa Authors
// SPDX-License-Identifier: Apache-2.0

package clinics

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odontomapa/odontomapa/geocode"
	"github.com/odontomapa/odontomapa/location"
)

// MockRepository is a mock implementation of Repository for testing.
type MockRepository struct {
	clinics []*Clinic
}

func (m *MockRepository) CreateSchema() error        { return nil }
func (m *MockRepository) SaveClinic(_ *Clinic) error { return nil }
func (m *MockRepository) CountClinics() (int, error) { return len(m.clinics), nil }
func (m *MockRepository) DB() *sql.DB                { return nil }

func (m *MockRepository) BulkInsertClinics(_ []*Clinic) error {
	return nil
}

func (m *MockRepository) ListClinics(city *string, _, _ int) ([]*Clinic, error) {
	if city == nil {
		return m.clinics, nil
	}

	var out []*Clinic

	for _, c := range m.clinics {
		if c.City == *city {
			out = append(out, c)
		}
	}

	return out, nil
}

func setupServerTest(t *testing.T) (*gin.Engine, *location.Resolver) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	geocoder := geocode.NewReverseGeocoder(nil)
	resolver := location.NewResolver(
		location.NewMemoryStore(),
		nil,
		nil,
		geocoder,
		location.Capabilities{},
	)

	repo := &MockRepository{clinics: testClinics()}
	server := NewServer(repo, resolver, geocoder)

	return server.Router(), resolver
}

func TestGetLocationAPI(t *testing.T) {
	router, _ := setupServerTest(t)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/api/location", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var res location.Resolved
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))

	// no geolocation capability resolves to the neutral default
	assert.Equal(t, location.StatusFallback, res.Status)
	assert.Equal(t, "Goiânia", res.City)
}

func TestManualLocationAPI(t *testing.T) {
	router, resolver := setupServerTest(t)

	body, _ := json.Marshal(map[string]string{"city": "Trindade", "state": "Goiás"})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, "/api/location/manual", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var res location.Resolved
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))

	assert.Equal(t, location.StatusManual, res.Status)
	assert.Equal(t, "Trindade", res.City)
	assert.Nil(t, res.Point)

	assert.Equal(t, "Trindade", resolver.Location().City)
}

func TestManualLocationAPIValidation(t *testing.T) {
	router, _ := setupServerTest(t)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, "/api/location/manual", bytes.NewReader([]byte(`{"city": "Trindade"}`)))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestClearLocationCacheAPI(t *testing.T) {
	router, resolver := setupServerTest(t)
	resolver.ManualOverride("Trindade", "Goiás")

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodDelete, "/api/location/cache", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var res location.Resolved
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))

	// the override is gone and acquisition starts over
	assert.Equal(t, location.StatusFallback, res.Status)
	assert.Equal(t, "Goiânia", res.City)
}

func TestNearbyClinicsAPI(t *testing.T) {
	router, resolver := setupServerTest(t)
	resolver.ManualOverride("Trindade", "Goiás")

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/api/clinics/nearby", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var res nearbyResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))

	require.Len(t, res.Clinics, 2)

	for _, c := range res.Clinics {
		assert.Equal(t, "Trindade", c.City)
	}
}

func TestNearbyClinicsAPIBadMaxKm(t *testing.T) {
	router, _ := setupServerTest(t)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/api/clinics/nearby?max_km=-5", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListClinicsAPIFiltersByCity(t *testing.T) {
	router, _ := setupServerTest(t)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/api/clinics?city=Goiânia", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var clinics []*Clinic
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &clinics))

	require.Len(t, clinics, 2)

	for _, c := range clinics {
		assert.Equal(t, "Goiânia", c.City)
	}
}

func TestReverseGeocodeAPI(t *testing.T) {
	router, _ := setupServerTest(t)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/api/geocode/reverse?lat=-16.6469&lng=-49.4889", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var res struct {
		Result    geocode.Result `json:"result"`
		StateCode string         `json:"state_code"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))

	assert.Equal(t, "Trindade", res.Result.City)
	assert.Equal(t, "GO", res.StateCode)
	assert.InDelta(t, 0.95, res.Result.Confidence, 1e-9)
}

func TestReverseGeocodeAPIValidation(t *testing.T) {
	router, _ := setupServerTest(t)

	tests := []struct {
		name string
		path string
	}{
		{"missing params", "/api/geocode/reverse"},
		{"garbage lat", "/api/geocode/reverse?lat=abc&lng=-49"},
		{"out of range", "/api/geocode/reverse?lat=95&lng=-49"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req, _ := http.NewRequest(http.MethodGet, tt.path, nil)
			router.ServeHTTP(w, req)

			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}
