// Copyright 2025 The OdontoMapa Authors
// SPDX-License-Identifier: Apache-2.0

package location

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odontomapa/odontomapa/geocode"
	"github.com/odontomapa/odontomapa/spatial"
)

type fakeDevice struct {
	// results are consumed one per call
	results []deviceResult
	calls   []PositionOptions
}

type deviceResult struct {
	pt  spatial.Point
	err error
}

func (d *fakeDevice) CurrentPosition(_ context.Context, opts PositionOptions) (spatial.Point, error) {
	d.calls = append(d.calls, opts)

	if len(d.results) == 0 {
		return spatial.Point{}, &PositionError{Code: CodePositionUnavailable}
	}

	r := d.results[0]
	d.results = d.results[1:]

	return r.pt, r.err
}

type fakeLocator struct {
	loc *IPLocation
	err error
}

func (l *fakeLocator) Locate(context.Context) (*IPLocation, error) {
	return l.loc, l.err
}

func newTestResolver(device DeviceProvider, locators []IPLocator, caps Capabilities) (*Resolver, *MemoryStore) {
	store := NewMemoryStore()
	geocoder := geocode.NewReverseGeocoder(nil)
	r := NewResolver(store, device, locators, geocoder, caps)
	r.sleep = func(context.Context, time.Duration) error { return nil }

	return r, store
}

func allCaps() Capabilities {
	return Capabilities{Geolocation: true, SecureContext: true}
}

func TestResolveUsesFreshCache(t *testing.T) {
	r, store := newTestResolver(&fakeDevice{}, nil, allCaps())

	snap := &Snapshot{
		City:      "Trindade",
		State:     "Goiás",
		Country:   "Brasil",
		Timestamp: time.Now().Add(-30 * time.Minute).UnixMilli(),
	}
	snap.Coordinates.Lat = -16.6469
	snap.Coordinates.Lng = -49.4889
	require.NoError(t, store.Save(snap))

	res := r.Resolve(context.Background())

	assert.Equal(t, StatusCached, res.Status)
	assert.Equal(t, "Trindade", res.City)
	assert.Equal(t, "Goiás", res.State)
	require.NotNil(t, res.Point)
	assert.InDelta(t, -16.6469, res.Point.Lat, 1e-9)
	assert.False(t, res.Loading)
}

func TestResolveIgnoresStaleCache(t *testing.T) {
	device := &fakeDevice{results: []deviceResult{
		{pt: spatial.Point{Lat: -16.6469, Lng: -49.4889}},
	}}
	r, store := newTestResolver(device, nil, allCaps())

	snap := &Snapshot{
		City:      "São Paulo",
		State:     "São Paulo",
		Country:   "Brasil",
		Timestamp: time.Now().Add(-3 * time.Hour).UnixMilli(),
	}
	require.NoError(t, store.Save(snap))

	res := r.Resolve(context.Background())

	assert.Equal(t, StatusGPS, res.Status)
	assert.Equal(t, "Trindade", res.City)
}

func TestRequestLocationGeocodesDevicePosition(t *testing.T) {
	device := &fakeDevice{results: []deviceResult{
		{pt: spatial.Point{Lat: -16.6864, Lng: -49.2643}},
	}}
	r, _ := newTestResolver(device, nil, allCaps())

	res := r.RequestLocation(context.Background())

	assert.Equal(t, StatusGPS, res.Status)
	assert.Equal(t, "Goiânia", res.City)
	assert.Equal(t, "Goiás", res.State)
	assert.Equal(t, "Brasil", res.Country)
	require.NotNil(t, res.Point)
	assert.Empty(t, res.Message)
}

func TestRequestLocationRetriesWithHighAccuracy(t *testing.T) {
	device := &fakeDevice{results: []deviceResult{
		{err: &PositionError{Code: CodeTimeout}},
		{err: &PositionError{Code: CodePositionUnavailable}},
		{pt: spatial.Point{Lat: -16.6469, Lng: -49.4889}},
	}}
	r, _ := newTestResolver(device, nil, allCaps())

	var delays []time.Duration
	r.sleep = func(_ context.Context, d time.Duration) error {
		delays = append(delays, d)
		return nil
	}

	res := r.RequestLocation(context.Background())

	assert.Equal(t, StatusGPS, res.Status)
	assert.Equal(t, "Trindade", res.City)

	require.Len(t, device.calls, 3)
	assert.False(t, device.calls[0].HighAccuracy)
	assert.True(t, device.calls[1].HighAccuracy)
	assert.True(t, device.calls[2].HighAccuracy)

	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, delays)
}

func TestRequestLocationPermissionDeniedRetriesToCap(t *testing.T) {
	// the user may grant permission on a later prompt, so denial is
	// retried like any other device failure
	device := &fakeDevice{results: []deviceResult{
		{err: &PositionError{Code: CodePermissionDenied}},
		{err: &PositionError{Code: CodePermissionDenied}},
		{err: &PositionError{Code: CodePermissionDenied}},
	}}
	locator := &fakeLocator{loc: &IPLocation{
		City:    "Goiânia",
		State:   "Goiás",
		Country: "Brasil",
		Point:   spatial.Point{Lat: -16.68, Lng: -49.26},
	}}
	r, _ := newTestResolver(device, []IPLocator{locator}, allCaps())

	res := r.RequestLocation(context.Background())

	assert.Len(t, device.calls, 3)
	assert.Equal(t, StatusIP, res.Status)
	assert.Equal(t, msgPermissionDenied, res.Error)
	assert.Equal(t, msgIPFallback, res.Message)
}

func TestRequestLocationPermissionGrantedOnRetry(t *testing.T) {
	device := &fakeDevice{results: []deviceResult{
		{err: &PositionError{Code: CodePermissionDenied}},
		{pt: spatial.Point{Lat: -16.6469, Lng: -49.4889}},
	}}
	r, _ := newTestResolver(device, nil, allCaps())

	res := r.RequestLocation(context.Background())

	assert.Len(t, device.calls, 2)
	assert.Equal(t, StatusGPS, res.Status)
	assert.Equal(t, "Trindade", res.City)
	assert.Empty(t, res.Error)
}

func TestRequestLocationFallsBackToSecondLocator(t *testing.T) {
	device := &fakeDevice{results: []deviceResult{
		{err: &PositionError{Code: CodeTimeout}},
		{err: &PositionError{Code: CodeTimeout}},
		{err: &PositionError{Code: CodeTimeout}},
	}}
	locators := []IPLocator{
		&fakeLocator{err: errors.New("unreachable")},
		&fakeLocator{loc: &IPLocation{City: "Anápolis", State: "Goiás", Country: "Brasil"}},
	}
	r, _ := newTestResolver(device, locators, allCaps())

	res := r.RequestLocation(context.Background())

	assert.Equal(t, StatusIP, res.Status)
	assert.Equal(t, "Anápolis", res.City)
	assert.Equal(t, msgTimeout, res.Error)
	assert.Equal(t, msgIPFallback, res.Message)
	assert.Nil(t, res.Point)
}

func TestRequestLocationAllSourcesFail(t *testing.T) {
	device := &fakeDevice{results: []deviceResult{
		{err: &PositionError{Code: CodePositionUnavailable}},
		{err: &PositionError{Code: CodePositionUnavailable}},
		{err: &PositionError{Code: CodePositionUnavailable}},
	}}
	locators := []IPLocator{&fakeLocator{err: errors.New("down")}}
	r, _ := newTestResolver(device, locators, allCaps())

	res := r.RequestLocation(context.Background())

	assert.Equal(t, StatusFallback, res.Status)
	assert.Equal(t, "Goiânia", res.City)
	assert.Equal(t, "Goiás", res.State)
	assert.Equal(t, msgPositionUnavailable, res.Error)
	assert.Empty(t, res.Message)
}

func TestRequestLocationNoGeolocationCapability(t *testing.T) {
	r, _ := newTestResolver(nil, nil, Capabilities{Geolocation: false, SecureContext: true})

	res := r.RequestLocation(context.Background())

	assert.Equal(t, StatusFallback, res.Status)
	assert.Equal(t, msgNoGeolocation, res.Error)
}

func TestRequestLocationInsecureContextUsesIP(t *testing.T) {
	locator := &fakeLocator{loc: &IPLocation{City: "Goiânia", State: "Goiás", Country: "Brasil"}}
	r, _ := newTestResolver(&fakeDevice{}, []IPLocator{locator}, Capabilities{Geolocation: true, SecureContext: false})

	res := r.RequestLocation(context.Background())

	assert.Equal(t, StatusIP, res.Status)
	assert.Equal(t, msgInsecureContext, res.Error)
	assert.Equal(t, msgIPFallback, res.Message)
}

func TestRequestLocationSlowNetworkTimeout(t *testing.T) {
	device := &fakeDevice{results: []deviceResult{
		{pt: spatial.Point{Lat: -16.6864, Lng: -49.2643}},
	}}
	r, _ := newTestResolver(device, nil, Capabilities{Geolocation: true, SecureContext: true, SlowNetwork: true})

	r.RequestLocation(context.Background())

	require.Len(t, device.calls, 1)
	assert.Equal(t, 20*time.Second, device.calls[0].Timeout)
	assert.Equal(t, 5*time.Minute, device.calls[0].MaximumAge)
}

func TestManualOverride(t *testing.T) {
	r, store := newTestResolver(&fakeDevice{}, nil, allCaps())

	res := r.ManualOverride("Trindade", "Goiás")

	assert.Equal(t, StatusManual, res.Status)
	assert.Equal(t, "Trindade", res.City)
	assert.Equal(t, "Brasil", res.Country)
	assert.Nil(t, res.Point)

	snap, err := store.Load()
	require.NoError(t, err)
	require.NotNil(t, snap)
	assert.Equal(t, "Trindade", snap.City)
}

func TestClearCacheReacquires(t *testing.T) {
	device := &fakeDevice{results: []deviceResult{
		{pt: spatial.Point{Lat: -16.6864, Lng: -49.2643}},
	}}
	r, store := newTestResolver(device, nil, allCaps())
	r.ManualOverride("Trindade", "Goiás")

	res := r.ClearCache(context.Background())

	assert.Equal(t, StatusGPS, res.Status)
	assert.Equal(t, "Goiânia", res.City)

	// the fresh acquisition is persisted again
	snap, serr := store.Load()
	require.NoError(t, serr)
	require.NotNil(t, snap)
	assert.Equal(t, "Goiânia", snap.City)
}

func TestResolveCachedManualOverrideHasNoPoint(t *testing.T) {
	r, store := newTestResolver(&fakeDevice{}, nil, allCaps())
	r.ManualOverride("Trindade", "Goiás")

	// a second resolver sharing the store picks the snapshot up
	r2, _ := newTestResolver(&fakeDevice{}, nil, allCaps())
	r2.store = store

	res := r2.Resolve(context.Background())

	assert.Equal(t, StatusCached, res.Status)
	assert.Equal(t, "Trindade", res.City)
	assert.Nil(t, res.Point)
}

func TestSuccessPersistsSnapshot(t *testing.T) {
	device := &fakeDevice{results: []deviceResult{
		{pt: spatial.Point{Lat: -16.6469, Lng: -49.4889}},
	}}
	r, store := newTestResolver(device, nil, allCaps())

	r.RequestLocation(context.Background())

	snap, err := store.Load()
	require.NoError(t, err)
	require.NotNil(t, snap)
	assert.Equal(t, "Trindade", snap.City)
	assert.InDelta(t, -16.6469, snap.Coordinates.Lat, 1e-9)
}

func TestStaleCommitIsDiscarded(t *testing.T) {
	r, _ := newTestResolver(&fakeDevice{}, nil, allCaps())

	old := r.begin()
	fresh := r.begin()

	require.True(t, r.commit(fresh, Resolved{City: "Trindade", Status: StatusManual}))
	require.False(t, r.commit(old, Resolved{City: "São Paulo", Status: StatusIP}))

	assert.Equal(t, "Trindade", r.Location().City)
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"permission denied", &PositionError{Code: CodePermissionDenied}, msgPermissionDenied},
		{"unavailable", &PositionError{Code: CodePositionUnavailable}, msgPositionUnavailable},
		{"timeout", &PositionError{Code: CodeTimeout}, msgTimeout},
		{"context deadline", context.DeadlineExceeded, msgTimeout},
		{"other", errors.New("boom"), msgAllFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, classify(tt.err))
		})
	}
}
