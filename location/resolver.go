// Copyright 2025 The OdontoMapa Authors
// SPDX-License-Identifier: Apache-2.0

// Package location resolves the user's position from the best source
// available: a cached snapshot, the device's geolocation, an IP-based
// estimate, or a neutral fallback, in that order of preference.
package location

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/odontomapa/odontomapa/geocode"
	"github.com/odontomapa/odontomapa/spatial"
)

// Status identifies which source produced a resolved location.
type Status string

const (
	StatusGPS      Status = "gps"
	StatusIP       Status = "ip"
	StatusManual   Status = "manual"
	StatusFallback Status = "fallback"
	StatusCached   Status = "cached"
)

// Resolved is the outcome of a resolution attempt. Message carries
// informational notes (cached payload, IP approximation); Error
// carries the classified failure that forced a degraded source. Both
// are user-facing, never propagated as Go errors.
type Resolved struct {
	City    string         `json:"city"`
	State   string         `json:"state"`
	Country string         `json:"country"`
	Point   *spatial.Point `json:"coordinates,omitempty"`
	Status  Status         `json:"status"`
	Message string         `json:"message,omitempty"`
	Error   string         `json:"error,omitempty"`
	Loading bool           `json:"loading"`
}

const (
	cacheTTL = 2 * time.Hour

	maxDeviceAttempts = 3
	baseRetryDelay    = time.Second
	maxRetryDelay     = 4 * time.Second

	baseTimeout = 10 * time.Second
	slowTimeout = 20 * time.Second
	maximumAge  = 5 * time.Minute
)

const (
	defaultCity    = "Goiânia"
	defaultState   = "Goiás"
	defaultCountry = "Brasil"
)

const (
	msgPermissionDenied    = "Permissão de localização negada. Usando localização aproximada."
	msgPositionUnavailable = "Localização indisponível no momento. Usando localização aproximada."
	msgTimeout             = "Tempo esgotado ao obter a localização. Usando localização aproximada."
	msgInsecureContext     = "Localização precisa requer conexão segura (HTTPS). Usando localização aproximada."
	msgNoGeolocation       = "Este dispositivo não oferece geolocalização. Usando localização padrão."
	msgIPFallback          = "Usando localização aproximada pelo endereço IP."
	msgCached              = "Usando localização salva recentemente."
	msgAllFailed           = "Não foi possível determinar sua localização. Usando localização padrão."
)

// Resolver orchestrates location acquisition and caches the result.
// All methods are safe for concurrent use.
type Resolver struct {
	mu  sync.Mutex
	cur Resolved
	gen uint64

	store    Store
	device   DeviceProvider
	locators []IPLocator
	geocoder *geocode.ReverseGeocoder
	caps     Capabilities

	// injectable for tests
	sleep func(context.Context, time.Duration) error
	now   func() time.Time
}

// NewResolver builds a resolver. store must not be nil; device may be
// nil when caps.Geolocation is false.
func NewResolver(store Store, device DeviceProvider, locators []IPLocator, geocoder *geocode.ReverseGeocoder, caps Capabilities) *Resolver {
	return &Resolver{
		cur:      defaultResolved(),
		store:    store,
		device:   device,
		locators: locators,
		geocoder: geocoder,
		caps:     caps,
		sleep:    sleepCtx,
		now:      time.Now,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func defaultResolved() Resolved {
	return Resolved{
		City:    defaultCity,
		State:   defaultState,
		Country: defaultCountry,
		Status:  StatusFallback,
	}
}

// Location returns the current resolved location without triggering
// any acquisition.
func (r *Resolver) Location() Resolved {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.cur
}

// Resolve returns a fresh cached snapshot when one exists, otherwise
// it runs the full acquisition chain.
func (r *Resolver) Resolve(ctx context.Context) Resolved {
	if snap, err := r.store.Load(); err == nil && snap != nil {
		age := r.now().Sub(time.UnixMilli(snap.Timestamp))
		if age >= 0 && age < cacheTTL {
			res := Resolved{
				City:    snap.City,
				State:   snap.State,
				Country: snap.Country,
				Status:  StatusCached,
				Message: msgCached,
			}

			// manual overrides persist zeroed coordinates, which mean
			// "not geolocated" rather than a point in the Gulf of Guinea
			pt := spatial.Point{Lat: snap.Coordinates.Lat, Lng: snap.Coordinates.Lng}
			if !pt.IsZero() {
				res.Point = &pt
			}
			r.commit(r.begin(), res)

			return res
		}
	}

	return r.RequestLocation(ctx)
}

// RequestLocation runs the acquisition chain ignoring any cached
// snapshot. The winning result is persisted.
func (r *Resolver) RequestLocation(ctx context.Context) Resolved {
	gen := r.begin()

	res := r.acquire(ctx)
	if !r.commit(gen, res) {
		return r.Location()
	}

	if res.Status == StatusGPS || res.Status == StatusIP {
		r.persist(res)
	}

	return res
}

// ManualOverride sets the location to a city chosen by the user. The
// override carries no coordinate and is persisted so it survives
// restarts.
func (r *Resolver) ManualOverride(city, state string) Resolved {
	gen := r.begin()

	res := Resolved{
		City:    city,
		State:   state,
		Country: defaultCountry,
		Status:  StatusManual,
	}
	r.commit(gen, res)
	r.persist(res)

	return res
}

// ClearCache removes the persisted snapshot and immediately runs a
// fresh acquisition. A storage failure is logged and the acquisition
// proceeds anyway.
func (r *Resolver) ClearCache(ctx context.Context) Resolved {
	if err := r.store.Clear(); err != nil {
		log.Printf("clearing location cache: %v", err)
	}

	return r.RequestLocation(ctx)
}

// begin starts a new acquisition generation and marks the state as
// loading. A commit from an older generation is discarded, so a slow
// lookup cannot overwrite a newer result.
func (r *Resolver) begin() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.gen++
	r.cur.Loading = true

	return r.gen
}

func (r *Resolver) commit(gen uint64, res Resolved) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if gen != r.gen {
		return false
	}

	res.Loading = false
	r.cur = res

	return true
}

func (r *Resolver) persist(res Resolved) {
	snap := &Snapshot{
		City:      res.City,
		State:     res.State,
		Country:   res.Country,
		Timestamp: r.now().UnixMilli(),
	}
	if res.Point != nil {
		snap.Coordinates.Lat = res.Point.Lat
		snap.Coordinates.Lng = res.Point.Lng
	}

	_ = r.store.Save(snap)
}

func (r *Resolver) acquire(ctx context.Context) Resolved {
	if !r.caps.Geolocation {
		res := defaultResolved()
		res.Error = msgNoGeolocation

		return res
	}

	if !r.caps.SecureContext {
		if res, ok := r.fromIP(ctx); ok {
			res.Error = msgInsecureContext

			return res
		}

		res := defaultResolved()
		res.Error = msgInsecureContext

		return res
	}

	pt, err := r.fromDevice(ctx)
	if err == nil {
		return r.describe(ctx, pt, StatusGPS, "")
	}

	classified := classify(err)
	if res, ok := r.fromIP(ctx); ok {
		res.Error = classified

		return res
	}

	res := defaultResolved()
	res.Error = classified

	return res
}

// fromDevice asks the device for a position, retrying failures with
// backoff up to the attempt cap. Every classified error is retried;
// a user who denied permission may still grant it on a later prompt.
func (r *Resolver) fromDevice(ctx context.Context) (spatial.Point, error) {
	timeout := baseTimeout
	if r.caps.SlowNetwork || r.caps.Mobile {
		timeout = slowTimeout
	}

	delay := baseRetryDelay

	var lastErr error
	for attempt := range maxDeviceAttempts {
		opts := PositionOptions{
			Timeout:      timeout,
			MaximumAge:   maximumAge,
			HighAccuracy: attempt > 0,
		}

		pt, err := r.device.CurrentPosition(ctx, opts)
		if err == nil {
			return pt, nil
		}

		lastErr = err

		if attempt < maxDeviceAttempts-1 {
			if err := r.sleep(ctx, delay); err != nil {
				return spatial.Point{}, err
			}

			delay = min(delay*2, maxRetryDelay)
		}
	}

	return spatial.Point{}, lastErr
}

func (r *Resolver) fromIP(ctx context.Context) (Resolved, bool) {
	for _, locator := range r.locators {
		loc, err := locator.Locate(ctx)
		if err != nil || loc == nil {
			continue
		}

		res := Resolved{
			City:    loc.City,
			State:   loc.State,
			Country: loc.Country,
			Status:  StatusIP,
			Message: msgIPFallback,
		}
		if loc.Point.Valid() && !loc.Point.IsZero() {
			pt := loc.Point
			res.Point = &pt
		}
		if res.Country == "" {
			res.Country = defaultCountry
		}

		return res, true
	}

	return Resolved{}, false
}

// describe turns a raw coordinate into a named location through the
// reverse geocoder.
func (r *Resolver) describe(ctx context.Context, pt spatial.Point, status Status, msg string) Resolved {
	res := Resolved{
		City:    defaultCity,
		State:   defaultState,
		Country: defaultCountry,
		Point:   &pt,
		Status:  status,
		Message: msg,
	}

	if r.geocoder != nil {
		g := r.geocoder.Reverse(ctx, pt)
		res.City = g.City
		res.State = g.State
		res.Country = g.Country
	}

	return res
}

func classify(err error) string {
	var perr *PositionError
	if errors.As(err, &perr) {
		switch perr.Code {
		case CodePermissionDenied:
			return msgPermissionDenied
		case CodePositionUnavailable:
			return msgPositionUnavailable
		case CodeTimeout:
			return msgTimeout
		}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return msgTimeout
	}

	return msgAllFailed
}
