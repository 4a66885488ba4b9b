// Copyright 2025 The OdontoMapa Authors
// SPDX-License-Identifier: Apache-2.0

package location

import (
	"context"
	"fmt"
	"time"

	"github.com/odontomapa/odontomapa/spatial"
)

// Position error codes, mirroring the platform geolocation API.
const (
	CodePermissionDenied    = 1
	CodePositionUnavailable = 2
	CodeTimeout             = 3
)

// PositionError is a failed device geolocation attempt.
type PositionError struct {
	Code int
}

func (e *PositionError) Error() string {
	switch e.Code {
	case CodePermissionDenied:
		return "geolocation permission denied"
	case CodePositionUnavailable:
		return "position unavailable"
	case CodeTimeout:
		return "geolocation timed out"
	default:
		return fmt.Sprintf("geolocation error code %d", e.Code)
	}
}

// PositionOptions mirror the platform geolocation request options. The
// timeout is enforced per attempt by the provider itself; a request in
// flight cannot be cancelled, only abandoned.
type PositionOptions struct {
	Timeout      time.Duration
	MaximumAge   time.Duration
	HighAccuracy bool
}

// DeviceProvider acquires a position fix from device sensors.
type DeviceProvider interface {
	CurrentPosition(ctx context.Context, opts PositionOptions) (spatial.Point, error)
}

// Capabilities describes the runtime the resolver operates in.
type Capabilities struct {
	// Geolocation is false when the runtime has no device geolocation
	// at all (e.g. a headless server process).
	Geolocation bool
	// SecureContext is false on non-HTTPS transports, where device
	// geolocation is unavailable by policy.
	SecureContext bool
	// SlowNetwork and Mobile both extend the acquisition timeout.
	SlowNetwork bool
	Mobile      bool
}
