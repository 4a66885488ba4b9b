// Copyright 2025 The OdontoMapa Authors
// SPDX-License-Identifier: Apache-2.0

package clinics

import (
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/odontomapa/odontomapa/gazetteer"
	"github.com/odontomapa/odontomapa/geocode"
	"github.com/odontomapa/odontomapa/location"
	"github.com/odontomapa/odontomapa/spatial"
)

// Server exposes the clinic directory and the location resolver over
// HTTP.
type Server struct {
	repo     Repository
	resolver *location.Resolver
	geocoder *geocode.ReverseGeocoder
}

// NewServer wires the API around a repository and a resolver.
func NewServer(repo Repository, resolver *location.Resolver, geocoder *geocode.ReverseGeocoder) *Server {
	return &Server{
		repo:     repo,
		resolver: resolver,
		geocoder: geocoder,
	}
}

// Router builds the gin engine with all routes registered.
func (s *Server) Router() *gin.Engine {
	r := gin.Default()

	r.GET("/api/location", s.getLocation)
	r.POST("/api/location/refresh", s.refreshLocation)
	r.POST("/api/location/manual", s.manualLocation)
	r.DELETE("/api/location/cache", s.clearLocationCache)
	r.GET("/api/clinics", s.listClinics)
	r.GET("/api/clinics/nearby", s.nearbyClinics)
	r.GET("/api/geocode/reverse", s.reverseGeocode)

	return r
}

// Run starts the HTTP server on addr.
func (s *Server) Run(addr string) error {
	return s.Router().Run(addr)
}

func (s *Server) getLocation(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, s.resolver.Resolve(ctx.Request.Context()))
}

func (s *Server) refreshLocation(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, s.resolver.RequestLocation(ctx.Request.Context()))
}

type manualLocationRequest struct {
	City  string `json:"city" binding:"required"`
	State string `json:"state" binding:"required"`
}

func (s *Server) manualLocation(ctx *gin.Context) {
	var req manualLocationRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "city and state are required"})

		return
	}

	ctx.JSON(http.StatusOK, s.resolver.ManualOverride(req.City, req.State))
}

func (s *Server) clearLocationCache(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, s.resolver.ClearCache(ctx.Request.Context()))
}

func (s *Server) listClinics(ctx *gin.Context) {
	var city *string
	if v := ctx.Query("city"); v != "" {
		city = &v
	}

	clinics, err := s.repo.ListClinics(city, 0, 0)
	if err != nil {
		log.Printf("listing clinics: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list clinics"})

		return
	}

	if clinics == nil {
		clinics = []*Clinic{}
	}

	ctx.JSON(http.StatusOK, clinics)
}

type nearbyResponse struct {
	Location location.Resolved `json:"location"`
	Clinics  []*RankedClinic   `json:"clinics"`
}

func (s *Server) nearbyClinics(ctx *gin.Context) {
	maxKm := DefaultMaxDistanceKm

	if v := ctx.Query("max_km"); v != "" {
		parsed, err := strconv.ParseFloat(v, 64)
		if err != nil || parsed <= 0 {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid max_km parameter"})

			return
		}

		maxKm = parsed
	}

	clinics, err := s.repo.ListClinics(nil, 0, 0)
	if err != nil {
		log.Printf("listing clinics: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list clinics"})

		return
	}

	loc := s.resolver.Resolve(ctx.Request.Context())

	ranked := Rank(clinics, loc, maxKm)
	if ranked == nil {
		ranked = []*RankedClinic{}
	}

	ctx.JSON(http.StatusOK, nearbyResponse{Location: loc, Clinics: ranked})
}

func (s *Server) reverseGeocode(ctx *gin.Context) {
	lat, latErr := strconv.ParseFloat(ctx.Query("lat"), 64)
	lng, lngErr := strconv.ParseFloat(ctx.Query("lng"), 64)

	if latErr != nil || lngErr != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "lat and lng query parameters are required"})

		return
	}

	pt := spatial.Point{Lat: lat, Lng: lng}
	if !pt.Valid() {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "coordinates out of range"})

		return
	}

	result := s.geocoder.Reverse(ctx.Request.Context(), pt)

	// enrich with the state code when the gazetteer knows it
	if code, ok := gazetteer.StateCode(result.State); ok {
		ctx.JSON(http.StatusOK, gin.H{
			"result":     result,
			"state_code": code,
		})

		return
	}

	ctx.JSON(http.StatusOK, gin.H{"result": result})
}
