package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/jeevanpath/backend/internal/application/services"
	"github.com/jeevanpath/backend/internal/domain/entities"
	apperrors "github.com/jeevanpath/backend/pkg/errors"
	"github.com/jeevanpath/backend/pkg/geo"
)

const (
	defaultNearbyRadiusKm = 10.0
	maxNearbyRadiusKm     = 100.0
	defaultNearbyLimit    = 20
	maxNearbyLimit        = 100
)

// ResourceService looks resources up
type ResourceService interface {
	GetByID(ctx context.Context, id string) (*entities.Resource, error)
	Nearby(ctx context.Context, q services.NearbyQuery) ([]entities.ResourceWithDistance, error)
}

// ResourceHandler handles resource lookup requests
type ResourceHandler struct {
	resources ResourceService
}

// NewResourceHandler creates a new resource handler
func NewResourceHandler(resources ResourceService) *ResourceHandler {
	return &ResourceHandler{resources: resources}
}

// GetResource handles GET /api/resources/{id}
func (h *ResourceHandler) GetResource(w http.ResponseWriter, r *http.Request) {
	resource, err := h.resources.GetByID(r.Context(), r.PathValue("id"))
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithData(w, http.StatusOK, resource)
}

// Nearby handles GET /api/resources/nearby?lat&lng&radius&category&limit
func (h *ResourceHandler) Nearby(w http.ResponseWriter, r *http.Request) {
	q, err := parseNearbyQuery(r)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	found, err := h.resources.Nearby(r.Context(), q)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, envelope{
		"success": true,
		"data":    found,
		"count":   len(found),
	})
}

func parseNearbyQuery(r *http.Request) (services.NearbyQuery, error) {
	query := r.URL.Query()
	q := services.NearbyQuery{RadiusKm: defaultNearbyRadiusKm, Limit: defaultNearbyLimit}

	lat, latErr := strconv.ParseFloat(query.Get("lat"), 64)
	lng, lngErr := strconv.ParseFloat(query.Get("lng"), 64)
	if latErr != nil || lngErr != nil {
		return q, apperrors.NewValidationError("lat and lng query parameters are required")
	}
	if !geo.ValidCoordinates(lat, lng) {
		return q, apperrors.NewValidationError("lat must be within [-90, 90] and lng within [-180, 180]")
	}
	q.Center = entities.NewGeoPoint(lat, lng)

	if raw := query.Get("radius"); raw != "" {
		radius, err := strconv.ParseFloat(raw, 64)
		if err != nil || radius <= 0 || radius > maxNearbyRadiusKm {
			return q, apperrors.NewValidationErrorf("radius must be between 0 and %g km", maxNearbyRadiusKm)
		}
		q.RadiusKm = radius
	}

	if raw := query.Get("category"); raw != "" {
		category := entities.ResourceCategory(raw)
		if !category.IsValid() {
			return q, apperrors.NewValidationErrorf("invalid category %q", raw)
		}
		q.Category = category
	}

	if raw := query.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return q, apperrors.NewValidationError("limit must be a positive integer")
		}
		q.Limit = min(n, maxNearbyLimit)
	}
	return q, nil
}
