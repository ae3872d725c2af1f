package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/jeevanpath/backend/internal/domain/entities"
	apperrors "github.com/jeevanpath/backend/pkg/errors"
	"github.com/jeevanpath/backend/pkg/geo"
)

const maxBodyBytes = 1 << 20

type envelope map[string]interface{}

// LocationBody is the {lat, lng} shape clients send
type LocationBody struct {
	Lat *float64 `json:"lat"`
	Lng *float64 `json:"lng"`
}

// Point validates the coordinates and converts them to a GeoPoint
func (l *LocationBody) Point() (entities.GeoPoint, error) {
	if l == nil || l.Lat == nil || l.Lng == nil {
		return entities.GeoPoint{}, apperrors.NewValidationError("location with lat and lng is required")
	}
	if !geo.ValidCoordinates(*l.Lat, *l.Lng) {
		return entities.GeoPoint{}, apperrors.NewValidationError("lat must be within [-90, 90] and lng within [-180, 180]")
	}
	return entities.NewGeoPoint(*l.Lat, *l.Lng), nil
}

func respondWithJSON(w http.ResponseWriter, statusCode int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Warn().Err(err).Msg("failed to write response")
	}
}

func respondWithData(w http.ResponseWriter, statusCode int, data interface{}) {
	respondWithJSON(w, statusCode, envelope{"success": true, "data": data})
}

func respondWithError(w http.ResponseWriter, statusCode int, message string, code apperrors.ErrorType) {
	respondWithJSON(w, statusCode, envelope{
		"success": false,
		"error":   message,
		"code":    code,
	})
}

// respondWithAppError maps service errors onto HTTP statuses. Anything that is
// not a client error is logged and reported without detail.
func respondWithAppError(w http.ResponseWriter, r *http.Request, err error) {
	appErr, ok := apperrors.As(err)
	if !ok {
		appErr = apperrors.NewInternalError("unexpected error", err)
	}

	status := appErr.Type.HTTPStatus()
	if status >= http.StatusInternalServerError {
		log.Error().Err(err).Str("method", r.Method).Str("path", r.URL.Path).Msg("request failed")
	}
	respondWithError(w, status, appErr.PublicMessage(), appErr.Type)
}

// decodeJSON reads a single JSON object from the body into dst
func decodeJSON(r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return apperrors.NewValidationError("request body is required")
		}
		return apperrors.NewValidationError("invalid request body")
	}
	return nil
}
