package handlers

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/jeevanpath/backend/internal/application/services"
	"github.com/jeevanpath/backend/internal/domain/entities"
	apperrors "github.com/jeevanpath/backend/pkg/errors"
)

const (
	minServiceDistanceKm = 1.0
	maxServiceDistanceKm = 100.0
)

// EmergencyRegistry manages per-user emergency service records
type EmergencyRegistry interface {
	Toggle(ctx context.Context, req services.ToggleRequest) (*entities.EmergencyService, error)
	Get(ctx context.Context, userID string) (*entities.EmergencyService, error)
}

// EmergencyTrigger runs the alert pipeline
type EmergencyTrigger interface {
	TriggerEmergency(ctx context.Context, req services.TriggerRequest) (*services.TriggerResult, error)
}

// AlertLifecycle serves the provider inbox
type AlertLifecycle interface {
	ListForProvider(ctx context.Context, identifier string, status entities.AlertStatus, limit int) (*services.ProviderAlerts, error)
	MarkRead(ctx context.Context, alertID string) (*entities.UserEmergencyAlert, error)
	Respond(ctx context.Context, alertID string, req services.RespondRequest) (*entities.UserEmergencyAlert, error)
}

// ProviderDirectory answers provider lookups by phone
type ProviderDirectory interface {
	CheckProvider(ctx context.Context, phone string) (*services.ProviderStatus, error)
}

// EmergencyHandler handles the /api/emergency endpoints
type EmergencyHandler struct {
	registry  EmergencyRegistry
	trigger   EmergencyTrigger
	lifecycle AlertLifecycle
	directory ProviderDirectory
}

// NewEmergencyHandler creates a new emergency handler
func NewEmergencyHandler(registry EmergencyRegistry, trigger EmergencyTrigger, lifecycle AlertLifecycle, directory ProviderDirectory) *EmergencyHandler {
	return &EmergencyHandler{
		registry:  registry,
		trigger:   trigger,
		lifecycle: lifecycle,
		directory: directory,
	}
}

// ToggleBody is the body of POST /api/emergency/toggle
type ToggleBody struct {
	UserID         string        `json:"userId"`
	IsEnabled      *bool         `json:"isEnabled"`
	MaxDistance    *float64      `json:"maxDistance"`
	Location       *LocationBody `json:"location"`
	EmergencyTypes []string      `json:"emergencyTypes"`
}

func (b ToggleBody) toRequest() (services.ToggleRequest, error) {
	req := services.ToggleRequest{UserID: strings.TrimSpace(b.UserID)}
	if req.UserID == "" {
		return req, apperrors.NewValidationError("userId is required")
	}
	if b.IsEnabled == nil {
		return req, apperrors.NewValidationError("isEnabled is required")
	}
	req.IsEnabled = *b.IsEnabled

	if b.MaxDistance != nil {
		if *b.MaxDistance < minServiceDistanceKm || *b.MaxDistance > maxServiceDistanceKm {
			return req, apperrors.NewValidationErrorf("maxDistance must be between %g and %g km", minServiceDistanceKm, maxServiceDistanceKm)
		}
		req.MaxDistanceKm = *b.MaxDistance
	}

	if b.Location != nil || req.IsEnabled {
		point, err := b.Location.Point()
		if err != nil {
			return req, err
		}
		req.Location = &point
	}

	for _, raw := range b.EmergencyTypes {
		t := entities.EmergencyType(raw)
		if !t.IsValid() {
			return req, apperrors.NewValidationErrorf("invalid emergency type %q", raw)
		}
		req.EmergencyTypes = append(req.EmergencyTypes, t)
	}
	return req, nil
}

// Toggle handles POST /api/emergency/toggle
func (h *EmergencyHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	var body ToggleBody
	if err := decodeJSON(r, &body); err != nil {
		respondWithAppError(w, r, err)
		return
	}
	req, err := body.toRequest()
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	svc, err := h.registry.Toggle(r.Context(), req)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithData(w, http.StatusOK, svc)
}

// GetService handles GET /api/emergency/service/{userId}
func (h *EmergencyHandler) GetService(w http.ResponseWriter, r *http.Request) {
	svc, err := h.registry.Get(r.Context(), r.PathValue("userId"))
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithData(w, http.StatusOK, svc)
}

// AlertBody is the body of POST /api/emergency/alert
type AlertBody struct {
	UserID        string        `json:"userId"`
	EmergencyType string        `json:"emergencyType"`
	Location      *LocationBody `json:"location"`
	Message       string        `json:"message"`
	UrgencyLevel  string        `json:"urgencyLevel"`
}

func (b AlertBody) toRequest() (services.TriggerRequest, error) {
	req := services.TriggerRequest{
		UserID:        strings.TrimSpace(b.UserID),
		EmergencyType: entities.EmergencyType(b.EmergencyType),
		Message:       strings.TrimSpace(b.Message),
		UrgencyLevel:  entities.UrgencyLevel(b.UrgencyLevel),
	}
	if req.UserID == "" {
		return req, apperrors.NewValidationError("userId is required")
	}
	if !req.EmergencyType.IsValid() {
		return req, apperrors.NewValidationErrorf("invalid emergency type %q", b.EmergencyType)
	}
	if req.UrgencyLevel != "" && !req.UrgencyLevel.IsValid() {
		return req, apperrors.NewValidationErrorf("invalid urgency level %q", b.UrgencyLevel)
	}

	point, err := b.Location.Point()
	if err != nil {
		return req, err
	}
	req.Location = point
	return req, nil
}

// TriggerAlert handles POST /api/emergency/alert
func (h *EmergencyHandler) TriggerAlert(w http.ResponseWriter, r *http.Request) {
	var body AlertBody
	if err := decodeJSON(r, &body); err != nil {
		respondWithAppError(w, r, err)
		return
	}
	req, err := body.toRequest()
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	result, err := h.trigger.TriggerEmergency(r.Context(), req)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithData(w, http.StatusOK, result)
}

// ListAlerts handles GET /api/emergency/user-alerts/{userId}
func (h *EmergencyHandler) ListAlerts(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	limit := 0
	if raw := query.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			respondWithError(w, http.StatusBadRequest, "limit must be a positive integer", apperrors.ErrorTypeValidation)
			return
		}
		limit = n
	}

	alerts, err := h.lifecycle.ListForProvider(r.Context(), r.PathValue("userId"), entities.AlertStatus(query.Get("status")), limit)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithData(w, http.StatusOK, alerts)
}

// MarkAlertRead handles PUT /api/emergency/user-alerts/{alertId}/read
func (h *EmergencyHandler) MarkAlertRead(w http.ResponseWriter, r *http.Request) {
	alert, err := h.lifecycle.MarkRead(r.Context(), r.PathValue("alertId"))
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithData(w, http.StatusOK, alert)
}

// RespondBody is the body of PUT /api/emergency/user-alerts/{alertId}/respond
type RespondBody struct {
	CanRespond       *bool  `json:"canRespond"`
	EstimatedArrival string `json:"estimatedArrival"`
	ResponseMessage  string `json:"responseMessage"`
}

// RespondToAlert handles PUT /api/emergency/user-alerts/{alertId}/respond
func (h *EmergencyHandler) RespondToAlert(w http.ResponseWriter, r *http.Request) {
	var body RespondBody
	if err := decodeJSON(r, &body); err != nil {
		respondWithAppError(w, r, err)
		return
	}
	if body.CanRespond == nil {
		respondWithError(w, http.StatusBadRequest, "canRespond is required", apperrors.ErrorTypeValidation)
		return
	}

	alert, err := h.lifecycle.Respond(r.Context(), r.PathValue("alertId"), services.RespondRequest{
		CanRespond:       *body.CanRespond,
		EstimatedArrival: strings.TrimSpace(body.EstimatedArrival),
		ResponseMessage:  strings.TrimSpace(body.ResponseMessage),
	})
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithData(w, http.StatusOK, alert)
}

// CheckProvider handles GET /api/emergency/check-provider/{phone}
func (h *EmergencyHandler) CheckProvider(w http.ResponseWriter, r *http.Request) {
	status, err := h.directory.CheckProvider(r.Context(), r.PathValue("phone"))
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	resp := envelope{"success": true, "isServiceProvider": status.IsServiceProvider}
	if status.IsServiceProvider {
		resp["data"] = envelope{"user": status.User, "resource": status.Resource}
	}
	respondWithJSON(w, http.StatusOK, resp)
}
