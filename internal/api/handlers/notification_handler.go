package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/jeevanpath/backend/internal/domain/entities"
	apperrors "github.com/jeevanpath/backend/pkg/errors"
)

// NotificationFeed is the requester-facing notification list
type NotificationFeed interface {
	ListForUser(ctx context.Context, userID string, unreadOnly bool, limit int) ([]*entities.EmergencyNotification, error)
	MarkRead(ctx context.Context, id string) error
}

// NotificationHandler handles requester notification requests
type NotificationHandler struct {
	feed NotificationFeed
}

// NewNotificationHandler creates a new notification handler
func NewNotificationHandler(feed NotificationFeed) *NotificationHandler {
	return &NotificationHandler{feed: feed}
}

// ListNotifications handles GET /api/emergency/notifications/{userId}?unreadOnly&limit
func (h *NotificationHandler) ListNotifications(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	unreadOnly := false
	if raw := query.Get("unreadOnly"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, "unreadOnly must be true or false", apperrors.ErrorTypeValidation)
			return
		}
		unreadOnly = v
	}

	limit := 0
	if raw := query.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			respondWithError(w, http.StatusBadRequest, "limit must be a positive integer", apperrors.ErrorTypeValidation)
			return
		}
		limit = n
	}

	notifications, err := h.feed.ListForUser(r.Context(), r.PathValue("userId"), unreadOnly, limit)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	if notifications == nil {
		notifications = []*entities.EmergencyNotification{}
	}
	respondWithData(w, http.StatusOK, notifications)
}

// MarkNotificationRead handles PUT /api/emergency/notifications/{id}/read
func (h *NotificationHandler) MarkNotificationRead(w http.ResponseWriter, r *http.Request) {
	if err := h.feed.MarkRead(r.Context(), r.PathValue("id")); err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, envelope{"success": true})
}
