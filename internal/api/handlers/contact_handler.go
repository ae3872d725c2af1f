package handlers

import (
	"context"
	"net/http"

	"github.com/jeevanpath/backend/internal/domain/entities"
)

// ContactService manages a requester's emergency contacts
type ContactService interface {
	Create(ctx context.Context, contact *entities.EmergencyContact) error
	List(ctx context.Context, userID string) ([]*entities.EmergencyContact, error)
	Delete(ctx context.Context, id string) error
}

// ContactHandler handles emergency contact requests
type ContactHandler struct {
	contacts ContactService
}

// NewContactHandler creates a new contact handler
func NewContactHandler(contacts ContactService) *ContactHandler {
	return &ContactHandler{contacts: contacts}
}

// ListContacts handles GET /api/emergency/contacts/{userId}
func (h *ContactHandler) ListContacts(w http.ResponseWriter, r *http.Request) {
	contacts, err := h.contacts.List(r.Context(), r.PathValue("userId"))
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithData(w, http.StatusOK, contacts)
}

// CreateContact handles POST /api/emergency/contacts
func (h *ContactHandler) CreateContact(w http.ResponseWriter, r *http.Request) {
	var contact entities.EmergencyContact
	if err := decodeJSON(r, &contact); err != nil {
		respondWithAppError(w, r, err)
		return
	}

	if err := h.contacts.Create(r.Context(), &contact); err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithData(w, http.StatusCreated, contact)
}

// DeleteContact handles DELETE /api/emergency/contacts/{id}
func (h *ContactHandler) DeleteContact(w http.ResponseWriter, r *http.Request) {
	if err := h.contacts.Delete(r.Context(), r.PathValue("id")); err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, envelope{"success": true})
}
