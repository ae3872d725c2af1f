package services

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jeevanpath/backend/internal/domain/entities"
	"github.com/jeevanpath/backend/internal/domain/providers"
	"github.com/jeevanpath/backend/internal/domain/repositories"
	apperrors "github.com/jeevanpath/backend/pkg/errors"
	"github.com/rs/zerolog/log"
)

// ContactService manages a user's emergency contacts
type ContactService struct {
	repo       repositories.ContactRepository
	channel    providers.ContactChannel
	identities *IdentityResolver
}

// NewContactService creates a new contact service
func NewContactService(repo repositories.ContactRepository, channel providers.ContactChannel) *ContactService {
	return &ContactService{
		repo:    repo,
		channel: channel,
	}
}

// SetIdentityResolver stores and lists contacts under the resolved user id
func (s *ContactService) SetIdentityResolver(identities *IdentityResolver) {
	s.identities = identities
}

// Create validates and stores a contact
func (s *ContactService) Create(ctx context.Context, contact *entities.EmergencyContact) error {
	contact.Name = strings.TrimSpace(contact.Name)
	contact.Phone = strings.TrimSpace(contact.Phone)

	if contact.UserID == "" {
		return apperrors.NewValidationError("userId is required")
	}
	if contact.Name == "" || contact.Phone == "" {
		return apperrors.NewValidationError("name and phone are required")
	}

	userID, err := s.identities.ResolveUserID(ctx, contact.UserID)
	if err != nil {
		return err
	}
	contact.UserID = userID
	contact.ID = uuid.NewString()
	contact.CreatedAt = time.Now()

	return s.repo.Create(ctx, contact)
}

// List returns a user's contacts
func (s *ContactService) List(ctx context.Context, identifier string) ([]*entities.EmergencyContact, error) {
	userID, err := s.identities.ResolveUserID(ctx, identifier)
	if err != nil {
		return nil, err
	}
	return s.repo.ListByUser(ctx, userID)
}

// Delete removes a contact
func (s *ContactService) Delete(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}

// NotifyAll texts every contact of userID and returns how many messages went through.
func (s *ContactService) NotifyAll(ctx context.Context, userID, message string) int {
	contacts, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("failed to load emergency contacts")
		return 0
	}

	notified := 0
	for _, c := range contacts {
		if s.channel.SendSMS(ctx, c.Phone, message) {
			notified++
			continue
		}
		log.Warn().Str("user_id", userID).Str("contact_id", c.ID).Msg("emergency contact SMS failed")
	}
	return notified
}
