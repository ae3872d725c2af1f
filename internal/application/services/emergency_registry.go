package services

import (
	"context"
	"time"

	"github.com/jeevanpath/backend/internal/domain/entities"
	"github.com/jeevanpath/backend/internal/domain/repositories"
	apperrors "github.com/jeevanpath/backend/pkg/errors"
	"github.com/rs/zerolog/log"
)

// NearbyNotifier records the "resources near you" notification
type NearbyNotifier interface {
	NotifyNearbyResources(ctx context.Context, userID string, location entities.GeoPoint, radiusKm float64) (int, error)
}

// ToggleRequest enables or disables a user's emergency service
type ToggleRequest struct {
	UserID         string
	IsEnabled      bool
	MaxDistanceKm  float64
	Location       *entities.GeoPoint
	EmergencyTypes []entities.EmergencyType
}

// EmergencyRegistry keeps one emergency service record per user
type EmergencyRegistry struct {
	repo       repositories.EmergencyServiceRepository
	notifier   NearbyNotifier
	identities *IdentityResolver
	now        func() time.Time
}

// NewEmergencyRegistry creates a new registry. notifier may be nil.
func NewEmergencyRegistry(repo repositories.EmergencyServiceRepository, notifier NearbyNotifier) *EmergencyRegistry {
	return &EmergencyRegistry{
		repo:     repo,
		notifier: notifier,
		now:      time.Now,
	}
}

// SetIdentityResolver makes Get and Toggle accept external ids and phone numbers
func (r *EmergencyRegistry) SetIdentityResolver(identities *IdentityResolver) {
	r.identities = identities
}

// Get returns the user's record
func (r *EmergencyRegistry) Get(ctx context.Context, identifier string) (*entities.EmergencyService, error) {
	userID, err := r.identities.ResolveUserID(ctx, identifier)
	if err != nil {
		return nil, err
	}
	return r.repo.GetByUserID(ctx, userID)
}

// Toggle upserts the user's record. Enabling with a location also records a
// nearby-resources notification; that side effect never fails the toggle.
func (r *EmergencyRegistry) Toggle(ctx context.Context, req ToggleRequest) (*entities.EmergencyService, error) {
	userID, err := r.identities.ResolveUserID(ctx, req.UserID)
	if err != nil {
		return nil, err
	}

	svc, err := r.repo.GetByUserID(ctx, userID)
	if err != nil && !apperrors.IsNotFound(err) {
		return nil, err
	}
	if svc == nil {
		svc = entities.NewEmergencyService(userID, r.now())
	}

	svc.IsEnabled = req.IsEnabled
	if req.MaxDistanceKm > 0 {
		svc.MaxDistanceKm = req.MaxDistanceKm
	}
	if req.Location != nil {
		loc := *req.Location
		svc.LastKnownLocation = &loc
	}
	if len(req.EmergencyTypes) > 0 {
		svc.EmergencyTypes = req.EmergencyTypes
	}
	svc.LastUpdated = r.now()

	if err := r.repo.Upsert(ctx, svc); err != nil {
		return nil, err
	}

	if svc.IsEnabled && svc.LastKnownLocation != nil && r.notifier != nil {
		count, err := r.notifier.NotifyNearbyResources(ctx, svc.UserID, *svc.LastKnownLocation, svc.MaxDistanceKm)
		if err != nil {
			log.Error().Err(err).Str("user_id", svc.UserID).Msg("failed to notify nearby resources")
		} else {
			log.Info().Str("user_id", svc.UserID).Int("resources", count).Msg("nearby resources notified")
		}
	}

	return svc, nil
}

// GetOrCreateForAlert makes sure the requester has an enabled record carrying
// the emergency location. userID must already be resolved.
func (r *EmergencyRegistry) GetOrCreateForAlert(ctx context.Context, userID string, location entities.GeoPoint) (*entities.EmergencyService, error) {
	svc, err := r.repo.GetByUserID(ctx, userID)
	if err != nil && !apperrors.IsNotFound(err) {
		return nil, err
	}

	if svc == nil {
		svc = entities.NewEmergencyService(userID, r.now())
	}

	loc := location
	svc.IsEnabled = true
	svc.LastKnownLocation = &loc
	svc.LastUpdated = r.now()

	if err := r.repo.Upsert(ctx, svc); err != nil {
		return nil, err
	}
	return svc, nil
}
