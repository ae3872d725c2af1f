package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jeevanpath/backend/internal/domain/entities"
	"github.com/jeevanpath/backend/internal/domain/providers"
	"github.com/jeevanpath/backend/internal/domain/repositories"
	"github.com/jeevanpath/backend/internal/infrastructure/localization"
	"github.com/jeevanpath/backend/pkg/geo"
	"github.com/rs/zerolog/log"
)

const (
	defaultFeedLimit = 50
	maxFeedLimit     = 200
)

// NotificationInput is a notification before localization
type NotificationInput struct {
	UserID       string
	Type         entities.NotificationType
	TitleID      string
	MessageID    string
	TemplateData map[string]interface{}
	Data         map[string]interface{}
	Priority     entities.NotificationPriority
}

// NotificationFeed manages the requester-facing notification feed
type NotificationFeed struct {
	notifications repositories.NotificationRepository
	users         repositories.UserRepository
	resources     repositories.ResourceRepository
	search        providers.ResourceSearchProvider
	bus           providers.EventBus
	translator    Translator
	identities    *IdentityResolver
	searchLimit   int
	now           func() time.Time
}

// NewNotificationFeed creates a new notification feed. search and bus may be nil;
// without search, nearby lookups go to the resource repository.
func NewNotificationFeed(
	notifications repositories.NotificationRepository,
	users repositories.UserRepository,
	resources repositories.ResourceRepository,
	search providers.ResourceSearchProvider,
	bus providers.EventBus,
	translator Translator,
	searchLimit int,
) *NotificationFeed {
	return &NotificationFeed{
		notifications: notifications,
		users:         users,
		resources:     resources,
		search:        search,
		bus:           bus,
		translator:    translator,
		searchLimit:   searchLimit,
		now:           time.Now,
	}
}

// SetIdentityResolver lets ListForUser accept external ids and phone numbers
func (f *NotificationFeed) SetIdentityResolver(identities *IdentityResolver) {
	f.identities = identities
}

// Create localizes and stores a notification, then pushes it to the requester stream
func (f *NotificationFeed) Create(ctx context.Context, in NotificationInput) (*entities.EmergencyNotification, error) {
	lang := f.languageFor(ctx, in.UserID)
	now := f.now()

	priority := in.Priority
	if priority == "" {
		priority = entities.NotificationPriorityNormal
	}

	n := &entities.EmergencyNotification{
		ID:        uuid.NewString(),
		UserID:    in.UserID,
		Type:      in.Type,
		Title:     f.translator.T(lang, in.TitleID, in.TemplateData),
		Message:   f.translator.T(lang, in.MessageID, in.TemplateData),
		Data:      in.Data,
		Priority:  priority,
		ExpiresAt: now.Add(in.Type.TTL()),
		CreatedAt: now,
	}

	if err := f.notifications.Create(ctx, n); err != nil {
		return nil, err
	}

	if f.bus != nil {
		event := entities.NewAlertEvent(entities.AlertEventNotificationCreated, n.UserID, "", map[string]interface{}{
			"notificationId": n.ID,
			"type":           n.Type,
			"title":          n.Title,
			"message":        n.Message,
			"priority":       n.Priority,
		})
		if err := f.bus.Publish(ctx, providers.GetRequesterChannel(n.UserID), event); err != nil {
			log.Error().Err(err).Str("notification_id", n.ID).Msg("failed to publish notification event")
		}
	}

	return n, nil
}

// ListForUser returns the user's unexpired notifications, newest first
func (f *NotificationFeed) ListForUser(ctx context.Context, identifier string, unreadOnly bool, limit int) ([]*entities.EmergencyNotification, error) {
	userID, err := f.identities.ResolveUserID(ctx, identifier)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = defaultFeedLimit
	}
	if limit > maxFeedLimit {
		limit = maxFeedLimit
	}
	return f.notifications.ListByUser(ctx, userID, unreadOnly, limit)
}

// MarkRead marks a notification as read
func (f *NotificationFeed) MarkRead(ctx context.Context, id string) error {
	return f.notifications.MarkRead(ctx, id)
}

// NotifyNearbyResources counts resources around location and records a
// resources_found notification for the user. It returns the count.
func (f *NotificationFeed) NotifyNearbyResources(ctx context.Context, userID string, location entities.GeoPoint, radiusKm float64) (int, error) {
	resources, err := f.nearby(ctx, location, radiusKm)
	if err != nil {
		return 0, err
	}

	data := map[string]interface{}{
		"count":    len(resources),
		"radiusKm": radiusKm,
	}
	if len(resources) > 0 {
		nearest := resources[0]
		data["nearestResourceId"] = nearest.ID
		data["nearestResourceName"] = nearest.Name
		data["nearestDistance"] = geo.RoundTo(geo.DistanceKm(
			location.Lat(), location.Lng(),
			nearest.Location.Lat(), nearest.Location.Lng(),
		), 1)
	}

	_, err = f.Create(ctx, NotificationInput{
		UserID:    userID,
		Type:      entities.NotificationTypeResourcesFound,
		TitleID:   localization.MsgResourcesFoundTitle,
		MessageID: localization.MsgResourcesFound,
		TemplateData: map[string]interface{}{
			"Count":  len(resources),
			"Radius": fmt.Sprintf("%g", radiusKm),
		},
		Data:     data,
		Priority: entities.NotificationPriorityNormal,
	})
	if err != nil {
		return len(resources), err
	}

	return len(resources), nil
}

func (f *NotificationFeed) nearby(ctx context.Context, location entities.GeoPoint, radiusKm float64) ([]*entities.Resource, error) {
	if f.search != nil {
		found, err := f.search.Search(ctx, providers.ResourceSearchParams{
			Center:   location,
			RadiusKm: radiusKm,
			Limit:    f.searchLimit,
		})
		if err == nil {
			return found, nil
		}
		log.Warn().Err(err).Msg("resource search failed, falling back to database")
	}

	return f.resources.FindNear(ctx, repositories.NearQuery{
		Center:       location,
		RadiusMeters: geo.KmToMeters(radiusKm),
		Limit:        f.searchLimit,
	})
}

func (f *NotificationFeed) languageFor(ctx context.Context, userID string) string {
	if f.users == nil {
		return ""
	}
	u, err := f.users.FindByIdentifier(ctx, userID)
	if err != nil || u == nil {
		return ""
	}
	return u.Language
}
