package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jeevanpath/backend/internal/domain/entities"
	"github.com/jeevanpath/backend/internal/domain/repositories"
	"github.com/jeevanpath/backend/internal/infrastructure/localization"
	"github.com/jeevanpath/backend/internal/infrastructure/observability"
	"github.com/jeevanpath/backend/pkg/config"
	apperrors "github.com/jeevanpath/backend/pkg/errors"
	"github.com/jeevanpath/backend/pkg/geo"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
)

const unknownRequesterName = "Unknown"

// TriggerRequest is an emergency raised by a requester
type TriggerRequest struct {
	UserID        string
	EmergencyType entities.EmergencyType
	Location      entities.GeoPoint
	Message       string
	UrgencyLevel  entities.UrgencyLevel
}

// ContactedProvider summarises one alert in the trigger response
type ContactedProvider struct {
	AlertID       string  `json:"alertId"`
	ProviderID    string  `json:"providerId"`
	ProviderName  string  `json:"providerName"`
	ProviderPhone string  `json:"providerPhone"`
	ResourceID    string  `json:"resourceId"`
	ResourceName  string  `json:"resourceName"`
	Distance      float64 `json:"distance"`
	CallDelivered bool    `json:"callDelivered"`
	SMSDelivered  bool    `json:"smsDelivered"`
}

// TriggerResult is returned to the requester
type TriggerResult struct {
	AlertID              string              `json:"alertId"`
	NearbyResourcesCount int                 `json:"nearbyResourcesCount"`
	ContactsNotified     int                 `json:"contactsNotified"`
	ProvidersNotified    int                 `json:"providersNotified"`
	ProvidersContacted   []ContactedProvider `json:"providersContacted"`
	Message              string              `json:"message"`
}

// Dispatcher runs one alerting pass at a radius
type Dispatcher interface {
	Dispatch(ctx context.Context, req EmergencyRequest, radiusMeters float64) ([]*DispatchedAlert, error)
}

// Registrar keeps the requester's emergency service record current
type Registrar interface {
	GetOrCreateForAlert(ctx context.Context, userID string, location entities.GeoPoint) (*entities.EmergencyService, error)
}

// Notifier stores requester notifications
type Notifier interface {
	Create(ctx context.Context, in NotificationInput) (*entities.EmergencyNotification, error)
}

// ContactNotifier reaches the requester's emergency contacts
type ContactNotifier interface {
	NotifyAll(ctx context.Context, userID, message string) int
}

// TriggerService runs the whole emergency pipeline for a requester
type TriggerService struct {
	users      repositories.UserRepository
	resources  repositories.ResourceRepository
	registry   Registrar
	dispatcher Dispatcher
	feed       Notifier
	contacts   ContactNotifier
	translator Translator
	metrics    *observability.Metrics
	cfg        config.EmergencyConfig
}

// NewTriggerService creates a new trigger service
func NewTriggerService(
	users repositories.UserRepository,
	resources repositories.ResourceRepository,
	registry Registrar,
	dispatcher Dispatcher,
	feed Notifier,
	contacts ContactNotifier,
	translator Translator,
	metrics *observability.Metrics,
	cfg config.EmergencyConfig,
) *TriggerService {
	return &TriggerService{
		users:      users,
		resources:  resources,
		registry:   registry,
		dispatcher: dispatcher,
		feed:       feed,
		contacts:   contacts,
		translator: translator,
		metrics:    metrics,
		cfg:        cfg,
	}
}

// TriggerEmergency alerts providers at the initial radius and widens the
// search once when fewer than the minimum number were reached.
func (s *TriggerService) TriggerEmergency(ctx context.Context, req TriggerRequest) (*TriggerResult, error) {
	ctx, span := observability.StartSpan(ctx, "TriggerService.TriggerEmergency")
	defer span.End()

	if req.UrgencyLevel == "" {
		req.UrgencyLevel = entities.UrgencyHigh
	}

	emergencyID := uuid.NewString()
	observability.SetSpanAttributes(span,
		attribute.String("emergency.id", emergencyID),
		attribute.String("emergency.type", string(req.EmergencyType)),
	)
	logger := log.With().Str("emergency_id", emergencyID).Str("user_id", req.UserID).Logger()

	requesterID, info, lang := s.requester(ctx, req)

	if _, err := s.registry.GetOrCreateForAlert(ctx, requesterID, req.Location); err != nil {
		observability.RecordError(span, err)
		return nil, err
	}

	nearby, err := s.resources.FindNear(ctx, repositories.NearQuery{
		Center:       req.Location,
		RadiusMeters: geo.KmToMeters(s.cfg.InitialRadiusKm),
		Limit:        s.cfg.ResourceLimit,
	})
	if err != nil {
		logger.Error().Err(err).Msg("nearby resource lookup failed")
		nearby = nil
	}

	emergency := EmergencyRequest{
		EmergencyID:   emergencyID,
		RequesterID:   requesterID,
		Requester:     info,
		EmergencyType: req.EmergencyType,
		UrgencyLevel:  req.UrgencyLevel,
		Location:      req.Location,
		Message:       req.Message,
	}

	dispatched, err := s.dispatcher.Dispatch(ctx, emergency, geo.KmToMeters(s.cfg.InitialRadiusKm))
	if err != nil {
		observability.RecordError(span, err)
		return nil, err
	}

	escalated := false
	if len(dispatched) < s.cfg.MinProviders {
		escalated = true
		logger.Info().Int("alerts", len(dispatched)).Float64("radius_km", s.cfg.EscalationRadiusKm).Msg("escalating emergency search radius")

		more, err := s.dispatcher.Dispatch(ctx, emergency, geo.KmToMeters(s.cfg.EscalationRadiusKm))
		if err != nil {
			logger.Error().Err(err).Msg("escalation pass failed")
		} else {
			dispatched = append(dispatched, more...)
		}
	}

	observability.RecordDispatch(ctx, s.metrics, string(req.EmergencyType), len(dispatched), escalated)

	s.notifyNearby(ctx, requesterID, emergency, nearby)

	contactsNotified := 0
	if s.contacts != nil {
		sms := s.translator.T(lang, localization.MsgContactSMS, map[string]interface{}{
			"Name":          info.Name,
			"EmergencyType": string(req.EmergencyType),
			"Lat":           fmt.Sprintf("%.6f", req.Location.Lat()),
			"Lng":           fmt.Sprintf("%.6f", req.Location.Lng()),
		})
		contactsNotified = s.contacts.NotifyAll(ctx, requesterID, sms)
	}

	contacted := make([]ContactedProvider, 0, len(dispatched))
	for _, d := range dispatched {
		contacted = append(contacted, ContactedProvider{
			AlertID:       d.Alert.ID,
			ProviderID:    d.Provider.ID,
			ProviderName:  d.Provider.Name,
			ProviderPhone: d.Provider.Phone,
			ResourceID:    d.Resource.ID,
			ResourceName:  d.Resource.Name,
			Distance:      geo.RoundTo(d.Alert.Resource.DistanceKm, 2),
			CallDelivered: d.Alert.Delivery.CallDelivered,
			SMSDelivered:  d.Alert.Delivery.SMSDelivered,
		})
	}

	logger.Info().
		Int("providers", len(contacted)).
		Int("nearby_resources", len(nearby)).
		Int("contacts", contactsNotified).
		Bool("escalated", escalated).
		Msg("emergency dispatched")

	return &TriggerResult{
		AlertID:              emergencyID,
		NearbyResourcesCount: len(nearby),
		ContactsNotified:     contactsNotified,
		ProvidersNotified:    len(contacted),
		ProvidersContacted:   contacted,
		Message:              summaryMessage(len(contacted)),
	}, nil
}

// requester resolves the snapshot stored on every alert. Unknown requesters
// are still served.
func (s *TriggerService) requester(ctx context.Context, req TriggerRequest) (string, entities.RequesterInfo, string) {
	info := entities.RequesterInfo{
		Name:     unknownRequesterName,
		Location: req.Location,
	}

	u, err := s.users.FindByIdentifier(ctx, req.UserID)
	if err != nil {
		if !apperrors.IsNotFound(err) {
			log.Warn().Err(err).Str("user_id", req.UserID).Msg("requester lookup failed")
		}
		return req.UserID, info, ""
	}

	info.Name = u.Name
	info.Phone = u.Phone
	return u.ID, info, u.Language
}

func (s *TriggerService) notifyNearby(ctx context.Context, requesterID string, emergency EmergencyRequest, nearby []*entities.Resource) {
	if s.feed == nil {
		return
	}

	for i, res := range nearby {
		if i >= s.cfg.MaxInfoNotifications {
			break
		}

		distance := geo.DistanceKm(
			emergency.Location.Lat(), emergency.Location.Lng(),
			res.Location.Lat(), res.Location.Lng(),
		)
		_, err := s.feed.Create(ctx, NotificationInput{
			UserID:    requesterID,
			Type:      entities.NotificationTypeEmergencyAlert,
			TitleID:   localization.MsgEmergencyAlertTitle,
			MessageID: localization.MsgEmergencyAlert,
			TemplateData: map[string]interface{}{
				"ResourceName": res.Name,
				"Category":     string(res.Category),
				"Distance":     fmt.Sprintf("%.1f", distance),
			},
			Data: map[string]interface{}{
				"emergencyId":    emergency.EmergencyID,
				"emergencyType":  emergency.EmergencyType,
				"resourceId":     res.ID,
				"resourceName":   res.Name,
				"contactNumbers": res.ContactNumbers,
				"distance":       geo.RoundTo(distance, 2),
			},
			Priority: entities.NotificationPriorityHigh,
		})
		if err != nil {
			log.Error().Err(err).Str("resource_id", res.ID).Msg("failed to create nearby resource notification")
		}
	}
}

func summaryMessage(providers int) string {
	if providers == 0 {
		return "Emergency recorded. No providers are available nearby right now."
	}
	return fmt.Sprintf("Emergency alert sent to %d providers.", providers)
}
