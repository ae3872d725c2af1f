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
	"github.com/jeevanpath/backend/internal/infrastructure/observability"
	apperrors "github.com/jeevanpath/backend/pkg/errors"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"
)

// Translator renders localized user-facing texts
type Translator interface {
	T(lang, messageID string, data map[string]interface{}) string
}

// Resolver finds eligible providers around a point
type Resolver interface {
	Resolve(ctx context.Context, center entities.GeoPoint, radiusMeters float64) []ResolvedProvider
}

// EmergencyRequest is one dispatch pass input
type EmergencyRequest struct {
	EmergencyID   string
	RequesterID   string
	Requester     entities.RequesterInfo
	EmergencyType entities.EmergencyType
	UrgencyLevel  entities.UrgencyLevel
	Location      entities.GeoPoint
	Message       string
}

// DispatchedAlert is a persisted alert with the provider and resource it targets
type DispatchedAlert struct {
	Alert    *entities.UserEmergencyAlert
	Provider *entities.User
	Resource *entities.Resource
}

// AlertDispatcherConfig tunes a dispatcher
type AlertDispatcherConfig struct {
	AlertTTL    time.Duration
	Concurrency int
}

// AlertDispatcher turns resolved providers into persisted alerts and reaches
// each provider over the contact channel.
type AlertDispatcher struct {
	resolver   Resolver
	alerts     repositories.AlertRepository
	contact    providers.ContactChannel
	bus        providers.EventBus
	translator Translator
	metrics    *observability.Metrics
	cfg        AlertDispatcherConfig
	now        func() time.Time
}

// NewAlertDispatcher creates a new alert dispatcher. bus and metrics may be nil.
func NewAlertDispatcher(
	resolver Resolver,
	alerts repositories.AlertRepository,
	contact providers.ContactChannel,
	bus providers.EventBus,
	translator Translator,
	metrics *observability.Metrics,
	cfg AlertDispatcherConfig,
) *AlertDispatcher {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	if cfg.AlertTTL <= 0 {
		cfg.AlertTTL = 4 * time.Hour
	}
	return &AlertDispatcher{
		resolver:   resolver,
		alerts:     alerts,
		contact:    contact,
		bus:        bus,
		translator: translator,
		metrics:    metrics,
		cfg:        cfg,
		now:        time.Now,
	}
}

// Dispatch alerts every provider attached to a resource within radiusMeters.
// Only a persistence failure is returned; delivery problems are logged.
func (d *AlertDispatcher) Dispatch(ctx context.Context, req EmergencyRequest, radiusMeters float64) ([]*DispatchedAlert, error) {
	ctx, span := observability.StartSpan(ctx, "AlertDispatcher.Dispatch")
	defer span.End()
	observability.SetSpanAttributes(span,
		attribute.String("emergency.id", req.EmergencyID),
		attribute.String("emergency.type", string(req.EmergencyType)),
		attribute.Float64("search.radius_m", radiusMeters),
	)

	resolved := d.resolver.Resolve(ctx, req.Location, radiusMeters)
	if len(resolved) == 0 {
		return nil, nil
	}

	now := d.now()
	dispatched := make([]*DispatchedAlert, 0, len(resolved))
	batch := make([]*entities.UserEmergencyAlert, 0, len(resolved))
	for _, rp := range resolved {
		alert := d.buildAlert(req, rp, now)
		batch = append(batch, alert)
		dispatched = append(dispatched, &DispatchedAlert{
			Alert:    alert,
			Provider: rp.Provider,
			Resource: rp.Resource,
		})
	}

	if err := d.alerts.CreateBatch(ctx, batch); err != nil {
		observability.RecordError(span, err)
		if _, ok := apperrors.As(err); ok {
			return nil, err
		}
		return nil, apperrors.NewInternalError("failed to persist alerts", err)
	}

	d.deliver(ctx, dispatched)

	observability.SetSpanAttributes(span, attribute.Int("emergency.alerts", len(dispatched)))
	return dispatched, nil
}

func (d *AlertDispatcher) buildAlert(req EmergencyRequest, rp ResolvedProvider, now time.Time) *entities.UserEmergencyAlert {
	message := d.translator.T(rp.Provider.Language, localization.MsgAlert, map[string]interface{}{
		"EmergencyType": string(req.EmergencyType),
		"Distance":      fmt.Sprintf("%.1f", rp.DistanceKm),
		"ResourceName":  rp.Resource.Name,
		"Note":          req.Message,
	})

	return &entities.UserEmergencyAlert{
		ID:             uuid.NewString(),
		EmergencyID:    req.EmergencyID,
		RequesterID:    req.RequesterID,
		ProviderUserID: rp.Provider.ID,
		EmergencyType:  req.EmergencyType,
		UrgencyLevel:   req.UrgencyLevel,
		Requester:      req.Requester,
		Resource: entities.ResourceInfo{
			ID:         rp.Resource.ID,
			Name:       rp.Resource.Name,
			DistanceKm: rp.DistanceKm,
		},
		Message:   message,
		Status:    entities.AlertStatusSent,
		ExpiresAt: now.Add(d.cfg.AlertTTL),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// deliver runs the call and SMS legs for every alert with bounded parallelism.
// Each goroutine only touches its own alert.
func (d *AlertDispatcher) deliver(ctx context.Context, dispatched []*DispatchedAlert) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.cfg.Concurrency)

	for _, da := range dispatched {
		g.Go(func() error {
			d.deliverOne(gctx, da)
			return nil
		})
	}

	_ = g.Wait()
}

func (d *AlertDispatcher) deliverOne(ctx context.Context, da *DispatchedAlert) {
	alert := da.Alert
	phone := da.Provider.Phone

	outcome := entities.DeliveryOutcome{
		CallDelivered: d.contact.Call(ctx, phone, alert.Message),
	}
	outcome.SMSDelivered = d.contact.SendSMS(ctx, phone, alert.Message)
	alert.Delivery = outcome

	observability.RecordDelivery(ctx, d.metrics, "call", outcome.CallDelivered)
	observability.RecordDelivery(ctx, d.metrics, "sms", outcome.SMSDelivered)

	logger := log.With().
		Str("alert_id", alert.ID).
		Str("provider_id", da.Provider.ID).
		Bool("call", outcome.CallDelivered).
		Bool("sms", outcome.SMSDelivered).
		Logger()

	if !outcome.Delivered() {
		logger.Warn().Msg("provider could not be reached out of band")
	}

	// The alert already exists; a lost delivery record only affects reporting.
	if err := d.alerts.RecordDelivery(ctx, alert.ID, outcome); err != nil {
		logger.Error().Err(err).Msg("failed to record delivery outcome")
	}

	if d.bus == nil {
		return
	}
	event := entities.NewAlertEvent(entities.AlertEventCreated, da.Provider.ID, alert.ID, map[string]interface{}{
		"emergencyId":   alert.EmergencyID,
		"emergencyType": alert.EmergencyType,
		"urgencyLevel":  alert.UrgencyLevel,
		"message":       alert.Message,
		"resourceId":    alert.Resource.ID,
		"resourceName":  alert.Resource.Name,
		"distance":      alert.Resource.DistanceKm,
		"callDelivered": outcome.CallDelivered,
		"smsDelivered":  outcome.SMSDelivered,
	})
	if err := d.bus.Publish(ctx, providers.GetProviderChannel(da.Provider.ID), event); err != nil {
		logger.Error().Err(err).Msg("failed to publish alert event")
	}
}
