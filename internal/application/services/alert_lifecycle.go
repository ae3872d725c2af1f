package services

import (
	"context"
	"time"

	"github.com/jeevanpath/backend/internal/application/loaders"
	"github.com/jeevanpath/backend/internal/domain/entities"
	"github.com/jeevanpath/backend/internal/domain/providers"
	"github.com/jeevanpath/backend/internal/domain/repositories"
	"github.com/jeevanpath/backend/internal/infrastructure/localization"
	apperrors "github.com/jeevanpath/backend/pkg/errors"
	"github.com/rs/zerolog/log"
)

const (
	defaultAlertListLimit = 20
	maxAlertListLimit     = 100
)

// ProviderAlerts is a provider's alert inbox
type ProviderAlerts struct {
	Alerts      []*entities.UserEmergencyAlert `json:"alerts"`
	UnreadCount int                            `json:"unreadCount"`
	TotalCount  int                            `json:"totalCount"`
}

// RespondRequest is a provider's answer to an alert
type RespondRequest struct {
	CanRespond       bool
	EstimatedArrival string
	ResponseMessage  string
}

// AlertLifecycle moves alerts through the provider-side states and tells
// the requester what happened.
type AlertLifecycle struct {
	users     repositories.UserRepository
	alerts    repositories.AlertRepository
	resources repositories.ResourceRepository
	feed      Notifier
	bus       providers.EventBus
	now       func() time.Time
}

// NewAlertLifecycle creates a new lifecycle manager. bus may be nil.
func NewAlertLifecycle(
	users repositories.UserRepository,
	alerts repositories.AlertRepository,
	resources repositories.ResourceRepository,
	feed Notifier,
	bus providers.EventBus,
) *AlertLifecycle {
	return &AlertLifecycle{
		users:     users,
		alerts:    alerts,
		resources: resources,
		feed:      feed,
		bus:       bus,
		now:       time.Now,
	}
}

// ListForProvider returns the unexpired alerts of the provider identified by
// phone, external id or id.
func (l *AlertLifecycle) ListForProvider(ctx context.Context, identifier string, status entities.AlertStatus, limit int) (*ProviderAlerts, error) {
	if status != "" && !status.IsValid() {
		return nil, apperrors.NewValidationErrorf("invalid status %q", status)
	}
	if limit <= 0 {
		limit = defaultAlertListLimit
	}
	if limit > maxAlertListLimit {
		limit = maxAlertListLimit
	}

	provider, err := l.users.FindByIdentifier(ctx, identifier)
	if err != nil {
		return nil, err
	}

	filter := repositories.AlertFilter{
		ProviderUserID: provider.ID,
		Status:         status,
		Limit:          limit,
		Now:            l.now(),
	}

	alerts, err := l.alerts.ListByProvider(ctx, filter)
	if err != nil {
		return nil, err
	}
	counts, err := l.alerts.CountByProvider(ctx, filter)
	if err != nil {
		return nil, err
	}

	l.attachResources(ctx, alerts)

	if alerts == nil {
		alerts = []*entities.UserEmergencyAlert{}
	}
	return &ProviderAlerts{
		Alerts:      alerts,
		UnreadCount: counts.Unread,
		TotalCount:  counts.Total,
	}, nil
}

// attachResources loads the full resource of every alert in one batch.
func (l *AlertLifecycle) attachResources(ctx context.Context, alerts []*entities.UserEmergencyAlert) {
	if len(alerts) == 0 || l.resources == nil {
		return
	}

	ld := loaders.For(ctx)
	if ld == nil {
		ld = loaders.NewLoaders(l.resources)
	}

	ids := make([]string, len(alerts))
	for i, a := range alerts {
		ids[i] = a.Resource.ID
	}

	resources, errs := ld.ResourceLoader.LoadMany(ctx, ids)()
	for i, a := range alerts {
		if i < len(errs) && errs[i] != nil {
			log.Debug().Err(errs[i]).Str("alert_id", a.ID).Msg("resource details unavailable")
			continue
		}
		if i < len(resources) {
			a.ResourceDetails = resources[i]
		}
	}
}

// MarkRead flags the alert as read; sent alerts become viewed.
func (l *AlertLifecycle) MarkRead(ctx context.Context, alertID string) (*entities.UserEmergencyAlert, error) {
	alert, err := l.alerts.GetByID(ctx, alertID)
	if err != nil {
		return nil, err
	}

	alert.MarkViewed(l.now())
	if err := l.alerts.UpdateResponse(ctx, alert); err != nil {
		return nil, err
	}

	l.publish(ctx, alert)
	return alert, nil
}

// Respond records an accept or decline and notifies the requester. The current
// status is not checked, so a declined alert can still be acknowledged.
func (l *AlertLifecycle) Respond(ctx context.Context, alertID string, req RespondRequest) (*entities.UserEmergencyAlert, error) {
	alert, err := l.alerts.GetByID(ctx, alertID)
	if err != nil {
		return nil, err
	}

	now := l.now()
	if req.CanRespond {
		alert.Acknowledge(now, req.EstimatedArrival, req.ResponseMessage)
	} else {
		alert.Decline(now, req.ResponseMessage)
	}

	if err := l.alerts.UpdateResponse(ctx, alert); err != nil {
		return nil, err
	}

	l.notifyRequester(ctx, alert, req)
	l.publish(ctx, alert)
	return alert, nil
}

func (l *AlertLifecycle) notifyRequester(ctx context.Context, alert *entities.UserEmergencyAlert, req RespondRequest) {
	if l.feed == nil {
		return
	}

	in := NotificationInput{
		UserID: alert.RequesterID,
		Type:   entities.NotificationTypeProviderResponse,
		TemplateData: map[string]interface{}{
			"ResourceName": alert.Resource.Name,
			"ETA":          req.EstimatedArrival,
			"Reason":       req.ResponseMessage,
		},
		Data: map[string]interface{}{
			"alertId":          alert.ID,
			"emergencyId":      alert.EmergencyID,
			"providerId":       alert.ProviderUserID,
			"resourceId":       alert.Resource.ID,
			"resourceName":     alert.Resource.Name,
			"canRespond":       req.CanRespond,
			"estimatedArrival": req.EstimatedArrival,
			"responseMessage":  req.ResponseMessage,
		},
	}

	if req.CanRespond {
		in.TitleID = localization.MsgHelpComingTitle
		in.MessageID = localization.MsgHelpComing
		if req.EstimatedArrival != "" {
			in.MessageID = localization.MsgHelpComingWithETA
		}
		in.Priority = entities.NotificationPriorityUrgent
	} else {
		in.TitleID = localization.MsgProviderDeclinedTitle
		in.MessageID = localization.MsgProviderDeclined
		if req.ResponseMessage != "" {
			in.MessageID = localization.MsgProviderDeclinedWithReason
		}
		in.Priority = entities.NotificationPriorityHigh
	}

	if _, err := l.feed.Create(ctx, in); err != nil {
		log.Error().Err(err).Str("alert_id", alert.ID).Msg("failed to notify requester of provider response")
	}
}

func (l *AlertLifecycle) publish(ctx context.Context, alert *entities.UserEmergencyAlert) {
	if l.bus == nil || alert.RequesterID == "" {
		return
	}

	event := entities.NewAlertEvent(entities.AlertEventResponded, alert.RequesterID, alert.ID, map[string]interface{}{
		"emergencyId":      alert.EmergencyID,
		"providerId":       alert.ProviderUserID,
		"resourceName":     alert.Resource.Name,
		"status":           alert.Status,
		"estimatedArrival": alert.Response.EstimatedArrival,
		"responseMessage":  alert.Response.ResponseMessage,
	})
	if err := l.bus.Publish(ctx, providers.GetRequesterChannel(alert.RequesterID), event); err != nil {
		log.Error().Err(err).Str("alert_id", alert.ID).Msg("failed to publish alert response")
	}
}
