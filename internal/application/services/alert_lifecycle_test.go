package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/jeevanpath/backend/internal/adapters/events"
	"github.com/jeevanpath/backend/internal/application/loaders"
	"github.com/jeevanpath/backend/internal/application/services"
	"github.com/jeevanpath/backend/internal/domain/entities"
	"github.com/jeevanpath/backend/internal/domain/providers"
	apperrors "github.com/jeevanpath/backend/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type lifecycleFixture struct {
	users         *memoryUsers
	resources     *memoryResources
	alerts        *memoryAlerts
	notifications *memoryNotifications
	bus           *events.MemoryEventBus
	lifecycle     *services.AlertLifecycle
}

func newLifecycleFixture(t *testing.T) *lifecycleFixture {
	t.Helper()
	f := &lifecycleFixture{
		users:         &memoryUsers{users: []*entities.User{newProvider("p1", "r1")}},
		resources:     &memoryResources{resources: []*entities.Resource{newResource("r1", delhi)}},
		alerts:        newMemoryAlerts(),
		notifications: &memoryNotifications{},
		bus:           events.NewMemoryEventBus(),
	}
	t.Cleanup(func() { f.bus.Close() })

	feed := services.NewNotificationFeed(f.notifications, f.users, f.resources, nil, nil, newTranslator(t), 15)
	f.lifecycle = services.NewAlertLifecycle(f.users, f.alerts, f.resources, feed, f.bus)
	return f
}

func (f *lifecycleFixture) seed(t *testing.T, id string, status entities.AlertStatus, expiresIn time.Duration) *entities.UserEmergencyAlert {
	t.Helper()
	now := time.Now()
	alert := &entities.UserEmergencyAlert{
		ID:             id,
		EmergencyID:    "em-1",
		RequesterID:    "requester-1",
		ProviderUserID: "p1",
		EmergencyType:  entities.EmergencyTypeMedical,
		UrgencyLevel:   entities.UrgencyHigh,
		Resource:       entities.ResourceInfo{ID: "r1", Name: "City Clinic", DistanceKm: 2},
		Status:         status,
		ExpiresAt:      now.Add(expiresIn),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	require.NoError(t, f.alerts.CreateBatch(context.Background(), []*entities.UserEmergencyAlert{alert}))
	return alert
}

func TestAlertLifecycle_RespondAcknowledge(t *testing.T) {
	f := newLifecycleFixture(t)
	f.seed(t, "a1", entities.AlertStatusSent, 4*time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sub, err := f.bus.Subscribe(ctx, providers.GetRequesterChannel("requester-1"))
	require.NoError(t, err)

	alert, err := f.lifecycle.Respond(context.Background(), "a1", services.RespondRequest{
		CanRespond:       true,
		EstimatedArrival: "2026-10-17T10:30:00Z",
		ResponseMessage:  "Ambulance dispatched",
	})
	require.NoError(t, err)

	assert.Equal(t, entities.AlertStatusAcknowledged, alert.Status)
	assert.True(t, alert.IsRead)
	require.NotNil(t, alert.Response.AcknowledgedAt)
	require.NotNil(t, alert.Response.ViewedAt)
	require.NotNil(t, alert.Response.CanRespond)
	assert.True(t, *alert.Response.CanRespond)
	assert.Equal(t, "2026-10-17T10:30:00Z", alert.Response.EstimatedArrival)

	stored, err := f.alerts.GetByID(context.Background(), "a1")
	require.NoError(t, err)
	assert.Equal(t, entities.AlertStatusAcknowledged, stored.Status)

	notes := f.notifications.byType(entities.NotificationTypeProviderResponse)
	require.Len(t, notes, 1)
	assert.Equal(t, "requester-1", notes[0].UserID)
	assert.Contains(t, notes[0].Title, "Help is Coming!")
	assert.Equal(t, entities.NotificationPriorityUrgent, notes[0].Priority)

	var responded bool
	for !responded {
		select {
		case ev := <-sub:
			if ev.Type == entities.AlertEventResponded {
				responded = true
				assert.Equal(t, entities.AlertStatusAcknowledged, ev.Payload["status"])
			}
		case <-time.After(time.Second):
			t.Fatal("expected alert_responded event")
		}
	}
}

func TestAlertLifecycle_RespondDecline(t *testing.T) {
	f := newLifecycleFixture(t)
	f.seed(t, "a1", entities.AlertStatusViewed, 4*time.Hour)

	alert, err := f.lifecycle.Respond(context.Background(), "a1", services.RespondRequest{
		CanRespond:      false,
		ResponseMessage: "No ambulance available",
	})
	require.NoError(t, err)

	assert.Equal(t, entities.AlertStatusDeclined, alert.Status)
	require.NotNil(t, alert.Response.CanRespond)
	assert.False(t, *alert.Response.CanRespond)
	assert.Nil(t, alert.Response.AcknowledgedAt)

	notes := f.notifications.byType(entities.NotificationTypeProviderResponse)
	require.Len(t, notes, 1)
	assert.Equal(t, "Provider Cannot Respond", notes[0].Title)
	assert.Contains(t, notes[0].Message, "No ambulance available")
}

func TestAlertLifecycle_RespondToDeclinedStillSucceeds(t *testing.T) {
	f := newLifecycleFixture(t)
	f.seed(t, "a1", entities.AlertStatusDeclined, 4*time.Hour)

	alert, err := f.lifecycle.Respond(context.Background(), "a1", services.RespondRequest{CanRespond: true})
	require.NoError(t, err)
	assert.Equal(t, entities.AlertStatusAcknowledged, alert.Status)
}

func TestAlertLifecycle_MarkRead(t *testing.T) {
	t.Run("sent becomes viewed", func(t *testing.T) {
		f := newLifecycleFixture(t)
		f.seed(t, "a1", entities.AlertStatusSent, 4*time.Hour)

		alert, err := f.lifecycle.MarkRead(context.Background(), "a1")
		require.NoError(t, err)
		assert.Equal(t, entities.AlertStatusViewed, alert.Status)
		assert.True(t, alert.IsRead)
		assert.NotNil(t, alert.Response.ViewedAt)
	})

	t.Run("acknowledged stays acknowledged", func(t *testing.T) {
		f := newLifecycleFixture(t)
		f.seed(t, "a1", entities.AlertStatusAcknowledged, 4*time.Hour)

		alert, err := f.lifecycle.MarkRead(context.Background(), "a1")
		require.NoError(t, err)
		assert.Equal(t, entities.AlertStatusAcknowledged, alert.Status)
	})

	t.Run("unknown alert", func(t *testing.T) {
		f := newLifecycleFixture(t)

		_, err := f.lifecycle.MarkRead(context.Background(), "missing")
		assert.True(t, apperrors.IsNotFound(err))

		_, err = f.lifecycle.Respond(context.Background(), "missing", services.RespondRequest{CanRespond: true})
		assert.True(t, apperrors.IsNotFound(err))
	})
}

func TestAlertLifecycle_ListForProvider(t *testing.T) {
	f := newLifecycleFixture(t)
	f.seed(t, "a1", entities.AlertStatusSent, 4*time.Hour)
	f.seed(t, "a2", entities.AlertStatusSent, 4*time.Hour)
	f.seed(t, "expired", entities.AlertStatusSent, -time.Minute)
	_, err := f.lifecycle.MarkRead(context.Background(), "a1")
	require.NoError(t, err)

	t.Run("by phone with counts", func(t *testing.T) {
		got, err := f.lifecycle.ListForProvider(context.Background(), "98765p1", "", 0)
		require.NoError(t, err)

		assert.Len(t, got.Alerts, 2)
		assert.Equal(t, 2, got.TotalCount)
		assert.Equal(t, 1, got.UnreadCount)
		for _, a := range got.Alerts {
			assert.NotEqual(t, "expired", a.ID)
			require.NotNil(t, a.ResourceDetails)
			assert.Equal(t, "r1", a.ResourceDetails.ID)
		}
	})

	t.Run("status filter and request scoped loader", func(t *testing.T) {
		ctx := loaders.WithLoaders(context.Background(), loaders.NewLoaders(f.resources))
		got, err := f.lifecycle.ListForProvider(ctx, "p1", entities.AlertStatusViewed, 10)
		require.NoError(t, err)

		require.Len(t, got.Alerts, 1)
		assert.Equal(t, "a1", got.Alerts[0].ID)
	})

	t.Run("invalid status", func(t *testing.T) {
		_, err := f.lifecycle.ListForProvider(context.Background(), "p1", "lost", 10)
		appErr, ok := apperrors.As(err)
		require.True(t, ok)
		assert.Equal(t, apperrors.ErrorTypeValidation, appErr.Type)
	})

	t.Run("unknown provider", func(t *testing.T) {
		_, err := f.lifecycle.ListForProvider(context.Background(), "nobody", "", 10)
		assert.True(t, apperrors.IsNotFound(err))
	})
}
