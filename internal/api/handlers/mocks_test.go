package handlers_test

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/jeevanpath/backend/internal/application/services"
	"github.com/jeevanpath/backend/internal/domain/entities"
)

type MockRegistry struct {
	mock.Mock
}

func (m *MockRegistry) Toggle(ctx context.Context, req services.ToggleRequest) (*entities.EmergencyService, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.EmergencyService), args.Error(1)
}

func (m *MockRegistry) Get(ctx context.Context, userID string) (*entities.EmergencyService, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.EmergencyService), args.Error(1)
}

type MockTrigger struct {
	mock.Mock
}

func (m *MockTrigger) TriggerEmergency(ctx context.Context, req services.TriggerRequest) (*services.TriggerResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.TriggerResult), args.Error(1)
}

type MockLifecycle struct {
	mock.Mock
}

func (m *MockLifecycle) ListForProvider(ctx context.Context, identifier string, status entities.AlertStatus, limit int) (*services.ProviderAlerts, error) {
	args := m.Called(ctx, identifier, status, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.ProviderAlerts), args.Error(1)
}

func (m *MockLifecycle) MarkRead(ctx context.Context, alertID string) (*entities.UserEmergencyAlert, error) {
	args := m.Called(ctx, alertID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.UserEmergencyAlert), args.Error(1)
}

func (m *MockLifecycle) Respond(ctx context.Context, alertID string, req services.RespondRequest) (*entities.UserEmergencyAlert, error) {
	args := m.Called(ctx, alertID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.UserEmergencyAlert), args.Error(1)
}

type MockDirectory struct {
	mock.Mock
}

func (m *MockDirectory) CheckProvider(ctx context.Context, phone string) (*services.ProviderStatus, error) {
	args := m.Called(ctx, phone)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.ProviderStatus), args.Error(1)
}

type MockContacts struct {
	mock.Mock
}

func (m *MockContacts) Create(ctx context.Context, contact *entities.EmergencyContact) error {
	return m.Called(ctx, contact).Error(0)
}

func (m *MockContacts) List(ctx context.Context, userID string) ([]*entities.EmergencyContact, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.EmergencyContact), args.Error(1)
}

func (m *MockContacts) Delete(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

type MockFeed struct {
	mock.Mock
}

func (m *MockFeed) ListForUser(ctx context.Context, userID string, unreadOnly bool, limit int) ([]*entities.EmergencyNotification, error) {
	args := m.Called(ctx, userID, unreadOnly, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.EmergencyNotification), args.Error(1)
}

func (m *MockFeed) MarkRead(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

type MockResources struct {
	mock.Mock
}

func (m *MockResources) GetByID(ctx context.Context, id string) (*entities.Resource, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Resource), args.Error(1)
}

func (m *MockResources) Nearby(ctx context.Context, q services.NearbyQuery) ([]entities.ResourceWithDistance, error) {
	args := m.Called(ctx, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entities.ResourceWithDistance), args.Error(1)
}

// decodeBody parses a JSON response body into a generic map
func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

type MockIdentities struct {
	mock.Mock
}

func (m *MockIdentities) ResolveUserID(ctx context.Context, identifier string) (string, error) {
	args := m.Called(ctx, identifier)
	return args.String(0), args.Error(1)
}
