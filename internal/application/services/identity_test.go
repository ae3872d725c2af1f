package services_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/jeevanpath/backend/internal/application/services"
	"github.com/jeevanpath/backend/internal/domain/entities"
	apperrors "github.com/jeevanpath/backend/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingUsers struct {
	memoryUsers
	err error
}

func (u *failingUsers) FindByIdentifier(ctx context.Context, identifier string) (*entities.User, error) {
	return nil, u.err
}

// memoryServices keys emergency service records by user id like the
// user_id unique constraint does.
type memoryServices struct {
	mu    sync.Mutex
	byKey map[string]*entities.EmergencyService
}

func (s *memoryServices) GetByUserID(ctx context.Context, userID string) (*entities.EmergencyService, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if svc, ok := s.byKey[userID]; ok {
		return svc, nil
	}
	return nil, apperrors.NewNotFoundError("emergency service not found")
}

func (s *memoryServices) Upsert(ctx context.Context, service *entities.EmergencyService) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byKey[service.UserID] = service
	return nil
}

type memoryContacts struct {
	mu    sync.Mutex
	items []*entities.EmergencyContact
}

func (c *memoryContacts) Create(ctx context.Context, contact *entities.EmergencyContact) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = append(c.items, contact)
	return nil
}

func (c *memoryContacts) ListByUser(ctx context.Context, userID string) ([]*entities.EmergencyContact, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []*entities.EmergencyContact
	for _, x := range c.items {
		if x.UserID == userID {
			out = append(out, x)
		}
	}
	return out, nil
}

func (c *memoryContacts) Delete(ctx context.Context, id string) error {
	return nil
}

func TestIdentityResolver_ResolveUserID(t *testing.T) {
	users := &memoryUsers{users: []*entities.User{{ID: "req", ExternalID: "ext-req", Phone: "9000000001"}}}
	resolver := services.NewIdentityResolver(users)
	ctx := context.Background()

	for _, identifier := range []string{"req", "ext-req", "9000000001"} {
		id, err := resolver.ResolveUserID(ctx, identifier)
		require.NoError(t, err)
		assert.Equal(t, "req", id, identifier)
	}

	id, err := resolver.ResolveUserID(ctx, "anonymous-device")
	require.NoError(t, err)
	assert.Equal(t, "anonymous-device", id)

	var unset *services.IdentityResolver
	id, err = unset.ResolveUserID(ctx, "ext-req")
	require.NoError(t, err)
	assert.Equal(t, "ext-req", id)

	_, err = services.NewIdentityResolver(&failingUsers{err: errors.New("connection reset")}).ResolveUserID(ctx, "ext-req")
	assert.Error(t, err)
}

func TestRequesterDataSharesOneUserID(t *testing.T) {
	ctx := context.Background()
	cfg := emergencyConfig()
	tr := newTranslator(t)

	users := &memoryUsers{users: []*entities.User{
		{ID: "req", ExternalID: "ext-req", Name: "Asha", Phone: "9000000001", IsActive: true},
	}}
	resources := &memoryResources{}
	resources.resources = append(resources.resources, newResource("p1", pointNorthKm(delhi, 2)))
	users.users = append(users.users, newProvider("p1", "p1"))

	registryRepo := &memoryServices{byKey: map[string]*entities.EmergencyService{}}
	contactRepo := &memoryContacts{}
	notifications := &memoryNotifications{}
	channel := &stubChannel{call: true, sms: true}

	identities := services.NewIdentityResolver(users)
	feed := services.NewNotificationFeed(notifications, users, resources, nil, nil, tr, cfg.ResourceLimit)
	feed.SetIdentityResolver(identities)
	registry := services.NewEmergencyRegistry(registryRepo, feed)
	registry.SetIdentityResolver(identities)
	contacts := services.NewContactService(contactRepo, channel)
	contacts.SetIdentityResolver(identities)
	dispatcher := services.NewAlertDispatcher(
		services.NewProviderResolver(resources, users, cfg.ResourceLimit),
		newMemoryAlerts(), channel, nil, tr, nil,
		services.AlertDispatcherConfig{AlertTTL: cfg.AlertTTL, Concurrency: cfg.DispatchConcurrency},
	)
	trigger := services.NewTriggerService(users, resources, registry, dispatcher, feed, contacts, tr, nil, cfg)

	_, err := registry.Toggle(ctx, services.ToggleRequest{UserID: "ext-req", IsEnabled: true, Location: &delhi})
	require.NoError(t, err)
	require.NoError(t, contacts.Create(ctx, &entities.EmergencyContact{UserID: "9000000001", Name: "Ravi", Phone: "9000000002"}))

	res, err := trigger.TriggerEmergency(ctx, services.TriggerRequest{
		UserID:        "ext-req",
		EmergencyType: entities.EmergencyTypeMedical,
		Location:      delhi,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, res.ContactsNotified)

	assert.Len(t, registryRepo.byKey, 1)
	assert.Contains(t, registryRepo.byKey, "req")

	listed, err := contacts.List(ctx, "ext-req")
	require.NoError(t, err)
	assert.Len(t, listed, 1)

	feedItems, err := feed.ListForUser(ctx, "ext-req", false, 0)
	require.NoError(t, err)
	assert.NotEmpty(t, feedItems)
	for _, n := range feedItems {
		assert.Equal(t, "req", n.UserID)
	}

	svc, err := registry.Get(ctx, "9000000001")
	require.NoError(t, err)
	assert.True(t, svc.IsEnabled)
}
