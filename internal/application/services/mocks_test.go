package services_test

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/jeevanpath/backend/internal/domain/entities"
	"github.com/jeevanpath/backend/internal/domain/providers"
	"github.com/jeevanpath/backend/internal/domain/repositories"
	apperrors "github.com/jeevanpath/backend/pkg/errors"
	"github.com/jeevanpath/backend/pkg/geo"
	"github.com/stretchr/testify/mock"
)

// Mocks

type MockEmergencyServiceRepository struct {
	mock.Mock
}

func (m *MockEmergencyServiceRepository) GetByUserID(ctx context.Context, userID string) (*entities.EmergencyService, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.EmergencyService), args.Error(1)
}

func (m *MockEmergencyServiceRepository) Upsert(ctx context.Context, service *entities.EmergencyService) error {
	args := m.Called(ctx, service)
	return args.Error(0)
}

type MockNearbyNotifier struct {
	mock.Mock
}

func (m *MockNearbyNotifier) NotifyNearbyResources(ctx context.Context, userID string, location entities.GeoPoint, radiusKm float64) (int, error) {
	args := m.Called(ctx, userID, location, radiusKm)
	return args.Int(0), args.Error(1)
}

type MockAlertRepository struct {
	mock.Mock
}

func (m *MockAlertRepository) CreateBatch(ctx context.Context, alerts []*entities.UserEmergencyAlert) error {
	args := m.Called(ctx, alerts)
	return args.Error(0)
}

func (m *MockAlertRepository) GetByID(ctx context.Context, id string) (*entities.UserEmergencyAlert, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.UserEmergencyAlert), args.Error(1)
}

func (m *MockAlertRepository) UpdateResponse(ctx context.Context, alert *entities.UserEmergencyAlert) error {
	args := m.Called(ctx, alert)
	return args.Error(0)
}

func (m *MockAlertRepository) RecordDelivery(ctx context.Context, alertID string, outcome entities.DeliveryOutcome) error {
	args := m.Called(ctx, alertID, outcome)
	return args.Error(0)
}

func (m *MockAlertRepository) ListByProvider(ctx context.Context, filter repositories.AlertFilter) ([]*entities.UserEmergencyAlert, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.UserEmergencyAlert), args.Error(1)
}

func (m *MockAlertRepository) CountByProvider(ctx context.Context, filter repositories.AlertFilter) (repositories.AlertCounts, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).(repositories.AlertCounts), args.Error(1)
}

func (m *MockAlertRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	args := m.Called(ctx, now)
	return args.Get(0).(int64), args.Error(1)
}

type MockNotificationRepository struct {
	mock.Mock
}

func (m *MockNotificationRepository) Create(ctx context.Context, n *entities.EmergencyNotification) error {
	args := m.Called(ctx, n)
	return args.Error(0)
}

func (m *MockNotificationRepository) ListByUser(ctx context.Context, userID string, unreadOnly bool, limit int) ([]*entities.EmergencyNotification, error) {
	args := m.Called(ctx, userID, unreadOnly, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.EmergencyNotification), args.Error(1)
}

func (m *MockNotificationRepository) MarkRead(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockNotificationRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	args := m.Called(ctx, now)
	return args.Get(0).(int64), args.Error(1)
}

type MockContactRepository struct {
	mock.Mock
}

func (m *MockContactRepository) Create(ctx context.Context, c *entities.EmergencyContact) error {
	args := m.Called(ctx, c)
	return args.Error(0)
}

func (m *MockContactRepository) ListByUser(ctx context.Context, userID string) ([]*entities.EmergencyContact, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.EmergencyContact), args.Error(1)
}

func (m *MockContactRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type MockResourceSearchProvider struct {
	mock.Mock
}

func (m *MockResourceSearchProvider) InitSchema(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *MockResourceSearchProvider) Index(ctx context.Context, r *entities.Resource) error {
	return m.Called(ctx, r).Error(0)
}

func (m *MockResourceSearchProvider) Delete(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockResourceSearchProvider) Search(ctx context.Context, params providers.ResourceSearchParams) ([]*entities.Resource, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Resource), args.Error(1)
}

// Fakes

// stubChannel answers every call and SMS with fixed outcomes and records phones.
type stubChannel struct {
	mu    sync.Mutex
	call  bool
	sms   bool
	calls []string
	texts []string
}

func (c *stubChannel) Call(ctx context.Context, phone, message string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, phone)
	return c.call
}

func (c *stubChannel) SendSMS(ctx context.Context, phone, message string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.texts = append(c.texts, phone)
	return c.sms
}

// memoryResources is a ResourceRepository with geo lookups done in process.
type memoryResources struct {
	mu        sync.Mutex
	resources []*entities.Resource
	err       error
}

func (r *memoryResources) Create(ctx context.Context, res *entities.Resource) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.resources = append(r.resources, res)
	return nil
}

func (r *memoryResources) GetByID(ctx context.Context, id string) (*entities.Resource, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, res := range r.resources {
		if res.ID == id {
			return res, nil
		}
	}
	return nil, apperrors.NewNotFoundError("resource not found")
}

func (r *memoryResources) GetByIDs(ctx context.Context, ids []string) ([]*entities.Resource, error) {
	var out []*entities.Resource
	for _, id := range ids {
		if res, err := r.GetByID(ctx, id); err == nil {
			out = append(out, res)
		}
	}
	return out, nil
}

func (r *memoryResources) FindNear(ctx context.Context, q repositories.NearQuery) ([]*entities.Resource, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}

	type hit struct {
		res *entities.Resource
		d   float64
	}
	var hits []hit
	for _, res := range r.resources {
		d := geo.DistanceKm(q.Center.Lat(), q.Center.Lng(), res.Location.Lat(), res.Location.Lng())
		if d*1000 <= q.RadiusMeters && (q.Category == "" || res.Category == q.Category) {
			hits = append(hits, hit{res, d})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].d < hits[j].d })

	var out []*entities.Resource
	for _, h := range hits {
		if q.Limit > 0 && len(out) == q.Limit {
			break
		}
		out = append(out, h.res)
	}
	return out, nil
}

func (r *memoryResources) List(ctx context.Context, limit, offset int) ([]*entities.Resource, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if offset >= len(r.resources) {
		return nil, nil
	}
	end := offset + limit
	if end > len(r.resources) {
		end = len(r.resources)
	}
	return r.resources[offset:end], nil
}

// memoryUsers is a UserRepository over a slice.
type memoryUsers struct {
	mu    sync.Mutex
	users []*entities.User
	err   error
}

func (u *memoryUsers) Create(ctx context.Context, user *entities.User) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.users = append(u.users, user)
	return nil
}

func (u *memoryUsers) GetByID(ctx context.Context, id string) (*entities.User, error) {
	return u.find(func(x *entities.User) bool { return x.ID == id })
}

func (u *memoryUsers) FindByIdentifier(ctx context.Context, identifier string) (*entities.User, error) {
	return u.find(func(x *entities.User) bool {
		return x.ID == identifier || x.ExternalID == identifier || x.Phone == identifier
	})
}

func (u *memoryUsers) FindByPhone(ctx context.Context, phone string) (*entities.User, error) {
	return u.find(func(x *entities.User) bool { return x.Phone == phone })
}

func (u *memoryUsers) find(match func(*entities.User) bool) (*entities.User, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	for _, x := range u.users {
		if match(x) {
			return x, nil
		}
	}
	return nil, apperrors.NewNotFoundError("user not found")
}

func (u *memoryUsers) ListProvidersForResources(ctx context.Context, ids []string) ([]*entities.User, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.err != nil {
		return nil, u.err
	}

	wanted := make(map[string]bool, len(ids))
	for _, id := range ids {
		wanted[id] = true
	}
	var out []*entities.User
	for _, x := range u.users {
		if x.CanReceiveAlerts() && wanted[*x.AssignedResourceID] {
			out = append(out, x)
		}
	}
	return out, nil
}

func (u *memoryUsers) AssignResource(ctx context.Context, userID, resourceID string) error {
	user, err := u.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	user.AssignedResourceID = &resourceID
	return nil
}

// memoryAlerts is an AlertRepository over a map.
type memoryAlerts struct {
	mu         sync.Mutex
	alerts     map[string]*entities.UserEmergencyAlert
	order      []string
	deliveries map[string]entities.DeliveryOutcome
	createErr  error
}

func newMemoryAlerts() *memoryAlerts {
	return &memoryAlerts{
		alerts:     map[string]*entities.UserEmergencyAlert{},
		deliveries: map[string]entities.DeliveryOutcome{},
	}
}

func (a *memoryAlerts) CreateBatch(ctx context.Context, alerts []*entities.UserEmergencyAlert) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.createErr != nil {
		return a.createErr
	}
	for _, al := range alerts {
		cp := *al
		a.alerts[al.ID] = &cp
		a.order = append(a.order, al.ID)
	}
	return nil
}

func (a *memoryAlerts) GetByID(ctx context.Context, id string) (*entities.UserEmergencyAlert, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	al, ok := a.alerts[id]
	if !ok {
		return nil, apperrors.NewNotFoundError("alert not found")
	}
	cp := *al
	return &cp, nil
}

func (a *memoryAlerts) UpdateResponse(ctx context.Context, alert *entities.UserEmergencyAlert) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, ok := a.alerts[alert.ID]; !ok {
		return apperrors.NewNotFoundError("alert not found")
	}
	cp := *alert
	a.alerts[alert.ID] = &cp
	return nil
}

func (a *memoryAlerts) RecordDelivery(ctx context.Context, alertID string, outcome entities.DeliveryOutcome) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.deliveries[alertID] = outcome
	if al, ok := a.alerts[alertID]; ok {
		al.Delivery = outcome
	}
	return nil
}

func (a *memoryAlerts) ListByProvider(ctx context.Context, f repositories.AlertFilter) ([]*entities.UserEmergencyAlert, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	var out []*entities.UserEmergencyAlert
	for i := len(a.order) - 1; i >= 0; i-- {
		al := a.alerts[a.order[i]]
		if al.ProviderUserID != f.ProviderUserID || al.IsExpired(f.Now) {
			continue
		}
		if f.Status != "" && al.Status != f.Status {
			continue
		}
		cp := *al
		out = append(out, &cp)
		if f.Limit > 0 && len(out) == f.Limit {
			break
		}
	}
	return out, nil
}

func (a *memoryAlerts) CountByProvider(ctx context.Context, f repositories.AlertFilter) (repositories.AlertCounts, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	var c repositories.AlertCounts
	for _, al := range a.alerts {
		if al.ProviderUserID != f.ProviderUserID || al.IsExpired(f.Now) {
			continue
		}
		c.Total++
		if !al.IsRead {
			c.Unread++
		}
	}
	return c, nil
}

func (a *memoryAlerts) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	var n int64
	for id, al := range a.alerts {
		if al.IsExpired(now) {
			delete(a.alerts, id)
			n++
		}
	}
	return n, nil
}

// memoryNotifications records created notifications.
type memoryNotifications struct {
	mu    sync.Mutex
	items []*entities.EmergencyNotification
}

func (n *memoryNotifications) Create(ctx context.Context, in *entities.EmergencyNotification) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.items = append(n.items, in)
	return nil
}

func (n *memoryNotifications) ListByUser(ctx context.Context, userID string, unreadOnly bool, limit int) ([]*entities.EmergencyNotification, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []*entities.EmergencyNotification
	for _, x := range n.items {
		if x.UserID == userID && (!unreadOnly || !x.IsRead) {
			out = append(out, x)
		}
	}
	return out, nil
}

func (n *memoryNotifications) MarkRead(ctx context.Context, id string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, x := range n.items {
		if x.ID == id {
			x.IsRead = true
			return nil
		}
	}
	return apperrors.NewNotFoundError("notification not found")
}

func (n *memoryNotifications) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	return 0, nil
}

func (n *memoryNotifications) byType(t entities.NotificationType) []*entities.EmergencyNotification {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []*entities.EmergencyNotification
	for _, x := range n.items {
		if x.Type == t {
			out = append(out, x)
		}
	}
	return out
}

// Fixtures

var delhi = entities.NewGeoPoint(28.6139, 77.2090)

// pointNorthKm returns a point roughly km kilometres north of p.
func pointNorthKm(p entities.GeoPoint, km float64) entities.GeoPoint {
	return entities.NewGeoPoint(p.Lat()+km/111.195, p.Lng())
}

func newResource(id string, at entities.GeoPoint) *entities.Resource {
	return &entities.Resource{
		ID:       id,
		Name:     "Resource " + id,
		Category: entities.ResourceCategoryClinic,
		Location: at,
	}
}

func newProvider(id, resourceID string) *entities.User {
	rid := resourceID
	return &entities.User{
		ID:                            id,
		Name:                          "Provider " + id,
		Phone:                         "98765" + id,
		IsServiceProvider:             true,
		AssignedResourceID:            &rid,
		EmergencyNotificationsEnabled: true,
		IsActive:                      true,
	}
}
