package services_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jeevanpath/backend/internal/application/services"
	"github.com/jeevanpath/backend/internal/domain/entities"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestResourceService_Nearby(t *testing.T) {
	resources := &memoryResources{resources: []*entities.Resource{
		newResource("b", pointNorthKm(delhi, 6)),
		newResource("a", pointNorthKm(delhi, 1)),
	}}
	pharmacy := newResource("ph", pointNorthKm(delhi, 2))
	pharmacy.Category = entities.ResourceCategoryPharmacy
	resources.resources = append(resources.resources, pharmacy)

	svc := services.NewResourceService(resources, nil)

	got, err := svc.Nearby(context.Background(), services.NearbyQuery{Center: delhi, RadiusKm: 10, Limit: 10})
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "a", got[0].ID)
	assert.InDelta(t, 1.0, got[0].DistanceKm, 0.01)

	got, err = svc.Nearby(context.Background(), services.NearbyQuery{
		Center: delhi, RadiusKm: 10, Limit: 10, Category: entities.ResourceCategoryPharmacy,
	})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "ph", got[0].ID)
}

func TestResourceService_CreateIndexesBestEffort(t *testing.T) {
	search := new(MockResourceSearchProvider)
	search.On("Index", mock.Anything, mock.Anything).Return(errors.New("index down"))
	resources := &memoryResources{}

	err := services.NewResourceService(resources, search).Create(context.Background(), newResource("r1", delhi))
	require.NoError(t, err)
	assert.Len(t, resources.resources, 1)
	search.AssertExpectations(t)
}

func TestResourceService_Reindex(t *testing.T) {
	resources := &memoryResources{}
	for i := 0; i < 450; i++ {
		resources.resources = append(resources.resources, newResource(fmt.Sprintf("r%d", i), delhi))
	}
	search := new(MockResourceSearchProvider)
	search.On("InitSchema", mock.Anything).Return(nil)
	search.On("Index", mock.Anything, mock.Anything).Return(nil)

	n, err := services.NewResourceService(resources, search).Reindex(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 450, n)
	search.AssertNumberOfCalls(t, "Index", 450)
}

func TestProviderDirectory_CheckProvider(t *testing.T) {
	plain := &entities.User{ID: "u2", Phone: "9000000002"}
	users := &memoryUsers{users: []*entities.User{newProvider("1", "r1"), plain}}
	resources := &memoryResources{resources: []*entities.Resource{newResource("r1", delhi)}}
	dir := services.NewProviderDirectory(users, resources)

	st, err := dir.CheckProvider(context.Background(), "987651")
	require.NoError(t, err)
	assert.True(t, st.IsServiceProvider)
	require.NotNil(t, st.Resource)
	assert.Equal(t, "r1", st.Resource.ID)

	st, err = dir.CheckProvider(context.Background(), "9000000002")
	require.NoError(t, err)
	assert.False(t, st.IsServiceProvider)

	st, err = dir.CheckProvider(context.Background(), "0000")
	require.NoError(t, err)
	assert.False(t, st.IsServiceProvider)
	assert.Nil(t, st.User)
}
