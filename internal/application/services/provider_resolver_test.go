package services_test

import (
	"context"
	"errors"
	"testing"

	"github.com/jeevanpath/backend/internal/application/services"
	"github.com/jeevanpath/backend/internal/domain/entities"
	"github.com/jeevanpath/backend/pkg/geo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProviderResolver_Resolve(t *testing.T) {
	t.Run("orders providers by resource distance", func(t *testing.T) {
		resources := &memoryResources{resources: []*entities.Resource{
			newResource("far", pointNorthKm(delhi, 8)),
			newResource("near", pointNorthKm(delhi, 2)),
		}}
		users := &memoryUsers{users: []*entities.User{
			newProvider("1", "far"),
			newProvider("2", "near"),
			newProvider("3", "near"),
		}}
		resolver := services.NewProviderResolver(resources, users, 15)

		got := resolver.Resolve(context.Background(), delhi, geo.KmToMeters(15))

		require.Len(t, got, 3)
		assert.Equal(t, "2", got[0].Provider.ID)
		assert.Equal(t, "3", got[1].Provider.ID)
		assert.Equal(t, "1", got[2].Provider.ID)
		assert.InDelta(t, 2.0, got[0].DistanceKm, 0.01)
		assert.Equal(t, "near", got[0].Resource.ID)
	})

	t.Run("skips ineligible providers", func(t *testing.T) {
		disabled := newProvider("2", "r1")
		disabled.EmergencyNotificationsEnabled = false
		inactive := newProvider("3", "r1")
		inactive.IsActive = false

		resources := &memoryResources{resources: []*entities.Resource{newResource("r1", pointNorthKm(delhi, 1))}}
		users := &memoryUsers{users: []*entities.User{newProvider("1", "r1"), disabled, inactive}}

		got := services.NewProviderResolver(resources, users, 15).Resolve(context.Background(), delhi, geo.KmToMeters(15))

		require.Len(t, got, 1)
		assert.Equal(t, "1", got[0].Provider.ID)
	})

	t.Run("lookup failures yield no providers", func(t *testing.T) {
		resources := &memoryResources{err: errors.New("connection reset")}
		users := &memoryUsers{}
		assert.Empty(t, services.NewProviderResolver(resources, users, 15).Resolve(context.Background(), delhi, 15000))

		resources = &memoryResources{resources: []*entities.Resource{newResource("r1", delhi)}}
		users = &memoryUsers{err: errors.New("timeout")}
		assert.Empty(t, services.NewProviderResolver(resources, users, 15).Resolve(context.Background(), delhi, 15000))
	})

	t.Run("identical point gives zero distance", func(t *testing.T) {
		resources := &memoryResources{resources: []*entities.Resource{newResource("r1", delhi)}}
		users := &memoryUsers{users: []*entities.User{newProvider("1", "r1")}}

		got := services.NewProviderResolver(resources, users, 15).Resolve(context.Background(), delhi, 1000)

		require.Len(t, got, 1)
		assert.Zero(t, got[0].DistanceKm)
	})
}

func TestProviderResolver_RadiusMonotonic(t *testing.T) {
	resources := &memoryResources{}
	users := &memoryUsers{}
	for i, km := range []float64{0.5, 3, 7, 12, 14.9, 18, 24, 40} {
		id := string(rune('a' + i))
		resources.resources = append(resources.resources, newResource(id, pointNorthKm(delhi, km)))
		users.users = append(users.users, newProvider(id, id))
	}
	resolver := services.NewProviderResolver(resources, users, 15)

	ids := func(radiusKm float64) map[string]bool {
		out := map[string]bool{}
		for _, rp := range resolver.Resolve(context.Background(), delhi, geo.KmToMeters(radiusKm)) {
			out[rp.Provider.ID] = true
		}
		return out
	}

	prev := ids(1)
	for _, r := range []float64{5, 10, 15, 20, 25, 50} {
		cur := ids(r)
		for id := range prev {
			assert.True(t, cur[id], "provider %s found at smaller radius missing at %.0f km", id, r)
		}
		assert.GreaterOrEqual(t, len(cur), len(prev))
		prev = cur
	}
	assert.Len(t, prev, 8)
}
