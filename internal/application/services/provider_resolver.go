package services

import (
	"context"

	"github.com/jeevanpath/backend/internal/domain/entities"
	"github.com/jeevanpath/backend/internal/domain/repositories"
	"github.com/jeevanpath/backend/internal/infrastructure/observability"
	"github.com/jeevanpath/backend/pkg/geo"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
)

// ResolvedProvider is an eligible provider together with the resource that
// matched the search and its distance from the emergency.
type ResolvedProvider struct {
	Provider   *entities.User
	Resource   *entities.Resource
	DistanceKm float64
}

// ProviderResolver finds the providers attached to resources near a point.
type ProviderResolver struct {
	resources repositories.ResourceRepository
	users     repositories.UserRepository
	limit     int
}

// NewProviderResolver creates a resolver that considers at most limit resources per search
func NewProviderResolver(resources repositories.ResourceRepository, users repositories.UserRepository, limit int) *ProviderResolver {
	return &ProviderResolver{
		resources: resources,
		users:     users,
		limit:     limit,
	}
}

// Resolve returns providers nearest-first by resource, then in the order the
// user store returned them. Lookup failures yield an empty result.
func (r *ProviderResolver) Resolve(ctx context.Context, center entities.GeoPoint, radiusMeters float64) []ResolvedProvider {
	ctx, span := observability.StartSpan(ctx, "ProviderResolver.Resolve")
	defer span.End()
	observability.SetSpanAttributes(span, attribute.Float64("search.radius_m", radiusMeters))

	resources, err := r.resources.FindNear(ctx, repositories.NearQuery{
		Center:       center,
		RadiusMeters: radiusMeters,
		Limit:        r.limit,
	})
	if err != nil {
		observability.RecordError(span, err)
		log.Error().Err(err).Float64("radius_m", radiusMeters).Msg("resource lookup failed")
		return nil
	}
	if len(resources) == 0 {
		return nil
	}

	ids := make([]string, len(resources))
	for i, res := range resources {
		ids[i] = res.ID
	}

	users, err := r.users.ListProvidersForResources(ctx, ids)
	if err != nil {
		observability.RecordError(span, err)
		log.Error().Err(err).Int("resources", len(ids)).Msg("provider lookup failed")
		return nil
	}

	byResource := make(map[string][]*entities.User, len(resources))
	for _, u := range users {
		if u.AssignedResourceID == nil {
			continue
		}
		byResource[*u.AssignedResourceID] = append(byResource[*u.AssignedResourceID], u)
	}

	var out []ResolvedProvider
	for _, res := range resources {
		for _, u := range byResource[res.ID] {
			out = append(out, ResolvedProvider{
				Provider: u,
				Resource: res,
				DistanceKm: geo.DistanceKm(
					center.Lat(), center.Lng(),
					res.Location.Lat(), res.Location.Lng(),
				),
			})
		}
	}

	observability.SetSpanAttributes(span,
		attribute.Int("search.resources", len(resources)),
		attribute.Int("search.providers", len(out)),
	)
	return out
}
