package services

import (
	"context"
	"sort"

	"github.com/jeevanpath/backend/internal/domain/entities"
	"github.com/jeevanpath/backend/internal/domain/providers"
	"github.com/jeevanpath/backend/internal/domain/repositories"
	"github.com/jeevanpath/backend/pkg/geo"
	"github.com/rs/zerolog/log"
)

const reindexPageSize = 200

// NearbyQuery is a requester-facing resource lookup
type NearbyQuery struct {
	Center   entities.GeoPoint
	RadiusKm float64
	Category entities.ResourceCategory
	Limit    int
}

// ResourceService handles resource lookups and keeps the search index in step
type ResourceService struct {
	repo   repositories.ResourceRepository
	search providers.ResourceSearchProvider
}

// NewResourceService creates a new resource service. search may be nil.
func NewResourceService(repo repositories.ResourceRepository, search providers.ResourceSearchProvider) *ResourceService {
	return &ResourceService{
		repo:   repo,
		search: search,
	}
}

// Create creates a resource and indexes it
func (s *ResourceService) Create(ctx context.Context, resource *entities.Resource) error {
	if err := s.repo.Create(ctx, resource); err != nil {
		return err
	}

	if s.search != nil {
		if err := s.search.Index(ctx, resource); err != nil {
			log.Warn().Err(err).Str("resource_id", resource.ID).Msg("failed to index resource")
		}
	}
	return nil
}

// GetByID retrieves a resource by ID
func (s *ResourceService) GetByID(ctx context.Context, id string) (*entities.Resource, error) {
	return s.repo.GetByID(ctx, id)
}

// Nearby returns resources around a point, nearest first, with distances in km
func (s *ResourceService) Nearby(ctx context.Context, q NearbyQuery) ([]entities.ResourceWithDistance, error) {
	var (
		found []*entities.Resource
		err   error
	)

	if s.search != nil {
		found, err = s.search.Search(ctx, providers.ResourceSearchParams{
			Center:   q.Center,
			RadiusKm: q.RadiusKm,
			Category: q.Category,
			Limit:    q.Limit,
		})
		if err != nil {
			log.Warn().Err(err).Msg("resource search failed, falling back to database")
		}
	}
	if s.search == nil || err != nil {
		found, err = s.repo.FindNear(ctx, repositories.NearQuery{
			Center:       q.Center,
			RadiusMeters: geo.KmToMeters(q.RadiusKm),
			Limit:        q.Limit,
			Category:     q.Category,
		})
		if err != nil {
			return nil, err
		}
	}

	out := make([]entities.ResourceWithDistance, 0, len(found))
	for _, r := range found {
		out = append(out, entities.ResourceWithDistance{
			Resource: r,
			DistanceKm: geo.RoundTo(geo.DistanceKm(
				q.Center.Lat(), q.Center.Lng(),
				r.Location.Lat(), r.Location.Lng(),
			), 2),
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].DistanceKm < out[j].DistanceKm })
	return out, nil
}

// Reindex pushes every stored resource into the search index and returns the count
func (s *ResourceService) Reindex(ctx context.Context) (int, error) {
	if s.search == nil {
		return 0, nil
	}
	if err := s.search.InitSchema(ctx); err != nil {
		return 0, err
	}

	indexed := 0
	for offset := 0; ; offset += reindexPageSize {
		page, err := s.repo.List(ctx, reindexPageSize, offset)
		if err != nil {
			return indexed, err
		}
		for _, r := range page {
			if err := s.search.Index(ctx, r); err != nil {
				log.Error().Err(err).Str("resource_id", r.ID).Msg("failed to index resource")
				continue
			}
			indexed++
		}
		if len(page) < reindexPageSize {
			return indexed, nil
		}
	}
}
