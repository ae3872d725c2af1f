package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/jeevanpath/backend/internal/domain/entities"
	"github.com/jeevanpath/backend/internal/domain/providers"
	"github.com/jeevanpath/backend/internal/domain/repositories"
)

const resourceByIDTTL = 10 * time.Minute

// CachedResourceAdapter wraps a ResourceRepository with a read-through cache
// for id lookups. Radius queries always hit the database.
type CachedResourceAdapter struct {
	repositories.ResourceRepository
	cache providers.CacheProvider
}

// NewCachedResourceAdapter creates a new cached resource adapter
func NewCachedResourceAdapter(adapter repositories.ResourceRepository, cache providers.CacheProvider) repositories.ResourceRepository {
	return &CachedResourceAdapter{
		ResourceRepository: adapter,
		cache:              cache,
	}
}

func resourceCacheKey(id string) string {
	return fmt.Sprintf("resource:%s", id)
}

// Create stores the resource and drops any stale cache entry
func (a *CachedResourceAdapter) Create(ctx context.Context, resource *entities.Resource) error {
	if err := a.ResourceRepository.Create(ctx, resource); err != nil {
		return err
	}
	if err := a.cache.Delete(ctx, resourceCacheKey(resource.ID)); err != nil {
		log.Warn().Err(err).Str("resource_id", resource.ID).Msg("failed to invalidate cached resource")
	}
	return nil
}

// GetByID retrieves a resource by ID with caching
func (a *CachedResourceAdapter) GetByID(ctx context.Context, id string) (*entities.Resource, error) {
	if resource, ok := a.fromCache(ctx, id); ok {
		return resource, nil
	}

	resource, err := a.ResourceRepository.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	a.store(ctx, resource)
	return resource, nil
}

// GetByIDs serves what it can from cache and loads the rest in one query.
// Results keep the order of ids.
func (a *CachedResourceAdapter) GetByIDs(ctx context.Context, ids []string) ([]*entities.Resource, error) {
	if len(ids) == 0 {
		return []*entities.Resource{}, nil
	}

	found := make(map[string]*entities.Resource, len(ids))
	missing := make([]string, 0)
	for _, id := range ids {
		if resource, ok := a.fromCache(ctx, id); ok {
			found[id] = resource
			continue
		}
		missing = append(missing, id)
	}

	if len(missing) > 0 {
		loaded, err := a.ResourceRepository.GetByIDs(ctx, missing)
		if err != nil {
			return nil, err
		}
		for _, resource := range loaded {
			found[resource.ID] = resource
			a.store(ctx, resource)
		}
	}

	out := make([]*entities.Resource, 0, len(found))
	for _, id := range ids {
		if resource, ok := found[id]; ok {
			out = append(out, resource)
		}
	}
	return out, nil
}

func (a *CachedResourceAdapter) fromCache(ctx context.Context, id string) (*entities.Resource, bool) {
	cached, err := a.cache.Get(ctx, resourceCacheKey(id))
	if err != nil {
		if !errors.Is(err, providers.ErrCacheMiss) {
			log.Warn().Err(err).Str("resource_id", id).Msg("resource cache read failed")
		}
		return nil, false
	}

	var resource entities.Resource
	if err := json.Unmarshal(cached, &resource); err != nil {
		log.Warn().Err(err).Str("resource_id", id).Msg("discarding undecodable cached resource")
		return nil, false
	}
	return &resource, true
}

func (a *CachedResourceAdapter) store(ctx context.Context, resource *entities.Resource) {
	data, err := json.Marshal(resource)
	if err != nil {
		return
	}
	if err := a.cache.Set(ctx, resourceCacheKey(resource.ID), data, resourceByIDTTL); err != nil {
		log.Warn().Err(err).Str("resource_id", resource.ID).Msg("failed to cache resource")
	}
}
