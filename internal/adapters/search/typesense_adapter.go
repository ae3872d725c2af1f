package search

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/typesense/typesense-go/v2/typesense/api"
	"github.com/typesense/typesense-go/v2/typesense/api/pointer"

	"github.com/jeevanpath/backend/internal/domain/entities"
	"github.com/jeevanpath/backend/internal/domain/providers"
	tsclient "github.com/jeevanpath/backend/internal/infrastructure/clients/typesense"
)

const collectionName = "resources"

// TypesenseAdapter mirrors resources into a Typesense collection for geo lookups
type TypesenseAdapter struct {
	client *tsclient.Client
}

var _ providers.ResourceSearchProvider = (*TypesenseAdapter)(nil)

// NewTypesenseAdapter creates a new Typesense adapter
func NewTypesenseAdapter(client *tsclient.Client) *TypesenseAdapter {
	return &TypesenseAdapter{client: client}
}

// DropSchema deletes the collection so the next InitSchema starts empty
func (a *TypesenseAdapter) DropSchema(ctx context.Context) error {
	if _, err := a.client.Client().Collection(collectionName).Delete(ctx); err != nil {
		return fmt.Errorf("failed to delete typesense collection: %w", err)
	}
	return nil
}

// InitSchema ensures the collection exists
func (a *TypesenseAdapter) InitSchema(ctx context.Context) error {
	if _, err := a.client.Client().Collection(collectionName).Retrieve(ctx); err == nil {
		return nil
	}

	schema := &api.CollectionSchema{
		Name: collectionName,
		Fields: []api.Field{
			{Name: "id", Type: "string"},
			{Name: "name", Type: "string"},
			{Name: "category", Type: "string", Facet: pointer.True()},
			{Name: "address", Type: "string", Optional: pointer.True()},
			{Name: "location", Type: "geopoint"},
			{Name: "rating", Type: "float"},
			{Name: "services", Type: "string[]", Optional: pointer.True()},
			{Name: "contact_numbers", Type: "string[]", Optional: pointer.True()},
			{Name: "is_verified", Type: "bool"},
			{Name: "is_24_hours", Type: "bool"},
			{Name: "created_at", Type: "int64"},
		},
		DefaultSortingField: pointer.String("created_at"),
	}

	if _, err := a.client.Client().Collections().Create(ctx, schema); err != nil {
		return fmt.Errorf("failed to create typesense collection: %w", err)
	}
	log.Info().Str("collection", collectionName).Msg("created typesense collection")
	return nil
}

// Index upserts a resource document
func (a *TypesenseAdapter) Index(ctx context.Context, resource *entities.Resource) error {
	if _, err := a.client.Client().Collection(collectionName).Documents().Upsert(ctx, resourceDocument(resource)); err != nil {
		return fmt.Errorf("failed to index resource %s: %w", resource.ID, err)
	}
	return nil
}

// Delete removes a resource from the index
func (a *TypesenseAdapter) Delete(ctx context.Context, id string) error {
	if _, err := a.client.Client().Collection(collectionName).Document(id).Delete(ctx); err != nil {
		return fmt.Errorf("failed to delete resource from index: %w", err)
	}
	return nil
}

// Search returns resources within the radius, nearest first
func (a *TypesenseAdapter) Search(ctx context.Context, params providers.ResourceSearchParams) ([]*entities.Resource, error) {
	limit := params.Limit
	if limit <= 0 {
		limit = 15
	}

	searchParams := &api.SearchCollectionParams{
		Q:        pointer.String("*"),
		QueryBy:  pointer.String("name"),
		FilterBy: pointer.String(buildFilter(params)),
		SortBy:   pointer.String(fmt.Sprintf("location(%f, %f):asc", params.Center.Lat(), params.Center.Lng())),
		PerPage:  pointer.Int(limit),
	}

	result, err := a.client.Client().Collection(collectionName).Documents().Search(ctx, searchParams)
	if err != nil {
		return nil, fmt.Errorf("failed to search resources: %w", err)
	}

	resources := []*entities.Resource{}
	if result.Hits == nil {
		return resources, nil
	}
	for _, hit := range *result.Hits {
		if hit.Document == nil {
			continue
		}
		if resource := documentToResource(*hit.Document); resource != nil {
			resources = append(resources, resource)
		}
	}
	return resources, nil
}

func buildFilter(params providers.ResourceSearchParams) string {
	filters := []string{
		fmt.Sprintf("location:(%f, %f, %f km)", params.Center.Lat(), params.Center.Lng(), params.RadiusKm),
	}
	if params.Category != "" {
		filters = append(filters, fmt.Sprintf("category:=%s", params.Category))
	}
	return strings.Join(filters, " && ")
}

func resourceDocument(r *entities.Resource) map[string]interface{} {
	return map[string]interface{}{
		"id":              r.ID,
		"name":            r.Name,
		"category":        string(r.Category),
		"address":         r.Address,
		"location":        []float64{r.Location.Lat(), r.Location.Lng()},
		"rating":          r.Rating,
		"services":        nonNilStrings(r.Services),
		"contact_numbers": nonNilStrings(r.ContactNumbers),
		"is_verified":     r.IsVerified,
		"is_24_hours":     r.OperatingHours.Is24Hours,
		"created_at":      r.CreatedAt.Unix(),
	}
}

// documentToResource rebuilds the indexed subset of a resource. Documents
// missing an id or location are skipped.
func documentToResource(doc map[string]interface{}) *entities.Resource {
	id, _ := doc["id"].(string)
	loc, ok := doc["location"].([]interface{})
	if id == "" || !ok || len(loc) != 2 {
		return nil
	}
	lat, latOK := loc[0].(float64)
	lng, lngOK := loc[1].(float64)
	if !latOK || !lngOK {
		return nil
	}

	resource := &entities.Resource{
		ID:       id,
		Location: entities.NewGeoPoint(lat, lng),
	}
	resource.Name, _ = doc["name"].(string)
	resource.Address, _ = doc["address"].(string)
	resource.Rating, _ = doc["rating"].(float64)
	resource.IsVerified, _ = doc["is_verified"].(bool)
	resource.OperatingHours.Is24Hours, _ = doc["is_24_hours"].(bool)
	if category, ok := doc["category"].(string); ok {
		resource.Category = entities.ResourceCategory(category)
	}
	resource.Services = stringSlice(doc["services"])
	resource.ContactNumbers = stringSlice(doc["contact_numbers"])
	return resource
}

func stringSlice(v interface{}) []string {
	raw, ok := v.([]interface{})
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func nonNilStrings(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
