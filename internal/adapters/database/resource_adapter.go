package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	"github.com/doug-martin/goqu/v9/exp"
	"github.com/lib/pq"

	"github.com/jeevanpath/backend/internal/domain/entities"
	"github.com/jeevanpath/backend/internal/domain/repositories"
	"github.com/jeevanpath/backend/internal/infrastructure/clients/postgres"
	apperrors "github.com/jeevanpath/backend/pkg/errors"
)

const resourcesTable = "resources"

var resourceColumns = []interface{}{
	"id", "name", "category", "address", "contact_numbers",
	goqu.L("ST_AsGeoJSON(location)::text").As("location"),
	"operating_hours", "rating", "services", "accessibility",
	"is_verified", "created_at", "updated_at",
}

// ResourceAdapter implements ResourceRepository on PostGIS
type ResourceAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

// NewResourceAdapter creates a new resource adapter
func NewResourceAdapter(client *postgres.Client) repositories.ResourceRepository {
	return &ResourceAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

// geographyFromPoint renders a GeoJSON point as a geography value
func geographyFromPoint(p entities.GeoPoint) exp.LiteralExpression {
	return goqu.L("ST_SetSRID(ST_GeomFromGeoJSON(?), 4326)::geography", p.GeoJSON())
}

// Create creates a new resource
func (a *ResourceAdapter) Create(ctx context.Context, resource *entities.Resource) error {
	hours, err := json.Marshal(resource.OperatingHours)
	if err != nil {
		return apperrors.NewInternalError("failed to encode operating hours", err)
	}
	access, err := json.Marshal(resource.Accessibility)
	if err != nil {
		return apperrors.NewInternalError("failed to encode accessibility", err)
	}

	record := goqu.Record{
		"id":              resource.ID,
		"name":            resource.Name,
		"category":        string(resource.Category),
		"address":         resource.Address,
		"contact_numbers": pq.Array(nonNil(resource.ContactNumbers)),
		"location":        geographyFromPoint(resource.Location),
		"operating_hours": string(hours),
		"rating":          resource.Rating,
		"services":        pq.Array(nonNil(resource.Services)),
		"accessibility":   string(access),
		"is_verified":     resource.IsVerified,
		"created_at":      resource.CreatedAt,
		"updated_at":      resource.UpdatedAt,
	}

	query, args, err := a.db.Insert(resourcesTable).Prepared(true).Rows(record).ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build insert query", err)
	}

	if _, err := a.client.DB().ExecContext(ctx, query, args...); err != nil {
		return apperrors.NewInternalError("failed to create resource", err)
	}
	return nil
}

// GetByID retrieves a resource by ID
func (a *ResourceAdapter) GetByID(ctx context.Context, id string) (*entities.Resource, error) {
	query, args, err := a.db.From(resourcesTable).Prepared(true).
		Select(resourceColumns...).
		Where(goqu.Ex{"id": id}).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	resource, err := scanResource(a.client.DB().QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("resource with id %s not found", id))
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to get resource", err)
	}
	return resource, nil
}

// GetByIDs retrieves multiple resources by their IDs
func (a *ResourceAdapter) GetByIDs(ctx context.Context, ids []string) ([]*entities.Resource, error) {
	if len(ids) == 0 {
		return []*entities.Resource{}, nil
	}

	ds := a.db.From(resourcesTable).Prepared(true).
		Select(resourceColumns...).
		Where(goqu.Ex{"id": ids})
	return a.query(ctx, ds, "failed to get resources by ids")
}

// FindNear returns resources within the radius ordered nearest first
func (a *ResourceAdapter) FindNear(ctx context.Context, q repositories.NearQuery) ([]*entities.Resource, error) {
	center := goqu.L("ST_SetSRID(ST_MakePoint(?, ?), 4326)::geography", q.Center.Lng(), q.Center.Lat())

	ds := a.db.From(resourcesTable).Prepared(true).
		Select(resourceColumns...).
		Where(goqu.L("ST_DWithin(location, ?, ?)", center, q.RadiusMeters)).
		Order(goqu.L("ST_Distance(location, ?)", center).Asc())
	if q.Category != "" {
		ds = ds.Where(goqu.Ex{"category": string(q.Category)})
	}
	if q.Limit > 0 {
		ds = ds.Limit(uint(q.Limit))
	}

	return a.query(ctx, ds, "failed to find nearby resources")
}

// List pages through resources
func (a *ResourceAdapter) List(ctx context.Context, limit, offset int) ([]*entities.Resource, error) {
	ds := a.db.From(resourcesTable).Prepared(true).
		Select(resourceColumns...).
		Order(goqu.I("created_at").Asc(), goqu.I("id").Asc()).
		Limit(uint(limit)).
		Offset(uint(offset))
	return a.query(ctx, ds, "failed to list resources")
}

func (a *ResourceAdapter) query(ctx context.Context, ds *goqu.SelectDataset, failure string) ([]*entities.Resource, error) {
	query, args, err := ds.ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	rows, err := a.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewInternalError(failure, err)
	}
	defer rows.Close()

	resources := []*entities.Resource{}
	for rows.Next() {
		resource, err := scanResource(rows)
		if err != nil {
			return nil, apperrors.NewInternalError("failed to scan resource", err)
		}
		resources = append(resources, resource)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewInternalError(failure, err)
	}
	return resources, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanResource(row rowScanner) (*entities.Resource, error) {
	r := &entities.Resource{}
	var category string
	var hours, access []byte

	err := row.Scan(
		&r.ID,
		&r.Name,
		&category,
		&r.Address,
		pq.Array(&r.ContactNumbers),
		&r.Location,
		&hours,
		&r.Rating,
		pq.Array(&r.Services),
		&access,
		&r.IsVerified,
		&r.CreatedAt,
		&r.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	r.Category = entities.ResourceCategory(category)
	if len(hours) > 0 {
		if err := json.Unmarshal(hours, &r.OperatingHours); err != nil {
			return nil, fmt.Errorf("invalid operating_hours: %w", err)
		}
	}
	if len(access) > 0 {
		if err := json.Unmarshal(access, &r.Accessibility); err != nil {
			return nil, fmt.Errorf("invalid accessibility: %w", err)
		}
	}
	return r, nil
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
