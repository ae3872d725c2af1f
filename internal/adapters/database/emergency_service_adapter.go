package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/doug-martin/goqu/v9"
	"github.com/lib/pq"

	"github.com/jeevanpath/backend/internal/domain/entities"
	"github.com/jeevanpath/backend/internal/domain/repositories"
	"github.com/jeevanpath/backend/internal/infrastructure/clients/postgres"
	apperrors "github.com/jeevanpath/backend/pkg/errors"
)

const emergencyServicesTable = "emergency_services"

// EmergencyServiceAdapter implements EmergencyServiceRepository
type EmergencyServiceAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

// NewEmergencyServiceAdapter creates a new emergency service adapter
func NewEmergencyServiceAdapter(client *postgres.Client) repositories.EmergencyServiceRepository {
	return &EmergencyServiceAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

// GetByUserID retrieves the record for a user
func (a *EmergencyServiceAdapter) GetByUserID(ctx context.Context, userID string) (*entities.EmergencyService, error) {
	query, args, err := a.db.From(emergencyServicesTable).Prepared(true).
		Select(
			"id", "user_id", "is_enabled", "max_distance_km",
			goqu.L("ST_AsGeoJSON(last_known_location)::text").As("last_known_location"),
			"emergency_types", "last_updated", "created_at",
		).
		Where(goqu.Ex{"user_id": userID}).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	svc := &entities.EmergencyService{}
	var types []string
	err = a.client.DB().QueryRowContext(ctx, query, args...).Scan(
		&svc.ID,
		&svc.UserID,
		&svc.IsEnabled,
		&svc.MaxDistanceKm,
		&svc.LastKnownLocation,
		pq.Array(&types),
		&svc.LastUpdated,
		&svc.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("emergency service for user %s not found", userID))
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to get emergency service", err)
	}

	svc.EmergencyTypes = make([]entities.EmergencyType, len(types))
	for i, t := range types {
		svc.EmergencyTypes[i] = entities.EmergencyType(t)
	}
	return svc, nil
}

// Upsert inserts or replaces the record keyed by user id. The stored id and
// creation time are written back to service.
func (a *EmergencyServiceAdapter) Upsert(ctx context.Context, service *entities.EmergencyService) error {
	if service.ID == "" || service.UserID == "" {
		return apperrors.NewInternalError("emergency service requires id and user id", nil)
	}

	var location interface{}
	if service.LastKnownLocation != nil {
		location = geographyFromPoint(*service.LastKnownLocation)
	}

	record := goqu.Record{
		"id":                  service.ID,
		"user_id":             service.UserID,
		"is_enabled":          service.IsEnabled,
		"max_distance_km":     service.MaxDistanceKm,
		"last_known_location": location,
		"emergency_types":     pq.Array(service.EmergencyTypeStrings()),
		"last_updated":        service.LastUpdated,
		"created_at":          service.CreatedAt,
	}

	query, args, err := a.db.Insert(emergencyServicesTable).Prepared(true).
		Rows(record).
		OnConflict(goqu.DoUpdate("user_id", goqu.Record{
			"is_enabled":          goqu.L("EXCLUDED.is_enabled"),
			"max_distance_km":     goqu.L("EXCLUDED.max_distance_km"),
			"last_known_location": goqu.L("COALESCE(EXCLUDED.last_known_location, emergency_services.last_known_location)"),
			"emergency_types":     goqu.L("EXCLUDED.emergency_types"),
			"last_updated":        goqu.L("EXCLUDED.last_updated"),
		})).
		Returning("id", "created_at").
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build upsert query", err)
	}

	if err := a.client.DB().QueryRowContext(ctx, query, args...).Scan(&service.ID, &service.CreatedAt); err != nil {
		return apperrors.NewInternalError("failed to save emergency service", err)
	}
	return nil
}
