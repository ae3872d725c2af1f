package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"

	"github.com/jeevanpath/backend/internal/domain/entities"
	"github.com/jeevanpath/backend/internal/domain/repositories"
	"github.com/jeevanpath/backend/internal/infrastructure/clients/postgres"
	apperrors "github.com/jeevanpath/backend/pkg/errors"
)

const alertsTable = "user_emergency_alerts"

var alertColumns = []interface{}{
	"id", "emergency_id", "requester_id", "provider_user_id", "emergency_type", "urgency_level",
	"requester_name", "requester_phone",
	goqu.L("ST_AsGeoJSON(requester_location)::text").As("requester_location"),
	"resource_id", "resource_name", "resource_distance", "message", "status", "is_read",
	"viewed_at", "acknowledged_at", "estimated_arrival", "response_message", "can_respond",
	"call_delivered", "sms_delivered", "expires_at", "created_at", "updated_at",
}

// AlertAdapter implements AlertRepository
type AlertAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

// NewAlertAdapter creates a new alert adapter
func NewAlertAdapter(client *postgres.Client) repositories.AlertRepository {
	return &AlertAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

// CreateBatch inserts every alert of a dispatch pass in one transaction
func (a *AlertAdapter) CreateBatch(ctx context.Context, alerts []*entities.UserEmergencyAlert) error {
	if len(alerts) == 0 {
		return nil
	}

	rows := make([]interface{}, 0, len(alerts))
	for _, alert := range alerts {
		rows = append(rows, goqu.Record{
			"id":                 alert.ID,
			"emergency_id":       alert.EmergencyID,
			"requester_id":       alert.RequesterID,
			"provider_user_id":   alert.ProviderUserID,
			"emergency_type":     string(alert.EmergencyType),
			"urgency_level":      string(alert.UrgencyLevel),
			"requester_name":     alert.Requester.Name,
			"requester_phone":    alert.Requester.Phone,
			"requester_location": geographyFromPoint(alert.Requester.Location),
			"resource_id":        alert.Resource.ID,
			"resource_name":      alert.Resource.Name,
			"resource_distance":  alert.Resource.DistanceKm,
			"message":            alert.Message,
			"status":             string(alert.Status),
			"is_read":            alert.IsRead,
			"call_delivered":     alert.Delivery.CallDelivered,
			"sms_delivered":      alert.Delivery.SMSDelivered,
			"expires_at":         alert.ExpiresAt,
			"created_at":         alert.CreatedAt,
			"updated_at":         alert.UpdatedAt,
		})
	}

	query, args, err := a.db.Insert(alertsTable).Prepared(true).Rows(rows...).ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build insert query", err)
	}

	err = a.client.WithTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, query, args...)
		return err
	})
	if err != nil {
		return apperrors.NewInternalError("failed to create alerts", err)
	}
	return nil
}

// GetByID retrieves an alert by ID
func (a *AlertAdapter) GetByID(ctx context.Context, id string) (*entities.UserEmergencyAlert, error) {
	query, args, err := a.db.From(alertsTable).Prepared(true).
		Select(alertColumns...).
		Where(goqu.Ex{"id": id}).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	alert, err := scanAlert(a.client.DB().QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("alert with id %s not found", id))
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to get alert", err)
	}
	return alert, nil
}

// UpdateResponse saves the provider-side state of the alert
func (a *AlertAdapter) UpdateResponse(ctx context.Context, alert *entities.UserEmergencyAlert) error {
	record := goqu.Record{
		"status":            string(alert.Status),
		"is_read":           alert.IsRead,
		"viewed_at":         nullTime(alert.Response.ViewedAt),
		"acknowledged_at":   nullTime(alert.Response.AcknowledgedAt),
		"estimated_arrival": alert.Response.EstimatedArrival,
		"response_message":  alert.Response.ResponseMessage,
		"can_respond":       nullBool(alert.Response.CanRespond),
		"updated_at":        alert.UpdatedAt,
	}
	return a.update(ctx, alert.ID, record, "failed to update alert")
}

// RecordDelivery saves the call and SMS outcome
func (a *AlertAdapter) RecordDelivery(ctx context.Context, alertID string, outcome entities.DeliveryOutcome) error {
	record := goqu.Record{
		"call_delivered": outcome.CallDelivered,
		"sms_delivered":  outcome.SMSDelivered,
		"updated_at":     time.Now().UTC(),
	}
	return a.update(ctx, alertID, record, "failed to record delivery")
}

func (a *AlertAdapter) update(ctx context.Context, id string, record goqu.Record, failure string) error {
	query, args, err := a.db.Update(alertsTable).Prepared(true).
		Set(record).
		Where(goqu.Ex{"id": id}).
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build update query", err)
	}

	result, err := a.client.DB().ExecContext(ctx, query, args...)
	if err != nil {
		return apperrors.NewInternalError(failure, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return apperrors.NewInternalError("failed to get rows affected", err)
	}
	if rowsAffected == 0 {
		return apperrors.NewNotFoundError(fmt.Sprintf("alert with id %s not found", id))
	}
	return nil
}

// ListByProvider returns unexpired alerts for a provider, newest first
func (a *AlertAdapter) ListByProvider(ctx context.Context, filter repositories.AlertFilter) ([]*entities.UserEmergencyAlert, error) {
	ds := a.db.From(alertsTable).Prepared(true).
		Select(alertColumns...).
		Where(providerWhere(filter)).
		Order(goqu.I("created_at").Desc())
	if filter.Status != "" {
		ds = ds.Where(goqu.Ex{"status": string(filter.Status)})
	}
	if filter.Limit > 0 {
		ds = ds.Limit(uint(filter.Limit))
	}

	query, args, err := ds.ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	rows, err := a.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to list alerts", err)
	}
	defer rows.Close()

	alerts := []*entities.UserEmergencyAlert{}
	for rows.Next() {
		alert, err := scanAlert(rows)
		if err != nil {
			return nil, apperrors.NewInternalError("failed to scan alert", err)
		}
		alerts = append(alerts, alert)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewInternalError("failed to list alerts", err)
	}
	return alerts, nil
}

// CountByProvider counts all and unread unexpired alerts
func (a *AlertAdapter) CountByProvider(ctx context.Context, filter repositories.AlertFilter) (repositories.AlertCounts, error) {
	query, args, err := a.db.From(alertsTable).Prepared(true).
		Select(
			goqu.COUNT(goqu.Star()).As("total"),
			goqu.L("COUNT(*) FILTER (WHERE NOT is_read)").As("unread"),
		).
		Where(providerWhere(filter)).
		ToSQL()
	if err != nil {
		return repositories.AlertCounts{}, apperrors.NewInternalError("failed to build query", err)
	}

	var counts repositories.AlertCounts
	if err := a.client.DB().QueryRowContext(ctx, query, args...).Scan(&counts.Total, &counts.Unread); err != nil {
		return repositories.AlertCounts{}, apperrors.NewInternalError("failed to count alerts", err)
	}
	return counts, nil
}

// DeleteExpired removes alerts past their expiry
func (a *AlertAdapter) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	query, args, err := a.db.Delete(alertsTable).Prepared(true).
		Where(goqu.C("expires_at").Lte(now)).
		ToSQL()
	if err != nil {
		return 0, apperrors.NewInternalError("failed to build delete query", err)
	}

	result, err := a.client.DB().ExecContext(ctx, query, args...)
	if err != nil {
		return 0, apperrors.NewInternalError("failed to delete expired alerts", err)
	}
	return result.RowsAffected()
}

func providerWhere(filter repositories.AlertFilter) goqu.Ex {
	now := filter.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}
	return goqu.Ex{
		"provider_user_id": filter.ProviderUserID,
		"expires_at":       goqu.Op{"gt": now},
	}
}

func scanAlert(row rowScanner) (*entities.UserEmergencyAlert, error) {
	al := &entities.UserEmergencyAlert{}
	var emergencyType, urgency, status string
	var viewedAt, acknowledgedAt sql.NullTime
	var canRespond sql.NullBool

	err := row.Scan(
		&al.ID,
		&al.EmergencyID,
		&al.RequesterID,
		&al.ProviderUserID,
		&emergencyType,
		&urgency,
		&al.Requester.Name,
		&al.Requester.Phone,
		&al.Requester.Location,
		&al.Resource.ID,
		&al.Resource.Name,
		&al.Resource.DistanceKm,
		&al.Message,
		&status,
		&al.IsRead,
		&viewedAt,
		&acknowledgedAt,
		&al.Response.EstimatedArrival,
		&al.Response.ResponseMessage,
		&canRespond,
		&al.Delivery.CallDelivered,
		&al.Delivery.SMSDelivered,
		&al.ExpiresAt,
		&al.CreatedAt,
		&al.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	al.EmergencyType = entities.EmergencyType(emergencyType)
	al.UrgencyLevel = entities.UrgencyLevel(urgency)
	al.Status = entities.AlertStatus(status)
	if viewedAt.Valid {
		t := viewedAt.Time
		al.Response.ViewedAt = &t
	}
	if acknowledgedAt.Valid {
		t := acknowledgedAt.Time
		al.Response.AcknowledgedAt = &t
	}
	if canRespond.Valid {
		b := canRespond.Bool
		al.Response.CanRespond = &b
	}
	return al, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func nullBool(b *bool) sql.NullBool {
	if b == nil {
		return sql.NullBool{}
	}
	return sql.NullBool{Bool: *b, Valid: true}
}
