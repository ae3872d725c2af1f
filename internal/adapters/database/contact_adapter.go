package database

import (
	"context"
	"fmt"

	"github.com/doug-martin/goqu/v9"

	"github.com/jeevanpath/backend/internal/domain/entities"
	"github.com/jeevanpath/backend/internal/domain/repositories"
	"github.com/jeevanpath/backend/internal/infrastructure/clients/postgres"
	apperrors "github.com/jeevanpath/backend/pkg/errors"
)

const contactsTable = "emergency_contacts"

// ContactAdapter implements ContactRepository
type ContactAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

// NewContactAdapter creates a new contact adapter
func NewContactAdapter(client *postgres.Client) repositories.ContactRepository {
	return &ContactAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

// Create stores a contact
func (a *ContactAdapter) Create(ctx context.Context, contact *entities.EmergencyContact) error {
	query, args, err := a.db.Insert(contactsTable).Prepared(true).Rows(goqu.Record{
		"id":           contact.ID,
		"user_id":      contact.UserID,
		"name":         contact.Name,
		"phone":        contact.Phone,
		"relationship": contact.Relationship,
		"is_primary":   contact.IsPrimary,
		"created_at":   contact.CreatedAt,
	}).ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build insert query", err)
	}

	if _, err := a.client.DB().ExecContext(ctx, query, args...); err != nil {
		return apperrors.NewInternalError("failed to create contact", err)
	}
	return nil
}

// ListByUser returns a user's contacts, primary first
func (a *ContactAdapter) ListByUser(ctx context.Context, userID string) ([]*entities.EmergencyContact, error) {
	var contacts []*entities.EmergencyContact
	err := a.db.From(contactsTable).Prepared(true).
		Where(goqu.Ex{"user_id": userID}).
		Order(goqu.I("is_primary").Desc(), goqu.I("created_at").Asc()).
		ScanStructsContext(ctx, &contacts)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to list contacts", err)
	}
	if contacts == nil {
		contacts = []*entities.EmergencyContact{}
	}
	return contacts, nil
}

// Delete removes a contact
func (a *ContactAdapter) Delete(ctx context.Context, id string) error {
	query, args, err := a.db.Delete(contactsTable).Prepared(true).
		Where(goqu.Ex{"id": id}).
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build delete query", err)
	}

	result, err := a.client.DB().ExecContext(ctx, query, args...)
	if err != nil {
		return apperrors.NewInternalError("failed to delete contact", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return apperrors.NewInternalError("failed to get rows affected", err)
	}
	if rowsAffected == 0 {
		return apperrors.NewNotFoundError(fmt.Sprintf("contact with id %s not found", id))
	}
	return nil
}
