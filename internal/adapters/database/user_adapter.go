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

const usersTable = "users"

// foreignKeyViolation is the Postgres SQLSTATE for a broken foreign key
const foreignKeyViolation = "23503"

var userColumns = []interface{}{
	"id", "external_id", "name", "phone", "email", "is_service_provider",
	"assigned_resource_id", "emergency_notifications_enabled", "role",
	"is_active", "language", "created_at", "updated_at",
}

// UserAdapter implements UserRepository
type UserAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

// NewUserAdapter creates a new user adapter
func NewUserAdapter(client *postgres.Client) repositories.UserRepository {
	return &UserAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

// Create creates a new user
func (a *UserAdapter) Create(ctx context.Context, user *entities.User) error {
	record := goqu.Record{
		"id":                              user.ID,
		"external_id":                     sql.NullString{String: user.ExternalID, Valid: user.ExternalID != ""},
		"name":                            user.Name,
		"phone":                           user.Phone,
		"email":                           user.Email,
		"is_service_provider":             user.IsServiceProvider,
		"assigned_resource_id":            nullableString(user.AssignedResourceID),
		"emergency_notifications_enabled": user.EmergencyNotificationsEnabled,
		"role":                            string(user.Role),
		"is_active":                       user.IsActive,
		"language":                        user.Language,
		"created_at":                      user.CreatedAt,
		"updated_at":                      user.UpdatedAt,
	}

	query, args, err := a.db.Insert(usersTable).Prepared(true).Rows(record).ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build insert query", err)
	}

	if _, err := a.client.DB().ExecContext(ctx, query, args...); err != nil {
		if isForeignKeyViolation(err) {
			return apperrors.NewNotFoundError("assigned resource does not exist")
		}
		return apperrors.NewInternalError("failed to create user", err)
	}
	return nil
}

// GetByID retrieves a user by ID
func (a *UserAdapter) GetByID(ctx context.Context, id string) (*entities.User, error) {
	return a.getOne(ctx, a.db.From(usersTable).Where(goqu.Ex{"id": id}), id)
}

// FindByPhone retrieves a user by phone number
func (a *UserAdapter) FindByPhone(ctx context.Context, phone string) (*entities.User, error) {
	ds := a.db.From(usersTable).
		Where(goqu.Ex{"phone": phone}).
		Order(goqu.I("created_at").Asc())
	return a.getOne(ctx, ds, phone)
}

// FindByIdentifier matches id first, then external id, then phone
func (a *UserAdapter) FindByIdentifier(ctx context.Context, identifier string) (*entities.User, error) {
	ds := a.db.From(usersTable).
		Where(goqu.Or(
			goqu.Ex{"id": identifier},
			goqu.Ex{"external_id": identifier},
			goqu.Ex{"phone": identifier},
		)).
		Order(goqu.L("CASE WHEN id = ? THEN 0 WHEN external_id = ? THEN 1 ELSE 2 END", identifier, identifier).Asc())
	return a.getOne(ctx, ds, identifier)
}

// ListProvidersForResources returns eligible providers attached to the resources
func (a *UserAdapter) ListProvidersForResources(ctx context.Context, resourceIDs []string) ([]*entities.User, error) {
	if len(resourceIDs) == 0 {
		return []*entities.User{}, nil
	}

	query, args, err := a.db.From(usersTable).Prepared(true).
		Select(userColumns...).
		Where(goqu.Ex{
			"assigned_resource_id":            resourceIDs,
			"is_service_provider":             true,
			"emergency_notifications_enabled": true,
			"is_active":                       true,
		}).
		Order(goqu.I("created_at").Asc(), goqu.I("id").Asc()).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	rows, err := a.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to list providers", err)
	}
	defer rows.Close()

	users := []*entities.User{}
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, apperrors.NewInternalError("failed to scan user", err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewInternalError("failed to list providers", err)
	}
	return users, nil
}

// AssignResource attaches the user to an existing resource
func (a *UserAdapter) AssignResource(ctx context.Context, userID, resourceID string) error {
	existsQuery, existsArgs, err := a.db.From(resourcesTable).Prepared(true).
		Select(goqu.L("1")).
		Where(goqu.Ex{"id": resourceID}).
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build query", err)
	}

	var one int
	err = a.client.DB().QueryRowContext(ctx, existsQuery, existsArgs...).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return apperrors.NewNotFoundError(fmt.Sprintf("resource with id %s not found", resourceID))
	}
	if err != nil {
		return apperrors.NewInternalError("failed to check resource", err)
	}

	query, args, err := a.db.Update(usersTable).Prepared(true).
		Set(goqu.Record{
			"assigned_resource_id": resourceID,
			"updated_at":           goqu.L("NOW()"),
		}).
		Where(goqu.Ex{"id": userID}).
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build update query", err)
	}

	result, err := a.client.DB().ExecContext(ctx, query, args...)
	if err != nil {
		if isForeignKeyViolation(err) {
			return apperrors.NewNotFoundError(fmt.Sprintf("resource with id %s not found", resourceID))
		}
		return apperrors.NewInternalError("failed to assign resource", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return apperrors.NewInternalError("failed to get rows affected", err)
	}
	if rowsAffected == 0 {
		return apperrors.NewNotFoundError(fmt.Sprintf("user with id %s not found", userID))
	}
	return nil
}

func (a *UserAdapter) getOne(ctx context.Context, ds *goqu.SelectDataset, identifier string) (*entities.User, error) {
	query, args, err := ds.Prepared(true).Select(userColumns...).Limit(1).ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	user, err := scanUser(a.client.DB().QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("user %s not found", identifier))
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to get user", err)
	}
	return user, nil
}

func scanUser(row rowScanner) (*entities.User, error) {
	u := &entities.User{}
	var externalID, assigned sql.NullString
	var role string

	err := row.Scan(
		&u.ID,
		&externalID,
		&u.Name,
		&u.Phone,
		&u.Email,
		&u.IsServiceProvider,
		&assigned,
		&u.EmergencyNotificationsEnabled,
		&role,
		&u.IsActive,
		&u.Language,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	u.ExternalID = externalID.String
	u.Role = entities.UserRole(role)
	if assigned.Valid {
		id := assigned.String
		u.AssignedResourceID = &id
	}
	return u, nil
}

func isForeignKeyViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && string(pqErr.Code) == foreignKeyViolation
}

func nullableString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
