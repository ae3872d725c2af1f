package database

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/jeevanpath/backend/internal/domain/entities"
	"github.com/jeevanpath/backend/internal/domain/repositories"
	apperrors "github.com/jeevanpath/backend/pkg/errors"
)

// notificationRow mirrors emergency_notifications for sqlx scanning
type notificationRow struct {
	ID        string    `db:"id"`
	UserID    string    `db:"user_id"`
	Type      string    `db:"type"`
	Title     string    `db:"title"`
	Message   string    `db:"message"`
	Data      []byte    `db:"data"`
	Priority  string    `db:"priority"`
	IsRead    bool      `db:"is_read"`
	ExpiresAt time.Time `db:"expires_at"`
	CreatedAt time.Time `db:"created_at"`
}

func (r notificationRow) toEntity() (*entities.EmergencyNotification, error) {
	n := &entities.EmergencyNotification{
		ID:        r.ID,
		UserID:    r.UserID,
		Type:      entities.NotificationType(r.Type),
		Title:     r.Title,
		Message:   r.Message,
		Priority:  entities.NotificationPriority(r.Priority),
		IsRead:    r.IsRead,
		ExpiresAt: r.ExpiresAt,
		CreatedAt: r.CreatedAt,
	}
	if len(r.Data) > 0 {
		if err := json.Unmarshal(r.Data, &n.Data); err != nil {
			return nil, fmt.Errorf("invalid notification data: %w", err)
		}
	}
	return n, nil
}

// NotificationAdapter implements NotificationRepository using sqlx
type NotificationAdapter struct {
	db *sqlx.DB
}

// NewNotificationAdapter creates a new notification adapter
func NewNotificationAdapter(db *sqlx.DB) repositories.NotificationRepository {
	return &NotificationAdapter{db: db}
}

// Create stores a notification
func (a *NotificationAdapter) Create(ctx context.Context, n *entities.EmergencyNotification) error {
	data := n.Data
	if data == nil {
		data = map[string]interface{}{}
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return apperrors.NewInternalError("failed to encode notification data", err)
	}

	row := notificationRow{
		ID:        n.ID,
		UserID:    n.UserID,
		Type:      string(n.Type),
		Title:     n.Title,
		Message:   n.Message,
		Data:      raw,
		Priority:  string(n.Priority),
		IsRead:    n.IsRead,
		ExpiresAt: n.ExpiresAt,
		CreatedAt: n.CreatedAt,
	}

	query := `
		INSERT INTO emergency_notifications (
			id, user_id, type, title, message, data, priority, is_read, expires_at, created_at
		) VALUES (
			:id, :user_id, :type, :title, :message, :data, :priority, :is_read, :expires_at, :created_at
		)
	`
	if _, err := a.db.NamedExecContext(ctx, query, row); err != nil {
		return apperrors.NewInternalError("failed to create notification", err)
	}
	return nil
}

// ListByUser returns the user's unexpired notifications
func (a *NotificationAdapter) ListByUser(ctx context.Context, userID string, unreadOnly bool, limit int) ([]*entities.EmergencyNotification, error) {
	query := `
		SELECT id, user_id, type, title, message, data, priority, is_read, expires_at, created_at
		FROM emergency_notifications
		WHERE user_id = ? AND expires_at > NOW()
	`
	args := []interface{}{userID}
	if unreadOnly {
		query += " AND is_read = false"
	}
	query += " ORDER BY created_at DESC LIMIT ?"
	args = append(args, limit)

	var rows []notificationRow
	if err := a.db.SelectContext(ctx, &rows, a.db.Rebind(query), args...); err != nil {
		return nil, apperrors.NewInternalError("failed to list notifications", err)
	}

	out := make([]*entities.EmergencyNotification, 0, len(rows))
	for _, r := range rows {
		n, err := r.toEntity()
		if err != nil {
			return nil, apperrors.NewInternalError("failed to decode notification", err)
		}
		out = append(out, n)
	}
	return out, nil
}

// MarkRead flags a notification as read
func (a *NotificationAdapter) MarkRead(ctx context.Context, id string) error {
	result, err := a.db.ExecContext(ctx, `UPDATE emergency_notifications SET is_read = true WHERE id = $1`, id)
	if err != nil {
		return apperrors.NewInternalError("failed to mark notification read", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return apperrors.NewInternalError("failed to get rows affected", err)
	}
	if rowsAffected == 0 {
		return apperrors.NewNotFoundError(fmt.Sprintf("notification with id %s not found", id))
	}
	return nil
}

// DeleteExpired removes notifications past their expiry
func (a *NotificationAdapter) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	result, err := a.db.ExecContext(ctx, `DELETE FROM emergency_notifications WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, apperrors.NewInternalError("failed to delete expired notifications", err)
	}
	return result.RowsAffected()
}
