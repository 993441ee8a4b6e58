package db

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/ironbeam/crewdeck/internal/models"
)

// Notification methods

// CreateNotification inserts an in-app notification.
func (db *DB) CreateNotification(ctx context.Context, n *models.Notification) error {
	_, err := db.Pool.Exec(ctx, `
		INSERT INTO notifications (id, org_id, user_id, event_type, payload, read_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, n.ID, n.OrgID, n.UserID, string(n.EventType), n.Payload, n.ReadAt, n.CreatedAt)
	if err != nil {
		return fmt.Errorf("create notification: %w", err)
	}
	return nil
}

// ListNotifications returns a user's notifications, newest first.
func (db *DB) ListNotifications(ctx context.Context, userID uuid.UUID, unreadOnly bool, limit int) ([]*models.Notification, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `
		SELECT id, org_id, user_id, event_type, payload, read_at, created_at
		FROM notifications
		WHERE user_id = $1`
	if unreadOnly {
		query += ` AND read_at IS NULL`
	}
	query += ` ORDER BY created_at DESC LIMIT $2`

	rows, err := db.Pool.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()

	var notifications []*models.Notification
	for rows.Next() {
		var n models.Notification
		var eventTypeStr string
		err := rows.Scan(&n.ID, &n.OrgID, &n.UserID, &eventTypeStr, &n.Payload, &n.ReadAt, &n.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		n.EventType = models.NotificationEventType(eventTypeStr)
		notifications = append(notifications, &n)
	}
	return notifications, rows.Err()
}

// MarkNotificationRead stamps read_at on a user's notification. Already-read
// notifications and notifications of other users are left untouched.
func (db *DB) MarkNotificationRead(ctx context.Context, id, userID uuid.UUID) error {
	_, err := db.Pool.Exec(ctx, `
		UPDATE notifications SET read_at = $3 WHERE id = $1 AND user_id = $2 AND read_at IS NULL
	`, id, userID, time.Now())
	if err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}
	return nil
}
