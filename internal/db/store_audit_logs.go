package db

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/ironbeam/crewdeck/internal/models"
)

// Audit log methods

// CreateAuditLog inserts an audit log entry.
func (db *DB) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	_, err := db.Pool.Exec(ctx, `
		INSERT INTO audit_logs (id, org_id, actor_id, action, entity_type, entity_id, metadata, ip_address, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, log.ID, log.OrgID, log.ActorID, string(log.Action), log.EntityType, log.EntityID,
		log.Metadata, log.IPAddress, log.CreatedAt)
	if err != nil {
		return fmt.Errorf("create audit log: %w", err)
	}
	return nil
}

// ListAuditLogs returns the most recent audit entries for an organization.
func (db *DB) ListAuditLogs(ctx context.Context, orgID uuid.UUID, limit int) ([]*models.AuditLog, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := db.Pool.Query(ctx, `
		SELECT id, org_id, actor_id, action, entity_type, entity_id, metadata, ip_address, created_at
		FROM audit_logs
		WHERE org_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, orgID, limit)
	if err != nil {
		return nil, fmt.Errorf("list audit logs: %w", err)
	}
	defer rows.Close()

	var logs []*models.AuditLog
	for rows.Next() {
		var l models.AuditLog
		var actionStr string
		err := rows.Scan(&l.ID, &l.OrgID, &l.ActorID, &actionStr, &l.EntityType,
			&l.EntityID, &l.Metadata, &l.IPAddress, &l.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan audit log: %w", err)
		}
		l.Action = models.AuditAction(actionStr)
		logs = append(logs, &l)
	}
	return logs, rows.Err()
}

// DeleteAuditLogsBefore removes audit entries older than the cutoff.
// Used by the retention sweep.
func (db *DB) DeleteAuditLogsBefore(ctx context.Context, cutoff time.Time) (int, error) {
	tag, err := db.Pool.Exec(ctx, `
		DELETE FROM audit_logs WHERE created_at < $1
	`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete audit logs: %w", err)
	}
	return int(tag.RowsAffected()), nil
}
