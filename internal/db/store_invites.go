package db

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/ironbeam/crewdeck/internal/models"
)

// Invite methods

const inviteColumns = `id, org_id, person_id, user_id, email, role, token_hash, token_expires,
	status, resend_count, last_sent_at, invited_by, accepted_at, archived_at, created_at, updated_at`

func scanInvite(row interface{ Scan(...any) error }) (*models.Invite, error) {
	var inv models.Invite
	var roleStr, statusStr string
	err := row.Scan(
		&inv.ID, &inv.OrgID, &inv.PersonID, &inv.UserID, &inv.Email, &roleStr,
		&inv.TokenHash, &inv.TokenExpires, &statusStr, &inv.ResendCount,
		&inv.LastSentAt, &inv.InvitedBy, &inv.AcceptedAt, &inv.ArchivedAt,
		&inv.CreatedAt, &inv.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	inv.Role = models.OrgRole(roleStr)
	inv.Status = models.InviteStatus(statusStr)
	return &inv, nil
}

// CreateInvite inserts a new invitation. The partial unique index on
// (org_id, lower(email)) rejects a second active pending invite.
func (db *DB) CreateInvite(ctx context.Context, inv *models.Invite) error {
	_, err := db.Pool.Exec(ctx, `
		INSERT INTO invites (id, org_id, person_id, user_id, email, role, token_hash, token_expires,
			status, resend_count, last_sent_at, invited_by, accepted_at, archived_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`, inv.ID, inv.OrgID, inv.PersonID, inv.UserID, inv.Email, string(inv.Role),
		inv.TokenHash, inv.TokenExpires, string(inv.Status), inv.ResendCount,
		inv.LastSentAt, inv.InvitedBy, inv.AcceptedAt, inv.ArchivedAt, inv.CreatedAt, inv.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create invite: %w", err)
	}
	return nil
}

// GetInviteByID returns an invitation by its ID.
func (db *DB) GetInviteByID(ctx context.Context, id uuid.UUID) (*models.Invite, error) {
	inv, err := scanInvite(db.Pool.QueryRow(ctx, `
		SELECT `+inviteColumns+` FROM invites WHERE id = $1
	`, id))
	if err != nil {
		return nil, fmt.Errorf("get invite: %w", err)
	}
	return inv, nil
}

// GetInviteByTokenHash returns an invitation by its token hash.
func (db *DB) GetInviteByTokenHash(ctx context.Context, tokenHash string) (*models.Invite, error) {
	inv, err := scanInvite(db.Pool.QueryRow(ctx, `
		SELECT `+inviteColumns+` FROM invites WHERE token_hash = $1
	`, tokenHash))
	if err != nil {
		return nil, fmt.Errorf("get invite by token: %w", err)
	}
	return inv, nil
}

// GetActiveInviteByEmail returns the pending, unarchived invite for an email
// in an organization, if one exists. Expiry is not checked here; callers
// reap stale invites before relying on the result.
func (db *DB) GetActiveInviteByEmail(ctx context.Context, orgID uuid.UUID, email string) (*models.Invite, error) {
	inv, err := scanInvite(db.Pool.QueryRow(ctx, `
		SELECT `+inviteColumns+` FROM invites
		WHERE org_id = $1 AND LOWER(email) = LOWER($2)
		  AND status = 'pending' AND archived_at IS NULL
	`, orgID, email))
	if err != nil {
		return nil, fmt.Errorf("get active invite by email: %w", err)
	}
	return inv, nil
}

// UpdateInvite persists the mutable fields of an invitation.
func (db *DB) UpdateInvite(ctx context.Context, inv *models.Invite) error {
	inv.UpdatedAt = time.Now()
	_, err := db.Pool.Exec(ctx, `
		UPDATE invites
		SET user_id = $2, token_hash = $3, token_expires = $4, status = $5,
		    resend_count = $6, last_sent_at = $7, accepted_at = $8, archived_at = $9, updated_at = $10
		WHERE id = $1
	`, inv.ID, inv.UserID, inv.TokenHash, inv.TokenExpires, string(inv.Status),
		inv.ResendCount, inv.LastSentAt, inv.AcceptedAt, inv.ArchivedAt, inv.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update invite: %w", err)
	}
	return nil
}

// ExpireStalePendingInvites flips pending invites whose token expiry has
// passed to expired. Returns the number of invites flipped.
func (db *DB) ExpireStalePendingInvites(ctx context.Context, orgID uuid.UUID) (int, error) {
	tag, err := db.Pool.Exec(ctx, `
		UPDATE invites
		SET status = 'expired', updated_at = NOW()
		WHERE org_id = $1 AND status = 'pending' AND token_expires < NOW()
	`, orgID)
	if err != nil {
		return 0, fmt.Errorf("expire stale invites: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

// ExpireAllStalePendingInvites is the cross-org variant used by the
// housekeeping sweep.
func (db *DB) ExpireAllStalePendingInvites(ctx context.Context) (int, error) {
	tag, err := db.Pool.Exec(ctx, `
		UPDATE invites
		SET status = 'expired', updated_at = NOW()
		WHERE status = 'pending' AND token_expires < NOW()
	`)
	if err != nil {
		return 0, fmt.Errorf("expire stale invites: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

// ListInvites returns invitations for an organization with org and inviter
// details, newest first. Archived invites are excluded.
func (db *DB) ListInvites(ctx context.Context, orgID uuid.UUID) ([]*models.InviteWithDetails, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT i.id, i.org_id, o.name, i.person_id,
		       TRIM(p.first_name || ' ' || p.last_name),
		       i.email, i.role, i.invited_by, COALESCE(NULLIF(u.name, ''), u.email),
		       i.token_expires, i.status, i.resend_count, i.created_at
		FROM invites i
		JOIN organizations o ON o.id = i.org_id
		JOIN people p ON p.id = i.person_id
		JOIN users u ON u.id = i.invited_by
		WHERE i.org_id = $1 AND i.archived_at IS NULL
		ORDER BY i.created_at DESC
	`, orgID)
	if err != nil {
		return nil, fmt.Errorf("list invites: %w", err)
	}
	defer rows.Close()

	var invites []*models.InviteWithDetails
	for rows.Next() {
		var inv models.InviteWithDetails
		var roleStr, statusStr string
		err := rows.Scan(
			&inv.ID, &inv.OrgID, &inv.OrgName, &inv.PersonID, &inv.PersonName,
			&inv.Email, &roleStr, &inv.InvitedBy, &inv.InviterName,
			&inv.TokenExpires, &statusStr, &inv.ResendCount, &inv.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan invite: %w", err)
		}
		inv.Role = models.OrgRole(roleStr)
		inv.Status = models.InviteStatus(statusStr)
		invites = append(invites, &inv)
	}
	return invites, rows.Err()
}
