package db

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/ironbeam/crewdeck/internal/models"
)

// Organization methods

// CreateOrganization creates a new organization.
func (db *DB) CreateOrganization(ctx context.Context, org *models.Organization) error {
	_, err := db.Pool.Exec(ctx, `
		INSERT INTO organizations (id, name, slug, seat_count, legal_hold, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, org.ID, org.Name, org.Slug, org.SeatCount, org.LegalHold, org.CreatedAt, org.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create organization: %w", err)
	}
	return nil
}

// GetOrganizationByID returns an organization by its ID.
func (db *DB) GetOrganizationByID(ctx context.Context, id uuid.UUID) (*models.Organization, error) {
	var org models.Organization
	err := db.Pool.QueryRow(ctx, `
		SELECT id, name, slug, seat_count, legal_hold, created_at, updated_at
		FROM organizations
		WHERE id = $1
	`, id).Scan(&org.ID, &org.Name, &org.Slug, &org.SeatCount, &org.LegalHold, &org.CreatedAt, &org.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("get organization: %w", err)
	}
	return &org, nil
}

// GetAllOrganizations returns all organizations ordered by name.
func (db *DB) GetAllOrganizations(ctx context.Context) ([]*models.Organization, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT id, name, slug, seat_count, legal_hold, created_at, updated_at
		FROM organizations
		ORDER BY name
	`)
	if err != nil {
		return nil, fmt.Errorf("list organizations: %w", err)
	}
	defer rows.Close()

	var orgs []*models.Organization
	for rows.Next() {
		var org models.Organization
		err := rows.Scan(&org.ID, &org.Name, &org.Slug, &org.SeatCount, &org.LegalHold, &org.CreatedAt, &org.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan organization: %w", err)
		}
		orgs = append(orgs, &org)
	}
	return orgs, rows.Err()
}

// UpdateOrganization updates an organization's name, seat count and legal hold flag.
func (db *DB) UpdateOrganization(ctx context.Context, org *models.Organization) error {
	org.UpdatedAt = time.Now()
	_, err := db.Pool.Exec(ctx, `
		UPDATE organizations
		SET name = $2, seat_count = $3, legal_hold = $4, updated_at = $5
		WHERE id = $1
	`, org.ID, org.Name, org.SeatCount, org.LegalHold, org.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update organization: %w", err)
	}
	return nil
}

// User methods

// CreateUser creates a new user.
func (db *DB) CreateUser(ctx context.Context, user *models.User) error {
	_, err := db.Pool.Exec(ctx, `
		INSERT INTO users (id, email, name, api_key_hash, is_super_admin, created_at, updated_at)
		VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6, $7)
	`, user.ID, user.Email, user.Name, user.APIKeyHash, user.IsSuperAdmin, user.CreatedAt, user.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

// GetUserByID returns a user by their ID.
func (db *DB) GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return db.getUser(ctx, "id = $1", id)
}

// GetUserByEmail returns a user by email, case-insensitively.
func (db *DB) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return db.getUser(ctx, "LOWER(email) = LOWER($1)", email)
}

// GetUserByAPIKeyHash returns the user owning the given API key hash.
func (db *DB) GetUserByAPIKeyHash(ctx context.Context, hash string) (*models.User, error) {
	return db.getUser(ctx, "api_key_hash = $1", hash)
}

func (db *DB) getUser(ctx context.Context, where string, arg any) (*models.User, error) {
	var user models.User
	var apiKeyHash *string
	err := db.Pool.QueryRow(ctx, `
		SELECT id, email, name, api_key_hash, is_super_admin, created_at, updated_at
		FROM users
		WHERE `+where, arg).Scan(
		&user.ID, &user.Email, &user.Name, &apiKeyHash,
		&user.IsSuperAdmin, &user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if apiKeyHash != nil {
		user.APIKeyHash = *apiKeyHash
	}
	return &user, nil
}

// UpdateUser updates a user's name, email and API key hash.
func (db *DB) UpdateUser(ctx context.Context, user *models.User) error {
	user.UpdatedAt = time.Now()
	_, err := db.Pool.Exec(ctx, `
		UPDATE users
		SET email = $2, name = $3, api_key_hash = NULLIF($4, ''), updated_at = $5
		WHERE id = $1
	`, user.ID, user.Email, user.Name, user.APIKeyHash, user.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	return nil
}

// Membership methods

// CreateMembership creates a new organization membership.
func (db *DB) CreateMembership(ctx context.Context, m *models.OrgMembership) error {
	_, err := db.Pool.Exec(ctx, `
		INSERT INTO org_memberships (id, user_id, org_id, role, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, m.ID, m.UserID, m.OrgID, string(m.Role), m.CreatedAt, m.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create membership: %w", err)
	}
	return nil
}

// GetMembership returns the membership of a user in an organization.
func (db *DB) GetMembership(ctx context.Context, userID, orgID uuid.UUID) (*models.OrgMembership, error) {
	var m models.OrgMembership
	var roleStr string
	err := db.Pool.QueryRow(ctx, `
		SELECT id, user_id, org_id, role, created_at, updated_at
		FROM org_memberships
		WHERE user_id = $1 AND org_id = $2
	`, userID, orgID).Scan(&m.ID, &m.UserID, &m.OrgID, &roleStr, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("get membership: %w", err)
	}
	m.Role = models.OrgRole(roleStr)
	return &m, nil
}

// ListMemberships returns all memberships of an organization with user details.
func (db *DB) ListMemberships(ctx context.Context, orgID uuid.UUID) ([]*models.OrgMembershipWithUser, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT m.id, m.user_id, m.org_id, m.role, u.email, u.name, m.created_at, m.updated_at
		FROM org_memberships m
		JOIN users u ON u.id = m.user_id
		WHERE m.org_id = $1
		ORDER BY u.name, u.email
	`, orgID)
	if err != nil {
		return nil, fmt.Errorf("list memberships: %w", err)
	}
	defer rows.Close()

	var members []*models.OrgMembershipWithUser
	for rows.Next() {
		var m models.OrgMembershipWithUser
		var roleStr string
		if err := rows.Scan(&m.ID, &m.UserID, &m.OrgID, &roleStr, &m.Email, &m.Name, &m.CreatedAt, &m.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan membership: %w", err)
		}
		m.Role = models.OrgRole(roleStr)
		members = append(members, &m)
	}
	return members, rows.Err()
}

// UpdateMembershipRole changes the role of an existing membership.
func (db *DB) UpdateMembershipRole(ctx context.Context, id uuid.UUID, role models.OrgRole) error {
	_, err := db.Pool.Exec(ctx, `
		UPDATE org_memberships
		SET role = $2, updated_at = NOW()
		WHERE id = $1
	`, id, string(role))
	if err != nil {
		return fmt.Errorf("update membership role: %w", err)
	}
	return nil
}

// DeleteMembership removes a membership. Deleting the last owner of an
// organization is blocked.
func (db *DB) DeleteMembership(ctx context.Context, id uuid.UUID) error {
	var orgID uuid.UUID
	var roleStr string
	err := db.Pool.QueryRow(ctx, `
		SELECT org_id, role FROM org_memberships WHERE id = $1
	`, id).Scan(&orgID, &roleStr)
	if err != nil {
		return fmt.Errorf("get membership for delete: %w", err)
	}

	if models.OrgRole(roleStr) == models.OrgRoleOwner {
		var ownerCount int
		err := db.Pool.QueryRow(ctx, `
			SELECT COUNT(*) FROM org_memberships WHERE org_id = $1 AND role = 'owner'
		`, orgID).Scan(&ownerCount)
		if err != nil {
			return fmt.Errorf("count owners: %w", err)
		}
		if ownerCount <= 1 {
			return fmt.Errorf("cannot remove last owner of organization")
		}
	}

	_, err = db.Pool.Exec(ctx, `DELETE FROM org_memberships WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete membership: %w", err)
	}
	return nil
}
