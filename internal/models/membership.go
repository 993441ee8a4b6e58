package models

import (
	"time"

	"github.com/google/uuid"
)

// OrgRole defines the role of a user within an organization.
type OrgRole string

const (
	// OrgRoleSuperAdmin is the platform-level operator role. It is never
	// granted through memberships or invitations.
	OrgRoleSuperAdmin OrgRole = "super_admin"
	// OrgRoleOwner has full control over the organization.
	OrgRoleOwner OrgRole = "owner"
	// OrgRoleAdmin can manage members, seats and all resources.
	OrgRoleAdmin OrgRole = "admin"
	// OrgRoleMember can create and manage resources.
	OrgRoleMember OrgRole = "member"
	// OrgRoleReadonly has view-only access.
	OrgRoleReadonly OrgRole = "readonly"
)

// GrantableOrgRoles returns the roles that may be granted through
// memberships and invitations. super_admin is deliberately excluded.
func GrantableOrgRoles() []OrgRole {
	return []OrgRole{OrgRoleOwner, OrgRoleAdmin, OrgRoleMember, OrgRoleReadonly}
}

// IsGrantableOrgRole checks if the given role may be granted to a member.
func IsGrantableOrgRole(role string) bool {
	for _, r := range GrantableOrgRoles() {
		if string(r) == role {
			return true
		}
	}
	return false
}

// OrgMembership represents a user's membership in an organization.
type OrgMembership struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	OrgID     uuid.UUID `json:"org_id"`
	Role      OrgRole   `json:"role"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// OrgMembershipWithUser includes user details for display.
type OrgMembershipWithUser struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	OrgID     uuid.UUID `json:"org_id"`
	Role      OrgRole   `json:"role"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewOrgMembership creates a new OrgMembership.
func NewOrgMembership(userID, orgID uuid.UUID, role OrgRole) *OrgMembership {
	now := time.Now()
	return &OrgMembership{
		ID:        uuid.New(),
		UserID:    userID,
		OrgID:     orgID,
		Role:      role,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// IsOwner returns true if the membership role is owner.
func (m *OrgMembership) IsOwner() bool {
	return m.Role == OrgRoleOwner
}

// IsAdmin returns true if the membership role is admin or owner.
func (m *OrgMembership) IsAdmin() bool {
	return m.Role == OrgRoleAdmin || m.Role == OrgRoleOwner
}

// CanWrite returns true if the membership can create/modify resources.
func (m *OrgMembership) CanWrite() bool {
	return m.Role == OrgRoleOwner || m.Role == OrgRoleAdmin || m.Role == OrgRoleMember
}
