// Package auth provides authentication and authorization for Crewdeck.
package auth

import (
	"context"

	"github.com/google/uuid"
	"github.com/ironbeam/crewdeck/internal/apperrors"
	"github.com/ironbeam/crewdeck/internal/db"
	"github.com/ironbeam/crewdeck/internal/models"
)

// Permission defines an action that can be performed.
type Permission string

const (
	// Organization permissions
	PermOrgRead   Permission = "org:read"
	PermOrgUpdate Permission = "org:update"

	// Member and invite permissions
	PermMemberRead   Permission = "member:read"
	PermMemberInvite Permission = "member:invite"
	PermMemberUpdate Permission = "member:update"
	PermMemberRemove Permission = "member:remove"

	// Seat permissions
	PermSeatRead     Permission = "seat:read"
	PermSeatAllocate Permission = "seat:allocate"
	PermSeatRelease  Permission = "seat:release"
	PermSeatAssign   Permission = "seat:assign"

	// Person permissions
	PermPersonRead  Permission = "person:read"
	PermPersonWrite Permission = "person:write"

	// Project and cost code permissions
	PermProjectRead  Permission = "project:read"
	PermProjectWrite Permission = "project:write"

	// Timesheet permissions
	PermTimesheetRead    Permission = "timesheet:read"
	PermTimesheetSubmit  Permission = "timesheet:submit"
	PermTimesheetApprove Permission = "timesheet:approve"

	// Audit log permissions
	PermAuditRead Permission = "audit:read"
)

// rolePermissions maps roles to their allowed permissions.
var rolePermissions = map[models.OrgRole][]Permission{
	models.OrgRoleOwner: {
		PermOrgRead, PermOrgUpdate,
		PermMemberRead, PermMemberInvite, PermMemberUpdate, PermMemberRemove,
		PermSeatRead, PermSeatAllocate, PermSeatRelease, PermSeatAssign,
		PermPersonRead, PermPersonWrite,
		PermProjectRead, PermProjectWrite,
		PermTimesheetRead, PermTimesheetSubmit, PermTimesheetApprove,
		PermAuditRead,
	},
	models.OrgRoleAdmin: {
		PermOrgRead, PermOrgUpdate,
		PermMemberRead, PermMemberInvite, PermMemberUpdate, PermMemberRemove,
		PermSeatRead, PermSeatAllocate, PermSeatRelease, PermSeatAssign,
		PermPersonRead, PermPersonWrite,
		PermProjectRead, PermProjectWrite,
		PermTimesheetRead, PermTimesheetSubmit, PermTimesheetApprove,
		PermAuditRead,
	},
	models.OrgRoleMember: {
		PermOrgRead,
		PermMemberRead,
		PermSeatRead,
		PermPersonRead, PermPersonWrite,
		PermProjectRead,
		PermTimesheetRead, PermTimesheetSubmit,
	},
	models.OrgRoleReadonly: {
		PermOrgRead,
		PermMemberRead,
		PermSeatRead,
		PermPersonRead,
		PermProjectRead,
		PermTimesheetRead,
	},
}

// Actor is the authenticated principal performing an operation, resolved to
// its role within the organization in scope.
type Actor struct {
	UserID       uuid.UUID
	OrgID        uuid.UUID
	Role         models.OrgRole
	IsSuperAdmin bool
}

// HasRolePermission checks if a role has the given permission.
func HasRolePermission(role models.OrgRole, perm Permission) bool {
	perms, ok := rolePermissions[role]
	if !ok {
		return false
	}
	for _, p := range perms {
		if p == perm {
			return true
		}
	}
	return false
}

// EnsureRole fails with a forbidden error unless the actor holds at least one
// of the given permissions. Platform super admins pass every check.
func EnsureRole(actor Actor, perms ...Permission) error {
	if actor.IsSuperAdmin {
		return nil
	}
	for _, perm := range perms {
		if HasRolePermission(actor.Role, perm) {
			return nil
		}
	}
	return apperrors.Forbidden("insufficient role for this operation")
}

// EnsureOrgScope fails with a forbidden error unless the actor is scoped to
// the given organization. Platform super admins are exempt.
func EnsureOrgScope(orgID uuid.UUID, actor Actor) error {
	if actor.IsSuperAdmin {
		return nil
	}
	if actor.OrgID != orgID {
		return apperrors.Forbidden("not scoped to this organization")
	}
	return nil
}

// MembershipStore defines the interface for fetching membership data.
type MembershipStore interface {
	GetMembership(ctx context.Context, userID, orgID uuid.UUID) (*models.OrgMembership, error)
}

// RBAC resolves actors and checks permissions against memberships.
type RBAC struct {
	store MembershipStore
}

// NewRBAC creates a new RBAC instance.
func NewRBAC(store MembershipStore) *RBAC {
	return &RBAC{store: store}
}

// ResolveActor resolves a user to an Actor within the given organization.
// Non-members of the organization resolve to a forbidden error unless the
// user is a platform super admin.
func (r *RBAC) ResolveActor(ctx context.Context, user *models.User, orgID uuid.UUID) (Actor, error) {
	actor := Actor{UserID: user.ID, OrgID: orgID, IsSuperAdmin: user.IsSuperAdmin}
	if user.IsSuperAdmin {
		actor.Role = models.OrgRoleSuperAdmin
		return actor, nil
	}

	membership, err := r.store.GetMembership(ctx, user.ID, orgID)
	if err != nil {
		if db.IsNotFound(err) {
			return Actor{}, apperrors.Forbidden("not a member of this organization")
		}
		return Actor{}, apperrors.Internal(err, "resolve membership")
	}

	actor.Role = membership.Role
	return actor, nil
}

// CanManageMember checks if an actor can manage (update/remove) a member with
// the target role. Owners can manage anyone; admins can manage members and
// readonly, but not other admins or owners.
func CanManageMember(actor Actor, targetRole models.OrgRole) bool {
	if actor.IsSuperAdmin || actor.Role == models.OrgRoleOwner {
		return true
	}
	if actor.Role == models.OrgRoleAdmin {
		return targetRole == models.OrgRoleMember || targetRole == models.OrgRoleReadonly
	}
	return false
}
