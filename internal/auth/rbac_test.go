package auth

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/ironbeam/crewdeck/internal/apperrors"
	"github.com/ironbeam/crewdeck/internal/models"
	"github.com/jackc/pgx/v5"
)

// mockMembershipStore implements MembershipStore for testing.
type mockMembershipStore struct {
	memberships map[string]*models.OrgMembership // key: "userID:orgID"
	err         error
}

func newMockMembershipStore() *mockMembershipStore {
	return &mockMembershipStore{memberships: make(map[string]*models.OrgMembership)}
}

func (m *mockMembershipStore) addMembership(userID, orgID uuid.UUID, role models.OrgRole) {
	key := userID.String() + ":" + orgID.String()
	m.memberships[key] = &models.OrgMembership{
		ID:     uuid.New(),
		UserID: userID,
		OrgID:  orgID,
		Role:   role,
	}
}

func (m *mockMembershipStore) GetMembership(_ context.Context, userID, orgID uuid.UUID) (*models.OrgMembership, error) {
	if m.err != nil {
		return nil, m.err
	}
	membership, ok := m.memberships[userID.String()+":"+orgID.String()]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return membership, nil
}

func TestHasRolePermission(t *testing.T) {
	tests := []struct {
		role models.OrgRole
		perm Permission
		want bool
	}{
		{models.OrgRoleOwner, PermSeatAllocate, true},
		{models.OrgRoleAdmin, PermMemberInvite, true},
		{models.OrgRoleAdmin, PermTimesheetApprove, true},
		{models.OrgRoleMember, PermSeatAllocate, false},
		{models.OrgRoleMember, PermTimesheetSubmit, true},
		{models.OrgRoleReadonly, PermPersonWrite, false},
		{models.OrgRoleReadonly, PermSeatRead, true},
		{models.OrgRole("bogus"), PermOrgRead, false},
	}

	for _, tt := range tests {
		if got := HasRolePermission(tt.role, tt.perm); got != tt.want {
			t.Errorf("HasRolePermission(%s, %s) = %v, want %v", tt.role, tt.perm, got, tt.want)
		}
	}
}

func TestEnsureRole(t *testing.T) {
	member := Actor{UserID: uuid.New(), OrgID: uuid.New(), Role: models.OrgRoleMember}

	if err := EnsureRole(member, PermTimesheetSubmit); err != nil {
		t.Errorf("member should be able to submit timesheets: %v", err)
	}

	err := EnsureRole(member, PermSeatAllocate)
	if !apperrors.IsKind(err, apperrors.KindForbidden) {
		t.Errorf("expected forbidden error, got %v", err)
	}

	// Any of several permissions suffices.
	if err := EnsureRole(member, PermSeatAllocate, PermTimesheetSubmit); err != nil {
		t.Errorf("actor with any listed permission should pass: %v", err)
	}
}

func TestEnsureRoleSuperAdmin(t *testing.T) {
	super := Actor{UserID: uuid.New(), IsSuperAdmin: true, Role: models.OrgRoleSuperAdmin}
	if err := EnsureRole(super, PermSeatAllocate); err != nil {
		t.Errorf("super admin should pass every permission check: %v", err)
	}
}

func TestEnsureOrgScope(t *testing.T) {
	orgID := uuid.New()
	actor := Actor{UserID: uuid.New(), OrgID: orgID, Role: models.OrgRoleAdmin}

	if err := EnsureOrgScope(orgID, actor); err != nil {
		t.Errorf("actor scoped to org should pass: %v", err)
	}

	err := EnsureOrgScope(uuid.New(), actor)
	if !apperrors.IsKind(err, apperrors.KindForbidden) {
		t.Errorf("expected forbidden for wrong org, got %v", err)
	}

	super := Actor{UserID: uuid.New(), IsSuperAdmin: true}
	if err := EnsureOrgScope(uuid.New(), super); err != nil {
		t.Errorf("super admin should pass org scope checks: %v", err)
	}
}

func TestResolveActor(t *testing.T) {
	store := newMockMembershipStore()
	orgID := uuid.New()
	user := models.NewUser("admin@example.com", "Admin")
	store.addMembership(user.ID, orgID, models.OrgRoleAdmin)

	rbac := NewRBAC(store)

	actor, err := rbac.ResolveActor(context.Background(), user, orgID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if actor.Role != models.OrgRoleAdmin {
		t.Errorf("expected admin role, got %s", actor.Role)
	}

	stranger := models.NewUser("other@example.com", "")
	_, err = rbac.ResolveActor(context.Background(), stranger, orgID)
	if !apperrors.IsKind(err, apperrors.KindForbidden) {
		t.Errorf("non-member should resolve to forbidden, got %v", err)
	}
}

func TestResolveActorSuperAdmin(t *testing.T) {
	rbac := NewRBAC(newMockMembershipStore())
	user := models.NewUser("root@example.com", "")
	user.IsSuperAdmin = true

	actor, err := rbac.ResolveActor(context.Background(), user, uuid.New())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !actor.IsSuperAdmin || actor.Role != models.OrgRoleSuperAdmin {
		t.Error("super admin should resolve without a membership")
	}
}

func TestCanManageMember(t *testing.T) {
	owner := Actor{Role: models.OrgRoleOwner}
	admin := Actor{Role: models.OrgRoleAdmin}
	member := Actor{Role: models.OrgRoleMember}

	if !CanManageMember(owner, models.OrgRoleAdmin) {
		t.Error("owner should manage admins")
	}
	if !CanManageMember(admin, models.OrgRoleMember) {
		t.Error("admin should manage members")
	}
	if CanManageMember(admin, models.OrgRoleOwner) {
		t.Error("admin should not manage owners")
	}
	if CanManageMember(admin, models.OrgRoleAdmin) {
		t.Error("admin should not manage other admins")
	}
	if CanManageMember(member, models.OrgRoleReadonly) {
		t.Error("member should not manage anyone")
	}
}

func TestAPIKeyFormat(t *testing.T) {
	key, err := GenerateAPIKey()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !IsValidAPIKeyFormat(key) {
		t.Errorf("generated key %q should be valid", key)
	}

	if IsValidAPIKeyFormat("xyz_" + key[4:]) {
		t.Error("key with wrong prefix should be invalid")
	}
	if IsValidAPIKeyFormat("cwd_short") {
		t.Error("short key should be invalid")
	}

	// Two generated keys must differ, and hashing must be stable.
	other, _ := GenerateAPIKey()
	if key == other {
		t.Error("generated keys should be unique")
	}
	if HashAPIKey(key) != HashAPIKey(key) {
		t.Error("hash should be deterministic")
	}
	if len(HashAPIKey(key)) != 64 {
		t.Errorf("expected 64-char sha256 hex, got %d", len(HashAPIKey(key)))
	}
}
