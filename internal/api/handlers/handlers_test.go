package handlers

import (
	"context"
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/ironbeam/crewdeck/internal/api/middleware"
	"github.com/ironbeam/crewdeck/internal/auth"
	"github.com/ironbeam/crewdeck/internal/models"
	"github.com/jackc/pgx/v5"
)

// injectUser simulates an authenticated request by placing the user in the
// Gin context, the way the API key middleware would.
func injectUser(user *models.User) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(string(middleware.UserContextKey), user)
		c.Next()
	}
}

// mockMembershipStore implements auth.MembershipStore for handler tests.
type mockMembershipStore struct {
	memberships map[string]*models.OrgMembership
}

func newMockMembershipStore() *mockMembershipStore {
	return &mockMembershipStore{memberships: make(map[string]*models.OrgMembership)}
}

func membershipKey(userID, orgID uuid.UUID) string {
	return fmt.Sprintf("%s|%s", userID, orgID)
}

func (m *mockMembershipStore) add(userID, orgID uuid.UUID, role models.OrgRole) *models.OrgMembership {
	membership := models.NewOrgMembership(userID, orgID, role)
	m.memberships[membershipKey(userID, orgID)] = membership
	return membership
}

func (m *mockMembershipStore) GetMembership(_ context.Context, userID, orgID uuid.UUID) (*models.OrgMembership, error) {
	membership, ok := m.memberships[membershipKey(userID, orgID)]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return membership, nil
}

// memberRBAC builds an RBAC where the given user holds the given role in the
// organization.
func memberRBAC(userID, orgID uuid.UUID, role models.OrgRole) *auth.RBAC {
	store := newMockMembershipStore()
	store.add(userID, orgID, role)
	return auth.NewRBAC(store)
}
