package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/ironbeam/crewdeck/internal/audit"
	"github.com/ironbeam/crewdeck/internal/auth"
	"github.com/ironbeam/crewdeck/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

type mockAuditStore struct {
	mu      sync.Mutex
	entries []*models.AuditLog
}

func (m *mockAuditStore) CreateAuditLog(_ context.Context, entry *models.AuditLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, entry)
	return nil
}

// mockOrgStore implements OrganizationStore in memory.
type mockOrgStore struct {
	orgs        map[uuid.UUID]*models.Organization
	memberships *mockMembershipStore
}

func newMockOrgStore() *mockOrgStore {
	return &mockOrgStore{
		orgs:        make(map[uuid.UUID]*models.Organization),
		memberships: newMockMembershipStore(),
	}
}

func (m *mockOrgStore) CreateOrganization(_ context.Context, org *models.Organization) error {
	m.orgs[org.ID] = org
	return nil
}

func (m *mockOrgStore) GetOrganizationByID(_ context.Context, id uuid.UUID) (*models.Organization, error) {
	org, ok := m.orgs[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return org, nil
}

func (m *mockOrgStore) GetAllOrganizations(_ context.Context) ([]*models.Organization, error) {
	var orgs []*models.Organization
	for _, org := range m.orgs {
		orgs = append(orgs, org)
	}
	return orgs, nil
}

func (m *mockOrgStore) UpdateOrganization(_ context.Context, org *models.Organization) error {
	m.orgs[org.ID] = org
	return nil
}

func (m *mockOrgStore) CreateMembership(_ context.Context, membership *models.OrgMembership) error {
	m.memberships.memberships[membershipKey(membership.UserID, membership.OrgID)] = membership
	return nil
}

func (m *mockOrgStore) GetMembership(ctx context.Context, userID, orgID uuid.UUID) (*models.OrgMembership, error) {
	return m.memberships.GetMembership(ctx, userID, orgID)
}

func (m *mockOrgStore) ListMemberships(_ context.Context, orgID uuid.UUID) ([]*models.OrgMembershipWithUser, error) {
	var members []*models.OrgMembershipWithUser
	for _, membership := range m.memberships.memberships {
		if membership.OrgID == orgID {
			members = append(members, &models.OrgMembershipWithUser{
				ID:     membership.ID,
				UserID: membership.UserID,
				OrgID:  membership.OrgID,
				Role:   membership.Role,
			})
		}
	}
	return members, nil
}

func (m *mockOrgStore) UpdateMembershipRole(_ context.Context, id uuid.UUID, role models.OrgRole) error {
	for _, membership := range m.memberships.memberships {
		if membership.ID == id {
			membership.Role = role
			return nil
		}
	}
	return pgx.ErrNoRows
}

func (m *mockOrgStore) DeleteMembership(_ context.Context, id uuid.UUID) error {
	for key, membership := range m.memberships.memberships {
		if membership.ID == id {
			delete(m.memberships.memberships, key)
			return nil
		}
	}
	return pgx.ErrNoRows
}

// mockProvisioner records seat pool calls.
type mockProvisioner struct {
	ensuredOrg   uuid.UUID
	ensuredSeats int
	releasedUser uuid.UUID
}

func (m *mockProvisioner) EnsureOrgSeats(_ context.Context, orgID uuid.UUID, totalSeats int) error {
	m.ensuredOrg = orgID
	m.ensuredSeats = totalSeats
	return nil
}

func (m *mockProvisioner) ReleaseSeatForUser(_ context.Context, _, userID uuid.UUID, _ uuid.UUID) (*models.Seat, error) {
	m.releasedUser = userID
	return nil, nil
}

func orgTestRouter(store *mockOrgStore, provisioner *mockProvisioner, user *models.User) *gin.Engine {
	gin.SetMode(gin.TestMode)
	recorder := audit.NewRecorder(&mockAuditStore{}, zerolog.Nop())
	handler := NewOrganizationHandler(store, provisioner, auth.NewRBAC(store.memberships), recorder, zerolog.Nop())
	r := gin.New()
	r.Use(injectUser(user))
	handler.RegisterRoutes(r.Group("/api/v1"))
	return r
}

func TestCreateOrganization(t *testing.T) {
	store := newMockOrgStore()
	provisioner := &mockProvisioner{}
	operator := models.NewUser("ops@example.com", "Ops")
	operator.IsSuperAdmin = true
	owner := models.NewUser("owner@example.com", "Owner")
	r := orgTestRouter(store, provisioner, operator)

	body, _ := json.Marshal(map[string]any{
		"name":          "Ironbeam Construction",
		"slug":          "Ironbeam",
		"seat_count":    5,
		"owner_user_id": owner.ID,
	})
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/api/v1/orgs", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", w.Code, w.Body.String())
	}

	var org models.Organization
	if err := json.Unmarshal(w.Body.Bytes(), &org); err != nil {
		t.Fatalf("failed to unmarshal: %v", err)
	}
	if org.Slug != "ironbeam" {
		t.Errorf("expected lowercased slug, got %q", org.Slug)
	}
	if provisioner.ensuredSeats != 5 {
		t.Errorf("expected 5 seats seeded, got %d", provisioner.ensuredSeats)
	}
	if _, err := store.memberships.GetMembership(context.Background(), owner.ID, org.ID); err != nil {
		t.Error("expected owner membership to be created")
	}
}

func TestCreateOrganizationForbiddenForNonOperator(t *testing.T) {
	store := newMockOrgStore()
	user := models.NewUser("user@example.com", "User")
	r := orgTestRouter(store, &mockProvisioner{}, user)

	body, _ := json.Marshal(map[string]any{"name": "X", "slug": "x", "seat_count": 3})
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/api/v1/orgs", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	if w.Code != http.StatusForbidden {
		t.Errorf("expected status 403, got %d", w.Code)
	}
}

func TestCreateOrganizationRejectsZeroSeats(t *testing.T) {
	store := newMockOrgStore()
	operator := models.NewUser("ops@example.com", "Ops")
	operator.IsSuperAdmin = true
	r := orgTestRouter(store, &mockProvisioner{}, operator)

	body, _ := json.Marshal(map[string]any{"name": "X", "slug": "x", "seat_count": -1})
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/api/v1/orgs", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", w.Code)
	}
}

func TestUpdateOrganizationGrowsSeatPool(t *testing.T) {
	store := newMockOrgStore()
	provisioner := &mockProvisioner{}
	org := models.NewOrganization("Ironbeam", "ironbeam", 5)
	store.orgs[org.ID] = org
	admin := models.NewUser("admin@example.com", "Admin")
	store.memberships.add(admin.ID, org.ID, models.OrgRoleAdmin)
	r := orgTestRouter(store, provisioner, admin)

	body, _ := json.Marshal(map[string]any{"seat_count": 8})
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("PATCH", fmt.Sprintf("/api/v1/orgs/%s", org.ID), bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	if provisioner.ensuredSeats != 8 {
		t.Errorf("expected pool topped up to 8, got %d", provisioner.ensuredSeats)
	}
}

func TestUpdateOrganizationRejectsSeatShrink(t *testing.T) {
	store := newMockOrgStore()
	org := models.NewOrganization("Ironbeam", "ironbeam", 5)
	store.orgs[org.ID] = org
	admin := models.NewUser("admin@example.com", "Admin")
	store.memberships.add(admin.ID, org.ID, models.OrgRoleAdmin)
	r := orgTestRouter(store, &mockProvisioner{}, admin)

	body, _ := json.Marshal(map[string]any{"seat_count": 3})
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("PATCH", fmt.Sprintf("/api/v1/orgs/%s", org.ID), bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected status 400 for seat shrink, got %d", w.Code)
	}
}

func TestUpdateOrganizationOnLegalHoldForbidden(t *testing.T) {
	store := newMockOrgStore()
	org := models.NewOrganization("Ironbeam", "ironbeam", 5)
	org.LegalHold = true
	store.orgs[org.ID] = org
	admin := models.NewUser("admin@example.com", "Admin")
	store.memberships.add(admin.ID, org.ID, models.OrgRoleAdmin)
	r := orgTestRouter(store, &mockProvisioner{}, admin)

	body, _ := json.Marshal(map[string]any{"name": "Renamed While Held"})
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("PATCH", fmt.Sprintf("/api/v1/orgs/%s", org.ID), bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	if w.Code != http.StatusForbidden {
		t.Errorf("expected status 403 for mutation of org on legal hold, got %d", w.Code)
	}
	if store.orgs[org.ID].Name != "Ironbeam" {
		t.Errorf("expected name unchanged, got %q", store.orgs[org.ID].Name)
	}
}

func TestUpdateOrganizationClearLegalHold(t *testing.T) {
	store := newMockOrgStore()
	org := models.NewOrganization("Ironbeam", "ironbeam", 5)
	org.LegalHold = true
	store.orgs[org.ID] = org
	operator := models.NewUser("ops@example.com", "Ops")
	operator.IsSuperAdmin = true
	r := orgTestRouter(store, &mockProvisioner{}, operator)

	body, _ := json.Marshal(map[string]any{"legal_hold": false})
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("PATCH", fmt.Sprintf("/api/v1/orgs/%s", org.ID), bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200 clearing hold, got %d: %s", w.Code, w.Body.String())
	}
	if store.orgs[org.ID].LegalHold {
		t.Error("expected legal hold cleared")
	}
}

func TestUpdateLegalHoldRequiresOperator(t *testing.T) {
	store := newMockOrgStore()
	org := models.NewOrganization("Ironbeam", "ironbeam", 5)
	store.orgs[org.ID] = org
	owner := models.NewUser("owner@example.com", "Owner")
	store.memberships.add(owner.ID, org.ID, models.OrgRoleOwner)
	r := orgTestRouter(store, &mockProvisioner{}, owner)

	body, _ := json.Marshal(map[string]any{"legal_hold": true})
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("PATCH", fmt.Sprintf("/api/v1/orgs/%s", org.ID), bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	if w.Code != http.StatusForbidden {
		t.Errorf("expected status 403 for non-operator legal hold change, got %d", w.Code)
	}
}

func TestUpdateMemberRole(t *testing.T) {
	store := newMockOrgStore()
	org := models.NewOrganization("Ironbeam", "ironbeam", 5)
	store.orgs[org.ID] = org
	owner := models.NewUser("owner@example.com", "Owner")
	store.memberships.add(owner.ID, org.ID, models.OrgRoleOwner)
	member := models.NewUser("member@example.com", "Member")
	store.memberships.add(member.ID, org.ID, models.OrgRoleMember)
	r := orgTestRouter(store, &mockProvisioner{}, owner)

	body, _ := json.Marshal(map[string]any{"role": "admin"})
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("PATCH", fmt.Sprintf("/api/v1/orgs/%s/members/%s", org.ID, member.ID), bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	updated, err := store.memberships.GetMembership(context.Background(), member.ID, org.ID)
	if err != nil {
		t.Fatalf("GetMembership() error: %v", err)
	}
	if updated.Role != models.OrgRoleAdmin {
		t.Errorf("expected role admin, got %s", updated.Role)
	}
}

func TestUpdateMemberRoleRejectsSuperAdmin(t *testing.T) {
	store := newMockOrgStore()
	org := models.NewOrganization("Ironbeam", "ironbeam", 5)
	store.orgs[org.ID] = org
	owner := models.NewUser("owner@example.com", "Owner")
	store.memberships.add(owner.ID, org.ID, models.OrgRoleOwner)
	member := models.NewUser("member@example.com", "Member")
	store.memberships.add(member.ID, org.ID, models.OrgRoleMember)
	r := orgTestRouter(store, &mockProvisioner{}, owner)

	body, _ := json.Marshal(map[string]any{"role": "super_admin"})
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("PATCH", fmt.Sprintf("/api/v1/orgs/%s/members/%s", org.ID, member.ID), bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected status 400 for super_admin grant, got %d", w.Code)
	}
}

func TestAdminCannotManageOwner(t *testing.T) {
	store := newMockOrgStore()
	org := models.NewOrganization("Ironbeam", "ironbeam", 5)
	store.orgs[org.ID] = org
	admin := models.NewUser("admin@example.com", "Admin")
	store.memberships.add(admin.ID, org.ID, models.OrgRoleAdmin)
	owner := models.NewUser("owner@example.com", "Owner")
	store.memberships.add(owner.ID, org.ID, models.OrgRoleOwner)
	r := orgTestRouter(store, &mockProvisioner{}, admin)

	body, _ := json.Marshal(map[string]any{"role": "member"})
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("PATCH", fmt.Sprintf("/api/v1/orgs/%s/members/%s", org.ID, owner.ID), bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	if w.Code != http.StatusForbidden {
		t.Errorf("expected status 403 for admin managing owner, got %d", w.Code)
	}
}

func TestRemoveMemberReleasesSeat(t *testing.T) {
	store := newMockOrgStore()
	provisioner := &mockProvisioner{}
	org := models.NewOrganization("Ironbeam", "ironbeam", 5)
	store.orgs[org.ID] = org
	owner := models.NewUser("owner@example.com", "Owner")
	store.memberships.add(owner.ID, org.ID, models.OrgRoleOwner)
	member := models.NewUser("member@example.com", "Member")
	store.memberships.add(member.ID, org.ID, models.OrgRoleMember)
	r := orgTestRouter(store, provisioner, owner)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("DELETE", fmt.Sprintf("/api/v1/orgs/%s/members/%s", org.ID, member.ID), nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Fatalf("expected status 204, got %d: %s", w.Code, w.Body.String())
	}
	if provisioner.releasedUser != member.ID {
		t.Error("expected member's seat to be released")
	}
	if _, err := store.memberships.GetMembership(context.Background(), member.ID, org.ID); err == nil {
		t.Error("expected membership to be deleted")
	}
}
