package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/ironbeam/crewdeck/internal/invites"
	"github.com/ironbeam/crewdeck/internal/models"
	"github.com/rs/zerolog"
)

// mockInviteService implements InviteService with canned responses.
type mockInviteService struct {
	lastCreate invites.CreateRequest
	invite     *models.Invite
	org        *models.Organization
	canceled   uuid.UUID
}

func (m *mockInviteService) Create(_ context.Context, req invites.CreateRequest) (*models.Invite, string, error) {
	m.lastCreate = req
	return m.invite, "tok_plaintext", nil
}

func (m *mockInviteService) Resend(_ context.Context, _, _, _ uuid.UUID) (*models.Invite, error) {
	return m.invite, nil
}

func (m *mockInviteService) Cancel(_ context.Context, inviteID, _, _ uuid.UUID) error {
	m.canceled = inviteID
	return nil
}

func (m *mockInviteService) Accept(_ context.Context, _ string, _ uuid.UUID) (*models.Organization, error) {
	return m.org, nil
}

func (m *mockInviteService) List(_ context.Context, _ uuid.UUID) ([]*models.InviteWithDetails, error) {
	return nil, nil
}

func (m *mockInviteService) InviteLink(token string) string {
	return "https://crewdeck.example.com/invites/accept?token=" + token
}

func inviteTestRouter(service InviteService, user *models.User, orgID uuid.UUID, role models.OrgRole) *gin.Engine {
	gin.SetMode(gin.TestMode)
	handler := NewInviteHandler(service, memberRBAC(user.ID, orgID, role), zerolog.Nop())
	r := gin.New()
	r.Use(injectUser(user))
	handler.RegisterRoutes(r.Group("/api/v1"))
	return r
}

func TestInviteCreate(t *testing.T) {
	orgID := uuid.New()
	admin := models.NewUser("admin@example.com", "Admin")
	personID := uuid.New()
	service := &mockInviteService{
		invite: models.NewInvite(orgID, personID, "crew@example.com", models.OrgRoleMember, "hash", admin.ID, time.Now().Add(168*time.Hour)),
	}
	r := inviteTestRouter(service, admin, orgID, models.OrgRoleAdmin)

	body, _ := json.Marshal(map[string]any{"person_id": personID, "role": "member"})
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", fmt.Sprintf("/api/v1/orgs/%s/invites", orgID), bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", w.Code, w.Body.String())
	}
	if service.lastCreate.OrgID != orgID {
		t.Error("expected org scope to come from the path, not the body")
	}
	if service.lastCreate.InvitedBy != admin.ID {
		t.Error("expected inviter to be the authenticated actor")
	}

	var resp struct {
		InviteLink string `json:"invite_link"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to unmarshal: %v", err)
	}
	if resp.InviteLink == "" {
		t.Error("expected invite link in response")
	}
}

func TestInviteCreateForbiddenForMember(t *testing.T) {
	orgID := uuid.New()
	member := models.NewUser("member@example.com", "Member")
	r := inviteTestRouter(&mockInviteService{}, member, orgID, models.OrgRoleMember)

	body, _ := json.Marshal(map[string]any{"person_id": uuid.New(), "role": "member"})
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", fmt.Sprintf("/api/v1/orgs/%s/invites", orgID), bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	if w.Code != http.StatusForbidden {
		t.Errorf("expected status 403 for member inviting, got %d", w.Code)
	}
}

func TestInviteCancel(t *testing.T) {
	orgID := uuid.New()
	admin := models.NewUser("admin@example.com", "Admin")
	service := &mockInviteService{}
	r := inviteTestRouter(service, admin, orgID, models.OrgRoleAdmin)

	inviteID := uuid.New()
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("DELETE", fmt.Sprintf("/api/v1/orgs/%s/invites/%s", orgID, inviteID), nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Fatalf("expected status 204, got %d: %s", w.Code, w.Body.String())
	}
	if service.canceled != inviteID {
		t.Error("expected the invite from the path to be canceled")
	}
}

func TestInviteAccept(t *testing.T) {
	user := models.NewUser("joiner@example.com", "Joiner")
	org := models.NewOrganization("Ironbeam", "ironbeam", 5)
	service := &mockInviteService{org: org}
	// Accept needs no org membership: the token names the org being joined.
	r := inviteTestRouter(service, user, uuid.New(), models.OrgRoleReadonly)

	body, _ := json.Marshal(map[string]any{"token": "tok_plaintext"})
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/api/v1/invites/accept", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp struct {
		Organization *models.Organization `json:"organization"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to unmarshal: %v", err)
	}
	if resp.Organization == nil || resp.Organization.ID != org.ID {
		t.Error("expected joined organization in response")
	}
}
