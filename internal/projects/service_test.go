package projects

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/ironbeam/crewdeck/internal/apperrors"
	"github.com/ironbeam/crewdeck/internal/audit"
	"github.com/ironbeam/crewdeck/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

// mockStore is an in-memory Store implementation for tests.
type mockStore struct {
	mu        sync.Mutex
	orgs      map[uuid.UUID]*models.Organization
	projects  map[uuid.UUID]*models.Project
	costCodes map[uuid.UUID]*models.CostCode

	auditLogs []*models.AuditLog
}

func newMockStore() *mockStore {
	return &mockStore{
		orgs:      make(map[uuid.UUID]*models.Organization),
		projects:  make(map[uuid.UUID]*models.Project),
		costCodes: make(map[uuid.UUID]*models.CostCode),
	}
}

func (m *mockStore) GetOrganizationByID(_ context.Context, id uuid.UUID) (*models.Organization, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	org, ok := m.orgs[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return org, nil
}

func (m *mockStore) CreateProject(_ context.Context, p *models.Project) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *p
	m.projects[p.ID] = &cp
	return nil
}

func (m *mockStore) GetProjectByID(_ context.Context, id uuid.UUID) (*models.Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.projects[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *p
	return &cp, nil
}

func (m *mockStore) GetProjectByCode(_ context.Context, orgID uuid.UUID, code string) (*models.Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.projects {
		if p.OrgID == orgID && p.ArchivedAt == nil && strings.EqualFold(p.Code, code) {
			cp := *p
			return &cp, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (m *mockStore) GetProjectByName(_ context.Context, orgID uuid.UUID, name string) (*models.Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.projects {
		if p.OrgID == orgID && p.ArchivedAt == nil && strings.EqualFold(p.Name, name) {
			cp := *p
			return &cp, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (m *mockStore) UpdateProject(_ context.Context, p *models.Project) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *p
	m.projects[p.ID] = &cp
	return nil
}

func (m *mockStore) ListProjects(_ context.Context, orgID uuid.UUID, includeArchived bool) ([]*models.Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Project
	for _, p := range m.projects {
		if p.OrgID != orgID {
			continue
		}
		if p.ArchivedAt != nil && !includeArchived {
			continue
		}
		cp := *p
		out = append(out, &cp)
	}
	return out, nil
}

func (m *mockStore) CreateCostCode(_ context.Context, c *models.CostCode) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *c
	m.costCodes[c.ID] = &cp
	return nil
}

func (m *mockStore) GetCostCodeByID(_ context.Context, id uuid.UUID) (*models.CostCode, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.costCodes[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *c
	return &cp, nil
}

func (m *mockStore) GetCostCodeByCode(_ context.Context, orgID uuid.UUID, code string) (*models.CostCode, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.costCodes {
		if c.OrgID == orgID && c.ArchivedAt == nil && strings.EqualFold(c.Code, code) {
			cp := *c
			return &cp, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (m *mockStore) UpdateCostCode(_ context.Context, c *models.CostCode) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *c
	m.costCodes[c.ID] = &cp
	return nil
}

func (m *mockStore) ListCostCodes(_ context.Context, orgID uuid.UUID, includeArchived bool) ([]*models.CostCode, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.CostCode
	for _, c := range m.costCodes {
		if c.OrgID != orgID {
			continue
		}
		if c.ArchivedAt != nil && !includeArchived {
			continue
		}
		cp := *c
		out = append(out, &cp)
	}
	return out, nil
}

func (m *mockStore) CreateAuditLog(_ context.Context, entry *models.AuditLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.auditLogs = append(m.auditLogs, entry)
	return nil
}

func newTestService(store *mockStore) *Service {
	logger := zerolog.Nop()
	return NewService(store, audit.NewRecorder(store, logger), logger)
}

func setupOrg(store *mockStore) uuid.UUID {
	org := models.NewOrganization("Test Org", "test-org", 5)
	store.orgs[org.ID] = org
	return org.ID
}

func TestNormalizeCode(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"  site-01 ", "SITE-01"},
		{"HQ", "HQ"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := NormalizeCode(tt.in); got != tt.want {
			t.Errorf("NormalizeCode(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestCreateProjectNormalizesCode(t *testing.T) {
	store := newMockStore()
	svc := newTestService(store)
	orgID := setupOrg(store)

	project, err := svc.CreateProject(context.Background(), orgID, " site-01 ", "  Harbor Rebuild ", uuid.Nil)
	if err != nil {
		t.Fatalf("CreateProject() error: %v", err)
	}
	if project.Code != "SITE-01" {
		t.Errorf("expected uppercased code, got %q", project.Code)
	}
	if project.Name != "Harbor Rebuild" {
		t.Errorf("expected trimmed name, got %q", project.Name)
	}
}

func TestCreateProjectRequiresCodeAndName(t *testing.T) {
	store := newMockStore()
	svc := newTestService(store)
	orgID := setupOrg(store)

	if _, err := svc.CreateProject(context.Background(), orgID, "", "Harbor", uuid.Nil); !apperrors.IsKind(err, apperrors.KindBadRequest) {
		t.Errorf("expected BadRequest for empty code, got %v", err)
	}
	if _, err := svc.CreateProject(context.Background(), orgID, "SITE-01", "   ", uuid.Nil); !apperrors.IsKind(err, apperrors.KindBadRequest) {
		t.Errorf("expected BadRequest for empty name, got %v", err)
	}
}

func TestCreateProjectDuplicateCode(t *testing.T) {
	store := newMockStore()
	svc := newTestService(store)
	orgID := setupOrg(store)

	if _, err := svc.CreateProject(context.Background(), orgID, "SITE-01", "Harbor", uuid.Nil); err != nil {
		t.Fatalf("CreateProject() error: %v", err)
	}

	// Codes compare case-insensitively after normalization.
	_, err := svc.CreateProject(context.Background(), orgID, "site-01", "Different Name", uuid.Nil)
	if !apperrors.IsKind(err, apperrors.KindConflict) {
		t.Errorf("expected Conflict for duplicate code, got %v", err)
	}
}

func TestCreateProjectDuplicateName(t *testing.T) {
	store := newMockStore()
	svc := newTestService(store)
	orgID := setupOrg(store)

	if _, err := svc.CreateProject(context.Background(), orgID, "SITE-01", "Harbor Rebuild", uuid.Nil); err != nil {
		t.Fatalf("CreateProject() error: %v", err)
	}

	_, err := svc.CreateProject(context.Background(), orgID, "SITE-02", "harbor rebuild", uuid.Nil)
	if !apperrors.IsKind(err, apperrors.KindConflict) {
		t.Errorf("expected Conflict for duplicate name, got %v", err)
	}
}

func TestCreateProjectDuplicateCodeOtherOrg(t *testing.T) {
	store := newMockStore()
	svc := newTestService(store)
	orgA := setupOrg(store)
	orgB := setupOrg(store)

	if _, err := svc.CreateProject(context.Background(), orgA, "SITE-01", "Harbor", uuid.Nil); err != nil {
		t.Fatalf("CreateProject() in orgA error: %v", err)
	}

	// Uniqueness is org-scoped.
	if _, err := svc.CreateProject(context.Background(), orgB, "SITE-01", "Harbor", uuid.Nil); err != nil {
		t.Errorf("CreateProject() in orgB should succeed, got %v", err)
	}
}

func TestArchiveProjectFreesCode(t *testing.T) {
	store := newMockStore()
	svc := newTestService(store)
	orgID := setupOrg(store)

	project, err := svc.CreateProject(context.Background(), orgID, "SITE-01", "Harbor", uuid.Nil)
	if err != nil {
		t.Fatalf("CreateProject() error: %v", err)
	}
	if _, err := svc.ArchiveProject(context.Background(), orgID, project.ID, uuid.Nil); err != nil {
		t.Fatalf("ArchiveProject() error: %v", err)
	}

	// Archived records do not participate in uniqueness.
	if _, err := svc.CreateProject(context.Background(), orgID, "SITE-01", "Harbor", uuid.Nil); err != nil {
		t.Errorf("CreateProject() after archive should succeed, got %v", err)
	}
}

func TestUpdateProjectKeepsOwnCode(t *testing.T) {
	store := newMockStore()
	svc := newTestService(store)
	orgID := setupOrg(store)

	project, err := svc.CreateProject(context.Background(), orgID, "SITE-01", "Harbor", uuid.Nil)
	if err != nil {
		t.Fatalf("CreateProject() error: %v", err)
	}

	// Re-submitting the project's own code is not a conflict.
	updated, err := svc.UpdateProject(context.Background(), orgID, project.ID, "site-01", "Harbor East", uuid.Nil)
	if err != nil {
		t.Fatalf("UpdateProject() error: %v", err)
	}
	if updated.Name != "Harbor East" {
		t.Errorf("expected renamed project, got %q", updated.Name)
	}
}

func TestUpdateProjectConflictsWithOther(t *testing.T) {
	store := newMockStore()
	svc := newTestService(store)
	orgID := setupOrg(store)

	if _, err := svc.CreateProject(context.Background(), orgID, "SITE-01", "Harbor", uuid.Nil); err != nil {
		t.Fatalf("CreateProject() error: %v", err)
	}
	other, err := svc.CreateProject(context.Background(), orgID, "SITE-02", "Bridge", uuid.Nil)
	if err != nil {
		t.Fatalf("CreateProject() error: %v", err)
	}

	_, err = svc.UpdateProject(context.Background(), orgID, other.ID, "SITE-01", "", uuid.Nil)
	if !apperrors.IsKind(err, apperrors.KindConflict) {
		t.Errorf("expected Conflict for recode onto existing code, got %v", err)
	}
}

func TestLegalHoldBlocksProjectMutation(t *testing.T) {
	store := newMockStore()
	svc := newTestService(store)
	orgID := setupOrg(store)

	project, err := svc.CreateProject(context.Background(), orgID, "SITE-01", "Harbor", uuid.Nil)
	if err != nil {
		t.Fatalf("CreateProject() error: %v", err)
	}
	store.mu.Lock()
	store.projects[project.ID].LegalHold = true
	store.mu.Unlock()

	_, err = svc.UpdateProject(context.Background(), orgID, project.ID, "", "Renamed", uuid.Nil)
	if !apperrors.IsKind(err, apperrors.KindForbidden) {
		t.Errorf("expected Forbidden for legal-hold update, got %v", err)
	}

	_, err = svc.ArchiveProject(context.Background(), orgID, project.ID, uuid.Nil)
	if !apperrors.IsKind(err, apperrors.KindForbidden) {
		t.Errorf("expected Forbidden for legal-hold archive, got %v", err)
	}
}

func TestGetArchivedProjectRequiresFlag(t *testing.T) {
	store := newMockStore()
	svc := newTestService(store)
	orgID := setupOrg(store)

	project, err := svc.CreateProject(context.Background(), orgID, "SITE-01", "Harbor", uuid.Nil)
	if err != nil {
		t.Fatalf("CreateProject() error: %v", err)
	}
	if _, err := svc.ArchiveProject(context.Background(), orgID, project.ID, uuid.Nil); err != nil {
		t.Fatalf("ArchiveProject() error: %v", err)
	}

	_, err = svc.GetProject(context.Background(), orgID, project.ID, false)
	if !apperrors.IsKind(err, apperrors.KindNotFound) {
		t.Errorf("expected NotFound without includeArchived, got %v", err)
	}

	got, err := svc.GetProject(context.Background(), orgID, project.ID, true)
	if err != nil {
		t.Fatalf("GetProject() with includeArchived error: %v", err)
	}
	if !got.IsArchived() {
		t.Error("expected archived project")
	}
}

func TestCrossOrgProjectNotFound(t *testing.T) {
	store := newMockStore()
	svc := newTestService(store)
	orgA := setupOrg(store)
	orgB := setupOrg(store)

	project, err := svc.CreateProject(context.Background(), orgA, "SITE-01", "Harbor", uuid.Nil)
	if err != nil {
		t.Fatalf("CreateProject() error: %v", err)
	}

	_, err = svc.GetProject(context.Background(), orgB, project.ID, false)
	if !apperrors.IsKind(err, apperrors.KindNotFound) {
		t.Errorf("expected NotFound for cross-org project, got %v", err)
	}
}

func TestCreateCostCodeDuplicate(t *testing.T) {
	store := newMockStore()
	svc := newTestService(store)
	orgID := setupOrg(store)

	if _, err := svc.CreateCostCode(context.Background(), orgID, "LAB-100", "Labor", uuid.Nil); err != nil {
		t.Fatalf("CreateCostCode() error: %v", err)
	}

	_, err := svc.CreateCostCode(context.Background(), orgID, "lab-100", "Other", uuid.Nil)
	if !apperrors.IsKind(err, apperrors.KindConflict) {
		t.Errorf("expected Conflict for duplicate cost code, got %v", err)
	}
}

func TestArchiveCostCodeFreesCode(t *testing.T) {
	store := newMockStore()
	svc := newTestService(store)
	orgID := setupOrg(store)

	costCode, err := svc.CreateCostCode(context.Background(), orgID, "LAB-100", "Labor", uuid.Nil)
	if err != nil {
		t.Fatalf("CreateCostCode() error: %v", err)
	}
	if _, err := svc.ArchiveCostCode(context.Background(), orgID, costCode.ID, uuid.Nil); err != nil {
		t.Fatalf("ArchiveCostCode() error: %v", err)
	}

	if _, err := svc.CreateCostCode(context.Background(), orgID, "LAB-100", "Labor", uuid.Nil); err != nil {
		t.Errorf("CreateCostCode() after archive should succeed, got %v", err)
	}
}

func TestCostCodeRequiresCode(t *testing.T) {
	store := newMockStore()
	svc := newTestService(store)
	orgID := setupOrg(store)

	_, err := svc.CreateCostCode(context.Background(), orgID, "  ", "Labor", uuid.Nil)
	if !apperrors.IsKind(err, apperrors.KindBadRequest) {
		t.Errorf("expected BadRequest for empty cost code, got %v", err)
	}
}

func TestListProjectsExcludesArchived(t *testing.T) {
	store := newMockStore()
	svc := newTestService(store)
	orgID := setupOrg(store)

	active, err := svc.CreateProject(context.Background(), orgID, "SITE-01", "Harbor", uuid.Nil)
	if err != nil {
		t.Fatalf("CreateProject() error: %v", err)
	}
	archived, err := svc.CreateProject(context.Background(), orgID, "SITE-02", "Bridge", uuid.Nil)
	if err != nil {
		t.Fatalf("CreateProject() error: %v", err)
	}
	if _, err := svc.ArchiveProject(context.Background(), orgID, archived.ID, uuid.Nil); err != nil {
		t.Fatalf("ArchiveProject() error: %v", err)
	}

	projects, err := svc.ListProjects(context.Background(), orgID, false)
	if err != nil {
		t.Fatalf("ListProjects() error: %v", err)
	}
	if len(projects) != 1 || projects[0].ID != active.ID {
		t.Errorf("expected only the active project, got %d projects", len(projects))
	}

	all, err := svc.ListProjects(context.Background(), orgID, true)
	if err != nil {
		t.Fatalf("ListProjects() error: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("expected 2 projects with includeArchived, got %d", len(all))
	}
}
