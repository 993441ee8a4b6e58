// Package projects manages projects and cost codes within an organization,
// enforcing org-scoped code and name uniqueness.
package projects

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ironbeam/crewdeck/internal/apperrors"
	"github.com/ironbeam/crewdeck/internal/audit"
	"github.com/ironbeam/crewdeck/internal/db"
	"github.com/ironbeam/crewdeck/internal/models"
	"github.com/rs/zerolog"
)

// Store defines the interface for project and cost code persistence.
type Store interface {
	GetOrganizationByID(ctx context.Context, id uuid.UUID) (*models.Organization, error)

	CreateProject(ctx context.Context, p *models.Project) error
	GetProjectByID(ctx context.Context, id uuid.UUID) (*models.Project, error)
	GetProjectByCode(ctx context.Context, orgID uuid.UUID, code string) (*models.Project, error)
	GetProjectByName(ctx context.Context, orgID uuid.UUID, name string) (*models.Project, error)
	UpdateProject(ctx context.Context, p *models.Project) error
	ListProjects(ctx context.Context, orgID uuid.UUID, includeArchived bool) ([]*models.Project, error)

	CreateCostCode(ctx context.Context, c *models.CostCode) error
	GetCostCodeByID(ctx context.Context, id uuid.UUID) (*models.CostCode, error)
	GetCostCodeByCode(ctx context.Context, orgID uuid.UUID, code string) (*models.CostCode, error)
	UpdateCostCode(ctx context.Context, c *models.CostCode) error
	ListCostCodes(ctx context.Context, orgID uuid.UUID, includeArchived bool) ([]*models.CostCode, error)
}

// Service handles project and cost code operations.
type Service struct {
	store    Store
	recorder *audit.Recorder
	logger   zerolog.Logger
}

// NewService creates a new project service.
func NewService(store Store, recorder *audit.Recorder, logger zerolog.Logger) *Service {
	return &Service{
		store:    store,
		recorder: recorder,
		logger:   logger.With().Str("component", "project_service").Logger(),
	}
}

// NormalizeCode uppercases and trims a project or cost code.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// CreateProject creates a project with a unique code and name in the org.
func (s *Service) CreateProject(ctx context.Context, orgID uuid.UUID, code, name string, actorID uuid.UUID) (*models.Project, error) {
	if _, err := s.store.GetOrganizationByID(ctx, orgID); err != nil {
		if db.IsNotFound(err) {
			return nil, apperrors.NotFound("organization not found")
		}
		return nil, apperrors.Internal(err, "resolve organization")
	}

	code = NormalizeCode(code)
	name = strings.TrimSpace(name)
	if code == "" {
		return nil, apperrors.BadRequest("project code is required")
	}
	if name == "" {
		return nil, apperrors.BadRequest("project name is required")
	}

	if err := s.checkProjectUnique(ctx, orgID, uuid.Nil, code, name); err != nil {
		return nil, err
	}

	project := models.NewProject(orgID, code, name)
	if err := s.store.CreateProject(ctx, project); err != nil {
		if db.IsUniqueViolation(err) {
			return nil, apperrors.Conflict("a project with this code or name already exists")
		}
		return nil, apperrors.Internal(err, "create project")
	}

	s.logger.Info().
		Str("project_id", project.ID.String()).
		Str("org_id", orgID.String()).
		Str("code", code).
		Msg("project created")
	s.recorder.Record(orgID, actorID, models.AuditActionCreate, "project", project.ID,
		fmt.Sprintf(`{"code":%q,"name":%q}`, code, name))

	return project, nil
}

// UpdateProject renames or recodes a project. Fails with Forbidden when the
// project is on legal hold.
func (s *Service) UpdateProject(ctx context.Context, orgID, projectID uuid.UUID, code, name string, actorID uuid.UUID) (*models.Project, error) {
	project, err := s.getOrgProject(ctx, orgID, projectID, true)
	if err != nil {
		return nil, err
	}
	if project.LegalHold {
		return nil, apperrors.Forbidden("project is on legal hold")
	}
	if project.IsArchived() {
		return nil, apperrors.Conflict("cannot update an archived project")
	}

	if code != "" {
		project.Code = NormalizeCode(code)
	}
	if name != "" {
		project.Name = strings.TrimSpace(name)
	}

	if err := s.checkProjectUnique(ctx, orgID, project.ID, project.Code, project.Name); err != nil {
		return nil, err
	}

	if err := s.store.UpdateProject(ctx, project); err != nil {
		if db.IsUniqueViolation(err) {
			return nil, apperrors.Conflict("a project with this code or name already exists")
		}
		return nil, apperrors.Internal(err, "update project")
	}

	s.recorder.Record(orgID, actorID, models.AuditActionUpdate, "project", project.ID,
		fmt.Sprintf(`{"code":%q,"name":%q}`, project.Code, project.Name))
	return project, nil
}

// GetProject returns a project; archived ones require includeArchived.
func (s *Service) GetProject(ctx context.Context, orgID, projectID uuid.UUID, includeArchived bool) (*models.Project, error) {
	return s.getOrgProject(ctx, orgID, projectID, includeArchived)
}

// ListProjects returns an organization's projects.
func (s *Service) ListProjects(ctx context.Context, orgID uuid.UUID, includeArchived bool) ([]*models.Project, error) {
	projects, err := s.store.ListProjects(ctx, orgID, includeArchived)
	if err != nil {
		return nil, apperrors.Internal(err, "list projects")
	}
	return projects, nil
}

// ArchiveProject soft-deletes a project, freeing its code and name for reuse.
func (s *Service) ArchiveProject(ctx context.Context, orgID, projectID uuid.UUID, actorID uuid.UUID) (*models.Project, error) {
	project, err := s.getOrgProject(ctx, orgID, projectID, true)
	if err != nil {
		return nil, err
	}
	if project.LegalHold {
		return nil, apperrors.Forbidden("project is on legal hold")
	}
	if project.IsArchived() {
		return project, nil
	}

	now := time.Now()
	project.ArchivedAt = &now
	if err := s.store.UpdateProject(ctx, project); err != nil {
		return nil, apperrors.Internal(err, "archive project")
	}

	s.recorder.Record(orgID, actorID, models.AuditActionArchive, "project", project.ID,
		fmt.Sprintf(`{"code":%q}`, project.Code))
	return project, nil
}

// CreateCostCode creates a cost code with a unique code in the org.
func (s *Service) CreateCostCode(ctx context.Context, orgID uuid.UUID, code, description string, actorID uuid.UUID) (*models.CostCode, error) {
	if _, err := s.store.GetOrganizationByID(ctx, orgID); err != nil {
		if db.IsNotFound(err) {
			return nil, apperrors.NotFound("organization not found")
		}
		return nil, apperrors.Internal(err, "resolve organization")
	}

	code = NormalizeCode(code)
	if code == "" {
		return nil, apperrors.BadRequest("cost code is required")
	}

	if other, err := s.store.GetCostCodeByCode(ctx, orgID, code); err == nil && other != nil {
		return nil, apperrors.Conflict("cost code %s already exists", code)
	} else if err != nil && !db.IsNotFound(err) {
		return nil, apperrors.Internal(err, "check cost code uniqueness")
	}

	costCode := models.NewCostCode(orgID, code, strings.TrimSpace(description))
	if err := s.store.CreateCostCode(ctx, costCode); err != nil {
		if db.IsUniqueViolation(err) {
			return nil, apperrors.Conflict("cost code %s already exists", code)
		}
		return nil, apperrors.Internal(err, "create cost code")
	}

	s.recorder.Record(orgID, actorID, models.AuditActionCreate, "cost_code", costCode.ID,
		fmt.Sprintf(`{"code":%q}`, code))
	return costCode, nil
}

// ListCostCodes returns an organization's cost codes.
func (s *Service) ListCostCodes(ctx context.Context, orgID uuid.UUID, includeArchived bool) ([]*models.CostCode, error) {
	codes, err := s.store.ListCostCodes(ctx, orgID, includeArchived)
	if err != nil {
		return nil, apperrors.Internal(err, "list cost codes")
	}
	return codes, nil
}

// ArchiveCostCode soft-deletes a cost code.
func (s *Service) ArchiveCostCode(ctx context.Context, orgID, costCodeID uuid.UUID, actorID uuid.UUID) (*models.CostCode, error) {
	costCode, err := s.store.GetCostCodeByID(ctx, costCodeID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, apperrors.NotFound("cost code not found")
		}
		return nil, apperrors.Internal(err, "get cost code")
	}
	if costCode.OrgID != orgID {
		return nil, apperrors.NotFound("cost code not found")
	}
	if costCode.IsArchived() {
		return costCode, nil
	}

	now := time.Now()
	costCode.ArchivedAt = &now
	if err := s.store.UpdateCostCode(ctx, costCode); err != nil {
		return nil, apperrors.Internal(err, "archive cost code")
	}

	s.recorder.Record(orgID, actorID, models.AuditActionArchive, "cost_code", costCode.ID,
		fmt.Sprintf(`{"code":%q}`, costCode.Code))
	return costCode, nil
}

// checkProjectUnique enforces code and name uniqueness among other
// non-archived projects of the org.
func (s *Service) checkProjectUnique(ctx context.Context, orgID, selfID uuid.UUID, code, name string) error {
	if other, err := s.store.GetProjectByCode(ctx, orgID, code); err == nil && other.ID != selfID {
		return apperrors.Conflict("a project with code %s already exists", code)
	} else if err != nil && !db.IsNotFound(err) {
		return apperrors.Internal(err, "check project code uniqueness")
	}
	if other, err := s.store.GetProjectByName(ctx, orgID, name); err == nil && other.ID != selfID {
		return apperrors.Conflict("a project named %s already exists", name)
	} else if err != nil && !db.IsNotFound(err) {
		return apperrors.Internal(err, "check project name uniqueness")
	}
	return nil
}

// getOrgProject loads a project and verifies org scope. Cross-org and
// archived-without-flag lookups both report NotFound.
func (s *Service) getOrgProject(ctx context.Context, orgID, projectID uuid.UUID, includeArchived bool) (*models.Project, error) {
	project, err := s.store.GetProjectByID(ctx, projectID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, apperrors.NotFound("project not found")
		}
		return nil, apperrors.Internal(err, "get project")
	}
	if project.OrgID != orgID {
		return nil, apperrors.NotFound("project not found")
	}
	if project.IsArchived() && !includeArchived {
		return nil, apperrors.NotFound("project not found")
	}
	return project, nil
}
