package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/ironbeam/crewdeck/internal/auth"
	"github.com/ironbeam/crewdeck/internal/models"
	"github.com/rs/zerolog"
)

// ProjectService defines the project and cost code operations the handler
// exposes.
type ProjectService interface {
	CreateProject(ctx context.Context, orgID uuid.UUID, code, name string, actorID uuid.UUID) (*models.Project, error)
	UpdateProject(ctx context.Context, orgID, projectID uuid.UUID, code, name string, actorID uuid.UUID) (*models.Project, error)
	GetProject(ctx context.Context, orgID, projectID uuid.UUID, includeArchived bool) (*models.Project, error)
	ListProjects(ctx context.Context, orgID uuid.UUID, includeArchived bool) ([]*models.Project, error)
	ArchiveProject(ctx context.Context, orgID, projectID uuid.UUID, actorID uuid.UUID) (*models.Project, error)
	CreateCostCode(ctx context.Context, orgID uuid.UUID, code, description string, actorID uuid.UUID) (*models.CostCode, error)
	ListCostCodes(ctx context.Context, orgID uuid.UUID, includeArchived bool) ([]*models.CostCode, error)
	ArchiveCostCode(ctx context.Context, orgID, costCodeID uuid.UUID, actorID uuid.UUID) (*models.CostCode, error)
}

// ProjectHandler handles project and cost code endpoints.
type ProjectHandler struct {
	service ProjectService
	rbac    *auth.RBAC
	logger  zerolog.Logger
}

// NewProjectHandler creates a new project handler.
func NewProjectHandler(service ProjectService, rbac *auth.RBAC, logger zerolog.Logger) *ProjectHandler {
	return &ProjectHandler{
		service: service,
		rbac:    rbac,
		logger:  logger.With().Str("component", "project_handler").Logger(),
	}
}

// RegisterRoutes registers project and cost code routes on the given group.
func (h *ProjectHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/orgs/:orgID/projects", h.CreateProject)
	r.GET("/orgs/:orgID/projects", h.ListProjects)
	r.GET("/orgs/:orgID/projects/:projectID", h.GetProject)
	r.PATCH("/orgs/:orgID/projects/:projectID", h.UpdateProject)
	r.POST("/orgs/:orgID/projects/:projectID/archive", h.ArchiveProject)
	r.POST("/orgs/:orgID/cost-codes", h.CreateCostCode)
	r.GET("/orgs/:orgID/cost-codes", h.ListCostCodes)
	r.POST("/orgs/:orgID/cost-codes/:costCodeID/archive", h.ArchiveCostCode)
}

type projectRequest struct {
	Code string `json:"code,omitempty"`
	Name string `json:"name,omitempty"`
}

// CreateProject adds a project to the organization.
func (h *ProjectHandler) CreateProject(c *gin.Context) {
	actor, ok := orgActor(c, h.rbac, h.logger)
	if !ok {
		return
	}
	if err := auth.EnsureRole(actor, auth.PermProjectWrite); err != nil {
		respondError(c, h.logger, err)
		return
	}

	var req projectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}

	project, err := h.service.CreateProject(c.Request.Context(), actor.OrgID, req.Code, req.Name, actor.UserID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, project)
}

// ListProjects returns the organization's projects, excluding archived ones
// unless ?include_archived=true.
func (h *ProjectHandler) ListProjects(c *gin.Context) {
	actor, ok := orgActor(c, h.rbac, h.logger)
	if !ok {
		return
	}
	if err := auth.EnsureRole(actor, auth.PermProjectRead); err != nil {
		respondError(c, h.logger, err)
		return
	}

	list, err := h.service.ListProjects(c.Request.Context(), actor.OrgID, c.Query("include_archived") == "true")
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"projects": list})
}

// GetProject returns a single project.
func (h *ProjectHandler) GetProject(c *gin.Context) {
	actor, ok := orgActor(c, h.rbac, h.logger)
	if !ok {
		return
	}
	if err := auth.EnsureRole(actor, auth.PermProjectRead); err != nil {
		respondError(c, h.logger, err)
		return
	}
	projectID, ok := parseUUIDParam(c, "projectID")
	if !ok {
		return
	}

	project, err := h.service.GetProject(c.Request.Context(), actor.OrgID, projectID, c.Query("include_archived") == "true")
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, project)
}

// UpdateProject changes a project's code or name. Empty fields are left
// unchanged.
func (h *ProjectHandler) UpdateProject(c *gin.Context) {
	actor, ok := orgActor(c, h.rbac, h.logger)
	if !ok {
		return
	}
	if err := auth.EnsureRole(actor, auth.PermProjectWrite); err != nil {
		respondError(c, h.logger, err)
		return
	}
	projectID, ok := parseUUIDParam(c, "projectID")
	if !ok {
		return
	}

	var req projectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}

	project, err := h.service.UpdateProject(c.Request.Context(), actor.OrgID, projectID, req.Code, req.Name, actor.UserID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, project)
}

// ArchiveProject soft-deletes a project, freeing its code and name for reuse.
func (h *ProjectHandler) ArchiveProject(c *gin.Context) {
	actor, ok := orgActor(c, h.rbac, h.logger)
	if !ok {
		return
	}
	if err := auth.EnsureRole(actor, auth.PermProjectWrite); err != nil {
		respondError(c, h.logger, err)
		return
	}
	projectID, ok := parseUUIDParam(c, "projectID")
	if !ok {
		return
	}

	project, err := h.service.ArchiveProject(c.Request.Context(), actor.OrgID, projectID, actor.UserID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, project)
}

type costCodeRequest struct {
	Code        string `json:"code" binding:"required"`
	Description string `json:"description,omitempty"`
}

// CreateCostCode adds a cost code to the organization.
func (h *ProjectHandler) CreateCostCode(c *gin.Context) {
	actor, ok := orgActor(c, h.rbac, h.logger)
	if !ok {
		return
	}
	if err := auth.EnsureRole(actor, auth.PermProjectWrite); err != nil {
		respondError(c, h.logger, err)
		return
	}

	var req costCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}

	costCode, err := h.service.CreateCostCode(c.Request.Context(), actor.OrgID, req.Code, req.Description, actor.UserID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, costCode)
}

// ListCostCodes returns the organization's cost codes.
func (h *ProjectHandler) ListCostCodes(c *gin.Context) {
	actor, ok := orgActor(c, h.rbac, h.logger)
	if !ok {
		return
	}
	if err := auth.EnsureRole(actor, auth.PermProjectRead); err != nil {
		respondError(c, h.logger, err)
		return
	}

	list, err := h.service.ListCostCodes(c.Request.Context(), actor.OrgID, c.Query("include_archived") == "true")
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"cost_codes": list})
}

// ArchiveCostCode soft-deletes a cost code.
func (h *ProjectHandler) ArchiveCostCode(c *gin.Context) {
	actor, ok := orgActor(c, h.rbac, h.logger)
	if !ok {
		return
	}
	if err := auth.EnsureRole(actor, auth.PermProjectWrite); err != nil {
		respondError(c, h.logger, err)
		return
	}
	costCodeID, ok := parseUUIDParam(c, "costCodeID")
	if !ok {
		return
	}

	costCode, err := h.service.ArchiveCostCode(c.Request.Context(), actor.OrgID, costCodeID, actor.UserID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, costCode)
}
