package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/ironbeam/crewdeck/internal/auth"
	"github.com/ironbeam/crewdeck/internal/models"
	"github.com/ironbeam/crewdeck/internal/people"
	"github.com/rs/zerolog"
)

// PersonService defines the person roster operations the handler exposes.
type PersonService interface {
	Create(ctx context.Context, orgID uuid.UUID, req people.CreateRequest, actorID uuid.UUID) (*models.Person, error)
	Update(ctx context.Context, orgID, personID uuid.UUID, req people.UpdateRequest, actorID uuid.UUID) (*models.Person, error)
	Get(ctx context.Context, orgID, personID uuid.UUID, includeArchived bool) (*models.Person, error)
	List(ctx context.Context, orgID uuid.UUID, includeArchived bool) ([]*models.Person, error)
	Archive(ctx context.Context, orgID, personID uuid.UUID, actorID uuid.UUID) (*models.Person, error)
	Unarchive(ctx context.Context, orgID, personID uuid.UUID, actorID uuid.UUID) (*models.Person, error)
	SetLegalHold(ctx context.Context, orgID, personID uuid.UUID, hold bool, actorID uuid.UUID) (*models.Person, error)
}

// PersonHandler handles person roster endpoints.
type PersonHandler struct {
	service PersonService
	rbac    *auth.RBAC
	logger  zerolog.Logger
}

// NewPersonHandler creates a new person handler.
func NewPersonHandler(service PersonService, rbac *auth.RBAC, logger zerolog.Logger) *PersonHandler {
	return &PersonHandler{
		service: service,
		rbac:    rbac,
		logger:  logger.With().Str("component", "person_handler").Logger(),
	}
}

// RegisterRoutes registers person routes on the given router group.
func (h *PersonHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/orgs/:orgID/people", h.Create)
	r.GET("/orgs/:orgID/people", h.List)
	r.GET("/orgs/:orgID/people/:personID", h.Get)
	r.PATCH("/orgs/:orgID/people/:personID", h.Update)
	r.POST("/orgs/:orgID/people/:personID/archive", h.Archive)
	r.POST("/orgs/:orgID/people/:personID/unarchive", h.Unarchive)
	r.POST("/orgs/:orgID/people/:personID/legal-hold", h.SetLegalHold)
}

// Create adds a person to the organization roster.
func (h *PersonHandler) Create(c *gin.Context) {
	actor, ok := orgActor(c, h.rbac, h.logger)
	if !ok {
		return
	}
	if err := auth.EnsureRole(actor, auth.PermPersonWrite); err != nil {
		respondError(c, h.logger, err)
		return
	}

	var req people.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}

	person, err := h.service.Create(c.Request.Context(), actor.OrgID, req, actor.UserID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, person)
}

// List returns the roster, excluding archived people unless
// ?include_archived=true.
func (h *PersonHandler) List(c *gin.Context) {
	actor, ok := orgActor(c, h.rbac, h.logger)
	if !ok {
		return
	}
	if err := auth.EnsureRole(actor, auth.PermPersonRead); err != nil {
		respondError(c, h.logger, err)
		return
	}

	list, err := h.service.List(c.Request.Context(), actor.OrgID, c.Query("include_archived") == "true")
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"people": list})
}

// Get returns a single person.
func (h *PersonHandler) Get(c *gin.Context) {
	actor, ok := orgActor(c, h.rbac, h.logger)
	if !ok {
		return
	}
	if err := auth.EnsureRole(actor, auth.PermPersonRead); err != nil {
		respondError(c, h.logger, err)
		return
	}
	personID, ok := parseUUIDParam(c, "personID")
	if !ok {
		return
	}

	person, err := h.service.Get(c.Request.Context(), actor.OrgID, personID, c.Query("include_archived") == "true")
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, person)
}

// Update changes a person's details. Absent fields are left unchanged.
func (h *PersonHandler) Update(c *gin.Context) {
	actor, ok := orgActor(c, h.rbac, h.logger)
	if !ok {
		return
	}
	if err := auth.EnsureRole(actor, auth.PermPersonWrite); err != nil {
		respondError(c, h.logger, err)
		return
	}
	personID, ok := parseUUIDParam(c, "personID")
	if !ok {
		return
	}

	var req people.UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}

	person, err := h.service.Update(c.Request.Context(), actor.OrgID, personID, req, actor.UserID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, person)
}

// Archive soft-deletes a person from the roster.
func (h *PersonHandler) Archive(c *gin.Context) {
	h.setArchived(c, true)
}

// Unarchive restores an archived person.
func (h *PersonHandler) Unarchive(c *gin.Context) {
	h.setArchived(c, false)
}

func (h *PersonHandler) setArchived(c *gin.Context, archived bool) {
	actor, ok := orgActor(c, h.rbac, h.logger)
	if !ok {
		return
	}
	if err := auth.EnsureRole(actor, auth.PermPersonWrite); err != nil {
		respondError(c, h.logger, err)
		return
	}
	personID, ok := parseUUIDParam(c, "personID")
	if !ok {
		return
	}

	var person *models.Person
	var err error
	if archived {
		person, err = h.service.Archive(c.Request.Context(), actor.OrgID, personID, actor.UserID)
	} else {
		person, err = h.service.Unarchive(c.Request.Context(), actor.OrgID, personID, actor.UserID)
	}
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, person)
}

type legalHoldRequest struct {
	Hold *bool `json:"hold" binding:"required"`
}

// SetLegalHold places or lifts a legal hold on a person. Held records cannot
// be modified or archived. Owner or admin only.
func (h *PersonHandler) SetLegalHold(c *gin.Context) {
	actor, ok := orgActor(c, h.rbac, h.logger)
	if !ok {
		return
	}
	if err := auth.EnsureRole(actor, auth.PermOrgUpdate); err != nil {
		respondError(c, h.logger, err)
		return
	}
	personID, ok := parseUUIDParam(c, "personID")
	if !ok {
		return
	}

	var req legalHoldRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}

	person, err := h.service.SetLegalHold(c.Request.Context(), actor.OrgID, personID, *req.Hold, actor.UserID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, person)
}
