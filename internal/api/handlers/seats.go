package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/ironbeam/crewdeck/internal/apperrors"
	"github.com/ironbeam/crewdeck/internal/auth"
	"github.com/ironbeam/crewdeck/internal/models"
	"github.com/rs/zerolog"
)

// SeatService defines the seat pool operations the handler exposes.
type SeatService interface {
	AllocateSeat(ctx context.Context, orgID, userID uuid.UUID, role string, projectID *uuid.UUID, actorID uuid.UUID) (*models.Seat, error)
	ReleaseSeatForUser(ctx context.Context, orgID, userID uuid.UUID, actorID uuid.UUID) (*models.Seat, error)
	AssignSeatToProject(ctx context.Context, orgID, seatID, projectID uuid.UUID, role string, actorID uuid.UUID) (*models.Seat, error)
	ClearSeatProject(ctx context.Context, orgID, seatID, projectID uuid.UUID, actorID uuid.UUID) (*models.Seat, error)
	Summary(ctx context.Context, orgID uuid.UUID) (*models.SeatSummary, error)
	List(ctx context.Context, orgID uuid.UUID, status models.SeatStatus) ([]*models.Seat, error)
	History(ctx context.Context, orgID, seatID uuid.UUID) ([]*models.SeatHistoryEntry, error)
}

// SeatHandler handles seat pool endpoints.
type SeatHandler struct {
	service SeatService
	rbac    *auth.RBAC
	logger  zerolog.Logger
}

// NewSeatHandler creates a new seat handler.
func NewSeatHandler(service SeatService, rbac *auth.RBAC, logger zerolog.Logger) *SeatHandler {
	return &SeatHandler{
		service: service,
		rbac:    rbac,
		logger:  logger.With().Str("component", "seat_handler").Logger(),
	}
}

// RegisterRoutes registers seat routes on the given router group.
func (h *SeatHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/orgs/:orgID/seats", h.List)
	r.GET("/orgs/:orgID/seats/summary", h.Summary)
	r.POST("/orgs/:orgID/seats/allocate", h.Allocate)
	r.POST("/orgs/:orgID/seats/release", h.Release)
	r.POST("/orgs/:orgID/seats/:seatID/assign", h.Assign)
	r.POST("/orgs/:orgID/seats/:seatID/clear", h.Clear)
	r.GET("/orgs/:orgID/seats/:seatID/history", h.History)
}

// List returns the organization's seats, optionally filtered by ?status=.
func (h *SeatHandler) List(c *gin.Context) {
	actor, ok := orgActor(c, h.rbac, h.logger)
	if !ok {
		return
	}
	if err := auth.EnsureRole(actor, auth.PermSeatRead); err != nil {
		respondError(c, h.logger, err)
		return
	}

	status := models.SeatStatus(c.Query("status"))
	if status != "" && status != models.SeatStatusVacant && status != models.SeatStatusActive {
		respondError(c, h.logger, apperrors.BadRequest("unknown seat status %q", status))
		return
	}

	seats, err := h.service.List(c.Request.Context(), actor.OrgID, status)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"seats": seats})
}

// Summary returns derived seat counts for the organization.
func (h *SeatHandler) Summary(c *gin.Context) {
	actor, ok := orgActor(c, h.rbac, h.logger)
	if !ok {
		return
	}
	if err := auth.EnsureRole(actor, auth.PermSeatRead); err != nil {
		respondError(c, h.logger, err)
		return
	}

	summary, err := h.service.Summary(c.Request.Context(), actor.OrgID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

type allocateSeatRequest struct {
	UserID    uuid.UUID  `json:"user_id" binding:"required"`
	Role      string     `json:"role,omitempty"`
	ProjectID *uuid.UUID `json:"project_id,omitempty"`
}

// Allocate assigns the lowest-numbered vacant seat to a user.
func (h *SeatHandler) Allocate(c *gin.Context) {
	actor, ok := orgActor(c, h.rbac, h.logger)
	if !ok {
		return
	}
	if err := auth.EnsureRole(actor, auth.PermSeatAllocate); err != nil {
		respondError(c, h.logger, err)
		return
	}

	var req allocateSeatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}

	seat, err := h.service.AllocateSeat(c.Request.Context(), actor.OrgID, req.UserID, req.Role, req.ProjectID, actor.UserID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, seat)
}

type releaseSeatRequest struct {
	UserID uuid.UUID `json:"user_id" binding:"required"`
}

// Release returns a user's seat to the vacant pool. Releasing a user who
// holds no seat is a no-op.
func (h *SeatHandler) Release(c *gin.Context) {
	actor, ok := orgActor(c, h.rbac, h.logger)
	if !ok {
		return
	}
	if err := auth.EnsureRole(actor, auth.PermSeatRelease); err != nil {
		respondError(c, h.logger, err)
		return
	}

	var req releaseSeatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}

	seat, err := h.service.ReleaseSeatForUser(c.Request.Context(), actor.OrgID, req.UserID, actor.UserID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	if seat == nil {
		c.JSON(http.StatusOK, gin.H{"released": false})
		return
	}
	c.JSON(http.StatusOK, seat)
}

type assignSeatRequest struct {
	ProjectID uuid.UUID `json:"project_id" binding:"required"`
	Role      string    `json:"role,omitempty"`
}

// Assign points an active seat at a project.
func (h *SeatHandler) Assign(c *gin.Context) {
	actor, ok := orgActor(c, h.rbac, h.logger)
	if !ok {
		return
	}
	if err := auth.EnsureRole(actor, auth.PermSeatAssign); err != nil {
		respondError(c, h.logger, err)
		return
	}
	seatID, ok := parseUUIDParam(c, "seatID")
	if !ok {
		return
	}

	var req assignSeatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}

	seat, err := h.service.AssignSeatToProject(c.Request.Context(), actor.OrgID, seatID, req.ProjectID, req.Role, actor.UserID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, seat)
}

type clearSeatRequest struct {
	ProjectID uuid.UUID `json:"project_id" binding:"required"`
}

// Clear detaches a seat from a project.
func (h *SeatHandler) Clear(c *gin.Context) {
	actor, ok := orgActor(c, h.rbac, h.logger)
	if !ok {
		return
	}
	if err := auth.EnsureRole(actor, auth.PermSeatAssign); err != nil {
		respondError(c, h.logger, err)
		return
	}
	seatID, ok := parseUUIDParam(c, "seatID")
	if !ok {
		return
	}

	var req clearSeatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}

	seat, err := h.service.ClearSeatProject(c.Request.Context(), actor.OrgID, seatID, req.ProjectID, actor.UserID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, seat)
}

// History returns a seat's assignment history, newest first.
func (h *SeatHandler) History(c *gin.Context) {
	actor, ok := orgActor(c, h.rbac, h.logger)
	if !ok {
		return
	}
	if err := auth.EnsureRole(actor, auth.PermSeatRead); err != nil {
		respondError(c, h.logger, err)
		return
	}
	seatID, ok := parseUUIDParam(c, "seatID")
	if !ok {
		return
	}

	entries, err := h.service.History(c.Request.Context(), actor.OrgID, seatID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"history": entries})
}
