package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/ironbeam/crewdeck/internal/apperrors"
	"github.com/ironbeam/crewdeck/internal/auth"
	"github.com/ironbeam/crewdeck/internal/models"
	"github.com/ironbeam/crewdeck/internal/timesheets"
	"github.com/rs/zerolog"
)

// workDateLayout is the wire format for work dates and range filters.
const workDateLayout = "2006-01-02"

// TimesheetService defines the timesheet operations the handler exposes.
type TimesheetService interface {
	Create(ctx context.Context, orgID uuid.UUID, req timesheets.CreateRequest, actorID uuid.UUID) (*models.TimesheetEntry, error)
	Submit(ctx context.Context, orgID, entryID uuid.UUID, actorID uuid.UUID) (*models.TimesheetEntry, error)
	Approve(ctx context.Context, orgID, entryID uuid.UUID, note string, deciderID uuid.UUID) (*models.TimesheetEntry, error)
	Reject(ctx context.Context, orgID, entryID uuid.UUID, note string, deciderID uuid.UUID) (*models.TimesheetEntry, error)
	Get(ctx context.Context, orgID, entryID uuid.UUID) (*models.TimesheetEntry, error)
	List(ctx context.Context, orgID, personID uuid.UUID, from, to time.Time) ([]*models.TimesheetEntry, error)
	ListPending(ctx context.Context, orgID uuid.UUID) ([]*models.TimesheetEntry, error)
}

// TimesheetHandler handles timesheet endpoints.
type TimesheetHandler struct {
	service TimesheetService
	rbac    *auth.RBAC
	logger  zerolog.Logger
}

// NewTimesheetHandler creates a new timesheet handler.
func NewTimesheetHandler(service TimesheetService, rbac *auth.RBAC, logger zerolog.Logger) *TimesheetHandler {
	return &TimesheetHandler{
		service: service,
		rbac:    rbac,
		logger:  logger.With().Str("component", "timesheet_handler").Logger(),
	}
}

// RegisterRoutes registers timesheet routes on the given router group.
func (h *TimesheetHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/orgs/:orgID/timesheets", h.Create)
	r.GET("/orgs/:orgID/timesheets", h.List)
	r.GET("/orgs/:orgID/timesheets/pending", h.ListPending)
	r.GET("/orgs/:orgID/timesheets/:entryID", h.Get)
	r.POST("/orgs/:orgID/timesheets/:entryID/submit", h.Submit)
	r.POST("/orgs/:orgID/timesheets/:entryID/approve", h.Approve)
	r.POST("/orgs/:orgID/timesheets/:entryID/reject", h.Reject)
}

type createTimesheetRequest struct {
	PersonID   uuid.UUID  `json:"person_id" binding:"required"`
	ProjectID  *uuid.UUID `json:"project_id,omitempty"`
	CostCodeID *uuid.UUID `json:"cost_code_id,omitempty"`
	WorkDate   string     `json:"work_date" binding:"required"`
	RowNumber  int        `json:"row_number" binding:"required"`
	Hours      float64    `json:"hours" binding:"required"`
	Notes      string     `json:"notes,omitempty"`
}

// Create adds a draft timesheet entry for a person.
func (h *TimesheetHandler) Create(c *gin.Context) {
	actor, ok := orgActor(c, h.rbac, h.logger)
	if !ok {
		return
	}
	if err := auth.EnsureRole(actor, auth.PermTimesheetSubmit); err != nil {
		respondError(c, h.logger, err)
		return
	}

	var req createTimesheetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}
	workDate, err := time.Parse(workDateLayout, req.WorkDate)
	if err != nil {
		respondError(c, h.logger, apperrors.BadRequest("work_date must be formatted as %s", workDateLayout))
		return
	}

	entry, err := h.service.Create(c.Request.Context(), actor.OrgID, timesheets.CreateRequest{
		PersonID:   req.PersonID,
		ProjectID:  req.ProjectID,
		CostCodeID: req.CostCodeID,
		WorkDate:   workDate,
		RowNumber:  req.RowNumber,
		Hours:      req.Hours,
		Notes:      req.Notes,
	}, actor.UserID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, entry)
}

// List returns a person's entries within an optional ?from= / ?to= work date
// range.
func (h *TimesheetHandler) List(c *gin.Context) {
	actor, ok := orgActor(c, h.rbac, h.logger)
	if !ok {
		return
	}
	if err := auth.EnsureRole(actor, auth.PermTimesheetRead); err != nil {
		respondError(c, h.logger, err)
		return
	}

	personID, err := uuid.Parse(c.Query("person_id"))
	if err != nil {
		respondError(c, h.logger, apperrors.BadRequest("person_id query parameter is required"))
		return
	}

	from, to, err := parseDateRange(c.Query("from"), c.Query("to"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	entries, err := h.service.List(c.Request.Context(), actor.OrgID, personID, from, to)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries})
}

// ListPending returns submitted entries awaiting a decision, oldest first.
func (h *TimesheetHandler) ListPending(c *gin.Context) {
	actor, ok := orgActor(c, h.rbac, h.logger)
	if !ok {
		return
	}
	if err := auth.EnsureRole(actor, auth.PermTimesheetApprove); err != nil {
		respondError(c, h.logger, err)
		return
	}

	entries, err := h.service.ListPending(c.Request.Context(), actor.OrgID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries})
}

// Get returns a single timesheet entry.
func (h *TimesheetHandler) Get(c *gin.Context) {
	actor, ok := orgActor(c, h.rbac, h.logger)
	if !ok {
		return
	}
	if err := auth.EnsureRole(actor, auth.PermTimesheetRead); err != nil {
		respondError(c, h.logger, err)
		return
	}
	entryID, ok := parseUUIDParam(c, "entryID")
	if !ok {
		return
	}

	entry, err := h.service.Get(c.Request.Context(), actor.OrgID, entryID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, entry)
}

// Submit moves a draft or rejected entry into the approval queue.
func (h *TimesheetHandler) Submit(c *gin.Context) {
	actor, ok := orgActor(c, h.rbac, h.logger)
	if !ok {
		return
	}
	if err := auth.EnsureRole(actor, auth.PermTimesheetSubmit); err != nil {
		respondError(c, h.logger, err)
		return
	}
	entryID, ok := parseUUIDParam(c, "entryID")
	if !ok {
		return
	}

	entry, err := h.service.Submit(c.Request.Context(), actor.OrgID, entryID, actor.UserID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, entry)
}

type decisionRequest struct {
	Note string `json:"note,omitempty"`
}

// Approve approves a submitted entry.
func (h *TimesheetHandler) Approve(c *gin.Context) {
	h.decide(c, h.service.Approve)
}

// Reject rejects a submitted entry.
func (h *TimesheetHandler) Reject(c *gin.Context) {
	h.decide(c, h.service.Reject)
}

func (h *TimesheetHandler) decide(c *gin.Context, fn func(ctx context.Context, orgID, entryID uuid.UUID, note string, deciderID uuid.UUID) (*models.TimesheetEntry, error)) {
	actor, ok := orgActor(c, h.rbac, h.logger)
	if !ok {
		return
	}
	if err := auth.EnsureRole(actor, auth.PermTimesheetApprove); err != nil {
		respondError(c, h.logger, err)
		return
	}
	entryID, ok := parseUUIDParam(c, "entryID")
	if !ok {
		return
	}

	var req decisionRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
			return
		}
	}

	entry, err := fn(c.Request.Context(), actor.OrgID, entryID, req.Note, actor.UserID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, entry)
}

// parseDateRange parses optional from/to filters. Absent bounds default to an
// open range.
func parseDateRange(fromStr, toStr string) (time.Time, time.Time, error) {
	from := time.Time{}
	to := time.Date(9999, 12, 31, 0, 0, 0, 0, time.UTC)

	if fromStr != "" {
		parsed, err := time.Parse(workDateLayout, fromStr)
		if err != nil {
			return from, to, apperrors.BadRequest("from must be formatted as %s", workDateLayout)
		}
		from = parsed
	}
	if toStr != "" {
		parsed, err := time.Parse(workDateLayout, toStr)
		if err != nil {
			return from, to, apperrors.BadRequest("to must be formatted as %s", workDateLayout)
		}
		to = parsed
	}
	if !to.Before(from) {
		return from, to, nil
	}
	return from, to, apperrors.BadRequest("from must not be after to")
}
