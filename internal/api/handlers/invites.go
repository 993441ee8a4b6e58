package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/ironbeam/crewdeck/internal/api/middleware"
	"github.com/ironbeam/crewdeck/internal/auth"
	"github.com/ironbeam/crewdeck/internal/invites"
	"github.com/ironbeam/crewdeck/internal/models"
	"github.com/rs/zerolog"
)

// InviteService defines the invitation operations the handler exposes.
type InviteService interface {
	Create(ctx context.Context, req invites.CreateRequest) (*models.Invite, string, error)
	Resend(ctx context.Context, inviteID, orgID, actorID uuid.UUID) (*models.Invite, error)
	Cancel(ctx context.Context, inviteID, orgID, actorID uuid.UUID) error
	Accept(ctx context.Context, token string, userID uuid.UUID) (*models.Organization, error)
	List(ctx context.Context, orgID uuid.UUID) ([]*models.InviteWithDetails, error)
	InviteLink(token string) string
}

// InviteHandler handles invitation endpoints.
type InviteHandler struct {
	service InviteService
	rbac    *auth.RBAC
	logger  zerolog.Logger
}

// NewInviteHandler creates a new invite handler.
func NewInviteHandler(service InviteService, rbac *auth.RBAC, logger zerolog.Logger) *InviteHandler {
	return &InviteHandler{
		service: service,
		rbac:    rbac,
		logger:  logger.With().Str("component", "invite_handler").Logger(),
	}
}

// RegisterRoutes registers invite routes on the given router group.
func (h *InviteHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/orgs/:orgID/invites", h.Create)
	r.GET("/orgs/:orgID/invites", h.List)
	r.POST("/orgs/:orgID/invites/:inviteID/resend", h.Resend)
	r.DELETE("/orgs/:orgID/invites/:inviteID", h.Cancel)
	r.POST("/invites/accept", h.Accept)
}

// Create issues a new invitation for a person. The single-use token is only
// returned here; the server keeps just its hash.
func (h *InviteHandler) Create(c *gin.Context) {
	actor, ok := orgActor(c, h.rbac, h.logger)
	if !ok {
		return
	}
	if err := auth.EnsureRole(actor, auth.PermMemberInvite); err != nil {
		respondError(c, h.logger, err)
		return
	}

	var req invites.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}
	req.OrgID = actor.OrgID
	req.InvitedBy = actor.UserID

	invite, token, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"invite":      invite,
		"invite_link": h.service.InviteLink(token),
	})
}

// List returns the organization's invites with person and inviter details.
func (h *InviteHandler) List(c *gin.Context) {
	actor, ok := orgActor(c, h.rbac, h.logger)
	if !ok {
		return
	}
	if err := auth.EnsureRole(actor, auth.PermMemberRead); err != nil {
		respondError(c, h.logger, err)
		return
	}

	list, err := h.service.List(c.Request.Context(), actor.OrgID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"invites": list})
}

// Resend rotates a pending invite's token and re-sends the email.
func (h *InviteHandler) Resend(c *gin.Context) {
	actor, ok := orgActor(c, h.rbac, h.logger)
	if !ok {
		return
	}
	if err := auth.EnsureRole(actor, auth.PermMemberInvite); err != nil {
		respondError(c, h.logger, err)
		return
	}
	inviteID, ok := parseUUIDParam(c, "inviteID")
	if !ok {
		return
	}

	invite, err := h.service.Resend(c.Request.Context(), inviteID, actor.OrgID, actor.UserID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, invite)
}

// Cancel revokes a pending invite.
func (h *InviteHandler) Cancel(c *gin.Context) {
	actor, ok := orgActor(c, h.rbac, h.logger)
	if !ok {
		return
	}
	if err := auth.EnsureRole(actor, auth.PermMemberInvite); err != nil {
		respondError(c, h.logger, err)
		return
	}
	inviteID, ok := parseUUIDParam(c, "inviteID")
	if !ok {
		return
	}

	if err := h.service.Cancel(c.Request.Context(), inviteID, actor.OrgID, actor.UserID); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type acceptInviteRequest struct {
	Token string `json:"token" binding:"required"`
}

// Accept redeems an invite token for the authenticated user. No org scope:
// the invite itself names the organization being joined.
func (h *InviteHandler) Accept(c *gin.Context) {
	user := middleware.RequireUser(c)
	if user == nil {
		return
	}

	var req acceptInviteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}

	org, err := h.service.Accept(c.Request.Context(), req.Token, user.ID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"organization": org})
}
