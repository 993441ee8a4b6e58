package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/ironbeam/crewdeck/internal/api/middleware"
	"github.com/ironbeam/crewdeck/internal/apperrors"
	"github.com/ironbeam/crewdeck/internal/audit"
	"github.com/ironbeam/crewdeck/internal/auth"
	"github.com/ironbeam/crewdeck/internal/db"
	"github.com/ironbeam/crewdeck/internal/models"
	"github.com/rs/zerolog"
)

// OrganizationStore defines the persistence operations the organization
// handler needs.
type OrganizationStore interface {
	CreateOrganization(ctx context.Context, org *models.Organization) error
	GetOrganizationByID(ctx context.Context, id uuid.UUID) (*models.Organization, error)
	GetAllOrganizations(ctx context.Context) ([]*models.Organization, error)
	UpdateOrganization(ctx context.Context, org *models.Organization) error

	CreateMembership(ctx context.Context, m *models.OrgMembership) error
	GetMembership(ctx context.Context, userID, orgID uuid.UUID) (*models.OrgMembership, error)
	ListMemberships(ctx context.Context, orgID uuid.UUID) ([]*models.OrgMembershipWithUser, error)
	UpdateMembershipRole(ctx context.Context, id uuid.UUID, role models.OrgRole) error
	DeleteMembership(ctx context.Context, id uuid.UUID) error
}

// SeatProvisioner seeds an organization's seat pool. Implemented by the seat
// service.
type SeatProvisioner interface {
	EnsureOrgSeats(ctx context.Context, orgID uuid.UUID, totalSeats int) error
	ReleaseSeatForUser(ctx context.Context, orgID, userID uuid.UUID, actorID uuid.UUID) (*models.Seat, error)
}

// OrganizationHandler handles organization and membership endpoints.
type OrganizationHandler struct {
	store    OrganizationStore
	seats    SeatProvisioner
	rbac     *auth.RBAC
	recorder *audit.Recorder
	logger   zerolog.Logger
}

// NewOrganizationHandler creates a new organization handler.
func NewOrganizationHandler(store OrganizationStore, seats SeatProvisioner, rbac *auth.RBAC, recorder *audit.Recorder, logger zerolog.Logger) *OrganizationHandler {
	return &OrganizationHandler{
		store:    store,
		seats:    seats,
		rbac:     rbac,
		recorder: recorder,
		logger:   logger.With().Str("component", "org_handler").Logger(),
	}
}

// RegisterRoutes registers organization routes on the given router group.
func (h *OrganizationHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/orgs", h.Create)
	r.GET("/orgs", h.List)
	r.GET("/orgs/:orgID", h.Get)
	r.PATCH("/orgs/:orgID", h.Update)
	r.GET("/orgs/:orgID/members", h.ListMembers)
	r.PATCH("/orgs/:orgID/members/:userID", h.UpdateMemberRole)
	r.DELETE("/orgs/:orgID/members/:userID", h.RemoveMember)
}

type createOrgRequest struct {
	Name        string     `json:"name" binding:"required"`
	Slug        string     `json:"slug" binding:"required"`
	SeatCount   int        `json:"seat_count" binding:"required"`
	OwnerUserID *uuid.UUID `json:"owner_user_id,omitempty"`
}

// Create provisions a new organization with its seat pool. Restricted to
// platform super admins; an optional owner is enrolled as the first member.
func (h *OrganizationHandler) Create(c *gin.Context) {
	user := middleware.RequireUser(c)
	if user == nil {
		return
	}
	if !user.IsSuperAdmin {
		respondError(c, h.logger, apperrors.Forbidden("only platform operators can create organizations"))
		return
	}

	var req createOrgRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}
	if req.SeatCount <= 0 {
		respondError(c, h.logger, apperrors.BadRequest("seat_count must be positive"))
		return
	}
	slug := strings.ToLower(strings.TrimSpace(req.Slug))
	if slug == "" {
		respondError(c, h.logger, apperrors.BadRequest("slug must not be empty"))
		return
	}

	org := models.NewOrganization(strings.TrimSpace(req.Name), slug, req.SeatCount)
	if err := h.store.CreateOrganization(c.Request.Context(), org); err != nil {
		if db.IsUniqueViolation(err) {
			respondError(c, h.logger, apperrors.Conflict("an organization with slug %q already exists", slug))
			return
		}
		respondError(c, h.logger, apperrors.Internal(err, "create organization"))
		return
	}

	if err := h.seats.EnsureOrgSeats(c.Request.Context(), org.ID, org.SeatCount); err != nil {
		respondError(c, h.logger, err)
		return
	}

	if req.OwnerUserID != nil {
		m := models.NewOrgMembership(*req.OwnerUserID, org.ID, models.OrgRoleOwner)
		if err := h.store.CreateMembership(c.Request.Context(), m); err != nil {
			respondError(c, h.logger, apperrors.Internal(err, "enroll owner"))
			return
		}
	}

	h.logger.Info().
		Str("org_id", org.ID.String()).
		Str("slug", org.Slug).
		Int("seat_count", org.SeatCount).
		Msg("organization created")
	h.recorder.Record(org.ID, user.ID, models.AuditActionCreate, "organization", org.ID,
		fmt.Sprintf(`{"slug":%q,"seat_count":%d}`, org.Slug, org.SeatCount))

	c.JSON(http.StatusCreated, org)
}

// List returns all organizations. Restricted to platform super admins.
func (h *OrganizationHandler) List(c *gin.Context) {
	user := middleware.RequireUser(c)
	if user == nil {
		return
	}
	if !user.IsSuperAdmin {
		respondError(c, h.logger, apperrors.Forbidden("only platform operators can list organizations"))
		return
	}

	orgs, err := h.store.GetAllOrganizations(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, apperrors.Internal(err, "list organizations"))
		return
	}
	c.JSON(http.StatusOK, gin.H{"organizations": orgs})
}

// Get returns a single organization.
func (h *OrganizationHandler) Get(c *gin.Context) {
	actor, ok := orgActor(c, h.rbac, h.logger)
	if !ok {
		return
	}
	if err := auth.EnsureRole(actor, auth.PermOrgRead); err != nil {
		respondError(c, h.logger, err)
		return
	}

	org, err := h.store.GetOrganizationByID(c.Request.Context(), actor.OrgID)
	if err != nil {
		if db.IsNotFound(err) {
			respondError(c, h.logger, apperrors.NotFound("organization not found"))
			return
		}
		respondError(c, h.logger, apperrors.Internal(err, "get organization"))
		return
	}
	c.JSON(http.StatusOK, org)
}

type updateOrgRequest struct {
	Name      *string `json:"name,omitempty"`
	SeatCount *int    `json:"seat_count,omitempty"`
	LegalHold *bool   `json:"legal_hold,omitempty"`
}

// Update changes an organization's name, seat count or legal hold flag. Seat
// count only grows: the pool is topped up and never shrunk. While the hold
// flag is set, name and seat mutations are rejected; clearing the hold itself
// stays available to platform operators.
func (h *OrganizationHandler) Update(c *gin.Context) {
	actor, ok := orgActor(c, h.rbac, h.logger)
	if !ok {
		return
	}
	if err := auth.EnsureRole(actor, auth.PermOrgUpdate); err != nil {
		respondError(c, h.logger, err)
		return
	}

	var req updateOrgRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}

	org, err := h.store.GetOrganizationByID(c.Request.Context(), actor.OrgID)
	if err != nil {
		if db.IsNotFound(err) {
			respondError(c, h.logger, apperrors.NotFound("organization not found"))
			return
		}
		respondError(c, h.logger, apperrors.Internal(err, "get organization"))
		return
	}

	if org.LegalHold && (req.Name != nil || req.SeatCount != nil) {
		respondError(c, h.logger, apperrors.Forbidden("organization is on legal hold"))
		return
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			respondError(c, h.logger, apperrors.BadRequest("name must not be empty"))
			return
		}
		org.Name = name
	}
	if req.SeatCount != nil {
		if *req.SeatCount < org.SeatCount {
			respondError(c, h.logger, apperrors.BadRequest("seat_count cannot shrink below %d", org.SeatCount))
			return
		}
		org.SeatCount = *req.SeatCount
	}
	if req.LegalHold != nil {
		if !actor.IsSuperAdmin {
			respondError(c, h.logger, apperrors.Forbidden("only platform operators can change legal hold"))
			return
		}
		org.LegalHold = *req.LegalHold
	}

	if err := h.store.UpdateOrganization(c.Request.Context(), org); err != nil {
		respondError(c, h.logger, apperrors.Internal(err, "update organization"))
		return
	}
	if req.SeatCount != nil {
		if err := h.seats.EnsureOrgSeats(c.Request.Context(), org.ID, org.SeatCount); err != nil {
			respondError(c, h.logger, err)
			return
		}
	}

	h.recorder.Record(org.ID, actor.UserID, models.AuditActionUpdate, "organization", org.ID,
		fmt.Sprintf(`{"seat_count":%d,"legal_hold":%t}`, org.SeatCount, org.LegalHold))

	c.JSON(http.StatusOK, org)
}

// ListMembers returns the organization's memberships with user details.
func (h *OrganizationHandler) ListMembers(c *gin.Context) {
	actor, ok := orgActor(c, h.rbac, h.logger)
	if !ok {
		return
	}
	if err := auth.EnsureRole(actor, auth.PermMemberRead); err != nil {
		respondError(c, h.logger, err)
		return
	}

	members, err := h.store.ListMemberships(c.Request.Context(), actor.OrgID)
	if err != nil {
		respondError(c, h.logger, apperrors.Internal(err, "list memberships"))
		return
	}
	c.JSON(http.StatusOK, gin.H{"members": members})
}

type updateMemberRequest struct {
	Role string `json:"role" binding:"required"`
}

// UpdateMemberRole changes a member's role. Admins cannot touch owners or
// other admins; nobody grants super_admin through this endpoint.
func (h *OrganizationHandler) UpdateMemberRole(c *gin.Context) {
	actor, ok := orgActor(c, h.rbac, h.logger)
	if !ok {
		return
	}
	if err := auth.EnsureRole(actor, auth.PermMemberUpdate); err != nil {
		respondError(c, h.logger, err)
		return
	}
	userID, ok := parseUUIDParam(c, "userID")
	if !ok {
		return
	}

	var req updateMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}
	if !models.IsGrantableOrgRole(req.Role) {
		respondError(c, h.logger, apperrors.BadRequest("role %q cannot be granted", req.Role))
		return
	}

	membership, err := h.store.GetMembership(c.Request.Context(), userID, actor.OrgID)
	if err != nil {
		if db.IsNotFound(err) {
			respondError(c, h.logger, apperrors.NotFound("member not found"))
			return
		}
		respondError(c, h.logger, apperrors.Internal(err, "get membership"))
		return
	}
	if !auth.CanManageMember(actor, membership.Role) {
		respondError(c, h.logger, apperrors.Forbidden("cannot manage a member with role %s", membership.Role))
		return
	}

	role := models.OrgRole(req.Role)
	if err := h.store.UpdateMembershipRole(c.Request.Context(), membership.ID, role); err != nil {
		respondError(c, h.logger, apperrors.Internal(err, "update membership role"))
		return
	}

	h.recorder.Record(actor.OrgID, actor.UserID, models.AuditActionUpdate, "membership", membership.ID,
		fmt.Sprintf(`{"user_id":%q,"role":%q}`, userID, role))

	membership.Role = role
	c.JSON(http.StatusOK, membership)
}

// RemoveMember deletes a membership and releases the member's seat if one is
// held.
func (h *OrganizationHandler) RemoveMember(c *gin.Context) {
	actor, ok := orgActor(c, h.rbac, h.logger)
	if !ok {
		return
	}
	if err := auth.EnsureRole(actor, auth.PermMemberRemove); err != nil {
		respondError(c, h.logger, err)
		return
	}
	userID, ok := parseUUIDParam(c, "userID")
	if !ok {
		return
	}

	membership, err := h.store.GetMembership(c.Request.Context(), userID, actor.OrgID)
	if err != nil {
		if db.IsNotFound(err) {
			respondError(c, h.logger, apperrors.NotFound("member not found"))
			return
		}
		respondError(c, h.logger, apperrors.Internal(err, "get membership"))
		return
	}
	if !auth.CanManageMember(actor, membership.Role) {
		respondError(c, h.logger, apperrors.Forbidden("cannot manage a member with role %s", membership.Role))
		return
	}

	if _, err := h.seats.ReleaseSeatForUser(c.Request.Context(), actor.OrgID, userID, actor.UserID); err != nil {
		respondError(c, h.logger, err)
		return
	}
	if err := h.store.DeleteMembership(c.Request.Context(), membership.ID); err != nil {
		respondError(c, h.logger, apperrors.Internal(err, "delete membership"))
		return
	}

	h.logger.Info().
		Str("org_id", actor.OrgID.String()).
		Str("user_id", userID.String()).
		Msg("member removed")
	h.recorder.Record(actor.OrgID, actor.UserID, models.AuditActionUpdate, "membership", membership.ID,
		fmt.Sprintf(`{"user_id":%q,"removed":true}`, userID))

	c.Status(http.StatusNoContent)
}
