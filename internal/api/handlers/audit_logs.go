package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/ironbeam/crewdeck/internal/apperrors"
	"github.com/ironbeam/crewdeck/internal/auth"
	"github.com/ironbeam/crewdeck/internal/models"
	"github.com/rs/zerolog"
)

// AuditLogStore defines the persistence operations the audit log handler
// needs.
type AuditLogStore interface {
	ListAuditLogs(ctx context.Context, orgID uuid.UUID, limit int) ([]*models.AuditLog, error)
}

// AuditLogHandler handles audit log endpoints.
type AuditLogHandler struct {
	store  AuditLogStore
	rbac   *auth.RBAC
	logger zerolog.Logger
}

// NewAuditLogHandler creates a new audit log handler.
func NewAuditLogHandler(store AuditLogStore, rbac *auth.RBAC, logger zerolog.Logger) *AuditLogHandler {
	return &AuditLogHandler{
		store:  store,
		rbac:   rbac,
		logger: logger.With().Str("component", "audit_handler").Logger(),
	}
}

// RegisterRoutes registers audit log routes on the given router group.
func (h *AuditLogHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/orgs/:orgID/audit-logs", h.List)
}

// List returns the organization's audit trail, newest first. ?limit= caps
// the page size.
func (h *AuditLogHandler) List(c *gin.Context) {
	actor, ok := orgActor(c, h.rbac, h.logger)
	if !ok {
		return
	}
	if err := auth.EnsureRole(actor, auth.PermAuditRead); err != nil {
		respondError(c, h.logger, err)
		return
	}

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			respondError(c, h.logger, apperrors.BadRequest("limit must be a positive integer"))
			return
		}
		limit = parsed
	}

	logs, err := h.store.ListAuditLogs(c.Request.Context(), actor.OrgID, limit)
	if err != nil {
		respondError(c, h.logger, apperrors.Internal(err, "list audit logs"))
		return
	}
	c.JSON(http.StatusOK, gin.H{"audit_logs": logs})
}
