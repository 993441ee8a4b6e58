package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/ironbeam/crewdeck/internal/api/middleware"
	"github.com/ironbeam/crewdeck/internal/apperrors"
	"github.com/ironbeam/crewdeck/internal/models"
	"github.com/rs/zerolog"
)

// NotificationStore defines the persistence operations the notification
// handler needs.
type NotificationStore interface {
	ListNotifications(ctx context.Context, userID uuid.UUID, unreadOnly bool, limit int) ([]*models.Notification, error)
	MarkNotificationRead(ctx context.Context, id, userID uuid.UUID) error
}

// NotificationHandler handles in-app notification endpoints. Notifications
// are user-scoped, not organization-scoped.
type NotificationHandler struct {
	store  NotificationStore
	logger zerolog.Logger
}

// NewNotificationHandler creates a new notification handler.
func NewNotificationHandler(store NotificationStore, logger zerolog.Logger) *NotificationHandler {
	return &NotificationHandler{
		store:  store,
		logger: logger.With().Str("component", "notification_handler").Logger(),
	}
}

// RegisterRoutes registers notification routes on the given router group.
func (h *NotificationHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/notifications", h.List)
	r.POST("/notifications/:notificationID/read", h.MarkRead)
}

// List returns the authenticated user's notifications, newest first.
// ?unread=true filters to unread; ?limit= caps the page size.
func (h *NotificationHandler) List(c *gin.Context) {
	user := middleware.RequireUser(c)
	if user == nil {
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

	list, err := h.store.ListNotifications(c.Request.Context(), user.ID, c.Query("unread") == "true", limit)
	if err != nil {
		respondError(c, h.logger, apperrors.Internal(err, "list notifications"))
		return
	}
	c.JSON(http.StatusOK, gin.H{"notifications": list})
}

// MarkRead stamps a notification as read. Idempotent.
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	user := middleware.RequireUser(c)
	if user == nil {
		return
	}
	notificationID, ok := parseUUIDParam(c, "notificationID")
	if !ok {
		return
	}

	if err := h.store.MarkNotificationRead(c.Request.Context(), notificationID, user.ID); err != nil {
		respondError(c, h.logger, apperrors.Internal(err, "mark notification read"))
		return
	}
	c.Status(http.StatusNoContent)
}
