package notifications

import (
	"context"

	"github.com/google/uuid"
	"github.com/ironbeam/crewdeck/internal/models"
	"github.com/rs/zerolog"
)

// SinkStore defines the interface for notification persistence.
type SinkStore interface {
	CreateNotification(ctx context.Context, n *models.Notification) error
}

// Sink delivers best-effort in-app notifications. Create never returns an
// error; failures are logged and discarded.
type Sink struct {
	store  SinkStore
	logger zerolog.Logger
}

// NewSink creates a new notification Sink.
func NewSink(store SinkStore, logger zerolog.Logger) *Sink {
	return &Sink{
		store:  store,
		logger: logger.With().Str("component", "notification_sink").Logger(),
	}
}

// Create stores an in-app notification for a user.
func (s *Sink) Create(ctx context.Context, orgID, userID uuid.UUID, eventType models.NotificationEventType, payload string) {
	n := models.NewNotification(orgID, userID, eventType, payload)
	if err := s.store.CreateNotification(ctx, n); err != nil {
		s.logger.Warn().Err(err).
			Str("event_type", string(eventType)).
			Str("user_id", userID.String()).
			Msg("failed to create notification")
	}
}
