// Package audit provides fire-and-forget audit logging for mutations.
// Recording never blocks or fails the primary operation; write failures are
// logged and discarded.
package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/ironbeam/crewdeck/internal/models"
	"github.com/rs/zerolog"
)

// Store defines the interface for audit log persistence.
type Store interface {
	CreateAuditLog(ctx context.Context, entry *models.AuditLog) error
}

// writeTimeout bounds the detached audit write so a stuck store cannot leak
// goroutines indefinitely.
const writeTimeout = 10 * time.Second

// Recorder writes audit log entries asynchronously.
type Recorder struct {
	store  Store
	logger zerolog.Logger
}

// NewRecorder creates a new audit Recorder.
func NewRecorder(store Store, logger zerolog.Logger) *Recorder {
	return &Recorder{
		store:  store,
		logger: logger.With().Str("component", "audit_recorder").Logger(),
	}
}

// Record writes an audit entry for a mutation. It detaches from the caller's
// context so the write survives the request and its failure cannot propagate.
func (r *Recorder) Record(orgID uuid.UUID, actorID uuid.UUID, action models.AuditAction, entityType string, entityID uuid.UUID, metadata string) {
	entry := models.NewAuditLog(orgID, action, entityType).WithMetadata(metadata)
	if actorID != uuid.Nil {
		entry.WithActor(actorID)
	}
	if entityID != uuid.Nil {
		entry.WithEntity(entityID)
	}

	go func(entry *models.AuditLog) {
		ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		defer cancel()

		if err := r.store.CreateAuditLog(ctx, entry); err != nil {
			r.logger.Error().Err(err).
				Str("action", string(entry.Action)).
				Str("entity_type", entry.EntityType).
				Str("org_id", entry.OrgID.String()).
				Msg("failed to write audit log")
		}
	}(entry)
}
