// Package maintenance runs periodic housekeeping: sweeping stale pending
// invites to expired and pruning audit logs past their retention window.
package maintenance

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/ironbeam/crewdeck/internal/metrics"
	"github.com/ironbeam/crewdeck/internal/models"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// SweeperStore defines the interface for housekeeping data access.
type SweeperStore interface {
	ExpireAllStalePendingInvites(ctx context.Context) (int, error)
	DeleteAuditLogsBefore(ctx context.Context, cutoff time.Time) (int, error)
	GetAllOrganizations(ctx context.Context) ([]*models.Organization, error)
	SeatSummary(ctx context.Context, orgID uuid.UUID) (*models.SeatSummary, error)
}

// Sweeper schedules the periodic housekeeping jobs. Invite expiry is lazy at
// the read path; the sweep only keeps listings tidy between reads.
type Sweeper struct {
	store              SweeperStore
	auditRetentionDays int
	cron               *cron.Cron
	logger             zerolog.Logger
	mu                 sync.Mutex
	running            bool
}

// NewSweeper creates a new maintenance Sweeper.
func NewSweeper(store SweeperStore, auditRetentionDays int, logger zerolog.Logger) *Sweeper {
	return &Sweeper{
		store:              store,
		auditRetentionDays: auditRetentionDays,
		cron:               cron.New(),
		logger:             logger.With().Str("component", "sweeper").Logger(),
	}
}

// Start begins the schedules: invite expiry hourly, audit pruning daily at
// 3:00 AM UTC.
func (s *Sweeper) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return errors.New("sweeper already running")
	}

	if _, err := s.cron.AddFunc("0 * * * *", s.runInviteSweep); err != nil {
		return err
	}
	if _, err := s.cron.AddFunc("0 3 * * *", s.runAuditPrune); err != nil {
		return err
	}
	if _, err := s.cron.AddFunc("@every 5m", s.refreshSeatGauges); err != nil {
		return err
	}

	s.cron.Start()
	s.running = true

	s.logger.Info().
		Int("audit_retention_days", s.auditRetentionDays).
		Msg("sweeper started (invites hourly, audit logs daily at 03:00 UTC)")

	return nil
}

// Stop stops the sweeper gracefully.
func (s *Sweeper) Stop() context.Context {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		return ctx
	}

	s.running = false
	s.logger.Info().Msg("stopping sweeper")
	return s.cron.Stop()
}

// runInviteSweep flips stale pending invites to expired.
func (s *Sweeper) runInviteSweep() {
	ctx := context.Background()

	expired, err := s.store.ExpireAllStalePendingInvites(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("invite expiry sweep failed")
		return
	}
	if expired > 0 {
		s.logger.Info().Int("expired", expired).Msg("invite expiry sweep completed")
	}
}

// runAuditPrune deletes audit logs older than the retention window.
func (s *Sweeper) runAuditPrune() {
	if s.auditRetentionDays <= 0 {
		return
	}
	ctx := context.Background()
	cutoff := time.Now().AddDate(0, 0, -s.auditRetentionDays)

	deleted, err := s.store.DeleteAuditLogsBefore(ctx, cutoff)
	if err != nil {
		s.logger.Error().Err(err).Msg("audit log pruning failed")
		return
	}

	s.logger.Info().
		Int("deleted_rows", deleted).
		Int("retention_days", s.auditRetentionDays).
		Msg("audit log pruning completed")
}

// refreshSeatGauges republishes the occupied seat count per organization.
func (s *Sweeper) refreshSeatGauges() {
	ctx := context.Background()

	orgs, err := s.store.GetAllOrganizations(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("seat gauge refresh failed to list organizations")
		return
	}

	for _, org := range orgs {
		summary, err := s.store.SeatSummary(ctx, org.ID)
		if err != nil {
			s.logger.Error().Err(err).Str("org", org.Slug).Msg("seat gauge refresh failed")
			continue
		}
		metrics.SetActiveSeats(org.Slug, summary.Active)
	}
}

// RunNow triggers all jobs immediately (useful for testing).
func (s *Sweeper) RunNow() {
	s.runInviteSweep()
	s.runAuditPrune()
	s.refreshSeatGauges()
}
