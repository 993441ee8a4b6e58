// Package seats manages the numbered seat pool of an organization: seeding,
// allocation, release, project assignment and assignment history.
package seats

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/ironbeam/crewdeck/internal/apperrors"
	"github.com/ironbeam/crewdeck/internal/audit"
	"github.com/ironbeam/crewdeck/internal/db"
	"github.com/ironbeam/crewdeck/internal/metrics"
	"github.com/ironbeam/crewdeck/internal/models"
	"github.com/rs/zerolog"
)

// Store defines the interface for seat persistence operations.
type Store interface {
	// Organization operations
	GetOrganizationByID(ctx context.Context, id uuid.UUID) (*models.Organization, error)

	// Seat operations
	CreateSeat(ctx context.Context, seat *models.Seat) error
	GetSeatByID(ctx context.Context, id uuid.UUID) (*models.Seat, error)
	GetSeatByUser(ctx context.Context, orgID, userID uuid.UUID) (*models.Seat, error)
	ListSeats(ctx context.Context, orgID uuid.UUID) ([]*models.Seat, error)
	MaxSeatNumber(ctx context.Context, orgID uuid.UUID) (int, error)
	SeatSummary(ctx context.Context, orgID uuid.UUID) (*models.SeatSummary, error)

	// Transactional seat mutations: each pairs the seat change with its
	// history writes so neither lands without the other.
	ClaimSeatWithHistory(ctx context.Context, orgID, userID uuid.UUID, projectID *uuid.UUID, role string, activatedAt time.Time) (*models.Seat, error)
	ReleaseSeatWithHistory(ctx context.Context, seat *models.Seat, removedAt time.Time) error
	ReassignSeatWithHistory(ctx context.Context, seat *models.Seat, entry *models.SeatHistoryEntry, removedAt time.Time) error
	ClearSeatProjectWithHistory(ctx context.Context, seat *models.Seat, projectID uuid.UUID, removedAt time.Time) (int, error)

	// Seat history operations
	ListSeatHistory(ctx context.Context, seatID uuid.UUID) ([]*models.SeatHistoryEntry, error)
}

// Service handles seat pool operations.
type Service struct {
	store    Store
	recorder *audit.Recorder
	logger   zerolog.Logger
}

// NewService creates a new seat service.
func NewService(store Store, recorder *audit.Recorder, logger zerolog.Logger) *Service {
	return &Service{
		store:    store,
		recorder: recorder,
		logger:   logger.With().Str("component", "seat_service").Logger(),
	}
}

// validateOrg resolves the organization or reports NotFound.
func (s *Service) validateOrg(ctx context.Context, orgID uuid.UUID) (*models.Organization, error) {
	org, err := s.store.GetOrganizationByID(ctx, orgID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, apperrors.NotFound("organization not found")
		}
		return nil, apperrors.Internal(err, "resolve organization")
	}
	return org, nil
}

// EnsureOrgSeats idempotently tops up an organization's seat pool to at least
// totalSeats numbered slots, creating only the missing numbers. Existing seats
// are never shrunk or renumbered. A no-op when totalSeats <= 0.
func (s *Service) EnsureOrgSeats(ctx context.Context, orgID uuid.UUID, totalSeats int) error {
	if totalSeats <= 0 {
		return nil
	}
	if _, err := s.validateOrg(ctx, orgID); err != nil {
		return err
	}

	max, err := s.store.MaxSeatNumber(ctx, orgID)
	if err != nil {
		return apperrors.Internal(err, "determine seat pool size")
	}

	created := 0
	for n := max + 1; n <= totalSeats; n++ {
		if err := s.store.CreateSeat(ctx, models.NewSeat(orgID, n)); err != nil {
			// A racing seeder already created this number. Tolerated:
			// the pool converges either way.
			if db.IsUniqueViolation(err) {
				s.logger.Warn().
					Str("org_id", orgID.String()).
					Int("seat_number", n).
					Msg("seat already seeded by concurrent caller")
				continue
			}
			return apperrors.Internal(err, "seed seat %d", n)
		}
		created++
	}

	if created > 0 {
		s.logger.Info().
			Str("org_id", orgID.String()).
			Int("created", created).
			Int("total", totalSeats).
			Msg("seat pool seeded")
		s.recorder.Record(orgID, uuid.Nil, models.AuditActionSeatSeed, "seat", uuid.Nil,
			fmt.Sprintf(`{"created":%d,"total":%d}`, created, totalSeats))
	}
	return nil
}

// AllocateSeat assigns the lowest-numbered vacant seat to a user. Fails with
// Conflict if the user already holds a seat in the organization and with
// Forbidden if the pool has no vacant seat.
func (s *Service) AllocateSeat(ctx context.Context, orgID, userID uuid.UUID, role string, projectID *uuid.UUID, actorID uuid.UUID) (*models.Seat, error) {
	if _, err := s.validateOrg(ctx, orgID); err != nil {
		return nil, err
	}

	if _, err := s.store.GetSeatByUser(ctx, orgID, userID); err == nil {
		return nil, apperrors.Conflict("user already holds a seat in this organization")
	} else if !db.IsNotFound(err) {
		return nil, apperrors.Internal(err, "check existing seat")
	}

	seat, err := s.store.ClaimSeatWithHistory(ctx, orgID, userID, projectID, role, time.Now())
	if err != nil {
		if db.IsNotFound(err) {
			return nil, apperrors.Forbidden("no vacant seat available")
		}
		// The check above raced with another allocation for the same user;
		// the partial unique index is the backstop.
		if db.IsUniqueViolation(err) {
			return nil, apperrors.Conflict("user already holds a seat in this organization")
		}
		return nil, apperrors.Internal(err, "allocate seat")
	}

	s.logger.Info().
		Str("org_id", orgID.String()).
		Str("user_id", userID.String()).
		Int("seat_number", seat.SeatNumber).
		Msg("seat allocated")
	s.recorder.Record(orgID, actorID, models.AuditActionSeatAllocate, "seat", seat.ID,
		allocateMetadata(seat.SeatNumber, role, projectID, userID))
	metrics.SeatAllocationsCounter.Inc()

	return seat, nil
}

// ReleaseSeatForUser returns a user's seat to the vacant pool, closing the
// open history entry. Returns (nil, nil) when the user holds no seat.
func (s *Service) ReleaseSeatForUser(ctx context.Context, orgID, userID uuid.UUID, actorID uuid.UUID) (*models.Seat, error) {
	if _, err := s.validateOrg(ctx, orgID); err != nil {
		return nil, err
	}

	seat, err := s.store.GetSeatByUser(ctx, orgID, userID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, nil
		}
		return nil, apperrors.Internal(err, "find seat for user")
	}

	seat.Clear()
	if err := s.store.ReleaseSeatWithHistory(ctx, seat, time.Now()); err != nil {
		return nil, apperrors.Internal(err, "release seat")
	}

	s.logger.Info().
		Str("org_id", orgID.String()).
		Str("user_id", userID.String()).
		Int("seat_number", seat.SeatNumber).
		Msg("seat released")
	s.recorder.Record(orgID, actorID, models.AuditActionSeatRelease, "seat", seat.ID,
		fmt.Sprintf(`{"seat_number":%d,"user_id":%q}`, seat.SeatNumber, userID))
	metrics.SeatReleasesCounter.Inc()

	return seat, nil
}

// AssignSeatToProject points an active seat at a project, closing any other
// open project-history entries first. Fails with Forbidden unless the seat is
// active with a user.
func (s *Service) AssignSeatToProject(ctx context.Context, orgID, seatID, projectID uuid.UUID, role string, actorID uuid.UUID) (*models.Seat, error) {
	if _, err := s.validateOrg(ctx, orgID); err != nil {
		return nil, err
	}

	seat, err := s.getOrgSeat(ctx, orgID, seatID)
	if err != nil {
		return nil, err
	}
	if !seat.IsActive() || seat.UserID == nil {
		return nil, apperrors.Forbidden("seat is not actively held by a user")
	}

	seat.ProjectID = &projectID
	if role != "" {
		seat.Role = role
	}
	entry := models.NewSeatHistoryEntry(seat, *seat.UserID, &projectID, seat.Role)
	if err := s.store.ReassignSeatWithHistory(ctx, seat, entry, time.Now()); err != nil {
		return nil, apperrors.Internal(err, "assign seat to project")
	}

	s.logger.Info().
		Str("org_id", orgID.String()).
		Str("seat_id", seatID.String()).
		Str("project_id", projectID.String()).
		Msg("seat assigned to project")
	s.recorder.Record(orgID, actorID, models.AuditActionSeatAssign, "seat", seat.ID,
		fmt.Sprintf(`{"seat_number":%d,"project_id":%q,"role":%q}`, seat.SeatNumber, projectID, seat.Role))

	return seat, nil
}

// ClearSeatProject closes the open history entry for the given project if one
// exists, and clears the seat's project pointer only when it currently points
// at that project.
func (s *Service) ClearSeatProject(ctx context.Context, orgID, seatID, projectID uuid.UUID, actorID uuid.UUID) (*models.Seat, error) {
	if _, err := s.validateOrg(ctx, orgID); err != nil {
		return nil, err
	}

	seat, err := s.getOrgSeat(ctx, orgID, seatID)
	if err != nil {
		return nil, err
	}

	if seat.ProjectID != nil && *seat.ProjectID == projectID {
		seat.ProjectID = nil
	}
	closed, err := s.store.ClearSeatProjectWithHistory(ctx, seat, projectID, time.Now())
	if err != nil {
		return nil, apperrors.Internal(err, "clear seat project")
	}

	s.logger.Info().
		Str("org_id", orgID.String()).
		Str("seat_id", seatID.String()).
		Str("project_id", projectID.String()).
		Int("history_closed", closed).
		Msg("seat project cleared")
	s.recorder.Record(orgID, actorID, models.AuditActionSeatClear, "seat", seat.ID,
		fmt.Sprintf(`{"seat_number":%d,"project_id":%q}`, seat.SeatNumber, projectID))

	return seat, nil
}

// Summary returns derived seat counts for an organization.
func (s *Service) Summary(ctx context.Context, orgID uuid.UUID) (*models.SeatSummary, error) {
	if _, err := s.validateOrg(ctx, orgID); err != nil {
		return nil, err
	}
	summary, err := s.store.SeatSummary(ctx, orgID)
	if err != nil {
		return nil, apperrors.Internal(err, "compute seat summary")
	}
	return summary, nil
}

// List returns the organization's seats, optionally filtered by status.
func (s *Service) List(ctx context.Context, orgID uuid.UUID, status models.SeatStatus) ([]*models.Seat, error) {
	if _, err := s.validateOrg(ctx, orgID); err != nil {
		return nil, err
	}
	seats, err := s.store.ListSeats(ctx, orgID)
	if err != nil {
		return nil, apperrors.Internal(err, "list seats")
	}
	if status == "" {
		return seats, nil
	}
	filtered := make([]*models.Seat, 0, len(seats))
	for _, seat := range seats {
		if seat.Status == status {
			filtered = append(filtered, seat)
		}
	}
	return filtered, nil
}

// History returns the assignment history of a seat, newest first.
func (s *Service) History(ctx context.Context, orgID, seatID uuid.UUID) ([]*models.SeatHistoryEntry, error) {
	if _, err := s.validateOrg(ctx, orgID); err != nil {
		return nil, err
	}
	if _, err := s.getOrgSeat(ctx, orgID, seatID); err != nil {
		return nil, err
	}
	entries, err := s.store.ListSeatHistory(ctx, seatID)
	if err != nil {
		return nil, apperrors.Internal(err, "list seat history")
	}
	return entries, nil
}

// getOrgSeat loads a seat and verifies it belongs to the organization.
// A seat of another organization reports NotFound, never Forbidden, so
// cross-tenant existence does not leak.
func (s *Service) getOrgSeat(ctx context.Context, orgID, seatID uuid.UUID) (*models.Seat, error) {
	seat, err := s.store.GetSeatByID(ctx, seatID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, apperrors.NotFound("seat not found")
		}
		return nil, apperrors.Internal(err, "get seat")
	}
	if seat.OrgID != orgID {
		return nil, apperrors.NotFound("seat not found")
	}
	return seat, nil
}

func allocateMetadata(seatNumber int, role string, projectID *uuid.UUID, userID uuid.UUID) string {
	project := ""
	if projectID != nil {
		project = projectID.String()
	}
	return fmt.Sprintf(`{"seat_number":%d,"role":%q,"project_id":%q,"user_id":%q}`, seatNumber, role, project, userID)
}
