package db

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/ironbeam/crewdeck/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Seat methods

const seatColumns = `id, org_id, seat_number, status, user_id, project_id, role, activated_at, created_at, updated_at`

// seatExecer is satisfied by both the pool and a transaction, so the seat
// statements below can run standalone or inside ExecTx.
type seatExecer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func scanSeat(row interface{ Scan(...any) error }) (*models.Seat, error) {
	var s models.Seat
	var statusStr string
	err := row.Scan(
		&s.ID, &s.OrgID, &s.SeatNumber, &statusStr, &s.UserID,
		&s.ProjectID, &s.Role, &s.ActivatedAt, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	s.Status = models.SeatStatus(statusStr)
	return &s, nil
}

// CreateSeat inserts a new seat. Fails with a unique violation if the seat
// number already exists for the organization.
func (db *DB) CreateSeat(ctx context.Context, seat *models.Seat) error {
	_, err := db.Pool.Exec(ctx, `
		INSERT INTO seats (id, org_id, seat_number, status, user_id, project_id, role, activated_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, seat.ID, seat.OrgID, seat.SeatNumber, string(seat.Status), seat.UserID,
		seat.ProjectID, seat.Role, seat.ActivatedAt, seat.CreatedAt, seat.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create seat: %w", err)
	}
	return nil
}

// GetSeatByID returns a seat by its ID.
func (db *DB) GetSeatByID(ctx context.Context, id uuid.UUID) (*models.Seat, error) {
	seat, err := scanSeat(db.Pool.QueryRow(ctx, `
		SELECT `+seatColumns+` FROM seats WHERE id = $1
	`, id))
	if err != nil {
		return nil, fmt.Errorf("get seat: %w", err)
	}
	return seat, nil
}

// GetSeatByUser returns the seat held by a user in an organization, if any.
func (db *DB) GetSeatByUser(ctx context.Context, orgID, userID uuid.UUID) (*models.Seat, error) {
	seat, err := scanSeat(db.Pool.QueryRow(ctx, `
		SELECT `+seatColumns+` FROM seats WHERE org_id = $1 AND user_id = $2
	`, orgID, userID))
	if err != nil {
		return nil, fmt.Errorf("get seat by user: %w", err)
	}
	return seat, nil
}

func claimLowestVacantSeat(ctx context.Context, q seatExecer, orgID, userID uuid.UUID, projectID *uuid.UUID, role string, activatedAt time.Time) (*models.Seat, error) {
	seat, err := scanSeat(q.QueryRow(ctx, `
		UPDATE seats
		SET status = 'active', user_id = $2, project_id = $3, role = $4, activated_at = $5, updated_at = $5
		WHERE id = (
			SELECT id FROM seats
			WHERE org_id = $1 AND status = 'vacant'
			ORDER BY seat_number
			LIMIT 1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING `+seatColumns+`
	`, orgID, userID, projectID, role, activatedAt))
	if err != nil {
		return nil, fmt.Errorf("claim vacant seat: %w", err)
	}
	return seat, nil
}

// ClaimLowestVacantSeat atomically assigns the vacant seat with the lowest
// seat number to a user. The single-statement claim means two concurrent
// allocations pick distinct seats. Returns pgx.ErrNoRows when the pool has
// no vacant seat.
func (db *DB) ClaimLowestVacantSeat(ctx context.Context, orgID, userID uuid.UUID, projectID *uuid.UUID, role string, activatedAt time.Time) (*models.Seat, error) {
	return claimLowestVacantSeat(ctx, db.Pool, orgID, userID, projectID, role, activatedAt)
}

func updateSeat(ctx context.Context, q seatExecer, seat *models.Seat) error {
	seat.UpdatedAt = time.Now()
	_, err := q.Exec(ctx, `
		UPDATE seats
		SET status = $2, user_id = $3, project_id = $4, role = $5, activated_at = $6, updated_at = $7
		WHERE id = $1
	`, seat.ID, string(seat.Status), seat.UserID, seat.ProjectID, seat.Role, seat.ActivatedAt, seat.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update seat: %w", err)
	}
	return nil
}

// UpdateSeat persists the occupancy fields of a seat.
func (db *DB) UpdateSeat(ctx context.Context, seat *models.Seat) error {
	return updateSeat(ctx, db.Pool, seat)
}

// ListSeats returns all seats of an organization ordered by seat number.
func (db *DB) ListSeats(ctx context.Context, orgID uuid.UUID) ([]*models.Seat, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT `+seatColumns+` FROM seats
		WHERE org_id = $1
		ORDER BY seat_number
	`, orgID)
	if err != nil {
		return nil, fmt.Errorf("list seats: %w", err)
	}
	defer rows.Close()

	var seats []*models.Seat
	for rows.Next() {
		seat, err := scanSeat(rows)
		if err != nil {
			return nil, fmt.Errorf("scan seat: %w", err)
		}
		seats = append(seats, seat)
	}
	return seats, rows.Err()
}

// CountSeats returns the number of seats provisioned for an organization.
func (db *DB) CountSeats(ctx context.Context, orgID uuid.UUID) (int, error) {
	var count int
	err := db.Pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM seats WHERE org_id = $1
	`, orgID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count seats: %w", err)
	}
	return count, nil
}

// MaxSeatNumber returns the highest seat number in the organization, or 0.
func (db *DB) MaxSeatNumber(ctx context.Context, orgID uuid.UUID) (int, error) {
	var max int
	err := db.Pool.QueryRow(ctx, `
		SELECT COALESCE(MAX(seat_number), 0) FROM seats WHERE org_id = $1
	`, orgID).Scan(&max)
	if err != nil {
		return 0, fmt.Errorf("max seat number: %w", err)
	}
	return max, nil
}

// SeatSummary returns derived seat counts for an organization.
func (db *DB) SeatSummary(ctx context.Context, orgID uuid.UUID) (*models.SeatSummary, error) {
	summary := models.SeatSummary{OrgID: orgID}
	err := db.Pool.QueryRow(ctx, `
		SELECT COUNT(*),
		       COUNT(*) FILTER (WHERE status = 'active'),
		       COUNT(*) FILTER (WHERE status = 'vacant')
		FROM seats
		WHERE org_id = $1
	`, orgID).Scan(&summary.Total, &summary.Active, &summary.Vacant)
	if err != nil {
		return nil, fmt.Errorf("seat summary: %w", err)
	}
	return &summary, nil
}

// Transactional seat mutations. Each pairs a seat update with its history
// writes so a failure rolls both back together.

// ClaimSeatWithHistory claims the lowest vacant seat and opens its history
// entry in one transaction.
func (db *DB) ClaimSeatWithHistory(ctx context.Context, orgID, userID uuid.UUID, projectID *uuid.UUID, role string, activatedAt time.Time) (*models.Seat, error) {
	var seat *models.Seat
	err := db.ExecTx(ctx, func(tx pgx.Tx) error {
		claimed, err := claimLowestVacantSeat(ctx, tx, orgID, userID, projectID, role, activatedAt)
		if err != nil {
			return err
		}
		seat = claimed
		return insertSeatHistoryEntry(ctx, tx, models.NewSeatHistoryEntry(claimed, userID, projectID, role))
	})
	if err != nil {
		return nil, err
	}
	return seat, nil
}

// ReleaseSeatWithHistory closes the seat's open history entries and persists
// the cleared seat in one transaction.
func (db *DB) ReleaseSeatWithHistory(ctx context.Context, seat *models.Seat, removedAt time.Time) error {
	return db.ExecTx(ctx, func(tx pgx.Tx) error {
		if err := closeSeatHistory(ctx, tx, seat.ID, removedAt); err != nil {
			return err
		}
		return updateSeat(ctx, tx, seat)
	})
}

// ReassignSeatWithHistory closes the seat's open history entries, persists the
// repointed seat and opens the new entry in one transaction.
func (db *DB) ReassignSeatWithHistory(ctx context.Context, seat *models.Seat, entry *models.SeatHistoryEntry, removedAt time.Time) error {
	return db.ExecTx(ctx, func(tx pgx.Tx) error {
		if err := closeSeatHistory(ctx, tx, seat.ID, removedAt); err != nil {
			return err
		}
		if err := updateSeat(ctx, tx, seat); err != nil {
			return err
		}
		return insertSeatHistoryEntry(ctx, tx, entry)
	})
}

// ClearSeatProjectWithHistory closes open history entries referencing the
// project and persists the seat in one transaction. Returns the number of
// entries closed.
func (db *DB) ClearSeatProjectWithHistory(ctx context.Context, seat *models.Seat, projectID uuid.UUID, removedAt time.Time) (int, error) {
	var closed int
	err := db.ExecTx(ctx, func(tx pgx.Tx) error {
		n, err := closeSeatHistoryForProject(ctx, tx, seat.ID, projectID, removedAt)
		if err != nil {
			return err
		}
		closed = n
		return updateSeat(ctx, tx, seat)
	})
	if err != nil {
		return 0, err
	}
	return closed, nil
}

// Seat history methods

func insertSeatHistoryEntry(ctx context.Context, q seatExecer, entry *models.SeatHistoryEntry) error {
	_, err := q.Exec(ctx, `
		INSERT INTO seat_history (id, seat_id, org_id, user_id, project_id, role, activated_at, removed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, entry.ID, entry.SeatID, entry.OrgID, entry.UserID, entry.ProjectID, entry.Role, entry.ActivatedAt, entry.RemovedAt)
	if err != nil {
		return fmt.Errorf("create seat history entry: %w", err)
	}
	return nil
}

// CreateSeatHistoryEntry records the start of a seat assignment.
func (db *DB) CreateSeatHistoryEntry(ctx context.Context, entry *models.SeatHistoryEntry) error {
	return insertSeatHistoryEntry(ctx, db.Pool, entry)
}

func closeSeatHistory(ctx context.Context, q seatExecer, seatID uuid.UUID, removedAt time.Time) error {
	_, err := q.Exec(ctx, `
		UPDATE seat_history
		SET removed_at = $2
		WHERE seat_id = $1 AND removed_at IS NULL
	`, seatID, removedAt)
	if err != nil {
		return fmt.Errorf("close seat history entry: %w", err)
	}
	return nil
}

// CloseSeatHistoryEntry stamps removed_at on the open history entry of a seat.
func (db *DB) CloseSeatHistoryEntry(ctx context.Context, seatID uuid.UUID, removedAt time.Time) error {
	return closeSeatHistory(ctx, db.Pool, seatID, removedAt)
}

// closeSeatHistoryForProject stamps removed_at on open history entries of a
// seat that reference the given project. Returns the number of entries closed.
func closeSeatHistoryForProject(ctx context.Context, q seatExecer, seatID, projectID uuid.UUID, removedAt time.Time) (int, error) {
	tag, err := q.Exec(ctx, `
		UPDATE seat_history
		SET removed_at = $3
		WHERE seat_id = $1 AND project_id = $2 AND removed_at IS NULL
	`, seatID, projectID, removedAt)
	if err != nil {
		return 0, fmt.Errorf("close seat history for project: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

// ListSeatHistory returns all history entries for a seat, newest first.
func (db *DB) ListSeatHistory(ctx context.Context, seatID uuid.UUID) ([]*models.SeatHistoryEntry, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT id, seat_id, org_id, user_id, project_id, role, activated_at, removed_at
		FROM seat_history
		WHERE seat_id = $1
		ORDER BY activated_at DESC
	`, seatID)
	if err != nil {
		return nil, fmt.Errorf("list seat history: %w", err)
	}
	defer rows.Close()

	var entries []*models.SeatHistoryEntry
	for rows.Next() {
		var e models.SeatHistoryEntry
		if err := rows.Scan(&e.ID, &e.SeatID, &e.OrgID, &e.UserID, &e.ProjectID, &e.Role, &e.ActivatedAt, &e.RemovedAt); err != nil {
			return nil, fmt.Errorf("scan seat history entry: %w", err)
		}
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}
