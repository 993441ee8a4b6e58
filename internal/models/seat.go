package models

import (
	"time"

	"github.com/google/uuid"
)

// SeatStatus represents the occupancy status of a seat.
type SeatStatus string

const (
	// SeatStatusVacant means the seat is unoccupied.
	SeatStatusVacant SeatStatus = "vacant"
	// SeatStatusActive means the seat is held by a user.
	SeatStatusActive SeatStatus = "active"
)

// Seat represents a numbered allocation slot within an organization's
// subscription. A seat is held by at most one user at a time and is never
// hard-deleted; release returns it to the vacant pool.
type Seat struct {
	ID          uuid.UUID  `json:"id"`
	OrgID       uuid.UUID  `json:"org_id"`
	SeatNumber  int        `json:"seat_number"`
	Status      SeatStatus `json:"status"`
	UserID      *uuid.UUID `json:"user_id,omitempty"`
	ProjectID   *uuid.UUID `json:"project_id,omitempty"`
	Role        string     `json:"role,omitempty"`
	ActivatedAt *time.Time `json:"activated_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// NewSeat creates a new vacant Seat with the given number.
func NewSeat(orgID uuid.UUID, seatNumber int) *Seat {
	now := time.Now()
	return &Seat{
		ID:         uuid.New(),
		OrgID:      orgID,
		SeatNumber: seatNumber,
		Status:     SeatStatusVacant,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// IsVacant returns true if the seat is unoccupied.
func (s *Seat) IsVacant() bool {
	return s.Status == SeatStatusVacant
}

// IsActive returns true if the seat is held by a user.
func (s *Seat) IsActive() bool {
	return s.Status == SeatStatusActive
}

// Clear resets the seat to vacant. A vacant seat carries no user, project,
// role or activation timestamp.
func (s *Seat) Clear() {
	s.Status = SeatStatusVacant
	s.UserID = nil
	s.ProjectID = nil
	s.Role = ""
	s.ActivatedAt = nil
	s.UpdatedAt = time.Now()
}

// SeatHistoryEntry records one assignment interval of a seat. An entry with
// a nil RemovedAt is still open.
type SeatHistoryEntry struct {
	ID          uuid.UUID  `json:"id"`
	SeatID      uuid.UUID  `json:"seat_id"`
	OrgID       uuid.UUID  `json:"org_id"`
	UserID      uuid.UUID  `json:"user_id"`
	ProjectID   *uuid.UUID `json:"project_id,omitempty"`
	Role        string     `json:"role,omitempty"`
	ActivatedAt time.Time  `json:"activated_at"`
	RemovedAt   *time.Time `json:"removed_at,omitempty"`
}

// NewSeatHistoryEntry creates a new open history entry for a seat.
func NewSeatHistoryEntry(seat *Seat, userID uuid.UUID, projectID *uuid.UUID, role string) *SeatHistoryEntry {
	return &SeatHistoryEntry{
		ID:          uuid.New(),
		SeatID:      seat.ID,
		OrgID:       seat.OrgID,
		UserID:      userID,
		ProjectID:   projectID,
		Role:        role,
		ActivatedAt: time.Now(),
	}
}

// IsOpen returns true if the history entry has not been closed.
func (e *SeatHistoryEntry) IsOpen() bool {
	return e.RemovedAt == nil
}

// SeatSummary holds derived seat counts for an organization. It is computed
// on demand and never persisted.
type SeatSummary struct {
	OrgID  uuid.UUID `json:"org_id"`
	Total  int       `json:"total"`
	Active int       `json:"active"`
	Vacant int       `json:"vacant"`
}
