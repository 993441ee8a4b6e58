// Package models defines the domain models for Crewdeck.
package models

import (
	"time"

	"github.com/google/uuid"
)

// Organization represents a multi-tenant organization.
type Organization struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	SeatCount int       `json:"seat_count"`
	LegalHold bool      `json:"legal_hold"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewOrganization creates a new Organization with the given name, slug and seat count.
func NewOrganization(name, slug string, seatCount int) *Organization {
	now := time.Now()
	return &Organization{
		ID:        uuid.New(),
		Name:      name,
		Slug:      slug,
		SeatCount: seatCount,
		CreatedAt: now,
		UpdatedAt: now,
	}
}
