package models

import (
	"time"

	"github.com/google/uuid"
)

// Person represents a person or contact record within an organization.
// A person may optionally be linked to a User account once an invitation
// for them has been accepted.
type Person struct {
	ID           uuid.UUID  `json:"id"`
	OrgID        uuid.UUID  `json:"org_id"`
	FirstName    string     `json:"first_name"`
	LastName     string     `json:"last_name"`
	PrimaryEmail string     `json:"primary_email,omitempty"`
	Phone        string     `json:"phone,omitempty"`
	ExternalID   string     `json:"external_id,omitempty"`
	UserID       *uuid.UUID `json:"user_id,omitempty"`
	LegalHold    bool       `json:"legal_hold"`
	ArchivedAt   *time.Time `json:"archived_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// NewPerson creates a new Person in the given organization.
func NewPerson(orgID uuid.UUID, firstName, lastName, primaryEmail string) *Person {
	now := time.Now()
	return &Person{
		ID:           uuid.New(),
		OrgID:        orgID,
		FirstName:    firstName,
		LastName:     lastName,
		PrimaryEmail: primaryEmail,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// FullName returns the person's full display name.
func (p *Person) FullName() string {
	if p.FirstName == "" {
		return p.LastName
	}
	if p.LastName == "" {
		return p.FirstName
	}
	return p.FirstName + " " + p.LastName
}

// IsArchived returns true if the person has been soft-deleted.
func (p *Person) IsArchived() bool {
	return p.ArchivedAt != nil
}

// HasUsableEmail returns true if the person has a primary email address.
func (p *Person) HasUsableEmail() bool {
	return p.PrimaryEmail != ""
}

// IsLinked returns true if the person is linked to a user account.
func (p *Person) IsLinked() bool {
	return p.UserID != nil
}
