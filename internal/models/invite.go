package models

import (
	"time"

	"github.com/google/uuid"
)

// InviteStatus represents the lifecycle state of an invitation.
type InviteStatus string

const (
	// InviteStatusPending means the invite awaits acceptance.
	InviteStatusPending InviteStatus = "pending"
	// InviteStatusAccepted means the invite was redeemed.
	InviteStatusAccepted InviteStatus = "accepted"
	// InviteStatusExpired means the token expiry passed before acceptance.
	InviteStatusExpired InviteStatus = "expired"
	// InviteStatusCanceled means the invite was canceled by an administrator.
	InviteStatusCanceled InviteStatus = "canceled"
)

// Invite represents a time-boxed, single-use invitation granting a named
// role to a person upon redemption. Only the sha256 hash of the token is
// stored; the plaintext exists only in the invite email.
type Invite struct {
	ID           uuid.UUID    `json:"id"`
	OrgID        uuid.UUID    `json:"org_id"`
	PersonID     uuid.UUID    `json:"person_id"`
	UserID       *uuid.UUID   `json:"user_id,omitempty"`
	Email        string       `json:"email"`
	Role         OrgRole      `json:"role"`
	TokenHash    string       `json:"-"`
	TokenExpires time.Time    `json:"token_expires"`
	Status       InviteStatus `json:"status"`
	ResendCount  int          `json:"resend_count"`
	LastSentAt   *time.Time   `json:"last_sent_at,omitempty"`
	InvitedBy    uuid.UUID    `json:"invited_by"`
	AcceptedAt   *time.Time   `json:"accepted_at,omitempty"`
	ArchivedAt   *time.Time   `json:"archived_at,omitempty"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

// NewInvite creates a new pending Invite.
func NewInvite(orgID, personID uuid.UUID, email string, role OrgRole, tokenHash string, invitedBy uuid.UUID, expires time.Time) *Invite {
	now := time.Now()
	return &Invite{
		ID:           uuid.New(),
		OrgID:        orgID,
		PersonID:     personID,
		Email:        email,
		Role:         role,
		TokenHash:    tokenHash,
		TokenExpires: expires,
		Status:       InviteStatusPending,
		InvitedBy:    invitedBy,
		LastSentAt:   &now,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// IsExpired returns true if the token expiry has passed.
func (i *Invite) IsExpired() bool {
	return time.Now().After(i.TokenExpires)
}

// IsAccepted returns true if the invitation has been accepted.
func (i *Invite) IsAccepted() bool {
	return i.AcceptedAt != nil
}

// IsArchived returns true if the invitation has been archived.
func (i *Invite) IsArchived() bool {
	return i.ArchivedAt != nil
}

// IsActionable returns true if the invite is pending, unexpired and not
// archived, i.e. it still counts against the one-active-invite-per-email rule.
func (i *Invite) IsActionable() bool {
	return i.Status == InviteStatusPending && !i.IsExpired() && !i.IsArchived()
}

// InviteWithDetails includes organization and inviter details for display.
type InviteWithDetails struct {
	ID           uuid.UUID    `json:"id"`
	OrgID        uuid.UUID    `json:"org_id"`
	OrgName      string       `json:"org_name"`
	PersonID     uuid.UUID    `json:"person_id"`
	PersonName   string       `json:"person_name"`
	Email        string       `json:"email"`
	Role         OrgRole      `json:"role"`
	InvitedBy    uuid.UUID    `json:"invited_by"`
	InviterName  string       `json:"inviter_name"`
	TokenExpires time.Time    `json:"token_expires"`
	Status       InviteStatus `json:"status"`
	ResendCount  int          `json:"resend_count"`
	CreatedAt    time.Time    `json:"created_at"`
}
