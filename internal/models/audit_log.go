package models

import (
	"time"

	"github.com/google/uuid"
)

// AuditAction represents the type of action that was audited.
type AuditAction string

const (
	// CRUD actions
	AuditActionCreate  AuditAction = "create"
	AuditActionUpdate  AuditAction = "update"
	AuditActionArchive AuditAction = "archive"

	// Seat actions
	AuditActionSeatSeed     AuditAction = "seat_seed"
	AuditActionSeatAllocate AuditAction = "seat_allocate"
	AuditActionSeatRelease  AuditAction = "seat_release"
	AuditActionSeatAssign   AuditAction = "seat_assign"
	AuditActionSeatClear    AuditAction = "seat_clear"

	// Invite actions
	AuditActionInviteCreate AuditAction = "invite_create"
	AuditActionInviteResend AuditAction = "invite_resend"
	AuditActionInviteCancel AuditAction = "invite_cancel"
	AuditActionInviteAccept AuditAction = "invite_accept"

	// Timesheet actions
	AuditActionTimesheetSubmit  AuditAction = "timesheet_submit"
	AuditActionTimesheetApprove AuditAction = "timesheet_approve"
	AuditActionTimesheetReject  AuditAction = "timesheet_reject"
)

// AuditLog represents a single audit log entry for compliance tracking.
type AuditLog struct {
	ID         uuid.UUID   `json:"id"`
	OrgID      uuid.UUID   `json:"org_id"`
	ActorID    *uuid.UUID  `json:"actor_id,omitempty"`
	Action     AuditAction `json:"action"`
	EntityType string      `json:"entity_type"`
	EntityID   *uuid.UUID  `json:"entity_id,omitempty"`
	Metadata   string      `json:"metadata,omitempty"`
	IPAddress  string      `json:"ip_address,omitempty"`
	CreatedAt  time.Time   `json:"created_at"`
}

// NewAuditLog creates a new AuditLog entry.
func NewAuditLog(orgID uuid.UUID, action AuditAction, entityType string) *AuditLog {
	return &AuditLog{
		ID:         uuid.New(),
		OrgID:      orgID,
		Action:     action,
		EntityType: entityType,
		CreatedAt:  time.Now(),
	}
}

// WithActor sets the acting user for the audit log.
func (a *AuditLog) WithActor(actorID uuid.UUID) *AuditLog {
	a.ActorID = &actorID
	return a
}

// WithEntity sets the entity being acted upon.
func (a *AuditLog) WithEntity(entityID uuid.UUID) *AuditLog {
	a.EntityID = &entityID
	return a
}

// WithMetadata sets additional details about the action.
func (a *AuditLog) WithMetadata(metadata string) *AuditLog {
	a.Metadata = metadata
	return a
}

// WithRequestInfo sets HTTP request information.
func (a *AuditLog) WithRequestInfo(ipAddress string) *AuditLog {
	a.IPAddress = ipAddress
	return a
}
