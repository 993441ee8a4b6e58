package models

import (
	"time"

	"github.com/google/uuid"
)

// NotificationEventType represents the type of in-app notification event.
type NotificationEventType string

const (
	EventInviteSent        NotificationEventType = "invite_sent"
	EventInviteAccepted    NotificationEventType = "invite_accepted"
	EventSeatAssigned      NotificationEventType = "seat_assigned"
	EventSeatReleased      NotificationEventType = "seat_released"
	EventTimesheetApproved NotificationEventType = "timesheet_approved"
	EventTimesheetRejected NotificationEventType = "timesheet_rejected"
)

// Notification represents an in-app notification delivered to a user.
type Notification struct {
	ID        uuid.UUID             `json:"id"`
	OrgID     uuid.UUID             `json:"org_id"`
	UserID    uuid.UUID             `json:"user_id"`
	EventType NotificationEventType `json:"event_type"`
	Payload   string                `json:"payload,omitempty"`
	ReadAt    *time.Time            `json:"read_at,omitempty"`
	CreatedAt time.Time             `json:"created_at"`
}

// NewNotification creates a new unread Notification.
func NewNotification(orgID, userID uuid.UUID, eventType NotificationEventType, payload string) *Notification {
	return &Notification{
		ID:        uuid.New(),
		OrgID:     orgID,
		UserID:    userID,
		EventType: eventType,
		Payload:   payload,
		CreatedAt: time.Now(),
	}
}

// IsRead returns true if the notification has been read.
func (n *Notification) IsRead() bool {
	return n.ReadAt != nil
}
