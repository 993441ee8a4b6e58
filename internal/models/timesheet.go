package models

import (
	"time"

	"github.com/google/uuid"
)

// TimesheetStatus represents the approval state of a timesheet entry.
type TimesheetStatus string

const (
	// TimesheetStatusDraft means the entry is editable by its owner.
	TimesheetStatusDraft TimesheetStatus = "draft"
	// TimesheetStatusSubmitted means the entry awaits an approval decision.
	TimesheetStatusSubmitted TimesheetStatus = "submitted"
	// TimesheetStatusApproved means the entry was approved.
	TimesheetStatusApproved TimesheetStatus = "approved"
	// TimesheetStatusRejected means the entry was rejected.
	TimesheetStatusRejected TimesheetStatus = "rejected"
)

// TimesheetEntry represents one row of worked hours for a person on a
// given work date, optionally charged to a project and cost code.
type TimesheetEntry struct {
	ID           uuid.UUID       `json:"id"`
	OrgID        uuid.UUID       `json:"org_id"`
	PersonID     uuid.UUID       `json:"person_id"`
	ProjectID    *uuid.UUID      `json:"project_id,omitempty"`
	CostCodeID   *uuid.UUID      `json:"cost_code_id,omitempty"`
	WorkDate     time.Time       `json:"work_date"`
	RowNumber    int             `json:"row_number"`
	Hours        float64         `json:"hours"`
	Notes        string          `json:"notes,omitempty"`
	Status       TimesheetStatus `json:"status"`
	SubmittedAt  *time.Time      `json:"submitted_at,omitempty"`
	DecidedAt    *time.Time      `json:"decided_at,omitempty"`
	DecidedBy    *uuid.UUID      `json:"decided_by,omitempty"`
	DecisionNote string          `json:"decision_note,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// NewTimesheetEntry creates a new draft TimesheetEntry.
func NewTimesheetEntry(orgID, personID uuid.UUID, workDate time.Time, rowNumber int, hours float64) *TimesheetEntry {
	now := time.Now()
	return &TimesheetEntry{
		ID:        uuid.New(),
		OrgID:     orgID,
		PersonID:  personID,
		WorkDate:  workDate,
		RowNumber: rowNumber,
		Hours:     hours,
		Status:    TimesheetStatusDraft,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// CanSubmit returns true if the entry can move to submitted.
func (t *TimesheetEntry) CanSubmit() bool {
	return t.Status == TimesheetStatusDraft || t.Status == TimesheetStatusRejected
}

// CanDecide returns true if the entry can be approved or rejected.
func (t *TimesheetEntry) CanDecide() bool {
	return t.Status == TimesheetStatusSubmitted
}
