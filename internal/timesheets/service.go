// Package timesheets manages timesheet entries and their submit/approve
// workflow.
package timesheets

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
	"github.com/ironbeam/crewdeck/internal/notifications"
	"github.com/rs/zerolog"
)

// Store defines the interface for timesheet persistence operations.
type Store interface {
	GetOrganizationByID(ctx context.Context, id uuid.UUID) (*models.Organization, error)
	GetPersonByID(ctx context.Context, id uuid.UUID) (*models.Person, error)
	GetProjectByID(ctx context.Context, id uuid.UUID) (*models.Project, error)
	GetCostCodeByID(ctx context.Context, id uuid.UUID) (*models.CostCode, error)

	CreateTimesheetEntry(ctx context.Context, t *models.TimesheetEntry) error
	GetTimesheetEntryByID(ctx context.Context, id uuid.UUID) (*models.TimesheetEntry, error)
	UpdateTimesheetEntry(ctx context.Context, t *models.TimesheetEntry) error
	ListTimesheetEntries(ctx context.Context, orgID, personID uuid.UUID, from, to time.Time) ([]*models.TimesheetEntry, error)
	ListTimesheetEntriesByStatus(ctx context.Context, orgID uuid.UUID, status models.TimesheetStatus) ([]*models.TimesheetEntry, error)
}

// CreateRequest represents a request to create a timesheet entry.
type CreateRequest struct {
	PersonID   uuid.UUID  `json:"person_id" binding:"required"`
	ProjectID  *uuid.UUID `json:"project_id,omitempty"`
	CostCodeID *uuid.UUID `json:"cost_code_id,omitempty"`
	WorkDate   time.Time  `json:"work_date"`
	RowNumber  int        `json:"row_number"`
	Hours      float64    `json:"hours"`
	Notes      string     `json:"notes,omitempty"`
}

// Service handles timesheet operations.
type Service struct {
	store        Store
	emailService *notifications.EmailService
	recorder     *audit.Recorder
	sink         *notifications.Sink
	logger       zerolog.Logger
}

// NewService creates a new timesheet service. emailService may be nil when
// SMTP is not configured.
func NewService(store Store, emailService *notifications.EmailService, recorder *audit.Recorder, sink *notifications.Sink, logger zerolog.Logger) *Service {
	return &Service{
		store:        store,
		emailService: emailService,
		recorder:     recorder,
		sink:         sink,
		logger:       logger.With().Str("component", "timesheet_service").Logger(),
	}
}

// Create records a new draft timesheet entry.
func (s *Service) Create(ctx context.Context, orgID uuid.UUID, req CreateRequest, actorID uuid.UUID) (*models.TimesheetEntry, error) {
	if _, err := s.store.GetOrganizationByID(ctx, orgID); err != nil {
		if db.IsNotFound(err) {
			return nil, apperrors.NotFound("organization not found")
		}
		return nil, apperrors.Internal(err, "resolve organization")
	}
	if req.WorkDate.IsZero() {
		return nil, apperrors.BadRequest("a work date is required")
	}
	if req.RowNumber <= 0 {
		return nil, apperrors.BadRequest("a positive row number is required")
	}
	if req.Hours <= 0 || req.Hours > 24 {
		return nil, apperrors.BadRequest("hours must be between 0 and 24")
	}

	person, err := s.store.GetPersonByID(ctx, req.PersonID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, apperrors.NotFound("person not found")
		}
		return nil, apperrors.Internal(err, "get person")
	}
	if person.OrgID != orgID || person.IsArchived() {
		return nil, apperrors.NotFound("person not found")
	}

	if req.ProjectID != nil {
		project, err := s.store.GetProjectByID(ctx, *req.ProjectID)
		if err != nil {
			if db.IsNotFound(err) {
				return nil, apperrors.NotFound("project not found")
			}
			return nil, apperrors.Internal(err, "get project")
		}
		if project.OrgID != orgID || project.IsArchived() {
			return nil, apperrors.NotFound("project not found")
		}
	}
	if req.CostCodeID != nil {
		costCode, err := s.store.GetCostCodeByID(ctx, *req.CostCodeID)
		if err != nil {
			if db.IsNotFound(err) {
				return nil, apperrors.NotFound("cost code not found")
			}
			return nil, apperrors.Internal(err, "get cost code")
		}
		if costCode.OrgID != orgID || costCode.IsArchived() {
			return nil, apperrors.NotFound("cost code not found")
		}
	}

	entry := models.NewTimesheetEntry(orgID, req.PersonID, req.WorkDate, req.RowNumber, req.Hours)
	entry.ProjectID = req.ProjectID
	entry.CostCodeID = req.CostCodeID
	entry.Notes = req.Notes

	if err := s.store.CreateTimesheetEntry(ctx, entry); err != nil {
		// UNIQUE(org_id, person_id, work_date, row_number) rejects a second
		// entry on the same row of the same day.
		if db.IsUniqueViolation(err) {
			return nil, apperrors.Conflict("an entry already exists for this work date and row")
		}
		return nil, apperrors.Internal(err, "create timesheet entry")
	}

	s.recorder.Record(orgID, actorID, models.AuditActionCreate, "timesheet_entry", entry.ID,
		fmt.Sprintf(`{"work_date":%q,"hours":%g}`, entry.WorkDate.Format("2006-01-02"), entry.Hours))
	return entry, nil
}

// Submit moves a draft or rejected entry to submitted.
func (s *Service) Submit(ctx context.Context, orgID, entryID uuid.UUID, actorID uuid.UUID) (*models.TimesheetEntry, error) {
	entry, err := s.getOrgEntry(ctx, orgID, entryID)
	if err != nil {
		return nil, err
	}
	if !entry.CanSubmit() {
		return nil, apperrors.Conflict("entry is %s and cannot be submitted", entry.Status)
	}

	now := time.Now()
	entry.Status = models.TimesheetStatusSubmitted
	entry.SubmittedAt = &now
	entry.DecidedAt = nil
	entry.DecidedBy = nil
	entry.DecisionNote = ""

	if err := s.store.UpdateTimesheetEntry(ctx, entry); err != nil {
		return nil, apperrors.Internal(err, "submit timesheet entry")
	}

	s.recorder.Record(orgID, actorID, models.AuditActionTimesheetSubmit, "timesheet_entry", entry.ID,
		fmt.Sprintf(`{"work_date":%q}`, entry.WorkDate.Format("2006-01-02")))
	return entry, nil
}

// Approve marks a submitted entry approved and notifies its owner.
func (s *Service) Approve(ctx context.Context, orgID, entryID uuid.UUID, note string, deciderID uuid.UUID) (*models.TimesheetEntry, error) {
	return s.decide(ctx, orgID, entryID, note, deciderID, true)
}

// Reject marks a submitted entry rejected and notifies its owner. The entry
// returns to the owner for correction and resubmission.
func (s *Service) Reject(ctx context.Context, orgID, entryID uuid.UUID, note string, deciderID uuid.UUID) (*models.TimesheetEntry, error) {
	return s.decide(ctx, orgID, entryID, note, deciderID, false)
}

func (s *Service) decide(ctx context.Context, orgID, entryID uuid.UUID, note string, deciderID uuid.UUID, approved bool) (*models.TimesheetEntry, error) {
	entry, err := s.getOrgEntry(ctx, orgID, entryID)
	if err != nil {
		return nil, err
	}
	if !entry.CanDecide() {
		return nil, apperrors.Conflict("entry is %s and cannot be decided", entry.Status)
	}

	now := time.Now()
	if approved {
		entry.Status = models.TimesheetStatusApproved
	} else {
		entry.Status = models.TimesheetStatusRejected
	}
	entry.DecidedAt = &now
	entry.DecidedBy = &deciderID
	entry.DecisionNote = note

	if err := s.store.UpdateTimesheetEntry(ctx, entry); err != nil {
		return nil, apperrors.Internal(err, "decide timesheet entry")
	}

	action := models.AuditActionTimesheetApprove
	if !approved {
		action = models.AuditActionTimesheetReject
	}
	s.recorder.Record(orgID, deciderID, action, "timesheet_entry", entry.ID,
		fmt.Sprintf(`{"work_date":%q,"note":%q}`, entry.WorkDate.Format("2006-01-02"), note))
	metrics.RecordTimesheetDecision(approved)

	s.notifyDecision(ctx, entry, approved)
	return entry, nil
}

// Get returns an entry scoped to the org.
func (s *Service) Get(ctx context.Context, orgID, entryID uuid.UUID) (*models.TimesheetEntry, error) {
	return s.getOrgEntry(ctx, orgID, entryID)
}

// List returns a person's entries within a work date range.
func (s *Service) List(ctx context.Context, orgID, personID uuid.UUID, from, to time.Time) ([]*models.TimesheetEntry, error) {
	entries, err := s.store.ListTimesheetEntries(ctx, orgID, personID, from, to)
	if err != nil {
		return nil, apperrors.Internal(err, "list timesheet entries")
	}
	return entries, nil
}

// ListPending returns the org's submitted entries awaiting a decision.
func (s *Service) ListPending(ctx context.Context, orgID uuid.UUID) ([]*models.TimesheetEntry, error) {
	entries, err := s.store.ListTimesheetEntriesByStatus(ctx, orgID, models.TimesheetStatusSubmitted)
	if err != nil {
		return nil, apperrors.Internal(err, "list pending timesheet entries")
	}
	return entries, nil
}

// notifyDecision delivers an in-app notification and, when the person has an
// email, a decision email. Both are best-effort.
func (s *Service) notifyDecision(ctx context.Context, entry *models.TimesheetEntry, approved bool) {
	person, err := s.store.GetPersonByID(ctx, entry.PersonID)
	if err != nil {
		s.logger.Warn().Err(err).
			Str("entry_id", entry.ID.String()).
			Msg("failed to load person for decision notification")
		return
	}

	event := models.EventTimesheetApproved
	if !approved {
		event = models.EventTimesheetRejected
	}
	if person.IsLinked() {
		s.sink.Create(ctx, entry.OrgID, *person.UserID, event,
			fmt.Sprintf(`{"entry_id":%q,"work_date":%q}`, entry.ID, entry.WorkDate.Format("2006-01-02")))
	}

	if s.emailService == nil || !person.HasUsableEmail() {
		return
	}
	org, err := s.store.GetOrganizationByID(ctx, entry.OrgID)
	if err != nil {
		s.logger.Warn().Err(err).Msg("failed to load org for decision email")
		return
	}
	err = s.emailService.SendTimesheetDecision(person.PrimaryEmail, notifications.TimesheetDecisionData{
		OrgName:      org.Name,
		PersonName:   person.FullName(),
		WorkDate:     entry.WorkDate,
		Hours:        entry.Hours,
		Approved:     approved,
		DecisionNote: entry.DecisionNote,
	})
	if err != nil {
		s.logger.Warn().Err(err).
			Str("entry_id", entry.ID.String()).
			Msg("failed to send timesheet decision email")
	}
}

// getOrgEntry loads an entry and verifies org scope. Cross-org lookups
// report NotFound.
func (s *Service) getOrgEntry(ctx context.Context, orgID, entryID uuid.UUID) (*models.TimesheetEntry, error) {
	entry, err := s.store.GetTimesheetEntryByID(ctx, entryID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, apperrors.NotFound("timesheet entry not found")
		}
		return nil, apperrors.Internal(err, "get timesheet entry")
	}
	if entry.OrgID != orgID {
		return nil, apperrors.NotFound("timesheet entry not found")
	}
	return entry, nil
}
