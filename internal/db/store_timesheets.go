package db

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/ironbeam/crewdeck/internal/models"
)

// Timesheet methods

const timesheetColumns = `id, org_id, person_id, project_id, cost_code_id, work_date, row_number,
	hours, notes, status, submitted_at, decided_at, decided_by, decision_note, created_at, updated_at`

func scanTimesheetEntry(row interface{ Scan(...any) error }) (*models.TimesheetEntry, error) {
	var t models.TimesheetEntry
	var statusStr string
	err := row.Scan(
		&t.ID, &t.OrgID, &t.PersonID, &t.ProjectID, &t.CostCodeID, &t.WorkDate, &t.RowNumber,
		&t.Hours, &t.Notes, &statusStr, &t.SubmittedAt, &t.DecidedAt, &t.DecidedBy,
		&t.DecisionNote, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	t.Status = models.TimesheetStatus(statusStr)
	return &t, nil
}

// CreateTimesheetEntry inserts a new timesheet entry.
func (db *DB) CreateTimesheetEntry(ctx context.Context, t *models.TimesheetEntry) error {
	_, err := db.Pool.Exec(ctx, `
		INSERT INTO timesheet_entries (id, org_id, person_id, project_id, cost_code_id, work_date, row_number,
			hours, notes, status, submitted_at, decided_at, decided_by, decision_note, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`, t.ID, t.OrgID, t.PersonID, t.ProjectID, t.CostCodeID, t.WorkDate, t.RowNumber,
		t.Hours, t.Notes, string(t.Status), t.SubmittedAt, t.DecidedAt, t.DecidedBy,
		t.DecisionNote, t.CreatedAt, t.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create timesheet entry: %w", err)
	}
	return nil
}

// GetTimesheetEntryByID returns a timesheet entry by its ID.
func (db *DB) GetTimesheetEntryByID(ctx context.Context, id uuid.UUID) (*models.TimesheetEntry, error) {
	t, err := scanTimesheetEntry(db.Pool.QueryRow(ctx, `
		SELECT `+timesheetColumns+` FROM timesheet_entries WHERE id = $1
	`, id))
	if err != nil {
		return nil, fmt.Errorf("get timesheet entry: %w", err)
	}
	return t, nil
}

// UpdateTimesheetEntry persists the mutable fields of a timesheet entry.
func (db *DB) UpdateTimesheetEntry(ctx context.Context, t *models.TimesheetEntry) error {
	t.UpdatedAt = time.Now()
	_, err := db.Pool.Exec(ctx, `
		UPDATE timesheet_entries
		SET project_id = $2, cost_code_id = $3, work_date = $4, row_number = $5, hours = $6,
		    notes = $7, status = $8, submitted_at = $9, decided_at = $10, decided_by = $11,
		    decision_note = $12, updated_at = $13
		WHERE id = $1
	`, t.ID, t.ProjectID, t.CostCodeID, t.WorkDate, t.RowNumber, t.Hours,
		t.Notes, string(t.Status), t.SubmittedAt, t.DecidedAt, t.DecidedBy,
		t.DecisionNote, t.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update timesheet entry: %w", err)
	}
	return nil
}

// ListTimesheetEntries returns the entries of a person within a work date
// range, ordered by date then row number.
func (db *DB) ListTimesheetEntries(ctx context.Context, orgID, personID uuid.UUID, from, to time.Time) ([]*models.TimesheetEntry, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT `+timesheetColumns+` FROM timesheet_entries
		WHERE org_id = $1 AND person_id = $2 AND work_date >= $3 AND work_date <= $4
		ORDER BY work_date, row_number
	`, orgID, personID, from, to)
	if err != nil {
		return nil, fmt.Errorf("list timesheet entries: %w", err)
	}
	defer rows.Close()

	var entries []*models.TimesheetEntry
	for rows.Next() {
		t, err := scanTimesheetEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan timesheet entry: %w", err)
		}
		entries = append(entries, t)
	}
	return entries, rows.Err()
}

// ListTimesheetEntriesByStatus returns entries of an organization in the
// given status, oldest submission first.
func (db *DB) ListTimesheetEntriesByStatus(ctx context.Context, orgID uuid.UUID, status models.TimesheetStatus) ([]*models.TimesheetEntry, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT `+timesheetColumns+` FROM timesheet_entries
		WHERE org_id = $1 AND status = $2
		ORDER BY submitted_at NULLS LAST, work_date
	`, orgID, string(status))
	if err != nil {
		return nil, fmt.Errorf("list timesheet entries by status: %w", err)
	}
	defer rows.Close()

	var entries []*models.TimesheetEntry
	for rows.Next() {
		t, err := scanTimesheetEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan timesheet entry: %w", err)
		}
		entries = append(entries, t)
	}
	return entries, rows.Err()
}
