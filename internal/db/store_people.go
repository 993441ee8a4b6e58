package db

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/ironbeam/crewdeck/internal/models"
)

// Person methods

const personColumns = `id, org_id, first_name, last_name, primary_email, phone, external_id,
	user_id, legal_hold, archived_at, created_at, updated_at`

func scanPerson(row interface{ Scan(...any) error }) (*models.Person, error) {
	var p models.Person
	err := row.Scan(
		&p.ID, &p.OrgID, &p.FirstName, &p.LastName, &p.PrimaryEmail, &p.Phone,
		&p.ExternalID, &p.UserID, &p.LegalHold, &p.ArchivedAt, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// CreatePerson inserts a new person. Partial unique indexes on email and
// external ID reject duplicates among non-archived people of the org.
func (db *DB) CreatePerson(ctx context.Context, p *models.Person) error {
	_, err := db.Pool.Exec(ctx, `
		INSERT INTO people (id, org_id, first_name, last_name, primary_email, phone, external_id,
			user_id, legal_hold, archived_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`, p.ID, p.OrgID, p.FirstName, p.LastName, p.PrimaryEmail, p.Phone, p.ExternalID,
		p.UserID, p.LegalHold, p.ArchivedAt, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create person: %w", err)
	}
	return nil
}

// GetPersonByID returns a person by their ID.
func (db *DB) GetPersonByID(ctx context.Context, id uuid.UUID) (*models.Person, error) {
	p, err := scanPerson(db.Pool.QueryRow(ctx, `
		SELECT `+personColumns+` FROM people WHERE id = $1
	`, id))
	if err != nil {
		return nil, fmt.Errorf("get person: %w", err)
	}
	return p, nil
}

// GetPersonByEmail returns the non-archived person with the given primary
// email in an organization.
func (db *DB) GetPersonByEmail(ctx context.Context, orgID uuid.UUID, email string) (*models.Person, error) {
	p, err := scanPerson(db.Pool.QueryRow(ctx, `
		SELECT `+personColumns+` FROM people
		WHERE org_id = $1 AND LOWER(primary_email) = LOWER($2) AND archived_at IS NULL
	`, orgID, email))
	if err != nil {
		return nil, fmt.Errorf("get person by email: %w", err)
	}
	return p, nil
}

// GetPersonByExternalID returns the non-archived person with the given
// external ID in an organization.
func (db *DB) GetPersonByExternalID(ctx context.Context, orgID uuid.UUID, externalID string) (*models.Person, error) {
	p, err := scanPerson(db.Pool.QueryRow(ctx, `
		SELECT `+personColumns+` FROM people
		WHERE org_id = $1 AND external_id = $2 AND archived_at IS NULL
	`, orgID, externalID))
	if err != nil {
		return nil, fmt.Errorf("get person by external id: %w", err)
	}
	return p, nil
}

// GetPersonByUserID returns the person linked to a user account in an org.
func (db *DB) GetPersonByUserID(ctx context.Context, orgID, userID uuid.UUID) (*models.Person, error) {
	p, err := scanPerson(db.Pool.QueryRow(ctx, `
		SELECT `+personColumns+` FROM people
		WHERE org_id = $1 AND user_id = $2
	`, orgID, userID))
	if err != nil {
		return nil, fmt.Errorf("get person by user: %w", err)
	}
	return p, nil
}

// UpdatePerson persists the mutable fields of a person.
func (db *DB) UpdatePerson(ctx context.Context, p *models.Person) error {
	p.UpdatedAt = time.Now()
	_, err := db.Pool.Exec(ctx, `
		UPDATE people
		SET first_name = $2, last_name = $3, primary_email = $4, phone = $5, external_id = $6,
		    user_id = $7, legal_hold = $8, archived_at = $9, updated_at = $10
		WHERE id = $1
	`, p.ID, p.FirstName, p.LastName, p.PrimaryEmail, p.Phone, p.ExternalID,
		p.UserID, p.LegalHold, p.ArchivedAt, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update person: %w", err)
	}
	return nil
}

// ListPeople returns people of an organization ordered by name. Archived
// people are included only when includeArchived is set.
func (db *DB) ListPeople(ctx context.Context, orgID uuid.UUID, includeArchived bool) ([]*models.Person, error) {
	query := `SELECT ` + personColumns + ` FROM people WHERE org_id = $1`
	if !includeArchived {
		query += ` AND archived_at IS NULL`
	}
	query += ` ORDER BY last_name, first_name`

	rows, err := db.Pool.Query(ctx, query, orgID)
	if err != nil {
		return nil, fmt.Errorf("list people: %w", err)
	}
	defer rows.Close()

	var people []*models.Person
	for rows.Next() {
		p, err := scanPerson(rows)
		if err != nil {
			return nil, fmt.Errorf("scan person: %w", err)
		}
		people = append(people, p)
	}
	return people, rows.Err()
}
