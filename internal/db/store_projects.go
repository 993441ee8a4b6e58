package db

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/ironbeam/crewdeck/internal/models"
)

// Project methods

const projectColumns = `id, org_id, code, name, legal_hold, archived_at, created_at, updated_at`

func scanProject(row interface{ Scan(...any) error }) (*models.Project, error) {
	var p models.Project
	err := row.Scan(&p.ID, &p.OrgID, &p.Code, &p.Name, &p.LegalHold, &p.ArchivedAt, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// CreateProject inserts a new project. Partial unique indexes on code and
// name reject duplicates among non-archived projects of the org.
func (db *DB) CreateProject(ctx context.Context, p *models.Project) error {
	_, err := db.Pool.Exec(ctx, `
		INSERT INTO projects (id, org_id, code, name, legal_hold, archived_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, p.ID, p.OrgID, p.Code, p.Name, p.LegalHold, p.ArchivedAt, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create project: %w", err)
	}
	return nil
}

// GetProjectByID returns a project by its ID.
func (db *DB) GetProjectByID(ctx context.Context, id uuid.UUID) (*models.Project, error) {
	p, err := scanProject(db.Pool.QueryRow(ctx, `
		SELECT `+projectColumns+` FROM projects WHERE id = $1
	`, id))
	if err != nil {
		return nil, fmt.Errorf("get project: %w", err)
	}
	return p, nil
}

// GetProjectByCode returns the non-archived project with the given code,
// compared case-insensitively.
func (db *DB) GetProjectByCode(ctx context.Context, orgID uuid.UUID, code string) (*models.Project, error) {
	p, err := scanProject(db.Pool.QueryRow(ctx, `
		SELECT `+projectColumns+` FROM projects
		WHERE org_id = $1 AND UPPER(code) = UPPER($2) AND archived_at IS NULL
	`, orgID, code))
	if err != nil {
		return nil, fmt.Errorf("get project by code: %w", err)
	}
	return p, nil
}

// GetProjectByName returns the non-archived project with the given name,
// compared case-insensitively.
func (db *DB) GetProjectByName(ctx context.Context, orgID uuid.UUID, name string) (*models.Project, error) {
	p, err := scanProject(db.Pool.QueryRow(ctx, `
		SELECT `+projectColumns+` FROM projects
		WHERE org_id = $1 AND LOWER(name) = LOWER($2) AND archived_at IS NULL
	`, orgID, name))
	if err != nil {
		return nil, fmt.Errorf("get project by name: %w", err)
	}
	return p, nil
}

// UpdateProject persists the mutable fields of a project.
func (db *DB) UpdateProject(ctx context.Context, p *models.Project) error {
	p.UpdatedAt = time.Now()
	_, err := db.Pool.Exec(ctx, `
		UPDATE projects
		SET code = $2, name = $3, legal_hold = $4, archived_at = $5, updated_at = $6
		WHERE id = $1
	`, p.ID, p.Code, p.Name, p.LegalHold, p.ArchivedAt, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update project: %w", err)
	}
	return nil
}

// ListProjects returns projects of an organization ordered by code.
func (db *DB) ListProjects(ctx context.Context, orgID uuid.UUID, includeArchived bool) ([]*models.Project, error) {
	query := `SELECT ` + projectColumns + ` FROM projects WHERE org_id = $1`
	if !includeArchived {
		query += ` AND archived_at IS NULL`
	}
	query += ` ORDER BY code`

	rows, err := db.Pool.Query(ctx, query, orgID)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()

	var projects []*models.Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, fmt.Errorf("scan project: %w", err)
		}
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

// Cost code methods

const costCodeColumns = `id, org_id, code, description, archived_at, created_at, updated_at`

func scanCostCode(row interface{ Scan(...any) error }) (*models.CostCode, error) {
	var c models.CostCode
	err := row.Scan(&c.ID, &c.OrgID, &c.Code, &c.Description, &c.ArchivedAt, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// CreateCostCode inserts a new cost code.
func (db *DB) CreateCostCode(ctx context.Context, c *models.CostCode) error {
	_, err := db.Pool.Exec(ctx, `
		INSERT INTO cost_codes (id, org_id, code, description, archived_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, c.ID, c.OrgID, c.Code, c.Description, c.ArchivedAt, c.CreatedAt, c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create cost code: %w", err)
	}
	return nil
}

// GetCostCodeByID returns a cost code by its ID.
func (db *DB) GetCostCodeByID(ctx context.Context, id uuid.UUID) (*models.CostCode, error) {
	c, err := scanCostCode(db.Pool.QueryRow(ctx, `
		SELECT `+costCodeColumns+` FROM cost_codes WHERE id = $1
	`, id))
	if err != nil {
		return nil, fmt.Errorf("get cost code: %w", err)
	}
	return c, nil
}

// GetCostCodeByCode returns the non-archived cost code with the given code,
// compared case-insensitively.
func (db *DB) GetCostCodeByCode(ctx context.Context, orgID uuid.UUID, code string) (*models.CostCode, error) {
	c, err := scanCostCode(db.Pool.QueryRow(ctx, `
		SELECT `+costCodeColumns+` FROM cost_codes
		WHERE org_id = $1 AND UPPER(code) = UPPER($2) AND archived_at IS NULL
	`, orgID, code))
	if err != nil {
		return nil, fmt.Errorf("get cost code by code: %w", err)
	}
	return c, nil
}

// UpdateCostCode persists the mutable fields of a cost code.
func (db *DB) UpdateCostCode(ctx context.Context, c *models.CostCode) error {
	c.UpdatedAt = time.Now()
	_, err := db.Pool.Exec(ctx, `
		UPDATE cost_codes
		SET code = $2, description = $3, archived_at = $4, updated_at = $5
		WHERE id = $1
	`, c.ID, c.Code, c.Description, c.ArchivedAt, c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update cost code: %w", err)
	}
	return nil
}

// ListCostCodes returns cost codes of an organization ordered by code.
func (db *DB) ListCostCodes(ctx context.Context, orgID uuid.UUID, includeArchived bool) ([]*models.CostCode, error) {
	query := `SELECT ` + costCodeColumns + ` FROM cost_codes WHERE org_id = $1`
	if !includeArchived {
		query += ` AND archived_at IS NULL`
	}
	query += ` ORDER BY code`

	rows, err := db.Pool.Query(ctx, query, orgID)
	if err != nil {
		return nil, fmt.Errorf("list cost codes: %w", err)
	}
	defer rows.Close()

	var codes []*models.CostCode
	for rows.Next() {
		c, err := scanCostCode(rows)
		if err != nil {
			return nil, fmt.Errorf("scan cost code: %w", err)
		}
		codes = append(codes, c)
	}
	return codes, rows.Err()
}
