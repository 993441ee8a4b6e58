package models

import (
	"time"

	"github.com/google/uuid"
)

// Project represents a project within an organization. The project code is
// unique among non-archived projects of the same organization.
type Project struct {
	ID         uuid.UUID  `json:"id"`
	OrgID      uuid.UUID  `json:"org_id"`
	Code       string     `json:"code"`
	Name       string     `json:"name"`
	LegalHold  bool       `json:"legal_hold"`
	ArchivedAt *time.Time `json:"archived_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// NewProject creates a new Project in the given organization.
func NewProject(orgID uuid.UUID, code, name string) *Project {
	now := time.Now()
	return &Project{
		ID:        uuid.New(),
		OrgID:     orgID,
		Code:      code,
		Name:      name,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// IsArchived returns true if the project has been soft-deleted.
func (p *Project) IsArchived() bool {
	return p.ArchivedAt != nil
}

// CostCode represents a billing cost code within an organization.
type CostCode struct {
	ID          uuid.UUID  `json:"id"`
	OrgID       uuid.UUID  `json:"org_id"`
	Code        string     `json:"code"`
	Description string     `json:"description,omitempty"`
	ArchivedAt  *time.Time `json:"archived_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// NewCostCode creates a new CostCode in the given organization.
func NewCostCode(orgID uuid.UUID, code, description string) *CostCode {
	now := time.Now()
	return &CostCode{
		ID:          uuid.New(),
		OrgID:       orgID,
		Code:        code,
		Description: description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// IsArchived returns true if the cost code has been soft-deleted.
func (c *CostCode) IsArchived() bool {
	return c.ArchivedAt != nil
}
