// Package people manages the person/contact records of an organization,
// enforcing the org-scoped uniqueness rules for email and external ID.
package people

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ironbeam/crewdeck/internal/apperrors"
	"github.com/ironbeam/crewdeck/internal/audit"
	"github.com/ironbeam/crewdeck/internal/db"
	"github.com/ironbeam/crewdeck/internal/models"
	"github.com/rs/zerolog"
)

// Store defines the interface for person persistence operations.
type Store interface {
	GetOrganizationByID(ctx context.Context, id uuid.UUID) (*models.Organization, error)
	CreatePerson(ctx context.Context, p *models.Person) error
	GetPersonByID(ctx context.Context, id uuid.UUID) (*models.Person, error)
	GetPersonByEmail(ctx context.Context, orgID uuid.UUID, email string) (*models.Person, error)
	GetPersonByExternalID(ctx context.Context, orgID uuid.UUID, externalID string) (*models.Person, error)
	UpdatePerson(ctx context.Context, p *models.Person) error
	ListPeople(ctx context.Context, orgID uuid.UUID, includeArchived bool) ([]*models.Person, error)
}

// CreateRequest represents a request to create a person.
type CreateRequest struct {
	FirstName    string `json:"first_name" binding:"required"`
	LastName     string `json:"last_name" binding:"required"`
	PrimaryEmail string `json:"primary_email,omitempty"`
	Phone        string `json:"phone,omitempty"`
	ExternalID   string `json:"external_id,omitempty"`
}

// UpdateRequest represents a request to update a person. Nil fields are
// left unchanged.
type UpdateRequest struct {
	FirstName    *string `json:"first_name,omitempty"`
	LastName     *string `json:"last_name,omitempty"`
	PrimaryEmail *string `json:"primary_email,omitempty"`
	Phone        *string `json:"phone,omitempty"`
	ExternalID   *string `json:"external_id,omitempty"`
}

// Service handles person operations.
type Service struct {
	store    Store
	recorder *audit.Recorder
	logger   zerolog.Logger
}

// NewService creates a new person service.
func NewService(store Store, recorder *audit.Recorder, logger zerolog.Logger) *Service {
	return &Service{
		store:    store,
		recorder: recorder,
		logger:   logger.With().Str("component", "person_service").Logger(),
	}
}

// Create creates a new person after normalizing and checking the org-scoped
// unique fields.
func (s *Service) Create(ctx context.Context, orgID uuid.UUID, req CreateRequest, actorID uuid.UUID) (*models.Person, error) {
	if _, err := s.store.GetOrganizationByID(ctx, orgID); err != nil {
		if db.IsNotFound(err) {
			return nil, apperrors.NotFound("organization not found")
		}
		return nil, apperrors.Internal(err, "resolve organization")
	}

	firstName := NormalizeName(req.FirstName)
	lastName := NormalizeName(req.LastName)
	if firstName == "" && lastName == "" {
		return nil, apperrors.BadRequest("a first or last name is required")
	}

	email := NormalizeEmail(req.PrimaryEmail)
	externalID := strings.TrimSpace(req.ExternalID)

	if err := s.checkUnique(ctx, orgID, uuid.Nil, email, externalID); err != nil {
		return nil, err
	}

	person := models.NewPerson(orgID, firstName, lastName, email)
	person.Phone = NormalizePhone(req.Phone)
	person.ExternalID = externalID

	if err := s.store.CreatePerson(ctx, person); err != nil {
		// Concurrent create with the same email or external ID; the partial
		// unique index is the backstop.
		if db.IsUniqueViolation(err) {
			return nil, apperrors.Conflict("a person with this email or external id already exists")
		}
		return nil, apperrors.Internal(err, "create person")
	}

	s.logger.Info().
		Str("person_id", person.ID.String()).
		Str("org_id", orgID.String()).
		Msg("person created")
	s.recorder.Record(orgID, actorID, models.AuditActionCreate, "person", person.ID,
		fmt.Sprintf(`{"name":%q}`, person.FullName()))

	return person, nil
}

// Update modifies a person. Fails with Forbidden when the person is on
// legal hold.
func (s *Service) Update(ctx context.Context, orgID, personID uuid.UUID, req UpdateRequest, actorID uuid.UUID) (*models.Person, error) {
	person, err := s.getOrgPerson(ctx, orgID, personID, true)
	if err != nil {
		return nil, err
	}
	if person.LegalHold {
		return nil, apperrors.Forbidden("person is on legal hold")
	}
	if person.IsArchived() {
		return nil, apperrors.Conflict("cannot update an archived person")
	}

	if req.FirstName != nil {
		person.FirstName = NormalizeName(*req.FirstName)
	}
	if req.LastName != nil {
		person.LastName = NormalizeName(*req.LastName)
	}
	if req.PrimaryEmail != nil {
		person.PrimaryEmail = NormalizeEmail(*req.PrimaryEmail)
	}
	if req.Phone != nil {
		person.Phone = NormalizePhone(*req.Phone)
	}
	if req.ExternalID != nil {
		person.ExternalID = strings.TrimSpace(*req.ExternalID)
	}
	if person.FirstName == "" && person.LastName == "" {
		return nil, apperrors.BadRequest("a first or last name is required")
	}

	if err := s.checkUnique(ctx, orgID, person.ID, person.PrimaryEmail, person.ExternalID); err != nil {
		return nil, err
	}

	if err := s.store.UpdatePerson(ctx, person); err != nil {
		if db.IsUniqueViolation(err) {
			return nil, apperrors.Conflict("a person with this email or external id already exists")
		}
		return nil, apperrors.Internal(err, "update person")
	}

	s.recorder.Record(orgID, actorID, models.AuditActionUpdate, "person", person.ID,
		fmt.Sprintf(`{"name":%q}`, person.FullName()))
	return person, nil
}

// Get returns a person. Archived people are reported NotFound unless
// includeArchived is set.
func (s *Service) Get(ctx context.Context, orgID, personID uuid.UUID, includeArchived bool) (*models.Person, error) {
	return s.getOrgPerson(ctx, orgID, personID, includeArchived)
}

// List returns an organization's people.
func (s *Service) List(ctx context.Context, orgID uuid.UUID, includeArchived bool) ([]*models.Person, error) {
	people, err := s.store.ListPeople(ctx, orgID, includeArchived)
	if err != nil {
		return nil, apperrors.Internal(err, "list people")
	}
	return people, nil
}

// Archive soft-deletes a person. The email and external ID become reusable.
func (s *Service) Archive(ctx context.Context, orgID, personID uuid.UUID, actorID uuid.UUID) (*models.Person, error) {
	person, err := s.getOrgPerson(ctx, orgID, personID, true)
	if err != nil {
		return nil, err
	}
	if person.LegalHold {
		return nil, apperrors.Forbidden("person is on legal hold")
	}
	if person.IsArchived() {
		return person, nil
	}

	now := time.Now()
	person.ArchivedAt = &now
	if err := s.store.UpdatePerson(ctx, person); err != nil {
		return nil, apperrors.Internal(err, "archive person")
	}

	s.recorder.Record(orgID, actorID, models.AuditActionArchive, "person", person.ID,
		fmt.Sprintf(`{"name":%q}`, person.FullName()))
	return person, nil
}

// Unarchive restores an archived person, re-checking uniqueness since the
// values may have been reused while archived.
func (s *Service) Unarchive(ctx context.Context, orgID, personID uuid.UUID, actorID uuid.UUID) (*models.Person, error) {
	person, err := s.getOrgPerson(ctx, orgID, personID, true)
	if err != nil {
		return nil, err
	}
	if !person.IsArchived() {
		return person, nil
	}

	if err := s.checkUnique(ctx, orgID, person.ID, person.PrimaryEmail, person.ExternalID); err != nil {
		return nil, err
	}

	person.ArchivedAt = nil
	if err := s.store.UpdatePerson(ctx, person); err != nil {
		if db.IsUniqueViolation(err) {
			return nil, apperrors.Conflict("a person with this email or external id already exists")
		}
		return nil, apperrors.Internal(err, "unarchive person")
	}

	s.recorder.Record(orgID, actorID, models.AuditActionUpdate, "person", person.ID,
		fmt.Sprintf(`{"name":%q,"unarchived":true}`, person.FullName()))
	return person, nil
}

// SetLegalHold toggles the legal hold flag on a person.
func (s *Service) SetLegalHold(ctx context.Context, orgID, personID uuid.UUID, hold bool, actorID uuid.UUID) (*models.Person, error) {
	person, err := s.getOrgPerson(ctx, orgID, personID, true)
	if err != nil {
		return nil, err
	}
	if person.LegalHold == hold {
		return person, nil
	}

	person.LegalHold = hold
	if err := s.store.UpdatePerson(ctx, person); err != nil {
		return nil, apperrors.Internal(err, "set legal hold")
	}

	s.recorder.Record(orgID, actorID, models.AuditActionUpdate, "person", person.ID,
		fmt.Sprintf(`{"legal_hold":%t}`, hold))
	return person, nil
}

// checkUnique enforces the org-scoped uniqueness of email and external ID
// against other non-archived people. selfID excludes the record being updated.
func (s *Service) checkUnique(ctx context.Context, orgID, selfID uuid.UUID, email, externalID string) error {
	if email != "" {
		other, err := s.store.GetPersonByEmail(ctx, orgID, email)
		if err == nil && other.ID != selfID {
			return apperrors.Conflict("a person with email %s already exists", email)
		}
		if err != nil && !db.IsNotFound(err) {
			return apperrors.Internal(err, "check email uniqueness")
		}
	}
	if externalID != "" {
		other, err := s.store.GetPersonByExternalID(ctx, orgID, externalID)
		if err == nil && other.ID != selfID {
			return apperrors.Conflict("a person with external id %s already exists", externalID)
		}
		if err != nil && !db.IsNotFound(err) {
			return apperrors.Internal(err, "check external id uniqueness")
		}
	}
	return nil
}

// getOrgPerson loads a person and verifies org scope. Cross-org and
// archived-without-flag lookups both report NotFound.
func (s *Service) getOrgPerson(ctx context.Context, orgID, personID uuid.UUID, includeArchived bool) (*models.Person, error) {
	person, err := s.store.GetPersonByID(ctx, personID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, apperrors.NotFound("person not found")
		}
		return nil, apperrors.Internal(err, "get person")
	}
	if person.OrgID != orgID {
		return nil, apperrors.NotFound("person not found")
	}
	if person.IsArchived() && !includeArchived {
		return nil, apperrors.NotFound("person not found")
	}
	return person, nil
}
