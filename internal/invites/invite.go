// Package invites manages the invitation lifecycle: creation, resend with
// throttling, cancellation and acceptance. Tokens are random; only the sha256
// hash is stored, the plaintext exists solely in the invite email.
package invites

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ironbeam/crewdeck/internal/apperrors"
	"github.com/ironbeam/crewdeck/internal/audit"
	"github.com/ironbeam/crewdeck/internal/config"
	"github.com/ironbeam/crewdeck/internal/db"
	"github.com/ironbeam/crewdeck/internal/metrics"
	"github.com/ironbeam/crewdeck/internal/models"
	"github.com/ironbeam/crewdeck/internal/notifications"
	"github.com/rs/zerolog"
)

// Store defines the interface for invite persistence operations.
type Store interface {
	// Invite operations
	CreateInvite(ctx context.Context, inv *models.Invite) error
	GetInviteByID(ctx context.Context, id uuid.UUID) (*models.Invite, error)
	GetInviteByTokenHash(ctx context.Context, tokenHash string) (*models.Invite, error)
	GetActiveInviteByEmail(ctx context.Context, orgID uuid.UUID, email string) (*models.Invite, error)
	ExpireStalePendingInvites(ctx context.Context, orgID uuid.UUID) (int, error)
	UpdateInvite(ctx context.Context, inv *models.Invite) error
	ListInvites(ctx context.Context, orgID uuid.UUID) ([]*models.InviteWithDetails, error)

	// Collaborator lookups
	GetOrganizationByID(ctx context.Context, id uuid.UUID) (*models.Organization, error)
	GetPersonByID(ctx context.Context, id uuid.UUID) (*models.Person, error)
	UpdatePerson(ctx context.Context, p *models.Person) error
	GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetMembership(ctx context.Context, userID, orgID uuid.UUID) (*models.OrgMembership, error)
	CreateMembership(ctx context.Context, m *models.OrgMembership) error
}

// CreateRequest represents a request to create an invitation.
type CreateRequest struct {
	PersonID       uuid.UUID      `json:"person_id" binding:"required"`
	Role           models.OrgRole `json:"role" binding:"required"`
	ExpiresInHours int            `json:"expires_in_hours,omitempty"`
	OrgID          uuid.UUID      `json:"-"`
	InvitedBy      uuid.UUID      `json:"-"`
}

// Service handles invitation operations.
type Service struct {
	store        Store
	emailService *notifications.EmailService
	recorder     *audit.Recorder
	sink         *notifications.Sink
	settings     config.InviteSettings
	baseURL      string
	logger       zerolog.Logger
}

// NewService creates a new invite service. emailService may be nil when SMTP
// is not configured; invites are still created, just not mailed.
func NewService(store Store, emailService *notifications.EmailService, recorder *audit.Recorder, sink *notifications.Sink, settings config.InviteSettings, baseURL string, logger zerolog.Logger) *Service {
	return &Service{
		store:        store,
		emailService: emailService,
		recorder:     recorder,
		sink:         sink,
		settings:     settings,
		baseURL:      strings.TrimSuffix(baseURL, "/"),
		logger:       logger.With().Str("component", "invite_service").Logger(),
	}
}

// GenerateToken generates a secure random invitation token.
func GenerateToken() (string, error) {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("generate random bytes: %w", err)
	}
	return hex.EncodeToString(bytes), nil
}

// HashToken returns the hex sha256 digest of a token.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// InviteLink returns the full invitation URL for a token.
func (s *Service) InviteLink(token string) string {
	return fmt.Sprintf("%s/invite/%s", s.baseURL, token)
}

// Create creates a new pending invitation for a person and sends the invite
// email. The returned token is the only place the plaintext ever surfaces.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*models.Invite, string, error) {
	if req.Role == models.OrgRoleSuperAdmin {
		return nil, "", apperrors.Forbidden("cannot invite at super_admin role")
	}
	if !models.IsGrantableOrgRole(string(req.Role)) {
		return nil, "", apperrors.BadRequest("invalid role: %s", req.Role)
	}

	org, err := s.store.GetOrganizationByID(ctx, req.OrgID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, "", apperrors.NotFound("organization not found")
		}
		return nil, "", apperrors.Internal(err, "resolve organization")
	}

	person, err := s.store.GetPersonByID(ctx, req.PersonID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, "", apperrors.NotFound("person not found")
		}
		return nil, "", apperrors.Internal(err, "get person")
	}
	if person.OrgID != req.OrgID {
		return nil, "", apperrors.NotFound("person not found")
	}
	if !person.HasUsableEmail() {
		return nil, "", apperrors.BadRequest("person has no primary email address")
	}
	if person.IsLinked() {
		return nil, "", apperrors.BadRequest("person is already linked to a user account")
	}

	email := strings.ToLower(strings.TrimSpace(person.PrimaryEmail))

	// Reap stale pending invites first so an expired one does not block
	// re-inviting the same email.
	if n, err := s.store.ExpireStalePendingInvites(ctx, req.OrgID); err != nil {
		s.logger.Warn().Err(err).Msg("failed to reap expired invites")
	} else if n > 0 {
		s.logger.Info().Int("expired", n).Str("org_id", req.OrgID.String()).Msg("reaped expired invites")
	}

	if _, err := s.store.GetActiveInviteByEmail(ctx, req.OrgID, email); err == nil {
		return nil, "", apperrors.Conflict("an active invitation already exists for this email")
	} else if !db.IsNotFound(err) {
		return nil, "", apperrors.Internal(err, "check existing invite")
	}

	if _, err := s.store.GetUserByEmail(ctx, email); err == nil {
		return nil, "", apperrors.Conflict("a user account already exists for this email")
	} else if !db.IsNotFound(err) {
		return nil, "", apperrors.Internal(err, "check existing user")
	}

	token, err := GenerateToken()
	if err != nil {
		return nil, "", apperrors.Internal(err, "generate token")
	}

	expiresIn := req.ExpiresInHours
	if expiresIn <= 0 {
		expiresIn = s.settings.DefaultExpiryHours
	}
	expires := time.Now().Add(time.Duration(expiresIn) * time.Hour)

	inv := models.NewInvite(req.OrgID, person.ID, email, req.Role, HashToken(token), req.InvitedBy, expires)
	if err := s.store.CreateInvite(ctx, inv); err != nil {
		// Lost a race with a concurrent create for the same email.
		if db.IsUniqueViolation(err) {
			return nil, "", apperrors.Conflict("an active invitation already exists for this email")
		}
		return nil, "", apperrors.Internal(err, "store invitation")
	}

	s.logger.Info().
		Str("invite_id", inv.ID.String()).
		Str("email", email).
		Str("role", string(req.Role)).
		Str("org_id", req.OrgID.String()).
		Msg("invitation created")

	s.sendInviteEmail(inv, token, org)
	s.recorder.Record(req.OrgID, req.InvitedBy, models.AuditActionInviteCreate, "invite", inv.ID,
		fmt.Sprintf(`{"email":%q,"role":%q}`, email, req.Role))
	metrics.InvitesCreatedCounter.Inc()

	return inv, token, nil
}

// Resend regenerates the token and expiry of a pending invitation and
// re-sends the email. Resends are throttled by count and cooldown.
func (s *Service) Resend(ctx context.Context, inviteID, orgID, actorID uuid.UUID) (*models.Invite, error) {
	inv, err := s.getOrgInvite(ctx, inviteID, orgID)
	if err != nil {
		return nil, err
	}

	if inv.IsAccepted() {
		return nil, apperrors.Conflict("invitation has already been accepted")
	}
	if inv.Status == models.InviteStatusPending && inv.IsExpired() {
		s.expireLazily(ctx, inv)
		return nil, apperrors.Conflict("invitation has expired")
	}
	if !inv.IsActionable() {
		return nil, apperrors.Conflict("invitation is not pending")
	}

	if s.settings.MaxResends > 0 && inv.ResendCount >= s.settings.MaxResends {
		return nil, apperrors.Conflict("invitation resend limit reached")
	}
	if cooldown := s.settings.ResendCooldown(); cooldown > 0 && inv.LastSentAt != nil {
		if remaining := cooldown - time.Since(*inv.LastSentAt); remaining > 0 {
			return nil, apperrors.Conflict("invitation was resent recently, retry in %s", remaining.Round(time.Second))
		}
	}

	token, err := GenerateToken()
	if err != nil {
		return nil, apperrors.Internal(err, "generate token")
	}

	now := time.Now()
	inv.TokenHash = HashToken(token)
	inv.TokenExpires = now.Add(time.Duration(s.settings.DefaultExpiryHours) * time.Hour)
	inv.ResendCount++
	inv.LastSentAt = &now
	if err := s.store.UpdateInvite(ctx, inv); err != nil {
		return nil, apperrors.Internal(err, "update invitation")
	}

	org, err := s.store.GetOrganizationByID(ctx, orgID)
	if err == nil {
		s.sendInviteEmail(inv, token, org)
	}

	s.logger.Info().
		Str("invite_id", inv.ID.String()).
		Str("email", inv.Email).
		Int("resend_count", inv.ResendCount).
		Msg("invitation resent")
	s.recorder.Record(orgID, actorID, models.AuditActionInviteResend, "invite", inv.ID,
		fmt.Sprintf(`{"email":%q,"resend_count":%d}`, inv.Email, inv.ResendCount))
	metrics.InvitesResentCounter.Inc()

	return inv, nil
}

// Cancel archives a pending invitation. The invite is both archived and
// marked canceled so list views and the uniqueness rule agree on its state.
func (s *Service) Cancel(ctx context.Context, inviteID, orgID, actorID uuid.UUID) error {
	inv, err := s.getOrgInvite(ctx, inviteID, orgID)
	if err != nil {
		return err
	}

	if inv.IsAccepted() {
		return apperrors.Conflict("cannot cancel an accepted invitation")
	}
	if inv.IsArchived() {
		return nil
	}

	now := time.Now()
	inv.Status = models.InviteStatusCanceled
	inv.ArchivedAt = &now
	if err := s.store.UpdateInvite(ctx, inv); err != nil {
		return apperrors.Internal(err, "cancel invitation")
	}

	s.logger.Info().
		Str("invite_id", inv.ID.String()).
		Str("email", inv.Email).
		Msg("invitation canceled")
	s.recorder.Record(orgID, actorID, models.AuditActionInviteCancel, "invite", inv.ID,
		fmt.Sprintf(`{"email":%q}`, inv.Email))

	return nil
}

// Accept redeems an invitation token for a user: the membership is created
// at the invited role and the person record is linked to the user account.
func (s *Service) Accept(ctx context.Context, token string, userID uuid.UUID) (*models.Organization, error) {
	inv, err := s.store.GetInviteByTokenHash(ctx, HashToken(token))
	if err != nil {
		if db.IsNotFound(err) {
			return nil, apperrors.NotFound("invitation not found")
		}
		return nil, apperrors.Internal(err, "get invitation")
	}

	if inv.IsAccepted() {
		return nil, apperrors.Conflict("invitation has already been accepted")
	}
	if inv.IsArchived() || inv.Status == models.InviteStatusCanceled {
		return nil, apperrors.NotFound("invitation not found")
	}
	if inv.IsExpired() {
		s.expireLazily(ctx, inv)
		return nil, apperrors.Conflict("invitation has expired")
	}

	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, apperrors.NotFound("user not found")
		}
		return nil, apperrors.Internal(err, "get user")
	}
	if !strings.EqualFold(user.Email, inv.Email) {
		return nil, apperrors.Forbidden("invitation is for a different email address")
	}

	if _, err := s.store.GetMembership(ctx, userID, inv.OrgID); err == nil {
		return nil, apperrors.Conflict("already a member of this organization")
	} else if !db.IsNotFound(err) {
		return nil, apperrors.Internal(err, "check membership")
	}

	membership := models.NewOrgMembership(userID, inv.OrgID, inv.Role)
	if err := s.store.CreateMembership(ctx, membership); err != nil {
		if db.IsUniqueViolation(err) {
			return nil, apperrors.Conflict("already a member of this organization")
		}
		return nil, apperrors.Internal(err, "create membership")
	}

	now := time.Now()
	inv.Status = models.InviteStatusAccepted
	inv.AcceptedAt = &now
	inv.UserID = &userID
	if err := s.store.UpdateInvite(ctx, inv); err != nil {
		s.logger.Warn().Err(err).Str("invite_id", inv.ID.String()).Msg("failed to mark invitation accepted")
	}

	// Link the person record to the new account.
	person, err := s.store.GetPersonByID(ctx, inv.PersonID)
	if err == nil && person.UserID == nil {
		person.UserID = &userID
		if err := s.store.UpdatePerson(ctx, person); err != nil {
			s.logger.Warn().Err(err).Str("person_id", person.ID.String()).Msg("failed to link person to user")
		}
	}

	s.logger.Info().
		Str("invite_id", inv.ID.String()).
		Str("user_id", userID.String()).
		Str("org_id", inv.OrgID.String()).
		Str("role", string(inv.Role)).
		Msg("invitation accepted")
	s.recorder.Record(inv.OrgID, userID, models.AuditActionInviteAccept, "invite", inv.ID,
		fmt.Sprintf(`{"email":%q,"role":%q}`, inv.Email, inv.Role))
	s.sink.Create(ctx, inv.OrgID, inv.InvitedBy, models.EventInviteAccepted,
		fmt.Sprintf(`{"email":%q}`, inv.Email))
	metrics.InvitesAcceptedCounter.Inc()

	org, err := s.store.GetOrganizationByID(ctx, inv.OrgID)
	if err != nil {
		return nil, apperrors.Internal(err, "get organization")
	}
	return org, nil
}

// List returns an organization's invitations with display details, reaping
// stale pending ones first so expiry is reflected without a background sweep.
func (s *Service) List(ctx context.Context, orgID uuid.UUID) ([]*models.InviteWithDetails, error) {
	if _, err := s.store.ExpireStalePendingInvites(ctx, orgID); err != nil {
		s.logger.Warn().Err(err).Msg("failed to reap expired invites")
	}
	invites, err := s.store.ListInvites(ctx, orgID)
	if err != nil {
		return nil, apperrors.Internal(err, "list invitations")
	}
	return invites, nil
}

// getOrgInvite loads an invite and verifies org scope. A cross-org invite
// reports NotFound, never Forbidden.
func (s *Service) getOrgInvite(ctx context.Context, inviteID, orgID uuid.UUID) (*models.Invite, error) {
	inv, err := s.store.GetInviteByID(ctx, inviteID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, apperrors.NotFound("invitation not found")
		}
		return nil, apperrors.Internal(err, "get invitation")
	}
	if inv.OrgID != orgID {
		return nil, apperrors.NotFound("invitation not found")
	}
	return inv, nil
}

// expireLazily flips an invite whose expiry passed to expired. Best effort:
// the caller already decided to fail the operation.
func (s *Service) expireLazily(ctx context.Context, inv *models.Invite) {
	inv.Status = models.InviteStatusExpired
	if err := s.store.UpdateInvite(ctx, inv); err != nil {
		s.logger.Warn().Err(err).Str("invite_id", inv.ID.String()).Msg("failed to mark invitation expired")
		return
	}
	metrics.InvitesExpiredCounter.Inc()
}

// sendInviteEmail is best-effort: a delivery failure never fails the mutation.
func (s *Service) sendInviteEmail(inv *models.Invite, token string, org *models.Organization) {
	if s.emailService == nil {
		return
	}

	inviterName := ""
	if inviter, err := s.store.GetUserByID(context.Background(), inv.InvitedBy); err == nil {
		inviterName = inviter.DisplayName()
	}

	err := s.emailService.SendInvite(inv.Email, notifications.InviteData{
		OrgName:     org.Name,
		InviterName: inviterName,
		Role:        string(inv.Role),
		InviteLink:  s.InviteLink(token),
		ExpiresAt:   inv.TokenExpires,
	})
	if err != nil {
		s.logger.Warn().Err(err).Str("email", inv.Email).Msg("failed to send invitation email")
	}
}
