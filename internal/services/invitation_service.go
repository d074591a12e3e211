package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/yukikurage/org-access-api/internal/constants"
	apierrors "github.com/yukikurage/org-access-api/internal/errors"
	"github.com/yukikurage/org-access-api/internal/logger"
	"github.com/yukikurage/org-access-api/internal/metrics"
	"github.com/yukikurage/org-access-api/internal/models"
	"github.com/yukikurage/org-access-api/internal/repository"
	"github.com/yukikurage/org-access-api/internal/utils"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	ErrInvalidEmail               = apierrors.NewValidation("A valid email address is required")
	ErrOrganizationAppURLMissing  = apierrors.NewValidation("Organization has no app URL configured")
	ErrPendingInvitationExists    = apierrors.NewConflict("A pending invitation for this email was created concurrently")
	ErrInvitationNotFound         = apierrors.NewNotFound("Invitation not found")
	ErrInvitationAlreadyAccepted  = apierrors.NewValidation("Invitation has already been accepted")
	ErrInvitationExpired          = apierrors.NewValidation("Invitation has expired")
	ErrInvitationEmailMismatch    = apierrors.NewValidation("Email does not match the invitation")
	ErrInvitationConcurrentlyUsed = apierrors.NewConflict("Invitation was modified concurrently")
	ErrTokenGenerationFailed      = errors.New("failed to generate invitation token")
)

// ReconcileExpiry applies the pending -> expired transition to inv as of
// now. An invitation is still valid at exactly expires_at. It reports
// whether the status changed.
func ReconcileExpiry(inv models.Invitation, now time.Time) (models.Invitation, bool) {
	if inv.Status != models.InvitationStatusPending || !now.After(inv.ExpiresAt) {
		return inv, false
	}
	inv.Status = models.InvitationStatusExpired
	inv.PendingKey = nil
	return inv, true
}

// InvitationLink returns the org-app URL at which inv is redeemed.
func InvitationLink(org *models.Organization, inv *models.Invitation) string {
	if !org.HasAppURL() {
		return ""
	}
	return strings.TrimRight(*org.AppURL, "/") + constants.InvitationPathPrefix + inv.Token
}

// InvitationService issues and redeems single-use invitations.
type InvitationService struct {
	invitationRepo repository.InvitationRepository
	orgRepo        repository.OrganizationRepository
	ttl            time.Duration
	now            func() time.Time
}

// NewInvitationService creates a new InvitationService.
func NewInvitationService(
	invitationRepo repository.InvitationRepository,
	orgRepo repository.OrganizationRepository,
	ttl time.Duration,
) *InvitationService {
	if ttl <= 0 {
		ttl = constants.DefaultInvitationTTL
	}
	return &InvitationService{
		invitationRepo: invitationRepo,
		orgRepo:        orgRepo,
		ttl:            ttl,
		now:            func() time.Time { return time.Now().UTC() },
	}
}

// WithClock replaces the service clock.
func (s *InvitationService) WithClock(now func() time.Time) *InvitationService {
	s.now = now
	return s
}

// Create issues a new invitation for email, deleting any pending invitation
// for the same organization and email. Links handed out earlier stop working.
func (s *InvitationService) Create(ctx context.Context, orgID uint64, email string, createdBy *uint64) (*models.Invitation, error) {
	email = utils.NormalizeEmail(email)
	if !isValidEmail(email) {
		return nil, ErrInvalidEmail
	}

	org, err := s.orgRepo.FindByID(ctx, orgID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrganizationNotFound
		}
		return nil, fmt.Errorf("failed to find organization: %w", err)
	}
	if !org.HasAppURL() {
		return nil, ErrOrganizationAppURLMissing
	}

	token, err := utils.GenerateInvitationToken()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTokenGenerationFailed, err)
	}

	now := s.now()
	pendingKey := models.InvitationPendingKey(org.ID, email)
	invitation := &models.Invitation{
		Token:          token,
		OrganizationID: org.ID,
		Email:          email,
		Status:         models.InvitationStatusPending,
		Role:           models.InvitationRoleFactoryAdmin,
		PendingKey:     &pendingKey,
		CreatedBy:      createdBy,
		CreatedAt:      now,
		ExpiresAt:      now.Add(s.ttl),
	}

	superseded, err := s.invitationRepo.CreateReplacingPending(ctx, invitation)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrPendingInvitationExists
		}
		return nil, fmt.Errorf("failed to create invitation: %w", err)
	}

	metrics.RecordInvitationEvent("created", 1)
	metrics.RecordInvitationEvent("superseded", superseded)
	if superseded > 0 {
		logger.GetLogger().Info("Superseded pending invitations",
			zap.Uint64("organization_id", org.ID),
			zap.Int64("count", superseded),
		)
	}

	invitation.Organization = *org
	return invitation, nil
}

// GetByToken returns the invitation for token, or nil when there is none.
// A pending invitation past its expiry is persisted as expired first.
func (s *InvitationService) GetByToken(ctx context.Context, token string) (*models.Invitation, error) {
	if strings.TrimSpace(token) == "" {
		return nil, nil
	}

	stored, err := s.invitationRepo.FindByToken(ctx, token)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find invitation: %w", err)
	}

	invitation, changed := ReconcileExpiry(*stored, s.now())
	if changed {
		// Zero rows means a concurrent reader already expired it.
		updated, err := s.invitationRepo.MarkExpired(ctx, invitation.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to expire invitation: %w", err)
		}
		if updated {
			metrics.RecordInvitationEvent("expired", 1)
		}
	}

	return &invitation, nil
}

// Accept redeems the invitation for token. When expectedEmail is non-empty
// it must match the invited email after normalization. Only one call per
// token can succeed.
func (s *InvitationService) Accept(ctx context.Context, token, expectedEmail string) (*models.Invitation, error) {
	invitation, err := s.GetByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if invitation == nil {
		return nil, ErrInvitationNotFound
	}

	if err := checkAcceptable(invitation, expectedEmail); err != nil {
		metrics.RecordInvitationEvent("accept_rejected", 1)
		return nil, err
	}

	acceptedAt := s.now()
	updated, err := s.invitationRepo.MarkAccepted(ctx, invitation.Token, acceptedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to accept invitation: %w", err)
	}
	if !updated {
		metrics.RecordInvitationEvent("accept_rejected", 1)
		return nil, s.explainRejectedAccept(ctx, invitation.Token)
	}

	invitation.Status = models.InvitationStatusAccepted
	invitation.AcceptedAt = &acceptedAt
	invitation.PendingKey = nil
	metrics.RecordInvitationEvent("accepted", 1)

	return invitation, nil
}

// explainRejectedAccept re-reads an invitation whose conditional update
// matched no row and reports why.
func (s *InvitationService) explainRejectedAccept(ctx context.Context, token string) error {
	current, err := s.GetByToken(ctx, token)
	if err != nil {
		return err
	}
	if current == nil {
		return ErrInvitationNotFound
	}
	switch current.Status {
	case models.InvitationStatusAccepted:
		return ErrInvitationAlreadyAccepted
	case models.InvitationStatusExpired:
		return ErrInvitationExpired
	default:
		return ErrInvitationConcurrentlyUsed
	}
}

func checkAcceptable(invitation *models.Invitation, expectedEmail string) error {
	switch invitation.Status {
	case models.InvitationStatusAccepted:
		return ErrInvitationAlreadyAccepted
	case models.InvitationStatusExpired:
		return ErrInvitationExpired
	}

	if strings.TrimSpace(expectedEmail) != "" &&
		utils.NormalizeEmail(expectedEmail) != utils.NormalizeEmail(invitation.Email) {
		return ErrInvitationEmailMismatch
	}
	return nil
}

// ListForOrganization returns an organization's invitations newest first.
// Statuses reflect expiry as of now but nothing is written.
func (s *InvitationService) ListForOrganization(ctx context.Context, orgID uint64) ([]models.Invitation, error) {
	invitations, err := s.invitationRepo.ListByOrganization(ctx, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to list invitations: %w", err)
	}

	now := s.now()
	for i := range invitations {
		invitations[i], _ = ReconcileExpiry(invitations[i], now)
	}
	return invitations, nil
}
