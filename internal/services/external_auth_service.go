package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	apierrors "github.com/yukikurage/org-access-api/internal/errors"
	"github.com/yukikurage/org-access-api/internal/metrics"
	"github.com/yukikurage/org-access-api/internal/models"
	"github.com/yukikurage/org-access-api/internal/password"
	"github.com/yukikurage/org-access-api/internal/permissions"
	"github.com/yukikurage/org-access-api/internal/repository"
	"gorm.io/gorm"
)

var (
	ErrNotAuthorizedForApp = apierrors.NewPolicyDenied("User is not authorized for this application")
	ErrInvalidInviteCode   = apierrors.NewNotFound("Invalid invite code")
	ErrInviteCodeWrongRole = apierrors.NewValidation("Invite code is not valid for this role")
)

// ExternalAuthService authenticates consultants and auditors on behalf of
// org-apps, which share no session with the console.
type ExternalAuthService struct {
	userRepo    repository.UserRepository
	credentials *credentialVerifier
}

// NewExternalAuthService creates a new ExternalAuthService.
func NewExternalAuthService(userRepo repository.UserRepository, hasher *password.Hasher) *ExternalAuthService {
	return &ExternalAuthService{
		userRepo:    userRepo,
		credentials: newCredentialVerifier(userRepo, hasher),
	}
}

// AuthenticateExternal checks a consultant's or auditor's credentials.
// Unknown identifiers and wrong secrets yield the same ErrInvalidCredentials;
// other roles get ErrNotAuthorizedForApp.
func (s *ExternalAuthService) AuthenticateExternal(ctx context.Context, usernameOrEmail, secret string) (*models.User, error) {
	user, err := s.credentials.lookup(ctx, usernameOrEmail, secret)
	if err != nil {
		recordAuthFailure("external", err)
		return nil, err
	}

	if !permissions.IsExternalStaff(user) {
		recordAuthFailure("external", ErrNotAuthorizedForApp)
		return nil, ErrNotAuthorizedForApp
	}

	if err := s.credentials.verify(user, secret); err != nil {
		recordAuthFailure("external", err)
		return nil, err
	}

	metrics.RecordAuthAttempt("external", metrics.ResultSuccess)
	return user, nil
}

// ValidateStandingInvite resolves a consultant's or auditor's standing
// invite code.
func (s *ExternalAuthService) ValidateStandingInvite(ctx context.Context, hashcode string) (*models.User, error) {
	hashcode = strings.TrimSpace(hashcode)
	if hashcode == "" {
		return nil, ErrInvalidInviteCode
	}

	user, err := s.userRepo.FindByInviteHashcode(ctx, hashcode)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidInviteCode
		}
		return nil, fmt.Errorf("failed to find user by invite code: %w", err)
	}

	if !permissions.IsExternalStaff(user) {
		return nil, ErrInviteCodeWrongRole
	}

	return user, nil
}
