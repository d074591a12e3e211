package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	apierrors "github.com/yukikurage/org-access-api/internal/errors"
	"github.com/yukikurage/org-access-api/internal/logger"
	"github.com/yukikurage/org-access-api/internal/metrics"
	"github.com/yukikurage/org-access-api/internal/models"
	"github.com/yukikurage/org-access-api/internal/password"
	"github.com/yukikurage/org-access-api/internal/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	ErrCredentialsRequired = apierrors.NewValidation("Username or email and password are required")
	ErrInvalidCredentials  = apierrors.NewInvalidCredentials("Invalid credentials")
	ErrUserNotFound        = apierrors.NewNotFound("User not found")
)

// credentialVerifier looks principals up by username or email and checks
// their secret. Unknown identifiers still pay for one digest verification.
type credentialVerifier struct {
	userRepo    repository.UserRepository
	hasher      *password.Hasher
	dummyDigest string
}

func newCredentialVerifier(userRepo repository.UserRepository, hasher *password.Hasher) *credentialVerifier {
	dummyDigest, err := hasher.Hash(uuid.NewString())
	if err != nil {
		logger.GetLogger().Warn("Failed to prepare dummy digest", zap.Error(err))
	}
	return &credentialVerifier{
		userRepo:    userRepo,
		hasher:      hasher,
		dummyDigest: dummyDigest,
	}
}

// lookup returns the principal for identifier, or ErrInvalidCredentials
// after a throwaway verification when there is none.
func (v *credentialVerifier) lookup(ctx context.Context, identifier, secret string) (*models.User, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" || secret == "" {
		return nil, ErrCredentialsRequired
	}

	user, err := v.userRepo.FindByUsernameOrEmail(ctx, identifier)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			v.hasher.Verify(secret, v.dummyDigest)
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return user, nil
}

func (v *credentialVerifier) verify(user *models.User, secret string) error {
	if !v.hasher.Verify(secret, user.PasswordHash) {
		return ErrInvalidCredentials
	}
	return nil
}

// AuthService handles console authentication.
type AuthService struct {
	userRepo    repository.UserRepository
	hasher      *password.Hasher
	credentials *credentialVerifier
}

// NewAuthService creates a new AuthService.
func NewAuthService(userRepo repository.UserRepository, hasher *password.Hasher) *AuthService {
	return &AuthService{
		userRepo:    userRepo,
		hasher:      hasher,
		credentials: newCredentialVerifier(userRepo, hasher),
	}
}

// LoginInput holds the credentials for authentication.
type LoginInput struct {
	UsernameOrEmail string
	Password        string
}

// Login verifies credentials and returns the authenticated user. Digests in
// a legacy or weaker format are replaced after a successful check.
func (s *AuthService) Login(ctx context.Context, input LoginInput) (*models.User, error) {
	user, err := s.credentials.lookup(ctx, input.UsernameOrEmail, input.Password)
	if err != nil {
		recordAuthFailure("console", err)
		return nil, err
	}

	if err := s.credentials.verify(user, input.Password); err != nil {
		recordAuthFailure("console", err)
		return nil, err
	}
	metrics.RecordAuthAttempt("console", metrics.ResultSuccess)

	if s.hasher.NeedsRehash(user.PasswordHash) {
		s.rehash(ctx, user, input.Password)
	}

	return user, nil
}

// rehash stores a fresh digest for user. Failures are logged only; the
// login itself already succeeded.
func (s *AuthService) rehash(ctx context.Context, user *models.User, secret string) {
	log := logger.GetLogger().With(
		zap.Uint64("user_id", user.ID),
		zap.String("from", string(password.DetectScheme(user.PasswordHash))),
	)

	digest, err := s.hasher.Hash(secret)
	if err != nil {
		log.Warn("Failed to rehash password", zap.Error(err))
		return
	}
	if err := s.userRepo.UpdatePasswordHash(ctx, user.ID, digest); err != nil {
		log.Warn("Failed to store rehashed password", zap.Error(err))
		return
	}

	user.PasswordHash = digest
	metrics.PasswordRehashCounter.Inc()
	log.Info("Upgraded stored password digest")
}

// GetUser retrieves a user by ID.
func (s *AuthService) GetUser(ctx context.Context, id uint64) (*models.User, error) {
	user, err := s.userRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	return user, nil
}

func recordAuthFailure(endpoint string, err error) {
	logger.GetLogger().Debug("Authentication failed",
		zap.String("endpoint", endpoint),
		zap.Error(err),
	)

	switch {
	case errors.Is(err, ErrInvalidCredentials):
		metrics.RecordAuthAttempt(endpoint, metrics.ResultInvalidCredentials)
	case errors.Is(err, ErrNotAuthorizedForApp):
		metrics.RecordAuthAttempt(endpoint, metrics.ResultRoleNotAuthorized)
	case errors.Is(err, ErrCredentialsRequired):
		// Malformed request, not an attempt
	default:
		metrics.RecordAuthAttempt(endpoint, metrics.ResultError)
	}
}
