package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/yukikurage/org-access-api/internal/constants"
	apierrors "github.com/yukikurage/org-access-api/internal/errors"
	"github.com/yukikurage/org-access-api/internal/models"
	"github.com/yukikurage/org-access-api/internal/password"
	"github.com/yukikurage/org-access-api/internal/repository"
	"github.com/yukikurage/org-access-api/internal/utils"
	"gorm.io/gorm"
)

var (
	ErrInvalidUsername           = apierrors.NewValidation("Username must be 3-50 letters, digits or underscores")
	ErrPasswordTooShort          = apierrors.NewValidation(fmt.Sprintf("Password must be at least %d characters", constants.MinPasswordLength))
	ErrNameRequired              = apierrors.NewValidation("Name is required")
	ErrInvalidRoleValue          = apierrors.NewValidation("Role must be one of Admin, Dealer, Consult, Audit")
	ErrUsernameTaken             = apierrors.NewAlreadyExists("Username already exists")
	ErrEmailTaken                = apierrors.NewAlreadyExists("Email already exists")
	ErrUserExists                = apierrors.NewAlreadyExists("User already exists")
	ErrRoleChangeWithAssignments = apierrors.NewValidation("Remove the user's organization assignments before changing to or from the Dealer role")
	ErrCannotDeleteYourself      = apierrors.NewValidation("You cannot delete your own account")
	ErrFailedToHashPassword      = errors.New("failed to hash password")
)

// UserService manages console accounts.
type UserService struct {
	userRepo       repository.UserRepository
	assignmentRepo repository.AssignmentRepository
	hasher         *password.Hasher
}

// NewUserService creates a new UserService.
func NewUserService(
	userRepo repository.UserRepository,
	assignmentRepo repository.AssignmentRepository,
	hasher *password.Hasher,
) *UserService {
	return &UserService{
		userRepo:       userRepo,
		assignmentRepo: assignmentRepo,
		hasher:         hasher,
	}
}

// CreateUserInput represents parameters to create a new user.
type CreateUserInput struct {
	Username  string
	Email     string
	Name      string
	Password  string
	Role      string
	AvatarURL *string
}

// CreateUser creates a user. Consultants and auditors get a standing
// invite hashcode.
func (s *UserService) CreateUser(ctx context.Context, input CreateUserInput) (*models.User, error) {
	username := strings.TrimSpace(input.Username)
	if !isValidUsername(username) {
		return nil, ErrInvalidUsername
	}
	email := utils.NormalizeEmail(input.Email)
	if !isValidEmail(email) {
		return nil, ErrInvalidEmail
	}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, ErrNameRequired
	}
	if len(input.Password) < constants.MinPasswordLength {
		return nil, ErrPasswordTooShort
	}
	role, err := models.ParseRole(input.Role)
	if err != nil {
		return nil, ErrInvalidRoleValue
	}

	if err := s.checkUnique(ctx, 0, username, email); err != nil {
		return nil, err
	}

	digest, err := s.hasher.Hash(input.Password)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFailedToHashPassword, err)
	}

	user := &models.User{
		Username:     username,
		Email:        email,
		Name:         name,
		AvatarURL:    normalizeOptional(input.AvatarURL),
		Role:         role,
		PasswordHash: digest,
	}
	if err := assignHashcode(user); err != nil {
		return nil, err
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrUserExists
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return user, nil
}

// UpdateUserInput holds the fields an administrator may change. Nil fields
// are left untouched.
type UpdateUserInput struct {
	Username  *string
	Email     *string
	Name      *string
	AvatarURL *string
	Role      *string
	Password  *string
}

// UpdateUser applies an administrator's changes to a user.
func (s *UserService) UpdateUser(ctx context.Context, id uint64, input UpdateUserInput) (*models.User, error) {
	user, err := s.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}

	username, email := user.Username, user.Email
	if input.Username != nil {
		username = strings.TrimSpace(*input.Username)
		if !isValidUsername(username) {
			return nil, ErrInvalidUsername
		}
	}
	if input.Email != nil {
		email = utils.NormalizeEmail(*input.Email)
		if !isValidEmail(email) {
			return nil, ErrInvalidEmail
		}
	}
	if username != user.Username || email != user.Email {
		if err := s.checkUnique(ctx, user.ID, username, email); err != nil {
			return nil, err
		}
	}
	user.Username, user.Email = username, email

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, ErrNameRequired
		}
		user.Name = name
	}
	if input.AvatarURL != nil {
		user.AvatarURL = normalizeOptional(input.AvatarURL)
	}

	if input.Role != nil {
		role, err := models.ParseRole(*input.Role)
		if err != nil {
			return nil, ErrInvalidRoleValue
		}
		if err := s.changeRole(ctx, user, role); err != nil {
			return nil, err
		}
	}

	if input.Password != nil {
		if len(*input.Password) < constants.MinPasswordLength {
			return nil, ErrPasswordTooShort
		}
		digest, err := s.hasher.Hash(*input.Password)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrFailedToHashPassword, err)
		}
		user.PasswordHash = digest
	}

	if err := s.userRepo.Update(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrUserExists
		}
		return nil, fmt.Errorf("failed to update user: %w", err)
	}

	return user, nil
}

// changeRole moves user to role. Dealer assignments occupy the
// organization's dealer slot, so a user cannot become or stop being a
// dealer while assigned anywhere.
func (s *UserService) changeRole(ctx context.Context, user *models.User, role models.Role) error {
	if role == user.Role {
		return nil
	}

	if role == models.RoleDealer || user.Role == models.RoleDealer {
		assignments, err := s.assignmentRepo.ListByUser(ctx, user.ID)
		if err != nil {
			return fmt.Errorf("failed to list assignments: %w", err)
		}
		if len(assignments) > 0 {
			return ErrRoleChangeWithAssignments
		}
	}

	user.Role = role
	return assignHashcode(user)
}

// UpdateProfileInput holds the fields a user may change on their own
// account.
type UpdateProfileInput struct {
	Name      *string
	AvatarURL *string
}

// UpdateProfile applies a user's changes to their own account.
func (s *UserService) UpdateProfile(ctx context.Context, id uint64, input UpdateProfileInput) (*models.User, error) {
	return s.UpdateUser(ctx, id, UpdateUserInput{
		Name:      input.Name,
		AvatarURL: input.AvatarURL,
	})
}

// DeleteUser deletes a user, their assignments, and clears references to
// them.
func (s *UserService) DeleteUser(ctx context.Context, actorID, id uint64) error {
	if actorID == id {
		return ErrCannotDeleteYourself
	}

	if err := s.userRepo.Delete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("failed to delete user: %w", err)
	}

	return nil
}

// ListUsers returns all users ordered by name, with their organizations.
func (s *UserService) ListUsers(ctx context.Context) ([]models.User, error) {
	users, err := s.userRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}

// GetUser retrieves a user by ID.
func (s *UserService) GetUser(ctx context.Context, id uint64) (*models.User, error) {
	user, err := s.userRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return user, nil
}

// checkUnique reports which of username and email already belongs to a
// user other than selfID.
func (s *UserService) checkUnique(ctx context.Context, selfID uint64, username, email string) error {
	existing, err := s.userRepo.FindByUsernameOrEmail(ctx, email)
	switch {
	case err == nil && existing.ID != selfID:
		return ErrEmailTaken
	case err != nil && !errors.Is(err, gorm.ErrRecordNotFound):
		return fmt.Errorf("failed to check email: %w", err)
	}

	existing, err = s.userRepo.FindByUsernameOrEmail(ctx, username)
	switch {
	case err == nil && existing.ID != selfID && existing.Username == username:
		return ErrUsernameTaken
	case err != nil && !errors.Is(err, gorm.ErrRecordNotFound):
		return fmt.Errorf("failed to check username: %w", err)
	}

	return nil
}

// assignHashcode gives consultants and auditors a standing invite code and
// clears it for every other role.
func assignHashcode(user *models.User) error {
	if !user.Role.UsesStandingInvite() {
		user.InviteHashcode = nil
		return nil
	}
	if user.InviteHashcode != nil {
		return nil
	}

	code, err := utils.GenerateInviteHashcode()
	if err != nil {
		return err
	}
	user.InviteHashcode = &code
	return nil
}

func normalizeOptional(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
