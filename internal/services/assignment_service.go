package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	apierrors "github.com/yukikurage/org-access-api/internal/errors"
	"github.com/yukikurage/org-access-api/internal/logger"
	"github.com/yukikurage/org-access-api/internal/metrics"
	"github.com/yukikurage/org-access-api/internal/models"
	"github.com/yukikurage/org-access-api/internal/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	ErrOrganizationNotFound       = apierrors.NewNotFound("Organization not found")
	ErrAlreadyAssigned            = apierrors.NewConflict("User is already assigned to this organization")
	ErrOrganizationHasDealer      = apierrors.NewConflict("Organization already has a dealer")
	ErrUserNotDealer              = apierrors.NewValidation("Selected user is not a dealer")
	ErrDealerReassignmentConflict = apierrors.NewConflict("Dealer assignment changed concurrently, please retry")
)

// AssignmentService maintains which principals are assigned to which
// organizations.
type AssignmentService struct {
	assignmentRepo repository.AssignmentRepository
	orgRepo        repository.OrganizationRepository
	userRepo       repository.UserRepository
	maxRetries     uint
	newBackOff     func() backoff.BackOff
	now            func() time.Time
}

// NewAssignmentService creates a new AssignmentService. maxRetries bounds the
// attempts SetDealer makes when it loses a race on the dealer slot.
func NewAssignmentService(
	assignmentRepo repository.AssignmentRepository,
	orgRepo repository.OrganizationRepository,
	userRepo repository.UserRepository,
	maxRetries uint,
) *AssignmentService {
	if maxRetries == 0 {
		maxRetries = 1
	}
	return &AssignmentService{
		assignmentRepo: assignmentRepo,
		orgRepo:        orgRepo,
		userRepo:       userRepo,
		maxRetries:     maxRetries,
		newBackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 20 * time.Millisecond
			b.MaxInterval = 500 * time.Millisecond
			return b
		},
		now: func() time.Time { return time.Now().UTC() },
	}
}

// CurrentDealer returns the dealer among users, or nil when there is none.
func CurrentDealer(users []models.User) *models.User {
	for i := range users {
		if users[i].Role == models.RoleDealer {
			return &users[i]
		}
	}
	return nil
}

// ListForPrincipal returns a user's assignments, oldest first.
func (s *AssignmentService) ListForPrincipal(ctx context.Context, userID uint64) ([]models.Assignment, error) {
	assignments, err := s.assignmentRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list assignments: %w", err)
	}
	return assignments, nil
}

// ListForOrganization returns the principals assigned to an organization.
func (s *AssignmentService) ListForOrganization(ctx context.Context, orgID uint64) ([]models.User, error) {
	assignments, err := s.assignmentRepo.ListByOrganization(ctx, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to list organization assignments: %w", err)
	}
	return usersOf(assignments), nil
}

// Assign assigns a user to an organization. It does not replace an existing
// dealer; a second dealer is rejected with ErrOrganizationHasDealer.
func (s *AssignmentService) Assign(ctx context.Context, orgID, userID uint64, assignedBy *uint64) (*models.Assignment, error) {
	if _, err := s.findOrganization(ctx, orgID); err != nil {
		return nil, err
	}
	user, err := s.findUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	if _, err := s.assignmentRepo.Find(ctx, orgID, userID); err == nil {
		return nil, ErrAlreadyAssigned
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to check assignment: %w", err)
	}

	return s.create(ctx, s.assignmentRepo, orgID, user, assignedBy)
}

// Unassign removes a user from an organization. Removing a pair that is not
// assigned succeeds.
func (s *AssignmentService) Unassign(ctx context.Context, orgID, userID uint64) error {
	if err := s.assignmentRepo.Delete(ctx, orgID, userID); err != nil {
		return fmt.Errorf("failed to remove assignment: %w", err)
	}
	return nil
}

// SetDealer makes newDealerID the organization's only dealer, or removes the
// dealer when newDealerID is nil. The read and both writes run in one
// transaction, retried with backoff when a concurrent call wins the dealer
// slot.
func (s *AssignmentService) SetDealer(ctx context.Context, orgID uint64, newDealerID *uint64, assignedBy *uint64) error {
	if _, err := s.findOrganization(ctx, orgID); err != nil {
		return err
	}

	var newDealer *models.User
	if newDealerID != nil {
		user, err := s.findUser(ctx, *newDealerID)
		if err != nil {
			return err
		}
		if user.Role != models.RoleDealer {
			return ErrUserNotDealer
		}
		newDealer = user
	}

	log := logger.GetLogger().With(zap.Uint64("organization_id", orgID))

	operation := func() (string, error) {
		var outcome string
		err := s.assignmentRepo.Transaction(ctx, func(tx repository.AssignmentRepository) error {
			var txErr error
			outcome, txErr = s.replaceDealer(ctx, tx, orgID, newDealer, assignedBy)
			return txErr
		})
		if err == nil {
			return outcome, nil
		}
		if isDealerSlotConflict(err) {
			metrics.RecordDealerChange("conflict_retry")
			return "", err
		}
		return "", backoff.Permanent(err)
	}

	outcome, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(s.newBackOff()),
		backoff.WithMaxTries(s.maxRetries),
		backoff.WithNotify(func(err error, wait time.Duration) {
			log.Debug("Retrying dealer reassignment", zap.Error(err), zap.Duration("wait", wait))
		}),
	)
	if err != nil {
		metrics.RecordDealerChange("failed")
		if isDealerSlotConflict(err) {
			return ErrDealerReassignmentConflict
		}
		if apierrors.KindOf(err) != apierrors.KindUnexpected {
			return err
		}
		return fmt.Errorf("failed to set dealer: %w", err)
	}

	metrics.RecordDealerChange(outcome)
	return nil
}

// replaceDealer runs one read-then-write attempt inside tx.
func (s *AssignmentService) replaceDealer(
	ctx context.Context,
	tx repository.AssignmentRepository,
	orgID uint64,
	newDealer *models.User,
	assignedBy *uint64,
) (string, error) {
	assignments, err := tx.ListByOrganization(ctx, orgID)
	if err != nil {
		return "", err
	}

	current := CurrentDealer(usersOf(assignments))
	if newDealer != nil && current != nil && current.ID == newDealer.ID && hasDealerSlot(assignments, newDealer.ID) {
		return "unchanged", nil
	}
	if newDealer == nil && current == nil {
		return "unchanged", nil
	}

	for _, a := range assignments {
		isPriorDealer := a.User.Role == models.RoleDealer || a.DealerSlot != nil
		isNewDealer := newDealer != nil && a.UserID == newDealer.ID
		if !isPriorDealer && !isNewDealer {
			continue
		}
		if err := tx.Delete(ctx, orgID, a.UserID); err != nil {
			return "", err
		}
	}

	if newDealer == nil {
		return "cleared", nil
	}
	if _, err := s.create(ctx, tx, orgID, newDealer, assignedBy); err != nil {
		return "", err
	}
	return "assigned", nil
}

func (s *AssignmentService) create(
	ctx context.Context,
	repo repository.AssignmentRepository,
	orgID uint64,
	user *models.User,
	assignedBy *uint64,
) (*models.Assignment, error) {
	assignment := &models.Assignment{
		UserID:         user.ID,
		OrganizationID: orgID,
		AssignedAt:     s.now(),
		AssignedBy:     assignedBy,
	}
	if user.Role == models.RoleDealer {
		slot := orgID
		assignment.DealerSlot = &slot
	}

	if err := repo.Create(ctx, assignment); err != nil {
		switch {
		case errors.Is(err, repository.ErrDuplicate) && assignment.DealerSlot != nil:
			return nil, fmt.Errorf("%w: %w", ErrOrganizationHasDealer, err)
		case errors.Is(err, repository.ErrDuplicate):
			return nil, fmt.Errorf("%w: %w", ErrAlreadyAssigned, err)
		case errors.Is(err, repository.ErrForeignKey):
			return nil, ErrUserNotFound
		default:
			return nil, fmt.Errorf("failed to create assignment: %w", err)
		}
	}

	assignment.User = *user
	return assignment, nil
}

// ListDealers returns every dealer ordered by name.
func (s *AssignmentService) ListDealers(ctx context.Context) ([]models.User, error) {
	dealers, err := s.userRepo.ListByRole(ctx, models.RoleDealer)
	if err != nil {
		return nil, fmt.Errorf("failed to list dealers: %w", err)
	}
	return dealers, nil
}

func (s *AssignmentService) findOrganization(ctx context.Context, orgID uint64) (*models.Organization, error) {
	org, err := s.orgRepo.FindByID(ctx, orgID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrganizationNotFound
		}
		return nil, fmt.Errorf("failed to find organization: %w", err)
	}
	return org, nil
}

func (s *AssignmentService) findUser(ctx context.Context, userID uint64) (*models.User, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return user, nil
}

// isDealerSlotConflict reports whether err means another writer changed the
// organization's dealer first.
func isDealerSlotConflict(err error) bool {
	return errors.Is(err, ErrOrganizationHasDealer) ||
		errors.Is(err, repository.ErrDuplicate) ||
		errors.Is(err, repository.ErrRetryable)
}

func hasDealerSlot(assignments []models.Assignment, userID uint64) bool {
	for _, a := range assignments {
		if a.UserID == userID {
			return a.DealerSlot != nil
		}
	}
	return false
}

func usersOf(assignments []models.Assignment) []models.User {
	users := make([]models.User, 0, len(assignments))
	for _, a := range assignments {
		users = append(users, a.User)
	}
	return users
}
