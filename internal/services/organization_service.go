package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	apierrors "github.com/yukikurage/org-access-api/internal/errors"
	"github.com/yukikurage/org-access-api/internal/logger"
	"github.com/yukikurage/org-access-api/internal/models"
	"github.com/yukikurage/org-access-api/internal/permissions"
	"github.com/yukikurage/org-access-api/internal/repository"
	"github.com/yukikurage/org-access-api/internal/utils"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	ErrInvalidOrganizationName = apierrors.NewValidation("Organization name cannot be empty")
	ErrInvalidAppURL           = apierrors.NewValidation("App URL must be an absolute http or https URL")
	ErrOrganizationInUse       = apierrors.NewValidation("Remove all assigned users before deleting this organization")
)

// OrganizationSummary is an organization with its roster figures.
type OrganizationSummary struct {
	Organization models.Organization
	UserCount    int64
	Dealer       *models.User
}

// OrganizationService provides business logic for organization operations.
type OrganizationService struct {
	orgRepo        repository.OrganizationRepository
	assignmentRepo repository.AssignmentRepository
	assignments    *AssignmentService
	now            func() time.Time
}

// NewOrganizationService creates a new OrganizationService.
func NewOrganizationService(
	orgRepo repository.OrganizationRepository,
	assignmentRepo repository.AssignmentRepository,
	assignments *AssignmentService,
) *OrganizationService {
	return &OrganizationService{
		orgRepo:        orgRepo,
		assignmentRepo: assignmentRepo,
		assignments:    assignments,
		now:            func() time.Time { return time.Now().UTC() },
	}
}

// CreateOrganizationInput represents parameters to create a new organization.
type CreateOrganizationInput struct {
	Name              string
	Code              *string
	Description       *string
	AppURL            *string
	FactoryAdminEmail *string
	// AssignUserID is assigned to the new organization when set
	AssignUserID *uint64
	CreatedBy    *uint64
}

// CreateOrganization creates a new organization. A failure to assign the
// initial user is logged and does not undo the organization.
func (s *OrganizationService) CreateOrganization(ctx context.Context, input CreateOrganizationInput) (*models.Organization, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, ErrInvalidOrganizationName
	}

	org := &models.Organization{
		Name:        name,
		Code:        normalizeOptional(input.Code),
		Description: normalizeOptional(input.Description),
		CreatedBy:   input.CreatedBy,
	}
	if err := setAppURL(org, input.AppURL); err != nil {
		return nil, err
	}
	if err := setFactoryAdminEmail(org, input.FactoryAdminEmail); err != nil {
		return nil, err
	}

	if err := s.orgRepo.Create(ctx, org); err != nil {
		return nil, fmt.Errorf("failed to create organization: %w", err)
	}

	if input.AssignUserID != nil {
		if _, err := s.assignments.Assign(ctx, org.ID, *input.AssignUserID, input.CreatedBy); err != nil {
			logger.GetLogger().Warn("Failed to assign initial user to organization",
				zap.Uint64("organization_id", org.ID),
				zap.Uint64("user_id", *input.AssignUserID),
				zap.Error(err),
			)
		}
	}

	return org, nil
}

// ListOrganizations returns a page of organizations visible to viewer.
// Administrators see every organization; everyone else sees the ones they
// are assigned to.
func (s *OrganizationService) ListOrganizations(
	ctx context.Context,
	viewer *models.User,
	pagination utils.PaginationParams,
) ([]OrganizationSummary, int64, error) {
	filter := repository.OrganizationFilter{Pagination: pagination}
	if !permissions.IsAdmin(viewer) {
		if viewer == nil {
			return []OrganizationSummary{}, 0, nil
		}
		filter.MemberUserID = &viewer.ID
	}

	orgs, total, err := s.orgRepo.List(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list organizations: %w", err)
	}

	summaries, err := s.summarize(ctx, orgs)
	if err != nil {
		return nil, 0, err
	}
	return summaries, total, nil
}

// GetOrganization returns an organization with its roster figures.
func (s *OrganizationService) GetOrganization(ctx context.Context, orgID uint64) (*OrganizationSummary, error) {
	org, err := s.findOrganization(ctx, orgID)
	if err != nil {
		return nil, err
	}

	summaries, err := s.summarize(ctx, []models.Organization{*org})
	if err != nil {
		return nil, err
	}
	return &summaries[0], nil
}

func (s *OrganizationService) summarize(ctx context.Context, orgs []models.Organization) ([]OrganizationSummary, error) {
	ids := make([]uint64, len(orgs))
	for i, org := range orgs {
		ids[i] = org.ID
	}

	counts, err := s.assignmentRepo.CountByOrganizations(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to count organization users: %w", err)
	}

	dealerAssignments, err := s.assignmentRepo.ListDealersByOrganizations(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load organization dealers: %w", err)
	}
	dealers := make(map[uint64]*models.User, len(dealerAssignments))
	for i := range dealerAssignments {
		assignment := &dealerAssignments[i]
		if _, seen := dealers[assignment.OrganizationID]; !seen {
			dealers[assignment.OrganizationID] = &assignment.User
		}
	}

	summaries := make([]OrganizationSummary, len(orgs))
	for i, org := range orgs {
		summaries[i] = OrganizationSummary{
			Organization: org,
			UserCount:    counts[org.ID],
			Dealer:       dealers[org.ID],
		}
	}
	return summaries, nil
}

// UpdateOrganizationInput holds organization changes. Nil fields are left
// untouched; an empty string clears an optional field.
type UpdateOrganizationInput struct {
	Name              *string
	Code              *string
	Description       *string
	AppURL            *string
	FactoryAdminEmail *string
	IsInitialized     *bool
}

// UpdateOrganization updates an organization. InitializedAt is stamped the
// first time IsInitialized becomes true.
func (s *OrganizationService) UpdateOrganization(ctx context.Context, orgID uint64, input UpdateOrganizationInput) (*models.Organization, error) {
	org, err := s.findOrganization(ctx, orgID)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, ErrInvalidOrganizationName
		}
		org.Name = name
	}
	if input.Code != nil {
		org.Code = normalizeOptional(input.Code)
	}
	if input.Description != nil {
		org.Description = normalizeOptional(input.Description)
	}
	if input.AppURL != nil {
		if err := setAppURL(org, input.AppURL); err != nil {
			return nil, err
		}
	}
	if input.FactoryAdminEmail != nil {
		if err := setFactoryAdminEmail(org, input.FactoryAdminEmail); err != nil {
			return nil, err
		}
	}
	if input.IsInitialized != nil {
		org.IsInitialized = *input.IsInitialized
		if org.IsInitialized && org.InitializedAt == nil {
			now := s.now()
			org.InitializedAt = &now
		}
	}

	if err := s.orgRepo.Update(ctx, org); err != nil {
		return nil, fmt.Errorf("failed to update organization: %w", err)
	}

	return org, nil
}

// DeleteOrganization removes an organization and its invitations. It is
// refused while any user is assigned to it.
func (s *OrganizationService) DeleteOrganization(ctx context.Context, orgID uint64) error {
	if err := s.orgRepo.Delete(ctx, orgID); err != nil {
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			return ErrOrganizationNotFound
		case errors.Is(err, repository.ErrOrganizationInUse):
			return ErrOrganizationInUse
		default:
			return fmt.Errorf("failed to delete organization: %w", err)
		}
	}

	return nil
}

func (s *OrganizationService) findOrganization(ctx context.Context, orgID uint64) (*models.Organization, error) {
	org, err := s.orgRepo.FindByID(ctx, orgID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrganizationNotFound
		}
		return nil, fmt.Errorf("failed to find organization: %w", err)
	}
	return org, nil
}

func setAppURL(org *models.Organization, appURL *string) error {
	value := normalizeOptional(appURL)
	if value != nil && validate.Var(*value, "http_url") != nil {
		return ErrInvalidAppURL
	}
	org.AppURL = value
	return nil
}

func setFactoryAdminEmail(org *models.Organization, email *string) error {
	value := normalizeOptional(email)
	if value == nil {
		org.FactoryAdminEmail = nil
		return nil
	}
	normalized := utils.NormalizeEmail(*value)
	if !isValidEmail(normalized) {
		return ErrInvalidEmail
	}
	org.FactoryAdminEmail = &normalized
	return nil
}
