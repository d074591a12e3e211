package repository

import (
	"context"
	"time"

	"github.com/yukikurage/org-access-api/internal/models"
	"github.com/yukikurage/org-access-api/internal/utils"
)

// UserRepository defines the interface for user data access
type UserRepository interface {
	// Create creates a new user
	Create(ctx context.Context, user *models.User) error

	// FindByID finds a user by ID
	FindByID(ctx context.Context, id uint64) (*models.User, error)

	// FindByUsernameOrEmail finds a user whose username equals the input or
	// whose email equals it case-insensitively
	FindByUsernameOrEmail(ctx context.Context, usernameOrEmail string) (*models.User, error)

	// FindByInviteHashcode finds a consultant or auditor by standing invite code
	FindByInviteHashcode(ctx context.Context, hashcode string) (*models.User, error)

	// List lists all users ordered by name, with their assignments
	List(ctx context.Context) ([]models.User, error)

	// ListByRole lists users with the given role ordered by name
	ListByRole(ctx context.Context, role models.Role) ([]models.User, error)

	// Update saves a user
	Update(ctx context.Context, user *models.User) error

	// UpdatePasswordHash replaces a user's stored credential digest
	UpdatePasswordHash(ctx context.Context, id uint64, hash string) error

	// Delete removes a user, their assignments, and nullifies references to them
	Delete(ctx context.Context, id uint64) error
}

// OrganizationFilter holds filtering options for listing organizations
type OrganizationFilter struct {
	// MemberUserID restricts the result to organizations the user is assigned to
	MemberUserID *uint64
	// Pagination is applied when Limit is positive
	Pagination utils.PaginationParams
}

// OrganizationRepository defines the interface for organization data access
type OrganizationRepository interface {
	// Create creates a new organization
	Create(ctx context.Context, org *models.Organization) error

	// FindByID finds an organization by ID
	FindByID(ctx context.Context, id uint64) (*models.Organization, error)

	// List lists organizations newest first
	List(ctx context.Context, filter OrganizationFilter) ([]models.Organization, int64, error)

	// Update updates an organization
	Update(ctx context.Context, org *models.Organization) error

	// Delete deletes an organization and its invitations. It fails with
	// ErrOrganizationInUse while any assignment references it.
	Delete(ctx context.Context, id uint64) error
}

// AssignmentRepository defines the interface for assignment data access
type AssignmentRepository interface {
	// Transaction runs fn against a repository bound to one transaction
	Transaction(ctx context.Context, fn func(tx AssignmentRepository) error) error

	// Create creates an assignment
	Create(ctx context.Context, assignment *models.Assignment) error

	// Delete removes the assignment for the pair; a missing pair is not an error
	Delete(ctx context.Context, organizationID, userID uint64) error

	// Find finds the assignment for the pair
	Find(ctx context.Context, organizationID, userID uint64) (*models.Assignment, error)

	// ListByUser lists a user's assignments ordered by assignment time ascending
	ListByUser(ctx context.Context, userID uint64) ([]models.Assignment, error)

	// ListByOrganization lists an organization's assignments with users preloaded
	ListByOrganization(ctx context.Context, organizationID uint64) ([]models.Assignment, error)

	// ListDealersByOrganizations lists the dealer assignments of several
	// organizations with users preloaded
	ListDealersByOrganizations(ctx context.Context, organizationIDs []uint64) ([]models.Assignment, error)

	// CountByOrganizations counts assignments per organization
	CountByOrganizations(ctx context.Context, organizationIDs []uint64) (map[uint64]int64, error)
}

// InvitationRepository defines the interface for invitation data access
type InvitationRepository interface {
	// CreateReplacingPending deletes pending invitations for the same
	// organization and email and inserts invitation, atomically
	CreateReplacingPending(ctx context.Context, invitation *models.Invitation) (superseded int64, err error)

	// FindByToken finds an invitation by token with its organization
	FindByToken(ctx context.Context, token string) (*models.Invitation, error)

	// ListByOrganization lists an organization's invitations newest first
	ListByOrganization(ctx context.Context, organizationID uint64) ([]models.Invitation, error)

	// MarkExpired moves a pending invitation to expired. It reports false
	// when the invitation was no longer pending.
	MarkExpired(ctx context.Context, id uint64) (bool, error)

	// MarkAccepted moves a pending, unexpired invitation to accepted. It
	// reports false when no row matched.
	MarkAccepted(ctx context.Context, token string, acceptedAt time.Time) (bool, error)
}
