package repository

import (
	"context"

	"github.com/yukikurage/org-access-api/internal/models"
	"gorm.io/gorm"
)

// GormAssignmentRepository is a GORM implementation of AssignmentRepository
type GormAssignmentRepository struct {
	db *gorm.DB
}

// NewAssignmentRepository creates a new AssignmentRepository
func NewAssignmentRepository(db *gorm.DB) AssignmentRepository {
	return &GormAssignmentRepository{db: db}
}

// Transaction runs fn inside a database transaction
func (r *GormAssignmentRepository) Transaction(ctx context.Context, fn func(tx AssignmentRepository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&GormAssignmentRepository{db: tx})
	})
}

// Create creates an assignment
func (r *GormAssignmentRepository) Create(ctx context.Context, assignment *models.Assignment) error {
	return mapError(r.db.WithContext(ctx).Omit("Organization", "User").Create(assignment).Error)
}

// Delete removes the assignment for the pair
func (r *GormAssignmentRepository) Delete(ctx context.Context, organizationID, userID uint64) error {
	return mapError(r.db.WithContext(ctx).
		Where("organization_id = ? AND user_id = ?", organizationID, userID).
		Delete(&models.Assignment{}).Error)
}

// Find finds a specific assignment
func (r *GormAssignmentRepository) Find(ctx context.Context, organizationID, userID uint64) (*models.Assignment, error) {
	var assignment models.Assignment
	if err := r.db.WithContext(ctx).
		Where("organization_id = ? AND user_id = ?", organizationID, userID).
		First(&assignment).Error; err != nil {
		return nil, mapError(err)
	}
	return &assignment, nil
}

// ListByUser lists all assignments of a user with their organizations
func (r *GormAssignmentRepository) ListByUser(ctx context.Context, userID uint64) ([]models.Assignment, error) {
	var assignments []models.Assignment
	if err := r.db.WithContext(ctx).
		Preload("Organization").
		Where("user_id = ?", userID).
		Order("assigned_at ASC").
		Order("id ASC").
		Find(&assignments).Error; err != nil {
		return nil, mapError(err)
	}
	return assignments, nil
}

// ListByOrganization lists all assignments of an organization with their users
func (r *GormAssignmentRepository) ListByOrganization(ctx context.Context, organizationID uint64) ([]models.Assignment, error) {
	var assignments []models.Assignment
	if err := r.db.WithContext(ctx).
		Preload("User").
		Where("organization_id = ?", organizationID).
		Order("assigned_at ASC").
		Order("id ASC").
		Find(&assignments).Error; err != nil {
		return nil, mapError(err)
	}
	return assignments, nil
}

// ListDealersByOrganizations lists the dealer assignments of the given
// organizations in one query, with users preloaded
func (r *GormAssignmentRepository) ListDealersByOrganizations(ctx context.Context, organizationIDs []uint64) ([]models.Assignment, error) {
	if len(organizationIDs) == 0 {
		return nil, nil
	}

	var assignments []models.Assignment
	if err := r.db.WithContext(ctx).
		Preload("User").
		Where("organization_id IN ? AND dealer_slot IS NOT NULL", organizationIDs).
		Order("assigned_at ASC").
		Order("id ASC").
		Find(&assignments).Error; err != nil {
		return nil, mapError(err)
	}
	return assignments, nil
}

// CountByOrganizations counts assignments grouped by organization
func (r *GormAssignmentRepository) CountByOrganizations(ctx context.Context, organizationIDs []uint64) (map[uint64]int64, error) {
	counts := make(map[uint64]int64, len(organizationIDs))
	if len(organizationIDs) == 0 {
		return counts, nil
	}

	var rows []struct {
		OrganizationID uint64
		Count          int64
	}
	if err := r.db.WithContext(ctx).
		Model(&models.Assignment{}).
		Select("organization_id, COUNT(*) AS count").
		Where("organization_id IN ?", organizationIDs).
		Group("organization_id").
		Scan(&rows).Error; err != nil {
		return nil, mapError(err)
	}

	for _, row := range rows {
		counts[row.OrganizationID] = row.Count
	}
	return counts, nil
}
