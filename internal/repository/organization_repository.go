package repository

import (
	"context"

	"github.com/yukikurage/org-access-api/internal/database"
	"github.com/yukikurage/org-access-api/internal/models"
	"gorm.io/gorm"
)

// GormOrganizationRepository is a GORM implementation of OrganizationRepository
type GormOrganizationRepository struct {
	db *gorm.DB
}

// NewOrganizationRepository creates a new OrganizationRepository
func NewOrganizationRepository(db *gorm.DB) OrganizationRepository {
	return &GormOrganizationRepository{db: db}
}

// Create creates a new organization
func (r *GormOrganizationRepository) Create(ctx context.Context, org *models.Organization) error {
	return mapError(r.db.WithContext(ctx).Create(org).Error)
}

// FindByID finds an organization by ID
func (r *GormOrganizationRepository) FindByID(ctx context.Context, id uint64) (*models.Organization, error) {
	var org models.Organization
	if err := r.db.WithContext(ctx).First(&org, id).Error; err != nil {
		return nil, mapError(err)
	}
	return &org, nil
}

// List retrieves organizations with filtering and pagination
func (r *GormOrganizationRepository) List(ctx context.Context, filter OrganizationFilter) ([]models.Organization, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Organization{})

	if filter.MemberUserID != nil {
		memberSubQuery := r.db.Model(&models.Assignment{}).
			Select("1").
			Where("assignments.organization_id = organizations.id AND assignments.user_id = ?", *filter.MemberUserID)
		query = query.Where("EXISTS (?)", memberSubQuery)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, mapError(err)
	}

	if filter.Pagination.Limit > 0 {
		query = query.Scopes(database.Paginate(filter.Pagination))
	}

	var orgs []models.Organization
	if err := query.
		Order("organizations.created_at DESC").
		Order("organizations.id DESC").
		Find(&orgs).Error; err != nil {
		return nil, 0, mapError(err)
	}

	return orgs, total, nil
}

// Update updates an organization
func (r *GormOrganizationRepository) Update(ctx context.Context, org *models.Organization) error {
	return mapError(r.db.WithContext(ctx).Omit("Assignments", "Invitations").Save(org).Error)
}

// Delete deletes an organization and its invitations in a transaction
func (r *GormOrganizationRepository) Delete(ctx context.Context, id uint64) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.Assignment{}).Where("organization_id = ?", id).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return ErrOrganizationInUse
		}

		// Delete all invitations
		if err := tx.Where("organization_id = ?", id).Delete(&models.Invitation{}).Error; err != nil {
			return err
		}

		// Delete organization
		result := tx.Delete(&models.Organization{}, id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
	return mapError(err)
}
