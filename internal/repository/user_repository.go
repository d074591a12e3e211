package repository

import (
	"context"
	"strings"

	"github.com/yukikurage/org-access-api/internal/models"
	"gorm.io/gorm"
)

// GormUserRepository is a GORM implementation of UserRepository
type GormUserRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new UserRepository
func NewUserRepository(db *gorm.DB) UserRepository {
	return &GormUserRepository{db: db}
}

// Create creates a new user
func (r *GormUserRepository) Create(ctx context.Context, user *models.User) error {
	return mapError(r.db.WithContext(ctx).Create(user).Error)
}

// FindByID finds a user by ID
func (r *GormUserRepository) FindByID(ctx context.Context, id uint64) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, mapError(err)
	}
	return &user, nil
}

// FindByUsernameOrEmail finds a user by username or email
func (r *GormUserRepository) FindByUsernameOrEmail(ctx context.Context, usernameOrEmail string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).
		Where("username = ? OR email = ?", usernameOrEmail, strings.ToLower(usernameOrEmail)).
		Order("id ASC").
		First(&user).Error; err != nil {
		return nil, mapError(err)
	}
	return &user, nil
}

// FindByInviteHashcode finds a user by standing invite hashcode
func (r *GormUserRepository) FindByInviteHashcode(ctx context.Context, hashcode string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).
		Where("invite_hashcode = ?", hashcode).
		First(&user).Error; err != nil {
		return nil, mapError(err)
	}
	return &user, nil
}

// List lists all users with their assignments and organizations
func (r *GormUserRepository) List(ctx context.Context) ([]models.User, error) {
	var users []models.User
	if err := r.db.WithContext(ctx).
		Preload("Assignments", func(db *gorm.DB) *gorm.DB {
			return db.Order("assigned_at ASC")
		}).
		Preload("Assignments.Organization").
		Order("name ASC").
		Find(&users).Error; err != nil {
		return nil, mapError(err)
	}
	return users, nil
}

// ListByRole lists users with the given role
func (r *GormUserRepository) ListByRole(ctx context.Context, role models.Role) ([]models.User, error) {
	var users []models.User
	if err := r.db.WithContext(ctx).
		Where("role = ?", role).
		Order("name ASC").
		Find(&users).Error; err != nil {
		return nil, mapError(err)
	}
	return users, nil
}

// Update saves a user
func (r *GormUserRepository) Update(ctx context.Context, user *models.User) error {
	return mapError(r.db.WithContext(ctx).Omit("Assignments").Save(user).Error)
}

// UpdatePasswordHash replaces a user's credential digest
func (r *GormUserRepository) UpdatePasswordHash(ctx context.Context, id uint64, hash string) error {
	return mapError(r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", id).
		Update("password_hash", hash).Error)
}

// Delete deletes a user and all related data in a transaction
func (r *GormUserRepository) Delete(ctx context.Context, id uint64) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Remove the user's assignments
		if err := tx.Where("user_id = ?", id).Delete(&models.Assignment{}).Error; err != nil {
			return err
		}

		// Clear attribution columns that point at the user
		if err := tx.Model(&models.Assignment{}).Where("assigned_by = ?", id).
			Update("assigned_by", nil).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.Organization{}).Where("created_by = ?", id).
			Update("created_by", nil).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.Invitation{}).Where("created_by = ?", id).
			Update("created_by", nil).Error; err != nil {
			return err
		}

		result := tx.Delete(&models.User{}, id)
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
