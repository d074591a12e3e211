package repository

import (
	"context"
	"time"

	"github.com/yukikurage/org-access-api/internal/models"
	"gorm.io/gorm"
)

// GormInvitationRepository is a GORM implementation of InvitationRepository
type GormInvitationRepository struct {
	db *gorm.DB
}

// NewInvitationRepository creates a new InvitationRepository
func NewInvitationRepository(db *gorm.DB) InvitationRepository {
	return &GormInvitationRepository{db: db}
}

// CreateReplacingPending supersedes pending invitations and inserts a new one
func (r *GormInvitationRepository) CreateReplacingPending(ctx context.Context, invitation *models.Invitation) (int64, error) {
	var superseded int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.
			Where("organization_id = ? AND email = ? AND status = ?",
				invitation.OrganizationID, invitation.Email, models.InvitationStatusPending).
			Delete(&models.Invitation{})
		if result.Error != nil {
			return result.Error
		}
		superseded = result.RowsAffected

		return tx.Omit("Organization").Create(invitation).Error
	})
	if err != nil {
		return 0, mapError(err)
	}
	return superseded, nil
}

// FindByToken finds an invitation by token
func (r *GormInvitationRepository) FindByToken(ctx context.Context, token string) (*models.Invitation, error) {
	var invitation models.Invitation
	if err := r.db.WithContext(ctx).
		Preload("Organization").
		Where("token = ?", token).
		First(&invitation).Error; err != nil {
		return nil, mapError(err)
	}
	return &invitation, nil
}

// ListByOrganization lists invitations of an organization
func (r *GormInvitationRepository) ListByOrganization(ctx context.Context, organizationID uint64) ([]models.Invitation, error) {
	var invitations []models.Invitation
	if err := r.db.WithContext(ctx).
		Preload("Organization").
		Where("organization_id = ?", organizationID).
		Order("created_at DESC").
		Order("id DESC").
		Find(&invitations).Error; err != nil {
		return nil, mapError(err)
	}
	return invitations, nil
}

// MarkExpired moves a pending invitation to expired
func (r *GormInvitationRepository) MarkExpired(ctx context.Context, id uint64) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Invitation{}).
		Where("id = ? AND status = ?", id, models.InvitationStatusPending).
		Updates(map[string]interface{}{
			"status":      models.InvitationStatusExpired,
			"pending_key": gorm.Expr("NULL"),
		})
	if result.Error != nil {
		return false, mapError(result.Error)
	}
	return result.RowsAffected == 1, nil
}

// MarkAccepted moves a pending, unexpired invitation to accepted
func (r *GormInvitationRepository) MarkAccepted(ctx context.Context, token string, acceptedAt time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Invitation{}).
		Where("token = ? AND status = ? AND expires_at >= ?", token, models.InvitationStatusPending, acceptedAt).
		Updates(map[string]interface{}{
			"status":      models.InvitationStatusAccepted,
			"accepted_at": acceptedAt,
			"pending_key": gorm.Expr("NULL"),
		})
	if result.Error != nil {
		return false, mapError(result.Error)
	}
	return result.RowsAffected == 1, nil
}
