package database

import (
	"fmt"

	"github.com/yukikurage/org-access-api/internal/models"
	"gorm.io/gorm"
)

// AddIndexes adds the composite indexes used by the hot lookups that
// AutoMigrate does not derive from struct tags.
func AddIndexes(db *gorm.DB) error {
	indexes := []struct {
		model   interface{}
		table   string
		name    string
		columns string
	}{
		// Invitation supersession and listing
		{&models.Invitation{}, "invitations", "idx_invitations_org_email_status", "organization_id, email, status"},
		{&models.Invitation{}, "invitations", "idx_invitations_org_created_at", "organization_id, created_at"},

		// Ledger listings ordered by assignment time
		{&models.Assignment{}, "assignments", "idx_assignments_user_assigned_at", "user_id, assigned_at"},

		// Dealer pickers
		{&models.User{}, "users", "idx_users_role_name", "role, name"},
	}

	for _, idx := range indexes {
		if db.Migrator().HasIndex(idx.model, idx.name) {
			continue
		}

		sql := fmt.Sprintf("CREATE INDEX %s ON %s (%s)", idx.name, idx.table, idx.columns)
		if err := db.Exec(sql).Error; err != nil {
			return fmt.Errorf("failed to create index %s: %w", idx.name, err)
		}
	}

	return nil
}
