package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yukikurage/org-access-api/internal/models"
	"github.com/yukikurage/org-access-api/internal/utils"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func TestMigrate_CreatesSchemaAndIndexes(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)

	require.NoError(t, Migrate(db))
	// Running twice must be a no-op.
	require.NoError(t, Migrate(db))

	assert.True(t, db.Migrator().HasTable(&models.Invitation{}))
	assert.True(t, db.Migrator().HasIndex(&models.Invitation{}, "idx_invitations_org_email_status"))
	assert.True(t, db.Migrator().HasIndex(&models.Assignment{}, "idx_assignments_user_org"))
}

func TestPaginate(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Organization{}))

	for _, name := range []string{"a", "b", "c", "d", "e"} {
		require.NoError(t, db.Create(&models.Organization{Name: name}).Error)
	}

	var page []models.Organization
	err = db.Order("id").Scopes(Paginate(utils.PaginationParams{Page: 2, Limit: 2, Offset: 2})).Find(&page).Error
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "c", page[0].Name)
}
