package services

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/yukikurage/org-access-api/internal/database"
	"github.com/yukikurage/org-access-api/internal/models"
	"github.com/yukikurage/org-access-api/internal/password"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const testPassword = "password123"

// Cheap parameters keep the suite fast.
var testHasher = password.NewHasher(password.Params{MemoryKiB: 1024, Iterations: 1, Parallelism: 1})

func setupServiceDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	// Every pooled connection to :memory: would get its own database.
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() {
		sqlDB.Close()
	})

	require.NoError(t, database.Migrate(db))
	return db
}

func createTestUser(t *testing.T, db *gorm.DB, username string, role models.Role) *models.User {
	t.Helper()

	digest, err := testHasher.Hash(testPassword)
	require.NoError(t, err)

	user := &models.User{
		Username:     username,
		Email:        username + "@example.com",
		Name:         username,
		Role:         role,
		PasswordHash: digest,
	}
	if role.UsesStandingInvite() {
		code := username + "-hashcode"
		user.InviteHashcode = &code
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

func createTestOrganization(t *testing.T, db *gorm.DB, name, appURL string) *models.Organization {
	t.Helper()

	org := &models.Organization{Name: name}
	if appURL != "" {
		org.AppURL = &appURL
	}
	require.NoError(t, db.Create(org).Error)
	return org
}

func countDealerAssignments(t *testing.T, db *gorm.DB, orgID uint64) int64 {
	t.Helper()

	var count int64
	require.NoError(t, db.Model(&models.Assignment{}).
		Joins("JOIN users ON users.id = assignments.user_id").
		Where("assignments.organization_id = ? AND users.role = ?", orgID, models.RoleDealer).
		Count(&count).Error)
	return count
}
