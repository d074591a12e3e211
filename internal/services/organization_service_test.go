package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yukikurage/org-access-api/internal/models"
	"github.com/yukikurage/org-access-api/internal/repository"
	"github.com/yukikurage/org-access-api/internal/utils"
	"gorm.io/gorm"
)

func newTestOrganizationService(db *gorm.DB) (*OrganizationService, *AssignmentService) {
	assignments := newTestAssignmentService(db, nil)
	svc := NewOrganizationService(
		repository.NewOrganizationRepository(db),
		repository.NewAssignmentRepository(db),
		assignments,
	)
	return svc, assignments
}

func strPtr(s string) *string { return &s }

func TestOrganizationService_CreateOrganization(t *testing.T) {
	db := setupServiceDB(t)
	svc, assignments := newTestOrganizationService(db)
	ctx := context.Background()

	admin := createTestUser(t, db, "admin", models.RoleAdmin)
	dealer := createTestUser(t, db, "dealer", models.RoleDealer)

	org, err := svc.CreateOrganization(ctx, CreateOrganizationInput{
		Name:              "  Acme  ",
		AppURL:            strPtr("https://acme.example.com"),
		FactoryAdminEmail: strPtr("Boss@Acme.example.com"),
		AssignUserID:      &dealer.ID,
		CreatedBy:         &admin.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, "Acme", org.Name)
	assert.Equal(t, "boss@acme.example.com", *org.FactoryAdminEmail)

	users, err := assignments.ListForOrganization(ctx, org.ID)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, dealer.ID, users[0].ID)

	// An initial assignment that fails does not undo the organization.
	missing := uint64(9999)
	org, err = svc.CreateOrganization(ctx, CreateOrganizationInput{Name: "Orphan", AssignUserID: &missing})
	require.NoError(t, err)
	assert.NotZero(t, org.ID)
}

func TestOrganizationService_CreateOrganizationValidation(t *testing.T) {
	db := setupServiceDB(t)
	svc, _ := newTestOrganizationService(db)
	ctx := context.Background()

	_, err := svc.CreateOrganization(ctx, CreateOrganizationInput{Name: " "})
	assert.ErrorIs(t, err, ErrInvalidOrganizationName)

	_, err = svc.CreateOrganization(ctx, CreateOrganizationInput{Name: "Acme", AppURL: strPtr("ftp://acme")})
	assert.ErrorIs(t, err, ErrInvalidAppURL)

	_, err = svc.CreateOrganization(ctx, CreateOrganizationInput{Name: "Acme", FactoryAdminEmail: strPtr("boss")})
	assert.ErrorIs(t, err, ErrInvalidEmail)
}

func TestOrganizationService_ListOrganizations(t *testing.T) {
	db := setupServiceDB(t)
	svc, assignments := newTestOrganizationService(db)
	ctx := context.Background()

	admin := createTestUser(t, db, "admin", models.RoleAdmin)
	dealer := createTestUser(t, db, "dealer", models.RoleDealer)
	consult := createTestUser(t, db, "consult", models.RoleConsult)

	base := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
	var orgs []*models.Organization
	for i, name := range []string{"One", "Two", "Three"} {
		org := &models.Organization{Name: name, CreatedAt: base.Add(time.Duration(i) * time.Hour)}
		require.NoError(t, db.Create(org).Error)
		orgs = append(orgs, org)
	}

	require.NoError(t, assignments.SetDealer(ctx, orgs[0].ID, &dealer.ID, &admin.ID))
	_, err := assignments.Assign(ctx, orgs[0].ID, consult.ID, &admin.ID)
	require.NoError(t, err)

	all := utils.PaginationParams{Page: 1, Limit: 20, Offset: 0}
	summaries, total, err := svc.ListOrganizations(ctx, admin, all)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, summaries, 3)
	assert.Equal(t, "Three", summaries[0].Organization.Name)
	assert.Equal(t, "One", summaries[2].Organization.Name)
	assert.Equal(t, int64(2), summaries[2].UserCount)
	require.NotNil(t, summaries[2].Dealer)
	assert.Equal(t, dealer.ID, summaries[2].Dealer.ID)
	assert.Nil(t, summaries[0].Dealer)

	summaries, total, err = svc.ListOrganizations(ctx, admin, utils.PaginationParams{Page: 2, Limit: 2, Offset: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, summaries, 1)
	assert.Equal(t, "One", summaries[0].Organization.Name)

	summaries, total, err = svc.ListOrganizations(ctx, dealer, all)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, summaries, 1)
	assert.Equal(t, orgs[0].ID, summaries[0].Organization.ID)

	summaries, total, err = svc.ListOrganizations(ctx, nil, all)
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, summaries)
}

func TestOrganizationService_ListOrganizationsLoadsDealersInBulk(t *testing.T) {
	db := setupServiceDB(t)
	svc, assignments := newTestOrganizationService(db)
	ctx := context.Background()

	admin := createTestUser(t, db, "admin", models.RoleAdmin)
	all := utils.PaginationParams{Page: 1, Limit: 20, Offset: 0}

	var queries int
	require.NoError(t, db.Callback().Query().After("gorm:query").Register("test:count_queries", func(*gorm.DB) {
		queries++
	}))
	countQueries := func() int {
		queries = 0
		summaries, _, err := svc.ListOrganizations(ctx, admin, all)
		require.NoError(t, err)
		for _, summary := range summaries {
			require.NotNil(t, summary.Dealer, summary.Organization.Name)
		}
		return queries
	}

	addOrganizationWithDealer := func(name string) {
		org := &models.Organization{Name: name}
		require.NoError(t, db.Create(org).Error)
		dealer := createTestUser(t, db, "dealer_"+name, models.RoleDealer)
		require.NoError(t, assignments.SetDealer(ctx, org.ID, &dealer.ID, &admin.ID))
	}

	addOrganizationWithDealer("one")
	single := countQueries()

	for _, name := range []string{"two", "three", "four", "five"} {
		addOrganizationWithDealer(name)
	}
	assert.Equal(t, single, countQueries())
}

func TestOrganizationService_UpdateStampsInitializedAtOnce(t *testing.T) {
	db := setupServiceDB(t)
	svc, _ := newTestOrganizationService(db)
	ctx := context.Background()
	org := createTestOrganization(t, db, "Acme", "")

	first := time.Date(2025, 4, 1, 8, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return first }
	initialized := true
	updated, err := svc.UpdateOrganization(ctx, org.ID, UpdateOrganizationInput{
		IsInitialized: &initialized,
		AppURL:        strPtr("https://acme.example.com"),
	})
	require.NoError(t, err)
	require.NotNil(t, updated.InitializedAt)
	assert.True(t, updated.InitializedAt.Equal(first))

	svc.now = func() time.Time { return first.Add(48 * time.Hour) }
	updated, err = svc.UpdateOrganization(ctx, org.ID, UpdateOrganizationInput{IsInitialized: &initialized})
	require.NoError(t, err)
	assert.True(t, updated.InitializedAt.Equal(first))

	updated, err = svc.UpdateOrganization(ctx, org.ID, UpdateOrganizationInput{AppURL: strPtr("")})
	require.NoError(t, err)
	assert.Nil(t, updated.AppURL)

	_, err = svc.UpdateOrganization(ctx, 9999, UpdateOrganizationInput{})
	assert.ErrorIs(t, err, ErrOrganizationNotFound)
}

func TestOrganizationService_DeleteBlockedWhileAssigned(t *testing.T) {
	db := setupServiceDB(t)
	svc, assignments := newTestOrganizationService(db)
	ctx := context.Background()

	consult := createTestUser(t, db, "consult", models.RoleConsult)
	org := createTestOrganization(t, db, "Acme", "https://acme.example.com")
	_, err := assignments.Assign(ctx, org.ID, consult.ID, nil)
	require.NoError(t, err)
	require.NoError(t, db.Create(&models.Invitation{
		Token:          "tok",
		OrganizationID: org.ID,
		Email:          "x@example.com",
		Status:         models.InvitationStatusPending,
		Role:           models.InvitationRoleFactoryAdmin,
		ExpiresAt:      time.Now().UTC().Add(time.Hour),
	}).Error)

	assert.ErrorIs(t, svc.DeleteOrganization(ctx, org.ID), ErrOrganizationInUse)

	require.NoError(t, assignments.Unassign(ctx, org.ID, consult.ID))
	require.NoError(t, svc.DeleteOrganization(ctx, org.ID))

	var invitations int64
	require.NoError(t, db.Model(&models.Invitation{}).Where("organization_id = ?", org.ID).Count(&invitations).Error)
	assert.Zero(t, invitations)

	assert.ErrorIs(t, svc.DeleteOrganization(ctx, org.ID), ErrOrganizationNotFound)
}
