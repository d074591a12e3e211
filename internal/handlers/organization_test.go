package handlers

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yukikurage/org-access-api/internal/dto"
	"github.com/yukikurage/org-access-api/internal/middleware"
	"github.com/yukikurage/org-access-api/internal/models"
)

func setupOrganizationRouter(env handlerTestEnv, actor *models.User) *gin.Engine {
	handler := NewOrganizationHandler(env.orgService, env.assignmentService)
	canAccess := middleware.RequireOrganizationAccess(env.assignmentService)
	canManage := middleware.RequireOrganizationManager(env.assignmentService)

	r := gin.New()
	api := r.Group("/api", actingAs(actor))
	api.GET("/me/organizations", handler.ListMyOrganizations)

	orgs := api.Group("/organizations")
	orgs.GET("", handler.ListOrganizations)
	orgs.POST("", middleware.RequireOrganizationManagers(), handler.CreateOrganization)
	orgs.GET("/:id", canAccess, handler.GetOrganization)
	orgs.PATCH("/:id", canManage, handler.UpdateOrganization)
	orgs.DELETE("/:id", canManage, handler.DeleteOrganization)
	orgs.GET("/:id/members", canAccess, handler.ListMembers)
	orgs.POST("/:id/members", canManage, handler.AddMember)
	orgs.DELETE("/:id/members/:user_id", canManage, handler.RemoveMember)
	orgs.PUT("/:id/dealer", middleware.RequireAdmin(), canManage, handler.SetDealer)
	return r
}

func TestOrganizationHandler_CreateOrganization(t *testing.T) {
	env := setupHandlerTestEnv(t)
	admin := env.createUser(t, "admin", models.RoleAdmin)
	r := setupOrganizationRouter(env, admin)

	w := performJSON(t, r, http.MethodPost, "/api/organizations", map[string]string{
		"name":    "Acme Factory",
		"app_url": "https://acme.example.com",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	var org dto.OrganizationDTO
	decodeJSON(t, w, &org)
	assert.Equal(t, "Acme Factory", org.Name)
	require.NotNil(t, org.CreatedBy)
	assert.Equal(t, admin.ID, *org.CreatedBy)

	w = performJSON(t, r, http.MethodPost, "/api/organizations", map[string]string{})
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestOrganizationHandler_DealerCreatesAndManages(t *testing.T) {
	env := setupHandlerTestEnv(t)
	dealer := env.createUser(t, "dealer", models.RoleDealer)
	r := setupOrganizationRouter(env, dealer)

	w := performJSON(t, r, http.MethodPost, "/api/organizations", map[string]string{"name": "Dealer Org"})
	require.Equal(t, http.StatusCreated, w.Code)

	var org dto.OrganizationDTO
	decodeJSON(t, w, &org)

	// The creating dealer is assigned and can manage the organization
	w = performJSON(t, r, http.MethodPatch, fmt.Sprintf("/api/organizations/%d", org.ID), map[string]string{
		"description": "Managed by the dealer",
	})
	require.Equal(t, http.StatusOK, w.Code)
}

func TestOrganizationHandler_ConsultCannotCreate(t *testing.T) {
	env := setupHandlerTestEnv(t)
	consultant := env.createUser(t, "consultant", models.RoleConsult)
	r := setupOrganizationRouter(env, consultant)

	w := performJSON(t, r, http.MethodPost, "/api/organizations", map[string]string{"name": "Nope"})
	require.Equal(t, http.StatusForbidden, w.Code)
}

func TestOrganizationHandler_ListOrganizations(t *testing.T) {
	env := setupHandlerTestEnv(t)
	admin := env.createUser(t, "admin", models.RoleAdmin)
	dealer := env.createUser(t, "dealer", models.RoleDealer)
	first := env.createOrganization(t, "First", "")
	env.createOrganization(t, "Second", "")
	_, err := env.assignmentService.Assign(context.Background(), first.ID, dealer.ID, &admin.ID)
	require.NoError(t, err)

	w := performJSON(t, setupOrganizationRouter(env, admin), http.MethodGet, "/api/organizations?page=1&limit=10", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var all dto.OrganizationListResponse
	decodeJSON(t, w, &all)
	assert.Len(t, all.Organizations, 2)
	assert.Equal(t, int64(2), all.Pagination.Total)
	assert.Equal(t, 10, all.Pagination.Limit)

	w = performJSON(t, setupOrganizationRouter(env, dealer), http.MethodGet, "/api/organizations", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var own dto.OrganizationListResponse
	decodeJSON(t, w, &own)
	require.Len(t, own.Organizations, 1)
	assert.Equal(t, "First", own.Organizations[0].Name)
	assert.Equal(t, int64(1), own.Organizations[0].UserCount)
	require.NotNil(t, own.Organizations[0].Dealer)
	assert.Equal(t, dealer.ID, own.Organizations[0].Dealer.ID)
}

func TestOrganizationHandler_AccessHidesUnassignedOrganizations(t *testing.T) {
	env := setupHandlerTestEnv(t)
	dealer := env.createUser(t, "dealer", models.RoleDealer)
	org := env.createOrganization(t, "Hidden", "")
	r := setupOrganizationRouter(env, dealer)

	w := performJSON(t, r, http.MethodGet, fmt.Sprintf("/api/organizations/%d", org.ID), nil)
	require.Equal(t, http.StatusNotFound, w.Code)

	w = performJSON(t, r, http.MethodPatch, fmt.Sprintf("/api/organizations/%d", org.ID), map[string]string{"name": "Mine"})
	require.Equal(t, http.StatusForbidden, w.Code)

	w = performJSON(t, r, http.MethodGet, "/api/organizations/not-a-number", nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestOrganizationHandler_UpdateStampsInitializedAt(t *testing.T) {
	env := setupHandlerTestEnv(t)
	admin := env.createUser(t, "admin", models.RoleAdmin)
	org := env.createOrganization(t, "Acme", "")
	r := setupOrganizationRouter(env, admin)

	w := performJSON(t, r, http.MethodPatch, fmt.Sprintf("/api/organizations/%d", org.ID), map[string]bool{
		"is_initialized": true,
	})
	require.Equal(t, http.StatusOK, w.Code)

	var updated dto.OrganizationDTO
	decodeJSON(t, w, &updated)
	assert.True(t, updated.IsInitialized)
	assert.NotNil(t, updated.InitializedAt)
}

func TestOrganizationHandler_MembersAndDelete(t *testing.T) {
	env := setupHandlerTestEnv(t)
	admin := env.createUser(t, "admin", models.RoleAdmin)
	consultant := env.createUser(t, "consultant", models.RoleConsult)
	org := env.createOrganization(t, "Acme", "")
	r := setupOrganizationRouter(env, admin)
	base := fmt.Sprintf("/api/organizations/%d", org.ID)

	w := performJSON(t, r, http.MethodPost, base+"/members", map[string]uint64{"user_id": consultant.ID})
	require.Equal(t, http.StatusCreated, w.Code)

	w = performJSON(t, r, http.MethodPost, base+"/members", map[string]uint64{"user_id": consultant.ID})
	require.Equal(t, http.StatusConflict, w.Code)

	w = performJSON(t, r, http.MethodGet, base+"/members", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var members struct {
		Members []dto.UserSummaryDTO `json:"members"`
		Dealer  *dto.UserSummaryDTO  `json:"dealer"`
	}
	decodeJSON(t, w, &members)
	require.Len(t, members.Members, 1)
	assert.Nil(t, members.Dealer)

	// Deletion is blocked while users are assigned
	w = performJSON(t, r, http.MethodDelete, base, nil)
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = performJSON(t, r, http.MethodDelete, fmt.Sprintf("%s/members/%d", base, consultant.ID), nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = performJSON(t, r, http.MethodDelete, base, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = performJSON(t, r, http.MethodGet, base, nil)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestOrganizationHandler_SetDealer(t *testing.T) {
	env := setupHandlerTestEnv(t)
	admin := env.createUser(t, "admin", models.RoleAdmin)
	first := env.createUser(t, "first-dealer", models.RoleDealer)
	second := env.createUser(t, "second-dealer", models.RoleDealer)
	consultant := env.createUser(t, "consultant", models.RoleConsult)
	org := env.createOrganization(t, "Acme", "")
	r := setupOrganizationRouter(env, admin)
	path := fmt.Sprintf("/api/organizations/%d/dealer", org.ID)

	w := performJSON(t, r, http.MethodPut, path, map[string]uint64{"dealer_id": first.ID})
	require.Equal(t, http.StatusOK, w.Code)

	w = performJSON(t, r, http.MethodPut, path, map[string]uint64{"dealer_id": second.ID})
	require.Equal(t, http.StatusOK, w.Code)

	users, err := env.assignmentService.ListForOrganization(context.Background(), org.ID)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, second.ID, users[0].ID)

	w = performJSON(t, r, http.MethodPut, path, map[string]uint64{"dealer_id": consultant.ID})
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = performJSON(t, r, http.MethodPut, path, map[string]interface{}{"dealer_id": nil})
	require.Equal(t, http.StatusOK, w.Code)

	users, err = env.assignmentService.ListForOrganization(context.Background(), org.ID)
	require.NoError(t, err)
	assert.Empty(t, users)

	// Dealers cannot replace dealers
	w = performJSON(t, setupOrganizationRouter(env, first), http.MethodPut, path, map[string]uint64{"dealer_id": first.ID})
	require.Equal(t, http.StatusForbidden, w.Code)
}

func TestOrganizationHandler_ListMyOrganizations(t *testing.T) {
	env := setupHandlerTestEnv(t)
	admin := env.createUser(t, "admin", models.RoleAdmin)
	auditor := env.createUser(t, "auditor", models.RoleAudit)
	first := env.createOrganization(t, "First", "")
	second := env.createOrganization(t, "Second", "")
	for _, org := range []*models.Organization{first, second} {
		_, err := env.assignmentService.Assign(context.Background(), org.ID, auditor.ID, &admin.ID)
		require.NoError(t, err)
	}

	w := performJSON(t, setupOrganizationRouter(env, auditor), http.MethodGet, "/api/me/organizations", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var response struct {
		Assignments []dto.AssignmentDTO `json:"assignments"`
	}
	decodeJSON(t, w, &response)
	require.Len(t, response.Assignments, 2)
	assert.Equal(t, "First", response.Assignments[0].Organization.Name)
	assert.Equal(t, "Second", response.Assignments[1].Organization.Name)
}
