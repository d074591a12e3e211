package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/org-access-api/internal/dto"
	apierrors "github.com/yukikurage/org-access-api/internal/errors"
	"github.com/yukikurage/org-access-api/internal/middleware"
	"github.com/yukikurage/org-access-api/internal/permissions"
	"github.com/yukikurage/org-access-api/internal/services"
	"github.com/yukikurage/org-access-api/internal/utils"
)

type OrganizationHandler struct {
	orgService        *services.OrganizationService
	assignmentService *services.AssignmentService
}

func NewOrganizationHandler(orgService *services.OrganizationService, assignmentService *services.AssignmentService) *OrganizationHandler {
	return &OrganizationHandler{
		orgService:        orgService,
		assignmentService: assignmentService,
	}
}

// CreateOrganization creates a new organization
func (h *OrganizationHandler) CreateOrganization(c *gin.Context) {
	user, exists := middleware.GetCurrentUser(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	type CreateOrgRequest struct {
		Name              string  `json:"name" binding:"required"`
		Code              *string `json:"code"`
		Description       *string `json:"description"`
		AppURL            *string `json:"app_url"`
		FactoryAdminEmail *string `json:"factory_admin_email"`
		AssignUserID      *uint64 `json:"assign_user_id"`
	}

	var req CreateOrgRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, "Organization name is required", err)
		return
	}

	// A dealer who creates an organization manages it
	assignUserID := req.AssignUserID
	if assignUserID == nil && permissions.IsDealer(user) {
		assignUserID = &user.ID
	}

	org, err := h.orgService.CreateOrganization(c.Request.Context(), services.CreateOrganizationInput{
		Name:              req.Name,
		Code:              req.Code,
		Description:       req.Description,
		AppURL:            req.AppURL,
		FactoryAdminEmail: req.FactoryAdminEmail,
		AssignUserID:      assignUserID,
		CreatedBy:         &user.ID,
	})
	if err != nil {
		apierrors.RespondWithServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToOrganizationDTO(*org))
}

// ListOrganizations returns the organizations visible to the current user
func (h *OrganizationHandler) ListOrganizations(c *gin.Context) {
	user, exists := middleware.GetCurrentUser(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	pagination := utils.GetPaginationParams(c)
	summaries, total, err := h.orgService.ListOrganizations(c.Request.Context(), user, pagination)
	if err != nil {
		apierrors.RespondWithServiceError(c, err)
		return
	}

	orgs := make([]dto.OrganizationSummaryDTO, len(summaries))
	for i, summary := range summaries {
		orgs[i] = dto.ToOrganizationSummaryDTO(summary)
	}

	c.JSON(http.StatusOK, dto.OrganizationListResponse{
		Organizations: orgs,
		Pagination:    utils.BuildPaginationResponse(pagination, total),
	})
}

// GetOrganization returns organization details
func (h *OrganizationHandler) GetOrganization(c *gin.Context) {
	// Access is already checked by RequireOrganizationAccess middleware
	orgID, _ := middleware.GetOrganizationID(c)

	summary, err := h.orgService.GetOrganization(c.Request.Context(), orgID)
	if err != nil {
		apierrors.RespondWithServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToOrganizationSummaryDTO(*summary))
}

// UpdateOrganization updates organization details
func (h *OrganizationHandler) UpdateOrganization(c *gin.Context) {
	orgID, exists := middleware.GetOrganizationID(c)
	if !exists {
		apierrors.InternalError(c, "Organization not found in context")
		return
	}

	type UpdateOrgRequest struct {
		Name              *string `json:"name"`
		Code              *string `json:"code"`
		Description       *string `json:"description"`
		AppURL            *string `json:"app_url"`
		FactoryAdminEmail *string `json:"factory_admin_email"`
		IsInitialized     *bool   `json:"is_initialized"`
	}

	var req UpdateOrgRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	org, err := h.orgService.UpdateOrganization(c.Request.Context(), orgID, services.UpdateOrganizationInput{
		Name:              req.Name,
		Code:              req.Code,
		Description:       req.Description,
		AppURL:            req.AppURL,
		FactoryAdminEmail: req.FactoryAdminEmail,
		IsInitialized:     req.IsInitialized,
	})
	if err != nil {
		apierrors.RespondWithServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToOrganizationDTO(*org))
}

// DeleteOrganization deletes an organization that has no assignments left
func (h *OrganizationHandler) DeleteOrganization(c *gin.Context) {
	orgID, exists := middleware.GetOrganizationID(c)
	if !exists {
		apierrors.InternalError(c, "Organization not found in context")
		return
	}

	if err := h.orgService.DeleteOrganization(c.Request.Context(), orgID); err != nil {
		apierrors.RespondWithServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Organization deleted successfully",
	})
}

// ListMembers returns the users assigned to the organization
func (h *OrganizationHandler) ListMembers(c *gin.Context) {
	orgID, _ := middleware.GetOrganizationID(c)

	users, err := h.assignmentService.ListForOrganization(c.Request.Context(), orgID)
	if err != nil {
		apierrors.RespondWithServiceError(c, err)
		return
	}

	members := make([]dto.UserSummaryDTO, len(users))
	for i, user := range users {
		members[i] = dto.ToUserSummaryDTO(user)
	}

	var dealer *dto.UserSummaryDTO
	if current := services.CurrentDealer(users); current != nil {
		summary := dto.ToUserSummaryDTO(*current)
		dealer = &summary
	}

	c.JSON(http.StatusOK, gin.H{
		"members": members,
		"dealer":  dealer,
	})
}

// AddMember assigns a user to the organization
func (h *OrganizationHandler) AddMember(c *gin.Context) {
	orgID, _ := middleware.GetOrganizationID(c)
	actorID, _ := middleware.GetUserID(c)

	type AddMemberRequest struct {
		UserID uint64 `json:"user_id" binding:"required"`
	}

	var req AddMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "User ID is required")
		return
	}

	assignment, err := h.assignmentService.Assign(c.Request.Context(), orgID, req.UserID, &actorID)
	if err != nil {
		apierrors.RespondWithServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"organization_id": assignment.OrganizationID,
		"user_id":         assignment.UserID,
		"assigned_at":     assignment.AssignedAt,
		"assigned_by":     assignment.AssignedBy,
	})
}

// RemoveMember removes a user from the organization
func (h *OrganizationHandler) RemoveMember(c *gin.Context) {
	orgID, _ := middleware.GetOrganizationID(c)

	userID, ok := parseIDParam(c, "user_id", "Invalid user ID")
	if !ok {
		return
	}

	if err := h.assignmentService.Unassign(c.Request.Context(), orgID, userID); err != nil {
		apierrors.RespondWithServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Member removed successfully",
	})
}

// SetDealer replaces or clears the organization's dealer
func (h *OrganizationHandler) SetDealer(c *gin.Context) {
	orgID, _ := middleware.GetOrganizationID(c)
	actorID, _ := middleware.GetUserID(c)

	type SetDealerRequest struct {
		DealerID *uint64 `json:"dealer_id"`
	}

	var req SetDealerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	if err := h.assignmentService.SetDealer(c.Request.Context(), orgID, req.DealerID, &actorID); err != nil {
		apierrors.RespondWithServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"organization_id": orgID,
		"dealer_id":       req.DealerID,
	})
}

// ListMyOrganizations returns the current user's assignments, oldest first
func (h *OrganizationHandler) ListMyOrganizations(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	assignments, err := h.assignmentService.ListForPrincipal(c.Request.Context(), userID)
	if err != nil {
		apierrors.RespondWithServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"assignments": dto.ToAssignmentDTOs(assignments),
	})
}
