package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/org-access-api/internal/dto"
	apierrors "github.com/yukikurage/org-access-api/internal/errors"
	"github.com/yukikurage/org-access-api/internal/middleware"
	"github.com/yukikurage/org-access-api/internal/services"
)

// UserHandler serves the administrator's user management endpoints.
type UserHandler struct {
	userService       *services.UserService
	assignmentService *services.AssignmentService
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(userService *services.UserService, assignmentService *services.AssignmentService) *UserHandler {
	return &UserHandler{
		userService:       userService,
		assignmentService: assignmentService,
	}
}

// ListUsers returns every user with the organizations they are assigned to.
func (h *UserHandler) ListUsers(c *gin.Context) {
	users, err := h.userService.ListUsers(c.Request.Context())
	if err != nil {
		apierrors.RespondWithServiceError(c, err)
		return
	}

	out := make([]dto.UserWithOrganizationsDTO, len(users))
	for i, user := range users {
		out[i] = dto.ToUserWithOrganizationsDTO(user)
	}

	c.JSON(http.StatusOK, gin.H{
		"users": out,
	})
}

// CreateUser creates a user with the given role.
func (h *UserHandler) CreateUser(c *gin.Context) {
	type CreateUserRequest struct {
		Username  string  `json:"username" binding:"required"`
		Email     string  `json:"email" binding:"required"`
		Name      string  `json:"name" binding:"required"`
		Password  string  `json:"password" binding:"required"`
		Role      string  `json:"role" binding:"required"`
		AvatarURL *string `json:"avatar_url"`
	}

	var req CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, "Username, email, name, password and role are required", err)
		return
	}

	user, err := h.userService.CreateUser(c.Request.Context(), services.CreateUserInput{
		Username:  req.Username,
		Email:     req.Email,
		Name:      req.Name,
		Password:  req.Password,
		Role:      req.Role,
		AvatarURL: req.AvatarURL,
	})
	if err != nil {
		apierrors.RespondWithServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToUserDTO(*user, true))
}

// GetUser returns a single user.
func (h *UserHandler) GetUser(c *gin.Context) {
	userID, ok := parseIDParam(c, "id", "Invalid user ID")
	if !ok {
		return
	}

	user, err := h.userService.GetUser(c.Request.Context(), userID)
	if err != nil {
		apierrors.RespondWithServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToUserDTO(*user, true))
}

// UpdateUser applies an administrator's edit to a user.
func (h *UserHandler) UpdateUser(c *gin.Context) {
	userID, ok := parseIDParam(c, "id", "Invalid user ID")
	if !ok {
		return
	}

	type UpdateUserRequest struct {
		Username  *string `json:"username"`
		Email     *string `json:"email"`
		Name      *string `json:"name"`
		AvatarURL *string `json:"avatar_url"`
		Role      *string `json:"role"`
		Password  *string `json:"password"`
	}

	var req UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	user, err := h.userService.UpdateUser(c.Request.Context(), userID, services.UpdateUserInput{
		Username:  req.Username,
		Email:     req.Email,
		Name:      req.Name,
		AvatarURL: req.AvatarURL,
		Role:      req.Role,
		Password:  req.Password,
	})
	if err != nil {
		apierrors.RespondWithServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToUserDTO(*user, true))
}

// DeleteUser deletes a user. Administrators cannot delete themselves.
func (h *UserHandler) DeleteUser(c *gin.Context) {
	actorID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	userID, ok := parseIDParam(c, "id", "Invalid user ID")
	if !ok {
		return
	}

	if err := h.userService.DeleteUser(c.Request.Context(), actorID, userID); err != nil {
		apierrors.RespondWithServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "User deleted successfully",
	})
}

// ListDealers returns every user holding the Dealer role.
func (h *UserHandler) ListDealers(c *gin.Context) {
	dealers, err := h.assignmentService.ListDealers(c.Request.Context())
	if err != nil {
		apierrors.RespondWithServiceError(c, err)
		return
	}

	out := make([]dto.UserSummaryDTO, len(dealers))
	for i, dealer := range dealers {
		out[i] = dto.ToUserSummaryDTO(dealer)
	}

	c.JSON(http.StatusOK, gin.H{
		"dealers": out,
	})
}
