package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/org-access-api/internal/dto"
	apierrors "github.com/yukikurage/org-access-api/internal/errors"
	"github.com/yukikurage/org-access-api/internal/services"
)

// ExternalAuthHandler serves the cross-origin authentication endpoints that
// org-apps call. These routes carry no console session.
type ExternalAuthHandler struct {
	externalAuthService *services.ExternalAuthService
}

// NewExternalAuthHandler creates a new ExternalAuthHandler.
func NewExternalAuthHandler(externalAuthService *services.ExternalAuthService) *ExternalAuthHandler {
	return &ExternalAuthHandler{
		externalAuthService: externalAuthService,
	}
}

// Authenticate verifies a consultant's or auditor's credentials. Org-apps
// send usernameOrEmail; username_or_email is accepted as an alias.
func (h *ExternalAuthHandler) Authenticate(c *gin.Context) {
	type AuthenticateRequest struct {
		UsernameOrEmail      string `json:"usernameOrEmail"`
		UsernameOrEmailAlias string `json:"username_or_email"`
		Password             string `json:"password"`
	}

	var req AuthenticateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.RespondWithServiceError(c, services.ErrCredentialsRequired)
		return
	}

	identifier := strings.TrimSpace(req.UsernameOrEmail)
	if identifier == "" {
		identifier = strings.TrimSpace(req.UsernameOrEmailAlias)
	}
	if identifier == "" || req.Password == "" {
		apierrors.RespondWithServiceError(c, services.ErrCredentialsRequired)
		return
	}

	user, err := h.externalAuthService.AuthenticateExternal(c.Request.Context(), identifier, req.Password)
	if err != nil {
		apierrors.RespondWithServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"user":    dto.ToExternalUserDTO(*user),
	})
}

// ValidateInvite resolves a standing invite hashcode.
func (h *ExternalAuthHandler) ValidateInvite(c *gin.Context) {
	user, err := h.externalAuthService.ValidateStandingInvite(c.Request.Context(), c.Query("hashcode"))
	if err != nil {
		apierrors.RespondWithServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"valid": true,
		"user":  dto.ToExternalUserDTO(*user),
	})
}
