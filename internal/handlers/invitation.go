package handlers

import (
	"bytes"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/yukikurage/org-access-api/internal/dto"
	apierrors "github.com/yukikurage/org-access-api/internal/errors"
	"github.com/yukikurage/org-access-api/internal/middleware"
	"github.com/yukikurage/org-access-api/internal/services"
)

// InvitationHandler serves invitation endpoints for the console and for
// org-apps.
type InvitationHandler struct {
	invitationService *services.InvitationService
}

// NewInvitationHandler creates a new InvitationHandler.
func NewInvitationHandler(invitationService *services.InvitationService) *InvitationHandler {
	return &InvitationHandler{
		invitationService: invitationService,
	}
}

// CreateInvitation issues a primary-admin invitation for the organization,
// superseding any pending one for the same email.
func (h *InvitationHandler) CreateInvitation(c *gin.Context) {
	orgID, _ := middleware.GetOrganizationID(c)
	actorID, _ := middleware.GetUserID(c)

	type CreateInvitationRequest struct {
		Email string `json:"email" binding:"required"`
	}

	var req CreateInvitationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Email is required")
		return
	}

	invitation, err := h.invitationService.Create(c.Request.Context(), orgID, req.Email, &actorID)
	if err != nil {
		apierrors.RespondWithServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"invitation": dto.ToInvitationDTO(*invitation),
	})
}

// ListInvitations returns the organization's invitations, newest first.
func (h *InvitationHandler) ListInvitations(c *gin.Context) {
	orgID, _ := middleware.GetOrganizationID(c)

	invitations, err := h.invitationService.ListForOrganization(c.Request.Context(), orgID)
	if err != nil {
		apierrors.RespondWithServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"invitations": dto.ToInvitationDTOs(invitations),
	})
}

// GetInvitation looks an invitation up by token for the org-app.
func (h *InvitationHandler) GetInvitation(c *gin.Context) {
	invitation, err := h.invitationService.GetByToken(c.Request.Context(), c.Param("token"))
	if err != nil {
		apierrors.RespondWithServiceError(c, err)
		return
	}
	if invitation == nil {
		apierrors.RespondWithServiceError(c, services.ErrInvitationNotFound)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"invitation": dto.ToInvitationDTO(*invitation),
	})
}

// AcceptInvitation consumes an invitation on behalf of the org-app.
func (h *InvitationHandler) AcceptInvitation(c *gin.Context) {
	type AcceptInvitationRequest struct {
		Email string `json:"email"`
	}

	// The body is optional. Its length is not always declared, so read it
	// instead of trusting Content-Length.
	raw, err := c.GetRawData()
	if err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	var req AcceptInvitationRequest
	if len(bytes.TrimSpace(raw)) > 0 {
		if err := binding.JSON.BindBody(raw, &req); err != nil {
			apierrors.BadRequest(c, "Invalid request body")
			return
		}
	}

	invitation, err := h.invitationService.Accept(c.Request.Context(), c.Param("token"), req.Email)
	if err != nil {
		apierrors.RespondWithServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"invitation": dto.ToInvitationDTO(*invitation),
	})
}
