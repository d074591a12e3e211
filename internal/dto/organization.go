package dto

import (
	"time"

	"github.com/yukikurage/org-access-api/internal/models"
	"github.com/yukikurage/org-access-api/internal/services"
	"github.com/yukikurage/org-access-api/internal/utils"
)

// OrganizationRefDTO identifies an organization inside other resources
type OrganizationRefDTO struct {
	ID   uint64  `json:"id"`
	Name string  `json:"name"`
	Code *string `json:"code"`
}

// OrganizationDTO represents an organization in API responses
type OrganizationDTO struct {
	ID                uint64     `json:"id"`
	Name              string     `json:"name"`
	Code              *string    `json:"code"`
	Description       *string    `json:"description"`
	AppURL            *string    `json:"app_url"`
	IsInitialized     bool       `json:"is_initialized"`
	InitializedAt     *time.Time `json:"initialized_at"`
	FactoryAdminEmail *string    `json:"factory_admin_email"`
	CreatedBy         *uint64    `json:"created_by"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// OrganizationSummaryDTO is an organization with its roster figures
type OrganizationSummaryDTO struct {
	OrganizationDTO
	UserCount int64           `json:"user_count"`
	Dealer    *UserSummaryDTO `json:"dealer"`
}

// OrganizationListResponse represents a paginated list of organizations
type OrganizationListResponse struct {
	Organizations []OrganizationSummaryDTO `json:"organizations"`
	Pagination    utils.PaginationResponse `json:"pagination"`
}

// AssignmentDTO is one of the signed-in user's organization assignments
type AssignmentDTO struct {
	Organization OrganizationRefDTO `json:"organization"`
	AssignedAt   time.Time          `json:"assigned_at"`
	AssignedBy   *uint64            `json:"assigned_by"`
}

// ToOrganizationRefDTO converts an organization to its short form
func ToOrganizationRefDTO(org models.Organization) OrganizationRefDTO {
	return OrganizationRefDTO{ID: org.ID, Name: org.Name, Code: org.Code}
}

// ToOrganizationDTO converts an organization to DTO
func ToOrganizationDTO(org models.Organization) OrganizationDTO {
	return OrganizationDTO{
		ID:                org.ID,
		Name:              org.Name,
		Code:              org.Code,
		Description:       org.Description,
		AppURL:            org.AppURL,
		IsInitialized:     org.IsInitialized,
		InitializedAt:     org.InitializedAt,
		FactoryAdminEmail: org.FactoryAdminEmail,
		CreatedBy:         org.CreatedBy,
		CreatedAt:         org.CreatedAt,
		UpdatedAt:         org.UpdatedAt,
	}
}

// ToOrganizationSummaryDTO converts an organization summary to DTO
func ToOrganizationSummaryDTO(summary services.OrganizationSummary) OrganizationSummaryDTO {
	out := OrganizationSummaryDTO{
		OrganizationDTO: ToOrganizationDTO(summary.Organization),
		UserCount:       summary.UserCount,
	}
	if summary.Dealer != nil {
		dealer := ToUserSummaryDTO(*summary.Dealer)
		out.Dealer = &dealer
	}
	return out
}

// ToAssignmentDTOs converts a user's assignments to DTOs
func ToAssignmentDTOs(assignments []models.Assignment) []AssignmentDTO {
	out := make([]AssignmentDTO, len(assignments))
	for i, assignment := range assignments {
		out[i] = AssignmentDTO{
			Organization: ToOrganizationRefDTO(assignment.Organization),
			AssignedAt:   assignment.AssignedAt,
			AssignedBy:   assignment.AssignedBy,
		}
	}
	return out
}
