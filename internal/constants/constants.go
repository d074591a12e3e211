package constants

import "time"

// Session and context keys
const (
	SessionCookieName        = "console_session"
	ContextKeyUserID         = "user_id"
	ContextKeyUser           = "current_user"
	ContextKeyLogger         = "logger"
	ContextKeyOrganizationID = "organization_id"
	HeaderRequestID          = "X-Request-ID"
)

// Pagination
const (
	MinPageSize     = 1
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Credentials
const (
	MinPasswordLength = 8
	MinUsernameLength = 3
	MaxUsernameLength = 50
)

// Invitations
const (
	DefaultInvitationTTL = 7 * 24 * time.Hour
	InvitationPathPrefix = "/invite/"
)

// Assignments
const (
	DefaultSetDealerMaxRetries = 5
)
