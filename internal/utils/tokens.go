package utils

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// GenerateInvitationToken returns an unguessable single-use invitation
// token (122 random bits).
func GenerateInvitationToken() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("failed to generate invitation token: %w", err)
	}
	return id.String(), nil
}

// GenerateInviteHashcode returns a standing invite code for consultant and
// auditor accounts.
func GenerateInviteHashcode() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("failed to generate invite hashcode: %w", err)
	}
	return strings.ReplaceAll(id.String(), "-", ""), nil
}

// NormalizeEmail trims and lower-cases an email address for storage and
// comparison.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
