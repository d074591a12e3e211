package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Authentication results
const (
	ResultSuccess            = "success"
	ResultInvalidCredentials = "invalid_credentials"
	ResultRoleNotAuthorized  = "role_not_authorized"
	ResultError              = "error"
)

var (
	// AuthAttemptCounter counts credential checks by entry point and result
	AuthAttemptCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_attempts_total",
			Help: "Total number of credential checks by endpoint and result",
		},
		[]string{"endpoint", "result"}, // endpoint is "console" or "external"
	)

	// PasswordRehashCounter counts legacy digests upgraded on login
	PasswordRehashCounter = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "auth_password_rehash_total",
			Help: "Total number of stored credential digests upgraded on login",
		},
	)

	// InvitationEventCounter counts invitation lifecycle events
	InvitationEventCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "invitation_events_total",
			Help: "Total number of invitation lifecycle events",
		},
		[]string{"event"}, // created, superseded, expired, accepted, accept_rejected
	)

	// DealerChangeCounter counts dealer reassignments by outcome
	DealerChangeCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "organization_dealer_changes_total",
			Help: "Total number of dealer reassignments by outcome",
		},
		[]string{"outcome"}, // assigned, cleared, unchanged, conflict_retry, failed
	)
)

// RecordAuthAttempt increments the authentication counter.
func RecordAuthAttempt(endpoint, result string) {
	AuthAttemptCounter.WithLabelValues(endpoint, result).Inc()
}

// RecordInvitationEvent increments the invitation counter by n.
func RecordInvitationEvent(event string, n int64) {
	if n <= 0 {
		return
	}
	InvitationEventCounter.WithLabelValues(event).Add(float64(n))
}

// RecordDealerChange increments the dealer change counter.
func RecordDealerChange(outcome string) {
	DealerChangeCounter.WithLabelValues(outcome).Inc()
}
