package domain

import "time"

// ResetToken is the single outstanding password reset code of a user.
// ExpiresAt is kept as stored so a corrupt value can be told apart from an
// expired one.
type ResetToken struct {
	UserID    string
	CodeHash  string
	CreatedAt time.Time
	ExpiresAt string
	UsedAt    *time.Time
}

// Expiry parses ExpiresAt.
func (t ResetToken) Expiry() (time.Time, error) {
	return time.Parse(time.RFC3339, t.ExpiresAt)
}

// Used reports whether the code has been consumed.
func (t ResetToken) Used() bool { return t.UsedAt != nil }

// ResetOutcome labels a row of the reset attempt log.
type ResetOutcome string

const (
	OutcomeNoMatch        ResetOutcome = "no_match"
	OutcomeInactive       ResetOutcome = "inactive"
	OutcomeRateLimited    ResetOutcome = "rate_limited"
	OutcomeNoEmail        ResetOutcome = "no_email"
	OutcomeDeliveryFailed ResetOutcome = "delivery_failed"
	OutcomeSent           ResetOutcome = "sent"
	OutcomeAdminIssued    ResetOutcome = "admin_issued"
	OutcomeVerified       ResetOutcome = "verified"
	OutcomeVerifyFailed   ResetOutcome = "verify_failed"
	OutcomeCompleted      ResetOutcome = "completed"
)

// ResetAttempt is one append-only audit entry. It never holds the claims a
// requester typed, only what happened.
type ResetAttempt struct {
	ID        string
	UserID    string // "" when nobody matched
	Outcome   ResetOutcome
	Score     *float64
	CreatedAt time.Time
}

// TimestampLayout is how every timestamp is persisted: UTC with fixed-width
// microseconds, so stored strings sort in time order.
const TimestampLayout = "2006-01-02T15:04:05.000000Z07:00"

// FormatTimestamp renders t in TimestampLayout.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}
