package domain

import "time"

type User struct {
	ID           string
	Email        string // stored lower-cased
	PasswordHash string // argon2id PHC
	Name         string
	Company      string
	Phone        string
	ChamberID    string // "" when the user has no chamber
	Role         Role

	Active    bool
	Suspended bool
	Approved  bool

	ApprovedAt  *time.Time
	ApprovedBy  string
	SuspendedAt *time.Time
	SuspendedBy string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// CanSignIn reports whether the account is usable at all. Pending approval
// is checked separately because it has its own error.
func (u User) CanSignIn() bool { return u.Active && !u.Suspended }
