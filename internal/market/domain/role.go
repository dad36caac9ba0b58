package domain

// Role is the coarse permission level of a user.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleAdmin     Role = "admin"
)

// ParseRole accepts the three known roles.
func ParseRole(s string) (Role, bool) {
	switch r := Role(s); r {
	case RoleUser, RoleAssistant, RoleAdmin:
		return r, true
	}
	return "", false
}

func (r Role) String() string { return string(r) }

// NeedsApproval reports whether new accounts with this role start pending.
func (r Role) NeedsApproval() bool { return r != RoleAdmin }
