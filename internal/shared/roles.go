package shared

import "strings"

// Role is the server-side role of a signed-in user.
type Role string

const (
	RoleOwner Role = "owner"
	RoleStaff Role = "staff"
	RoleAdmin Role = "admin"
)

// ParseRole validates a role name.
func ParseRole(raw string) (Role, bool) {
	switch r := Role(strings.ToLower(strings.TrimSpace(raw))); r {
	case RoleOwner, RoleStaff, RoleAdmin:
		return r, true
	default:
		return "", false
	}
}

// Role sets guarding each back-office area.
var (
	OperationsRoles = []Role{RoleOwner, RoleStaff}
	AnalyticsRoles  = []Role{RoleOwner, RoleAdmin}
)
