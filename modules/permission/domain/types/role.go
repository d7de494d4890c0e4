package types

import "strings"

// Role is the closed set of principal roles the permission engine knows about.
type Role string

const (
	RoleUser       Role = "user"
	RoleModerator  Role = "moderator"
	RoleAdmin      Role = "admin"
	RoleSuperAdmin Role = "super_admin"
)

// RoleAny is the rule-side sentinel meaning "any role". It is never a
// principal's role; it only appears inside AccessRule.Role.
const RoleAny Role = "any"

// Level maps a role to its rank in the hierarchy. Unknown roles map to 0,
// the same rank as a plain user: a typo'd role silently ranks lowest
// rather than failing. Tests pin this behavior.
func (r Role) Level() int {
	switch r {
	case RoleUser:
		return 0
	case RoleModerator:
		return 1
	case RoleAdmin:
		return 2
	case RoleSuperAdmin:
		return 3
	default:
		return 0
	}
}

// Known reports whether r is one of the four canonical roles.
func (r Role) Known() bool {
	switch r {
	case RoleUser, RoleModerator, RoleAdmin, RoleSuperAdmin:
		return true
	default:
		return false
	}
}

// ParseRole normalizes and validates a raw role string.
func ParseRole(raw string) (Role, bool) {
	role := Role(strings.ToLower(strings.TrimSpace(raw)))
	return role, role.Known()
}
