package domain

import "fmt"

// Role is a closed enumeration of viewer tiers and operator roles.
type Role string

// Viewer roles, lowest to highest.
const (
	RoleNonUser  Role = "nonUser"
	RoleNormal   Role = "normal"
	RoleBronze   Role = "bronze"
	RoleSilver   Role = "silver"
	RoleGold     Role = "gold"
	RolePlatinum Role = "platinum"
	RoleDiamond  Role = "diamond"
)

// Operator roles bypass every viewer-tier requirement.
const (
	RoleCast       Role = "cast"
	RoleAdmin      Role = "admin"
	RoleSuperAdmin Role = "superAdmin"
)

// ViewerRoles lists the viewer hierarchy in ascending order.
var ViewerRoles = []Role{
	RoleNonUser,
	RoleNormal,
	RoleBronze,
	RoleSilver,
	RoleGold,
	RolePlatinum,
	RoleDiamond,
}

// ParseRole converts a wire string into a Role.
func ParseRole(s string) (Role, error) {
	r := Role(s)
	if !r.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownRole, s)
	}
	return r, nil
}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	if r.IsOperator() {
		return true
	}
	_, ok := r.ordinal()
	return ok
}

// IsOperator reports whether r is cast, admin or superAdmin.
func (r Role) IsOperator() bool {
	switch r {
	case RoleCast, RoleAdmin, RoleSuperAdmin:
		return true
	case RoleNonUser, RoleNormal, RoleBronze, RoleSilver, RoleGold, RolePlatinum, RoleDiamond:
		return false
	}
	return false
}

// ordinal returns the position of a viewer role in the hierarchy.
// Operators and unknown roles have no position.
func (r Role) ordinal() (int, bool) {
	switch r {
	case RoleNonUser:
		return 0, true
	case RoleNormal:
		return 1, true
	case RoleBronze:
		return 2, true
	case RoleSilver:
		return 3, true
	case RoleGold:
		return 4, true
	case RolePlatinum:
		return 5, true
	case RoleDiamond:
		return 6, true
	case RoleCast, RoleAdmin, RoleSuperAdmin:
		return 0, false
	}
	return 0, false
}

func (r Role) String() string {
	return string(r)
}

// IsRoleAtLeast reports whether candidate satisfies a required role.
// Operators always pass. A requirement that is itself an operator role
// (or unknown) can only be met by an operator.
func IsRoleAtLeast(candidate, required Role) bool {
	if candidate.IsOperator() {
		return true
	}
	c, ok := candidate.ordinal()
	if !ok {
		return false
	}
	r, ok := required.ordinal()
	if !ok {
		return false
	}
	return c >= r
}

// AllowedRolesAtOrAbove returns the viewer roles in [required, diamond],
// ascending. It is the exact key set an expiration map must carry.
func AllowedRolesAtOrAbove(required Role) []Role {
	start, ok := required.ordinal()
	if !ok {
		return nil
	}
	roles := make([]Role, len(ViewerRoles)-start)
	copy(roles, ViewerRoles[start:])
	return roles
}
