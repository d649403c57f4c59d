// Package authz holds the static role/permission model and the normalized
// per-request AuthContext. The permission table is the single source of
// truth; there are no dynamic grants.
package authz

import (
	"fmt"

	dErrors "agentgate/pkg/domain-errors"
)

// Role is one of the four ranked organization roles, plus guest for
// unauthenticated access. Ranking: owner > admin > member > viewer > guest.
type Role string

const (
	RoleOwner  Role = "owner"
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
	RoleViewer Role = "viewer"
	RoleGuest  Role = "guest"
)

// Wildcard grants every permission. Only the system context carries it.
const Wildcard = "*"

// Permission is a {resource, actions} tuple.
type Permission struct {
	Resource string
	Actions  []string
}

// roleRank orders roles for comparison. Unknown roles rank below guest.
var roleRank = map[Role]int{
	RoleOwner:  4,
	RoleAdmin:  3,
	RoleMember: 2,
	RoleViewer: 1,
	RoleGuest:  0,
}

// permissionTable maps each role to its fixed permission tuples.
var permissionTable = map[Role][]Permission{
	RoleOwner: {
		{Resource: "agents", Actions: []string{"read", "create", "update", "delete"}},
		{Resource: "billing", Actions: []string{"read", "update"}},
		{Resource: "organization", Actions: []string{"read", "update", "delete"}},
		{Resource: "members", Actions: []string{"read", "create", "update", "delete"}},
		{Resource: "api_keys", Actions: []string{"read", "create", "update", "delete"}},
		{Resource: "public", Actions: []string{"read"}},
	},
	RoleAdmin: {
		{Resource: "agents", Actions: []string{"read", "create", "update", "delete"}},
		{Resource: "billing", Actions: []string{"read"}},
		{Resource: "organization", Actions: []string{"read", "update"}},
		{Resource: "members", Actions: []string{"read", "create", "update"}},
		{Resource: "api_keys", Actions: []string{"read", "create", "update", "delete"}},
		{Resource: "public", Actions: []string{"read"}},
	},
	RoleMember: {
		{Resource: "agents", Actions: []string{"read", "create", "update"}},
		{Resource: "organization", Actions: []string{"read"}},
		{Resource: "members", Actions: []string{"read"}},
		{Resource: "api_keys", Actions: []string{"read"}},
		{Resource: "public", Actions: []string{"read"}},
	},
	RoleViewer: {
		{Resource: "agents", Actions: []string{"read"}},
		{Resource: "organization", Actions: []string{"read"}},
		{Resource: "members", Actions: []string{"read"}},
		{Resource: "public", Actions: []string{"read"}},
	},
	RoleGuest: {
		{Resource: "public", Actions: []string{"read"}},
	},
}

// ParseRole normalizes a role string. Unknown or empty roles become guest so
// a corrupt claim can never escalate.
func ParseRole(s string) Role {
	role := Role(s)
	if _, ok := roleRank[role]; !ok {
		return RoleGuest
	}
	return role
}

// AtLeast reports whether r ranks at or above other.
func (r Role) AtLeast(other Role) bool {
	return roleRank[r] >= roleRank[other]
}

// IsAdmin reports whether the role carries administrative rights.
func (r Role) IsAdmin() bool {
	return r == RoleOwner || r == RoleAdmin
}

// Permissions returns the role's permission tuples.
func Permissions(role Role) []Permission {
	return permissionTable[role]
}

// Capabilities flattens a role into resource:action capability strings.
func Capabilities(role Role) []string {
	tuples := permissionTable[role]
	caps := make([]string, 0, len(tuples)*2)
	for _, p := range tuples {
		for _, action := range p.Actions {
			caps = append(caps, p.Resource+":"+action)
		}
	}
	return caps
}

// HasPermission reports whether role may perform action on resource.
// Unknown roles have no permissions.
func HasPermission(role Role, resource, action string) bool {
	for _, p := range permissionTable[role] {
		if p.Resource != resource {
			continue
		}
		for _, a := range p.Actions {
			if a == action {
				return true
			}
		}
	}
	return false
}

// RequirePermission fails with a forbidden error naming the missing
// capability when the role lacks it.
func RequirePermission(role Role, resource, action string) error {
	if !HasPermission(role, resource, action) {
		return dErrors.New(dErrors.CodeForbidden,
			fmt.Sprintf("role %q lacks permission %s:%s", role, resource, action))
	}
	return nil
}
