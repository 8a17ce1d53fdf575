package auth

import (
	"fmt"
	"strings"
)

// Role is the closed set of privilege levels a principal can hold.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleStaff   Role = "staff"
	RoleStudent Role = "student"

	// RoleAnonymous is the policy subject for requests without a principal.
	// It is never stored on a principal.
	RoleAnonymous Role = "anonymous"
)

// DefaultRole is assigned when no role rule matches.
const DefaultRole = RoleStudent

var roleRank = map[Role]int{
	RoleAnonymous: 0,
	RoleStudent:   1,
	RoleStaff:     2,
	RoleAdmin:     3,
}

// Roles lists the assignable roles from most to least privileged.
func Roles() []Role {
	return []Role{RoleAdmin, RoleStaff, RoleStudent}
}

// ParseRole converts s into an assignable Role.
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	if !r.Valid() {
		return "", fmt.Errorf("unknown role %q (expected admin, staff or student)", s)
	}
	return r, nil
}

// Valid reports whether r can be stored on a principal.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleStaff || r == RoleStudent
}

// AtLeast reports whether r is as privileged as other.
func (r Role) AtLeast(other Role) bool {
	return roleRank[r] >= roleRank[other]
}

func (r Role) String() string { return string(r) }
