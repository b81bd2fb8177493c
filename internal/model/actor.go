package model

import "strings"

// Role is the capability class of an authenticated caller.
type Role string

const (
	RoleCustomer Role = "CUSTOMER"
	RoleSeller   Role = "SELLER"
	RoleAdmin    Role = "ADMIN"
)

// ParseRole normalises a role claim.  Unknown roles report false.
func ParseRole(s string) (Role, bool) {
	switch r := Role(strings.ToUpper(strings.TrimSpace(s))); r {
	case RoleCustomer, RoleSeller, RoleAdmin:
		return r, true
	}
	return "", false
}

// Actor is the authenticated caller, resolved once from the access token at
// the HTTP boundary and passed explicitly into the core.
type Actor struct {
	ID   uint64
	Role Role
}

func (a Actor) IsCustomer() bool { return a.Role == RoleCustomer && a.ID != 0 }
func (a Actor) IsSeller() bool   { return a.Role == RoleSeller && a.ID != 0 }
func (a Actor) IsAdmin() bool    { return a.Role == RoleAdmin && a.ID != 0 }
