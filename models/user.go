package models

import (
	"strings"
	"time"
)

// Role is the authorization tier of a user
type Role string

// Known roles, lowest to highest
const (
	RoleMember  Role = "member"
	RoleOfficer Role = "officer"
	RoleAdmin   Role = "admin"

	// RoleCommand is accepted from clients and tokens and treated as the top of the hierarchy
	RoleCommand Role = "command"
)

var roleRank = map[Role]int{
	RoleMember:  1,
	RoleOfficer: 2,
	RoleAdmin:   3,
}

// ParseRole normalizes a role string. Unknown values return false.
func ParseRole(s string) (Role, bool) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	if r == RoleCommand {
		return RoleAdmin, true
	}
	if _, ok := roleRank[r]; !ok {
		return "", false
	}
	return r, true
}

// HasRole reports whether r is at least min in the role hierarchy
func (r Role) HasRole(min Role) bool {
	if r == RoleCommand {
		r = RoleAdmin
	}
	if min == RoleCommand {
		min = RoleAdmin
	}
	have, ok := roleRank[r]
	if !ok {
		return false
	}
	return have >= roleRank[min]
}

// User holds the structure for the users collection in mongo
type User struct {
	ID           string    `json:"id" bson:"_id"`
	Name         string    `json:"name" bson:"name"`
	Email        string    `json:"email" bson:"email"`
	PasswordHash string    `json:"-" bson:"passwordHash"`
	Role         Role      `json:"role" bson:"role"`
	Unit         string    `json:"unit,omitempty" bson:"unit,omitempty"`
	Phone        string    `json:"phone,omitempty" bson:"phone,omitempty"`
	IsActive     bool      `json:"isActive" bson:"isActive"`
	CreatedAt    time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt" bson:"updatedAt"`
}

// Actor is the authenticated caller of an operation, as produced by the identity gate
type Actor struct {
	UserID string `json:"userId"`
	Name   string `json:"name"`
	Role   Role   `json:"role"`
}

// HasRole reports whether the actor is at least min
func (a Actor) HasRole(min Role) bool {
	return a.Role.HasRole(min)
}

// RolesAtLeast lists every role satisfying min
func RolesAtLeast(min Role) []Role {
	var out []Role
	for _, r := range []Role{RoleMember, RoleOfficer, RoleAdmin} {
		if r.HasRole(min) {
			out = append(out, r)
		}
	}
	return out
}
