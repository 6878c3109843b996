// Package users manages accounts and their coarse role assignments.
package users

import (
	"time"

	"github.com/meridian-sms/meridian-sms/internal/authz"
)

// User is one account with its assigned roles.
type User struct {
	ID        int64
	Email     string
	FullName  string
	IsActive  bool
	Roles     []authz.Role
	CreatedAt time.Time
}

// HasRole reports whether the account carries a role.
func (u User) HasRole(role authz.Role) bool {
	for _, r := range u.Roles {
		if r == role {
			return true
		}
	}
	return false
}
