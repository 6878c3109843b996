package auth

import "time"

// User is the credential-bearing account row. Profile data lives with the
// users module; auth only needs what sign-in checks.
type User struct {
	ID           int64
	Email        string
	PasswordHash string
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
