// Package invites handles staff and parent onboarding through emailed
// single-use tokens.
package invites

import "time"

// Statuses an invite moves through. Expired is derived, not stored.
const (
	StatusPending  = "pending"
	StatusAccepted = "accepted"
	StatusRevoked  = "revoked"
)

// InviteTTL is how long a token stays usable.
const InviteTTL = 7 * 24 * time.Hour

// Invite is one outstanding onboarding token.
type Invite struct {
	ID        int64
	Email     string
	Role      string
	Token     string
	Status    string
	InvitedBy int64
	ExpiresAt time.Time
	CreatedAt time.Time
}

// Expired reports whether the token is past its expiry.
func (i Invite) Expired(now time.Time) bool {
	return now.After(i.ExpiresAt)
}

// Usable reports whether the invite can still be accepted.
func (i Invite) Usable(now time.Time) bool {
	return i.Status == StatusPending && !i.Expired(now)
}
