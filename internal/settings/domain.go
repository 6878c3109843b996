// Package settings manages the school profile, academic terms and the
// subject catalogue.
package settings

import "time"

// SchoolProfile is the single-row institution record.
type SchoolProfile struct {
	ID        int64
	Name      string
	Motto     *string
	Address   *string
	Phone     *string
	Email     *string
	LogoURL   *string
	UpdatedAt time.Time
}

// Term is one academic term, e.g. "2026/2027 First Term".
type Term struct {
	ID        int64
	Session   string
	Name      string
	StartDate time.Time
	EndDate   time.Time
	Status    string
	CreatedAt time.Time
}

// Subject is one taught subject.
type Subject struct {
	ID   int64
	Name string
	Code string
}
