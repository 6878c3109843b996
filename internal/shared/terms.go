package shared

import "errors"

// Academic term statuses reused outside the settings module.
const (
	TermStatusUpcoming = "UPCOMING"
	TermStatusActive   = "ACTIVE"
	TermStatusArchived = "ARCHIVED"
)

// ErrInvalidTermTransition indicates a status change not allowed.
var ErrInvalidTermTransition = errors.New("term transition invalid")

// ValidateTermTransition checks term status transitions. Only one direction
// is allowed: upcoming terms activate, active terms archive. Reopening an
// archived term requires an explicit override.
func ValidateTermTransition(current, target string, hasOverride bool) error {
	if current == target {
		return nil
	}
	switch current {
	case TermStatusUpcoming:
		if target == TermStatusActive {
			return nil
		}
	case TermStatusActive:
		if target == TermStatusArchived {
			return nil
		}
	case TermStatusArchived:
		if target == TermStatusActive && hasOverride {
			return nil
		}
	}
	return ErrInvalidTermTransition
}
