package authz

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrUnknownRole indicates a stored role string outside the closed Role set.
var ErrUnknownRole = errors.New("unknown role")

// Snapshot is one subject's role assignments as read from the store. Coarse
// roles and named staff roles are independent axes; an account without a
// staff record simply has an empty StaffRoles.
type Snapshot struct {
	Roles      []Role
	StaffRoles []StaffRole
}

// RoleStore loads role assignments for a subject.
type RoleStore interface {
	Load(ctx context.Context, userID int64) (Snapshot, error)
}

// PGRoleStore reads role assignments from PostgreSQL.
type PGRoleStore struct {
	pool *pgxpool.Pool
}

// NewPGRoleStore constructs a PGRoleStore.
func NewPGRoleStore(pool *pgxpool.Pool) *PGRoleStore {
	return &PGRoleStore{pool: pool}
}

// Load fetches coarse roles and staff-role names for the user. Unknown role
// strings are an error, not a silent skip.
func (s *PGRoleStore) Load(ctx context.Context, userID int64) (Snapshot, error) {
	rows, err := s.pool.Query(ctx, `SELECT role FROM user_roles WHERE user_id = $1 ORDER BY role`, userID)
	if err != nil {
		return Snapshot{}, err
	}
	defer rows.Close()
	var raw []string
	for rows.Next() {
		var r string
		if err := rows.Scan(&r); err != nil {
			return Snapshot{}, err
		}
		raw = append(raw, r)
	}
	if err := rows.Err(); err != nil {
		return Snapshot{}, err
	}
	roles, err := ParseRoles(raw)
	if err != nil {
		return Snapshot{}, err
	}

	staffRows, err := s.pool.Query(ctx, `
		SELECT sr.name
		FROM staff st
		JOIN staff_role_assignments a ON a.staff_id = st.id
		JOIN staff_roles sr ON sr.id = a.staff_role_id
		WHERE st.user_id = $1
		ORDER BY sr.name`, userID)
	if err != nil {
		return Snapshot{}, err
	}
	defer staffRows.Close()
	var staffRoles []StaffRole
	for staffRows.Next() {
		var name string
		if err := staffRows.Scan(&name); err != nil {
			return Snapshot{}, err
		}
		staffRoles = append(staffRoles, StaffRole(name))
	}
	if err := staffRows.Err(); err != nil {
		return Snapshot{}, err
	}

	return Snapshot{Roles: roles, StaffRoles: staffRoles}, nil
}

var _ RoleStore = (*PGRoleStore)(nil)

// RetryingStore wraps a RoleStore with a per-attempt timeout and bounded
// retry. Only store fetches retry; permission resolution is local and cannot
// fail. Unknown-role errors are not retried, they are configuration problems.
type RetryingStore struct {
	Inner    RoleStore
	Attempts int
	Timeout  time.Duration
	Backoff  time.Duration
}

// NewRetryingStore applies the default fetch policy: three attempts, five
// second timeout per attempt, backoff doubling from 100ms.
func NewRetryingStore(inner RoleStore) *RetryingStore {
	return &RetryingStore{Inner: inner, Attempts: 3, Timeout: 5 * time.Second, Backoff: 100 * time.Millisecond}
}

// Load retries transient fetch failures with exponential backoff.
func (s *RetryingStore) Load(ctx context.Context, userID int64) (Snapshot, error) {
	attempts := s.Attempts
	if attempts <= 0 {
		attempts = 1
	}
	delay := s.Backoff
	var lastErr error
	for i := 0; i < attempts; i++ {
		attemptCtx := ctx
		var cancel context.CancelFunc
		if s.Timeout > 0 {
			attemptCtx, cancel = context.WithTimeout(ctx, s.Timeout)
		}
		snap, err := s.Inner.Load(attemptCtx, userID)
		if cancel != nil {
			cancel()
		}
		if err == nil {
			return snap, nil
		}
		if errors.Is(err, ErrUnknownRole) {
			return Snapshot{}, err
		}
		lastErr = err
		if i == attempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return Snapshot{}, ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}
	return Snapshot{}, lastErr
}

var _ RoleStore = (*RetryingStore)(nil)
