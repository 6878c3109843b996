// Package audit exposes the admin-facing trail of recorded actions.
package audit

import (
	"context"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Entry is one row of the audit trail, joined with the actor's email.
type Entry struct {
	At         time.Time
	ActorID    int64
	ActorEmail string
	Action     string
	Entity     string
	EntityID   string
	Meta       string
}

// Filters narrows the trail. Zero values mean "any".
type Filters struct {
	Actor    string
	Entity   string
	Action   string
	From     time.Time
	To       time.Time
	Page     int
	PageSize int
}

// Paging carries pagination metadata for the template.
type Paging struct {
	Page     int
	PageSize int
	HasNext  bool
	PrevPage int
	NextPage int
}

// Repository reads audit_logs.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const timelineSelect = `
	SELECT a.occurred_at, a.actor_id, COALESCE(u.email, ''), a.action, a.entity, a.entity_id, COALESCE(a.meta::text, '')
	FROM audit_logs a
	LEFT JOIN users u ON u.id = a.actor_id
	WHERE ($1::timestamptz IS NULL OR a.occurred_at >= $1)
	  AND ($2::timestamptz IS NULL OR a.occurred_at <= $2)
	  AND ($3::text IS NULL OR u.email = $3)
	  AND ($4::text IS NULL OR a.entity = $4)
	  AND ($5::text IS NULL OR a.action = $5)
	ORDER BY a.occurred_at DESC`

// Timeline returns one window of the trail, newest first.
func (r *Repository) Timeline(ctx context.Context, f Filters, limit, offset int) ([]Entry, error) {
	rows, err := r.pool.Query(ctx, timelineSelect+` LIMIT $6 OFFSET $7`,
		optionalTime(f.From), optionalTime(f.To),
		optionalText(f.Actor), optionalText(f.Entity), optionalText(f.Action),
		limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEntries(rows)
}

// TimelineAll returns the whole filtered trail for export.
func (r *Repository) TimelineAll(ctx context.Context, f Filters) ([]Entry, error) {
	rows, err := r.pool.Query(ctx, timelineSelect,
		optionalTime(f.From), optionalTime(f.To),
		optionalText(f.Actor), optionalText(f.Entity), optionalText(f.Action))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEntries(rows)
}

type pgRows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

func scanEntries(rows pgRows) ([]Entry, error) {
	var out []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.At, &e.ActorID, &e.ActorEmail, &e.Action, &e.Entity, &e.EntityID, &e.Meta); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func optionalText(value string) *string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func optionalTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
