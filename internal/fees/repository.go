package fees

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-sms/meridian-sms/internal/shared"
)

// Repository provides PostgreSQL backed persistence for fees.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// FeeItems lists the charges for a term, optionally filtered by class.
func (r *Repository) FeeItems(ctx context.Context, termID, classID int64) ([]FeeItem, error) {
	query := `
		SELECT f.id, f.term_id, f.class_id, c.name, f.title, f.amount_kobo, f.created_at
		FROM fee_items f JOIN classes c ON c.id = f.class_id
		WHERE f.term_id = $1`
	args := []any{termID}
	if classID != 0 {
		query += ` AND f.class_id = $2`
		args = append(args, classID)
	}
	query += ` ORDER BY c.name, f.title`
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []FeeItem
	for rows.Next() {
		var f FeeItem
		if err := rows.Scan(&f.ID, &f.TermID, &f.ClassID, &f.ClassName, &f.Title, &f.Amount, &f.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// CreateFeeItem inserts a charge.
func (r *Repository) CreateFeeItem(ctx context.Context, f FeeItem) (FeeItem, error) {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO fee_items (term_id, class_id, title, amount_kobo, created_at)
		VALUES ($1, $2, $3, $4, NOW()) RETURNING id, created_at`,
		f.TermID, f.ClassID, f.Title, f.Amount).Scan(&f.ID, &f.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return FeeItem{}, shared.ErrDuplicate
		}
		return FeeItem{}, err
	}
	return f, nil
}

// DeleteFeeItem removes a charge.
func (r *Repository) DeleteFeeItem(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM fee_items WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// RecordPayment inserts a payment row.
func (r *Repository) RecordPayment(ctx context.Context, p Payment) (Payment, error) {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO fee_payments (student_id, amount_kobo, method, reference, received_by, received_at)
		VALUES ($1, $2, $3, $4, $5, NOW()) RETURNING id, received_at`,
		p.StudentID, p.Amount, p.Method, p.Reference, p.ReceivedBy).Scan(&p.ID, &p.ReceivedAt)
	if err != nil {
		return Payment{}, err
	}
	return p, nil
}

// StudentLedger assembles a student's charges and payments for a term.
func (r *Repository) StudentLedger(ctx context.Context, studentID, termID int64) (Ledger, error) {
	var ledger Ledger
	ledger.StudentID = studentID

	var classID int64
	err := r.pool.QueryRow(ctx, `
		SELECT first_name || ' ' || last_name, COALESCE(class_id, 0)
		FROM students WHERE id = $1`, studentID).
		Scan(&ledger.StudentName, &classID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Ledger{}, shared.ErrNotFound
		}
		return Ledger{}, err
	}

	ledger.Items, err = r.FeeItems(ctx, termID, classID)
	if err != nil {
		return Ledger{}, err
	}
	for _, item := range ledger.Items {
		ledger.Charged += item.Amount
	}

	rows, err := r.pool.Query(ctx, `
		SELECT id, student_id, amount_kobo, method, reference, received_by, received_at
		FROM fee_payments WHERE student_id = $1
		ORDER BY received_at DESC`, studentID)
	if err != nil {
		return Ledger{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var p Payment
		if err := rows.Scan(&p.ID, &p.StudentID, &p.Amount, &p.Method, &p.Reference, &p.ReceivedBy, &p.ReceivedAt); err != nil {
			return Ledger{}, err
		}
		ledger.Payments = append(ledger.Payments, p)
		ledger.Paid += p.Amount
	}
	return ledger, rows.Err()
}

// Debtors lists students with an outstanding balance for a term.
func (r *Repository) Debtors(ctx context.Context, termID int64) ([]Ledger, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT s.id, s.first_name || ' ' || s.last_name,
		       COALESCE(fi.charged, 0), COALESCE(fp.paid, 0)
		FROM students s
		LEFT JOIN (
			SELECT c.id AS class_id, SUM(f.amount_kobo) AS charged
			FROM classes c JOIN fee_items f ON f.class_id = c.id AND f.term_id = $1
			GROUP BY c.id
		) fi ON fi.class_id = s.class_id
		LEFT JOIN (
			SELECT student_id, SUM(amount_kobo) AS paid
			FROM fee_payments GROUP BY student_id
		) fp ON fp.student_id = s.id
		WHERE s.is_active AND COALESCE(fi.charged, 0) > COALESCE(fp.paid, 0)
		ORDER BY s.last_name, s.first_name`, termID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Ledger
	for rows.Next() {
		var l Ledger
		if err := rows.Scan(&l.StudentID, &l.StudentName, &l.Charged, &l.Paid); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}
