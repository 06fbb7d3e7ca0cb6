package branch

import (
	"context"
	"database/sql"
	"errors"
)

// PostgresRepo implements Repository on database/sql (pgx stdlib driver).
// Assumed tables: branches, branch_slots.
type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo { return &PostgresRepo{db: db} }

func (r *PostgresRepo) GetBranch(ctx context.Context, id string) (Branch, error) {
	const q = `SELECT id, name, city, active, created_at, updated_at FROM branches WHERE id = $1`
	var b Branch
	err := r.db.QueryRowContext(ctx, q, id).Scan(&b.ID, &b.Name, &b.City, &b.Active, &b.CreatedAt, &b.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Branch{}, ErrNotFound
	}
	return b, err
}

func (r *PostgresRepo) InsertBranch(ctx context.Context, b Branch) error {
	const q = `
INSERT INTO branches (id, name, city, active, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6)
`
	_, err := r.db.ExecContext(ctx, q, b.ID, b.Name, b.City, b.Active, b.CreatedAt, b.UpdatedAt)
	return err
}

func (r *PostgresRepo) ListBranches(ctx context.Context) ([]Branch, error) {
	const q = `SELECT id, name, city, active, created_at, updated_at FROM branches ORDER BY name`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Branch, 0)
	for rows.Next() {
		var b Branch
		if err := rows.Scan(&b.ID, &b.Name, &b.City, &b.Active, &b.CreatedAt, &b.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (r *PostgresRepo) GetSlot(ctx context.Context, id string) (Slot, error) {
	const q = `
SELECT id, branch_id, starts_at, ends_at, capacity, remaining, created_at, updated_at
FROM branch_slots WHERE id = $1
`
	var s Slot
	err := r.db.QueryRowContext(ctx, q, id).Scan(&s.ID, &s.BranchID, &s.StartsAt, &s.EndsAt, &s.Capacity, &s.Remaining, &s.CreatedAt, &s.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Slot{}, ErrNotFound
	}
	return s, err
}

func (r *PostgresRepo) InsertSlot(ctx context.Context, s Slot) error {
	const q = `
INSERT INTO branch_slots (id, branch_id, starts_at, ends_at, capacity, remaining, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
`
	_, err := r.db.ExecContext(ctx, q, s.ID, s.BranchID, s.StartsAt, s.EndsAt, s.Capacity, s.Remaining, s.CreatedAt, s.UpdatedAt)
	return err
}

func (r *PostgresRepo) ListSlots(ctx context.Context, branchID string) ([]Slot, error) {
	const q = `
SELECT id, branch_id, starts_at, ends_at, capacity, remaining, created_at, updated_at
FROM branch_slots WHERE branch_id = $1 ORDER BY starts_at
`
	rows, err := r.db.QueryContext(ctx, q, branchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Slot, 0)
	for rows.Next() {
		var s Slot
		if err := rows.Scan(&s.ID, &s.BranchID, &s.StartsAt, &s.EndsAt, &s.Capacity, &s.Remaining, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *PostgresRepo) DecrementSlot(ctx context.Context, branchID, slotID string) error {
	// Conditional decrement: concurrent bookings cannot oversell.
	const q = `
UPDATE branch_slots
SET remaining = remaining - 1, updated_at = now()
WHERE id = $1 AND branch_id = $2 AND remaining > 0
`
	res, err := r.db.ExecContext(ctx, q, slotID, branchID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		if _, getErr := r.GetSlot(ctx, slotID); errors.Is(getErr, ErrNotFound) {
			return ErrNotFound
		}
		return ErrSlotFull
	}
	return nil
}
