package lead

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// PostgresRepo implements Repository on database/sql (pgx stdlib driver).
//
// Assumed table: leads. Conditional UPDATE predicates are the atomicity
// boundary; the store's row-level semantics serialize concurrent claimants.
// Empty strings are stored for unassigned leads to keep the claim predicate a
// simple equality (assigned_to = '').
type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo { return &PostgresRepo{db: db} }

const leadColumns = `
id, name, phone, source, status,
assigned_to, assigned_at, cooldown_until,
total_attempts, period1_attempts, period2_attempts, period3_attempts,
last_contact_period, last_contact_at, callback_at,
is_duplicate, duplicate_of, note, created_at, updated_at
`

func scanLead(row interface{ Scan(...any) error }) (Lead, error) {
	var (
		l                                       Lead
		assignedAt, cooldown, lastContact, cbAt sql.NullTime
		period                                  int
	)
	err := row.Scan(
		&l.ID, &l.Name, &l.Phone, &l.Source, &l.Status,
		&l.AssignedTo, &assignedAt, &cooldown,
		&l.TotalAttempts, &l.Period1Attempts, &l.Period2Attempts, &l.Period3Attempts,
		&period, &lastContact, &cbAt,
		&l.IsDuplicate, &l.DuplicateOf, &l.Note, &l.CreatedAt, &l.UpdatedAt,
	)
	if err != nil {
		return Lead{}, err
	}
	l.LastContactPeriod = Period(period)
	if assignedAt.Valid {
		l.AssignedAt = assignedAt.Time
	}
	if cooldown.Valid {
		l.CooldownUntil = cooldown.Time
	}
	if lastContact.Valid {
		l.LastContactAt = lastContact.Time
	}
	if cbAt.Valid {
		l.CallbackAt = cbAt.Time
	}
	return l, nil
}

func nullTime(t time.Time) sql.NullTime {
	if t.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t, Valid: true}
}

func (r *PostgresRepo) Get(ctx context.Context, id string) (Lead, error) {
	const q = `SELECT ` + leadColumns + ` FROM leads WHERE id = $1`
	l, err := scanLead(r.db.QueryRowContext(ctx, q, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Lead{}, ErrNotFound
	}
	return l, err
}

func (r *PostgresRepo) Insert(ctx context.Context, l Lead) error {
	const q = `
INSERT INTO leads (` + leadColumns + `)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20)
`
	_, err := r.db.ExecContext(ctx, q,
		l.ID, l.Name, l.Phone, l.Source, l.Status,
		l.AssignedTo, nullTime(l.AssignedAt), nullTime(l.CooldownUntil),
		l.TotalAttempts, l.Period1Attempts, l.Period2Attempts, l.Period3Attempts,
		int(l.LastContactPeriod), nullTime(l.LastContactAt), nullTime(l.CallbackAt),
		l.IsDuplicate, l.DuplicateOf, l.Note, l.CreatedAt, l.UpdatedAt,
	)
	return err
}

func (r *PostgresRepo) FindByPhone(ctx context.Context, normalizedPhone string) (Lead, bool, error) {
	const q = `SELECT ` + leadColumns + ` FROM leads WHERE phone = $1 ORDER BY created_at LIMIT 1`
	l, err := scanLead(r.db.QueryRowContext(ctx, q, normalizedPhone))
	if errors.Is(err, sql.ErrNoRows) {
		return Lead{}, false, nil
	}
	if err != nil {
		return Lead{}, false, err
	}
	return l, true, nil
}

func (r *PostgresRepo) ListByStatus(ctx context.Context, status Status, limit int) ([]Lead, error) {
	const q = `SELECT ` + leadColumns + ` FROM leads WHERE status = $1 ORDER BY created_at LIMIT $2`
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.db.QueryContext(ctx, q, status, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Lead, 0)
	for rows.Next() {
		l, err := scanLead(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (r *PostgresRepo) Claim(ctx context.Context, id, agentID string, now time.Time) (Lead, error) {
	// Single conditional update: exactly one concurrent claimant wins.
	const q = `
UPDATE leads
SET assigned_to = $2, assigned_at = $3, updated_at = $3
WHERE id = $1
  AND assigned_to = ''
  AND status IN ('fresh','call_back','thinking')
  AND (cooldown_until IS NULL OR cooldown_until <= $3)
RETURNING ` + leadColumns
	l, err := scanLead(r.db.QueryRowContext(ctx, q, id, agentID, now))
	if errors.Is(err, sql.ErrNoRows) {
		// Distinguish "gone" from "lost the race".
		if _, getErr := r.Get(ctx, id); errors.Is(getErr, ErrNotFound) {
			return Lead{}, ErrNotFound
		}
		return Lead{}, ErrClaimed
	}
	return l, err
}

func (r *PostgresRepo) AcquireNext(ctx context.Context, agentID string, now time.Time) (Lead, error) {
	// SKIP LOCKED keeps two concurrent pool draws from selecting the same
	// candidate row; preference order Fresh, CallBack, Thinking.
	const q = `
UPDATE leads
SET assigned_to = $1, assigned_at = $2, updated_at = $2
WHERE id = (
  SELECT id FROM leads
  WHERE assigned_to = ''
    AND status IN ('fresh','call_back','thinking')
    AND (cooldown_until IS NULL OR cooldown_until <= $2)
  ORDER BY CASE status WHEN 'fresh' THEN 0 WHEN 'call_back' THEN 1 ELSE 2 END, created_at
  LIMIT 1
  FOR UPDATE SKIP LOCKED
)
RETURNING ` + leadColumns
	l, err := scanLead(r.db.QueryRowContext(ctx, q, agentID, now))
	if errors.Is(err, sql.ErrNoRows) {
		return Lead{}, ErrNoneEligible
	}
	return l, err
}

func (r *PostgresRepo) ApplyTransition(ctx context.Context, updated Lead, expectStatus Status, expectAssignee string) error {
	const q = `
UPDATE leads
SET status = $2, assigned_to = $3, assigned_at = $4, cooldown_until = $5,
    total_attempts = $6, period1_attempts = $7, period2_attempts = $8, period3_attempts = $9,
    last_contact_period = $10, last_contact_at = $11, callback_at = $12,
    note = $13, updated_at = $14
WHERE id = $1 AND status = $15 AND assigned_to = $16
`
	res, err := r.db.ExecContext(ctx, q,
		updated.ID, updated.Status, updated.AssignedTo, nullTime(updated.AssignedAt), nullTime(updated.CooldownUntil),
		updated.TotalAttempts, updated.Period1Attempts, updated.Period2Attempts, updated.Period3Attempts,
		int(updated.LastContactPeriod), nullTime(updated.LastContactAt), nullTime(updated.CallbackAt),
		updated.Note, updated.UpdatedAt,
		expectStatus, expectAssignee,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrRace
	}
	return nil
}

func (r *PostgresRepo) CountActiveAssigned(ctx context.Context, agentID string) (int, error) {
	const q = `SELECT COUNT(*) FROM leads WHERE assigned_to = $1 AND status <> 'call_rescheduled'`
	var n int
	err := r.db.QueryRowContext(ctx, q, agentID).Scan(&n)
	return n, err
}

func (r *PostgresRepo) CountSelfRescheduled(ctx context.Context, agentID string) (int, error) {
	const q = `SELECT COUNT(*) FROM leads WHERE assigned_to = $1 AND status = 'call_rescheduled'`
	var n int
	err := r.db.QueryRowContext(ctx, q, agentID).Scan(&n)
	return n, err
}

func (r *PostgresRepo) ReclaimExpired(ctx context.Context, cutoff time.Time) (int, error) {
	const q = `
UPDATE leads
SET assigned_to = '', assigned_at = NULL, status = 'fresh', updated_at = now()
WHERE assigned_to <> ''
  AND status IN ('fresh','call_back','thinking')
  AND assigned_at <= $1
`
	res, err := r.db.ExecContext(ctx, q, cutoff)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

func (r *PostgresRepo) RestoreHibernated(ctx context.Context, cutoff, now time.Time) (int, error) {
	// The status guard makes a repeated sweep a no-op.
	const q = `
UPDATE leads
SET status = 'call_back',
    total_attempts = 0, period1_attempts = 0, period2_attempts = 0, period3_attempts = 0,
    last_contact_period = 0, cooldown_until = NULL,
    assigned_to = '', assigned_at = NULL, updated_at = $2
WHERE status = 'hibernating' AND last_contact_at <= $1
`
	res, err := r.db.ExecContext(ctx, q, cutoff, now)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}
