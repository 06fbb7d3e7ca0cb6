package appointment

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// PostgresRepo implements Repository on database/sql (pgx stdlib driver).
// Assumed table: appointments. Session claims are single conditional UPDATEs
// on processing_by; empty string means unclaimed.
type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo { return &PostgresRepo{db: db} }

const apptColumns = `
id, lead_id, branch_id, slot_id, kind, service_interest, follow_up_reason,
booked_by, note, confirmation_status, check_in_status,
processing_by, processing_at, created_at, updated_at
`

func scanAppt(row interface{ Scan(...any) error }) (Appointment, error) {
	var (
		a            Appointment
		processingAt sql.NullTime
	)
	err := row.Scan(
		&a.ID, &a.LeadID, &a.BranchID, &a.SlotID, &a.Kind, &a.ServiceInterest, &a.FollowUpReason,
		&a.BookedBy, &a.Note, &a.ConfirmationStatus, &a.CheckInStatus,
		&a.ProcessingBy, &processingAt, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return Appointment{}, err
	}
	if processingAt.Valid {
		a.ProcessingAt = processingAt.Time
	}
	return a, nil
}

func (r *PostgresRepo) Get(ctx context.Context, id string) (Appointment, error) {
	const q = `SELECT ` + apptColumns + ` FROM appointments WHERE id = $1`
	a, err := scanAppt(r.db.QueryRowContext(ctx, q, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Appointment{}, ErrNotFound
	}
	return a, err
}

func (r *PostgresRepo) Insert(ctx context.Context, a Appointment) error {
	const q = `
INSERT INTO appointments (` + apptColumns + `)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
`
	var processingAt sql.NullTime
	if !a.ProcessingAt.IsZero() {
		processingAt = sql.NullTime{Time: a.ProcessingAt, Valid: true}
	}
	_, err := r.db.ExecContext(ctx, q,
		a.ID, a.LeadID, a.BranchID, a.SlotID, a.Kind, a.ServiceInterest, a.FollowUpReason,
		a.BookedBy, a.Note, a.ConfirmationStatus, a.CheckInStatus,
		a.ProcessingBy, processingAt, a.CreatedAt, a.UpdatedAt,
	)
	return err
}

func (r *PostgresRepo) ListByLead(ctx context.Context, leadID string) ([]Appointment, error) {
	const q = `SELECT ` + apptColumns + ` FROM appointments WHERE lead_id = $1 ORDER BY created_at`
	rows, err := r.db.QueryContext(ctx, q, leadID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Appointment, 0)
	for rows.Next() {
		a, err := scanAppt(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *PostgresRepo) ClaimSession(ctx context.Context, id, agentID string, now time.Time) (Appointment, error) {
	const q = `
UPDATE appointments
SET processing_by = $2, processing_at = $3, updated_at = $3
WHERE id = $1 AND processing_by = ''
RETURNING ` + apptColumns
	a, err := scanAppt(r.db.QueryRowContext(ctx, q, id, agentID, now))
	if errors.Is(err, sql.ErrNoRows) {
		if _, getErr := r.Get(ctx, id); errors.Is(getErr, ErrNotFound) {
			return Appointment{}, ErrNotFound
		}
		return Appointment{}, ErrClaimed
	}
	return a, err
}

func (r *PostgresRepo) RefreshSession(ctx context.Context, id, agentID string, now time.Time) error {
	const q = `
UPDATE appointments
SET processing_at = $3
WHERE id = $1 AND processing_by = $2
`
	res, err := r.db.ExecContext(ctx, q, id, agentID, now)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotHolder
	}
	return nil
}

func (r *PostgresRepo) ReleaseSession(ctx context.Context, id, agentID string) error {
	const q = `
UPDATE appointments
SET processing_by = '', processing_at = NULL, updated_at = now()
WHERE id = $1 AND processing_by = $2
`
	res, err := r.db.ExecContext(ctx, q, id, agentID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotHolder
	}
	return nil
}

func (r *PostgresRepo) FindSessionByAgent(ctx context.Context, agentID string) (Appointment, bool, error) {
	const q = `SELECT ` + apptColumns + ` FROM appointments WHERE processing_by = $1 LIMIT 1`
	a, err := scanAppt(r.db.QueryRowContext(ctx, q, agentID))
	if errors.Is(err, sql.ErrNoRows) {
		return Appointment{}, false, nil
	}
	if err != nil {
		return Appointment{}, false, err
	}
	return a, true, nil
}

func (r *PostgresRepo) SetConfirmation(ctx context.Context, id string, status ConfirmationStatus, now time.Time) error {
	const q = `UPDATE appointments SET confirmation_status = $2, updated_at = $3 WHERE id = $1`
	res, err := r.db.ExecContext(ctx, q, id, status, now)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresRepo) SetCheckIn(ctx context.Context, id string, status CheckInStatus, now time.Time) error {
	const q = `UPDATE appointments SET check_in_status = $2, updated_at = $3 WHERE id = $1`
	res, err := r.db.ExecContext(ctx, q, id, status, now)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
