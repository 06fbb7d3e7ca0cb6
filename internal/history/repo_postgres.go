package history

import (
	"context"
	"database/sql"
)

// PostgresRepo implements Repository on database/sql (pgx stdlib driver).
// Assumed table: lead_status_history, INSERT-only.
type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo { return &PostgresRepo{db: db} }

func (r *PostgresRepo) Append(ctx context.Context, e Entry) error {
	const q = `
INSERT INTO lead_status_history (id, lead_id, from_status, to_status, actor_id, note, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7)
`
	_, err := r.db.ExecContext(ctx, q, e.ID, e.LeadID, e.FromStatus, e.ToStatus, e.ActorID, e.Note, e.CreatedAt)
	return err
}

func (r *PostgresRepo) ListByLead(ctx context.Context, leadID string, limit int) ([]Entry, error) {
	const q = `
SELECT id, lead_id, from_status, to_status, actor_id, note, created_at
FROM lead_status_history
WHERE lead_id = $1
ORDER BY created_at
LIMIT $2
`
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.db.QueryContext(ctx, q, leadID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Entry, 0)
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.LeadID, &e.FromStatus, &e.ToStatus, &e.ActorID, &e.Note, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
