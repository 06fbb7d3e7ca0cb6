package settings

import (
	"context"
	"database/sql"
	"errors"
)

// PostgresRepo implements Repository on database/sql (pgx stdlib driver).
// Assumed table: settings(key TEXT PRIMARY KEY, numeric_value DOUBLE PRECISION).
type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo { return &PostgresRepo{db: db} }

func (r *PostgresRepo) Get(ctx context.Context, key string) (float64, bool, error) {
	const q = `SELECT numeric_value FROM settings WHERE key = $1`
	var v float64
	err := r.db.QueryRowContext(ctx, q, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return v, true, nil
}

func (r *PostgresRepo) Set(ctx context.Context, key string, value float64) error {
	const q = `
INSERT INTO settings (key, numeric_value)
VALUES ($1, $2)
ON CONFLICT (key) DO UPDATE SET numeric_value = EXCLUDED.numeric_value
`
	_, err := r.db.ExecContext(ctx, q, key, value)
	return err
}
