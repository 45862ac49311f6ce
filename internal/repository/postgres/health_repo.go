package postgres

import (
	"context"

	"github.com/and161185/universal-api/internal/errs"
)

// HealthRepo probes the database.
type HealthRepo struct{ db *DB }

// NewHealthRepo constructs a health repository.
func NewHealthRepo(db *DB) *HealthRepo { return &HealthRepo{db: db} }

// Ping runs a trivial statement against the pool.
func (r *HealthRepo) Ping(ctx context.Context) error {
	_, err := r.db.Pool.Exec(ctx, `SELECT 1`)
	return errs.Storage("health.ping", err)
}
