package limiter

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/and161185/universal-api/internal/errs"
)

// PG is a PostgreSQL-backed limiter implementation with sliding window and lockout.
type PG struct {
	pool pgxQuerier
	set  Settings
	now  func() time.Time
}

type pgxQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// NewPG constructs a PostgreSQL-backed limiter over a pool or any compatible querier.
func NewPG(q pgxQuerier, set Settings) *PG {
	return &PG{pool: q, set: set, now: time.Now}
}

// Allow reports whether the client is currently allowed and a retry-after duration.
func (l *PG) Allow(ctx context.Context, clientHash []byte) (bool, time.Duration, error) {
	const q = `SELECT blocked_until FROM auth_lockout WHERE client_hash=$1`
	var blockedUntil time.Time
	err := l.pool.QueryRow(ctx, q, clientHash).Scan(&blockedUntil)
	switch {
	case err == nil:
		if now := l.now(); blockedUntil.After(now) {
			return false, blockedUntil.Sub(now), nil
		}
		return true, 0, nil
	case errors.Is(err, pgx.ErrNoRows):
		return true, 0, nil
	default:
		return false, 0, errs.Storage("auth_lockout.allow", err)
	}
}

// Failure records a failed attempt; may set a block until a future time.
// Counts older than the window restart at one.
func (l *PG) Failure(ctx context.Context, clientHash []byte) (bool, time.Duration, error) {
	const q = `
INSERT INTO auth_lockout (client_hash, fail_count, blocked_until, updated_at)
VALUES ($1,1,'epoch',now())
ON CONFLICT (client_hash) DO UPDATE
SET
  fail_count = CASE WHEN EXCLUDED.updated_at - auth_lockout.updated_at > $2::interval THEN 1 ELSE auth_lockout.fail_count + 1 END,
  updated_at = now()
RETURNING fail_count`
	var fails int
	if err := l.pool.QueryRow(ctx, q, clientHash, l.set.Window).Scan(&fails); err != nil {
		return false, 0, errs.Storage("auth_lockout.failure", err)
	}
	if fails < l.set.MaxFails {
		return false, 0, nil
	}

	blockUntil := l.now().Add(l.set.BlockFor)
	const upd = `UPDATE auth_lockout SET blocked_until=$2, fail_count=0 WHERE client_hash=$1`
	if _, err := l.pool.Exec(ctx, upd, clientHash, blockUntil); err != nil {
		return false, 0, errs.Storage("auth_lockout.block", err)
	}
	return true, l.set.BlockFor, nil
}
