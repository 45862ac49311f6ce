package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/and161185/universal-api/internal/errs"
	"github.com/and161185/universal-api/internal/model"
)

// MapStateRepo implements MapStateRepository using PostgreSQL.
type MapStateRepo struct{ db *DB }

// NewMapStateRepo constructs a map state repository.
func NewMapStateRepo(db *DB) *MapStateRepo { return &MapStateRepo{db: db} }

const mapStateColumns = `id, user_id, name, state, created_at, updated_at`

func scanMapState(row pgx.Row) (*model.MapState, error) {
	var m model.MapState
	if err := row.Scan(&m.ID, &m.UserID, &m.Name, &m.State, &m.CreatedAt, &m.UpdatedAt); err != nil {
		return nil, err
	}
	return &m, nil
}

// Create inserts a map state.
func (r *MapStateRepo) Create(ctx context.Context, ownerID string, in model.MapStateInput) (*model.MapState, error) {
	const q = `
INSERT INTO map_states (user_id, name, state) VALUES ($1, $2, $3)
RETURNING ` + mapStateColumns
	m, err := scanMapState(r.db.Pool.QueryRow(ctx, q, ownerID, in.Name, in.State))
	if err != nil {
		return nil, errs.Storage("map_states.create", err)
	}
	return m, nil
}

// Get selects a map state by id.
func (r *MapStateRepo) Get(ctx context.Context, id int64) (*model.MapState, error) {
	const q = `SELECT ` + mapStateColumns + ` FROM map_states WHERE id=$1`
	m, err := scanMapState(r.db.Pool.QueryRow(ctx, q, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, errs.Storage("map_states.get", err)
	}
	return m, nil
}

// List selects all map states ordered by id.
func (r *MapStateRepo) List(ctx context.Context) ([]model.MapState, error) {
	const q = `SELECT ` + mapStateColumns + ` FROM map_states ORDER BY id`
	return r.query(ctx, "map_states.list", q)
}

// ListByOwner selects the owner's map states ordered by id.
func (r *MapStateRepo) ListByOwner(ctx context.Context, ownerID string) ([]model.MapState, error) {
	const q = `SELECT ` + mapStateColumns + ` FROM map_states WHERE user_id=$1 ORDER BY id`
	return r.query(ctx, "map_states.list_by_owner", q, ownerID)
}

func (r *MapStateRepo) query(ctx context.Context, op, q string, args ...any) ([]model.MapState, error) {
	rows, err := r.db.Pool.Query(ctx, q, args...)
	if err != nil {
		return nil, errs.Storage(op, err)
	}
	defer rows.Close()

	out := make([]model.MapState, 0)
	for rows.Next() {
		m, err := scanMapState(rows)
		if err != nil {
			return nil, errs.Storage(op, err)
		}
		out = append(out, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, errs.Storage(op, err)
	}
	return out, nil
}

// Update replaces name and state.
func (r *MapStateRepo) Update(ctx context.Context, id int64, in model.MapStateInput) (*model.MapState, error) {
	const q = `
UPDATE map_states SET name=$2, state=$3, updated_at=clock_timestamp()
WHERE id=$1
RETURNING ` + mapStateColumns
	m, err := scanMapState(r.db.Pool.QueryRow(ctx, q, id, in.Name, in.State))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, errs.Storage("map_states.update", err)
	}
	return m, nil
}

// Delete removes a map state by id.
func (r *MapStateRepo) Delete(ctx context.Context, id int64) (bool, error) {
	const q = `DELETE FROM map_states WHERE id=$1`
	tag, err := r.db.Pool.Exec(ctx, q, id)
	if err != nil {
		return false, errs.Storage("map_states.delete", err)
	}
	return tag.RowsAffected() > 0, nil
}
