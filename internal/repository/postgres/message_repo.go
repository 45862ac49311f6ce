package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/and161185/universal-api/internal/errs"
	"github.com/and161185/universal-api/internal/model"
)

// MessageRepo implements MessageRepository using PostgreSQL.
type MessageRepo struct{ db *DB }

// NewMessageRepo constructs a message repository.
func NewMessageRepo(db *DB) *MessageRepo { return &MessageRepo{db: db} }

const messageColumns = `id, user_id, content, created_at, updated_at`

func scanMessage(row pgx.Row) (*model.Message, error) {
	var m model.Message
	if err := row.Scan(&m.ID, &m.UserID, &m.Content, &m.CreatedAt, &m.UpdatedAt); err != nil {
		return nil, err
	}
	return &m, nil
}

// Create inserts a message; created_at and updated_at share one now().
func (r *MessageRepo) Create(ctx context.Context, ownerID string, in model.MessageInput) (*model.Message, error) {
	const q = `
INSERT INTO messages (user_id, content) VALUES ($1, $2)
RETURNING ` + messageColumns
	m, err := scanMessage(r.db.Pool.QueryRow(ctx, q, ownerID, in.Content))
	if err != nil {
		return nil, errs.Storage("messages.create", err)
	}
	return m, nil
}

// Get selects a message by id.
func (r *MessageRepo) Get(ctx context.Context, id int64) (*model.Message, error) {
	const q = `SELECT ` + messageColumns + ` FROM messages WHERE id=$1`
	m, err := scanMessage(r.db.Pool.QueryRow(ctx, q, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, errs.Storage("messages.get", err)
	}
	return m, nil
}

// List selects all messages ordered by id.
func (r *MessageRepo) List(ctx context.Context) ([]model.Message, error) {
	const q = `SELECT ` + messageColumns + ` FROM messages ORDER BY id`
	return r.query(ctx, "messages.list", q)
}

// ListByOwner selects the owner's messages ordered by id.
func (r *MessageRepo) ListByOwner(ctx context.Context, ownerID string) ([]model.Message, error) {
	const q = `SELECT ` + messageColumns + ` FROM messages WHERE user_id=$1 ORDER BY id`
	return r.query(ctx, "messages.list_by_owner", q, ownerID)
}

func (r *MessageRepo) query(ctx context.Context, op, q string, args ...any) ([]model.Message, error) {
	rows, err := r.db.Pool.Query(ctx, q, args...)
	if err != nil {
		return nil, errs.Storage(op, err)
	}
	defer rows.Close()

	out := make([]model.Message, 0)
	for rows.Next() {
		m, err := scanMessage(rows)
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

// Update replaces content and moves updated_at to the statement clock.
func (r *MessageRepo) Update(ctx context.Context, id int64, in model.MessageInput) (*model.Message, error) {
	const q = `
UPDATE messages SET content=$2, updated_at=clock_timestamp()
WHERE id=$1
RETURNING ` + messageColumns
	m, err := scanMessage(r.db.Pool.QueryRow(ctx, q, id, in.Content))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, errs.Storage("messages.update", err)
	}
	return m, nil
}

// Delete removes a message by id.
func (r *MessageRepo) Delete(ctx context.Context, id int64) (bool, error) {
	const q = `DELETE FROM messages WHERE id=$1`
	tag, err := r.db.Pool.Exec(ctx, q, id)
	if err != nil {
		return false, errs.Storage("messages.delete", err)
	}
	return tag.RowsAffected() > 0, nil
}
