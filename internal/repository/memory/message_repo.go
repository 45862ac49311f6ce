package memory

import (
	"context"

	"github.com/and161185/universal-api/internal/errs"
	"github.com/and161185/universal-api/internal/model"
)

// MessageRepo is the in-memory message gateway.
type MessageRepo struct{ s *Store }

func (r *MessageRepo) Create(ctx context.Context, ownerID string, in model.MessageInput) (*model.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, errs.Storage("messages.create", err)
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	now := r.s.tickLocked()
	m := model.Message{ID: r.s.nextMsg, UserID: ownerID, Content: in.Content, CreatedAt: now, UpdatedAt: now}
	r.s.nextMsg++
	r.s.messages[m.ID] = m
	return &m, nil
}

func (r *MessageRepo) Get(ctx context.Context, id int64) (*model.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, errs.Storage("messages.get", err)
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	m, ok := r.s.messages[id]
	if !ok {
		return nil, errs.ErrNotFound
	}
	return &m, nil
}

func (r *MessageRepo) List(ctx context.Context) ([]model.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, errs.Storage("messages.list", err)
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return sortedValues(r.s.messages, func(model.Message) bool { return true }), nil
}

func (r *MessageRepo) ListByOwner(ctx context.Context, ownerID string) ([]model.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, errs.Storage("messages.list_by_owner", err)
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return sortedValues(r.s.messages, func(m model.Message) bool { return m.UserID == ownerID }), nil
}

func (r *MessageRepo) Update(ctx context.Context, id int64, in model.MessageInput) (*model.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, errs.Storage("messages.update", err)
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	m, ok := r.s.messages[id]
	if !ok {
		return nil, errs.ErrNotFound
	}
	m.Content = in.Content
	m.UpdatedAt = r.s.tickLocked()
	r.s.messages[id] = m
	return &m, nil
}

func (r *MessageRepo) Delete(ctx context.Context, id int64) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, errs.Storage("messages.delete", err)
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.messages[id]; !ok {
		return false, nil
	}
	delete(r.s.messages, id)
	return true, nil
}
