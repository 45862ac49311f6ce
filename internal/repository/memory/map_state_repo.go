package memory

import (
	"context"

	"github.com/and161185/universal-api/internal/errs"
	"github.com/and161185/universal-api/internal/model"
)

// MapStateRepo is the in-memory map state gateway.
type MapStateRepo struct{ s *Store }

func (r *MapStateRepo) Create(ctx context.Context, ownerID string, in model.MapStateInput) (*model.MapState, error) {
	if err := ctx.Err(); err != nil {
		return nil, errs.Storage("map_states.create", err)
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	now := r.s.tickLocked()
	m := model.MapState{ID: r.s.nextState, UserID: ownerID, Name: in.Name, State: in.State, CreatedAt: now, UpdatedAt: now}
	r.s.nextState++
	r.s.mapStates[m.ID] = m
	return &m, nil
}

func (r *MapStateRepo) Get(ctx context.Context, id int64) (*model.MapState, error) {
	if err := ctx.Err(); err != nil {
		return nil, errs.Storage("map_states.get", err)
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	m, ok := r.s.mapStates[id]
	if !ok {
		return nil, errs.ErrNotFound
	}
	return &m, nil
}

func (r *MapStateRepo) List(ctx context.Context) ([]model.MapState, error) {
	if err := ctx.Err(); err != nil {
		return nil, errs.Storage("map_states.list", err)
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return sortedValues(r.s.mapStates, func(model.MapState) bool { return true }), nil
}

func (r *MapStateRepo) ListByOwner(ctx context.Context, ownerID string) ([]model.MapState, error) {
	if err := ctx.Err(); err != nil {
		return nil, errs.Storage("map_states.list_by_owner", err)
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return sortedValues(r.s.mapStates, func(m model.MapState) bool { return m.UserID == ownerID }), nil
}

func (r *MapStateRepo) Update(ctx context.Context, id int64, in model.MapStateInput) (*model.MapState, error) {
	if err := ctx.Err(); err != nil {
		return nil, errs.Storage("map_states.update", err)
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	m, ok := r.s.mapStates[id]
	if !ok {
		return nil, errs.ErrNotFound
	}
	m.Name = in.Name
	m.State = in.State
	m.UpdatedAt = r.s.tickLocked()
	r.s.mapStates[id] = m
	return &m, nil
}

func (r *MapStateRepo) Delete(ctx context.Context, id int64) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, errs.Storage("map_states.delete", err)
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.mapStates[id]; !ok {
		return false, nil
	}
	delete(r.s.mapStates, id)
	return true, nil
}
