package service

import (
	"context"

	"github.com/go-playground/validator/v10"

	"github.com/and161185/universal-api/internal/model"
	"github.com/and161185/universal-api/internal/repository"
)

// MapStateService defines operations over map states.
type MapStateService interface {
	Create(ctx context.Context, ownerID string, in model.MapStateInput) (*model.MapState, error)
	Get(ctx context.Context, id int64) (*model.MapState, error)
	List(ctx context.Context) ([]model.MapState, error)
	ListByOwner(ctx context.Context, ownerID string) ([]model.MapState, error)
	Update(ctx context.Context, id int64, in model.MapStateInput) (*model.MapState, error)
	Delete(ctx context.Context, id int64) (bool, error)
}

type MapStateServiceImpl struct {
	repo     repository.MapStateRepository
	validate *validator.Validate
}

// NewMapStateService constructs MapStateService.
func NewMapStateService(repo repository.MapStateRepository) *MapStateServiceImpl {
	return &MapStateServiceImpl{repo: repo, validate: newValidator()}
}

// Create validates name (required, at most 255 chars) and state (required).
func (s *MapStateServiceImpl) Create(ctx context.Context, ownerID string, in model.MapStateInput) (*model.MapState, error) {
	if err := checkOwner(ownerID); err != nil {
		return nil, err
	}
	if err := checkInput(s.validate, in); err != nil {
		return nil, err
	}
	return s.repo.Create(ctx, ownerID, in)
}

func (s *MapStateServiceImpl) Get(ctx context.Context, id int64) (*model.MapState, error) {
	return s.repo.Get(ctx, id)
}

func (s *MapStateServiceImpl) List(ctx context.Context) ([]model.MapState, error) {
	return s.repo.List(ctx)
}

func (s *MapStateServiceImpl) ListByOwner(ctx context.Context, ownerID string) ([]model.MapState, error) {
	return s.repo.ListByOwner(ctx, ownerID)
}

func (s *MapStateServiceImpl) Update(ctx context.Context, id int64, in model.MapStateInput) (*model.MapState, error) {
	if err := checkInput(s.validate, in); err != nil {
		return nil, err
	}
	return s.repo.Update(ctx, id, in)
}

func (s *MapStateServiceImpl) Delete(ctx context.Context, id int64) (bool, error) {
	return s.repo.Delete(ctx, id)
}
