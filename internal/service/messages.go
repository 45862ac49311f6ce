// Package service contains the application services for messages, map states and health.
// Services validate input and delegate to repositories; they do not authorize.
// Ownership checks live at the transport boundary where both the caller and the
// target record are known.
package service

import (
	"context"

	"github.com/go-playground/validator/v10"

	"github.com/and161185/universal-api/internal/model"
	"github.com/and161185/universal-api/internal/repository"
)

// MessageService defines operations over messages.
type MessageService interface {
	// Create validates input and stores a message owned by ownerID.
	Create(ctx context.Context, ownerID string, in model.MessageInput) (*model.Message, error)
	// Get returns a message or errs.ErrNotFound.
	Get(ctx context.Context, id int64) (*model.Message, error)
	// List returns every message.
	List(ctx context.Context) ([]model.Message, error)
	// ListByOwner returns the owner's messages.
	ListByOwner(ctx context.Context, ownerID string) ([]model.Message, error)
	// Update validates input and replaces the message content.
	Update(ctx context.Context, id int64, in model.MessageInput) (*model.Message, error)
	// Delete removes a message and reports whether it existed.
	Delete(ctx context.Context, id int64) (bool, error)
}

type MessageServiceImpl struct {
	repo     repository.MessageRepository
	validate *validator.Validate
}

// NewMessageService constructs MessageService.
func NewMessageService(repo repository.MessageRepository) *MessageServiceImpl {
	return &MessageServiceImpl{repo: repo, validate: newValidator()}
}

func (s *MessageServiceImpl) Create(ctx context.Context, ownerID string, in model.MessageInput) (*model.Message, error) {
	if err := checkOwner(ownerID); err != nil {
		return nil, err
	}
	if err := checkInput(s.validate, in); err != nil {
		return nil, err
	}
	return s.repo.Create(ctx, ownerID, in)
}

func (s *MessageServiceImpl) Get(ctx context.Context, id int64) (*model.Message, error) {
	return s.repo.Get(ctx, id)
}

func (s *MessageServiceImpl) List(ctx context.Context) ([]model.Message, error) {
	return s.repo.List(ctx)
}

func (s *MessageServiceImpl) ListByOwner(ctx context.Context, ownerID string) ([]model.Message, error) {
	return s.repo.ListByOwner(ctx, ownerID)
}

func (s *MessageServiceImpl) Update(ctx context.Context, id int64, in model.MessageInput) (*model.Message, error) {
	if err := checkInput(s.validate, in); err != nil {
		return nil, err
	}
	return s.repo.Update(ctx, id, in)
}

func (s *MessageServiceImpl) Delete(ctx context.Context, id int64) (bool, error) {
	return s.repo.Delete(ctx, id)
}
