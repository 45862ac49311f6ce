// Package repository defines storage interfaces implemented by concrete backends.
package repository

import (
	"context"

	"github.com/and161185/universal-api/internal/model"
)

// MessageRepository is the persistence gateway for messages.
// Get and Update return errs.ErrNotFound for an unknown id; backend failures
// are reported as *errs.StorageError.
type MessageRepository interface {
	// Create inserts a message owned by ownerID; id and timestamps are server-assigned.
	Create(ctx context.Context, ownerID string, in model.MessageInput) (*model.Message, error)
	// Get loads a message by id.
	Get(ctx context.Context, id int64) (*model.Message, error)
	// List returns all messages in insertion order.
	List(ctx context.Context) ([]model.Message, error)
	// ListByOwner returns the owner's messages in insertion order; empty when none.
	ListByOwner(ctx context.Context, ownerID string) ([]model.Message, error)
	// Update replaces the mutable fields and refreshes updated_at.
	Update(ctx context.Context, id int64, in model.MessageInput) (*model.Message, error)
	// Delete removes the message and reports whether a row existed.
	Delete(ctx context.Context, id int64) (bool, error)
}
