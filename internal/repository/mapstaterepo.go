package repository

import (
	"context"

	"github.com/and161185/universal-api/internal/model"
)

// MapStateRepository is the persistence gateway for map states.
// Error semantics match MessageRepository.
type MapStateRepository interface {
	// Create inserts a map state owned by ownerID.
	Create(ctx context.Context, ownerID string, in model.MapStateInput) (*model.MapState, error)
	// Get loads a map state by id.
	Get(ctx context.Context, id int64) (*model.MapState, error)
	// List returns all map states in insertion order.
	List(ctx context.Context) ([]model.MapState, error)
	// ListByOwner returns the owner's map states in insertion order.
	ListByOwner(ctx context.Context, ownerID string) ([]model.MapState, error)
	// Update replaces name and state and refreshes updated_at.
	Update(ctx context.Context, id int64, in model.MapStateInput) (*model.MapState, error)
	// Delete removes the map state and reports whether a row existed.
	Delete(ctx context.Context, id int64) (bool, error)
}
