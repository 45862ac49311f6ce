// Package convert maps domain entities to response views.
package convert

import (
	"time"

	"github.com/samber/lo"

	"github.com/and161185/universal-api/internal/model"
)

// --- helpers ---

func ts(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

// --- wrapper ---

// Viewed pairs a record view with the identity of the caller it is rendered for.
// The identity is never stored on the record itself.
type Viewed[V any] struct {
	Record   V              `json:"record"`
	ViewedBy model.Identity `json:"viewed_by"`
}

// With attaches viewer to a single view.
func With[V any](v V, viewer model.Identity) Viewed[V] {
	return Viewed[V]{Record: v, ViewedBy: viewer}
}

// WithAll maps records to views and attaches viewer to each. Never returns nil.
func WithAll[T, V any](records []T, view func(T) V, viewer model.Identity) []Viewed[V] {
	return lo.Map(records, func(r T, _ int) Viewed[V] { return With(view(r), viewer) })
}

// --- Message ---

// MessageView is the response shape of a message.
type MessageView struct {
	ID        int64  `json:"id"`
	UserID    string `json:"user_id"`
	Content   string `json:"content"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

// FromMessage copies every persisted field of m.
func FromMessage(m model.Message) MessageView {
	return MessageView{
		ID:        m.ID,
		UserID:    m.UserID,
		Content:   m.Content,
		CreatedAt: ts(m.CreatedAt),
		UpdatedAt: ts(m.UpdatedAt),
	}
}

// --- MapState ---

// MapStateView is the response shape of a map state.
type MapStateView struct {
	ID        int64  `json:"id"`
	UserID    string `json:"user_id"`
	Name      string `json:"name"`
	State     string `json:"state"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

// FromMapState copies every persisted field of m.
func FromMapState(m model.MapState) MapStateView {
	return MapStateView{
		ID:        m.ID,
		UserID:    m.UserID,
		Name:      m.Name,
		State:     m.State,
		CreatedAt: ts(m.CreatedAt),
		UpdatedAt: ts(m.UpdatedAt),
	}
}
