// Package memory provides in-process implementations of the repository interfaces
// for local development and tests. It is safe for concurrent use.
package memory

import (
	"cmp"
	"context"
	"slices"
	"sync"
	"time"

	"github.com/and161185/universal-api/internal/errs"
	"github.com/and161185/universal-api/internal/model"
	"github.com/and161185/universal-api/internal/repository"
)

var (
	_ repository.MessageRepository  = (*MessageRepo)(nil)
	_ repository.MapStateRepository = (*MapStateRepo)(nil)
	_ repository.HealthRepository   = (*Store)(nil)
)

// Store holds every table behind one lock.
type Store struct {
	mu        sync.RWMutex
	now       func() time.Time
	last      time.Time
	nextMsg   int64
	nextState int64
	messages  map[int64]model.Message
	mapStates map[int64]model.MapState
}

// New creates an empty store.
func New() *Store {
	return &Store{
		now:       time.Now,
		nextMsg:   1,
		nextState: 1,
		messages:  make(map[int64]model.Message),
		mapStates: make(map[int64]model.MapState),
	}
}

// Messages returns the message gateway backed by s.
func (s *Store) Messages() *MessageRepo { return &MessageRepo{s: s} }

// MapStates returns the map state gateway backed by s.
func (s *Store) MapStates() *MapStateRepo { return &MapStateRepo{s: s} }

// Ping always succeeds unless the context is done.
func (s *Store) Ping(ctx context.Context) error {
	return errs.Storage("memory.ping", ctx.Err())
}

// tickLocked returns a UTC timestamp strictly after every previously issued one.
func (s *Store) tickLocked() time.Time {
	t := s.now().UTC()
	if !t.After(s.last) {
		t = s.last.Add(time.Microsecond)
	}
	s.last = t
	return t
}

func sortedValues[T any](m map[int64]T, keep func(T) bool) []T {
	ids := make([]int64, 0, len(m))
	for id, v := range m {
		if keep(v) {
			ids = append(ids, id)
		}
	}
	slices.SortFunc(ids, cmp.Compare[int64])

	out := make([]T, 0, len(ids))
	for _, id := range ids {
		out = append(out, m[id])
	}
	return out
}
