package limiter

import (
	"context"
	"sync"
	"time"
)

type entry struct {
	fails        int
	lastFail     time.Time
	blockedUntil time.Time
}

// Memory is an in-process limiter with the same semantics as PG.
type Memory struct {
	mu      sync.Mutex
	set     Settings
	now     func() time.Time
	clients map[string]*entry
}

// NewMemory constructs an in-process limiter.
func NewMemory(set Settings) *Memory {
	return &Memory{set: set, now: time.Now, clients: make(map[string]*entry)}
}

func (l *Memory) Allow(_ context.Context, clientHash []byte) (bool, time.Duration, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.clients[string(clientHash)]
	if !ok {
		return true, 0, nil
	}
	if now := l.now(); e.blockedUntil.After(now) {
		return false, e.blockedUntil.Sub(now), nil
	}
	return true, 0, nil
}

func (l *Memory) Failure(_ context.Context, clientHash []byte) (bool, time.Duration, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	key := string(clientHash)
	e, ok := l.clients[key]
	if !ok {
		e = &entry{}
		l.clients[key] = e
	}
	if now.Sub(e.lastFail) > l.set.Window {
		e.fails = 0
	}
	e.fails++
	e.lastFail = now
	if e.fails < l.set.MaxFails {
		return false, 0, nil
	}
	e.fails = 0
	e.blockedUntil = now.Add(l.set.BlockFor)
	return true, l.set.BlockFor, nil
}
