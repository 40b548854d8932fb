// Package guard keeps at most one feedback run in flight per key, within a
// process (Memory) or across replicas (Redis).
package guard

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrHeld is returned by Acquire when another holder owns the key.
var ErrHeld = errors.New("run already in progress")

// Guard grants exclusive, expiring ownership of a key.
type Guard interface {
	// Acquire takes the key for at most ttl. The returned release function
	// gives it back early and is safe to call more than once.
	Acquire(ctx context.Context, key string, ttl time.Duration) (release func(), err error)
}

// Memory is an in-process Guard.
type Memory struct {
	mu    sync.Mutex
	held  map[string]lease
	seq   uint64
	clock func() time.Time
}

type lease struct {
	token   uint64
	expires time.Time
}

func NewMemory() *Memory {
	return &Memory{held: make(map[string]lease), clock: time.Now}
}

func (m *Memory) Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.clock()
	if l, ok := m.held[key]; ok && now.Before(l.expires) {
		return nil, ErrHeld
	}
	m.seq++
	token := m.seq
	m.held[key] = lease{token: token, expires: now.Add(ttl)}

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			defer m.mu.Unlock()
			if l, ok := m.held[key]; ok && l.token == token {
				delete(m.held, key)
			}
		})
	}, nil
}
