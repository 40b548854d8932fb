package session

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/user/intervoice/internal/types"
)

// FinishHandler is told about every session that finished from active.
type FinishHandler func(m *Machine, snap Snapshot)

// Manager owns the live sessions of the process.
type Manager struct {
	dialer   Dialer
	resolver Resolver
	onFinish FinishHandler

	mu       sync.RWMutex
	sessions map[types.SessionID]*Machine
}

func NewManager(dialer Dialer, resolver Resolver, onFinish FinishHandler) *Manager {
	return &Manager{
		dialer:   dialer,
		resolver: resolver,
		onFinish: onFinish,
		sessions: make(map[types.SessionID]*Machine),
	}
}

// Create registers a new idle session for req.
func (mgr *Manager) Create(req Request) *Machine {
	id := types.NewSessionID()
	var m *Machine
	m = NewMachine(id, req, mgr.dialer, mgr.resolver, func(snap Snapshot) {
		if mgr.onFinish != nil {
			mgr.onFinish(m, snap)
		}
	})
	mgr.mu.Lock()
	mgr.sessions[id] = m
	mgr.mu.Unlock()
	slog.Info("session created", "session_id", string(id), "type", string(req.Kind))
	return m
}

func (mgr *Manager) Get(id types.SessionID) (*Machine, error) {
	mgr.mu.RLock()
	defer mgr.mu.RUnlock()
	m, ok := mgr.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return m, nil
}

// List returns snapshots of every session, newest first.
func (mgr *Manager) List() []Snapshot {
	mgr.mu.RLock()
	out := make([]Snapshot, 0, len(mgr.sessions))
	for _, m := range mgr.sessions {
		out = append(out, m.Snapshot())
	}
	mgr.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

// Reap disconnects and removes every session with no activity since cutoff.
// It returns the number removed.
func (mgr *Manager) Reap(ctx context.Context, cutoff time.Time) int {
	mgr.mu.RLock()
	var stale []*Machine
	for _, m := range mgr.sessions {
		if m.lastActivity().Before(cutoff) {
			stale = append(stale, m)
		}
	}
	mgr.mu.RUnlock()

	removed := 0
	for _, m := range stale {
		m.Disconnect(ctx)
		mgr.mu.Lock()
		delete(mgr.sessions, m.ID())
		mgr.mu.Unlock()
		removed++
	}
	if removed > 0 {
		slog.Info("reaped sessions", "count", removed)
	}
	return removed
}

// Close disconnects every session.
func (mgr *Manager) Close(ctx context.Context) {
	mgr.mu.RLock()
	all := make([]*Machine, 0, len(mgr.sessions))
	for _, m := range mgr.sessions {
		all = append(all, m)
	}
	mgr.mu.RUnlock()
	for _, m := range all {
		m.Disconnect(ctx)
	}
}
