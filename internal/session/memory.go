package session

import (
	"context"
	"sync"
)

// Memory is a process-local Store.
type Memory struct {
	mu       sync.RWMutex
	sessions map[string]Identity
}

// NewMemory creates an empty in-process session store.
func NewMemory() *Memory {
	return &Memory{sessions: make(map[string]Identity)}
}

func (m *Memory) Bind(_ context.Context, connID string, id Identity) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[connID] = id
	return nil
}

func (m *Memory) Lookup(_ context.Context, connID string) (Identity, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.sessions[connID]
	if !ok {
		return Identity{}, ErrNoSession
	}
	return id, nil
}

func (m *Memory) Unbind(_ context.Context, connID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, connID)
	return nil
}

// Len returns the number of bound connections.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

func (m *Memory) Ping(context.Context) error { return nil }

func (m *Memory) Close(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	clear(m.sessions)
	return nil
}
