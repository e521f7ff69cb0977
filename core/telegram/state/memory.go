package state

import (
	"context"
	"sync"
)

type memoryStore struct {
	mu       sync.RWMutex
	sessions map[Key]*Session
	closed   bool
}

// NewMemoryStore constructs an in-memory Store implementation for tests and development.
func NewMemoryStore() Store {
	return &memoryStore{
		sessions: make(map[Key]*Session),
	}
}

func (m *memoryStore) session(key Key) *Session {
	sess, ok := m.sessions[key]
	if !ok {
		sess = &Session{State: StateIdle, Data: make(map[string]any)}
		m.sessions[key] = sess
	}
	return sess
}

// GetState returns the current FSM state of a conversation, or StateIdle if none exists.
func (m *memoryStore) GetState(_ context.Context, key Key) (State, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return StateIdle, ErrClosed
	}
	if sess, ok := m.sessions[key]; ok && sess.State != "" {
		return sess.State, nil
	}
	return StateIdle, nil
}

// SetState sets the FSM state for the given conversation.
func (m *memoryStore) SetState(_ context.Context, key Key, st State) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	m.session(key).State = st
	return nil
}

// GetData returns a copy of the conversation value bag.
func (m *memoryStore) GetData(_ context.Context, key Key) (map[string]any, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, ErrClosed
	}
	sess, ok := m.sessions[key]
	if !ok {
		return map[string]any{}, nil
	}
	return copyData(sess.Data), nil
}

// SetData replaces the conversation value bag.
func (m *memoryStore) SetData(_ context.Context, key Key, data map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	m.session(key).Data = copyData(data)
	return nil
}

// UpdateData merges values into the conversation value bag.
func (m *memoryStore) UpdateData(_ context.Context, key Key, values map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	sess := m.session(key)
	for k, v := range values {
		sess.Data[k] = v
	}
	return nil
}

// Reset moves the conversation back to idle, dropping the session unless keepData is set.
func (m *memoryStore) Reset(_ context.Context, key Key, keepData bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	if !keepData {
		delete(m.sessions, key)
		return nil
	}
	if sess, ok := m.sessions[key]; ok {
		sess.State = StateIdle
	}
	return nil
}

// Close drops every session.
func (m *memoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.sessions = nil
	return nil
}
