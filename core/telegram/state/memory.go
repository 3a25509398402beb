package state

import (
	"sync"
	"time"
)

type memoryManager struct {
	mu       sync.RWMutex
	sessions map[int64]Session
	now      func() time.Time
}

// NewMemoryManager constructs an in-memory Manager.
func NewMemoryManager() Manager {
	return &memoryManager{
		sessions: make(map[int64]Session),
		now:      time.Now,
	}
}

// Get returns the session for a chat, or an idle session when none exists.
func (m *memoryManager) Get(chatID int64) Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if s, ok := m.sessions[chatID]; ok {
		return s
	}
	return Session{State: StateIdle}
}

// Set records the chat's new position and returns the stored session.
// Setting StateIdle removes the session.
func (m *memoryManager) Set(chatID int64, st State, scope string) Session {
	if st == StateIdle {
		m.Clear(chatID)
		return Session{State: StateIdle}
	}
	s := Session{State: st, Scope: scope, UpdatedAt: m.now()}
	m.mu.Lock()
	m.sessions[chatID] = s
	m.mu.Unlock()
	return s
}

// Clear removes the session for a chat.
func (m *memoryManager) Clear(chatID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, chatID)
}

// Prune drops sessions not updated since before.
func (m *memoryManager) Prune(before time.Time) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for id, s := range m.sessions {
		if s.UpdatedAt.Before(before) {
			delete(m.sessions, id)
			n++
		}
	}
	return n
}

// Len reports the number of non-idle sessions.
func (m *memoryManager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
