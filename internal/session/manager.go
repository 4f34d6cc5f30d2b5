package session

import "sync"

// Manager guards the single process-wide session. Login replaces the current
// session under the write lock; request handlers read it under the read lock,
// so a half-initialized session is never observable.
type Manager struct {
	mu      sync.RWMutex
	current *Session
}

func NewManager() *Manager {
	return &Manager{}
}

// Current returns the live session, or ErrNotInitialized before the first
// successful login.
func (m *Manager) Current() (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.current == nil {
		return nil, ErrNotInitialized
	}
	return m.current, nil
}

// Replace installs a new session. Any prior session is dropped; in-flight
// requests holding the old one finish against it.
func (m *Manager) Replace(s *Session) {
	m.mu.Lock()
	m.current = s
	m.mu.Unlock()
}
