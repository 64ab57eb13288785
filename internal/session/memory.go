package session

import (
	"context"
	"sync"

	"github.com/cryptolearn/cryptolearn-tui/internal/domain"
)

// MemoryStore is an in-process Store. It backs tests and the --ephemeral mode
// where nothing should survive the process.
type MemoryStore struct {
	mu      sync.RWMutex
	session domain.Session
	present bool
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) Set(_ context.Context, s domain.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.session = s
	m.present = true
	return nil
}

func (m *MemoryStore) Get(_ context.Context) (domain.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.present {
		return domain.Session{}, ErrNoSession
	}
	return m.session, nil
}

func (m *MemoryStore) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.session = domain.Session{}
	m.present = false
	return nil
}
