package session

import (
	"context"
	"errors"
	"sync"
)

// ErrKeyNotFound is returned by Storage.Get for keys that were never set or were deleted.
var ErrKeyNotFound = errors.New("session key not found")

// Storage is session-scoped key/value storage: every key lives inside one session id.
type Storage interface {
	Get(ctx context.Context, sid, key string) (string, error)
	Set(ctx context.Context, sid, key, value string) error
	Delete(ctx context.Context, sid, key string) error
	Clear(ctx context.Context, sid string) error
}

// MemoryStorage keeps sessions in process. Sessions never expire; it is meant
// for local runs and tests.
type MemoryStorage struct {
	mu       sync.RWMutex
	sessions map[string]map[string]string
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{sessions: make(map[string]map[string]string)}
}

func (m *MemoryStorage) Get(_ context.Context, sid, key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.sessions[sid][key]
	if !ok {
		return "", ErrKeyNotFound
	}
	return v, nil
}

func (m *MemoryStorage) Set(_ context.Context, sid, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[sid]
	if !ok {
		s = make(map[string]string)
		m.sessions[sid] = s
	}
	s[key] = value
	return nil
}

func (m *MemoryStorage) Delete(_ context.Context, sid, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions[sid], key)
	return nil
}

func (m *MemoryStorage) Clear(_ context.Context, sid string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, sid)
	return nil
}
