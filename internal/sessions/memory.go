package sessions

import (
	"context"
	"sync"
	"time"

	"github.com/ravensoft/license-server/internal/models"
)

// MemoryStore хранит сессии в памяти процесса под мьютексом.
// Используется в тестах и как запасной вариант без Redis; в этом случае
// память ограничивает фоновая чистка DeleteExpired.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]models.Session
}

// NewMemoryStore возвращает пустое хранилище.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]models.Session)}
}

// Put кладёт сессию в набор.
func (m *MemoryStore) Put(_ context.Context, s models.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.Token] = s
	return nil
}

// Get возвращает сессию по токену или ErrNotFound.
func (m *MemoryStore) Get(_ context.Context, token string) (*models.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[token]
	if !ok {
		return nil, ErrNotFound
	}
	return &s, nil
}

// Delete убирает токен из набора.
func (m *MemoryStore) Delete(_ context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, token)
	return nil
}

// Count возвращает число сессий в наборе, включая просроченные,
// которые ещё не вычищены.
func (m *MemoryStore) Count(_ context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions), nil
}

// DeleteExpired убирает все сессии, чей срок истёк к моменту now.
func (m *MemoryStore) DeleteExpired(_ context.Context, now time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	removed := 0
	for token, s := range m.sessions {
		if now.After(s.ExpiresAt) {
			delete(m.sessions, token)
			removed++
		}
	}
	return removed, nil
}
