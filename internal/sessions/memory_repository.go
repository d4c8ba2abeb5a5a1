package sessions

import (
	"context"
	"sync"
)

// MemoryRepository keeps refresh tokens in process memory.
type MemoryRepository struct {
	mu   sync.Mutex
	rows map[string]RefreshToken
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{rows: map[string]RefreshToken{}}
}

func (m *MemoryRepository) Create(ctx context.Context, t *RefreshToken) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[t.TokenHash]; ok {
		return ErrDuplicateToken
	}
	m.rows[t.TokenHash] = *t
	return nil
}

func (m *MemoryRepository) GetByHash(ctx context.Context, hash string) (*RefreshToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.rows[hash]
	if !ok {
		return nil, nil
	}
	return &t, nil
}

func (m *MemoryRepository) RevokeIfActive(ctx context.Context, hash string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.rows[hash]
	if !ok || t.Revoked {
		return false, nil
	}
	t.Revoked = true
	m.rows[hash] = t
	return true, nil
}
