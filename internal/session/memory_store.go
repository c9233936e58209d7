package session

import (
	"context"
	"sync"

	"github.com/d60-Lab/moments/internal/model"
)

// MemoryStore 进程内存储，重启即丢失
type MemoryStore struct {
	mu sync.RWMutex
	s  *model.Session
}

func NewMemoryStore() *MemoryStore { return &MemoryStore{} }

func (m *MemoryStore) Load(ctx context.Context) (*model.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.s == nil {
		return nil, ErrNoSession
	}
	cp := *m.s
	return &cp, nil
}

func (m *MemoryStore) Save(ctx context.Context, s *model.Session) error {
	cp := *s
	m.mu.Lock()
	m.s = &cp
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Clear(ctx context.Context) error {
	m.mu.Lock()
	m.s = nil
	m.mu.Unlock()
	return nil
}
