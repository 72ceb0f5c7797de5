package store

import (
	"context"
	"sync"

	"github.com/jadavkeshav/log-management/internal/domain"
	"github.com/jadavkeshav/log-management/internal/ports"
)

// MemoryStore keeps a bounded per-tenant history in memory. It backs local
// runs without Postgres and the gateway tests.
type MemoryStore struct {
	mu     sync.Mutex
	events map[string][]*domain.LogEvent
	cap    int
}

func NewMemoryStore(capacity int) *MemoryStore {
	if capacity <= 0 {
		capacity = 1000
	}
	return &MemoryStore{
		events: make(map[string][]*domain.LogEvent),
		cap:    capacity,
	}
}

func (s *MemoryStore) Save(_ context.Context, event *domain.LogEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	list := append(s.events[event.TenantID], event)
	if len(list) > s.cap {
		list = list[len(list)-s.cap:]
	}
	s.events[event.TenantID] = list
	return nil
}

// Recent returns up to limit events for the tenant, newest first.
func (s *MemoryStore) Recent(_ context.Context, tenantID string, limit int) ([]*domain.LogEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	list := s.events[tenantID]
	if limit <= 0 || len(list) == 0 {
		return nil, nil
	}
	if limit > len(list) {
		limit = len(list)
	}

	out := make([]*domain.LogEvent, 0, limit)
	for i := len(list) - 1; i >= len(list)-limit; i-- {
		out = append(out, list[i])
	}
	return out, nil
}

var _ ports.LogStore = (*MemoryStore)(nil)
