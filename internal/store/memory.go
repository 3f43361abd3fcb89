package store

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/Silicom-11/synaplink-engine/internal/domain"
)

// Memory is the reference ReservationStore, used in tests and for
// single-node deployments without Postgres.
type Memory struct {
	mu     sync.RWMutex
	byID   map[uuid.UUID]domain.Reservation
	byUser map[string][]uuid.UUID
}

func NewMemory() *Memory {
	return &Memory{
		byID:   make(map[uuid.UUID]domain.Reservation),
		byUser: make(map[string][]uuid.UUID),
	}
}

func (m *Memory) Create(ctx context.Context, res domain.Reservation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[res.ID]; ok {
		return domain.ErrConflict
	}
	m.byID[res.ID] = clone(res)
	m.byUser[res.UserID] = append(m.byUser[res.UserID], res.ID)
	return nil
}

func (m *Memory) Get(ctx context.Context, id uuid.UUID) (domain.Reservation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res, ok := m.byID[id]
	if !ok {
		return domain.Reservation{}, domain.ErrNotFound
	}
	return clone(res), nil
}

func (m *Memory) Update(ctx context.Context, res domain.Reservation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[res.ID]; !ok {
		return domain.ErrNotFound
	}
	m.byID[res.ID] = clone(res)
	return nil
}

func (m *Memory) ListByUser(ctx context.Context, userID string) ([]domain.Reservation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := m.byUser[userID]
	out := make([]domain.Reservation, 0, len(ids))
	for _, id := range ids {
		out = append(out, clone(m.byID[id]))
	}
	return out, nil
}

func (m *Memory) ListByStatus(ctx context.Context, status domain.ReservationStatus) ([]domain.Reservation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []domain.Reservation
	for _, res := range m.byID {
		if res.Status == status {
			out = append(out, clone(res))
		}
	}
	return out, nil
}

// clone keeps callers from aliasing the stored cabin slice.
func clone(res domain.Reservation) domain.Reservation {
	res.CabinNumbers = append([]int(nil), res.CabinNumbers...)
	return res
}
