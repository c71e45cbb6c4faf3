package memory

import (
	"context"
	"sync"

	"escrowd/internal/escrow/models"
	"escrowd/pkg/domain"
	"escrowd/pkg/platform/sentinel"
)

// InMemoryStore keeps escrows in process. IDs are assigned sequentially
// from 1, so slice order is creation order.
type InMemoryStore struct {
	mu      sync.RWMutex
	nextID  domain.EscrowID
	escrows map[domain.EscrowID]*models.Escrow
	order   []domain.EscrowID
	history map[domain.EscrowID][]models.HistoryEntry
}

func New() *InMemoryStore {
	return &InMemoryStore{
		nextID:  1,
		escrows: make(map[domain.EscrowID]*models.Escrow),
		history: make(map[domain.EscrowID][]models.HistoryEntry),
	}
}

// Create assigns the next id and records entry as the first history row.
func (s *InMemoryStore) Create(_ context.Context, escrow *models.Escrow, entry models.HistoryEntry) (domain.EscrowID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++

	stored := escrow.Clone()
	stored.ID = id
	s.escrows[id] = stored
	s.order = append(s.order, id)
	entry.EscrowID = id
	s.history[id] = append(s.history[id], entry)
	return id, nil
}

func (s *InMemoryStore) FindByID(_ context.Context, id domain.EscrowID) (*models.Escrow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.escrows[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return e.Clone(), nil
}

func (s *InMemoryStore) Update(_ context.Context, escrow *models.Escrow, entry models.HistoryEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.escrows[escrow.ID]; !ok {
		return sentinel.ErrNotFound
	}
	s.escrows[escrow.ID] = escrow.Clone()
	s.history[escrow.ID] = append(s.history[escrow.ID], entry)
	return nil
}

func (s *InMemoryStore) ListIDsForAddress(_ context.Context, address domain.Address, role domain.Role) ([]domain.EscrowID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := []domain.EscrowID{}
	for _, id := range s.order {
		if matches(s.escrows[id], address, role) {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (s *InMemoryStore) ListForAddress(_ context.Context, address domain.Address, role domain.Role) ([]*models.Escrow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []*models.Escrow{}
	for _, id := range s.order {
		if e := s.escrows[id]; matches(e, address, role) {
			out = append(out, e.Clone())
		}
	}
	return out, nil
}

func (s *InMemoryStore) History(_ context.Context, id domain.EscrowID) ([]models.HistoryEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.HistoryEntry{}, s.history[id]...), nil
}

func matches(e *models.Escrow, address domain.Address, role domain.Role) bool {
	switch role {
	case domain.RoleBuyer:
		return e.Buyer == address
	case domain.RoleSeller:
		return e.Seller == address
	default:
		return e.Buyer == address || e.Seller == address
	}
}
