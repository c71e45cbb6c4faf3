package memory

import (
	"context"
	"sync"

	"escrowd/internal/compliance/models"
	"escrowd/pkg/domain"
	"escrowd/pkg/platform/sentinel"
)

// InMemoryStore keeps compliance records and their history in process.
// Reads return copies so callers never share state with the store.
type InMemoryStore struct {
	mu      sync.RWMutex
	records map[domain.Address]models.Record
	history map[domain.Address][]models.HistoryEntry
}

func New() *InMemoryStore {
	return &InMemoryStore{
		records: make(map[domain.Address]models.Record),
		history: make(map[domain.Address][]models.HistoryEntry),
	}
}

func (s *InMemoryStore) Get(_ context.Context, address domain.Address) (*models.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[address]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &rec, nil
}

// Save upserts the record and appends entry in one step.
func (s *InMemoryStore) Save(_ context.Context, record *models.Record, entry models.HistoryEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[record.Address] = *record
	s.history[record.Address] = append(s.history[record.Address], entry)
	return nil
}

func (s *InMemoryStore) History(_ context.Context, address domain.Address) ([]models.HistoryEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.HistoryEntry{}, s.history[address]...), nil
}
