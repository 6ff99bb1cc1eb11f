package storage

import (
	"context"
	"sort"
	"sync"

	"github.com/savegress/odcv/pkg/models"
)

// MemoryStore keeps datasets in process memory. Suitable for development
// and single-upload dashboard sessions.
type MemoryStore struct {
	mu       sync.RWMutex
	datasets map[string]*models.Dataset
	events   map[string][]models.Event
	order    []string // save order, oldest first
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		datasets: make(map[string]*models.Dataset),
		events:   make(map[string][]models.Event),
	}
}

// SaveDataset persists a dataset and its events.
func (s *MemoryStore) SaveDataset(_ context.Context, ds *models.Dataset, events []models.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.datasets[ds.ID]; !exists {
		s.order = append(s.order, ds.ID)
	}
	copied := make([]models.Event, len(events))
	copy(copied, events)
	sort.SliceStable(copied, func(i, j int) bool { return copied[i].Time.Before(copied[j].Time) })

	s.datasets[ds.ID] = ds
	s.events[ds.ID] = copied
	return nil
}

// ListDatasets returns all dataset descriptors, newest first.
func (s *MemoryStore) ListDatasets(_ context.Context) ([]*models.Dataset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.Dataset, 0, len(s.order))
	for i := len(s.order) - 1; i >= 0; i-- {
		out = append(out, s.datasets[s.order[i]])
	}
	return out, nil
}

// GetDataset returns one dataset descriptor.
func (s *MemoryStore) GetDataset(_ context.Context, id string) (*models.Dataset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ds, ok := s.datasets[id]
	if !ok {
		return nil, ErrDatasetNotFound
	}
	return ds, nil
}

// Events returns a dataset's events sorted by time.
func (s *MemoryStore) Events(_ context.Context, id string) ([]models.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	events, ok := s.events[id]
	if !ok {
		return nil, ErrDatasetNotFound
	}
	out := make([]models.Event, len(events))
	copy(out, events)
	return out, nil
}

// DeleteDataset removes a dataset and its events.
func (s *MemoryStore) DeleteDataset(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.datasets[id]; !ok {
		return ErrDatasetNotFound
	}
	delete(s.datasets, id)
	delete(s.events, id)
	for i, existing := range s.order {
		if existing == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

// ActiveDataset returns the most recently saved dataset, or nil when empty.
func (s *MemoryStore) ActiveDataset(_ context.Context) (*models.Dataset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.order) == 0 {
		return nil, nil
	}
	return s.datasets[s.order[len(s.order)-1]], nil
}

// Close is a no-op for the in-memory store.
func (s *MemoryStore) Close() error {
	return nil
}
