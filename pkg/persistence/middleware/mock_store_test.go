package middleware_test

import (
	"context"

	"github.com/aretw0/roboflow/pkg/domain"
	"github.com/aretw0/roboflow/pkg/ports"
)

// MockStore is a simple map-based store for testing middleware.
type MockStore struct {
	data map[string]*domain.Report
}

func NewMockStore() *MockStore {
	return &MockStore{
		data: make(map[string]*domain.Report),
	}
}

func (s *MockStore) Save(ctx context.Context, report *domain.Report) error {
	s.data[report.RunID] = report
	return nil
}

func (s *MockStore) Load(ctx context.Context, runID string) (*domain.Report, error) {
	r, ok := s.data[runID]
	if !ok {
		return nil, domain.ErrRunNotFound
	}
	return r, nil
}

func (s *MockStore) Delete(ctx context.Context, runID string) error {
	delete(s.data, runID)
	return nil
}

func (s *MockStore) List(ctx context.Context) ([]string, error) {
	keys := make([]string, 0, len(s.data))
	for k := range s.data {
		keys = append(keys, k)
	}
	return keys, nil
}

var _ ports.RunStore = (*MockStore)(nil)
