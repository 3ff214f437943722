package props

import (
	"context"
	"sync"

	"github.com/chatrelay/chatrelay/internal/domain"
)

// MemoryStore is an in-process PropertyStore used by tests and local
// development. MaxValueBytes, when non-zero, makes Set fail with a
// value-too-large error the same way a constrained real store would.
type MemoryStore struct {
	mu            sync.Mutex
	values        map[string]string
	MaxValueBytes int
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: map[string]string{}}
}

func (s *MemoryStore) Get(ctx context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.values[key]
	return v, ok, nil
}

func (s *MemoryStore) Set(ctx context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.MaxValueBytes > 0 && len(value) > s.MaxValueBytes {
		return domain.Ef(domain.KindValueTooLarge, "value for %q exceeds %d bytes", key, s.MaxValueBytes)
	}

	s.values[key] = value
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.values, key)
	return nil
}

func (s *MemoryStore) ListKeys(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	keys := make([]string, 0, len(s.values))
	for k := range s.values {
		keys = append(keys, k)
	}
	return keys, nil
}
