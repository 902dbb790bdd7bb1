package store

import (
	"context"
	"sync"
)

// MemoryStore 进程内存储，用于测试和 store.backend=memory。
type MemoryStore struct {
	mu      sync.RWMutex
	entries []GuideEntry
	index   map[string]int
	dims    dimensionGuard
}

// NewMemoryStore 创建空的内存存储。
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{index: make(map[string]int)}
}

// Upsert implements GuideStore.
func (s *MemoryStore) Upsert(ctx context.Context, content string, embedding []float32) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.dims.admit(ctx, len(embedding), func() error {
		vec := make([]float32, len(embedding))
		copy(vec, embedding)

		if i, ok := s.index[content]; ok {
			s.entries[i].Embedding = vec
			return nil
		}
		s.index[content] = len(s.entries)
		s.entries = append(s.entries, GuideEntry{Content: content, Embedding: vec})
		return nil
	})
}

// TopK implements GuideStore.
func (s *MemoryStore) TopK(ctx context.Context, query []float32, k int) ([]ScoredEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if k <= 0 || len(s.entries) == 0 {
		return []ScoredEntry{}, nil
	}
	if _, err := s.dims.check(ctx, len(query)); err != nil {
		return nil, err
	}
	return rank(s.entries, query, k), nil
}

// Count implements GuideStore.
func (s *MemoryStore) Count(context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries), nil
}

var _ GuideStore = (*MemoryStore)(nil)
