package memstorage

import (
	"encoding/json"
	"github.com/denismitr/kire/internal/storage"
	"sort"
	"sync"
)

type MemStorage struct {
	mu    sync.RWMutex
	items map[string][]byte
}

func New() *MemStorage {
	return &MemStorage{items: make(map[string][]byte)}
}

func (s *MemStorage) Get(key string) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.items[key]
	if !ok {
		return nil, false, nil
	}

	cp := make([]byte, len(v))
	copy(cp, v)
	return cp, true, nil
}

func (s *MemStorage) Set(key string, value []byte) error {
	if key == "" {
		return storage.ErrEmptyKey
	}

	if !json.Valid(value) {
		return storage.ErrInvalidValue
	}

	cp := make([]byte, len(value))
	copy(cp, value)

	s.mu.Lock()
	s.items[key] = cp
	s.mu.Unlock()
	return nil
}

func (s *MemStorage) Remove(key string) error {
	s.mu.Lock()
	delete(s.items, key)
	s.mu.Unlock()
	return nil
}

func (s *MemStorage) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]string, 0, len(s.items))
	for k := range s.items {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (s *MemStorage) Sync() (bool, error) {
	return false, nil
}
